package bot

import (
	"fmt"
	"math/bits"

	"jamb/internal/domain"
)

// option is the best way to fill one open category with the dice on the table.
type option struct {
	Category domain.Category
	Mask     uint8 // bit i set means die i is locked
	Score    int
}

// bestOptions evaluates every open category against every legal lock set
// (at most domain.MaxLocked dice) and keeps the highest scoring one per category.
// Ties prefer fewer locked dice.
func bestOptions(state domain.GameState) ([]option, error) {
	sheet := state.CurrentSheet()
	if sheet == nil {
		return nil, fmt.Errorf("no current player")
	}
	values := state.Dice.Values()

	var opts []option
	for _, c := range sheet.Open() {
		best := option{Category: c, Score: -1}
		for mask := uint8(0); mask < 1<<domain.NumDice; mask++ {
			n := bits.OnesCount8(mask)
			if n > domain.MaxLocked {
				continue
			}
			score := domain.Score(c, maskValues(values, mask))
			if score > best.Score || (score == best.Score && n < bits.OnesCount8(best.Mask)) {
				best.Score = score
				best.Mask = mask
			}
		}
		opts = append(opts, best)
	}
	if len(opts) == 0 {
		return nil, fmt.Errorf("no open categories")
	}
	return opts, nil
}

func maskValues(values []int, mask uint8) []int {
	var out []int
	for i, v := range values {
		if mask&(1<<i) != 0 {
			out = append(out, v)
		}
	}
	return out
}

// lockStep returns the next toggle that moves the dice towards target.
// Unlocks come first so the lock cap is never hit on the way.
func lockStep(dice domain.DiceSet, target uint8) (Move, bool) {
	for i, d := range dice {
		if d.Locked && target&(1<<i) == 0 {
			return Move{Kind: MoveToggleLock, Index: i}, true
		}
	}
	for i, d := range dice {
		if !d.Locked && target&(1<<i) != 0 {
			return Move{Kind: MoveToggleLock, Index: i}, true
		}
	}
	return Move{}, false
}

// commit locks the option's dice one move at a time and then scores it.
func commit(state domain.GameState, opt option) Move {
	if step, ok := lockStep(state.Dice, opt.Mask); ok {
		return step
	}
	return Move{Kind: MoveScore, Category: opt.Category}
}

// EasyBot rolls once and books the highest immediate score.
type EasyBot struct{}

func (b *EasyBot) CalculateMove(state domain.GameState) (Move, error) {
	if state.RollsLeft == domain.MaxRolls {
		return Move{Kind: MoveRoll}, nil
	}
	opts, err := bestOptions(state)
	if err != nil {
		return Move{}, err
	}
	best := opts[0]
	for _, o := range opts[1:] {
		if o.Score > best.Score {
			best = o
		}
	}
	return commit(state, best), nil
}

// GoodBot keeps the most common face and re-rolls until some category reaches
// its target, saving chance as the dump slot.
type GoodBot struct{}

const chanceReserve = 15

func (b *GoodBot) CalculateMove(state domain.GameState) (Move, error) {
	if state.RollsLeft == domain.MaxRolls {
		return Move{Kind: MoveRoll}, nil
	}
	opts, err := bestOptions(state)
	if err != nil {
		return Move{}, err
	}

	var best, bestSatisfied *option
	for i := range opts {
		o := &opts[i]
		if best == nil || weigh(*o) > weigh(*best) {
			best = o
		}
		if o.Score >= target(o.Category) && (bestSatisfied == nil || weigh(*o) > weigh(*bestSatisfied)) {
			bestSatisfied = o
		}
	}

	if bestSatisfied != nil {
		return commit(state, *bestSatisfied), nil
	}
	if state.RollsLeft == 0 {
		return commit(state, *best), nil
	}
	if step, ok := lockStep(state.Dice, keepMostCommon(state.Dice)); ok {
		return step, nil
	}
	return Move{Kind: MoveRoll}, nil
}

func weigh(o option) int {
	if o.Category == domain.Chance {
		return o.Score - chanceReserve
	}
	return o.Score
}

// target is the score GoodBot is happy to book for a category.
func target(c domain.Category) int {
	switch c {
	case domain.Ones, domain.Twos, domain.Threes, domain.Fours, domain.Fives, domain.Sixes:
		return 3 * (int(c-domain.Ones) + 1)
	case domain.FullHouse:
		return 55
	case domain.SmallStraight:
		return 30
	case domain.LargeStraight:
		return 40
	case domain.Chance:
		return 22
	default:
		return 1
	}
}

// keepMostCommon locks the dice showing the most frequent face, higher face on ties.
func keepMostCommon(dice domain.DiceSet) uint8 {
	counts := make(map[int]int)
	for _, d := range dice {
		counts[d.Value]++
	}
	face := 0
	for f := 6; f >= 1; f-- {
		if counts[f] > counts[face] {
			face = f
		}
	}
	var mask uint8
	kept := 0
	for i, d := range dice {
		if d.Value == face && kept < domain.MaxLocked {
			mask |= 1 << i
			kept++
		}
	}
	return mask
}
