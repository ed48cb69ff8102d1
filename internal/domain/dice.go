package domain

const (
	// NumDice is the number of dice in play.
	NumDice = 6
	// MaxLocked caps how many dice can be held at once; one die always rolls.
	MaxLocked = 5
	// MaxRolls is the number of rolls a player gets per turn.
	MaxRolls = 3
)

// Die is a single six-sided die.
type Die struct {
	Value  int  // 1..6
	Locked bool // held across rolls, and the only dice that score
}

// DiceSet is the full set of dice on the table.
type DiceSet [NumDice]Die

// NewDiceSet returns unlocked dice showing placeholder faces 1..6.
func NewDiceSet() DiceSet {
	var d DiceSet
	for i := range d {
		d[i] = Die{Value: i + 1}
	}
	return d
}

// LockedCount returns how many dice are held.
func (d DiceSet) LockedCount() int {
	n := 0
	for _, die := range d {
		if die.Locked {
			n++
		}
	}
	return n
}

// LockedValues returns the faces of the held dice in index order.
func (d DiceSet) LockedValues() []int {
	out := make([]int, 0, NumDice)
	for _, die := range d {
		if die.Locked {
			out = append(out, die.Value)
		}
	}
	return out
}

// Values returns every face in index order.
func (d DiceSet) Values() []int {
	out := make([]int, NumDice)
	for i, die := range d {
		out[i] = die.Value
	}
	return out
}
