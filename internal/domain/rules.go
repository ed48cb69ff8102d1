package domain

import (
	"fmt"
	"sort"
)

const (
	threeOfKindBonus = 10
	fourOfKindBonus  = 20
	fullHouseScore   = 25 + 30
	smallStraight    = 30
	largeStraight    = 40
	yahtzeeBonus     = 50
)

var (
	smallStraights = [][]int{{1, 2, 3, 4}, {2, 3, 4, 5}, {3, 4, 5, 6}}
	largeStraights = [][]int{{1, 2, 3, 4, 5}, {2, 3, 4, 5, 6}}
)

// Score returns the points the locked dice are worth in category c.
// Only locked dice count; an empty set scores 0 everywhere.
// It panics on a category outside the 13 slots.
func Score(c Category, locked []int) int {
	if !c.Valid() {
		panic(fmt.Sprintf("domain: score for unknown category %d", int(c)))
	}
	if len(locked) == 0 {
		return 0
	}

	switch c {
	case Ones, Twos, Threes, Fours, Fives, Sixes:
		face := int(c-Ones) + 1
		return countFace(locked, face) * face
	case ThreeOfKind:
		if hasNOfAKind(locked, 3) {
			return sum(locked) + threeOfKindBonus
		}
	case FourOfKind:
		if hasNOfAKind(locked, 4) {
			return sum(locked) + fourOfKindBonus
		}
	case FullHouse:
		if isFullHouse(locked) {
			return fullHouseScore
		}
	case SmallStraight:
		if isSmallStraight(locked) {
			return smallStraight
		}
	case LargeStraight:
		if isLargeStraight(locked) {
			return largeStraight
		}
	case Yahtzee:
		if len(locked) >= 5 && len(faceCounts(locked)) == 1 {
			return sum(locked) + yahtzeeBonus
		}
	case Chance:
		return sum(locked)
	}
	return 0
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}

func countFace(values []int, face int) int {
	n := 0
	for _, v := range values {
		if v == face {
			n++
		}
	}
	return n
}

func faceCounts(values []int) map[int]int {
	counts := make(map[int]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	return counts
}

func hasNOfAKind(values []int, n int) bool {
	for _, count := range faceCounts(values) {
		if count >= n {
			return true
		}
	}
	return false
}

// isFullHouse requires exactly one pair and one triple and nothing else.
func isFullHouse(values []int) bool {
	counts := faceCounts(values)
	if len(counts) != 2 {
		return false
	}
	groups := make([]int, 0, 2)
	for _, c := range counts {
		groups = append(groups, c)
	}
	sort.Ints(groups)
	return groups[0] == 2 && groups[1] == 3
}

func distinctSorted(values []int) []int {
	counts := faceCounts(values)
	out := make([]int, 0, len(counts))
	for v := range counts {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

func containsAll(haystack []int, needles []int) bool {
	seen := make(map[int]bool, len(haystack))
	for _, v := range haystack {
		seen[v] = true
	}
	for _, n := range needles {
		if !seen[n] {
			return false
		}
	}
	return true
}

func isSmallStraight(values []int) bool {
	faces := distinctSorted(values)
	for _, run := range smallStraights {
		if containsAll(faces, run) {
			return true
		}
	}
	return false
}

func isLargeStraight(values []int) bool {
	faces := distinctSorted(values)
	for _, run := range largeStraights {
		if equalInts(faces, run) {
			return true
		}
	}
	return false
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
