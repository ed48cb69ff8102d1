package domain

import (
	"errors"
	"fmt"
)

// Category is one of the 13 scoring slots on a Jamb sheet.
type Category int

const (
	Ones Category = iota
	Twos
	Threes
	Fours
	Fives
	Sixes
	ThreeOfKind
	FourOfKind
	FullHouse
	SmallStraight
	LargeStraight
	Yahtzee
	Chance

	numCategories
)

// ErrUnknownCategory is returned when a category key is not one of the 13 slots.
var ErrUnknownCategory = errors.New("unknown category")

var categoryKeys = [numCategories]string{
	Ones:          "ones",
	Twos:          "twos",
	Threes:        "threes",
	Fours:         "fours",
	Fives:         "fives",
	Sixes:         "sixes",
	ThreeOfKind:   "three_of_kind",
	FourOfKind:    "four_of_kind",
	FullHouse:     "full_house",
	SmallStraight: "small_straight",
	LargeStraight: "large_straight",
	Yahtzee:       "yahtzee",
	Chance:        "chance",
}

// Categories returns every category in sheet order.
func Categories() []Category {
	out := make([]Category, numCategories)
	for i := range out {
		out[i] = Category(i)
	}
	return out
}

// ParseCategory resolves a wire key such as "full_house".
func ParseCategory(key string) (Category, error) {
	for i, k := range categoryKeys {
		if k == key {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, key)
}

// Valid reports whether c is one of the 13 categories.
func (c Category) Valid() bool {
	return c >= 0 && c < numCategories
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryKeys[c]
}

// MarshalText encodes the category as its wire key.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, int(c))
	}
	return []byte(categoryKeys[c]), nil
}

// UnmarshalText decodes a wire key.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
