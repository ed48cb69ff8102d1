package domain

// Scorecard holds one player's write-once category scores.
type Scorecard struct {
	PlayerID int
	scores   [numCategories]int
	set      [numCategories]bool
}

// NewScorecard returns a sheet with every category unscored.
func NewScorecard(playerID int) *Scorecard {
	return &Scorecard{PlayerID: playerID}
}

// Score returns the recorded value and whether the category has been scored.
func (s *Scorecard) Score(c Category) (int, bool) {
	if !c.Valid() {
		return 0, false
	}
	return s.scores[c], s.set[c]
}

// Set records a score. It returns false and leaves the sheet untouched when the
// category is already scored or invalid.
func (s *Scorecard) Set(c Category, value int) bool {
	if !c.Valid() || s.set[c] {
		return false
	}
	s.scores[c] = value
	s.set[c] = true
	return true
}

// Total sums every scored category.
func (s *Scorecard) Total() int {
	total := 0
	for i, ok := range s.set {
		if ok {
			total += s.scores[i]
		}
	}
	return total
}

// IsComplete reports whether all 13 categories hold a score.
func (s *Scorecard) IsComplete() bool {
	for _, ok := range s.set {
		if !ok {
			return false
		}
	}
	return true
}

// Open lists unscored categories in sheet order.
func (s *Scorecard) Open() []Category {
	var out []Category
	for i, ok := range s.set {
		if !ok {
			out = append(out, Category(i))
		}
	}
	return out
}

// Entries returns the scored categories keyed by wire name.
func (s *Scorecard) Entries() map[string]int {
	out := make(map[string]int, numCategories)
	for i, ok := range s.set {
		if ok {
			out[categoryKeys[i]] = s.scores[i]
		}
	}
	return out
}

// Clone returns an independent copy.
func (s *Scorecard) Clone() *Scorecard {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
