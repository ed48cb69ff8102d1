package domain

import "sort"

// PlayerResult is one line of the final standings.
type PlayerResult struct {
	PlayerID   int
	PlayerName string
	TotalScore int
}

// RankResults returns every player's total ordered by descending score.
// Ties keep join order.
func RankResults(s *GameState) []PlayerResult {
	results := make([]PlayerResult, 0, len(s.Players))
	for _, p := range s.Players {
		total := 0
		if sheet, ok := s.Sheets[p.ID]; ok {
			total = sheet.Total()
		}
		results = append(results, PlayerResult{
			PlayerID:   p.ID,
			PlayerName: p.Name,
			TotalScore: total,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalScore > results[j].TotalScore
	})
	return results
}

// LowestAvailableSeat returns the first free seat index, or -1 when all are taken.
func LowestAvailableSeat(seats []string) int {
	for i, userID := range seats {
		if userID == "" {
			return i
		}
	}
	return -1
}
