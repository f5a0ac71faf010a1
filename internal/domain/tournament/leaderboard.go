package tournament

import "sort"

// Standing is one row of a leaderboard.
type Standing struct {
	Rank     int    `json:"rank"`
	PlayerID int64  `json:"playerId"`
	Name     string `json:"name"`
	TotalMl  int64  `json:"totalMl"`
}

// Rank orders players by total drunk, biggest first, ties by id, and numbers them from 1.
func Rank(players []Player) []Standing {
	sorted := make([]Player, len(players))
	copy(sorted, players)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TotalMl != sorted[j].TotalMl {
			return sorted[i].TotalMl > sorted[j].TotalMl
		}
		return sorted[i].ID < sorted[j].ID
	})

	out := make([]Standing, len(sorted))
	for i, p := range sorted {
		out[i] = Standing{Rank: i + 1, PlayerID: p.ID, Name: p.Name, TotalMl: p.TotalMl}
	}
	return out
}

// Totals are the admin figures across every player.
type Totals struct {
	Players int   `json:"players"`
	TotalMl int64 `json:"totalMl"`
}

// Litres is TotalMl in litres.
func (t Totals) Litres() float64 {
	return float64(t.TotalMl) / 1000
}
