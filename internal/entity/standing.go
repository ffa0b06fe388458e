package entity

import (
	"sort"
	"time"
)

// Standing is one leaderboard row.
type Standing struct {
	Player string `json:"player"`
	Wins   int    `json:"wins"`
}

// SortStandings orders by descending wins, then by name.
func SortStandings(standings []Standing) {
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Wins != standings[j].Wins {
			return standings[i].Wins > standings[j].Wins
		}
		return standings[i].Player < standings[j].Player
	})
}

// MatchResult records a finished game. Winner is empty for interrupted games.
type MatchResult struct {
	RoomID      string    `json:"room_id"`
	Players     []string  `json:"players"`
	Winner      string    `json:"winner,omitempty"`
	Interrupted bool      `json:"interrupted"`
	Moves       int       `json:"moves"`
	FinishedAt  time.Time `json:"finished_at"`
}
