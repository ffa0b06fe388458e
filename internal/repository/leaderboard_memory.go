package repository

import (
	"context"
	"sync"

	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
)

type memLeaderboard struct {
	mu   sync.Mutex
	wins map[string]int
}

// NewMemoryLeaderboard keeps standings in process memory.
func NewMemoryLeaderboard() LeaderboardRepository {
	return &memLeaderboard{
		wins: make(map[string]int),
	}
}

func (that *memLeaderboard) RecordWin(_ context.Context, player string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.wins[player]++

	return nil
}

func (that *memLeaderboard) Snapshot(_ context.Context) ([]entity.Standing, error) {
	that.mu.Lock()
	standings := make([]entity.Standing, 0, len(that.wins))
	for player, wins := range that.wins {
		standings = append(standings, entity.Standing{Player: player, Wins: wins})
	}
	that.mu.Unlock()

	entity.SortStandings(standings)

	return standings, nil
}

func (that *memLeaderboard) Reset(_ context.Context) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.wins = make(map[string]int)

	return nil
}
