package repository

import (
	"context"
	"sync"

	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
)

type memMatch struct {
	mu       sync.Mutex
	results  []entity.MatchResult
	capacity int64
}

// NewMemoryMatchRepository keeps the newest capacity results in memory.
func NewMemoryMatchRepository(capacity int64) MatchRepository {
	return &memMatch{
		capacity: capacity,
	}
}

func (that *memMatch) Save(_ context.Context, result *entity.MatchResult) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.results = append([]entity.MatchResult{*result}, that.results...)
	if int64(len(that.results)) > that.capacity {
		that.results = that.results[:that.capacity]
	}

	return nil
}

func (that *memMatch) Recent(_ context.Context, limit int64) ([]entity.MatchResult, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if limit <= 0 || limit > int64(len(that.results)) {
		limit = int64(len(that.results))
	}

	out := make([]entity.MatchResult, limit)
	copy(out, that.results[:limit])

	return out, nil
}

func (that *memMatch) Reset(_ context.Context) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.results = nil

	return nil
}
