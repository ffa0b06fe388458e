package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
)

const matchesKey = "matches:recent"

type MatchRepository interface {
	Save(ctx context.Context, result *entity.MatchResult) error
	Recent(ctx context.Context, limit int64) ([]entity.MatchResult, error)
	Reset(ctx context.Context) error
}

type dbMatch struct {
	client   *redis.Client
	capacity int64
}

// NewMatchRepository keeps the newest capacity results in a Redis list.
func NewMatchRepository(client *redis.Client, capacity int64) MatchRepository {
	return &dbMatch{
		client:   client,
		capacity: capacity,
	}
}

func (that *dbMatch) Save(ctx context.Context, result *entity.MatchResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("could not marshal match: %w", err)
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, matchesKey, resultJSON)
		pipe.LTrim(ctx, matchesKey, 0, that.capacity-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save match: %w", err)
	}

	return nil
}

func (that *dbMatch) Recent(ctx context.Context, limit int64) ([]entity.MatchResult, error) {
	if limit <= 0 || limit > that.capacity {
		limit = that.capacity
	}

	rows, err := that.client.LRange(ctx, matchesKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read matches: %w", err)
	}

	results := make([]entity.MatchResult, 0, len(rows))
	for _, row := range rows {
		var result entity.MatchResult
		if err = json.Unmarshal([]byte(row), &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal match: %w", err)
		}
		results = append(results, result)
	}

	return results, nil
}

func (that *dbMatch) Reset(ctx context.Context) error {
	if err := that.client.Del(ctx, matchesKey).Err(); err != nil {
		return fmt.Errorf("failed to reset matches: %w", err)
	}

	return nil
}
