package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
)

const leaderboardKey = "leaderboard:wins"

type LeaderboardRepository interface {
	RecordWin(ctx context.Context, player string) error
	Snapshot(ctx context.Context) ([]entity.Standing, error)
	Reset(ctx context.Context) error
}

type dbLeaderboard struct {
	client *redis.Client
}

// NewLeaderboardRepository keeps standings in a Redis sorted set.
func NewLeaderboardRepository(client *redis.Client) LeaderboardRepository {
	return &dbLeaderboard{
		client: client,
	}
}

func (that *dbLeaderboard) RecordWin(ctx context.Context, player string) error {
	if err := that.client.ZIncrBy(ctx, leaderboardKey, 1, player).Err(); err != nil {
		return fmt.Errorf("failed to record win: %w", err)
	}

	return nil
}

func (that *dbLeaderboard) Snapshot(ctx context.Context) ([]entity.Standing, error) {
	members, err := that.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	standings := make([]entity.Standing, 0, len(members))
	for _, member := range members {
		name, ok := member.Member.(string)
		if !ok {
			continue
		}

		standings = append(standings, entity.Standing{Player: name, Wins: int(member.Score)})
	}

	entity.SortStandings(standings)

	return standings, nil
}

func (that *dbLeaderboard) Reset(ctx context.Context) error {
	if err := that.client.Del(ctx, leaderboardKey).Err(); err != nil {
		return fmt.Errorf("failed to reset leaderboard: %w", err)
	}

	return nil
}
