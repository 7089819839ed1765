package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/aviorian/monad-mindshare/internal/domain"
)

// LeaderboardCache keeps only the latest committed snapshot, with a TTL, so a
// restarted service has something to show before its first cycle commits.
type LeaderboardCache struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

func NewLeaderboardCache(client redis.Cmdable, key string, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{client: client, key: key, ttl: ttl}
}

func (c *LeaderboardCache) Save(ctx context.Context, snap domain.LeaderboardSnapshot) error {
	if c.key == "" {
		return fmt.Errorf("leaderboard cache key is not configured")
	}
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", c.key, err)
	}
	return nil
}

// Load returns the cached snapshot; false when nothing is cached.
func (c *LeaderboardCache) Load(ctx context.Context) (domain.LeaderboardSnapshot, bool, error) {
	if c.key == "" {
		return domain.LeaderboardSnapshot{}, false, fmt.Errorf("leaderboard cache key is not configured")
	}
	data, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.LeaderboardSnapshot{}, false, nil
	}
	if err != nil {
		return domain.LeaderboardSnapshot{}, false, fmt.Errorf("redis GET %s: %w", c.key, err)
	}
	snap, err := decodeSnapshot(data)
	if err != nil {
		return domain.LeaderboardSnapshot{}, false, err
	}
	return snap, true, nil
}

func encodeSnapshot(snap domain.LeaderboardSnapshot) ([]byte, error) {
	snap.Loading = false
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal leaderboard snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (domain.LeaderboardSnapshot, error) {
	var snap domain.LeaderboardSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.LeaderboardSnapshot{}, fmt.Errorf("unmarshal leaderboard snapshot: %w", err)
	}
	return snap, nil
}
