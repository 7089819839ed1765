package store

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	redis "github.com/redis/go-redis/v9"
)

// BlocklistStore keeps operator-blocked author ids in a Redis set. It adds to
// the static blocklist and never replaces it.
type BlocklistStore struct {
	client redis.Cmdable
	key    string
}

func NewBlocklistStore(client redis.Cmdable, key string) *BlocklistStore {
	return &BlocklistStore{client: client, key: key}
}

func (s *BlocklistStore) Add(ctx context.Context, fid int64) error {
	if s.key == "" {
		return fmt.Errorf("blocklist set key is not configured")
	}
	if fid <= 0 {
		return fmt.Errorf("invalid fid %d", fid)
	}
	if err := s.client.SAdd(ctx, s.key, strconv.FormatInt(fid, 10)).Err(); err != nil {
		return fmt.Errorf("redis SADD %s: %w", s.key, err)
	}
	return nil
}

func (s *BlocklistStore) Remove(ctx context.Context, fid int64) error {
	if s.key == "" {
		return fmt.Errorf("blocklist set key is not configured")
	}
	if err := s.client.SRem(ctx, s.key, strconv.FormatInt(fid, 10)).Err(); err != nil {
		return fmt.Errorf("redis SREM %s: %w", s.key, err)
	}
	return nil
}

// List loads all blocked ids, ascending.
func (s *BlocklistStore) List(ctx context.Context) ([]int64, error) {
	if s.key == "" {
		return nil, fmt.Errorf("blocklist set key is not configured")
	}
	members, err := s.client.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis SMEMBERS %s: %w", s.key, err)
	}
	return parseIDs(members), nil
}

func parseIDs(members []string) []int64 {
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil || id <= 0 {
			// Skip malformed entries but continue.
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}
