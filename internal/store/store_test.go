package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aviorian/monad-mindshare/internal/domain"
)

func TestParseIDs(t *testing.T) {
	ids := parseIDs([]string{"1114650", "42", "nope", "-3", "0", "42", "7"})
	assert.Equal(t, []int64{7, 42, 1114650}, ids)
	assert.Empty(t, parseIDs(nil))
}

func TestSnapshotEncoding(t *testing.T) {
	snap := domain.LeaderboardSnapshot{
		Authors: []domain.RankedAuthor{{
			AuthorStats: domain.AuthorStats{AuthorID: 3, Username: "nad", TotalCasts: 2, TotalPoints: 4.4},
			Mindshare:   1,
		}},
		TotalPoints: 4.4,
		FailedTerms: []string{"monad tps"},
		Warning:     "some filters failed to load: monad tps",
		Loading:     true,
		UpdatedAt:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Generation:  9,
	}

	data, err := encodeSnapshot(snap)
	require.NoError(t, err)
	got, err := decodeSnapshot(data)
	require.NoError(t, err)

	assert.False(t, got.Loading, "cached snapshots are never loading")
	snap.Loading = false
	assert.Equal(t, snap, got)

	_, err = decodeSnapshot([]byte("{"))
	assert.Error(t, err)
}

func TestUnconfiguredKeys(t *testing.T) {
	ctx := context.Background()
	require.Error(t, NewBlocklistStore(nil, "").Add(ctx, 1))
	_, err := NewBlocklistStore(nil, "").List(ctx)
	require.Error(t, err)
	require.Error(t, NewBlocklistStore(nil, "k").Add(ctx, 0))

	_, _, err = NewLeaderboardCache(nil, "", time.Minute).Load(ctx)
	require.Error(t, err)
}
