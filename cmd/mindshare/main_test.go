package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aviorian/monad-mindshare/internal/domain"
	"github.com/aviorian/monad-mindshare/internal/kafka"
	"github.com/aviorian/monad-mindshare/internal/transfer"
)

func TestPrintLeaderboard(t *testing.T) {
	snap := domain.LeaderboardSnapshot{
		Authors: []domain.RankedAuthor{
			{AuthorStats: domain.AuthorStats{AuthorID: 1, Username: "nad", TotalCasts: 3, TotalReactions: 6, TotalPoints: 6}, Mindshare: 0.75},
			{AuthorStats: domain.AuthorStats{AuthorID: 2, DisplayName: "Gm", TotalCasts: 1, TotalReplies: 1, TotalPoints: 1.2}, Mindshare: 0.15},
			{AuthorStats: domain.AuthorStats{AuthorID: 3, TotalCasts: 1, TotalPoints: 0.8}, Mindshare: 0.1},
		},
		TotalPoints: 8,
		Warning:     "some filters failed to load: monad tps",
	}

	var buf bytes.Buffer
	require.NoError(t, printLeaderboard(&buf, snap, 2))
	out := buf.String()

	assert.Contains(t, out, "warning: some filters failed to load: monad tps")
	assert.Contains(t, out, "@nad")
	assert.Contains(t, out, "75.0%")
	assert.Contains(t, out, "Gm")
	assert.NotContains(t, out, "fid:3")
	assert.Contains(t, out, "1.2")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Equal(t, "8", strings.TrimSpace(lines[len(lines)-1]))
}

func TestPrintLeaderboardEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printLeaderboard(&buf, domain.LeaderboardSnapshot{}, 10))
	assert.Equal(t, "no authors with engagement\n", buf.String())
}

func TestPrintEvent(t *testing.T) {
	event, err := kafka.TransferEvent(transfer.State{
		Phase:     transfer.PhaseConfirmed,
		AttemptID: "a-1",
		TxHash:    "0xabc",
		UpdatedAt: time.Date(2025, 3, 1, 9, 15, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printEvent(&buf)(context.Background(), event))
	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "09:15:00 "), line)
	assert.Contains(t, line, `"phase":`)
	assert.Contains(t, line, "confirmed")
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["leaderboard"])
	assert.True(t, names["events"])
	assert.NotNil(t, leaderboardCmd.Flags().Lookup("limit"))
}
