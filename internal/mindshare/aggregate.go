package mindshare

import (
	"sort"

	"github.com/aviorian/monad-mindshare/internal/config"
	"github.com/aviorian/monad-mindshare/internal/domain"
)

// PointsTenths is the weighted engagement of a cast in tenths of a point.
func PointsTenths(replies, reactions, recasts int64) int64 {
	return reactions*config.ReactionWeightTenths +
		replies*config.ReplyWeightTenths +
		recasts*config.RecastWeightTenths
}

// Points is the weighted engagement score: reactions*1.0 + replies*1.2 + recasts*1.6.
func Points(replies, reactions, recasts int64) float64 {
	return float64(PointsTenths(replies, reactions, recasts)) / 10
}

type accumulator struct {
	stats       domain.AuthorStats
	pointTenths int64
	// profileHash is the hash of the cast the display fields were taken from.
	profileHash string
}

func (a *accumulator) add(c domain.Cast) {
	replies, reactions, recasts, watches := nonNeg(c.ReplyCount), nonNeg(c.ReactionCount), nonNeg(c.RecastCount), nonNeg(c.WatchCount)

	a.stats.TotalCasts++
	a.stats.TotalReplies += replies
	a.stats.TotalReactions += reactions
	a.stats.TotalRecasts += recasts
	a.stats.TotalWatches += watches
	a.stats.TotalEngagement += replies + reactions + recasts
	a.pointTenths += PointsTenths(replies, reactions, recasts)

	if a.profileHash == "" || c.Hash < a.profileHash {
		a.profileHash = c.Hash
		a.stats.DisplayName = c.AuthorDisplayName
		a.stats.Username = c.AuthorUsername
		a.stats.AvatarURL = c.AuthorAvatarURL
		a.stats.FollowerCount = c.AuthorFollowers
		a.stats.FollowingCount = c.AuthorFollowing
	}
}

// Aggregate folds unique casts into one stats record per author. Counters are
// summed as integers, so the result is independent of cast order. Authors
// without points are dropped; the rest are returned by ascending author id.
func Aggregate(casts []domain.Cast) []domain.AuthorStats {
	byAuthor := make(map[int64]*accumulator)
	for _, c := range casts {
		if c.AuthorID == 0 {
			continue
		}
		acc, ok := byAuthor[c.AuthorID]
		if !ok {
			acc = &accumulator{stats: domain.AuthorStats{AuthorID: c.AuthorID}}
			byAuthor[c.AuthorID] = acc
		}
		acc.add(c)
	}

	out := make([]domain.AuthorStats, 0, len(byAuthor))
	for _, acc := range byAuthor {
		if acc.pointTenths <= 0 {
			continue
		}
		acc.stats.TotalPoints = float64(acc.pointTenths) / 10
		out = append(out, acc.stats)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AuthorID < out[j].AuthorID })
	return out
}

func nonNeg(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
