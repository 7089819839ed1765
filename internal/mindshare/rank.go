package mindshare

import (
	"sort"

	"github.com/aviorian/monad-mindshare/internal/domain"
)

// Rank computes each author's mindshare and orders authors by TotalPoints
// descending, then TotalCasts descending. Remaining ties keep input order.
// It returns nil when no author has points.
func Rank(stats []domain.AuthorStats) []domain.RankedAuthor {
	var total float64
	for _, s := range stats {
		total += s.TotalPoints
	}
	if total <= 0 {
		return nil
	}

	ranked := make([]domain.RankedAuthor, 0, len(stats))
	for _, s := range stats {
		if s.TotalPoints <= 0 {
			continue
		}
		ranked = append(ranked, domain.RankedAuthor{
			AuthorStats: s,
			Mindshare:   s.TotalPoints / total,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		return a.TotalCasts > b.TotalCasts
	})
	return ranked
}

// TotalPoints sums TotalPoints over ranked authors.
func TotalPoints(ranked []domain.RankedAuthor) float64 {
	var total float64
	for _, r := range ranked {
		total += r.TotalPoints
	}
	return total
}

// Build runs the whole pipeline over the merged output of every search term.
func Build(casts []domain.Cast, blocked Blocklist) []domain.RankedAuthor {
	return Rank(Aggregate(Deduplicate(casts, blocked)))
}
