// Package mindshare turns raw search hits into the ranked author leaderboard.
//
// The pipeline is Deduplicate -> Aggregate -> Rank. Every stage is a pure
// function of its input set so the leaderboard does not depend on the order
// in which per-term searches complete.
package mindshare

import "github.com/aviorian/monad-mindshare/internal/domain"

// Blocklist is a set of author ids whose casts never count.
type Blocklist map[int64]struct{}

// NewBlocklist builds a set from any number of id lists.
func NewBlocklist(lists ...[]int64) Blocklist {
	b := Blocklist{}
	for _, ids := range lists {
		for _, id := range ids {
			b[id] = struct{}{}
		}
	}
	return b
}

// Contains reports whether id is blocked.
func (b Blocklist) Contains(id int64) bool {
	_, ok := b[id]
	return ok
}

// Deduplicate drops blocked and author-less casts, then collapses casts with
// the same hash. A repeated hash keeps the position of its first sighting
// and the payload of its last.
func Deduplicate(casts []domain.Cast, blocked Blocklist) []domain.Cast {
	index := make(map[string]int, len(casts))
	out := make([]domain.Cast, 0, len(casts))
	for _, c := range casts {
		if c.AuthorID == 0 || blocked.Contains(c.AuthorID) {
			continue
		}
		if i, ok := index[c.Hash]; ok {
			out[i] = c
			continue
		}
		index[c.Hash] = len(out)
		out = append(out, c)
	}
	return out
}
