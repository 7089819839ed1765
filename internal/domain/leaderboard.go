package domain

import "time"

// LeaderboardSnapshot is what one aggregation cycle leaves behind for readers.
type LeaderboardSnapshot struct {
	Authors     []RankedAuthor `json:"authors"`
	TotalPoints float64        `json:"totalPoints"`
	FailedTerms []string       `json:"failedTerms,omitempty"`
	Warning     string         `json:"warning,omitempty"`
	Error       string         `json:"error,omitempty"`
	Loading     bool           `json:"loading"`
	UpdatedAt   time.Time      `json:"updatedAt,omitempty"`
	Generation  uint64         `json:"generation"`
}

// Clone returns a copy readers may keep without sharing slices.
func (s LeaderboardSnapshot) Clone() LeaderboardSnapshot {
	out := s
	out.Authors = append([]RankedAuthor(nil), s.Authors...)
	out.FailedTerms = append([]string(nil), s.FailedTerms...)
	return out
}
