package domain

import (
	"math/big"
	"time"
)

// Cast is a single search hit with its engagement counters.
// AuthorID zero means the search API returned no author id.
type Cast struct {
	Hash     string `json:"hash"`
	AuthorID int64  `json:"authorId"`

	AuthorUsername    string `json:"authorUsername,omitempty"`
	AuthorDisplayName string `json:"authorDisplayName,omitempty"`
	AuthorAvatarURL   string `json:"authorAvatarUrl,omitempty"`
	AuthorFollowers   int64  `json:"authorFollowers,omitempty"`
	AuthorFollowing   int64  `json:"authorFollowing,omitempty"`

	Text      string    `json:"text,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`

	ReplyCount    int64 `json:"replyCount"`
	ReactionCount int64 `json:"reactionCount"`
	RecastCount   int64 `json:"recastCount"`
	WatchCount    int64 `json:"watchCount"`
}

// AuthorStats is the per-author fold of unique casts.
type AuthorStats struct {
	AuthorID       int64  `json:"authorId"`
	DisplayName    string `json:"displayName,omitempty"`
	Username       string `json:"username,omitempty"`
	AvatarURL      string `json:"avatarUrl,omitempty"`
	FollowerCount  int64  `json:"followerCount,omitempty"`
	FollowingCount int64  `json:"followingCount,omitempty"`

	TotalCasts      int64   `json:"totalCasts"`
	TotalReplies    int64   `json:"totalReplies"`
	TotalReactions  int64   `json:"totalReactions"`
	TotalRecasts    int64   `json:"totalRecasts"`
	TotalWatches    int64   `json:"totalWatches"`
	TotalEngagement int64   `json:"totalEngagement"`
	TotalPoints     float64 `json:"totalPoints"`
}

// RankedAuthor decorates AuthorStats with the author's share of all points.
type RankedAuthor struct {
	AuthorStats
	Mindshare float64 `json:"mindshare"`
}

// Profile is the profile lookup record for one author.
type Profile struct {
	AuthorID             int64    `json:"authorId"`
	Username             string   `json:"username"`
	DisplayName          string   `json:"displayName,omitempty"`
	AvatarURL            string   `json:"avatarUrl,omitempty"`
	Bio                  string   `json:"bio,omitempty"`
	CustodyAddress       string   `json:"custodyAddress,omitempty"`
	VerifiedEthAddresses []string `json:"verifiedEthAddresses,omitempty"`
	FollowerCount        int64    `json:"followerCount"`
	FollowingCount       int64    `json:"followingCount"`
	HasBadge             bool     `json:"hasBadge"`
	SpamScore            *float64 `json:"spamScore,omitempty"`
}

// SelectedProfile is an operator pick in the selection set.
type SelectedProfile struct {
	AuthorID       int64  `json:"authorId"`
	DisplayName    string `json:"displayName,omitempty"`
	Username       string `json:"username,omitempty"`
	CustodyAddress string `json:"custodyAddress,omitempty"`
}

// SelectedFromProfile keeps the fields the selection set cares about.
func SelectedFromProfile(p Profile) SelectedProfile {
	return SelectedProfile{
		AuthorID:       p.AuthorID,
		DisplayName:    p.DisplayName,
		Username:       p.Username,
		CustodyAddress: p.CustodyAddress,
	}
}

// Recipient is one leg of a batch transfer.
type Recipient struct {
	Address   string   `json:"address"`
	AmountWei *big.Int `json:"amountWei"`
}

// TransferRequest is built per submission attempt and never stored.
type TransferRequest struct {
	Recipients    []Recipient `json:"recipients"`
	TotalValueWei *big.Int    `json:"totalValueWei"`
}
