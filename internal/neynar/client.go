package neynar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aviorian/monad-mindshare/internal/domain"
)

// Client looks up Farcaster user profiles in bulk through Neynar.
type Client struct {
	endpoint     string
	apiKey       string
	experimental bool
	http         *http.Client
}

// NewClient builds a profile lookup client. A nil httpClient gets a 15s timeout default.
func NewClient(endpoint, apiKey string, experimental bool, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		endpoint:     endpoint,
		apiKey:       apiKey,
		experimental: experimental,
		http:         httpClient,
	}
}

type bulkUserResponse struct {
	Users []rawUser `json:"users"`
}

type rawUser struct {
	FID         int64  `json:"fid"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	PfpURL      string `json:"pfp_url"`
	Profile     *struct {
		Bio *struct {
			Text string `json:"text"`
		} `json:"bio"`
	} `json:"profile"`
	FollowerCount     int64    `json:"follower_count"`
	FollowingCount    int64    `json:"following_count"`
	PowerBadge        bool     `json:"power_badge"`
	CustodyAddress    string   `json:"custody_address"`
	Score             *float64 `json:"score"`
	VerifiedAddresses *struct {
		EthAddresses []string `json:"eth_addresses"`
	} `json:"verified_addresses"`
}

func (u rawUser) toDomain() domain.Profile {
	p := domain.Profile{
		AuthorID:       u.FID,
		Username:       u.Username,
		DisplayName:    u.DisplayName,
		AvatarURL:      u.PfpURL,
		CustodyAddress: u.CustodyAddress,
		FollowerCount:  u.FollowerCount,
		FollowingCount: u.FollowingCount,
		HasBadge:       u.PowerBadge,
		SpamScore:      u.Score,
	}
	if u.Profile != nil && u.Profile.Bio != nil {
		p.Bio = u.Profile.Bio.Text
	}
	if u.VerifiedAddresses != nil {
		p.VerifiedEthAddresses = u.VerifiedAddresses.EthAddresses
	}
	return p
}

// LookupProfiles fetches the profiles for ids. Duplicate ids are collapsed and
// an empty id set returns without a network call.
func (c *Client) LookupProfiles(ctx context.Context, ids []int64) ([]domain.Profile, error) {
	unique := uniqueIDs(ids)
	if len(unique) == 0 {
		return nil, nil
	}

	parts := make([]string, len(unique))
	for i, id := range unique {
		parts[i] = strconv.FormatInt(id, 10)
	}
	q := url.Values{}
	q.Set("fids", strings.Join(parts, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("x-neynar-experimental", strconv.FormatBool(c.experimental))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("neynar bulk users: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("neynar request failed with status %d", resp.StatusCode)
	}

	var payload bulkUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode neynar response: %w", err)
	}

	profiles := make([]domain.Profile, 0, len(payload.Users))
	for _, u := range payload.Users {
		profiles = append(profiles, u.toDomain())
	}
	return profiles, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
