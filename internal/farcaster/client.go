package farcaster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/aviorian/monad-mindshare/internal/domain"
)

var ErrInvalidResponse = errors.New("farcaster: invalid response")

// StatusError reports a non-2xx search response for one term.
type StatusError struct {
	Term   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request for term %q failed with status %d", e.Term, e.Status)
}

// Client searches casts on the public Farcaster client API.
type Client struct {
	endpoint string
	http     *http.Client
}

func defaultTransport() *http.Transport {
	return &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 64,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}
}

// NewClient builds a search client. A nil httpClient gets a pooled default.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Transport: defaultTransport()}
	}
	return &Client{endpoint: endpoint, http: httpClient}
}

type searchResponse struct {
	Result *struct {
		Casts []rawCast `json:"casts"`
	} `json:"result"`
}

type rawCount struct {
	Count int64 `json:"count"`
}

type rawCast struct {
	Hash   string `json:"hash"`
	Author *struct {
		FID            int64  `json:"fid"`
		DisplayName    string `json:"displayName"`
		Username       string `json:"username"`
		FollowerCount  int64  `json:"followerCount"`
		FollowingCount int64  `json:"followingCount"`
		Pfp            *struct {
			URL string `json:"url"`
		} `json:"pfp"`
	} `json:"author"`
	Text      string    `json:"text"`
	Timestamp int64     `json:"timestamp"`
	Replies   *rawCount `json:"replies"`
	Reactions *rawCount `json:"reactions"`
	Recasts   *rawCount `json:"recasts"`
	Watches   *rawCount `json:"watches"`
}

func count(c *rawCount) int64 {
	if c == nil || c.Count < 0 {
		return 0
	}
	return c.Count
}

func (r rawCast) toDomain() domain.Cast {
	c := domain.Cast{
		Hash:          r.Hash,
		Text:          r.Text,
		ReplyCount:    count(r.Replies),
		ReactionCount: count(r.Reactions),
		RecastCount:   count(r.Recasts),
		WatchCount:    count(r.Watches),
	}
	if r.Timestamp > 0 {
		c.Timestamp = time.UnixMilli(r.Timestamp).UTC()
	}
	if r.Author != nil {
		c.AuthorID = r.Author.FID
		c.AuthorUsername = r.Author.Username
		c.AuthorDisplayName = r.Author.DisplayName
		c.AuthorFollowers = r.Author.FollowerCount
		c.AuthorFollowing = r.Author.FollowingCount
		if r.Author.Pfp != nil {
			c.AuthorAvatarURL = r.Author.Pfp.URL
		}
	}
	return c
}

// Search returns the most recent casts matching term. Cancelling ctx aborts
// the request and surfaces ctx's error.
func (c *Client) Search(ctx context.Context, term string, limit int) ([]domain.Cast, error) {
	if term == "" {
		return nil, errors.New("search casts: term is required")
	}

	q := url.Values{}
	q.Set("q", term+" sort:recent")
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("search %q: %w", term, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Term: term, Status: resp.StatusCode, Body: string(body)}
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: decode %q: %v", ErrInvalidResponse, term, err)
	}
	if payload.Result == nil {
		return nil, nil
	}

	casts := make([]domain.Cast, 0, len(payload.Result.Casts))
	for _, raw := range payload.Result.Casts {
		casts = append(casts, raw.toDomain())
	}
	return casts, nil
}
