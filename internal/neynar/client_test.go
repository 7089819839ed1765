package neynar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupProfiles(t *testing.T) {
	t.Parallel()
	var gotFids, gotKey, gotExperimental string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFids = r.URL.Query().Get("fids")
		gotKey = r.Header.Get("x-api-key")
		gotExperimental = r.Header.Get("x-neynar-experimental")
		_, _ = w.Write([]byte(`{"users":[{
			"fid": 3,
			"username": "dwr",
			"display_name": "Dan",
			"pfp_url": "https://img/dwr.png",
			"profile": {"bio": {"text": "hi"}},
			"follower_count": 100,
			"following_count": 20,
			"power_badge": true,
			"custody_address": "0x6B0bDA3F2fFEd5efc83fa8c024acfF1dd45793f1",
			"score": 0.9,
			"verified_addresses": {"eth_addresses": ["0xaaa"]}
		}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-123", true, srv.Client())
	profiles, err := c.LookupProfiles(context.Background(), []int64{9, 3, 9})
	require.NoError(t, err)

	assert.Equal(t, "3,9", gotFids)
	assert.Equal(t, "key-123", gotKey)
	assert.Equal(t, "true", gotExperimental)

	require.Len(t, profiles, 1)
	p := profiles[0]
	assert.Equal(t, int64(3), p.AuthorID)
	assert.Equal(t, "Dan", p.DisplayName)
	assert.Equal(t, "hi", p.Bio)
	assert.True(t, p.HasBadge)
	assert.Equal(t, "0x6B0bDA3F2fFEd5efc83fa8c024acfF1dd45793f1", p.CustodyAddress)
	require.NotNil(t, p.SpamScore)
	assert.InDelta(t, 0.9, *p.SpamScore, 1e-12)
	assert.Equal(t, []string{"0xaaa"}, p.VerifiedEthAddresses)
}

func TestLookupProfilesEmptySkipsNetwork(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	profiles, err := NewClient(srv.URL, "k", false, srv.Client()).LookupProfiles(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, profiles)
	assert.Zero(t, calls.Load())
}

func TestLookupProfilesStatus(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", false, srv.Client()).LookupProfiles(context.Background(), []int64{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
