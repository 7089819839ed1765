package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aviorian/monad-mindshare/internal/config"
	"github.com/aviorian/monad-mindshare/internal/domain"
	"github.com/aviorian/monad-mindshare/internal/selection"
	"github.com/aviorian/monad-mindshare/internal/services"
	"github.com/aviorian/monad-mindshare/internal/transfer"
)

type fakeLeaderboard struct {
	snap domain.LeaderboardSnapshot
	err  error
}

func (f *fakeLeaderboard) Snapshot() domain.LeaderboardSnapshot { return f.snap }

func (f *fakeLeaderboard) Refresh(context.Context) (domain.LeaderboardSnapshot, error) {
	return f.snap, f.err
}

type fakeBlocklist struct {
	mu  sync.Mutex
	ids []int64
}

func (f *fakeBlocklist) List(context.Context) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64{}, f.ids...), nil
}

func (f *fakeBlocklist) Add(_ context.Context, fid int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, fid)
	return nil
}

func (f *fakeBlocklist) Remove(_ context.Context, fid int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = slices.DeleteFunc(f.ids, func(id int64) bool { return id == fid })
	return nil
}

type lookupFunc func(ctx context.Context, ids []int64) ([]domain.Profile, error)

func (f lookupFunc) LookupProfiles(ctx context.Context, ids []int64) ([]domain.Profile, error) {
	return f(ctx, ids)
}

type stubChain struct {
	chainID int64
}

func (s stubChain) Connected() bool { return true }

func (s stubChain) ChainID(context.Context) (int64, error) { return s.chainID, nil }

func (s stubChain) SubmitBatchTransfer(context.Context, domain.TransferRequest) (string, error) {
	return "0xabc", nil
}

func (s stubChain) AwaitConfirmation(ctx context.Context, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

type harness struct {
	engine      *gin.Engine
	leaderboard *fakeLeaderboard
	blocklist   *fakeBlocklist
	set         *selection.Set
	tracker     *transfer.Tracker
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	profiles := map[int64]domain.Profile{
		42: {AuthorID: 42, Username: "nad", CustodyAddress: "0x1111111111111111111111111111111111111111"},
		43: {AuthorID: 43, Username: "gmonad", CustodyAddress: "0x2222222222222222222222222222222222222222"},
	}
	lookup := lookupFunc(func(_ context.Context, ids []int64) ([]domain.Profile, error) {
		if ids[0] == 500 {
			return nil, errors.New("neynar request failed with status 500")
		}
		p, ok := profiles[ids[0]]
		if !ok {
			return nil, nil
		}
		return []domain.Profile{p}, nil
	})

	h := &harness{
		leaderboard: &fakeLeaderboard{},
		blocklist:   &fakeBlocklist{},
		set:         selection.NewSet(lookup, nil),
	}
	chain := stubChain{chainID: config.MonadTestnetChainID}
	h.tracker = transfer.NewTracker(chain, nil)
	t.Cleanup(func() { _ = h.tracker.Close() })
	builder := transfer.NewBuilder(config.Config{}, h.set, chain, h.tracker, nil)
	h.set.OnEmpty(builder.CancelDraft)

	r, _ := NewServer(config.Config{HTTPAddr: ":0"}, nil)
	rg := r.Group("")
	NewLeaderboardController(h.leaderboard).RegisterLeaderboardRoutes(rg)
	NewSelectionController(h.set).RegisterSelectionRoutes(rg)
	NewTransferController(builder, h.tracker).RegisterTransferRoutes(rg)
	NewBlocklistController(h.blocklist, config.BlockedAuthorIDs).RegisterBlocklistRoutes(rg)
	h.engine = r
	return h
}

func (h *harness) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	code, body := h.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestLeaderboardRoutes(t *testing.T) {
	h := newHarness(t)
	h.leaderboard.snap = domain.LeaderboardSnapshot{
		Authors:     []domain.RankedAuthor{{AuthorStats: domain.AuthorStats{AuthorID: 1, TotalPoints: 2}, Mindshare: 1}},
		TotalPoints: 2,
		Generation:  4,
	}

	code, body := h.do(t, http.MethodGet, "/leaderboard", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2.0, body["totalPoints"])
	assert.Len(t, body["authors"], 1)

	code, _ = h.do(t, http.MethodPost, "/leaderboard/refresh", "")
	assert.Equal(t, http.StatusOK, code)

	h.leaderboard.err = fmt.Errorf("%w: all 2 search terms failed", services.ErrTotalFetchFailure)
	code, body = h.do(t, http.MethodPost, "/leaderboard/refresh", "")
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, true, body["retry"])

	h.leaderboard.err = services.ErrCycleCancelled
	code, _ = h.do(t, http.MethodPost, "/leaderboard/refresh", "")
	assert.Equal(t, http.StatusConflict, code)
}

func TestSelectionRoutes(t *testing.T) {
	h := newHarness(t)

	code, _ := h.do(t, http.MethodPost, "/selection/abc", "")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = h.do(t, http.MethodPost, "/selection/500", "")
	assert.Equal(t, http.StatusBadGateway, code)
	code, body := h.do(t, http.MethodPost, "/selection/7", "")
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Contains(t, body["error"], "no profile data returned")

	code, body = h.do(t, http.MethodPost, "/selection/42", "")
	require.Equal(t, http.StatusOK, code)
	sel := body["selection"].(map[string]any)
	assert.Equal(t, []any{"0x1111111111111111111111111111111111111111"}, sel["custodyAddresses"])

	code, _ = h.do(t, http.MethodDelete, "/selection/42", "")
	assert.Equal(t, http.StatusOK, code)
	code, _ = h.do(t, http.MethodDelete, "/selection/42", "")
	assert.Equal(t, http.StatusNotFound, code)

	h.do(t, http.MethodPost, "/selection/43", "")
	code, _ = h.do(t, http.MethodDelete, "/selection", "")
	assert.Equal(t, http.StatusNoContent, code)
	assert.Zero(t, h.set.Len())
}

func TestTransferRoutes(t *testing.T) {
	h := newHarness(t)

	code, _ := h.do(t, http.MethodPost, "/transfer", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := h.do(t, http.MethodPost, "/transfer", `{"amount":"0.1"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, transfer.ErrNoRecipients.Error(), body["error"])
	assert.Equal(t, "failed", body["state"].(map[string]any)["phase"])

	h.do(t, http.MethodPost, "/selection/42", "")
	h.do(t, http.MethodPost, "/selection/43", "")

	code, _ = h.do(t, http.MethodPost, "/transfer/preset/2", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = h.do(t, http.MethodPost, "/transfer", `{"amount":0.1}`)
	require.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "awaiting_confirmation", body["phase"])
	assert.Equal(t, "0.2", body["totalValue"])

	code, _ = h.do(t, http.MethodPost, "/transfer/preset/0.5", "")
	assert.Equal(t, http.StatusConflict, code)

	code, body = h.do(t, http.MethodGet, "/transfer", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{"0.1", "0.5"}, body["presets"])
}

func TestDraftRoutes(t *testing.T) {
	h := newHarness(t)
	h.do(t, http.MethodPost, "/selection/42", "")

	code, _ := h.do(t, http.MethodPut, "/transfer/draft", `{"amount":"1"}`)
	assert.Equal(t, http.StatusBadRequest, code, "draft must be opened first")

	code, body := h.do(t, http.MethodPost, "/transfer/draft/open", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["open"])

	code, _ = h.do(t, http.MethodPost, "/transfer/draft/submit", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = h.do(t, http.MethodPut, "/transfer/draft", `{"amount":"0.3"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "0.3", body["value"])

	code, body = h.do(t, http.MethodPost, "/transfer/draft/submit", "")
	require.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "0.3", body["amount"])

	code, _ = h.do(t, http.MethodDelete, "/transfer/draft", "")
	assert.Equal(t, http.StatusNoContent, code)
}

func TestEmptySelectionClearsDraft(t *testing.T) {
	h := newHarness(t)
	h.do(t, http.MethodPost, "/selection/42", "")
	h.do(t, http.MethodPost, "/transfer/draft/open", "")
	h.do(t, http.MethodPut, "/transfer/draft", `{"amount":"0.3"}`)

	h.do(t, http.MethodDelete, "/selection/42", "")
	_, body := h.do(t, http.MethodGet, "/transfer", "")
	draft := body["draft"].(map[string]any)
	assert.Equal(t, false, draft["open"])
	assert.Equal(t, "", draft["value"])
}

func TestBlocklistRoutes(t *testing.T) {
	h := newHarness(t)

	code, _ := h.do(t, http.MethodPost, "/blocklist", `{"fid":0}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = h.do(t, http.MethodPost, "/blocklist", `{"fid":99}`)
	assert.Equal(t, http.StatusNoContent, code)

	code, body := h.do(t, http.MethodGet, "/blocklist", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{99.0}, body["dynamic"])
	assert.Equal(t, []any{282172.0, 1114650.0}, body["static"])

	code, _ = h.do(t, http.MethodDelete, "/blocklist/282172", "")
	assert.Equal(t, http.StatusConflict, code)
	code, _ = h.do(t, http.MethodDelete, "/blocklist/99", "")
	assert.Equal(t, http.StatusNoContent, code)
}
