package transfer

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/aviorian/monad-mindshare/internal/config"
	"github.com/aviorian/monad-mindshare/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeChain struct {
	connected bool
	chainID   int64
	chainErr  error
	submitErr error
	txHash    string
	confirm   chan error

	mu      sync.Mutex
	submits []domain.TransferRequest
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		connected: true,
		chainID:   config.MonadTestnetChainID,
		txHash:    "0xfeed",
		confirm:   make(chan error, 1),
	}
}

func (f *fakeChain) Connected() bool { return f.connected }

func (f *fakeChain) ChainID(context.Context) (int64, error) { return f.chainID, f.chainErr }

func (f *fakeChain) SubmitBatchTransfer(_ context.Context, req domain.TransferRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, req)
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.txHash, nil
}

func (f *fakeChain) AwaitConfirmation(ctx context.Context, _ string) error {
	select {
	case err := <-f.confirm:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeChain) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submits)
}

type staticRecipients []string

func (s staticRecipients) CustodyAddresses() []string { return s }

type recorder struct {
	mu     sync.Mutex
	phases []Phase
}

func (r *recorder) record(s State) {
	r.mu.Lock()
	r.phases = append(r.phases, s.Phase)
	r.mu.Unlock()
}

func (r *recorder) seen() []Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Phase(nil), r.phases...)
}

func newBuilder(t *testing.T, recipients RecipientSource, chain *fakeChain) (*Builder, *Tracker, *recorder) {
	t.Helper()
	tracker := NewTracker(chain, nil)
	t.Cleanup(func() { _ = tracker.Close() })
	rec := &recorder{}
	tracker.OnTransition(rec.record)
	return NewBuilder(config.Config{ChainID: config.MonadTestnetChainID}, recipients, chain, tracker, nil), tracker, rec
}

func TestParseAmount(t *testing.T) {
	wei, err := ParseAmount("0.1")
	require.NoError(t, err)
	assert.Equal(t, "100000000000000000", wei.String())

	wei, err = ParseAmount(0.5)
	require.NoError(t, err)
	assert.Equal(t, "500000000000000000", wei.String())
	assert.Equal(t, "0.5", FormatAmount(wei))

	// 1e59 MON is 1e77 wei, just under the uint256 limit of ~1.16e77.
	wei, err = ParseAmount("1" + strings.Repeat("0", 59))
	require.NoError(t, err)
	assert.LessOrEqual(t, wei.BitLen(), 256)

	bad := []any{
		"0", "-1", "", "abc", "0.0000000000000000001", nil,
		"1e-1",
		"1e30000000",
		"2" + strings.Repeat("0", 59),
	}
	for _, in := range bad {
		_, err := ParseAmount(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, "%v", in)
	}
}

func TestBuildRequest(t *testing.T) {
	amount, err := ParseAmount("0.1")
	require.NoError(t, err)

	req := BuildRequest([]string{"0xa", "0xb", "0xc"}, amount)
	require.Len(t, req.Recipients, 3)
	for _, r := range req.Recipients {
		assert.Equal(t, 0, r.AmountWei.Cmp(amount))
	}
	assert.Equal(t, "300000000000000000", req.TotalValueWei.String())

	req.Recipients[0].AmountWei.SetInt64(1)
	assert.Equal(t, "100000000000000000", amount.String())

	empty := BuildRequest(nil, amount)
	assert.Equal(t, 0, empty.TotalValueWei.Cmp(big.NewInt(0)))
}

func TestSendValidationOrder(t *testing.T) {
	cases := []struct {
		name       string
		recipients staticRecipients
		setup      func(*fakeChain)
		amount     string
		want       error
	}{
		{"no recipients wins", nil, func(c *fakeChain) { c.connected = false; c.chainID = 1 }, "0", ErrNoRecipients},
		{"not connected", staticRecipients{"0xa"}, func(c *fakeChain) { c.connected = false; c.chainID = 1 }, "0", ErrNotConnected},
		{"chain id unreadable", staticRecipients{"0xa"}, func(c *fakeChain) { c.chainErr = errors.New("dial") }, "0.1", ErrNotConnected},
		{"wrong network", staticRecipients{"0xa"}, func(c *fakeChain) { c.chainID = 1 }, "0", ErrWrongNetwork},
		{"zero amount", staticRecipients{"0xa"}, func(*fakeChain) {}, "0", ErrInvalidAmount},
		{"negative amount", staticRecipients{"0xa"}, func(*fakeChain) {}, "-1", ErrInvalidAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chain := newFakeChain()
			tc.setup(chain)
			b, tracker, _ := newBuilder(t, tc.recipients, chain)

			state, err := b.Send(context.Background(), tc.amount)
			require.ErrorIs(t, err, tc.want)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)

			assert.Equal(t, PhaseFailed, state.Phase)
			assert.Equal(t, StageValidation, state.Stage)
			assert.Equal(t, 0, chain.submitCount())
			assert.Equal(t, PhaseFailed, tracker.State().Phase)
		})
	}
}

func TestSendConfirmed(t *testing.T) {
	chain := newFakeChain()
	b, tracker, rec := newBuilder(t, staticRecipients{"0xa", "0xb"}, chain)

	state, err := b.Send(context.Background(), "0.5")
	require.NoError(t, err)
	assert.Equal(t, PhaseAwaitingConfirmation, state.Phase)
	assert.Equal(t, "0xfeed", state.TxHash)
	assert.Equal(t, 2, state.Recipients)
	assert.Equal(t, "0.5", state.Amount)
	assert.Equal(t, "1", state.TotalValue)
	require.Equal(t, 1, chain.submitCount())
	assert.Equal(t, "1000000000000000000", chain.submits[0].TotalValueWei.String())

	_, err = b.Send(context.Background(), "0.1")
	require.ErrorIs(t, err, ErrTransferInFlight)
	assert.Equal(t, 1, chain.submitCount())

	chain.confirm <- nil
	require.Eventually(t, func() bool { return len(rec.seen()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []Phase{PhaseSubmitting, PhaseAwaitingConfirmation, PhaseConfirmed}, rec.seen())
	assert.Equal(t, PhaseConfirmed, tracker.State().Phase)
	assert.Equal(t, state.AttemptID, tracker.State().AttemptID)
}

func TestSendSubmissionFailure(t *testing.T) {
	chain := newFakeChain()
	chain.submitErr = errors.New("user rejected")
	b, _, _ := newBuilder(t, staticRecipients{"0xa"}, chain)

	state, err := b.Send(context.Background(), "0.1")
	require.ErrorIs(t, err, ErrSubmission)
	assert.Equal(t, PhaseFailed, state.Phase)
	assert.Equal(t, StageSubmission, state.Stage)
	assert.Contains(t, state.Reason, "user rejected")
}

func TestConfirmationFailureThenRetryResetsToIdle(t *testing.T) {
	chain := newFakeChain()
	b, tracker, rec := newBuilder(t, staticRecipients{"0xa"}, chain)

	_, err := b.Send(context.Background(), "0.1")
	require.NoError(t, err)
	chain.confirm <- errors.New("transaction reverted")
	require.Eventually(t, func() bool { return len(rec.seen()) == 3 }, time.Second, 5*time.Millisecond)

	failed := tracker.State()
	assert.Equal(t, StageConfirmation, failed.Stage)
	assert.Contains(t, failed.Reason, "reverted")

	_, err = b.Send(context.Background(), "0.1")
	require.NoError(t, err)
	assert.Equal(t, []Phase{
		PhaseSubmitting, PhaseAwaitingConfirmation, PhaseFailed,
		PhaseIdle, PhaseSubmitting, PhaseAwaitingConfirmation,
	}, rec.seen())
	assert.Equal(t, 2, chain.submitCount())
}

func TestSendPreset(t *testing.T) {
	chain := newFakeChain()
	b, _, _ := newBuilder(t, staticRecipients{"0xa"}, chain)
	assert.Equal(t, []string{"0.1", "0.5"}, b.Presets())

	_, err := b.SendPreset(context.Background(), "1")
	require.ErrorIs(t, err, ErrUnknownPreset)
	assert.Equal(t, 0, chain.submitCount())

	state, err := b.SendPreset(context.Background(), "0.1")
	require.NoError(t, err)
	assert.Equal(t, PhaseAwaitingConfirmation, state.Phase)
}

func TestDraftLifecycle(t *testing.T) {
	chain := newFakeChain()
	b, tracker, _ := newBuilder(t, staticRecipients{"0xa"}, chain)

	_, err := b.SubmitDraft(context.Background())
	require.ErrorIs(t, err, ErrDraftClosed)
	_, err = b.SetDraft("1")
	require.ErrorIs(t, err, ErrDraftClosed)

	assert.True(t, b.OpenDraft().Open)
	_, err = b.SubmitDraft(context.Background())
	require.ErrorIs(t, err, ErrEmptyDraft)
	assert.Equal(t, ErrEmptyDraft.Error(), b.Draft().Error)
	assert.Equal(t, PhaseIdle, tracker.State().Phase, "empty draft never reaches the tracker")

	d, err := b.SetDraft("-2")
	require.NoError(t, err)
	assert.Empty(t, d.Error)
	_, err = b.SubmitDraft(context.Background())
	require.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, "-2", b.Draft().Value)
	assert.Equal(t, PhaseFailed, tracker.State().Phase)

	_, err = b.SetDraft("0.25")
	require.NoError(t, err)
	assert.Equal(t, PhaseIdle, tracker.State().Phase, "editing clears the transfer error")

	state, err := b.SubmitDraft(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.25", state.Amount)
	assert.Equal(t, Draft{}, b.Draft())
}

func TestCancelDraftClearsError(t *testing.T) {
	chain := newFakeChain()
	b, tracker, _ := newBuilder(t, staticRecipients{}, chain)

	b.OpenDraft()
	_, err := b.SetDraft("0.1")
	require.NoError(t, err)
	_, err = b.SubmitDraft(context.Background())
	require.ErrorIs(t, err, ErrNoRecipients)
	require.Equal(t, PhaseFailed, tracker.State().Phase)

	b.CancelDraft()
	assert.Equal(t, Draft{}, b.Draft())
	assert.Equal(t, PhaseIdle, tracker.State().Phase)
}

func TestClearErrorIgnoresNonFailedStates(t *testing.T) {
	chain := newFakeChain()
	b, tracker, _ := newBuilder(t, staticRecipients{"0xa"}, chain)

	_, err := b.Send(context.Background(), "0.1")
	require.NoError(t, err)
	tracker.ClearError()
	assert.Equal(t, PhaseAwaitingConfirmation, tracker.State().Phase)
}
