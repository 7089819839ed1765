package transfer

import (
	"context"
	"fmt"
	"math/big"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/aviorian/monad-mindshare/internal/config"
	"github.com/aviorian/monad-mindshare/internal/domain"
)

// Chain is the wallet side of a batch transfer.
type Chain interface {
	Confirmer
	Connected() bool
	ChainID(ctx context.Context) (int64, error)
	SubmitBatchTransfer(ctx context.Context, req domain.TransferRequest) (string, error)
}

// RecipientSource lists the addresses the next transfer pays.
type RecipientSource interface {
	CustodyAddresses() []string
}

// Draft is the free-form amount being edited before submission.
type Draft struct {
	Open  bool   `json:"open"`
	Value string `json:"value"`
	Error string `json:"error,omitempty"`
}

// Builder validates and submits batch transfers to the selected recipients.
type Builder struct {
	recipients RecipientSource
	chain      Chain
	tracker    *Tracker
	chainID    int64
	presets    []string
	logger     *zap.Logger

	draftMu sync.Mutex
	draft   Draft
}

func NewBuilder(cfg config.Config, recipients RecipientSource, chain Chain, tracker *Tracker, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	chainID := cfg.ChainID
	if chainID == 0 {
		chainID = config.MonadTestnetChainID
	}
	return &Builder{
		recipients: recipients,
		chain:      chain,
		tracker:    tracker,
		chainID:    chainID,
		presets:    append([]string(nil), config.PresetAmounts...),
		logger:     logger.Named("builder"),
	}
}

func (b *Builder) Presets() []string {
	return append([]string(nil), b.presets...)
}

// Send pays amount MON to every selected custody address in one batch. On
// success the returned state awaits confirmation in the background.
func (b *Builder) Send(ctx context.Context, amount any) (State, error) {
	attemptID, err := b.tracker.begin()
	if err != nil {
		return b.tracker.State(), err
	}

	addresses, amountWei, err := b.validate(ctx, amount)
	if err != nil {
		b.tracker.fail(attemptID, StageValidation, err)
		return b.tracker.State(), err
	}

	req := BuildRequest(addresses, amountWei)
	b.tracker.submitting(attemptID, req, amountWei)

	txHash, err := b.chain.SubmitBatchTransfer(ctx, req)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSubmission, err)
		b.tracker.fail(attemptID, StageSubmission, err)
		return b.tracker.State(), err
	}

	b.tracker.awaiting(attemptID, txHash)
	if err := b.tracker.watch(attemptID, txHash); err != nil {
		err = fmt.Errorf("%w: %w", ErrConfirmation, err)
		b.tracker.fail(attemptID, StageConfirmation, err)
		return b.tracker.State(), err
	}
	return b.tracker.State(), nil
}

// SendPreset is Send restricted to the configured one-click amounts.
func (b *Builder) SendPreset(ctx context.Context, amount string) (State, error) {
	if !slices.Contains(b.presets, amount) {
		return b.tracker.State(), invalid(fmt.Errorf("%w: %s", ErrUnknownPreset, amount))
	}
	return b.Send(ctx, amount)
}

func (b *Builder) validate(ctx context.Context, amount any) ([]string, *big.Int, error) {
	addresses := b.recipients.CustodyAddresses()
	if len(addresses) == 0 {
		return nil, nil, invalid(ErrNoRecipients)
	}
	if b.chain == nil || !b.chain.Connected() {
		return nil, nil, invalid(ErrNotConnected)
	}
	active, err := b.chain.ChainID(ctx)
	if err != nil {
		b.logger.Warn("read active chain id", zap.Error(err))
		return nil, nil, invalid(ErrNotConnected)
	}
	if active != b.chainID {
		return nil, nil, invalid(fmt.Errorf("%w: active chain %d", ErrWrongNetwork, active))
	}
	amountWei, err := ParseAmount(amount)
	if err != nil {
		return nil, nil, invalid(err)
	}
	return addresses, amountWei, nil
}

func (b *Builder) Draft() Draft {
	b.draftMu.Lock()
	defer b.draftMu.Unlock()
	return b.draft
}

// OpenDraft shows the custom amount form and clears any transfer error.
func (b *Builder) OpenDraft() Draft {
	b.draftMu.Lock()
	b.draft.Open = true
	b.draft.Error = ""
	d := b.draft
	b.draftMu.Unlock()

	b.tracker.ClearError()
	return d
}

// SetDraft replaces the draft value. Editing clears both error messages.
func (b *Builder) SetDraft(value string) (Draft, error) {
	b.draftMu.Lock()
	if !b.draft.Open {
		d := b.draft
		b.draftMu.Unlock()
		return d, invalid(ErrDraftClosed)
	}
	b.draft.Value = value
	b.draft.Error = ""
	d := b.draft
	b.draftMu.Unlock()

	b.tracker.ClearError()
	return d, nil
}

// CancelDraft closes and clears the draft.
func (b *Builder) CancelDraft() {
	b.draftMu.Lock()
	b.draft = Draft{}
	b.draftMu.Unlock()

	b.tracker.ClearError()
}

// SubmitDraft sends the draft amount. The draft is cleared only once the
// transfer has been submitted.
func (b *Builder) SubmitDraft(ctx context.Context) (State, error) {
	b.draftMu.Lock()
	d := b.draft
	b.draftMu.Unlock()

	if !d.Open {
		return b.tracker.State(), invalid(ErrDraftClosed)
	}
	if strings.TrimSpace(d.Value) == "" {
		b.setDraftError(ErrEmptyDraft)
		return b.tracker.State(), invalid(ErrEmptyDraft)
	}

	state, err := b.Send(ctx, d.Value)
	if err != nil {
		b.setDraftError(err)
		return state, err
	}

	b.draftMu.Lock()
	b.draft = Draft{}
	b.draftMu.Unlock()
	return state, nil
}

func (b *Builder) setDraftError(err error) {
	b.draftMu.Lock()
	b.draft.Error = err.Error()
	b.draftMu.Unlock()
}
