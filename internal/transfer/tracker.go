package transfer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aviorian/monad-mindshare/internal/domain"
	"github.com/aviorian/monad-mindshare/internal/routine"
)

// Phase is the position of the current attempt in its lifecycle.
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseSubmitting           Phase = "submitting"
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation"
	PhaseConfirmed            Phase = "confirmed"
	PhaseFailed               Phase = "failed"
)

// Stages a failed attempt can stop at.
const (
	StageValidation   = "validation"
	StageSubmission   = "submission"
	StageConfirmation = "confirmation"
)

// State is the tracker's view of the latest attempt.
type State struct {
	Phase      Phase     `json:"phase"`
	AttemptID  string    `json:"attemptId,omitempty"`
	TxHash     string    `json:"txHash,omitempty"`
	Stage      string    `json:"stage,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Recipients int       `json:"recipients,omitempty"`
	Amount     string    `json:"amount,omitempty"`
	TotalValue string    `json:"totalValue,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// InFlight reports whether the attempt still awaits an outcome.
func (s State) InFlight() bool {
	return s.Phase == PhaseSubmitting || s.Phase == PhaseAwaitingConfirmation
}

// Confirmer waits for a submitted transaction to be included.
type Confirmer interface {
	AwaitConfirmation(ctx context.Context, txHash string) error
}

// Tracker owns the transfer state machine. At most one attempt is
// outstanding; a new attempt resets a terminal state to idle first.
type Tracker struct {
	confirmer Confirmer
	logger    *zap.Logger
	manager   *routine.Manager
	now       func() time.Time

	mu       sync.Mutex
	state    State
	reserved bool
	hooks    []func(State)
}

func NewTracker(confirmer Confirmer, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{
		confirmer: confirmer,
		logger:    logger.Named("transfer"),
		manager:   routine.NewManager(context.Background()),
		now:       time.Now,
	}
	t.state = State{Phase: PhaseIdle, UpdatedAt: t.now().UTC()}
	return t
}

// OnTransition registers fn to observe every state change, in order.
func (t *Tracker) OnTransition(fn func(State)) {
	if fn == nil {
		return
	}
	t.mu.Lock()
	t.hooks = append(t.hooks, fn)
	t.mu.Unlock()
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// ClearError returns a failed tracker to idle.
func (t *Tracker) ClearError() {
	t.mu.Lock()
	if t.state.Phase != PhaseFailed {
		t.mu.Unlock()
		return
	}
	p := t.setLocked(State{Phase: PhaseIdle})
	t.mu.Unlock()
	t.emit(p)
}

// Close abandons confirmation watches still running.
func (t *Tracker) Close() error {
	return t.manager.Close()
}

// begin reserves the tracker for a new attempt and returns its id.
func (t *Tracker) begin() (string, error) {
	t.mu.Lock()
	if t.reserved || t.state.InFlight() {
		t.mu.Unlock()
		return "", ErrTransferInFlight
	}
	t.reserved = true
	var p pending
	if t.state.Phase != PhaseIdle {
		p = t.setLocked(State{Phase: PhaseIdle})
	}
	t.mu.Unlock()
	t.emit(p)
	return uuid.NewString(), nil
}

func (t *Tracker) submitting(attemptID string, req domain.TransferRequest, amountWei *big.Int) {
	t.transition(attemptID, func(s *State) {
		s.Phase = PhaseSubmitting
		s.Recipients = len(req.Recipients)
		s.Amount = FormatAmount(amountWei)
		s.TotalValue = FormatAmount(req.TotalValueWei)
	})
}

func (t *Tracker) awaiting(attemptID, txHash string) {
	t.transition(attemptID, func(s *State) {
		s.Phase = PhaseAwaitingConfirmation
		s.TxHash = txHash
	})
}

func (t *Tracker) confirmed(attemptID string) {
	t.transition(attemptID, func(s *State) {
		s.Phase = PhaseConfirmed
	})
}

func (t *Tracker) fail(attemptID, stage string, err error) {
	t.transition(attemptID, func(s *State) {
		s.Phase = PhaseFailed
		s.Stage = stage
		s.Reason = err.Error()
	})
}

// watch awaits txHash in the background and settles the attempt.
func (t *Tracker) watch(attemptID, txHash string) error {
	return t.manager.Start(&routine.Task{
		ID: attemptID,
		Handler: func(ctx context.Context) error {
			if err := t.confirmer.AwaitConfirmation(ctx, txHash); err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				t.fail(attemptID, StageConfirmation, fmt.Errorf("%w: %w", ErrConfirmation, err))
				return err
			}
			t.confirmed(attemptID)
			return nil
		},
		OnError: func(id string, err error) {
			if errors.Is(err, context.Canceled) {
				t.logger.Info("confirmation watch abandoned", zap.String("attempt", id), zap.String("tx", txHash))
			}
		},
	})
}

// transition applies mutate to the attempt identified by attemptID. Terminal
// phases release the reservation.
func (t *Tracker) transition(attemptID string, mutate func(*State)) {
	t.mu.Lock()
	next := t.state
	if next.AttemptID != attemptID {
		next = State{AttemptID: attemptID}
	}
	mutate(&next)
	p := t.setLocked(next)
	if next.Phase == PhaseConfirmed || next.Phase == PhaseFailed {
		t.reserved = false
	}
	t.mu.Unlock()
	t.emit(p)
}

// pending is a transition whose hooks still have to run outside the lock.
type pending struct {
	state State
	hooks []func(State)
}

func (t *Tracker) setLocked(next State) pending {
	next.UpdatedAt = t.now().UTC()
	prev := t.state.Phase
	t.state = next

	fields := []zap.Field{
		zap.String("from", string(prev)),
		zap.String("to", string(next.Phase)),
		zap.String("attempt", next.AttemptID),
	}
	if next.TxHash != "" {
		fields = append(fields, zap.String("tx", next.TxHash))
	}
	if next.Phase == PhaseFailed {
		fields = append(fields, zap.String("stage", next.Stage), zap.String("reason", next.Reason))
		t.logger.Warn("transfer transition", fields...)
	} else {
		t.logger.Info("transfer transition", fields...)
	}

	return pending{state: next, hooks: append([]func(State){}, t.hooks...)}
}

func (t *Tracker) emit(p pending) {
	for _, fn := range p.hooks {
		fn(p.state)
	}
}
