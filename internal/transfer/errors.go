package transfer

import "errors"

// Validation reasons, checked in this order before any network call.
var (
	ErrNoRecipients  = errors.New("select at least one author with a custody address")
	ErrNotConnected  = errors.New("connect a wallet to send MON")
	ErrWrongNetwork  = errors.New("switch to Monad Testnet to send MON")
	ErrInvalidAmount = errors.New("amount must be greater than 0 MON")
)

var (
	ErrTransferInFlight = errors.New("transfer: an attempt is already in flight")
	ErrSubmission       = errors.New("transfer: submission failed")
	ErrConfirmation     = errors.New("transfer: confirmation failed")
	ErrUnknownPreset    = errors.New("transfer: unknown preset amount")
	ErrDraftClosed      = errors.New("transfer: custom amount draft is not open")
	ErrEmptyDraft       = errors.New("enter a MON amount")
)

// ValidationError rejects an attempt before anything is submitted.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(err error) error {
	return &ValidationError{Err: err}
}
