package sentinel

import "errors"

// Sentinel errors for the ledger state machine. Services return these
// (optionally wrapped) and the transport layer translates them into HTTP
// responses exactly once.
//
// Every failure is detected before any state mutation begins, so a caller
// receiving one of these can assume the operation left no trace.
var (
	// ErrUnauthorized: caller lacks the required role, or is not the
	// recipient's registered payout address.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound: id outside the allocated range.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput: empty name or null payout address.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidAmount: non-positive donation amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInactive: operation targets a deactivated recipient.
	ErrInactive = errors.New("recipient inactive")

	// ErrAlreadyProcessed: proposal was already approved or rejected.
	ErrAlreadyProcessed = errors.New("proposal already processed")

	// ErrNothingToWithdraw: escrow balance is zero.
	ErrNothingToWithdraw = errors.New("nothing to withdraw")

	// ErrTransferFailed: the external payout was rejected; escrow has been
	// restored.
	ErrTransferFailed = errors.New("transfer failed")

	// ErrReentrantCall: the mutual-exclusion guard was tripped by a nested
	// donate/withdraw invocation.
	ErrReentrantCall = errors.New("reentrant call")

	// ErrAlreadyInitialized: genesis ran twice.
	ErrAlreadyInitialized = errors.New("already initialized")

	// ErrSchemaVersion: a snapshot carries a schema version this build does
	// not understand.
	ErrSchemaVersion = errors.New("unsupported schema version")
)
