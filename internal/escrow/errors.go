package escrow

import "errors"

// Registry errors
var (
	ErrInvalidSchedule = errors.New("project date must be in future")
	ErrInvalidGoal     = errors.New("goal amount must be greater than zero")
	ErrInvalidAccount  = errors.New("invalid account")
	ErrNotFound        = errors.New("project not found")
)

// Ledger errors
var (
	ErrWindowClosed     = errors.New("donation window closed")
	ErrWindowNotStarted = errors.New("donation window not started")
	ErrWindowOpen       = errors.New("donation window still open")
	ErrZeroAmount       = errors.New("amount must be greater than zero")
	ErrAmountOverflow   = errors.New("amount exceeds ledger limit")
	ErrNotOrganizer     = errors.New("caller is not the project organizer")
	ErrGoalNotReached   = errors.New("goal not reached")
	ErrGoalReached      = errors.New("goal reached")
	ErrAlreadySettled   = errors.New("project already settled")
	ErrNoContribution   = errors.New("no contribution to refund")
)

// ErrTransferFailed is returned when the custody collaborator rejects a
// pull or push. It wraps the custody error and is the only retryable failure.
var ErrTransferFailed = errors.New("transfer failed")

// ErrTransferPending is returned by custody when a transfer was broadcast but
// its outcome is not known yet. The ledger commits the operation and returns
// the committed event together with this error; it is never retryable.
var ErrTransferPending = errors.New("transfer pending confirmation")

// IsRetryable reports whether err came from the custody collaborator rather
// than from a rule check.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransferFailed)
}
