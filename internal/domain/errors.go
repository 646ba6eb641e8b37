package domain

import "errors"

// Domain errors
var (
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrCancelled         = errors.New("cancelled by user")
	ErrInvalidCode       = errors.New("invalid magic pass code")
	ErrAlreadyActive     = errors.New("magic pass already active")
	ErrAlreadyLocked     = errors.New("team already chosen")
	ErrLimitReached      = errors.New("daily limit reached")
	ErrNoTeam            = errors.New("no team chosen")
	ErrInvalidSide       = errors.New("invalid team side")
	ErrUnknownItem       = errors.New("unknown catalog item")
	ErrTeamOffline       = errors.New("not every teammate is online")
	ErrCooldown          = errors.New("bonus is cooling down")
	ErrUndoExpired       = errors.New("undo window has passed")
	ErrAlreadyReviewed   = errors.New("submission already reviewed")
	ErrAlreadyUndone     = errors.New("award already undone")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthenticated   = errors.New("missing identity")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrInternalError     = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRefusal reports whether err is a precondition refusal rather than a failure.
func IsRefusal(err error) bool {
	return errors.Is(err, ErrAlreadyActive) ||
		errors.Is(err, ErrAlreadyLocked) ||
		errors.Is(err, ErrLimitReached) ||
		errors.Is(err, ErrCooldown) ||
		errors.Is(err, ErrTeamOffline) ||
		errors.Is(err, ErrAlreadyReviewed) ||
		errors.Is(err, ErrAlreadyUndone)
}
