package navtypes

import "errors"

// Error kinds shared across the indexer, watchdog, and query planner.
var (
	ErrValidation    = errors.New("validation error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient store error")
	ErrNotify        = errors.New("notification error")
	ErrTimeout       = errors.New("timeout")
	ErrInternal      = errors.New("internal error")
)

// ValidationError wraps ErrValidation with a human-readable reason so
// callers can both errors.Is(err, ErrValidation) and read err.Error().
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func wrapValidation(reason string) error {
	return &ValidationError{Reason: reason}
}
