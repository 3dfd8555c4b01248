package ops

import "errors"

var (
	ErrInvalidRunDate  = errors.New("invalid run date (expected YYYY-MM-DD)")
	ErrMissingID       = errors.New("decision record id is required")
	ErrInvalidDecision = errors.New("decision must be one of Approved, Deferred, Rejected, NoChange")
	ErrRunNotFound     = errors.New("run not found")
	ErrItemNotFound    = errors.New("action item not found")
)

// ValidationError rejects a whole publish before any write happens.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}
