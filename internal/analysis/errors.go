package analysis

import (
	"errors"
	"fmt"

	"github.com/logsight/backend/internal/poller"
)

// ValidationError rejects a malformed request before any external call is
// made. It is surfaced to the caller verbatim and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Outcome categories surfaced to callers so they can decide between
// retrying, narrowing the time range, or fixing input.
const (
	OutcomeOK         = "ok"
	OutcomeEmpty      = "empty"
	OutcomeValidation = "validation"
	OutcomeTimeout    = "timeout"
	OutcomeFailed     = "failed"
	OutcomeInternal   = "internal"
)

// Categorize maps an analysis error to its outcome category.
func Categorize(err error) string {
	var validationErr *ValidationError
	var failedErr *poller.QueryFailedError

	switch {
	case err == nil:
		return OutcomeOK
	case errors.As(err, &validationErr):
		return OutcomeValidation
	case errors.Is(err, poller.ErrQueryTimeout):
		return OutcomeTimeout
	case errors.As(err, &failedErr):
		return OutcomeFailed
	default:
		return OutcomeInternal
	}
}
