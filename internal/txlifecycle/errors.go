package txlifecycle

import (
	"errors"
	"fmt"
)

// Failure classes. Outcome.Err wraps exactly one of them.
var (
	ErrSubmission  = errors.New("submission failed")
	ErrStatusCheck = errors.New("status check failed")
	ErrRejected    = errors.New("transaction rejected")
	ErrTimeout     = errors.New("transaction timed out")

	// ErrSubmissionUnknown means the wallet did not answer in time. The
	// transaction may still be broadcast, so it must not be resubmitted blind.
	ErrSubmissionUnknown = errors.New("submission outcome unknown")
)

var (
	// ErrClosed is returned by Execute and Wait once the coordinator is torn down.
	ErrClosed = errors.New("coordinator closed")
	// ErrInvalidRequest is returned by Execute when the request names no
	// program or function.
	ErrInvalidRequest = errors.New("invalid transaction request")
)

// Messages carried in Outcome.Error.
const (
	msgNoTransactionID = "No transaction ID returned"
	msgTimedOut        = "Transaction timed out"
	msgStatusCheck     = "Status check failed"
	msgSubmitUnknown   = "Submission outcome unknown; check the wallet before retrying"
)

// OutcomeError is the error form of a failed or timed-out Outcome.
type OutcomeError struct {
	Kind    error
	Message string
	LocalID string
}

func (e *OutcomeError) Error() string {
	if e.LocalID != "" {
		return fmt.Sprintf("%v (tx %s): %s", e.Kind, e.LocalID, e.Message)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *OutcomeError) Unwrap() error { return e.Kind }

// Retryable reports whether resubmitting the same request could succeed.
// Rejections are final; transport failures and timeouts are not. A
// submission with an unknown outcome is never retryable.
func Retryable(err error) bool {
	if errors.Is(err, ErrSubmissionUnknown) {
		return false
	}
	return errors.Is(err, ErrSubmission) || errors.Is(err, ErrStatusCheck) || errors.Is(err, ErrTimeout)
}
