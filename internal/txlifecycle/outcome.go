package txlifecycle

import "time"

// Status is the lifecycle state of one transaction.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusFailed     Status = "failed"
	StatusTimeout    Status = "timeout"
)

// Terminal reports whether s only changes on Reset or a new Execute.
func (s Status) Terminal() bool {
	switch s {
	case StatusAccepted, StatusFailed, StatusTimeout:
		return true
	}
	return false
}

// Outcome is a snapshot of the coordinator's current transaction.
type Outcome struct {
	Generation  uint64    `json:"generation"`
	Status      Status    `json:"status"`
	Program     string    `json:"program,omitempty"`
	Function    string    `json:"function,omitempty"`
	LocalID     string    `json:"local_id,omitempty"`
	ConfirmedID string    `json:"confirmed_id,omitempty"`
	Error       string    `json:"error,omitempty"`
	Attempts    int       `json:"attempts"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`

	// Kind is the failure class (ErrSubmission, ErrSubmissionUnknown,
	// ErrStatusCheck, ErrRejected or ErrTimeout); nil unless Status is failed
	// or timeout.
	Kind error `json:"-"`
}

// Err returns nil unless the outcome is failed or timed out.
func (o Outcome) Err() error {
	if o.Kind == nil {
		return nil
	}
	return &OutcomeError{Kind: o.Kind, Message: o.Error, LocalID: o.LocalID}
}

// TransactionID is the confirmed id when known, else the local id.
func (o Outcome) TransactionID() string {
	if o.ConfirmedID != "" {
		return o.ConfirmedID
	}
	return o.LocalID
}

// Hook observes one transition. Hooks run in transition order on the
// goroutine that caused the transition and must not call Execute or Reset.
type Hook func(prev, next Outcome)
