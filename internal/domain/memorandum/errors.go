package memorandum

import (
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/validator"
)

// Error kinds. Every error returned by the store, the service and the flows
// matches exactly one of these with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrPolicyViolation = errors.New("policy violation")
	ErrValidation      = validator.ErrValidation
	ErrTransient       = errors.New("transient failure")
)

var (
	ErrMemorandumNotFound = fmt.Errorf("%w: memorandum not found", ErrNotFound)

	ErrForbidden         = fmt.Errorf("%w: insufficient permissions", ErrUnauthorized)
	ErrNotOwner          = fmt.Errorf("%w: memorandum belongs to another employee", ErrUnauthorized)
	ErrReviewerRequired  = fmt.Errorf("%w: reviewer role required", ErrUnauthorized)
	ErrMissingCompanyID  = fmt.Errorf("%w: company id missing from token", ErrUnauthorized)
	ErrMissingEmployeeID = fmt.Errorf("%w: employee id missing from token", ErrUnauthorized)

	ErrDeadlinePassed     = fmt.Errorf("%w: subsanation deadline has passed", ErrPolicyViolation)
	ErrAlreadyJustified   = fmt.Errorf("%w: justification already submitted", ErrPolicyViolation)
	ErrNotPending         = fmt.Errorf("%w: memorandum is not pending", ErrPolicyViolation)
	ErrNotReviewable      = fmt.Errorf("%w: memorandum is not awaiting review", ErrPolicyViolation)
	ErrTerminalState      = fmt.Errorf("%w: memorandum is in a terminal state", ErrPolicyViolation)
	ErrInvalidTransition  = fmt.Errorf("%w: transition not allowed", ErrPolicyViolation)
	ErrSubmissionInFlight = fmt.Errorf("%w: a submission for this memorandum is already in progress", ErrPolicyViolation)
	ErrNoActiveSelection  = fmt.Errorf("%w: no memorandum selected", ErrPolicyViolation)
	ErrDuplicateAnomaly   = fmt.Errorf("%w: a memorandum already exists for this attendance anomaly", ErrPolicyViolation)

	ErrDateRangeRequired = fmt.Errorf("%w: select a date range first", ErrValidation)
)

// Kind returns the taxonomy sentinel err belongs to, or nil when it is none
// of them.
func Kind(err error) error {
	for _, k := range []error{ErrNotFound, ErrUnauthorized, ErrPolicyViolation, ErrValidation, ErrTransient} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// ClosesAction reports whether err should end the current action (close a
// modal or a selection) instead of keeping it open for a retry.
func ClosesAction(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnauthorized)
}

// TransientError wraps a network or server fault.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	if e.Err == nil {
		return e.Op + ": transient failure"
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *TransientError) Unwrap() []error {
	return []error{ErrTransient, e.Err}
}
