package memorandum

import (
	"context"
	"fmt"
	"time"
)

// ErrStaleTransition is returned by a conditional update that matched no row.
var ErrStaleTransition = fmt.Errorf("%w: memorandum changed before the update applied", ErrPolicyViolation)

// TransitionUpdate is a conditional write. It applies only while the stored
// row still satisfies every precondition.
type TransitionUpdate struct {
	ID        string
	CompanyID string
	From      []Status
	To        Status
	Now       time.Time

	// Preconditions
	BeforeDeadline  bool
	NoJustification bool
	EmployeeID      *string

	// Field writes
	Justification  *string
	JustifiedAt    *time.Time
	Attachments    []FileRef
	ReviewComments *string
	ReviewedBy     *string
	ReviewDate     *time.Time
	AffectsRecord  *bool
}

type MemorandumRepository interface {
	Create(ctx context.Context, m Memorandum) (Memorandum, error)
	GetByID(ctx context.Context, id string, companyID string) (Memorandum, error)

	// Status filters match the effective status as of now.
	List(ctx context.Context, companyID string, filter AdminFilter, now time.Time) ([]Memorandum, int64, error)
	ListByEmployee(ctx context.Context, companyID string, employeeID string, filter EmployeeFilter, now time.Time) ([]Memorandum, int64, error)

	Transition(ctx context.Context, u TransitionUpdate) (Memorandum, error)
	ExpireOverdue(ctx context.Context, now time.Time, limit int) ([]Memorandum, error)
	ExistsForAttendance(ctx context.Context, attendanceID string, t Type) (bool, error)
}

type EventRepository interface {
	Append(ctx context.Context, e TransitionEvent) (TransitionEvent, error)
	ListByMemorandum(ctx context.Context, memorandumID string, companyID string) ([]TransitionEvent, error)
}
