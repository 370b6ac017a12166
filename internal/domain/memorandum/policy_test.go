package memorandum

import (
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testNow  = time.Date(2025, 3, 10, 10, 0, 0, 0, lima)
	reviewer = Actor{UserID: "admin-1", Reviewer: true}
	employee = Actor{UserID: "user-7", EmployeeID: "emp-7"}
)

func newTestPolicy() Policy {
	calc, _ := newTestCalculator(testNow)
	return NewPolicy(calc)
}

func pendingMemo(deadline time.Time) Memorandum {
	return Memorandum{
		ID:                  "m-1",
		Code:                "MEM-2025-000001",
		Type:                TypeLateArrival,
		Employee:            RefID[EmployeeSummary]("emp-7"),
		Status:              StatusPending,
		SubsanationDeadline: deadline,
	}
}

func strPtr(s string) *string { return &s }

func TestCanBeSubsaned_DeadlineBoundary(t *testing.T) {
	p := newTestPolicy()
	deadline := testNow.Add(48 * time.Hour)
	m := pendingMemo(deadline)

	assert.True(t, p.CanBeSubsanedAt(m, deadline), "equal to deadline is still subsanable")
	assert.False(t, p.CanBeSubsanedAt(m, deadline.Add(time.Nanosecond)), "one unit past is not")
	assert.True(t, p.CanBeSubsaned(m))
}

func TestCanBeSubsaned_OnlyPending(t *testing.T) {
	p := newTestPolicy()
	for _, st := range []Status{StatusSubsaned, StatusInReview, StatusApproved, StatusRejected, StatusExpired, StatusClosed} {
		m := pendingMemo(testNow.Add(72 * time.Hour))
		m.Status = st
		assert.False(t, p.CanBeSubsaned(m), st)
	}
}

func TestCanBeSubsaned_AlreadyJustified(t *testing.T) {
	p := newTestPolicy()
	m := pendingMemo(testNow.Add(72 * time.Hour))
	m.EmployeeJustification = strPtr("Tráfico por un accidente en la vía")

	assert.False(t, p.CanBeSubsaned(m))
}

func TestNext_SubmitJustification(t *testing.T) {
	p := newTestPolicy()
	m := pendingMemo(testNow.Add(48 * time.Hour))

	to, err := p.Next(m, Command{Event: EventSubmitJustification, Actor: employee, Now: testNow})
	require.NoError(t, err)
	assert.Equal(t, StatusSubsaned, to)

	// Second attempt against the updated record.
	m.Status = to
	m.EmployeeJustification = strPtr("Me quedé dormido por una emergencia familiar")
	_, err = p.Next(m, Command{Event: EventSubmitJustification, Actor: employee, Now: testNow})
	assert.ErrorIs(t, err, ErrAlreadyJustified)
	assert.ErrorIs(t, err, ErrPolicyViolation)
}

func TestNext_SubmitAfterDeadline(t *testing.T) {
	p := newTestPolicy()
	m := pendingMemo(testNow.Add(-24 * time.Hour))

	_, err := p.Next(m, Command{Event: EventSubmitJustification, Actor: employee, Now: testNow})
	assert.ErrorIs(t, err, ErrDeadlinePassed)
	assert.ErrorIs(t, err, ErrPolicyViolation)
}

func TestNext_Review(t *testing.T) {
	p := newTestPolicy()

	tests := []struct {
		name    string
		status  Status
		event   Event
		actor   Actor
		comment string
		want    Status
		wantErr error
	}{
		{"approve subsaned", StatusSubsaned, EventApprove, reviewer, "", StatusApproved, nil},
		{"approve in review", StatusInReview, EventApprove, reviewer, "ok", StatusApproved, nil},
		{"reject with comment", StatusInReview, EventReject, reviewer, "Justificación insuficiente", StatusRejected, nil},
		{"reject without comment", StatusInReview, EventReject, reviewer, "   ", "", ErrValidation},
		{"approve as employee", StatusSubsaned, EventApprove, employee, "", "", ErrReviewerRequired},
		{"approve pending", StatusPending, EventApprove, reviewer, "", "", ErrNotReviewable},
		{"reject approved", StatusApproved, EventReject, reviewer, "again", "", ErrTerminalState},
		{"reject rejected", StatusRejected, EventReject, reviewer, "again", "", ErrTerminalState},
		{"approve expired", StatusExpired, EventApprove, reviewer, "", "", ErrTerminalState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := pendingMemo(testNow.Add(24 * time.Hour))
			m.Status = tt.status
			to, err := p.Next(m, Command{Event: tt.event, Actor: tt.actor, Comments: tt.comment, Now: testNow})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, to)
		})
	}
}

func TestNext_RejectEmptyCommentIsFieldError(t *testing.T) {
	p := newTestPolicy()
	m := pendingMemo(testNow)
	m.Status = StatusInReview

	_, err := p.Next(m, Command{Event: EventReject, Actor: reviewer, Now: testNow})

	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	_, ok := verrs.Field("comments")
	assert.True(t, ok)
}

func TestNext_JustifyOnBehalf(t *testing.T) {
	p := newTestPolicy()
	m := pendingMemo(testNow.Add(24 * time.Hour))

	to, err := p.Next(m, Command{Event: EventJustifyOnBehalf, Actor: reviewer, Now: testNow})
	require.NoError(t, err)
	assert.Equal(t, StatusInReview, to)

	_, err = p.Next(m, Command{Event: EventJustifyOnBehalf, Actor: employee, Now: testNow})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestNext_Close(t *testing.T) {
	p := newTestPolicy()

	open := pendingMemo(testNow.Add(24 * time.Hour))
	to, err := p.Next(open, Command{Event: EventClose, Actor: reviewer, Now: testNow})
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, to)

	overdue := pendingMemo(testNow.Add(-time.Hour))
	_, err = p.Next(overdue, Command{Event: EventClose, Actor: reviewer, Now: testNow})
	assert.ErrorIs(t, err, ErrTerminalState)

	approved := pendingMemo(testNow)
	approved.Status = StatusApproved
	_, err = p.Next(approved, Command{Event: EventClose, Actor: reviewer, Now: testNow})
	assert.ErrorIs(t, err, ErrTerminalState)
}

func TestIsTerminal(t *testing.T) {
	p := newTestPolicy()

	for _, st := range []Status{StatusApproved, StatusRejected, StatusExpired, StatusClosed} {
		assert.True(t, p.IsTerminal(st), st)
	}
	for _, st := range []Status{StatusPending, StatusSubsaned, StatusInReview} {
		assert.False(t, p.IsTerminal(st), st)
	}
}

func TestCanBeReviewed(t *testing.T) {
	p := newTestPolicy()
	m := pendingMemo(testNow)

	for st, want := range map[Status]bool{
		StatusPending:  false,
		StatusSubsaned: true,
		StatusInReview: true,
		StatusApproved: false,
		StatusExpired:  false,
	} {
		m.Status = st
		assert.Equal(t, want, p.CanBeReviewed(m), st)
	}
}

func TestEffectiveStatus(t *testing.T) {
	p := newTestPolicy()

	assert.Equal(t, StatusPending, p.EffectiveStatus(pendingMemo(testNow.Add(time.Hour))))
	assert.Equal(t, StatusPending, p.EffectiveStatus(pendingMemo(testNow)))
	assert.Equal(t, StatusExpired, p.EffectiveStatus(pendingMemo(testNow.Add(-time.Second))))

	justified := pendingMemo(testNow.Add(-time.Hour))
	justified.Status = StatusSubsaned
	assert.Equal(t, StatusSubsaned, p.EffectiveStatus(justified))
}

func TestEffectiveStatusAgreesWithCanBeSubsaned(t *testing.T) {
	p := newTestPolicy()
	deadline := testNow.Add(36 * time.Hour)
	m := pendingMemo(deadline)

	for _, offset := range []time.Duration{-time.Hour, 0, time.Nanosecond, time.Hour} {
		at := deadline.Add(offset)
		expired := p.EffectiveStatusAt(m, at) == StatusExpired
		assert.Equal(t, !expired, p.CanBeSubsanedAt(m, at), offset)
	}
}

func TestSources(t *testing.T) {
	p := newTestPolicy()

	assert.ElementsMatch(t, []Status{StatusSubsaned, StatusInReview}, p.Sources(EventReject))
	assert.ElementsMatch(t, []Status{StatusPending, StatusSubsaned, StatusInReview}, p.Sources(EventClose))
	assert.ElementsMatch(t, []Status{StatusPending}, p.Sources(EventSubmitJustification))
}

func TestKindAndClosesAction(t *testing.T) {
	assert.Equal(t, ErrPolicyViolation, Kind(ErrDeadlinePassed))
	assert.Equal(t, ErrNotFound, Kind(ErrMemorandumNotFound))
	assert.Equal(t, ErrValidation, Kind(validator.ValidationErrors{{Field: "x", Message: "y"}}))
	assert.Equal(t, ErrTransient, Kind(&TransientError{Op: "list", Err: errors.New("dial tcp")}))
	assert.Nil(t, Kind(errors.New("boom")))

	assert.True(t, ClosesAction(ErrNotOwner))
	assert.True(t, ClosesAction(ErrMemorandumNotFound))
	assert.False(t, ClosesAction(ErrDeadlinePassed))
}
