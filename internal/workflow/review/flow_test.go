package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/fixtures"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	lima    = time.FixedZone("PET", -5*60*60)
	testNow = time.Date(2025, 3, 9, 10, 0, 0, 0, lima)
)

func strPtr(s string) *string { return &s }

type harness struct {
	store *fixtures.Store
	flow  *Flow
}

// seed returns, for March 2025:
//
//	memo-001 ana  PENDIENTE    open
//	memo-002 luis PENDIENTE    past deadline (EXPIRADO on read)
//	memo-003 rosa EN_REVISION  justified
//	memo-004 ana  SUBSANADO    justified
//	memo-005 luis APROBADO     February, outside the range
//	memo-006 rosa PENDIENTE    open, absence
func seed() []memorandum.Memorandum {
	employees := fixtures.GetDefaultEmployees()
	ana, luis, rosa := employees[0], employees[1], employees[2]
	day := func(d int) time.Time { return time.Date(2025, 3, d, 12, 0, 0, 0, lima) }

	m1 := fixtures.NewMemorandum(1, ana, day(8), 3, lima, memorandum.StatusPending)

	m2 := fixtures.NewMemorandum(2, luis, day(4), 3, lima, memorandum.StatusPending)
	m2.SubsanationDeadline = testNow.Add(-24 * time.Hour)

	m3 := fixtures.Justified(fixtures.NewMemorandum(3, rosa, day(6), 3, lima, memorandum.StatusPending),
		"Estuve en una cita médica programada", testNow.Add(-2*time.Hour))
	m3.Status = memorandum.StatusInReview

	m4 := fixtures.Justified(fixtures.NewMemorandum(4, ana, day(7), 3, lima, memorandum.StatusPending),
		"El transporte público sufrió un paro", testNow.Add(-time.Hour))

	m5 := fixtures.NewMemorandum(5, luis, time.Date(2025, 2, 20, 12, 0, 0, 0, lima), 3, lima, memorandum.StatusApproved)

	m6 := fixtures.NewMemorandum(6, rosa, day(9), 3, lima, memorandum.StatusPending)
	m6.Type = memorandum.TypeAbsence

	return []memorandum.Memorandum{m1, m2, m3, m4, m5, m6}
}

func newHarness(t *testing.T, opts ...Option) harness {
	t.Helper()

	policy := memorandum.NewPolicy(memorandum.NewDeadlineCalculator(clock.NewFixed(testNow), lima))
	store := fixtures.NewStore(policy, seed()...)
	store.Actor = memorandum.Actor{UserID: "user-admin", Reviewer: true}
	return harness{store: store, flow: NewFlow(store, policy, opts...)}
}

// loaded returns a harness whose flow holds March 2025.
func loaded(t *testing.T) harness {
	t.Helper()

	h := newHarness(t)
	require.NoError(t, h.flow.UpdateFilter(context.Background(), func(f *memorandum.AdminFilter) {
		f.StartDate = strPtr("2025-03-01")
		f.EndDate = strPtr("2025-03-31")
	}))
	return h
}

func ids(list []memorandum.Memorandum) []string {
	out := make([]string, 0, len(list))
	for _, m := range list {
		out = append(out, m.ID)
	}
	return out
}

func TestRefresh_WithheldUntilDateRange(t *testing.T) {
	h := newHarness(t)

	err := h.flow.Refresh(context.Background())
	assert.ErrorIs(t, err, memorandum.ErrDateRangeRequired)
	assert.ErrorIs(t, err, memorandum.ErrValidation)
	assert.True(t, h.flow.Withheld())
	assert.Empty(t, h.flow.Memoranda())
	assert.Zero(t, h.store.Calls("ListForAdmin"))

	err = h.flow.UpdateFilter(context.Background(), func(f *memorandum.AdminFilter) {
		f.StartDate = strPtr("2025-03-01")
	})
	assert.ErrorIs(t, err, memorandum.ErrDateRangeRequired, "both ends are needed")
	assert.Zero(t, h.store.Calls("ListForAdmin"))
}

func TestRefresh_DateRangeOptional(t *testing.T) {
	h := newHarness(t, RequireDateRange(false))

	require.NoError(t, h.flow.Refresh(context.Background()))
	assert.False(t, h.flow.Withheld())
	assert.Len(t, h.flow.Memoranda(), 6)
	assert.Equal(t, 6, h.flow.Counts().Total)
}

func TestCounts_UseEffectiveStatus(t *testing.T) {
	h := loaded(t)

	assert.Equal(t, []string{"memo-006", "memo-001", "memo-004", "memo-003", "memo-002"}, ids(h.flow.Memoranda()))
	assert.Equal(t, Counts{
		Total:      5,
		Pendientes: 2,
		Subsanados: 1,
		EnRevision: 1,
		Expirados:  1,
	}, h.flow.Counts())
}

func TestUpdateFilter_ScenarioD(t *testing.T) {
	h := loaded(t)
	ctx := context.Background()

	require.NoError(t, h.flow.UpdateFilter(ctx, func(f *memorandum.AdminFilter) {
		f.Status = strPtr("PENDIENTE")
	}))
	list := h.flow.Memoranda()
	assert.Equal(t, []string{"memo-006", "memo-001"}, ids(list))
	for _, m := range list {
		assert.Equal(t, memorandum.StatusPending, m.Status)
		incident := m.IncidentDate.Format(time.DateOnly)
		assert.True(t, incident >= "2025-03-01" && incident <= "2025-03-31")
	}

	require.NoError(t, h.flow.UpdateFilter(ctx, func(f *memorandum.AdminFilter) {
		f.AreaID = strPtr("area-ops")
	}))
	assert.Equal(t, []string{"memo-001"}, ids(h.flow.Memoranda()))

	filter := h.flow.Filter()
	assert.Equal(t, "PENDIENTE", *filter.Status)
	assert.Equal(t, "2025-03-01", *filter.StartDate)
	assert.Equal(t, "2025-03-31", *filter.EndDate)
	assert.Equal(t, 1, h.flow.Counts().Pendientes)
}

func TestUpdateFilter_InvalidKeepsFilter(t *testing.T) {
	h := loaded(t)
	before := h.flow.Filter()
	calls := h.store.Calls("ListForAdmin")

	err := h.flow.UpdateFilter(context.Background(), func(f *memorandum.AdminFilter) {
		f.EndDate = strPtr("2025-02-01")
	})
	assert.ErrorIs(t, err, memorandum.ErrValidation)
	assert.Equal(t, before, h.flow.Filter())
	assert.Equal(t, calls, h.store.Calls("ListForAdmin"))
}

func TestConfirm_ScenarioC(t *testing.T) {
	h := loaded(t)
	ctx := context.Background()

	modal, err := h.flow.OpenReview("memo-003", ActionReject)
	require.NoError(t, err)
	assert.Equal(t, ActionReject, modal.Action)
	assert.False(t, h.flow.CanConfirm(), "rejection needs a comment")

	_, err = h.flow.Confirm(ctx)
	assert.ErrorIs(t, err, memorandum.ErrValidation)
	assert.Zero(t, h.store.Calls("SubmitAdminReview"))
	_, open := h.flow.Modal()
	assert.True(t, open)

	require.NoError(t, h.flow.SetComment("Justificación insuficiente"))
	assert.True(t, h.flow.CanConfirm())

	listCalls := h.store.Calls("ListForAdmin")
	rejected, err := h.flow.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, memorandum.StatusRejected, rejected.Status)
	require.NotNil(t, rejected.ReviewComments)
	assert.Equal(t, "Justificación insuficiente", *rejected.ReviewComments)
	require.NotNil(t, rejected.ReviewedBy)
	assert.Equal(t, "user-admin", *rejected.ReviewedBy)
	require.NotNil(t, rejected.ReviewDate)

	_, open = h.flow.Modal()
	assert.False(t, open)
	assert.Equal(t, listCalls+1, h.store.Calls("ListForAdmin"), "full list refreshed")
	assert.Equal(t, 1, h.flow.Counts().Rechazados)
	assert.Zero(t, h.flow.Counts().EnRevision)

	_, err = h.flow.OpenReview("memo-003", ActionReject)
	assert.ErrorIs(t, err, memorandum.ErrTerminalState)

	_, err = h.store.SubmitAdminReview(ctx, "memo-003", memorandum.SubmitReviewRequest{Comments: "Segundo intento"})
	assert.ErrorIs(t, err, memorandum.ErrPolicyViolation)
	stored, _ := h.store.Stored("memo-003")
	assert.Equal(t, memorandum.StatusRejected, stored.Status)
	assert.Equal(t, *rejected.ReviewComments, *stored.ReviewComments)
	assert.Equal(t, *rejected.ReviewedBy, *stored.ReviewedBy)
	assert.True(t, rejected.ReviewDate.Equal(*stored.ReviewDate))
}

func TestConfirm_ApproveWithoutComment(t *testing.T) {
	h := loaded(t)

	_, err := h.flow.OpenReview("memo-004", ActionApprove)
	require.NoError(t, err)
	assert.True(t, h.flow.CanConfirm())
	require.NoError(t, h.flow.SetAffectsRecord(true))

	approved, err := h.flow.Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, memorandum.StatusApproved, approved.Status)
	assert.True(t, approved.AffectsRecord)
	assert.Equal(t, 1, h.flow.Counts().Aprobados)
}

func TestOpenReview_Guards(t *testing.T) {
	h := loaded(t)

	_, err := h.flow.OpenReview("memo-001", ActionApprove)
	assert.ErrorIs(t, err, memorandum.ErrNotReviewable)

	_, err = h.flow.OpenReview("memo-002", ActionApprove)
	assert.ErrorIs(t, err, memorandum.ErrTerminalState, "expired on read")

	_, err = h.flow.OpenReview("memo-003", Action("escalate"))
	assert.ErrorIs(t, err, memorandum.ErrValidation)

	_, err = h.flow.OpenReview("memo-999", ActionApprove)
	assert.ErrorIs(t, err, memorandum.ErrNotFound)

	_, open := h.flow.Modal()
	assert.False(t, open)
	assert.ErrorIs(t, h.flow.SetComment("x"), memorandum.ErrNoActiveSelection)
	_, err = h.flow.Confirm(context.Background())
	assert.ErrorIs(t, err, memorandum.ErrNoActiveSelection)
}

func TestConfirm_FailureKeepsModalAndComment(t *testing.T) {
	h := loaded(t)
	before := h.flow.Memoranda()
	counts := h.flow.Counts()

	h.store.Hook = func(op, id string) error {
		if op == "SubmitAdminReview" {
			return &memorandum.TransientError{Op: "submit review", Err: errors.New("502 bad gateway")}
		}
		return nil
	}

	_, err := h.flow.OpenReview("memo-003", ActionReject)
	require.NoError(t, err)
	require.NoError(t, h.flow.SetComment("Justificación insuficiente"))

	_, err = h.flow.Confirm(context.Background())
	assert.ErrorIs(t, err, memorandum.ErrTransient)

	modal, open := h.flow.Modal()
	require.True(t, open)
	assert.Equal(t, "Justificación insuficiente", modal.Comment)
	assert.ErrorIs(t, modal.Err, memorandum.ErrTransient)
	assert.Equal(t, before, h.flow.Memoranda())
	assert.Equal(t, counts, h.flow.Counts())
	assert.True(t, h.flow.CanConfirm(), "retry is allowed")

	h.flow.Cancel()
	_, open = h.flow.Modal()
	assert.False(t, open)
	modal, err = h.flow.OpenReview("memo-003", ActionReject)
	require.NoError(t, err)
	assert.Empty(t, modal.Comment, "cancel clears the comment")
}

func TestConfirm_UnauthorizedClosesModal(t *testing.T) {
	h := loaded(t)
	before := h.flow.Memoranda()
	h.store.Hook = func(op, id string) error {
		if op == "SubmitAdminReview" {
			return memorandum.ErrReviewerRequired
		}
		return nil
	}

	_, err := h.flow.OpenReview("memo-004", ActionApprove)
	require.NoError(t, err)
	_, err = h.flow.Confirm(context.Background())
	assert.ErrorIs(t, err, memorandum.ErrUnauthorized)

	_, open := h.flow.Modal()
	assert.False(t, open)
	assert.Equal(t, before, h.flow.Memoranda())
}

func TestConfirm_RefreshFailurePatchesHeldRecord(t *testing.T) {
	h := loaded(t)
	h.store.Hook = func(op, id string) error {
		if op == "ListForAdmin" {
			return &memorandum.TransientError{Op: "list memoranda", Err: errors.New("timeout")}
		}
		return nil
	}

	_, err := h.flow.OpenReview("memo-004", ActionApprove)
	require.NoError(t, err)
	approved, err := h.flow.Confirm(context.Background())
	require.NoError(t, err)

	list := h.flow.Memoranda()
	assert.Equal(t, approved, list[2])
	assert.Equal(t, 1, h.flow.Counts().Aprobados)
	assert.Zero(t, h.flow.Counts().Subsanados)
}

func TestJustifyOnBehalf(t *testing.T) {
	h := loaded(t)
	ctx := context.Background()
	req := memorandum.JustifyOnBehalfRequest{Justification: "El empleado estuvo hospitalizado ese día"}

	updated, err := h.flow.JustifyOnBehalf(ctx, "memo-001", req)
	require.NoError(t, err)
	assert.Equal(t, memorandum.StatusInReview, updated.Status)
	assert.Equal(t, 2, h.flow.Counts().EnRevision)

	_, err = h.flow.JustifyOnBehalf(ctx, "memo-003", req)
	assert.ErrorIs(t, err, memorandum.ErrPolicyViolation)
	assert.Equal(t, 1, h.store.Calls("JustifyOnBehalf"), "blocked before the store")
}

func TestClose(t *testing.T) {
	h := loaded(t)
	ctx := context.Background()

	closed, err := h.flow.Close(ctx, "memo-006", "Registro duplicado")
	require.NoError(t, err)
	assert.Equal(t, memorandum.StatusClosed, closed.Status)
	assert.Equal(t, 1, h.flow.Counts().Cerrados)

	_, err = h.flow.Close(ctx, "memo-002", "")
	assert.ErrorIs(t, err, memorandum.ErrTerminalState)
	assert.Equal(t, 1, h.store.Calls("Close"))
}

func TestDetails(t *testing.T) {
	h := loaded(t)
	ctx := context.Background()

	_, err := h.flow.OpenReview("memo-003", ActionReject)
	require.NoError(t, err)
	require.NoError(t, h.flow.SetComment("Justificación insuficiente"))
	_, err = h.flow.Confirm(ctx)
	require.NoError(t, err)

	details, err := h.flow.OpenDetails(ctx, "memo-003")
	require.NoError(t, err)
	assert.Equal(t, memorandum.StatusRejected, details.Memorandum.Status)
	require.Len(t, details.History, 1)
	assert.Equal(t, memorandum.EventReject, details.History[0].Event)
	assert.Equal(t, memorandum.StatusInReview, *details.History[0].FromStatus)

	_, open := h.flow.Details()
	assert.True(t, open)
	h.flow.CloseDetails()
	_, open = h.flow.Details()
	assert.False(t, open)

	_, err = h.flow.OpenDetails(ctx, "memo-999")
	assert.ErrorIs(t, err, memorandum.ErrNotFound)
}

func TestDownloadDocument_NeverMutates(t *testing.T) {
	h := loaded(t)
	before, _ := h.store.Stored("memo-003")

	doc, err := h.flow.DownloadDocument(context.Background(), "memo-003")
	require.NoError(t, err)
	assert.Contains(t, string(doc), "MEM-2025-000003")

	after, _ := h.store.Stored("memo-003")
	assert.Equal(t, before, after)
	assert.Zero(t, h.store.Calls("SubmitAdminReview"))
}
