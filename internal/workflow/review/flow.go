// Package review holds the administrator side of the memorandum workflow:
// the filtered cross-employee list, its status counts, the review modal and
// the read-only details modal.
package review

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/validator"
)

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

func (a Action) event() memorandum.Event {
	if a == ActionApprove {
		return memorandum.EventApprove
	}
	return memorandum.EventReject
}

// Counts are derived from the held list, by effective status.
type Counts struct {
	Total      int `json:"total"`
	Pendientes int `json:"pendientes"`
	Subsanados int `json:"subsanados"`
	EnRevision int `json:"en_revision"`
	Expirados  int `json:"expirados"`
	Aprobados  int `json:"aprobados"`
	Rechazados int `json:"rechazados"`
	Cerrados   int `json:"cerrados"`
}

// Modal is the review modal: one memorandum and one pending decision.
type Modal struct {
	Memorandum    memorandum.Memorandum
	Action        Action
	Comment       string
	AffectsRecord bool

	// Err is the outcome of the last failed confirm.
	Err error
}

// Details is the read-only details modal.
type Details struct {
	Memorandum memorandum.Memorandum
	History    []memorandum.TransitionEvent
}

type Flow struct {
	store  memorandum.Store
	policy memorandum.Policy

	requireDateRange bool

	mu         sync.Mutex
	filter     memorandum.AdminFilter
	list       []memorandum.Memorandum
	counts     Counts
	withheld   bool
	modal      *Modal
	details    *Details
	confirming bool
}

type Option func(*Flow)

// RequireDateRange controls whether results are withheld until both ends of
// the date range are set. It is on by default.
func RequireDateRange(on bool) Option {
	return func(f *Flow) {
		f.requireDateRange = on
	}
}

func NewFlow(store memorandum.Store, policy memorandum.Policy, opts ...Option) *Flow {
	f := &Flow{
		store:            store,
		policy:           policy,
		requireDateRange: true,
		list:             []memorandum.Memorandum{},
		withheld:         true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// UpdateFilter applies change to a copy of the active filter and re-fetches.
// Fields change independently; whatever change leaves alone is kept.
func (f *Flow) UpdateFilter(ctx context.Context, change func(*memorandum.AdminFilter)) error {
	f.mu.Lock()
	next := f.filter
	f.mu.Unlock()

	change(&next)
	if err := next.Validate(); err != nil {
		return err
	}

	f.mu.Lock()
	f.filter = next
	f.mu.Unlock()

	return f.Refresh(ctx)
}

// Refresh re-fetches the list for the active filter. The held list is kept
// when the fetch fails.
func (f *Flow) Refresh(ctx context.Context) error {
	f.mu.Lock()
	filter := f.filter
	if f.requireDateRange && !filter.HasDateRange() {
		f.list = []memorandum.Memorandum{}
		f.counts = Counts{}
		f.withheld = true
		f.mu.Unlock()
		return memorandum.ErrDateRangeRequired
	}
	f.mu.Unlock()

	list, err := f.store.ListForAdmin(ctx, filter)
	if err != nil {
		slog.Warn("Failed to load memoranda for review", "error", err)
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.setList(list)
	return nil
}

// setList must be called with mu held.
func (f *Flow) setList(list []memorandum.Memorandum) {
	if list == nil {
		list = []memorandum.Memorandum{}
	}
	f.list = list
	f.withheld = false
	f.counts = f.count(list)
}

func (f *Flow) count(list []memorandum.Memorandum) Counts {
	now := f.policy.Calculator().Now()
	c := Counts{Total: len(list)}
	for _, m := range list {
		switch f.policy.EffectiveStatusAt(m, now) {
		case memorandum.StatusPending:
			c.Pendientes++
		case memorandum.StatusSubsaned:
			c.Subsanados++
		case memorandum.StatusInReview:
			c.EnRevision++
		case memorandum.StatusExpired:
			c.Expirados++
		case memorandum.StatusApproved:
			c.Aprobados++
		case memorandum.StatusRejected:
			c.Rechazados++
		case memorandum.StatusClosed:
			c.Cerrados++
		}
	}
	return c
}

func (f *Flow) Filter() memorandum.AdminFilter {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter
}

// Memoranda returns a copy of the held list.
func (f *Flow) Memoranda() []memorandum.Memorandum {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.list)
}

func (f *Flow) Counts() Counts {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts
}

// Withheld reports whether results are held back until a date range is set.
func (f *Flow) Withheld() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.withheld
}

// OpenReview binds the review modal to the memorandum with the given id and
// the intended decision.
func (f *Flow) OpenReview(id string, action Action) (Modal, error) {
	if action != ActionApprove && action != ActionReject {
		return Modal{}, validator.ValidationErrors{{Field: "action", Message: "action must be approve or reject"}}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.find(id)
	if !ok {
		return Modal{}, memorandum.ErrMemorandumNotFound
	}
	if !f.policy.CanBeReviewed(f.policy.WithEffectiveStatus(m, f.policy.Calculator().Now())) {
		if f.policy.IsTerminal(m.Status) {
			return Modal{}, memorandum.ErrTerminalState
		}
		return Modal{}, memorandum.ErrNotReviewable
	}

	f.modal = &Modal{Memorandum: m, Action: action}
	return *f.modal, nil
}

// Modal returns the open review modal, if any.
func (f *Flow) Modal() (Modal, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.modal == nil {
		return Modal{}, false
	}
	return *f.modal, true
}

func (f *Flow) SetComment(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.modal == nil {
		return memorandum.ErrNoActiveSelection
	}
	f.modal.Comment = text
	return nil
}

func (f *Flow) SetAffectsRecord(affects bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.modal == nil {
		return memorandum.ErrNoActiveSelection
	}
	f.modal.AffectsRecord = affects
	return nil
}

// CanConfirm is false while a rejection has no comment or a confirm is
// already waiting on the store.
func (f *Flow) CanConfirm() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.modal == nil || f.confirming {
		return false
	}
	return f.modal.Action == ActionApprove || strings.TrimSpace(f.modal.Comment) != ""
}

// Confirm submits the decision. On success the full list is refreshed and the
// modal closes. On failure the modal stays open with the typed comment,
// unless the error ends the action.
func (f *Flow) Confirm(ctx context.Context) (memorandum.Memorandum, error) {
	f.mu.Lock()
	if f.modal == nil {
		f.mu.Unlock()
		return memorandum.Memorandum{}, memorandum.ErrNoActiveSelection
	}
	if f.confirming {
		f.mu.Unlock()
		return memorandum.Memorandum{}, memorandum.ErrSubmissionInFlight
	}
	modal := *f.modal
	req := memorandum.SubmitReviewRequest{
		Approved:      modal.Action == ActionApprove,
		Comments:      modal.Comment,
		AffectsRecord: modal.AffectsRecord,
	}
	if err := req.Validate(); err != nil {
		f.modal.Err = err
		f.mu.Unlock()
		return memorandum.Memorandum{}, err
	}
	f.confirming = true
	f.mu.Unlock()

	updated, err := f.store.SubmitAdminReview(ctx, modal.Memorandum.ID, req)

	f.mu.Lock()
	f.confirming = false
	if err != nil {
		slog.Warn("Review submit failed", "memorandum_id", modal.Memorandum.ID, "action", modal.Action, "error", err)
		if f.modal != nil {
			f.modal.Err = err
			if memorandum.ClosesAction(err) {
				f.modal = nil
			}
		}
		f.mu.Unlock()
		return memorandum.Memorandum{}, err
	}
	f.modal = nil
	f.mu.Unlock()

	f.afterMutation(ctx, updated)
	return updated, nil
}

// Cancel closes the review modal and clears the comment.
func (f *Flow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modal = nil
}

// afterMutation refreshes the whole list, since a decision moves the counts.
// When the refresh fails the returned record replaces the held one.
func (f *Flow) afterMutation(ctx context.Context, updated memorandum.Memorandum) {
	if err := f.Refresh(ctx); err == nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.indexOf(updated.ID); i >= 0 {
		list := slices.Clone(f.list)
		list[i] = updated
		f.setList(list)
	}
}

// OpenDetails loads the memorandum and its audit trail into the details
// modal.
func (f *Flow) OpenDetails(ctx context.Context, id string) (Details, error) {
	m, err := f.store.Get(ctx, id)
	if err != nil {
		return Details{}, err
	}
	history, err := f.store.History(ctx, id)
	if err != nil {
		return Details{}, err
	}

	d := Details{Memorandum: m, History: history}
	f.mu.Lock()
	f.details = &d
	f.mu.Unlock()
	return d, nil
}

// Details returns the open details modal, if any.
func (f *Flow) Details() (Details, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.details == nil {
		return Details{}, false
	}
	return *f.details, true
}

func (f *Flow) CloseDetails() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.details = nil
}

// DownloadDocument is independent of review state and may be retried.
func (f *Flow) DownloadDocument(ctx context.Context, id string) ([]byte, error) {
	return f.store.GenerateDocument(ctx, id)
}

// JustifyOnBehalf records a justification for an employee who cannot file
// one, moving the memorandum straight to review.
func (f *Flow) JustifyOnBehalf(ctx context.Context, id string, req memorandum.JustifyOnBehalfRequest) (memorandum.Memorandum, error) {
	if err := f.guard(id, memorandum.EventJustifyOnBehalf, ""); err != nil {
		return memorandum.Memorandum{}, err
	}
	updated, err := f.store.JustifyOnBehalf(ctx, id, req)
	if err != nil {
		return memorandum.Memorandum{}, err
	}
	f.afterMutation(ctx, updated)
	return updated, nil
}

// Close ends a non-terminal memorandum without employee input.
func (f *Flow) Close(ctx context.Context, id string, comments string) (memorandum.Memorandum, error) {
	if err := f.guard(id, memorandum.EventClose, comments); err != nil {
		return memorandum.Memorandum{}, err
	}
	updated, err := f.store.Close(ctx, id, memorandum.CloseRequest{Comments: comments})
	if err != nil {
		return memorandum.Memorandum{}, err
	}
	f.afterMutation(ctx, updated)
	return updated, nil
}

// guard checks the held copy against the policy before any network call.
// Memoranda outside the held list are left to the backend.
func (f *Flow) guard(id string, event memorandum.Event, comments string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.find(id)
	if !ok {
		return nil
	}
	_, err := f.policy.Next(m, memorandum.Command{
		Event:    event,
		Actor:    memorandum.Actor{Reviewer: true},
		Comments: comments,
		Now:      f.policy.Calculator().Now(),
	})
	return err
}

func (f *Flow) find(id string) (memorandum.Memorandum, bool) {
	i := f.indexOf(id)
	if i < 0 {
		return memorandum.Memorandum{}, false
	}
	return f.list[i], true
}

func (f *Flow) indexOf(id string) int {
	return slices.IndexFunc(f.list, func(m memorandum.Memorandum) bool {
		return m.ID == id
	})
}
