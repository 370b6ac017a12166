// Package selfservice holds the employee side of the memorandum workflow: the
// employee's own list, the selected memorandum and its justification draft.
package selfservice

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
)

// Mode tells the front end how to render a selected memorandum.
type Mode string

const (
	// ModeForm exposes the justification form.
	ModeForm Mode = "form"
	// ModeReadOnly shows the submitted justification and any review comments.
	ModeReadOnly Mode = "read_only"
	// ModeClosed is a memorandum that can no longer be justified.
	ModeClosed Mode = "closed"
)

// Selection is the memorandum currently open for action.
type Selection struct {
	Memorandum memorandum.Memorandum
	Mode       Mode
	Draft      string

	// Err is the outcome of the last failed submit, kept next to the form.
	Err error
}

type Flow struct {
	store  memorandum.Store
	policy memorandum.Policy

	// employeeID is empty when the flow lists the caller's own memoranda.
	employeeID string

	mu       sync.Mutex
	filter   memorandum.EmployeeFilter
	list     []memorandum.Memorandum
	selected *Selection
	drafts   map[string]string
	inFlight map[string]struct{}
}

type Option func(*Flow)

// ForEmployee makes the flow list employeeID's memoranda instead of the
// caller's own.
func ForEmployee(employeeID string) Option {
	return func(f *Flow) {
		f.employeeID = employeeID
	}
}

func NewFlow(store memorandum.Store, policy memorandum.Policy, opts ...Option) *Flow {
	f := &Flow{
		store:    store,
		policy:   policy,
		list:     []memorandum.Memorandum{},
		drafts:   make(map[string]string),
		inFlight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Load fetches the list for the active filter.
func (f *Flow) Load(ctx context.Context) error {
	f.mu.Lock()
	filter := f.filter
	f.mu.Unlock()

	return f.fetch(ctx, filter)
}

// SetFilter replaces the active filter and re-fetches. Filtering happens on
// the backend so the count always matches the active query. The held list
// is kept when the fetch fails.
func (f *Flow) SetFilter(ctx context.Context, filter memorandum.EmployeeFilter) error {
	if err := filter.Validate(); err != nil {
		return err
	}

	f.mu.Lock()
	f.filter = filter
	f.mu.Unlock()

	return f.fetch(ctx, filter)
}

func (f *Flow) fetch(ctx context.Context, filter memorandum.EmployeeFilter) error {
	list, err := f.store.ListForEmployee(ctx, f.employeeID, filter)
	if err != nil {
		slog.Warn("Failed to load memoranda", "employee_id", f.employeeID, "error", err)
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.list = list
	if f.selected != nil {
		if i := f.indexOf(f.selected.Memorandum.ID); i >= 0 {
			f.selected.Memorandum = list[i]
			f.selected.Mode = f.modeFor(list[i])
		}
	}
	return nil
}

func (f *Flow) Filter() memorandum.EmployeeFilter {
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

func (f *Flow) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.list)
}

// Select opens the memorandum with the given id from the held list. A
// memorandum that already carries a justification never reopens the form.
func (f *Flow) Select(id string) (Selection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.indexOf(id)
	if i < 0 {
		return Selection{}, memorandum.ErrMemorandumNotFound
	}
	m := f.list[i]
	f.selected = &Selection{
		Memorandum: m,
		Mode:       f.modeFor(m),
		Draft:      f.drafts[id],
	}
	return *f.selected, nil
}

// Selected returns the open selection, if any.
func (f *Flow) Selected() (Selection, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.selected == nil {
		return Selection{}, false
	}
	return *f.selected, true
}

// Deselect closes the selection. The draft stays available for the next
// time the memorandum is opened.
func (f *Flow) Deselect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = nil
}

// SetDraft records the justification text typed for the selected memorandum.
func (f *Flow) SetDraft(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.selected == nil {
		return memorandum.ErrNoActiveSelection
	}
	f.selected.Draft = text
	f.drafts[f.selected.Memorandum.ID] = text
	return nil
}

// Submit sends the draft of the selected memorandum. On success the held
// copy is replaced by the one the backend returned and the selection is
// closed. On failure the list and the draft are left as they were.
func (f *Flow) Submit(ctx context.Context, attachments []memorandum.FileRef) (memorandum.Memorandum, error) {
	f.mu.Lock()
	if f.selected == nil {
		f.mu.Unlock()
		return memorandum.Memorandum{}, memorandum.ErrNoActiveSelection
	}
	m := f.selected.Memorandum
	if _, busy := f.inFlight[m.ID]; busy {
		f.mu.Unlock()
		return memorandum.Memorandum{}, memorandum.ErrSubmissionInFlight
	}
	if _, err := f.policy.Next(m, memorandum.Command{
		Event: memorandum.EventSubmitJustification,
		Now:   f.policy.Calculator().Now(),
	}); err != nil {
		f.selected.Err = err
		f.mu.Unlock()
		return memorandum.Memorandum{}, err
	}
	req := memorandum.SubmitJustificationRequest{
		Justification: f.selected.Draft,
		Attachments:   attachments,
	}
	f.inFlight[m.ID] = struct{}{}
	f.mu.Unlock()

	updated, err := f.store.SubmitEmployeeJustification(ctx, m.ID, req)

	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.inFlight, m.ID)

	current := f.selected != nil && f.selected.Memorandum.ID == m.ID
	if err != nil {
		slog.Warn("Justification submit failed", "memorandum_id", m.ID, "error", err)
		if current {
			f.selected.Err = err
			if memorandum.ClosesAction(err) {
				f.selected = nil
			}
		}
		return memorandum.Memorandum{}, err
	}

	if i := f.indexOf(m.ID); i >= 0 {
		f.list[i] = updated
	}
	delete(f.drafts, m.ID)
	if current {
		f.selected = nil
	}
	return updated, nil
}

// InFlight reports whether a submit for id is waiting on the backend.
func (f *Flow) InFlight(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.inFlight[id]
	return ok
}

// DownloadDocument fetches the printable document. It never mutates the
// memorandum and may be retried freely.
func (f *Flow) DownloadDocument(ctx context.Context, id string) ([]byte, error) {
	return f.store.GenerateDocument(ctx, id)
}

func (f *Flow) modeFor(m memorandum.Memorandum) Mode {
	switch {
	case m.HasJustification():
		return ModeReadOnly
	case f.policy.CanBeSubsaned(m):
		return ModeForm
	default:
		return ModeClosed
	}
}

func (f *Flow) indexOf(id string) int {
	return slices.IndexFunc(f.list, func(m memorandum.Memorandum) bool {
		return m.ID == id
	})
}
