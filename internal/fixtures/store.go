package fixtures

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
)

// Store is an in-memory memorandum.Store that enforces the same guards as the
// backend. It stands in for the REST client in flow tests and demos.
type Store struct {
	policy memorandum.Policy

	// Actor is the caller every mutation is attributed to.
	Actor memorandum.Actor

	// Hook runs before every operation, outside the lock. A non-nil error is
	// returned instead of running the operation.
	Hook func(op, id string) error

	mu      sync.Mutex
	items   map[string]memorandum.Memorandum
	history map[string][]memorandum.TransitionEvent
	calls   map[string]int
	seq     int
}

var _ memorandum.Store = (*Store)(nil)

func NewStore(policy memorandum.Policy, seed ...memorandum.Memorandum) *Store {
	s := &Store{
		policy:  policy,
		Actor:   memorandum.Actor{UserID: "user-admin", Reviewer: true},
		items:   make(map[string]memorandum.Memorandum),
		history: make(map[string][]memorandum.TransitionEvent),
		calls:   make(map[string]int),
	}
	for _, m := range seed {
		s.Put(m)
	}
	return s
}

// Put stores m as is, bypassing every guard.
func (s *Store) Put(m memorandum.Memorandum) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[m.ID] = m
}

// Stored returns the raw stored record, without effective status.
func (s *Store) Stored(id string) (memorandum.Memorandum, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.items[id]
	return m, ok
}

// Calls returns how many times op reached the store, hook failures included.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *Store) enter(op, id string) error {
	s.mu.Lock()
	s.calls[op]++
	hook := s.Hook
	s.mu.Unlock()

	if hook != nil {
		return hook(op, id)
	}
	return nil
}

func (s *Store) now() time.Time {
	return s.policy.Calculator().Now()
}

// ListForEmployee implements memorandum.Store. An empty employeeID lists the
// actor's own memoranda.
func (s *Store) ListForEmployee(ctx context.Context, employeeID string, filter memorandum.EmployeeFilter) ([]memorandum.Memorandum, error) {
	if err := s.enter("ListForEmployee", employeeID); err != nil {
		return nil, err
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if employeeID == "" {
		employeeID = s.Actor.EmployeeID
	}

	return s.list(func(m memorandum.Memorandum) bool {
		return m.EmployeeID() == employeeID &&
			matches(filter.Status, string(m.Status)) &&
			matches(filter.Type, string(m.Type))
	}), nil
}

// ListForAdmin implements memorandum.Store.
func (s *Store) ListForAdmin(ctx context.Context, filter memorandum.AdminFilter) ([]memorandum.Memorandum, error) {
	if err := s.enter("ListForAdmin", ""); err != nil {
		return nil, err
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	return s.list(func(m memorandum.Memorandum) bool {
		emp, _ := m.Employee.Value()
		incident := m.IncidentDate.Format(time.DateOnly)
		return matches(filter.AreaID, emp.Area.ID()) &&
			matches(filter.CargoID, emp.Cargo.ID()) &&
			matches(filter.EmployeeID, m.EmployeeID()) &&
			matches(filter.Status, string(m.Status)) &&
			matches(filter.Type, string(m.Type)) &&
			(filter.StartDate == nil || *filter.StartDate == "" || incident >= *filter.StartDate) &&
			(filter.EndDate == nil || *filter.EndDate == "" || incident <= *filter.EndDate)
	}), nil
}

// list returns the matching records with their effective status, newest
// incident first.
func (s *Store) list(keep func(memorandum.Memorandum) bool) []memorandum.Memorandum {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := []memorandum.Memorandum{}
	for _, m := range s.items {
		m = s.policy.WithEffectiveStatus(m, now)
		if keep(m) {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b memorandum.Memorandum) int {
		if c := b.IncidentDate.Compare(a.IncidentDate); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func matches(want *string, got string) bool {
	return want == nil || *want == "" || *want == got
}

// Get implements memorandum.Store.
func (s *Store) Get(ctx context.Context, id string) (memorandum.Memorandum, error) {
	if err := s.enter("Get", id); err != nil {
		return memorandum.Memorandum{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.items[id]
	if !ok {
		return memorandum.Memorandum{}, memorandum.ErrMemorandumNotFound
	}
	return s.policy.WithEffectiveStatus(m, s.now()), nil
}

// History implements memorandum.Store.
func (s *Store) History(ctx context.Context, id string) ([]memorandum.TransitionEvent, error) {
	if err := s.enter("History", id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return nil, memorandum.ErrMemorandumNotFound
	}
	return slices.Clone(s.history[id]), nil
}

// SubmitEmployeeJustification implements memorandum.Store.
func (s *Store) SubmitEmployeeJustification(ctx context.Context, id string, req memorandum.SubmitJustificationRequest) (memorandum.Memorandum, error) {
	if err := s.enter("SubmitEmployeeJustification", id); err != nil {
		return memorandum.Memorandum{}, err
	}
	if err := req.Validate(memorandum.DefaultMinJustificationLength, memorandum.DefaultMaxAttachments); err != nil {
		return memorandum.Memorandum{}, err
	}

	actor := s.Actor
	actor.Reviewer = false
	text := strings.TrimSpace(req.Justification)
	return s.apply(id, memorandum.Command{Event: memorandum.EventSubmitJustification, Actor: actor}, func(m *memorandum.Memorandum, now time.Time) {
		m.EmployeeJustification = &text
		m.JustifiedAt = &now
		m.Attachments = req.Attachments
	}, func(m memorandum.Memorandum) error {
		if actor.EmployeeID != "" && m.EmployeeID() != actor.EmployeeID {
			return memorandum.ErrNotOwner
		}
		return nil
	})
}

// SubmitAdminReview implements memorandum.Store.
func (s *Store) SubmitAdminReview(ctx context.Context, id string, req memorandum.SubmitReviewRequest) (memorandum.Memorandum, error) {
	if err := s.enter("SubmitAdminReview", id); err != nil {
		return memorandum.Memorandum{}, err
	}
	if err := req.Validate(); err != nil {
		return memorandum.Memorandum{}, err
	}

	event := memorandum.EventReject
	if req.Approved {
		event = memorandum.EventApprove
	}
	comments := strings.TrimSpace(req.Comments)
	reviewer := s.Actor.UserID
	return s.apply(id, memorandum.Command{Event: event, Actor: s.Actor, Comments: comments}, func(m *memorandum.Memorandum, now time.Time) {
		m.ReviewComments = &comments
		m.ReviewedBy = &reviewer
		m.ReviewDate = &now
		m.AffectsRecord = req.AffectsRecord
	}, nil)
}

// JustifyOnBehalf implements memorandum.Store.
func (s *Store) JustifyOnBehalf(ctx context.Context, id string, req memorandum.JustifyOnBehalfRequest) (memorandum.Memorandum, error) {
	if err := s.enter("JustifyOnBehalf", id); err != nil {
		return memorandum.Memorandum{}, err
	}
	if err := req.Validate(memorandum.DefaultMinJustificationLength, memorandum.DefaultMaxAttachments); err != nil {
		return memorandum.Memorandum{}, err
	}

	text := strings.TrimSpace(req.Justification)
	return s.apply(id, memorandum.Command{Event: memorandum.EventJustifyOnBehalf, Actor: s.Actor}, func(m *memorandum.Memorandum, now time.Time) {
		m.EmployeeJustification = &text
		m.JustifiedAt = &now
		m.Attachments = req.Attachments
	}, nil)
}

// Close implements memorandum.Store.
func (s *Store) Close(ctx context.Context, id string, req memorandum.CloseRequest) (memorandum.Memorandum, error) {
	if err := s.enter("Close", id); err != nil {
		return memorandum.Memorandum{}, err
	}
	if err := req.Validate(); err != nil {
		return memorandum.Memorandum{}, err
	}

	comments := strings.TrimSpace(req.Comments)
	reviewer := s.Actor.UserID
	return s.apply(id, memorandum.Command{Event: memorandum.EventClose, Actor: s.Actor, Comments: comments}, func(m *memorandum.Memorandum, now time.Time) {
		m.ReviewComments = &comments
		m.ReviewedBy = &reviewer
		m.ReviewDate = &now
	}, nil)
}

// apply runs one guarded transition under the lock, the way the backend's
// conditional update does.
func (s *Store) apply(id string, cmd memorandum.Command, update func(*memorandum.Memorandum, time.Time), authorize func(memorandum.Memorandum) error) (memorandum.Memorandum, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.items[id]
	if !ok {
		return memorandum.Memorandum{}, memorandum.ErrMemorandumNotFound
	}
	if authorize != nil {
		if err := authorize(m); err != nil {
			return memorandum.Memorandum{}, err
		}
	}

	now := s.now()
	cmd.Now = now
	to, err := s.policy.Next(m, cmd)
	if err != nil {
		return memorandum.Memorandum{}, err
	}

	from := m.Status
	update(&m, now)
	m.Status = to
	m.UpdatedAt = now
	s.items[id] = m

	s.seq++
	var comment *string
	if cmd.Comments != "" {
		c := cmd.Comments
		comment = &c
	}
	e := memorandum.NewTransitionEvent(m, cmd.Event, &from, to, cmd.Actor, comment, now)
	e.ID = fmt.Sprintf("event-%03d", s.seq)
	s.history[id] = append(s.history[id], e)

	return m, nil
}

// GenerateDocument implements memorandum.Store.
func (s *Store) GenerateDocument(ctx context.Context, id string) ([]byte, error) {
	if err := s.enter("GenerateDocument", id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.items[id]
	if !ok {
		return nil, memorandum.ErrMemorandumNotFound
	}
	m = s.policy.WithEffectiveStatus(m, s.now())
	return []byte(fmt.Sprintf("MEMORÁNDUM %s\nEstado: %s\n", m.Code, m.Status)), nil
}
