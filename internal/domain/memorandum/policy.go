package memorandum

import (
	"slices"
	"time"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/validator"
)

type Event string

const (
	EventCreated             Event = "created"
	EventSubmitJustification Event = "submit_justification"
	EventDeadlinePassed      Event = "deadline_passed"
	EventApprove             Event = "approve"
	EventReject              Event = "reject"
	EventJustifyOnBehalf     Event = "justify_on_behalf"
	EventClose               Event = "close"
)

// Actor is whoever triggers an event. The zero value is the system.
type Actor struct {
	UserID     string
	EmployeeID string
	Reviewer   bool
}

func (a Actor) IsSystem() bool {
	return a.UserID == ""
}

// Command is one event applied to one memorandum at a point in time.
type Command struct {
	Event    Event
	Actor    Actor
	Comments string
	Now      time.Time
}

type Guard func(m Memorandum, cmd Command) error

type Transition struct {
	From             []Status
	Event            Event
	To               Status
	RequiresReviewer bool
	Guard            Guard
}

func withinDeadline(m Memorandum, cmd Command) error {
	if cmd.Now.After(m.SubsanationDeadline) {
		return ErrDeadlinePassed
	}
	return nil
}

func notJustified(m Memorandum, cmd Command) error {
	if m.HasJustification() {
		return ErrAlreadyJustified
	}
	return withinDeadline(m, cmd)
}

func pastDeadline(m Memorandum, cmd Command) error {
	if !cmd.Now.After(m.SubsanationDeadline) {
		return ErrInvalidTransition
	}
	return nil
}

func commentRequired(m Memorandum, cmd Command) error {
	if validator.IsEmpty(cmd.Comments) {
		return validator.ValidationErrors{{Field: "comments", Message: "comments are required when rejecting"}}
	}
	return nil
}

var awaitingDecision = []Status{StatusSubsaned, StatusInReview}

// DefaultTransitions is the memorandum lifecycle.
var DefaultTransitions = []Transition{
	{From: []Status{StatusPending}, Event: EventSubmitJustification, To: StatusSubsaned, Guard: notJustified},
	{From: []Status{StatusPending}, Event: EventDeadlinePassed, To: StatusExpired, Guard: pastDeadline},
	{From: awaitingDecision, Event: EventApprove, To: StatusApproved, RequiresReviewer: true},
	{From: awaitingDecision, Event: EventReject, To: StatusRejected, RequiresReviewer: true, Guard: commentRequired},
	{From: []Status{StatusPending}, Event: EventJustifyOnBehalf, To: StatusInReview, RequiresReviewer: true, Guard: notJustified},
	{From: []Status{StatusPending, StatusSubsaned, StatusInReview}, Event: EventClose, To: StatusClosed, RequiresReviewer: true},
}

type Policy struct {
	calc  DeadlineCalculator
	table []Transition
}

func NewPolicy(calc DeadlineCalculator) Policy {
	return Policy{calc: calc, table: DefaultTransitions}
}

func NewPolicyWithTable(calc DeadlineCalculator, table []Transition) Policy {
	return Policy{calc: calc, table: table}
}

func (p Policy) Calculator() DeadlineCalculator {
	return p.calc
}

func (p Policy) lookup(from Status, event Event) (Transition, bool) {
	for _, t := range p.table {
		if t.Event == event && slices.Contains(t.From, from) {
			return t, true
		}
	}
	return Transition{}, false
}

// Next returns the status m moves to when cmd is applied, or the reason it
// cannot move.
func (p Policy) Next(m Memorandum, cmd Command) (Status, error) {
	t, ok := p.lookup(m.Status, cmd.Event)
	if !ok {
		return "", p.rejection(m, cmd)
	}
	if t.RequiresReviewer && !cmd.Actor.Reviewer {
		return "", ErrReviewerRequired
	}
	// Pending but past the deadline is effectively expired, so terminal.
	if m.Status == StatusPending && cmd.Event == EventClose && p.EffectiveStatusAt(m, cmd.Now) != m.Status {
		return "", ErrTerminalState
	}
	if t.Guard != nil {
		if err := t.Guard(m, cmd); err != nil {
			return "", err
		}
	}
	return t.To, nil
}

func (p Policy) rejection(m Memorandum, cmd Command) error {
	if p.IsTerminal(m.Status) {
		return ErrTerminalState
	}
	switch cmd.Event {
	case EventSubmitJustification, EventJustifyOnBehalf:
		if m.HasJustification() {
			return ErrAlreadyJustified
		}
		return ErrNotPending
	case EventApprove, EventReject:
		return ErrNotReviewable
	default:
		return ErrInvalidTransition
	}
}

// Sources lists the stored statuses event may start from.
func (p Policy) Sources(event Event) []Status {
	var out []Status
	for _, t := range p.table {
		if t.Event != event {
			continue
		}
		for _, s := range t.From {
			if !slices.Contains(out, s) {
				out = append(out, s)
			}
		}
	}
	return out
}

// IsTerminal reports whether no event leaves s.
func (p Policy) IsTerminal(s Status) bool {
	for _, t := range p.table {
		if slices.Contains(t.From, s) {
			return false
		}
	}
	return true
}

func (p Policy) CanBeSubsaned(m Memorandum) bool {
	return p.CanBeSubsanedAt(m, p.calc.Now())
}

// CanBeSubsanedAt is true up to and including the deadline instant.
func (p Policy) CanBeSubsanedAt(m Memorandum, now time.Time) bool {
	_, err := p.Next(m, Command{Event: EventSubmitJustification, Now: now})
	return err == nil
}

func (p Policy) CanBeReviewed(m Memorandum) bool {
	return slices.Contains(p.Sources(EventApprove), m.Status)
}

func (p Policy) EffectiveStatus(m Memorandum) Status {
	return p.EffectiveStatusAt(m, p.calc.Now())
}

// EffectiveStatusAt derives EXPIRADO for a pending record past its deadline
// without persisting anything.
func (p Policy) EffectiveStatusAt(m Memorandum, now time.Time) Status {
	t, ok := p.lookup(m.Status, EventDeadlinePassed)
	if !ok {
		return m.Status
	}
	if t.Guard != nil && t.Guard(m, Command{Event: EventDeadlinePassed, Now: now}) != nil {
		return m.Status
	}
	return t.To
}

// WithEffectiveStatus returns m with its status replaced by the effective one.
func (p Policy) WithEffectiveStatus(m Memorandum, now time.Time) Memorandum {
	m.Status = p.EffectiveStatusAt(m, now)
	return m
}

// AwaitingDecision reports whether s is one of the statuses a reviewer acts on.
func AwaitingDecision(s Status) bool {
	return slices.Contains(awaitingDecision, s)
}
