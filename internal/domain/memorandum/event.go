package memorandum

import "time"

// TransitionEvent is one row of a memorandum's audit trail. Rows are only
// ever appended.
type TransitionEvent struct {
	ID           string
	MemorandumID string
	CompanyID    string
	EmployeeID   string
	Code         string
	Event        Event
	FromStatus   *Status
	ToStatus     Status
	ActorID      *string
	Comment      *string
	OccurredAt   time.Time
}

func NewTransitionEvent(m Memorandum, event Event, from *Status, to Status, actor Actor, comment *string, at time.Time) TransitionEvent {
	e := TransitionEvent{
		MemorandumID: m.ID,
		CompanyID:    m.CompanyID,
		EmployeeID:   m.EmployeeID(),
		Code:         m.Code,
		Event:        event,
		FromStatus:   from,
		ToStatus:     to,
		Comment:      comment,
		OccurredAt:   at,
	}
	if !actor.IsSystem() {
		id := actor.UserID
		e.ActorID = &id
	}
	return e
}

// TransitionMessage is the payload published for a transition.
type TransitionMessage struct {
	EventResponse
	MemorandumID string `json:"memorandum_id"`
	Code         string `json:"memorandum_code"`
	CompanyID    string `json:"company_id"`
	EmployeeID   string `json:"employee_id"`
}

func NewTransitionMessage(e TransitionEvent) TransitionMessage {
	return TransitionMessage{
		EventResponse: NewEventResponse(e),
		MemorandumID:  e.MemorandumID,
		Code:          e.Code,
		CompanyID:     e.CompanyID,
		EmployeeID:    e.EmployeeID,
	}
}

// Stream topics. Reviewers follow their company, employees follow themselves.
func CompanyTopic(companyID string) string {
	return "company:" + companyID
}

func EmployeeTopic(employeeID string) string {
	return "employee:" + employeeID
}
