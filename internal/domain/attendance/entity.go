package attendance

import (
	"time"
)

type EventType string

const (
	EventCheckIn    EventType = "CHECK_IN"
	EventCheckOut   EventType = "CHECK_OUT"
	EventBreakStart EventType = "BREAK_START"
	EventBreakEnd   EventType = "BREAK_END"
)

type Status string

const (
	StatusPresent Status = "PRESENT"
	StatusLate    Status = "LATE"
	StatusAbsent  Status = "ABSENT"
	StatusExcused Status = "EXCUSED"
)

// Record is a single clock event. This service reads records; it never
// writes them.
type Record struct {
	ID           string
	CompanyID    string
	EmployeeID   string
	Type         EventType
	Status       Status
	Timestamp    time.Time
	ExpectedTime *string // HH:MM
	LateMinutes  *int
	EarlyMinutes *int

	// Set on a CHECK_IN with no CHECK_OUT later the same day.
	OpenCheckIn bool
}

// ActualTime is the clock time of the event in loc.
func (r Record) ActualTime(loc *time.Location) string {
	return r.Timestamp.In(loc).Format("15:04")
}

func (r Record) IsLate() bool {
	return r.Status == StatusLate || (r.LateMinutes != nil && *r.LateMinutes > 0)
}

func (r Record) LeftEarly() bool {
	return r.Type == EventCheckOut && r.EarlyMinutes != nil && *r.EarlyMinutes > 0
}
