package memorandum

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Type string

const (
	TypeLateArrival    Type = "LLEGADA_TARDE"
	TypeEarlyDeparture Type = "SALIDA_ANTICIPADA"
	TypeAbsence        Type = "AUSENCIA"
	TypeMissedCheckout Type = "SALIDA_OMITIDA"
)

var validTypes = []Type{TypeLateArrival, TypeEarlyDeparture, TypeAbsence, TypeMissedCheckout}

func (t Type) IsValid() bool {
	for _, v := range validTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Label returns the display name of the anomaly.
func (t Type) Label() string {
	switch t {
	case TypeLateArrival:
		return "Llegada tarde"
	case TypeEarlyDeparture:
		return "Salida anticipada"
	case TypeAbsence:
		return "Ausencia"
	case TypeMissedCheckout:
		return "Salida omitida"
	default:
		return string(t)
	}
}

type Status string

const (
	StatusPending   Status = "PENDIENTE"
	StatusSubsaned  Status = "SUBSANADO"
	StatusInReview  Status = "EN_REVISION"
	StatusApproved  Status = "APROBADO"
	StatusRejected  Status = "RECHAZADO"
	StatusExpired   Status = "EXPIRADO"
	StatusClosed    Status = "CERRADO"
	statusInReviewA Status = "EN_REVISIÓN"
)

var validStatuses = []Status{
	StatusPending, StatusSubsaned, StatusInReview,
	StatusApproved, StatusRejected, StatusExpired, StatusClosed,
}

// ParseStatus normalizes a wire value. The accented spelling of EN_REVISION is
// accepted because older records carry it.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if st == statusInReviewA {
		return StatusInReview, nil
	}
	for _, v := range validStatuses {
		if v == st {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown memorandum status %q", s)
}

func (s Status) IsValid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	st, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

type Area struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Cargo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type EmployeeSummary struct {
	ID           string     `json:"id"`
	FullName     string     `json:"full_name"`
	EmployeeCode string     `json:"employee_code,omitempty"`
	Area         Ref[Area]  `json:"area"`
	Cargo        Ref[Cargo] `json:"cargo"`
}

// FileRef points at an attachment stored elsewhere.
type FileRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Memorandum struct {
	ID                    string
	Code                  string
	CompanyID             string
	AttendanceID          *string
	Type                  Type
	Employee              Ref[EmployeeSummary]
	IncidentDate          time.Time
	ExpectedTime          *string
	ActualTime            *string
	DelayMinutes          *int
	EarlyMinutes          *int
	Description           string
	Status                Status
	SubsanationDeadline   time.Time
	EmployeeJustification *string
	JustifiedAt           *time.Time
	Attachments           []FileRef
	ReviewComments        *string
	ReviewedBy            *string
	ReviewDate            *time.Time
	AffectsRecord         bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (m Memorandum) EmployeeID() string {
	return m.Employee.ID()
}

func (m Memorandum) HasJustification() bool {
	return m.EmployeeJustification != nil && strings.TrimSpace(*m.EmployeeJustification) != ""
}

func (m Memorandum) IsReviewed() bool {
	return m.ReviewDate != nil
}

// Ref is either a bare id or an expanded value.
type Ref[T any] struct {
	id       string
	value    T
	expanded bool
}

type identifiable interface {
	Area | Cargo | EmployeeSummary
}

func RefID[T any](id string) Ref[T] {
	return Ref[T]{id: id}
}

func Expanded[T identifiable](v T) Ref[T] {
	return Ref[T]{id: idOf(v), value: v, expanded: true}
}

func idOf[T identifiable](v T) string {
	switch x := any(v).(type) {
	case Area:
		return x.ID
	case Cargo:
		return x.ID
	case EmployeeSummary:
		return x.ID
	}
	return ""
}

func (r Ref[T]) ID() string {
	return r.id
}

// Value returns the expanded value, if the reference carries one.
func (r Ref[T]) Value() (T, bool) {
	return r.value, r.expanded
}

func (r Ref[T]) IsZero() bool {
	return r.id == "" && !r.expanded
}

func (r Ref[T]) MarshalJSON() ([]byte, error) {
	if r.expanded {
		return json.Marshal(r.value)
	}
	if r.id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.id)
}

func (r *Ref[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Ref[T]{}
		return nil
	}
	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Ref[T]{id: id}
		return nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	*r = Ref[T]{id: probe.ID, value: v, expanded: true}
	return nil
}
