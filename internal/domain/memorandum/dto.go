package memorandum

import (
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/validator"
)

const (
	DefaultMinJustificationLength = 20
	DefaultMaxAttachments         = 5
	MaxPageLimit                  = 100
)

var statusNames = "PENDIENTE, SUBSANADO, EN_REVISION, APROBADO, RECHAZADO, EXPIRADO, CERRADO"
var typeNames = "LLEGADA_TARDE, SALIDA_ANTICIPADA, AUSENCIA, SALIDA_OMITIDA"

// EmployeeFilter narrows an employee's own list. Nil fields do not constrain.
type EmployeeFilter struct {
	Status *string `json:"status,omitempty"`
	Type   *string `json:"type,omitempty"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func (f *EmployeeFilter) Validate() error {
	var errs validator.ValidationErrors

	errs = append(errs, validatePage(&f.Page, &f.Limit)...)
	errs = append(errs, validateStatusType(f.Status, f.Type)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// AdminFilter narrows the cross-employee list. Every field is independent
// and filters are conjunctive.
type AdminFilter struct {
	AreaID     *string `json:"area_id,omitempty"`
	CargoID    *string `json:"cargo_id,omitempty"`
	EmployeeID *string `json:"employee_id,omitempty"`
	Status     *string `json:"status,omitempty"`
	Type       *string `json:"type,omitempty"`
	StartDate  *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate    *string `json:"end_date,omitempty"`   // YYYY-MM-DD

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func (f AdminFilter) HasDateRange() bool {
	return f.StartDate != nil && *f.StartDate != "" && f.EndDate != nil && *f.EndDate != ""
}

func (f *AdminFilter) Validate() error {
	var errs validator.ValidationErrors

	errs = append(errs, validatePage(&f.Page, &f.Limit)...)
	errs = append(errs, validateStatusType(f.Status, f.Type)...)

	var start, end time.Time
	var startOK, endOK bool
	if f.StartDate != nil && *f.StartDate != "" {
		if start, startOK = validator.IsValidDate(*f.StartDate); !startOK {
			errs = append(errs, validator.ValidationError{
				Field:   "start_date",
				Message: "start_date must be in YYYY-MM-DD format",
			})
		}
	}
	if f.EndDate != nil && *f.EndDate != "" {
		if end, endOK = validator.IsValidDate(*f.EndDate); !endOK {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "end_date must be in YYYY-MM-DD format",
			})
		}
	}
	if startOK && endOK && end.Before(start) {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must not be before start_date",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validatePage(page, limit *int) validator.ValidationErrors {
	var errs validator.ValidationErrors
	if *page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if *page == 0 {
		*page = 1
	}
	if *limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if *limit == 0 {
		*limit = 20
	}
	if *limit > MaxPageLimit {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: fmt.Sprintf("limit must not exceed %d", MaxPageLimit),
		})
	}
	return errs
}

func validateStatusType(status, typ *string) validator.ValidationErrors {
	var errs validator.ValidationErrors
	if status != nil && *status != "" {
		st, err := ParseStatus(*status)
		if err != nil {
			errs = append(errs, validator.ValidationError{
				Field:   "status",
				Message: "status must be one of: " + statusNames,
			})
		} else {
			*status = string(st)
		}
	}
	if typ != nil && *typ != "" {
		*typ = strings.ToUpper(strings.TrimSpace(*typ))
		if !Type(*typ).IsValid() {
			errs = append(errs, validator.ValidationError{
				Field:   "type",
				Message: "type must be one of: " + typeNames,
			})
		}
	}
	return errs
}

type SubmitJustificationRequest struct {
	Justification string    `json:"justification"`
	Attachments   []FileRef `json:"attachments,omitempty"`
}

// Validate checks the request against the configured minimum length and
// attachment cap.
func (r *SubmitJustificationRequest) Validate(minLength, maxAttachments int) error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Justification) {
		errs = append(errs, validator.ValidationError{
			Field:   "justification",
			Message: "justification is required",
		})
	} else if !validator.MinLength(r.Justification, minLength) {
		errs = append(errs, validator.ValidationError{
			Field:   "justification",
			Message: fmt.Sprintf("justification must be at least %d characters", minLength),
		})
	}
	if len(r.Justification) > 4000 {
		errs = append(errs, validator.ValidationError{
			Field:   "justification",
			Message: "justification must not exceed 4000 characters",
		})
	}
	errs = append(errs, validateAttachments(r.Attachments, maxAttachments)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateAttachments(files []FileRef, maxFiles int) validator.ValidationErrors {
	var errs validator.ValidationErrors
	if maxFiles > 0 && len(files) > maxFiles {
		errs = append(errs, validator.ValidationError{
			Field:   "attachments",
			Message: fmt.Sprintf("no more than %d attachments are allowed", maxFiles),
		})
	}
	for i, f := range files {
		if validator.IsEmpty(f.URL) {
			errs = append(errs, validator.ValidationError{
				Field:   fmt.Sprintf("attachments[%d].url", i),
				Message: "url is required",
			})
		}
	}
	return errs
}

type SubmitReviewRequest struct {
	Approved      bool   `json:"approved"`
	Comments      string `json:"comments"`
	AffectsRecord bool   `json:"affects_record"`
}

func (r *SubmitReviewRequest) Validate() error {
	var errs validator.ValidationErrors

	if !r.Approved && validator.IsEmpty(r.Comments) {
		errs = append(errs, validator.ValidationError{
			Field:   "comments",
			Message: "comments are required when rejecting",
		})
	}
	if len(r.Comments) > 2000 {
		errs = append(errs, validator.ValidationError{
			Field:   "comments",
			Message: "comments must not exceed 2000 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// JustifyOnBehalfRequest is filed by an administrator for an employee who
// cannot submit their own justification.
type JustifyOnBehalfRequest struct {
	Justification string    `json:"justification"`
	Attachments   []FileRef `json:"attachments,omitempty"`
}

func (r *JustifyOnBehalfRequest) Validate(minLength, maxAttachments int) error {
	inner := SubmitJustificationRequest{Justification: r.Justification, Attachments: r.Attachments}
	return inner.Validate(minLength, maxAttachments)
}

type CloseRequest struct {
	Comments string `json:"comments,omitempty"`
}

func (r *CloseRequest) Validate() error {
	if len(r.Comments) > 2000 {
		return validator.ValidationErrors{{
			Field:   "comments",
			Message: "comments must not exceed 2000 characters",
		}}
	}
	return nil
}

type MemorandumResponse struct {
	ID                    string               `json:"id"`
	Code                  string               `json:"memorandum_code"`
	Type                  Type                 `json:"type"`
	Status                Status               `json:"status"`
	Employee              Ref[EmployeeSummary] `json:"employee"`
	AttendanceID          *string              `json:"attendance_id,omitempty"`
	IncidentDate          string               `json:"incident_date"`
	ExpectedTime          *string              `json:"expected_time,omitempty"`
	ActualTime            *string              `json:"actual_time,omitempty"`
	DelayMinutes          *int                 `json:"delay_minutes,omitempty"`
	EarlyMinutes          *int                 `json:"early_minutes,omitempty"`
	Description           string               `json:"description"`
	SubsanationDeadline   string               `json:"subsanation_deadline"`
	EmployeeJustification *string              `json:"employee_justification,omitempty"`
	JustifiedAt           *string              `json:"justified_at,omitempty"`
	Attachments           []FileRef            `json:"attachments,omitempty"`
	ReviewComments        *string              `json:"review_comments,omitempty"`
	ReviewedBy            *string              `json:"reviewed_by,omitempty"`
	ReviewDate            *string              `json:"review_date,omitempty"`
	AffectsRecord         bool                 `json:"affects_record"`
	CreatedAt             string               `json:"created_at"`
	UpdatedAt             string               `json:"updated_at"`

	// Derived at read time
	DaysRemaining *int             `json:"days_remaining,omitempty"`
	Warning       *DeadlineWarning `json:"deadline_warning,omitempty"`
	CanBeSubsaned bool             `json:"can_be_subsaned"`
	CanBeReviewed bool             `json:"can_be_reviewed"`
}

type ListMemorandumResponse struct {
	TotalCount int64                `json:"total_count"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	TotalPages int                  `json:"total_pages"`
	Showing    string               `json:"showing"`
	Memoranda  []MemorandumResponse `json:"memoranda"`
}

type EventResponse struct {
	ID         string  `json:"id"`
	Event      Event   `json:"event"`
	FromStatus *Status `json:"from_status,omitempty"`
	ToStatus   Status  `json:"to_status"`
	ActorID    *string `json:"actor_id,omitempty"`
	Comment    *string `json:"comment,omitempty"`
	OccurredAt string  `json:"occurred_at"`
}

// NewMemorandumResponse renders m with its effective status as of now.
func NewMemorandumResponse(m Memorandum, p Policy, now time.Time) MemorandumResponse {
	m = p.WithEffectiveStatus(m, now)

	resp := MemorandumResponse{
		ID:                    m.ID,
		Code:                  m.Code,
		Type:                  m.Type,
		Status:                m.Status,
		Employee:              m.Employee,
		AttendanceID:          m.AttendanceID,
		IncidentDate:          m.IncidentDate.Format(time.DateOnly),
		ExpectedTime:          m.ExpectedTime,
		ActualTime:            m.ActualTime,
		DelayMinutes:          m.DelayMinutes,
		EarlyMinutes:          m.EarlyMinutes,
		Description:           m.Description,
		SubsanationDeadline:   m.SubsanationDeadline.Format(time.RFC3339),
		EmployeeJustification: m.EmployeeJustification,
		JustifiedAt:           formatTimePtr(m.JustifiedAt),
		Attachments:           m.Attachments,
		ReviewComments:        m.ReviewComments,
		ReviewedBy:            m.ReviewedBy,
		ReviewDate:            formatTimePtr(m.ReviewDate),
		AffectsRecord:         m.AffectsRecord,
		CreatedAt:             m.CreatedAt.Format(time.RFC3339),
		UpdatedAt:             m.UpdatedAt.Format(time.RFC3339),
		CanBeSubsaned:         p.CanBeSubsanedAt(m, now),
		CanBeReviewed:         p.CanBeReviewed(m),
	}

	if m.Status == StatusPending {
		days := p.Calculator().DaysRemainingAt(m.SubsanationDeadline, now)
		warning := p.Calculator().WarningAt(m.SubsanationDeadline, now)
		resp.DaysRemaining = &days
		resp.Warning = &warning
	}
	return resp
}

// ToMemorandum parses a response received over the wire.
func (r MemorandumResponse) ToMemorandum() (Memorandum, error) {
	m := Memorandum{
		ID:                    r.ID,
		Code:                  r.Code,
		Type:                  r.Type,
		Status:                r.Status,
		Employee:              r.Employee,
		AttendanceID:          r.AttendanceID,
		ExpectedTime:          r.ExpectedTime,
		ActualTime:            r.ActualTime,
		DelayMinutes:          r.DelayMinutes,
		EarlyMinutes:          r.EarlyMinutes,
		Description:           r.Description,
		EmployeeJustification: r.EmployeeJustification,
		Attachments:           r.Attachments,
		ReviewComments:        r.ReviewComments,
		ReviewedBy:            r.ReviewedBy,
		AffectsRecord:         r.AffectsRecord,
	}

	var err error
	if m.IncidentDate, err = parseDateOrTime(r.IncidentDate); err != nil {
		return Memorandum{}, fmt.Errorf("incident_date: %w", err)
	}
	if m.SubsanationDeadline, err = time.Parse(time.RFC3339, r.SubsanationDeadline); err != nil {
		return Memorandum{}, fmt.Errorf("subsanation_deadline: %w", err)
	}
	if m.JustifiedAt, err = parseTimePtr(r.JustifiedAt); err != nil {
		return Memorandum{}, fmt.Errorf("justified_at: %w", err)
	}
	if m.ReviewDate, err = parseTimePtr(r.ReviewDate); err != nil {
		return Memorandum{}, fmt.Errorf("review_date: %w", err)
	}
	if r.CreatedAt != "" {
		if m.CreatedAt, err = time.Parse(time.RFC3339, r.CreatedAt); err != nil {
			return Memorandum{}, fmt.Errorf("created_at: %w", err)
		}
	}
	if r.UpdatedAt != "" {
		if m.UpdatedAt, err = time.Parse(time.RFC3339, r.UpdatedAt); err != nil {
			return Memorandum{}, fmt.Errorf("updated_at: %w", err)
		}
	}
	return m, nil
}

func NewEventResponse(e TransitionEvent) EventResponse {
	return EventResponse{
		ID:         e.ID,
		Event:      e.Event,
		FromStatus: e.FromStatus,
		ToStatus:   e.ToStatus,
		ActorID:    e.ActorID,
		Comment:    e.Comment,
		OccurredAt: e.OccurredAt.Format(time.RFC3339),
	}
}

func (r EventResponse) ToEvent(memorandumID string) (TransitionEvent, error) {
	at, err := time.Parse(time.RFC3339, r.OccurredAt)
	if err != nil {
		return TransitionEvent{}, fmt.Errorf("occurred_at: %w", err)
	}
	return TransitionEvent{
		ID:           r.ID,
		MemorandumID: memorandumID,
		Event:        r.Event,
		FromStatus:   r.FromStatus,
		ToStatus:     r.ToStatus,
		ActorID:      r.ActorID,
		Comment:      r.Comment,
		OccurredAt:   at,
	}, nil
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func parseTimePtr(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseDateOrTime(s string) (time.Time, error) {
	if t, ok := validator.IsValidDate(s); ok {
		return t, nil
	}
	if t, ok := validator.IsValidDateTime(s); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
