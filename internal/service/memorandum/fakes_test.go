package memorandum

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
)

// fakeMemorandumRepo mirrors the conditional semantics of the SQL repository.
type fakeMemorandumRepo struct {
	mu   sync.Mutex
	rows map[string]memorandum.Memorandum
	seq  int

	// beforeTransition runs after the service read the row and before the
	// conditional update, to simulate a concurrent writer.
	beforeTransition func(rows map[string]memorandum.Memorandum)
}

func newFakeMemorandumRepo(ms ...memorandum.Memorandum) *fakeMemorandumRepo {
	r := &fakeMemorandumRepo{rows: map[string]memorandum.Memorandum{}}
	for _, m := range ms {
		r.rows[m.ID] = m
	}
	return r
}

func (r *fakeMemorandumRepo) get(id string) memorandum.Memorandum {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id]
}

func (r *fakeMemorandumRepo) Create(_ context.Context, m memorandum.Memorandum) (memorandum.Memorandum, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.rows {
		if existing.AttendanceID != nil && m.AttendanceID != nil && *existing.AttendanceID == *m.AttendanceID && existing.Type == m.Type {
			return memorandum.Memorandum{}, memorandum.ErrDuplicateAnomaly
		}
	}
	r.seq++
	m.ID = fmt.Sprintf("gen-%d", r.seq)
	m.Code = fmt.Sprintf("MEM-%d-%06d", m.IncidentDate.Year(), r.seq)
	if m.Attachments == nil {
		m.Attachments = []memorandum.FileRef{}
	}
	r.rows[m.ID] = m
	return m, nil
}

func (r *fakeMemorandumRepo) GetByID(_ context.Context, id string, companyID string) (memorandum.Memorandum, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.rows[id]
	if !ok || m.CompanyID != companyID {
		return memorandum.Memorandum{}, memorandum.ErrMemorandumNotFound
	}
	return m, nil
}

func (r *fakeMemorandumRepo) filter(companyID string, keep func(memorandum.Memorandum) bool) []memorandum.Memorandum {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []memorandum.Memorandum
	for _, m := range r.rows {
		if m.CompanyID == companyID && keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IncidentDate.After(out[j].IncidentDate) })
	return out
}

func effective(m memorandum.Memorandum, now time.Time) string {
	if m.Status == memorandum.StatusPending && m.SubsanationDeadline.Before(now) {
		return string(memorandum.StatusExpired)
	}
	return string(m.Status)
}

func (r *fakeMemorandumRepo) List(_ context.Context, companyID string, f memorandum.AdminFilter, now time.Time) ([]memorandum.Memorandum, int64, error) {
	out := r.filter(companyID, func(m memorandum.Memorandum) bool {
		if f.EmployeeID != nil && *f.EmployeeID != m.EmployeeID() {
			return false
		}
		if f.Status != nil && *f.Status != effective(m, now) {
			return false
		}
		return f.Type == nil || *f.Type == string(m.Type)
	})
	return out, int64(len(out)), nil
}

func (r *fakeMemorandumRepo) ListByEmployee(_ context.Context, companyID string, employeeID string, f memorandum.EmployeeFilter, now time.Time) ([]memorandum.Memorandum, int64, error) {
	out := r.filter(companyID, func(m memorandum.Memorandum) bool {
		if m.EmployeeID() != employeeID {
			return false
		}
		if f.Status != nil && *f.Status != effective(m, now) {
			return false
		}
		return f.Type == nil || *f.Type == string(m.Type)
	})
	return out, int64(len(out)), nil
}

func (r *fakeMemorandumRepo) Transition(_ context.Context, u memorandum.TransitionUpdate) (memorandum.Memorandum, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.beforeTransition != nil {
		r.beforeTransition(r.rows)
		r.beforeTransition = nil
	}

	m, ok := r.rows[u.ID]
	switch {
	case !ok, m.CompanyID != u.CompanyID, !slices.Contains(u.From, m.Status):
		return memorandum.Memorandum{}, memorandum.ErrStaleTransition
	case u.BeforeDeadline && u.Now.After(m.SubsanationDeadline):
		return memorandum.Memorandum{}, memorandum.ErrStaleTransition
	case u.NoJustification && m.EmployeeJustification != nil:
		return memorandum.Memorandum{}, memorandum.ErrStaleTransition
	case u.EmployeeID != nil && *u.EmployeeID != m.EmployeeID():
		return memorandum.Memorandum{}, memorandum.ErrStaleTransition
	}

	m.Status = u.To
	m.UpdatedAt = u.Now
	if u.Justification != nil {
		m.EmployeeJustification = u.Justification
	}
	if u.JustifiedAt != nil {
		at := *u.JustifiedAt
		m.JustifiedAt = &at
	}
	if u.Attachments != nil {
		m.Attachments = u.Attachments
	}
	if u.ReviewComments != nil {
		m.ReviewComments = u.ReviewComments
	}
	if u.ReviewedBy != nil {
		m.ReviewedBy = u.ReviewedBy
	}
	if u.ReviewDate != nil {
		at := *u.ReviewDate
		m.ReviewDate = &at
	}
	if u.AffectsRecord != nil && *u.AffectsRecord {
		m.AffectsRecord = true
	}
	r.rows[m.ID] = m
	return m, nil
}

func (r *fakeMemorandumRepo) ExpireOverdue(_ context.Context, now time.Time, limit int) ([]memorandum.Memorandum, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []memorandum.Memorandum
	for id, m := range r.rows {
		if len(out) == limit {
			break
		}
		if m.Status == memorandum.StatusPending && m.SubsanationDeadline.Before(now) {
			m.Status = memorandum.StatusExpired
			m.UpdatedAt = now
			r.rows[id] = m
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMemorandumRepo) ExistsForAttendance(_ context.Context, attendanceID string, t memorandum.Type) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.rows {
		if m.AttendanceID != nil && *m.AttendanceID == attendanceID && m.Type == t {
			return true, nil
		}
	}
	return false, nil
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events []memorandum.TransitionEvent
}

func (r *fakeEventRepo) Append(_ context.Context, e memorandum.TransitionEvent) (memorandum.TransitionEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = fmt.Sprintf("ev-%d", len(r.events)+1)
	r.events = append(r.events, e)
	return e, nil
}

func (r *fakeEventRepo) ListByMemorandum(_ context.Context, memorandumID string, companyID string) ([]memorandum.TransitionEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []memorandum.TransitionEvent
	for _, e := range r.events {
		if e.MemorandumID == memorandumID && e.CompanyID == companyID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) forMemorandum(id string) []memorandum.TransitionEvent {
	out, _ := r.ListByMemorandum(context.Background(), id, companyID)
	return out
}

type fakeAttendanceRepo struct {
	records []attendance.Record
}

func (r *fakeAttendanceRepo) GetByID(_ context.Context, id string) (attendance.Record, error) {
	for _, rec := range r.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return attendance.Record{}, attendance.ErrAttendanceNotFound
}

func (r *fakeAttendanceRepo) ListAnomalies(_ context.Context, since, until time.Time) ([]attendance.Record, error) {
	var out []attendance.Record
	for _, rec := range r.records {
		if !rec.Timestamp.Before(since) && rec.Timestamp.Before(until) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// passthroughTransactor runs fn directly; the fakes are already atomic.
type passthroughTransactor struct{}

func (passthroughTransactor) WithinTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []memorandum.TransitionEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, e memorandum.TransitionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *fakePublisher) Close() error { return nil }
