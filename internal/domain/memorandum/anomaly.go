package memorandum

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/attendance"
)

// Anomalies lists the memorandum types an attendance record gives rise to.
func Anomalies(r attendance.Record) []Type {
	switch r.Status {
	case attendance.StatusExcused:
		return nil
	case attendance.StatusAbsent:
		return []Type{TypeAbsence}
	}

	var out []Type
	switch r.Type {
	case attendance.EventCheckIn:
		if r.IsLate() {
			out = append(out, TypeLateArrival)
		}
		if r.OpenCheckIn {
			out = append(out, TypeMissedCheckout)
		}
	case attendance.EventCheckOut:
		if r.LeftEarly() {
			out = append(out, TypeEarlyDeparture)
		}
	}
	return out
}

// NewFromAttendance builds a pending memorandum for one anomaly. The deadline
// is the end of the incident day plus subsanationDays, in loc.
func NewFromAttendance(r attendance.Record, t Type, subsanationDays int, loc *time.Location, now time.Time) Memorandum {
	incident := r.Timestamp.In(loc)
	y, mo, d := incident.Date()
	attendanceID := r.ID

	m := Memorandum{
		CompanyID:           r.CompanyID,
		AttendanceID:        &attendanceID,
		Type:                t,
		Employee:            RefID[EmployeeSummary](r.EmployeeID),
		IncidentDate:        time.Date(y, mo, d, 0, 0, 0, 0, time.UTC),
		ExpectedTime:        r.ExpectedTime,
		Status:              StatusPending,
		SubsanationDeadline: EndOfDay(incident.AddDate(0, 0, subsanationDays), loc),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if t != TypeAbsence && t != TypeMissedCheckout {
		actual := r.ActualTime(loc)
		m.ActualTime = &actual
	}
	switch t {
	case TypeLateArrival:
		m.DelayMinutes = r.LateMinutes
	case TypeEarlyDeparture:
		m.EarlyMinutes = r.EarlyMinutes
	}
	m.Description = describe(m, incident)
	return m
}

func describe(m Memorandum, incident time.Time) string {
	day := incident.Format("02/01/2006")
	switch m.Type {
	case TypeLateArrival:
		if m.DelayMinutes != nil {
			return fmt.Sprintf("Llegada tarde de %d minutos el %s%s", *m.DelayMinutes, day, expectedSuffix(m))
		}
		return fmt.Sprintf("Llegada tarde el %s%s", day, expectedSuffix(m))
	case TypeEarlyDeparture:
		if m.EarlyMinutes != nil {
			return fmt.Sprintf("Salida anticipada de %d minutos el %s%s", *m.EarlyMinutes, day, expectedSuffix(m))
		}
		return fmt.Sprintf("Salida anticipada el %s%s", day, expectedSuffix(m))
	case TypeAbsence:
		return fmt.Sprintf("Ausencia injustificada el %s", day)
	case TypeMissedCheckout:
		return fmt.Sprintf("No se registró la salida el %s", day)
	}
	return fmt.Sprintf("Incidencia de asistencia el %s", day)
}

func expectedSuffix(m Memorandum) string {
	if m.ExpectedTime == nil || m.ActualTime == nil {
		return ""
	}
	return fmt.Sprintf(" (esperado %s, registrado %s)", *m.ExpectedTime, *m.ActualTime)
}
