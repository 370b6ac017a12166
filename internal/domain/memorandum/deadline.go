package memorandum

import (
	"fmt"
	"math"
	"time"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/clock"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityUrgent  Severity = "urgent"
	SeverityExpired Severity = "expired"
)

// Band thresholds in whole days remaining.
const (
	urgentMaxDays  = 2
	expiredMaxDays = 0
)

type DeadlineWarning struct {
	Severity Severity `json:"severity"`
	Days     int      `json:"days"`
	Message  string   `json:"message"`
}

// DeadlineCalculator turns a stored deadline into urgency information.
// All day counts are calendar days in loc.
type DeadlineCalculator struct {
	clock clock.Clock
	loc   *time.Location
}

func NewDeadlineCalculator(c clock.Clock, loc *time.Location) DeadlineCalculator {
	if c == nil {
		c = clock.Real()
	}
	if loc == nil {
		loc = time.UTC
	}
	return DeadlineCalculator{clock: c, loc: loc}
}

func (d DeadlineCalculator) Now() time.Time {
	return d.clock.Now()
}

func (d DeadlineCalculator) Location() *time.Location {
	return d.loc
}

func (d DeadlineCalculator) DaysRemaining(deadline time.Time) int {
	return d.DaysRemainingAt(deadline, d.clock.Now())
}

// DaysRemainingAt counts calendar days from now's date to deadline's date.
func (d DeadlineCalculator) DaysRemainingAt(deadline, now time.Time) int {
	return calendarDay(deadline.In(d.loc)) - calendarDay(now.In(d.loc))
}

// HoursRemaining is negative once the deadline has passed.
func (d DeadlineCalculator) HoursRemaining(deadline time.Time) int {
	return d.HoursRemainingAt(deadline, d.clock.Now())
}

func (d DeadlineCalculator) HoursRemainingAt(deadline, now time.Time) int {
	return int(math.Floor(deadline.Sub(now).Hours()))
}

func (d DeadlineCalculator) Warning(deadline time.Time) DeadlineWarning {
	return d.WarningAt(deadline, d.clock.Now())
}

func (d DeadlineCalculator) WarningAt(deadline, now time.Time) DeadlineWarning {
	days := d.DaysRemainingAt(deadline, now)
	w := DeadlineWarning{Severity: SeverityForDays(days), Days: days}

	switch {
	case days > urgentMaxDays:
		w.Message = fmt.Sprintf("Tienes %d días para subsanar", days)
	case days > 1:
		w.Message = fmt.Sprintf("Urgente: quedan %d días para subsanar", days)
	case days == 1:
		w.Message = "Urgente: queda 1 día para subsanar"
	case days == 0 && !now.After(deadline):
		w.Message = "El plazo de subsanación vence hoy"
	default:
		w.Message = "El plazo de subsanación ha vencido"
	}
	return w
}

// SeverityForDays maps days remaining to the three urgency bands.
func SeverityForDays(days int) Severity {
	switch {
	case days > urgentMaxDays:
		return SeverityInfo
	case days > expiredMaxDays:
		return SeverityUrgent
	default:
		return SeverityExpired
	}
}

// EndOfDay returns the last instant of t's calendar day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, dd := t.In(loc).Date()
	return time.Date(y, m, dd, 23, 59, 59, 0, loc)
}

// calendarDay is a day ordinal that ignores DST and zone offsets.
func calendarDay(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}
