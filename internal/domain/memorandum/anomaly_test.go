package memorandum

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/attendance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestAnomalies(t *testing.T) {
	tests := []struct {
		name string
		rec  attendance.Record
		want []Type
	}{
		{"late check-in", attendance.Record{Type: attendance.EventCheckIn, Status: attendance.StatusLate}, []Type{TypeLateArrival}},
		{"late minutes only", attendance.Record{Type: attendance.EventCheckIn, Status: attendance.StatusPresent, LateMinutes: intPtr(7)}, []Type{TypeLateArrival}},
		{"late and open", attendance.Record{Type: attendance.EventCheckIn, Status: attendance.StatusLate, OpenCheckIn: true}, []Type{TypeLateArrival, TypeMissedCheckout}},
		{"on time but open", attendance.Record{Type: attendance.EventCheckIn, Status: attendance.StatusPresent, OpenCheckIn: true}, []Type{TypeMissedCheckout}},
		{"early check-out", attendance.Record{Type: attendance.EventCheckOut, Status: attendance.StatusPresent, EarlyMinutes: intPtr(30)}, []Type{TypeEarlyDeparture}},
		{"absent", attendance.Record{Type: attendance.EventCheckIn, Status: attendance.StatusAbsent}, []Type{TypeAbsence}},
		{"excused", attendance.Record{Type: attendance.EventCheckIn, Status: attendance.StatusExcused, LateMinutes: intPtr(40)}, nil},
		{"break", attendance.Record{Type: attendance.EventBreakStart, Status: attendance.StatusPresent}, nil},
		{"normal check-out", attendance.Record{Type: attendance.EventCheckOut, Status: attendance.StatusPresent, EarlyMinutes: intPtr(0)}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Anomalies(tt.rec))
		})
	}
}

func TestNewFromAttendance_LateArrival(t *testing.T) {
	expected := "08:00"
	rec := attendance.Record{
		ID:           "att-1",
		CompanyID:    "co-1",
		EmployeeID:   "emp-7",
		Type:         attendance.EventCheckIn,
		Status:       attendance.StatusLate,
		Timestamp:    time.Date(2025, 3, 7, 8, 15, 0, 0, lima),
		ExpectedTime: &expected,
		LateMinutes:  intPtr(15),
	}

	m := NewFromAttendance(rec, TypeLateArrival, 3, lima, testNow)

	assert.Equal(t, StatusPending, m.Status)
	assert.Equal(t, "emp-7", m.EmployeeID())
	require.NotNil(t, m.AttendanceID)
	assert.Equal(t, "att-1", *m.AttendanceID)
	assert.Equal(t, "2025-03-07", m.IncidentDate.Format(time.DateOnly))
	assert.Equal(t, time.Date(2025, 3, 10, 23, 59, 59, 0, lima), m.SubsanationDeadline)
	require.NotNil(t, m.DelayMinutes)
	assert.Equal(t, 15, *m.DelayMinutes)
	assert.Nil(t, m.EarlyMinutes)
	require.NotNil(t, m.ActualTime)
	assert.Equal(t, "08:15", *m.ActualTime)
	assert.Equal(t, "Llegada tarde de 15 minutos el 07/03/2025 (esperado 08:00, registrado 08:15)", m.Description)
}

func TestNewFromAttendance_Absence(t *testing.T) {
	rec := attendance.Record{
		ID:         "att-2",
		CompanyID:  "co-1",
		EmployeeID: "emp-7",
		Type:       attendance.EventCheckIn,
		Status:     attendance.StatusAbsent,
		Timestamp:  time.Date(2025, 3, 7, 0, 0, 0, 0, lima),
	}

	m := NewFromAttendance(rec, TypeAbsence, 3, lima, testNow)

	assert.Nil(t, m.ActualTime)
	assert.Nil(t, m.DelayMinutes)
	assert.Equal(t, "Ausencia injustificada el 07/03/2025", m.Description)
}
