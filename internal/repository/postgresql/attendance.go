package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

// openSessionWindow is how long a check-in may stay without a matching
// check-out before it counts as open.
const openSessionWindow = 24 * time.Hour

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

const attendanceSelect = `
	SELECT r.id, r.company_id, r.employee_id, r.event_type, r.status, r.recorded_at,
		   r.expected_time, r.late_minutes, r.early_minutes,
		   (r.event_type = 'CHECK_IN' AND r.recorded_at + $%d::interval <= $%d AND NOT EXISTS (
				SELECT 1 FROM attendance_records o
				WHERE o.employee_id = r.employee_id
				  AND o.event_type = 'CHECK_OUT'
				  AND o.recorded_at > r.recorded_at
				  AND o.recorded_at < r.recorded_at + $%d::interval
		   )) AS open_check_in
	FROM attendance_records r
`

func scanAttendance(row pgx.Row) (attendance.Record, error) {
	var rec attendance.Record
	err := row.Scan(
		&rec.ID, &rec.CompanyID, &rec.EmployeeID, &rec.Type, &rec.Status, &rec.Timestamp,
		&rec.ExpectedTime, &rec.LateMinutes, &rec.EarlyMinutes,
		&rec.OpenCheckIn,
	)
	return rec, err
}

// GetByID implements attendance.Repository.
func (a *attendanceRepository) GetByID(ctx context.Context, id string) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := fmt.Sprintf(attendanceSelect, 2, 3, 2) + ` WHERE r.id = $1`

	rec, err := scanAttendance(q.QueryRow(ctx, query, id, openSessionWindow, time.Now()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Record{}, attendance.ErrAttendanceNotFound
		}
		return attendance.Record{}, fmt.Errorf("failed to get attendance record: %w", err)
	}
	return rec, nil
}

// ListAnomalies implements attendance.Repository.
func (a *attendanceRepository) ListAnomalies(ctx context.Context, since, until time.Time) ([]attendance.Record, error) {
	if !until.After(since) {
		return nil, attendance.ErrInvalidWindow
	}
	q := GetQuerier(ctx, a.db)

	query := fmt.Sprintf(attendanceSelect, 3, 2, 3) + `
		WHERE r.recorded_at >= $1 AND r.recorded_at < $2
		  AND r.status <> 'EXCUSED'
		  AND (
				r.event_type = 'CHECK_IN'
			 OR r.status IN ('LATE', 'ABSENT')
			 OR (r.event_type = 'CHECK_OUT' AND COALESCE(r.early_minutes, 0) > 0)
		  )
		ORDER BY r.recorded_at
	`

	rows, err := q.Query(ctx, query, since, until, openSessionWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance anomalies: %w", err)
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		// Plain on-time check-ins only matter when left open.
		if rec.Type == attendance.EventCheckIn && rec.Status == attendance.StatusPresent && !rec.IsLate() && !rec.OpenCheckIn {
			continue
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
