package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type memorandumRepository struct {
	db *database.DB
}

func NewMemorandumRepository(db *database.DB) memorandum.MemorandumRepository {
	return &memorandumRepository{db: db}
}

const memorandumSelect = `
	SELECT m.id, m.code, m.company_id, m.attendance_id, m.type,
		   m.employee_id, e.full_name, e.employee_code,
		   a.id, a.name, c.id, c.name,
		   m.incident_date, m.expected_time, m.actual_time, m.delay_minutes, m.early_minutes,
		   m.description, m.status, m.subsanation_deadline,
		   m.employee_justification, m.justified_at, m.attachments,
		   m.review_comments, m.reviewed_by, m.review_date, m.affects_record,
		   m.created_at, m.updated_at
	FROM memoranda m
	INNER JOIN employees e ON e.id = m.employee_id
	LEFT JOIN areas a ON a.id = e.area_id
	LEFT JOIN cargos c ON c.id = e.cargo_id
`

const memorandumFrom = `
	FROM memoranda m
	INNER JOIN employees e ON e.id = m.employee_id
`

// effectiveStatusSQL mirrors Policy.EffectiveStatusAt for filtering.
const effectiveStatusSQL = `(CASE WHEN m.status = 'PENDIENTE' AND m.subsanation_deadline < $%d THEN 'EXPIRADO' ELSE m.status END)`

func scanMemorandum(row pgx.Row) (memorandum.Memorandum, error) {
	var (
		m                    memorandum.Memorandum
		employeeID, fullName string
		employeeCode         *string
		areaID, areaName     *string
		cargoID, cargoName   *string
		status               string
		attachments          []memorandum.FileRef
	)

	err := row.Scan(
		&m.ID, &m.Code, &m.CompanyID, &m.AttendanceID, &m.Type,
		&employeeID, &fullName, &employeeCode,
		&areaID, &areaName, &cargoID, &cargoName,
		&m.IncidentDate, &m.ExpectedTime, &m.ActualTime, &m.DelayMinutes, &m.EarlyMinutes,
		&m.Description, &status, &m.SubsanationDeadline,
		&m.EmployeeJustification, &m.JustifiedAt, &attachments,
		&m.ReviewComments, &m.ReviewedBy, &m.ReviewDate, &m.AffectsRecord,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return memorandum.Memorandum{}, err
	}

	st, err := memorandum.ParseStatus(status)
	if err != nil {
		return memorandum.Memorandum{}, err
	}
	m.Status = st
	m.Attachments = attachments

	summary := memorandum.EmployeeSummary{ID: employeeID, FullName: fullName}
	if employeeCode != nil {
		summary.EmployeeCode = *employeeCode
	}
	if areaID != nil && areaName != nil {
		summary.Area = memorandum.Expanded(memorandum.Area{ID: *areaID, Name: *areaName})
	}
	if cargoID != nil && cargoName != nil {
		summary.Cargo = memorandum.Expanded(memorandum.Cargo{ID: *cargoID, Name: *cargoName})
	}
	m.Employee = memorandum.Expanded(summary)

	return m, nil
}

func collectMemoranda(rows pgx.Rows) ([]memorandum.Memorandum, error) {
	defer rows.Close()

	var out []memorandum.Memorandum
	for rows.Next() {
		m, err := scanMemorandum(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan memorandum: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Create implements memorandum.MemorandumRepository.
func (r *memorandumRepository) Create(ctx context.Context, m memorandum.Memorandum) (memorandum.Memorandum, error) {
	q := GetQuerier(ctx, r.db)

	if m.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return memorandum.Memorandum{}, fmt.Errorf("failed to generate memorandum id: %w", err)
		}
		m.ID = id.String()
	}
	attachments := m.Attachments
	if attachments == nil {
		attachments = []memorandum.FileRef{}
	}

	query := `
		INSERT INTO memoranda (
			id, code, company_id, attendance_id, type, employee_id,
			incident_date, expected_time, actual_time, delay_minutes, early_minutes,
			description, status, subsanation_deadline, attachments,
			created_at, updated_at
		) VALUES (
			$1, 'MEM-' || to_char($6::date, 'YYYY') || '-' || lpad(nextval('memorandum_code_seq')::text, 6, '0'),
			$2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14,
			$15, $15
		)
		ON CONFLICT (attendance_id, type) DO NOTHING
		RETURNING id
	`

	var id string
	err := q.QueryRow(ctx, query,
		m.ID, m.CompanyID, m.AttendanceID, m.Type, m.EmployeeID(),
		m.IncidentDate, m.ExpectedTime, m.ActualTime, m.DelayMinutes, m.EarlyMinutes,
		m.Description, m.Status, m.SubsanationDeadline, attachments,
		m.CreatedAt,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return memorandum.Memorandum{}, memorandum.ErrDuplicateAnomaly
		}
		return memorandum.Memorandum{}, fmt.Errorf("failed to insert memorandum: %w", err)
	}

	return r.GetByID(ctx, id, m.CompanyID)
}

// GetByID implements memorandum.MemorandumRepository.
func (r *memorandumRepository) GetByID(ctx context.Context, id string, companyID string) (memorandum.Memorandum, error) {
	q := GetQuerier(ctx, r.db)

	query := memorandumSelect + ` WHERE m.id = $1 AND m.company_id = $2`

	m, err := scanMemorandum(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return memorandum.Memorandum{}, memorandum.ErrMemorandumNotFound
		}
		return memorandum.Memorandum{}, fmt.Errorf("failed to get memorandum: %w", err)
	}
	return m, nil
}

// List implements memorandum.MemorandumRepository.
func (r *memorandumRepository) List(ctx context.Context, companyID string, filter memorandum.AdminFilter, now time.Time) ([]memorandum.Memorandum, int64, error) {
	q := GetQuerier(ctx, r.db)

	// Build WHERE clause
	whereClause := "WHERE m.company_id = $1"
	args := []interface{}{companyID}
	argIndex := 2

	if filter.AreaID != nil && *filter.AreaID != "" {
		whereClause += fmt.Sprintf(" AND e.area_id = $%d", argIndex)
		args = append(args, *filter.AreaID)
		argIndex++
	}
	if filter.CargoID != nil && *filter.CargoID != "" {
		whereClause += fmt.Sprintf(" AND e.cargo_id = $%d", argIndex)
		args = append(args, *filter.CargoID)
		argIndex++
	}
	if filter.EmployeeID != nil && *filter.EmployeeID != "" {
		whereClause += fmt.Sprintf(" AND m.employee_id = $%d", argIndex)
		args = append(args, *filter.EmployeeID)
		argIndex++
	}
	if filter.Status != nil && *filter.Status != "" {
		whereClause += fmt.Sprintf(" AND "+effectiveStatusSQL+" = $%d", argIndex, argIndex+1)
		args = append(args, now, *filter.Status)
		argIndex += 2
	}
	if filter.Type != nil && *filter.Type != "" {
		whereClause += fmt.Sprintf(" AND m.type = $%d", argIndex)
		args = append(args, *filter.Type)
		argIndex++
	}
	if filter.StartDate != nil && *filter.StartDate != "" {
		whereClause += fmt.Sprintf(" AND m.incident_date >= $%d::date", argIndex)
		args = append(args, *filter.StartDate)
		argIndex++
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		whereClause += fmt.Sprintf(" AND m.incident_date <= $%d::date", argIndex)
		args = append(args, *filter.EndDate)
		argIndex++
	}

	return r.page(ctx, q, whereClause, args, argIndex, filter.Page, filter.Limit)
}

// ListByEmployee implements memorandum.MemorandumRepository.
func (r *memorandumRepository) ListByEmployee(ctx context.Context, companyID string, employeeID string, filter memorandum.EmployeeFilter, now time.Time) ([]memorandum.Memorandum, int64, error) {
	q := GetQuerier(ctx, r.db)

	whereClause := "WHERE m.company_id = $1 AND m.employee_id = $2"
	args := []interface{}{companyID, employeeID}
	argIndex := 3

	if filter.Status != nil && *filter.Status != "" {
		whereClause += fmt.Sprintf(" AND "+effectiveStatusSQL+" = $%d", argIndex, argIndex+1)
		args = append(args, now, *filter.Status)
		argIndex += 2
	}
	if filter.Type != nil && *filter.Type != "" {
		whereClause += fmt.Sprintf(" AND m.type = $%d", argIndex)
		args = append(args, *filter.Type)
		argIndex++
	}

	return r.page(ctx, q, whereClause, args, argIndex, filter.Page, filter.Limit)
}

func (r *memorandumRepository) page(ctx context.Context, q database.Querier, whereClause string, args []interface{}, argIndex, page, limit int) ([]memorandum.Memorandum, int64, error) {
	// Get total count
	var total int64
	countQuery := "SELECT COUNT(*) " + memorandumFrom + whereClause
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count memoranda: %w", err)
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit

	query := memorandumSelect + whereClause +
		fmt.Sprintf(" ORDER BY m.incident_date DESC, m.created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list memoranda: %w", err)
	}
	list, err := collectMemoranda(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Transition implements memorandum.MemorandumRepository.
func (r *memorandumRepository) Transition(ctx context.Context, u memorandum.TransitionUpdate) (memorandum.Memorandum, error) {
	q := GetQuerier(ctx, r.db)

	from := make([]string, len(u.From))
	for i, s := range u.From {
		from[i] = string(s)
	}

	setClauses := []string{"status = $1", "updated_at = $2"}
	args := []interface{}{u.To, u.Now}
	argIndex := 3

	set := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}
	if u.Justification != nil {
		set("employee_justification", *u.Justification)
	}
	if u.JustifiedAt != nil {
		set("justified_at", *u.JustifiedAt)
	}
	if u.Attachments != nil {
		set("attachments", u.Attachments)
	}
	if u.ReviewComments != nil {
		set("review_comments", *u.ReviewComments)
	}
	if u.ReviewedBy != nil {
		set("reviewed_by", *u.ReviewedBy)
	}
	if u.ReviewDate != nil {
		set("review_date", *u.ReviewDate)
	}
	if u.AffectsRecord != nil && *u.AffectsRecord {
		set("affects_record", true)
	}

	whereClause := fmt.Sprintf("WHERE id = $%d AND company_id = $%d AND status = ANY($%d)", argIndex, argIndex+1, argIndex+2)
	args = append(args, u.ID, u.CompanyID, from)
	argIndex += 3

	if u.BeforeDeadline {
		whereClause += " AND subsanation_deadline >= $2"
	}
	if u.NoJustification {
		whereClause += " AND employee_justification IS NULL"
	}
	if u.EmployeeID != nil {
		whereClause += fmt.Sprintf(" AND employee_id = $%d", argIndex)
		args = append(args, *u.EmployeeID)
	}

	query := "UPDATE memoranda SET " + strings.Join(setClauses, ", ") + " " + whereClause + " RETURNING id"

	var id string
	if err := q.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return memorandum.Memorandum{}, memorandum.ErrStaleTransition
		}
		return memorandum.Memorandum{}, fmt.Errorf("failed to update memorandum: %w", err)
	}

	return r.GetByID(ctx, id, u.CompanyID)
}

// ExpireOverdue implements memorandum.MemorandumRepository.
func (r *memorandumRepository) ExpireOverdue(ctx context.Context, now time.Time, limit int) ([]memorandum.Memorandum, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE memoranda SET status = 'EXPIRADO', updated_at = $1
		WHERE id IN (
			SELECT id FROM memoranda
			WHERE status = 'PENDIENTE' AND subsanation_deadline < $1
			ORDER BY subsanation_deadline
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, code, company_id, employee_id, subsanation_deadline
	`

	rows, err := q.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to expire memoranda: %w", err)
	}
	defer rows.Close()

	var expired []memorandum.Memorandum
	for rows.Next() {
		var m memorandum.Memorandum
		var employeeID string
		if err := rows.Scan(&m.ID, &m.Code, &m.CompanyID, &employeeID, &m.SubsanationDeadline); err != nil {
			return nil, fmt.Errorf("failed to scan expired memorandum: %w", err)
		}
		m.Employee = memorandum.RefID[memorandum.EmployeeSummary](employeeID)
		m.Status = memorandum.StatusExpired
		m.UpdatedAt = now
		expired = append(expired, m)
	}
	return expired, rows.Err()
}

// ExistsForAttendance implements memorandum.MemorandumRepository.
func (r *memorandumRepository) ExistsForAttendance(ctx context.Context, attendanceID string, t memorandum.Type) (bool, error) {
	q := GetQuerier(ctx, r.db)

	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM memoranda WHERE attendance_id = $1 AND type = $2)`,
		attendanceID, t,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check memorandum for attendance: %w", err)
	}
	return exists, nil
}
