package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/reference"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type referenceRepository struct {
	db *database.DB
}

func NewReferenceRepository(db *database.DB) reference.Repository {
	return &referenceRepository{db: db}
}

// ListAreas implements reference.Repository.
func (r *referenceRepository) ListAreas(ctx context.Context, companyID string) ([]memorandum.Area, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT id, name FROM areas WHERE company_id = $1 ORDER BY name`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list areas: %w", err)
	}
	defer rows.Close()

	areas := []memorandum.Area{}
	for rows.Next() {
		var a memorandum.Area
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, fmt.Errorf("failed to scan area: %w", err)
		}
		areas = append(areas, a)
	}
	return areas, rows.Err()
}

// ListCargos implements reference.Repository.
func (r *referenceRepository) ListCargos(ctx context.Context, companyID string) ([]memorandum.Cargo, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT id, name FROM cargos WHERE company_id = $1 ORDER BY name`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cargos: %w", err)
	}
	defer rows.Close()

	cargos := []memorandum.Cargo{}
	for rows.Next() {
		var c memorandum.Cargo
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan cargo: %w", err)
		}
		cargos = append(cargos, c)
	}
	return cargos, rows.Err()
}

const employeeSummarySelect = `
	SELECT e.id, e.full_name, e.employee_code, a.id, a.name, c.id, c.name
	FROM employees e
	LEFT JOIN areas a ON a.id = e.area_id
	LEFT JOIN cargos c ON c.id = e.cargo_id
`

func scanEmployeeSummary(row pgx.Row) (memorandum.EmployeeSummary, error) {
	var (
		e                  memorandum.EmployeeSummary
		code               *string
		areaID, areaName   *string
		cargoID, cargoName *string
	)
	if err := row.Scan(&e.ID, &e.FullName, &code, &areaID, &areaName, &cargoID, &cargoName); err != nil {
		return memorandum.EmployeeSummary{}, err
	}
	if code != nil {
		e.EmployeeCode = *code
	}
	if areaID != nil && areaName != nil {
		e.Area = memorandum.Expanded(memorandum.Area{ID: *areaID, Name: *areaName})
	}
	if cargoID != nil && cargoName != nil {
		e.Cargo = memorandum.Expanded(memorandum.Cargo{ID: *cargoID, Name: *cargoName})
	}
	return e, nil
}

// ListEmployees implements reference.Repository.
func (r *referenceRepository) ListEmployees(ctx context.Context, companyID string, filter reference.EmployeeFilter) ([]memorandum.EmployeeSummary, error) {
	q := GetQuerier(ctx, r.db)

	whereClause := "WHERE e.company_id = $1 AND e.deleted_at IS NULL"
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
	}

	rows, err := q.Query(ctx, employeeSummarySelect+whereClause+" ORDER BY e.full_name", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	employees := []memorandum.EmployeeSummary{}
	for rows.Next() {
		e, err := scanEmployeeSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// GetEmployee implements reference.Repository.
func (r *referenceRepository) GetEmployee(ctx context.Context, companyID string, employeeID string) (memorandum.EmployeeSummary, error) {
	q := GetQuerier(ctx, r.db)

	e, err := scanEmployeeSummary(q.QueryRow(ctx,
		employeeSummarySelect+" WHERE e.company_id = $1 AND e.id = $2", companyID, employeeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return memorandum.EmployeeSummary{}, reference.ErrEmployeeNotFound
		}
		return memorandum.EmployeeSummary{}, fmt.Errorf("failed to get employee: %w", err)
	}
	return e, nil
}
