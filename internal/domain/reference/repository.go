package reference

import (
	"context"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
)

type Repository interface {
	ListAreas(ctx context.Context, companyID string) ([]memorandum.Area, error)
	ListCargos(ctx context.Context, companyID string) ([]memorandum.Cargo, error)
	ListEmployees(ctx context.Context, companyID string, filter EmployeeFilter) ([]memorandum.EmployeeSummary, error)
	GetEmployee(ctx context.Context, companyID string, employeeID string) (memorandum.EmployeeSummary, error)
}
