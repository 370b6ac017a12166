package reference

import (
	"context"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
)

// Service serves read-only snapshots used to populate filters. Staleness up
// to the cache TTL is accepted.
type Service interface {
	ListAreas(ctx context.Context) ([]memorandum.Area, error)
	ListCargos(ctx context.Context) ([]memorandum.Cargo, error)
	ListEmployees(ctx context.Context, filter EmployeeFilter) ([]EmployeeResponse, error)
}
