package reference

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/reference"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/cache"
	"github.com/go-chi/jwtauth/v5"
)

const DefaultTTL = 5 * time.Minute

type referenceServiceImpl struct {
	repo  reference.Repository
	cache cache.Cache
	ttl   time.Duration
}

func NewReferenceService(repo reference.Repository, c cache.Cache, ttl time.Duration) reference.Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if c == nil {
		c = cache.NewMemory()
	}
	return &referenceServiceImpl{repo: repo, cache: c, ttl: ttl}
}

func companyFromContext(ctx context.Context) (string, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: failed to extract claims from context: %v", memorandum.ErrUnauthorized, err)
	}

	p, err := user.FromClaims(claims)
	if err != nil {
		return "", fmt.Errorf("%w: %v", memorandum.ErrUnauthorized, err)
	}
	if !p.Can(user.PermissionReferenceView) {
		return "", memorandum.ErrForbidden
	}
	return p.CompanyID, nil
}

// cached loads key from the cache, falling back to load on a miss. Cache
// errors are logged and served from the repository.
func cached[T any](ctx context.Context, s *referenceServiceImpl, key string, load func() (T, error)) (T, error) {
	var out T
	hit, err := s.cache.Get(ctx, key, &out)
	if err != nil {
		slog.Warn("Reference cache read failed", "key", key, "error", err)
	}
	if hit {
		return out, nil
	}

	out, err = load()
	if err != nil {
		return out, err
	}
	if err := s.cache.Set(ctx, key, out, s.ttl); err != nil {
		slog.Warn("Reference cache write failed", "key", key, "error", err)
	}
	return out, nil
}

func (s *referenceServiceImpl) ListAreas(ctx context.Context) ([]memorandum.Area, error) {
	companyID, err := companyFromContext(ctx)
	if err != nil {
		return nil, err
	}

	return cached(ctx, s, "areas:"+companyID, func() ([]memorandum.Area, error) {
		areas, err := s.repo.ListAreas(ctx, companyID)
		if err != nil {
			return nil, fmt.Errorf("failed to list areas: %w", err)
		}
		if areas == nil {
			areas = []memorandum.Area{}
		}
		return areas, nil
	})
}

func (s *referenceServiceImpl) ListCargos(ctx context.Context) ([]memorandum.Cargo, error) {
	companyID, err := companyFromContext(ctx)
	if err != nil {
		return nil, err
	}

	return cached(ctx, s, "cargos:"+companyID, func() ([]memorandum.Cargo, error) {
		cargos, err := s.repo.ListCargos(ctx, companyID)
		if err != nil {
			return nil, fmt.Errorf("failed to list cargos: %w", err)
		}
		if cargos == nil {
			cargos = []memorandum.Cargo{}
		}
		return cargos, nil
	})
}

func (s *referenceServiceImpl) ListEmployees(ctx context.Context, filter reference.EmployeeFilter) ([]reference.EmployeeResponse, error) {
	companyID, err := companyFromContext(ctx)
	if err != nil {
		return nil, err
	}

	return cached(ctx, s, "employees:"+companyID+":"+filter.CacheKey(), func() ([]reference.EmployeeResponse, error) {
		employees, err := s.repo.ListEmployees(ctx, companyID, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list employees: %w", err)
		}

		responses := make([]reference.EmployeeResponse, 0, len(employees))
		for _, e := range employees {
			responses = append(responses, reference.NewEmployeeResponse(e))
		}
		return responses, nil
	})
}
