package attendance

import (
	"context"
	"time"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (Record, error)

	// ListAnomalies returns records in [since, until) that may warrant a
	// memorandum: late or absent check-ins, early check-outs, and check-ins
	// left open at the end of their day.
	ListAnomalies(ctx context.Context, since, until time.Time) ([]Record, error)
}
