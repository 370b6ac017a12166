package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/database"
	"github.com/google/uuid"
)

type memorandumEventRepository struct {
	db *database.DB
}

func NewMemorandumEventRepository(db *database.DB) memorandum.EventRepository {
	return &memorandumEventRepository{db: db}
}

// Append implements memorandum.EventRepository.
func (r *memorandumEventRepository) Append(ctx context.Context, e memorandum.TransitionEvent) (memorandum.TransitionEvent, error) {
	q := GetQuerier(ctx, r.db)

	if e.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return memorandum.TransitionEvent{}, fmt.Errorf("failed to generate event id: %w", err)
		}
		e.ID = id.String()
	}

	query := `
		INSERT INTO memorandum_events (
			id, memorandum_id, company_id, event, from_status, to_status, actor_id, comment, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := q.Exec(ctx, query,
		e.ID, e.MemorandumID, e.CompanyID, e.Event, e.FromStatus, e.ToStatus, e.ActorID, e.Comment, e.OccurredAt,
	)
	if err != nil {
		return memorandum.TransitionEvent{}, fmt.Errorf("failed to append memorandum event: %w", err)
	}
	return e, nil
}

// ListByMemorandum implements memorandum.EventRepository.
func (r *memorandumEventRepository) ListByMemorandum(ctx context.Context, memorandumID string, companyID string) ([]memorandum.TransitionEvent, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ev.id, ev.memorandum_id, ev.company_id, m.employee_id, m.code,
			   ev.event, ev.from_status, ev.to_status, ev.actor_id, ev.comment, ev.occurred_at
		FROM memorandum_events ev
		INNER JOIN memoranda m ON m.id = ev.memorandum_id
		WHERE ev.memorandum_id = $1 AND ev.company_id = $2
		ORDER BY ev.occurred_at, ev.id
	`

	rows, err := q.Query(ctx, query, memorandumID, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memorandum events: %w", err)
	}
	defer rows.Close()

	var events []memorandum.TransitionEvent
	for rows.Next() {
		var (
			e    memorandum.TransitionEvent
			from *string
			to   string
		)
		if err := rows.Scan(
			&e.ID, &e.MemorandumID, &e.CompanyID, &e.EmployeeID, &e.Code,
			&e.Event, &from, &to, &e.ActorID, &e.Comment, &e.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan memorandum event: %w", err)
		}
		if from != nil {
			s, err := memorandum.ParseStatus(*from)
			if err != nil {
				return nil, err
			}
			e.FromStatus = &s
		}
		if e.ToStatus, err = memorandum.ParseStatus(to); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
