package memorandum

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/config"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/broker"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/sse"
	"github.com/go-chi/jwtauth/v5"
)

const sweepBatchSize = 500

type MemorandumServiceImpl struct {
	memorandumRepo memorandum.MemorandumRepository
	eventRepo      memorandum.EventRepository
	attendanceRepo attendance.Repository
	transactor     database.Transactor
	policy         memorandum.Policy
	publisher      broker.Publisher
	hub            *sse.Hub
	metrics        *metrics.Metrics
	cfg            config.MemorandumConfig
}

func NewMemorandumService(
	memorandumRepo memorandum.MemorandumRepository,
	eventRepo memorandum.EventRepository,
	attendanceRepo attendance.Repository,
	transactor database.Transactor,
	policy memorandum.Policy,
	publisher broker.Publisher,
	hub *sse.Hub,
	m *metrics.Metrics,
	cfg config.MemorandumConfig,
) memorandum.MemorandumService {
	if cfg.MinJustificationLength <= 0 {
		cfg.MinJustificationLength = memorandum.DefaultMinJustificationLength
	}
	if cfg.MaxAttachmentsPerSubmit <= 0 {
		cfg.MaxAttachmentsPerSubmit = memorandum.DefaultMaxAttachments
	}
	return &MemorandumServiceImpl{
		memorandumRepo: memorandumRepo,
		eventRepo:      eventRepo,
		attendanceRepo: attendanceRepo,
		transactor:     transactor,
		policy:         policy,
		publisher:      publisher,
		hub:            hub,
		metrics:        m,
		cfg:            cfg,
	}
}

func (s *MemorandumServiceImpl) now() time.Time {
	return s.policy.Calculator().Now()
}

func principalFromContext(ctx context.Context) (user.Principal, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return user.Principal{}, fmt.Errorf("%w: failed to extract claims from context: %v", memorandum.ErrUnauthorized, err)
	}

	p, err := user.FromClaims(claims)
	if err != nil {
		if errors.Is(err, user.ErrCompanyIDRequired) {
			return user.Principal{}, memorandum.ErrMissingCompanyID
		}
		return user.Principal{}, fmt.Errorf("%w: %v", memorandum.ErrUnauthorized, err)
	}
	return p, nil
}

func canView(p user.Principal, m memorandum.Memorandum) error {
	if p.Can(user.PermissionMemorandumViewAll) {
		return nil
	}
	if !p.Can(user.PermissionMemorandumViewOwn) {
		return memorandum.ErrForbidden
	}
	if p.EmployeeID == "" {
		return memorandum.ErrMissingEmployeeID
	}
	if m.EmployeeID() != p.EmployeeID {
		return memorandum.ErrNotOwner
	}
	return nil
}

func actorOf(p user.Principal, reviewer bool) memorandum.Actor {
	return memorandum.Actor{UserID: p.UserID, EmployeeID: p.EmployeeID, Reviewer: reviewer}
}

// ListForEmployee implements memorandum.MemorandumService.
func (s *MemorandumServiceImpl) ListForEmployee(ctx context.Context, employeeID string, filter memorandum.EmployeeFilter) (memorandum.ListMemorandumResponse, error) {
	p, err := principalFromContext(ctx)
	if err != nil {
		return memorandum.ListMemorandumResponse{}, err
	}
	if employeeID == "" {
		employeeID = p.EmployeeID
	}
	if err := canView(p, memorandum.Memorandum{Employee: memorandum.RefID[memorandum.EmployeeSummary](employeeID)}); err != nil {
		return memorandum.ListMemorandumResponse{}, err
	}
	if employeeID == "" {
		return memorandum.ListMemorandumResponse{}, memorandum.ErrMissingEmployeeID
	}

	if err := filter.Validate(); err != nil {
		return memorandum.ListMemorandumResponse{}, err
	}

	now := s.now()
	list, total, err := s.memorandumRepo.ListByEmployee(ctx, p.CompanyID, employeeID, filter, now)
	if err != nil {
		return memorandum.ListMemorandumResponse{}, fmt.Errorf("failed to list memoranda for employee: %w", err)
	}
	return s.listResponse(list, total, filter.Page, filter.Limit, now), nil
}

// ListForAdmin implements memorandum.MemorandumService.
func (s *MemorandumServiceImpl) ListForAdmin(ctx context.Context, filter memorandum.AdminFilter) (memorandum.ListMemorandumResponse, error) {
	p, err := principalFromContext(ctx)
	if err != nil {
		return memorandum.ListMemorandumResponse{}, err
	}
	if !p.Can(user.PermissionMemorandumViewAll) {
		return memorandum.ListMemorandumResponse{}, memorandum.ErrForbidden
	}

	if err := filter.Validate(); err != nil {
		return memorandum.ListMemorandumResponse{}, err
	}

	now := s.now()
	list, total, err := s.memorandumRepo.List(ctx, p.CompanyID, filter, now)
	if err != nil {
		return memorandum.ListMemorandumResponse{}, fmt.Errorf("failed to list memoranda: %w", err)
	}
	return s.listResponse(list, total, filter.Page, filter.Limit, now), nil
}

func (s *MemorandumServiceImpl) listResponse(list []memorandum.Memorandum, totalCount int64, page, limit int, now time.Time) memorandum.ListMemorandumResponse {
	responses := make([]memorandum.MemorandumResponse, 0, len(list))
	for _, m := range list {
		responses = append(responses, memorandum.NewMemorandumResponse(m, s.policy, now))
	}

	totalPages := int(math.Ceil(float64(totalCount) / float64(limit)))

	start := (page-1)*limit + 1
	end := start + len(responses) - 1
	if end > int(totalCount) {
		end = int(totalCount)
	}

	showing := fmt.Sprintf("%d-%d of %d results", start, end, totalCount)
	if totalCount == 0 || len(responses) == 0 {
		showing = fmt.Sprintf("0 of %d results", totalCount)
	}

	return memorandum.ListMemorandumResponse{
		TotalCount: totalCount,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		Showing:    showing,
		Memoranda:  responses,
	}
}

func (s *MemorandumServiceImpl) getVisible(ctx context.Context, id string) (user.Principal, memorandum.Memorandum, error) {
	p, err := principalFromContext(ctx)
	if err != nil {
		return user.Principal{}, memorandum.Memorandum{}, err
	}

	m, err := s.memorandumRepo.GetByID(ctx, id, p.CompanyID)
	if err != nil {
		return user.Principal{}, memorandum.Memorandum{}, err
	}
	if err := canView(p, m); err != nil {
		return user.Principal{}, memorandum.Memorandum{}, err
	}
	return p, m, nil
}

// GetByID implements memorandum.MemorandumService.
func (s *MemorandumServiceImpl) GetByID(ctx context.Context, id string) (memorandum.MemorandumResponse, error) {
	_, m, err := s.getVisible(ctx, id)
	if err != nil {
		return memorandum.MemorandumResponse{}, err
	}
	return memorandum.NewMemorandumResponse(m, s.policy, s.now()), nil
}

// History implements memorandum.MemorandumService.
func (s *MemorandumServiceImpl) History(ctx context.Context, id string) ([]memorandum.EventResponse, error) {
	p, m, err := s.getVisible(ctx, id)
	if err != nil {
		return nil, err
	}

	events, err := s.eventRepo.ListByMemorandum(ctx, m.ID, p.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memorandum history: %w", err)
	}

	responses := make([]memorandum.EventResponse, 0, len(events))
	for _, e := range events {
		responses = append(responses, memorandum.NewEventResponse(e))
	}
	return responses, nil
}

// SubmitJustification implements memorandum.MemorandumService.
func (s *MemorandumServiceImpl) SubmitJustification(ctx context.Context, id string, req memorandum.SubmitJustificationRequest) (memorandum.MemorandumResponse, error) {
	p, err := principalFromContext(ctx)
	if err != nil {
		return memorandum.MemorandumResponse{}, err
	}
	if !p.Can(user.PermissionMemorandumSubsanate) {
		return memorandum.MemorandumResponse{}, memorandum.ErrForbidden
	}
	if p.EmployeeID == "" {
		return memorandum.MemorandumResponse{}, memorandum.ErrMissingEmployeeID
	}
	if err := req.Validate(s.cfg.MinJustificationLength, s.cfg.MaxAttachmentsPerSubmit); err != nil {
		return memorandum.MemorandumResponse{}, err
	}

	justification := strings.TrimSpace(req.Justification)
	employeeID := p.EmployeeID

	return s.transition(ctx, p, id, transitionPlan{
		cmd: memorandum.Command{Event: memorandum.EventSubmitJustification, Actor: actorOf(p, false)},
		authorize: func(m memorandum.Memorandum) error {
			if m.EmployeeID() != p.EmployeeID {
				return memorandum.ErrNotOwner
			}
			return nil
		},
		update: func(u *memorandum.TransitionUpdate) {
			u.BeforeDeadline = true
			u.NoJustification = true
			u.EmployeeID = &employeeID
			u.Justification = &justification
			u.JustifiedAt = &u.Now
			u.Attachments = attachmentsOrEmpty(req.Attachments)
		},
	})
}

// SubmitReview implements memorandum.MemorandumService.
func (s *MemorandumServiceImpl) SubmitReview(ctx context.Context, id string, req memorandum.SubmitReviewRequest) (memorandum.MemorandumResponse, error) {
	p, err := principalFromContext(ctx)
	if err != nil {
		return memorandum.MemorandumResponse{}, err
	}
	if !p.IsReviewer() {
		return memorandum.MemorandumResponse{}, memorandum.ErrReviewerRequired
	}
	if err := req.Validate(); err != nil {
		return memorandum.MemorandumResponse{}, err
	}

	event := memorandum.EventReject
	if req.Approved {
		event = memorandum.EventApprove
	}
	comments := strings.TrimSpace(req.Comments)
	reviewer := p.UserID
	affects := req.AffectsRecord

	return s.transition(ctx, p, id, transitionPlan{
		cmd:     memorandum.Command{Event: event, Actor: actorOf(p, true), Comments: comments},
		comment: nonEmpty(comments),
		update: func(u *memorandum.TransitionUpdate) {
			u.ReviewComments = &comments
			u.ReviewedBy = &reviewer
			u.ReviewDate = &u.Now
			u.AffectsRecord = &affects
		},
	})
}

// JustifyOnBehalf implements memorandum.MemorandumService.
func (s *MemorandumServiceImpl) JustifyOnBehalf(ctx context.Context, id string, req memorandum.JustifyOnBehalfRequest) (memorandum.MemorandumResponse, error) {
	p, err := principalFromContext(ctx)
	if err != nil {
		return memorandum.MemorandumResponse{}, err
	}
	if !p.IsReviewer() {
		return memorandum.MemorandumResponse{}, memorandum.ErrReviewerRequired
	}
	if err := req.Validate(s.cfg.MinJustificationLength, s.cfg.MaxAttachmentsPerSubmit); err != nil {
		return memorandum.MemorandumResponse{}, err
	}

	justification := strings.TrimSpace(req.Justification)

	return s.transition(ctx, p, id, transitionPlan{
		cmd: memorandum.Command{Event: memorandum.EventJustifyOnBehalf, Actor: actorOf(p, true)},
		update: func(u *memorandum.TransitionUpdate) {
			u.BeforeDeadline = true
			u.NoJustification = true
			u.Justification = &justification
			u.JustifiedAt = &u.Now
			u.Attachments = attachmentsOrEmpty(req.Attachments)
		},
	})
}

// Close implements memorandum.MemorandumService.
func (s *MemorandumServiceImpl) Close(ctx context.Context, id string, req memorandum.CloseRequest) (memorandum.MemorandumResponse, error) {
	p, err := principalFromContext(ctx)
	if err != nil {
		return memorandum.MemorandumResponse{}, err
	}
	if !p.Can(user.PermissionMemorandumClose) {
		return memorandum.MemorandumResponse{}, memorandum.ErrReviewerRequired
	}
	if err := req.Validate(); err != nil {
		return memorandum.MemorandumResponse{}, err
	}

	comments := strings.TrimSpace(req.Comments)
	reviewer := p.UserID

	return s.transition(ctx, p, id, transitionPlan{
		cmd:     memorandum.Command{Event: memorandum.EventClose, Actor: actorOf(p, true), Comments: comments},
		comment: nonEmpty(comments),
		update: func(u *memorandum.TransitionUpdate) {
			// A pending record may only close while its deadline is open.
			u.BeforeDeadline = len(u.From) == 1 && u.From[0] == memorandum.StatusPending
			u.ReviewComments = &comments
			u.ReviewedBy = &reviewer
			u.ReviewDate = &u.Now
		},
	})
}

type transitionPlan struct {
	cmd       memorandum.Command
	comment   *string
	authorize func(m memorandum.Memorandum) error
	update    func(u *memorandum.TransitionUpdate)
}

// transition runs one guarded mutation. The stored row is re-checked by the
// conditional update, so a concurrent change surfaces as the policy error the
// new state warrants.
func (s *MemorandumServiceImpl) transition(ctx context.Context, p user.Principal, id string, plan transitionPlan) (memorandum.MemorandumResponse, error) {
	now := s.now()
	plan.cmd.Now = now

	var (
		updated memorandum.Memorandum
		event   memorandum.TransitionEvent
	)
	err := s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.memorandumRepo.GetByID(txCtx, id, p.CompanyID)
		if err != nil {
			return err
		}
		if plan.authorize != nil {
			if err := plan.authorize(current); err != nil {
				return err
			}
		}

		to, err := s.policy.Next(current, plan.cmd)
		if err != nil {
			return err
		}

		u := memorandum.TransitionUpdate{
			ID:        current.ID,
			CompanyID: current.CompanyID,
			From:      []memorandum.Status{current.Status},
			To:        to,
			Now:       now,
		}
		plan.update(&u)

		updated, err = s.memorandumRepo.Transition(txCtx, u)
		if errors.Is(err, memorandum.ErrStaleTransition) {
			return s.classifyStale(txCtx, id, p.CompanyID, plan.cmd)
		}
		if err != nil {
			return err
		}

		from := current.Status
		event, err = s.eventRepo.Append(txCtx, memorandum.NewTransitionEvent(updated, plan.cmd.Event, &from, to, plan.cmd.Actor, plan.comment, now))
		if err != nil {
			return fmt.Errorf("failed to record memorandum event: %w", err)
		}
		return nil
	})
	if err != nil {
		if kind := memorandum.Kind(err); kind != nil {
			s.metrics.Rejected(string(plan.cmd.Event), kindLabel(kind))
		}
		slog.Debug("Memorandum transition refused", "memorandum_id", id, "event", plan.cmd.Event, "error", err)
		return memorandum.MemorandumResponse{}, err
	}

	slog.Info("Memorandum transition applied",
		"memorandum_id", updated.ID,
		"code", updated.Code,
		"event", plan.cmd.Event,
		"from", derefStatus(event.FromStatus),
		"to", updated.Status,
		"actor_id", p.UserID)
	s.metrics.Transition(string(plan.cmd.Event), string(updated.Status))
	s.notify(ctx, event)

	return memorandum.NewMemorandumResponse(updated, s.policy, now), nil
}

func (s *MemorandumServiceImpl) classifyStale(ctx context.Context, id, companyID string, cmd memorandum.Command) error {
	latest, err := s.memorandumRepo.GetByID(ctx, id, companyID)
	if err != nil {
		return err
	}
	if _, err := s.policy.Next(latest, cmd); err != nil {
		return err
	}
	return memorandum.ErrStaleTransition
}

// notify publishes a committed transition. Delivery failures are logged and
// never undo the transition.
func (s *MemorandumServiceImpl) notify(ctx context.Context, e memorandum.TransitionEvent) {
	if s.hub != nil {
		s.hub.Publish(sse.Event{
			Event: "memorandum." + string(e.Event),
			Data:  memorandum.NewTransitionMessage(e),
		}, memorandum.CompanyTopic(e.CompanyID), memorandum.EmployeeTopic(e.EmployeeID))
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, e); err != nil {
			slog.Error("Failed to publish memorandum event",
				"memorandum_id", e.MemorandumID,
				"event", e.Event,
				"error", err)
		}
	}
}

// ExpireOverdue implements memorandum.MemorandumService.
func (s *MemorandumServiceImpl) ExpireOverdue(ctx context.Context) (int, error) {
	now := s.now()
	total := 0

	for {
		var events []memorandum.TransitionEvent
		err := s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
			expired, err := s.memorandumRepo.ExpireOverdue(txCtx, now, sweepBatchSize)
			if err != nil {
				return err
			}
			from := memorandum.StatusPending
			for _, m := range expired {
				e, err := s.eventRepo.Append(txCtx, memorandum.NewTransitionEvent(m, memorandum.EventDeadlinePassed, &from, memorandum.StatusExpired, memorandum.Actor{}, nil, now))
				if err != nil {
					return fmt.Errorf("failed to record expiry of %s: %w", m.Code, err)
				}
				events = append(events, e)
			}
			return nil
		})
		if err != nil {
			return total, fmt.Errorf("failed to expire overdue memoranda: %w", err)
		}

		total += len(events)
		s.metrics.Expired(len(events))
		for _, e := range events {
			s.metrics.Transition(string(e.Event), string(e.ToStatus))
			s.notify(ctx, e)
		}

		if len(events) < sweepBatchSize {
			return total, nil
		}
	}
}

// GenerateFromAttendance implements memorandum.MemorandumService.
func (s *MemorandumServiceImpl) GenerateFromAttendance(ctx context.Context, since time.Time) (int, error) {
	now := s.now()

	records, err := s.attendanceRepo.ListAnomalies(ctx, since, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list attendance anomalies: %w", err)
	}

	created := 0
	var errs []error
	for _, rec := range records {
		for _, t := range memorandum.Anomalies(rec) {
			ok, err := s.generateOne(ctx, rec, t, now)
			if err != nil {
				slog.Error("Failed to generate memorandum",
					"attendance_id", rec.ID,
					"employee_id", rec.EmployeeID,
					"type", t,
					"error", err)
				errs = append(errs, err)
				continue
			}
			if ok {
				created++
			}
		}
	}
	return created, errors.Join(errs...)
}

func (s *MemorandumServiceImpl) generateOne(ctx context.Context, rec attendance.Record, t memorandum.Type, now time.Time) (bool, error) {
	exists, err := s.memorandumRepo.ExistsForAttendance(ctx, rec.ID, t)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	draft := memorandum.NewFromAttendance(rec, t, s.cfg.SubsanationDays, s.policy.Calculator().Location(), now)

	var event memorandum.TransitionEvent
	err = s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		m, err := s.memorandumRepo.Create(txCtx, draft)
		if err != nil {
			return err
		}
		event, err = s.eventRepo.Append(txCtx, memorandum.NewTransitionEvent(m, memorandum.EventCreated, nil, m.Status, memorandum.Actor{}, nil, now))
		return err
	})
	if errors.Is(err, memorandum.ErrDuplicateAnomaly) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.metrics.Generated(string(t))
	s.notify(ctx, event)
	return true, nil
}

func attachmentsOrEmpty(files []memorandum.FileRef) []memorandum.FileRef {
	if files == nil {
		return []memorandum.FileRef{}
	}
	return files
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefStatus(s *memorandum.Status) string {
	if s == nil {
		return ""
	}
	return string(*s)
}

func kindLabel(kind error) string {
	switch kind {
	case memorandum.ErrNotFound:
		return "not_found"
	case memorandum.ErrUnauthorized:
		return "unauthorized"
	case memorandum.ErrPolicyViolation:
		return "policy_violation"
	case memorandum.ErrValidation:
		return "validation"
	default:
		return "transient"
	}
}
