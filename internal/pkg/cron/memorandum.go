package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/clock"
)

const (
	JobExpireOverdue     = "expire_overdue_memoranda"
	JobGenerateMemoranda = "generate_memoranda_from_attendance"
)

type MemorandumJobs struct {
	memorandumService memorandum.MemorandumService
	clock             clock.Clock
	lookback          time.Duration
}

func NewMemorandumJobs(memorandumService memorandum.MemorandumService, c clock.Clock, lookback time.Duration) *MemorandumJobs {
	return &MemorandumJobs{
		memorandumService: memorandumService,
		clock:             c,
		lookback:          lookback,
	}
}

func (j *MemorandumJobs) RegisterJobs(scheduler *Scheduler, sweepInterval, generationInterval time.Duration) {
	scheduler.AddJob(JobExpireOverdue, sweepInterval, j.ExpireOverdue)
	scheduler.AddJob(JobGenerateMemoranda, generationInterval, j.GenerateFromAttendance)
}

// ExpireOverdue persists EXPIRADO for pending memoranda past their deadline.
func (j *MemorandumJobs) ExpireOverdue(ctx context.Context) error {
	n, err := j.memorandumService.ExpireOverdue(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("Cron: Expired overdue memoranda", "count", n)
	}
	return nil
}

// GenerateFromAttendance scans the lookback window for anomalies. Records
// that already have a memorandum are skipped, so windows may overlap.
func (j *MemorandumJobs) GenerateFromAttendance(ctx context.Context) error {
	since := j.clock.Now().Add(-j.lookback)

	n, err := j.memorandumService.GenerateFromAttendance(ctx, since)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("Cron: Generated memoranda from attendance", "count", n, "since", since)
	}
	return nil
}
