package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler triggers the daily finalization and the periodic reclaim on the
// process clock, in addition to the /job HTTP triggers.
type Scheduler struct {
	sched  gocron.Scheduler
	logger *slog.Logger
}

// ScheduleSettings configure the two jobs.
type ScheduleSettings struct {
	FinalizeCron    string
	ReclaimInterval time.Duration
	Location        *time.Location
	JobTimeout      time.Duration
}

// NewScheduler registers the jobs; nothing runs until Start.
func NewScheduler(ctx context.Context, finalizer *Finalizer, reclaimer *Reclaimer, settings ScheduleSettings, logger *slog.Logger) (*Scheduler, error) {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.JobTimeout <= 0 {
		settings.JobTimeout = 10 * time.Minute
	}

	sched, err := gocron.NewScheduler(
		gocron.WithLocation(settings.Location),
		gocron.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	// Every day: finalize yesterday's competition
	_, err = sched.NewJob(
		gocron.CronJob(settings.FinalizeCron, false),
		gocron.NewTask(func() {
			jobCtx, cancel := context.WithTimeout(ctx, settings.JobTimeout)
			defer cancel()
			_, err := finalizer.Finalize(jobCtx)
			switch {
			case errors.Is(err, ErrDuplicateCompetitionResults):
				logger.Info("[Scheduler] competition already finalized")
			case err != nil:
				logger.Error("[Scheduler] finalize failed", "error", err)
			}
		}),
		gocron.WithName("finalize-competition"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule finalize: %w", err)
	}

	// Every interval: return abandoned tracks
	_, err = sched.NewJob(
		gocron.DurationJob(settings.ReclaimInterval),
		gocron.NewTask(func() {
			jobCtx, cancel := context.WithTimeout(ctx, settings.JobTimeout)
			defer cancel()
			if _, err := reclaimer.Reclaim(jobCtx); err != nil {
				logger.Error("[Scheduler] reclaim failed", "error", err)
			}
		}),
		gocron.WithName("return-abandoned-tracks"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule reclaim: %w", err)
	}

	return &Scheduler{sched: sched, logger: logger}, nil
}

// Jobs lists the registered job names.
func (s *Scheduler) Jobs() []string {
	var names []string
	for _, j := range s.sched.Jobs() {
		names = append(names, j.Name())
	}
	return names
}

func (s *Scheduler) Start() {
	s.sched.Start()
	s.logger.Info("[Scheduler] started", "jobs", s.Jobs())
}

func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}
