package startup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vodarr/vodarr/internal/config"
	"github.com/vodarr/vodarr/internal/repository"
	"github.com/vodarr/vodarr/internal/storage"
)

// Sweeper periodically removes temp directories of jobs that failed
// longer ago than the retention window.
type Sweeper struct {
	cfg    config.RetentionConfig
	jobs   repository.UploadJobRepository
	store  *storage.MediaStore
	logger *slog.Logger
	cron   *cron.Cron
}

// NewSweeper creates a retention sweeper.
func NewSweeper(cfg config.RetentionConfig, jobs repository.UploadJobRepository, store *storage.MediaStore, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		cfg:    cfg,
		jobs:   jobs,
		store:  store,
		logger: logger,
	}
}

// Start schedules the sweep. A disabled config is a no-op.
func (s *Sweeper) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.logger.Info("retention sweeper disabled")
		return nil
	}

	s.cron = cron.New(cron.WithSeconds())
	_, err := s.cron.AddFunc(s.cfg.Cron, func() {
		if err := s.Sweep(ctx); err != nil {
			s.logger.Error("retention sweep failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling retention sweep: %w", err)
	}

	s.cron.Start()
	s.logger.Info("retention sweeper started",
		slog.String("schedule", s.cfg.Cron),
		slog.Duration("window", s.cfg.Window),
	)
	return nil
}

// Stop stops the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info("retention sweeper stopped")
}

// Sweep removes temp directories for jobs that failed before the cutoff.
func (s *Sweeper) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-s.cfg.Window)

	jobs, err := s.jobs.GetFailedBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	removed := 0
	for _, job := range jobs {
		id := job.ID.String()
		if err := s.store.DeleteTemp(id); err != nil {
			s.logger.Warn("sweeping temp directory",
				slog.String("upload_id", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		removed++
	}

	s.logger.Info("retention sweep finished",
		slog.Int("expired", len(jobs)),
		slog.Int("removed", removed),
	)
	return nil
}
