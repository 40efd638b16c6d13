// Package startup handles boot-time recovery and background retention.
package startup

import (
	"context"
	"log/slog"

	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/repository"
	"github.com/vodarr/vodarr/internal/storage"
)

// interruptedReason is stored on jobs found mid-pipeline at boot.
const interruptedReason = "interrupted by restart"

// Recovery reconciles persisted job state with on-disk temp directories
// after a restart.
type Recovery struct {
	jobs   repository.UploadJobRepository
	store  *storage.MediaStore
	logger *slog.Logger
}

// NewRecovery creates a Recovery.
func NewRecovery(jobs repository.UploadJobRepository, store *storage.MediaStore, logger *slog.Logger) *Recovery {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recovery{jobs: jobs, store: store, logger: logger}
}

// Run performs boot recovery. Jobs still marked processing were interrupted
// mid-pipeline and are marked failed; the client can re-upload. Temp
// directories without a live job row are removed.
func (r *Recovery) Run(ctx context.Context) error {
	if err := r.failInterrupted(ctx); err != nil {
		return err
	}
	return r.removeOrphanedTemp(ctx)
}

func (r *Recovery) failInterrupted(ctx context.Context) error {
	jobs, err := r.jobs.GetByStatus(ctx, models.JobStatusProcessing)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		job.MarkFailed(interruptedReason)
		if err := r.jobs.Update(ctx, job); err != nil {
			return err
		}
		r.logger.Warn("interrupted job marked failed",
			slog.String("upload_id", job.ID.String()),
			slog.String("stage", job.Stage.String()),
		)
	}

	if len(jobs) > 0 {
		r.logger.Info("boot recovery finished", slog.Int("interrupted", len(jobs)))
	}
	return nil
}

func (r *Recovery) removeOrphanedTemp(ctx context.Context) error {
	ids, err := r.store.ListTempIDs()
	if err != nil {
		return err
	}

	removed := 0
	for _, id := range ids {
		ulid, err := models.ParseULID(id)
		if err != nil {
			// Not one of ours, leave it alone.
			continue
		}

		job, err := r.jobs.GetByID(ctx, ulid)
		if err != nil {
			return err
		}
		if job != nil && job.Status != models.JobStatusSucceeded {
			continue
		}

		if err := r.store.DeleteTemp(id); err != nil {
			r.logger.Warn("removing orphaned temp directory",
				slog.String("upload_id", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		removed++
	}

	if removed > 0 {
		r.logger.Info("orphaned temp directories removed", slog.Int("count", removed))
	}
	return nil
}
