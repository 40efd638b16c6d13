// Package repository defines data access interfaces for vodarr entities.
// All database access goes through these interfaces, enabling easy testing
// and database backend switching.
package repository

import (
	"context"
	"time"

	"github.com/vodarr/vodarr/internal/models"
	"gorm.io/gorm"
)

// UploadJobRepository defines operations for upload job persistence.
type UploadJobRepository interface {
	// Create creates a new upload job.
	Create(ctx context.Context, job *models.UploadJob) error
	// GetByID retrieves an upload job by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.UploadJob, error)
	// GetBySlug retrieves an upload job by slug.
	GetBySlug(ctx context.Context, slug string) (*models.UploadJob, error)
	// GetByStatus retrieves upload jobs by status, oldest first.
	GetByStatus(ctx context.Context, status models.JobStatus) ([]*models.UploadJob, error)
	// Update updates an existing upload job.
	Update(ctx context.Context, job *models.UploadJob) error
	// Delete deletes an upload job by ID.
	Delete(ctx context.Context, id models.ULID) error
	// GetFailedBefore retrieves jobs that failed before the given time.
	GetFailedBefore(ctx context.Context, before time.Time) ([]*models.UploadJob, error)
	// SlugExists reports whether a job already claims the slug.
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// VideoRepository defines operations for video persistence.
type VideoRepository interface {
	// Create creates a new video.
	Create(ctx context.Context, video *models.Video) error
	// CreateWithVariants creates a video and its variants in one transaction.
	CreateWithVariants(ctx context.Context, video *models.Video, variants []*models.QualityVariant) error
	// GetByID retrieves a video by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.Video, error)
	// GetBySlug retrieves a video by slug with variants preloaded.
	GetBySlug(ctx context.Context, slug string) (*models.Video, error)
	// GetReady retrieves all ready videos with variants preloaded.
	GetReady(ctx context.Context) ([]*models.Video, error)
	// Update updates an existing video.
	Update(ctx context.Context, video *models.Video) error
	// Delete deletes a video and its variants by ID.
	Delete(ctx context.Context, id models.ULID) error
}

// Repositories bundles all repositories over one database handle.
type Repositories struct {
	UploadJobs UploadJobRepository
	Videos     VideoRepository
}

// New creates all repositories backed by the given database.
func New(db *gorm.DB) *Repositories {
	return &Repositories{
		UploadJobs: NewUploadJobRepository(db),
		Videos:     NewVideoRepository(db),
	}
}
