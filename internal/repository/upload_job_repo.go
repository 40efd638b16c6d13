package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/vodarr/vodarr/internal/models"
	"gorm.io/gorm"
)

// uploadJobRepo implements UploadJobRepository using GORM.
type uploadJobRepo struct {
	db *gorm.DB
}

// NewUploadJobRepository creates a new UploadJobRepository.
func NewUploadJobRepository(db *gorm.DB) *uploadJobRepo {
	return &uploadJobRepo{db: db}
}

// Create creates a new upload job.
func (r *uploadJobRepo) Create(ctx context.Context, job *models.UploadJob) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("creating upload job: %w", err)
	}
	return nil
}

// GetByID retrieves an upload job by ID.
func (r *uploadJobRepo) GetByID(ctx context.Context, id models.ULID) (*models.UploadJob, error) {
	var job models.UploadJob
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting upload job by ID: %w", err)
	}
	return &job, nil
}

// GetBySlug retrieves an upload job by slug.
func (r *uploadJobRepo) GetBySlug(ctx context.Context, slug string) (*models.UploadJob, error) {
	var job models.UploadJob
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&job).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting upload job by slug: %w", err)
	}
	return &job, nil
}

// GetByStatus retrieves upload jobs by status, oldest first.
func (r *uploadJobRepo) GetByStatus(ctx context.Context, status models.JobStatus) ([]*models.UploadJob, error) {
	var jobs []*models.UploadJob
	if err := r.db.WithContext(ctx).Where("status = ?", status).Order("created_at ASC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("getting upload jobs by status: %w", err)
	}
	return jobs, nil
}

// Update updates an existing upload job.
func (r *uploadJobRepo) Update(ctx context.Context, job *models.UploadJob) error {
	if err := r.db.WithContext(ctx).Save(job).Error; err != nil {
		return fmt.Errorf("updating upload job: %w", err)
	}
	return nil
}

// Delete deletes an upload job by ID.
func (r *uploadJobRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.UploadJob{}).Error; err != nil {
		return fmt.Errorf("deleting upload job: %w", err)
	}
	return nil
}

// GetFailedBefore retrieves jobs that failed before the given time.
func (r *uploadJobRepo) GetFailedBefore(ctx context.Context, before time.Time) ([]*models.UploadJob, error) {
	var jobs []*models.UploadJob
	if err := r.db.WithContext(ctx).
		Where("status = ? AND completed_at < ?", models.JobStatusFailed, before).
		Order("completed_at ASC").
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("getting failed upload jobs: %w", err)
	}
	return jobs, nil
}

// SlugExists reports whether a job already claims the slug.
func (r *uploadJobRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.UploadJob{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, fmt.Errorf("counting upload jobs by slug: %w", err)
	}
	return count > 0, nil
}
