// Package service contains the application services behind the HTTP handlers.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/vodarr/vodarr/internal/media"
	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/pipeline"
	"github.com/vodarr/vodarr/internal/repository"
	"github.com/vodarr/vodarr/internal/storage"
)

// maxSlugAttempts bounds the uniquifying suffix search.
const maxSlugAttempts = 100

// UploadRequest is a validated-enough view of an incoming multipart upload.
type UploadRequest struct {
	Filename    string
	Size        int64
	Title       string
	Description string
	IsPublic    bool
	File        io.Reader
}

// UploadResult is returned to the client on accepted uploads.
type UploadResult struct {
	UploadID    string `json:"upload_id"`
	Slug        string `json:"slug"`
	ProgressURL string `json:"progress_url"`
}

// UploadService accepts uploads: it validates, stages the file, records the
// job, and hands it to the worker pool. It never blocks on transcoding.
type UploadService struct {
	maxSize int64
	store   *storage.MediaStore
	jobs    repository.UploadJobRepository
	pool    *pipeline.Pool
	logger  *slog.Logger
}

// NewUploadService creates an UploadService.
func NewUploadService(maxSize int64, store *storage.MediaStore, jobs repository.UploadJobRepository, pool *pipeline.Pool, logger *slog.Logger) *UploadService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadService{
		maxSize: maxSize,
		store:   store,
		jobs:    jobs,
		pool:    pool,
		logger:  logger,
	}
}

// Accept validates and stages an upload, creates its job, and enqueues it.
// Validation failures return a *media.ValidationError and leave no trace.
// A staging or database failure rolls the other half back.
func (s *UploadService) Accept(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	if verr := media.ValidateUpload(req.Filename, req.Size, s.maxSize); verr != nil {
		return nil, verr
	}

	slug, err := s.uniqueSlug(ctx, req.Title)
	if err != nil {
		return nil, err
	}

	job := &models.UploadJob{
		BaseModel:      models.BaseModel{ID: models.NewULID()},
		Slug:           slug,
		Title:          req.Title,
		Description:    req.Description,
		IsPublic:       req.IsPublic,
		SourceFilename: req.Filename,
		Stage:          models.StageUploaded,
		Status:         models.JobStatusProcessing,
	}

	uploadID := job.ID.String()
	ext := strings.ToLower(filepath.Ext(req.Filename))

	_, written, err := s.store.StageUpload(uploadID, ext, req.File)
	if err != nil {
		return nil, fmt.Errorf("staging upload: %w", err)
	}
	job.SourceSize = written

	if err := s.jobs.Create(ctx, job); err != nil {
		if derr := s.store.DeleteTemp(uploadID); derr != nil {
			s.logger.Warn("removing staged upload after create failure",
				slog.String("upload_id", uploadID),
				slog.String("error", derr.Error()),
			)
		}
		return nil, fmt.Errorf("recording upload job: %w", err)
	}

	if err := s.pool.Submit(job.ID); err != nil {
		if derr := s.store.DeleteTemp(uploadID); derr != nil {
			s.logger.Warn("removing staged upload after submit failure",
				slog.String("upload_id", uploadID),
				slog.String("error", derr.Error()),
			)
		}
		if jerr := s.jobs.Delete(ctx, job.ID); jerr != nil {
			s.logger.Warn("removing upload job after submit failure",
				slog.String("upload_id", uploadID),
				slog.String("error", jerr.Error()),
			)
		}
		return nil, err
	}

	s.logger.Info("upload accepted",
		slog.String("upload_id", uploadID),
		slog.String("slug", slug),
		slog.Int64("size", written),
	)

	return &UploadResult{
		UploadID:    uploadID,
		Slug:        slug,
		ProgressURL: fmt.Sprintf("/media/upload/%s/progress", uploadID),
	}, nil
}

// Progress returns the last committed job row, or nil for unknown IDs.
func (s *UploadService) Progress(ctx context.Context, uploadID models.ULID) (*models.UploadJob, error) {
	return s.jobs.GetByID(ctx, uploadID)
}

// uniqueSlug derives a slug from the title, suffixing until unused.
func (s *UploadService) uniqueSlug(ctx context.Context, title string) (string, error) {
	base := media.Slugify(title)

	candidate := base
	for i := 2; i <= maxSlugAttempts; i++ {
		exists, err := s.jobs.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}

	// Beyond the suffix budget, fall back to a random tail.
	return fmt.Sprintf("%s-%s", base, strings.ToLower(models.NewULID().String()[16:])), nil
}
