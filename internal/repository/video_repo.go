package repository

import (
	"context"
	"fmt"

	"github.com/vodarr/vodarr/internal/models"
	"gorm.io/gorm"
)

// videoRepo implements VideoRepository using GORM.
type videoRepo struct {
	db *gorm.DB
}

// NewVideoRepository creates a new VideoRepository.
func NewVideoRepository(db *gorm.DB) *videoRepo {
	return &videoRepo{db: db}
}

// Create creates a new video.
func (r *videoRepo) Create(ctx context.Context, video *models.Video) error {
	if err := r.db.WithContext(ctx).Create(video).Error; err != nil {
		return fmt.Errorf("creating video: %w", err)
	}
	return nil
}

// CreateWithVariants creates a video and its variants in one transaction.
func (r *videoRepo) CreateWithVariants(ctx context.Context, video *models.Video, variants []*models.QualityVariant) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(video).Error; err != nil {
			return fmt.Errorf("creating video: %w", err)
		}
		for _, variant := range variants {
			variant.VideoID = video.ID
			if err := tx.Create(variant).Error; err != nil {
				return fmt.Errorf("creating variant %s: %w", variant.Name, err)
			}
		}
		return nil
	})
}

// GetByID retrieves a video by ID.
func (r *videoRepo) GetByID(ctx context.Context, id models.ULID) (*models.Video, error) {
	var video models.Video
	if err := r.db.WithContext(ctx).Preload("Variants").Where("id = ?", id).First(&video).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting video by ID: %w", err)
	}
	return &video, nil
}

// GetBySlug retrieves a video by slug with variants preloaded.
func (r *videoRepo) GetBySlug(ctx context.Context, slug string) (*models.Video, error) {
	var video models.Video
	if err := r.db.WithContext(ctx).Preload("Variants").Where("slug = ?", slug).First(&video).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting video by slug: %w", err)
	}
	return &video, nil
}

// GetReady retrieves all ready videos with variants preloaded, newest first.
func (r *videoRepo) GetReady(ctx context.Context) ([]*models.Video, error) {
	var videos []*models.Video
	if err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("status = ?", models.VideoStatusReady).
		Order("created_at DESC").
		Find(&videos).Error; err != nil {
		return nil, fmt.Errorf("getting ready videos: %w", err)
	}
	return videos, nil
}

// Update updates an existing video.
func (r *videoRepo) Update(ctx context.Context, video *models.Video) error {
	if err := r.db.WithContext(ctx).Save(video).Error; err != nil {
		return fmt.Errorf("updating video: %w", err)
	}
	return nil
}

// Delete deletes a video and its variants by ID.
func (r *videoRepo) Delete(ctx context.Context, id models.ULID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("video_id = ?", id).Delete(&models.QualityVariant{}).Error; err != nil {
			return fmt.Errorf("deleting variants: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&models.Video{}).Error; err != nil {
			return fmt.Errorf("deleting video: %w", err)
		}
		return nil
	})
}
