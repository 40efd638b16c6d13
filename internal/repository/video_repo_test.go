package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/repository"
)

func newTestVideo(slug string) *models.Video {
	return &models.Video{
		Slug:   slug,
		Title:  "Test Video",
		Status: models.VideoStatusReady,
	}
}

func TestVideoRepository_CreateWithVariants(t *testing.T) {
	repos := repository.New(newTestDB(t))
	ctx := context.Background()

	video := newTestVideo("with-variants")
	variants := []*models.QualityVariant{
		{Name: "720p", Width: 1280, Height: 720, VideoBitrate: 2800, AudioBitrate: 128, ManifestPath: "720p/manifest.m3u8", SegmentCount: 12},
		{Name: "480p", Width: 854, Height: 480, VideoBitrate: 1400, AudioBitrate: 96, ManifestPath: "480p/manifest.m3u8", SegmentCount: 12},
	}

	require.NoError(t, repos.Videos.CreateWithVariants(ctx, video, variants))

	found, err := repos.Videos.GetBySlug(ctx, "with-variants")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Len(t, found.Variants, 2)

	for _, variant := range found.Variants {
		assert.Equal(t, video.ID, variant.VideoID)
	}
}

func TestVideoRepository_GetMissing(t *testing.T) {
	repos := repository.New(newTestDB(t))
	ctx := context.Background()

	found, err := repos.Videos.GetBySlug(ctx, "no-such-video")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestVideoRepository_GetReady(t *testing.T) {
	repos := repository.New(newTestDB(t))
	ctx := context.Background()

	ready := newTestVideo("ready-video")
	require.NoError(t, repos.Videos.Create(ctx, ready))

	processing := newTestVideo("processing-video")
	processing.Status = models.VideoStatusProcessing
	require.NoError(t, repos.Videos.Create(ctx, processing))

	videos, err := repos.Videos.GetReady(ctx)
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "ready-video", videos[0].Slug)
}

func TestVideoRepository_Delete(t *testing.T) {
	db := newTestDB(t)
	repos := repository.New(db)
	ctx := context.Background()

	video := newTestVideo("doomed-video")
	variants := []*models.QualityVariant{
		{Name: "720p", Width: 1280, Height: 720, VideoBitrate: 2800, AudioBitrate: 128, ManifestPath: "720p/manifest.m3u8", SegmentCount: 3},
	}
	require.NoError(t, repos.Videos.CreateWithVariants(ctx, video, variants))

	require.NoError(t, repos.Videos.Delete(ctx, video.ID))

	found, err := repos.Videos.GetByID(ctx, video.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	var count int64
	require.NoError(t, db.Model(&models.QualityVariant{}).Count(&count).Error)
	assert.Zero(t, count)
}
