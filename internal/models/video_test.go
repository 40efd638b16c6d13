package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vodarr/vodarr/internal/models"
)

func TestVideo_IsReady(t *testing.T) {
	video := &models.Video{Status: models.VideoStatusProcessing}
	assert.False(t, video.IsReady())

	video.Status = models.VideoStatusReady
	assert.True(t, video.IsReady())

	video.Status = models.VideoStatusFailed
	assert.False(t, video.IsReady())
}

func TestVideo_Validate(t *testing.T) {
	video := &models.Video{
		Slug:  "my-video",
		Title: "My Video",
	}
	assert.NoError(t, video.Validate())

	video.Title = ""
	assert.ErrorIs(t, video.Validate(), models.ErrTitleRequired)

	video.Title = "My Video"
	video.Slug = ""
	assert.ErrorIs(t, video.Validate(), models.ErrSlugRequired)
}

func TestQualityVariant_Validate(t *testing.T) {
	variant := &models.QualityVariant{
		VideoID: models.NewULID(),
		Name:    "720p",
	}
	assert.NoError(t, variant.Validate())

	variant.Name = ""
	assert.ErrorIs(t, variant.Validate(), models.ErrVariantNameRequired)

	variant.Name = "720p"
	variant.VideoID = models.ULID{}
	assert.ErrorIs(t, variant.Validate(), models.ErrVideoIDRequired)
}
