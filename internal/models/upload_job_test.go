package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vodarr/vodarr/internal/models"
)

func TestStage_Transcoding(t *testing.T) {
	stage := models.TranscodingStage("720p")
	assert.Equal(t, models.Stage("transcoding:720p"), stage)
	assert.True(t, stage.IsTranscoding())
	assert.Equal(t, "720p", stage.Quality())

	assert.False(t, models.StageUploaded.IsTranscoding())
	assert.Empty(t, models.StageFinalizing.Quality())
}

func TestUploadJob_MarkStage(t *testing.T) {
	job := &models.UploadJob{Stage: models.StageUploaded, AttemptCount: 2}

	job.MarkStage(models.StageExtractingMetadata, 20)
	assert.Equal(t, models.StageExtractingMetadata, job.Stage)
	assert.Equal(t, 20, job.Progress)
	assert.Zero(t, job.AttemptCount, "attempt count resets on stage completion")

	// Progress never regresses.
	job.MarkStage(models.StageGeneratingThumbnail, 10)
	assert.Equal(t, 20, job.Progress)

	job.MarkStage(models.StageGeneratingPoster, 40)
	assert.Equal(t, 40, job.Progress)
}

func TestUploadJob_MarkStarted(t *testing.T) {
	job := &models.UploadJob{}
	require.Nil(t, job.StartedAt)

	job.MarkStarted()
	assert.NotNil(t, job.StartedAt)
}

func TestUploadJob_MarkFailed(t *testing.T) {
	job := &models.UploadJob{
		Stage:    models.TranscodingStage("480p"),
		Progress: 60,
		Status:   models.JobStatusProcessing,
	}

	job.MarkFailed("encoding 480p failed (exit code 1)")

	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Equal(t, "encoding 480p failed (exit code 1)", job.LastError)
	assert.NotNil(t, job.CompletedAt)
	assert.True(t, job.IsTerminal())

	// The failing stage and last progress are preserved for diagnosis.
	assert.Equal(t, models.TranscodingStage("480p"), job.Stage)
	assert.Equal(t, 60, job.Progress)
}

func TestUploadJob_MarkReady(t *testing.T) {
	job := &models.UploadJob{
		Stage:     models.StageFinalizing,
		Progress:  90,
		Status:    models.JobStatusProcessing,
		LastError: "transient failure from an earlier retry",
	}

	job.MarkReady()

	assert.Equal(t, models.StageReady, job.Stage)
	assert.Equal(t, models.JobStatusSucceeded, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Empty(t, job.LastError)
	assert.NotNil(t, job.CompletedAt)
	assert.True(t, job.IsTerminal())
}

func TestUploadJob_Validate(t *testing.T) {
	job := &models.UploadJob{Slug: "a-video", Title: "A Video"}
	assert.NoError(t, job.Validate())

	assert.Error(t, (&models.UploadJob{Title: "A Video"}).Validate())
	assert.Error(t, (&models.UploadJob{Slug: "a-video"}).Validate())
}

func TestULID_RoundTrip(t *testing.T) {
	id := models.NewULID()
	require.False(t, id.IsZero())

	parsed, err := models.ParseULID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = models.ParseULID("not-a-ulid")
	assert.Error(t, err)
}
