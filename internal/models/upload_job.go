package models

import (
	"strings"

	"gorm.io/gorm"
)

// Stage identifies the pipeline stage an upload job is in. Transcode stages
// carry their quality name after a colon, e.g. "transcoding:720p".
type Stage string

const (
	// StageUploaded indicates the upload has been staged but not yet processed.
	StageUploaded Stage = "uploaded"
	// StageExtractingMetadata indicates the source file is being probed.
	StageExtractingMetadata Stage = "extracting_metadata"
	// StageGeneratingThumbnail indicates the thumbnail frame is being extracted.
	StageGeneratingThumbnail Stage = "generating_thumbnail"
	// StageGeneratingPoster indicates the poster frame is being extracted.
	StageGeneratingPoster Stage = "generating_poster"
	// StageFinalizing indicates outputs are being published to final storage.
	StageFinalizing Stage = "finalizing"
	// StageReady indicates the job finished and the video is playable.
	StageReady Stage = "ready"
)

// transcodingPrefix prefixes per-quality transcode stages.
const transcodingPrefix = "transcoding:"

// TranscodingStage returns the stage for transcoding the named quality.
func TranscodingStage(quality string) Stage {
	return Stage(transcodingPrefix + quality)
}

// IsTranscoding returns true for per-quality transcode stages.
func (s Stage) IsTranscoding() bool {
	return strings.HasPrefix(string(s), transcodingPrefix)
}

// Quality returns the quality name of a transcode stage, or "" otherwise.
func (s Stage) Quality() string {
	if !s.IsTranscoding() {
		return ""
	}
	return strings.TrimPrefix(string(s), transcodingPrefix)
}

// String returns the stage as a string.
func (s Stage) String() string {
	return string(s)
}

// JobStatus represents the overall status of an upload job.
type JobStatus string

const (
	// JobStatusProcessing indicates the job is queued or actively running.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusSucceeded indicates the job completed and the video is ready.
	JobStatusSucceeded JobStatus = "succeeded"
	// JobStatusFailed indicates the job failed permanently.
	JobStatusFailed JobStatus = "failed"
)

// UploadJob tracks one uploaded file through the transcoding pipeline.
// The ULID primary key doubles as the public upload ID.
type UploadJob struct {
	BaseModel

	// Slug is the URL-safe identifier the finished video will publish under.
	Slug string `gorm:"not null;size:255;uniqueIndex" json:"slug"`

	// Title is the display title supplied at upload time.
	Title string `gorm:"not null;size:255" json:"title"`

	// Description is an optional free-form description.
	Description string `gorm:"size:4096" json:"description,omitempty"`

	// IsPublic controls visibility of the finished video.
	IsPublic bool `gorm:"default:false" json:"is_public"`

	// SourceFilename is the original client-supplied filename.
	SourceFilename string `gorm:"size:512" json:"source_filename,omitempty"`

	// SourceSize is the uploaded file size in bytes.
	SourceSize int64 `json:"source_size,omitempty"`

	// Stage is the pipeline stage the job is currently in. On permanent
	// failure it keeps the stage that failed.
	Stage Stage `gorm:"not null;default:'uploaded';size:64;index" json:"stage"`

	// Progress is a whole percentage 0-100. It never decreases.
	Progress int `gorm:"default:0" json:"progress"`

	// Status indicates the overall job status.
	Status JobStatus `gorm:"not null;default:'processing';size:20;index" json:"status"`

	// LastError contains a short operator-safe message from the last failure.
	LastError string `gorm:"size:1024" json:"last_error,omitempty"`

	// AttemptCount is the number of failed attempts of the current stage.
	// Reset to zero whenever a stage completes.
	AttemptCount int `gorm:"default:0" json:"attempt_count"`

	// StartedAt is when a worker picked the job up.
	StartedAt *Time `json:"started_at,omitempty"`

	// CompletedAt is when the job reached a terminal status.
	CompletedAt *Time `json:"completed_at,omitempty"`
}

// TableName returns the table name for UploadJob.
func (UploadJob) TableName() string {
	return "upload_jobs"
}

// IsTerminal returns true once the job has succeeded or failed.
func (j *UploadJob) IsTerminal() bool {
	return j.Status == JobStatusSucceeded || j.Status == JobStatusFailed
}

// MarkStage moves the job to the given stage with the given progress.
// Progress never regresses; attempt counting restarts for the new stage.
func (j *UploadJob) MarkStage(stage Stage, progress int) {
	j.Stage = stage
	if progress > j.Progress {
		j.Progress = progress
	}
	j.AttemptCount = 0
}

// MarkStarted records pickup by a worker.
func (j *UploadJob) MarkStarted() {
	now := Now()
	j.StartedAt = &now
}

// MarkFailed marks the job as permanently failed, keeping the current stage
// and progress so the failure point stays observable.
func (j *UploadJob) MarkFailed(reason string) {
	j.Status = JobStatusFailed
	j.LastError = reason
	now := Now()
	j.CompletedAt = &now
}

// MarkReady marks the job as finished.
func (j *UploadJob) MarkReady() {
	j.Stage = StageReady
	j.Status = JobStatusSucceeded
	j.Progress = 100
	j.LastError = ""
	now := Now()
	j.CompletedAt = &now
}

// Validate performs basic validation on the job.
func (j *UploadJob) Validate() error {
	if j.Title == "" {
		return ErrTitleRequired
	}
	if j.Slug == "" {
		return ErrSlugRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the job and generates its ULID.
func (j *UploadJob) BeforeCreate(tx *gorm.DB) error {
	if err := j.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return j.Validate()
}

// BeforeUpdate is a GORM hook that validates the job before update.
func (j *UploadJob) BeforeUpdate(tx *gorm.DB) error {
	return j.Validate()
}
