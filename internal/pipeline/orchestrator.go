// Package pipeline drives upload jobs through the transcoding stage ladder:
// metadata extraction, still frames, the HLS quality ladder, and finalize.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vodarr/vodarr/internal/config"
	"github.com/vodarr/vodarr/internal/ffmpeg"
	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/repository"
	"github.com/vodarr/vodarr/internal/storage"
)

// Transcoder is the media toolchain boundary the pipeline drives.
type Transcoder interface {
	// Probe reads the essential properties of a media file.
	Probe(ctx context.Context, path string) (*ffmpeg.MediaInfo, error)
	// ExtractFrame grabs one frame at the given position into outPath.
	ExtractFrame(ctx context.Context, path string, atSeconds float64, targetWidth int, outPath string) error
	// EncodeQuality encodes one HLS rendition under outDir, returning the
	// manifest path and segment count.
	EncodeQuality(ctx context.Context, path string, quality config.QualityConfig, outDir string, segmentDuration time.Duration) (string, int, error)
}

const (
	thumbnailBasename = "thumbnail.jpg"
	posterBasename    = "poster.jpg"

	thumbnailWidth    = 480
	posterWidth       = 1280
	thumbnailFraction = 0.10
	posterFraction    = 0.25

	// encodeDurationFactor scales source duration into the encode deadline.
	encodeDurationFactor = 10
)

// ErrJobNotFound is returned by Cancel for unknown upload IDs.
var ErrJobNotFound = errors.New("upload job not found")

// jobState carries data across stages of one run.
type jobState struct {
	job        *models.UploadJob
	sourcePath string
	outDir     string
	info       *ffmpeg.MediaInfo
	variants   []*models.QualityVariant
}

// stageDef is one rung of the ladder.
type stageDef struct {
	stage models.Stage
	run   func(ctx context.Context, st *jobState) error
}

// runningJob tracks an in-flight job so Cancel can stop it, and so a user
// cancellation can be told apart from the worker context shutting down.
type runningJob struct {
	cancel    context.CancelFunc
	cancelled atomic.Bool
}

// Orchestrator runs upload jobs through the stage ladder with per-stage
// retries and exponential backoff. Stages within a job are strictly
// sequential; concurrency happens across jobs in the worker pool.
type Orchestrator struct {
	cfg        config.TranscodeConfig
	transcoder Transcoder
	store      *storage.MediaStore
	jobs       repository.UploadJobRepository
	videos     repository.VideoRepository
	logger     *slog.Logger

	mu      sync.Mutex
	running map[string]*runningJob
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(
	cfg config.TranscodeConfig,
	transcoder Transcoder,
	store *storage.MediaStore,
	jobs repository.UploadJobRepository,
	videos repository.VideoRepository,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:        cfg,
		transcoder: transcoder,
		store:      store,
		jobs:       jobs,
		videos:     videos,
		logger:     logger,
		running:    make(map[string]*runningJob),
	}
}

// Process runs one upload job from its current state to a terminal status.
// It is the unit of work a pool worker executes.
func (o *Orchestrator) Process(ctx context.Context, jobID models.ULID) {
	logger := o.logger.With(slog.String("upload_id", jobID.String()))

	job, err := o.jobs.GetByID(ctx, jobID)
	if err != nil {
		logger.Error("loading upload job", slog.String("error", err.Error()))
		return
	}
	if job == nil || job.IsTerminal() {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	rj := &runningJob{cancel: cancel}
	key := jobID.String()
	o.mu.Lock()
	o.running[key] = rj
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.running, key)
		o.mu.Unlock()
	}()

	job.MarkStarted()
	if err := o.jobs.Update(ctx, job); err != nil {
		logger.Error("persisting job start", slog.String("error", err.Error()))
		return
	}

	st := &jobState{job: job}
	stages := o.ladder()
	for i, stage := range stages {
		if err := o.runStage(runCtx, logger, st, stage, i+1, len(stages)); err != nil {
			// A cancellation that nobody requested means the worker context
			// is shutting down; the job is interrupted, not cancelled.
			if !rj.cancelled.Load() && (errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)) {
				err = ErrInterrupted
			}
			o.failJob(ctx, logger, st, err)
			return
		}
	}

	job.MarkReady()
	if err := o.jobs.Update(ctx, job); err != nil {
		logger.Error("persisting job completion", slog.String("error", err.Error()))
		return
	}
	logger.Info("upload job completed", slog.String("slug", job.Slug))
}

// Cancel cancels a job. A running job has its context cancelled, which kills
// the active subprocess; a queued job is failed directly. Either way the job
// ends failed with a cancelled reason and its temp storage is removed.
func (o *Orchestrator) Cancel(ctx context.Context, jobID models.ULID) error {
	o.mu.Lock()
	rj, ok := o.running[jobID.String()]
	o.mu.Unlock()
	if ok {
		rj.cancelled.Store(true)
		rj.cancel()
		return nil
	}

	job, err := o.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return ErrJobNotFound
	}
	if job.IsTerminal() {
		return nil
	}

	job.MarkFailed("cancelled")
	if err := o.jobs.Update(ctx, job); err != nil {
		return err
	}
	if err := o.store.DeleteTemp(jobID.String()); err != nil {
		o.logger.Warn("removing temp storage for cancelled job",
			slog.String("upload_id", jobID.String()),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// ladder builds the stage sequence from the configured quality ladder.
// An empty ladder still probes, extracts frames, and finalizes.
func (o *Orchestrator) ladder() []stageDef {
	stages := []stageDef{
		{stage: models.StageExtractingMetadata, run: o.extractMetadata},
		{stage: models.StageGeneratingThumbnail, run: o.generateThumbnail},
		{stage: models.StageGeneratingPoster, run: o.generatePoster},
	}

	for _, quality := range o.cfg.Qualities {
		q := quality
		stages = append(stages, stageDef{
			stage: models.TranscodingStage(q.Name),
			run: func(ctx context.Context, st *jobState) error {
				return o.transcodeQuality(ctx, st, q)
			},
		})
	}

	stages = append(stages, stageDef{stage: models.StageFinalizing, run: o.finalize})
	return stages
}

// runStage executes one stage with its retry loop. Progress advances only
// when the stage succeeds and is held steady across retries.
func (o *Orchestrator) runStage(ctx context.Context, logger *slog.Logger, st *jobState, stage stageDef, completed, total int) error {
	job := st.job
	job.Stage = stage.stage
	if err := o.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("persisting stage transition: %w", err)
	}

	stageLogger := logger.With(slog.String("stage", stage.stage.String()))

	for {
		err := stage.run(ctx, st)
		if err == nil {
			job.MarkStage(stage.stage, progressAfter(completed, total))
			if uerr := o.jobs.Update(ctx, job); uerr != nil {
				return fmt.Errorf("persisting stage completion: %w", uerr)
			}
			return nil
		}

		if ctx.Err() != nil {
			return ErrCancelled
		}

		f := classify(err, o.cfg.MaxRetries)
		logStageError(stageLogger, job.AttemptCount, err)

		if !f.retryable || job.AttemptCount >= f.maxRetries {
			return err
		}

		job.AttemptCount++
		if uerr := o.jobs.Update(ctx, job); uerr != nil {
			return fmt.Errorf("persisting retry attempt: %w", uerr)
		}

		delay := backoff(o.cfg.RetryBaseDelay, job.AttemptCount, o.cfg.RetryMaxDelay)
		stageLogger.Warn("retrying stage",
			slog.Int("attempt", job.AttemptCount),
			slog.Duration("backoff", delay),
		)

		select {
		case <-ctx.Done():
			return ErrCancelled
		case <-time.After(delay):
		}
	}
}

// failJob marks the job permanently failed. Cancelled jobs also lose their
// temp storage immediately; shutdown interruptions and other failures keep
// it for the retention sweeper.
func (o *Orchestrator) failJob(ctx context.Context, logger *slog.Logger, st *jobState, err error) {
	// The run context may already be cancelled; persistence must still happen.
	persistCtx := context.WithoutCancel(ctx)

	f := classify(err, o.cfg.MaxRetries)
	job := st.job
	job.MarkFailed(f.reason)
	if uerr := o.jobs.Update(persistCtx, job); uerr != nil {
		logger.Error("persisting job failure", slog.String("error", uerr.Error()))
	}

	logger.Error("upload job failed",
		slog.String("stage", job.Stage.String()),
		slog.String("reason", f.reason),
	)

	if f.reason == "cancelled" {
		if derr := o.store.DeleteTemp(job.ID.String()); derr != nil {
			logger.Warn("removing temp storage", slog.String("error", derr.Error()))
		}
	}
}

// extractMetadata probes the staged source and prepares the output dir.
func (o *Orchestrator) extractMetadata(ctx context.Context, st *jobState) error {
	key := st.job.ID.String()

	sourcePath, err := o.store.SourcePath(key)
	if err != nil {
		return &StorageError{Op: "locating source", Err: err}
	}

	info, err := o.transcoder.Probe(ctx, sourcePath)
	if err != nil {
		return err
	}

	outDir, err := o.store.OutputDir(key)
	if err != nil {
		return &StorageError{Op: "creating output dir", Err: err}
	}

	st.sourcePath = sourcePath
	st.info = info
	st.outDir = outDir
	return nil
}

func (o *Orchestrator) generateThumbnail(ctx context.Context, st *jobState) error {
	at := thumbnailFraction * st.info.Duration().Seconds()
	return o.transcoder.ExtractFrame(ctx, st.sourcePath, at, thumbnailWidth, filepath.Join(st.outDir, thumbnailBasename))
}

func (o *Orchestrator) generatePoster(ctx context.Context, st *jobState) error {
	at := posterFraction * st.info.Duration().Seconds()
	return o.transcoder.ExtractFrame(ctx, st.sourcePath, at, posterWidth, filepath.Join(st.outDir, posterBasename))
}

// transcodeQuality encodes one rendition with a deadline derived from the
// source duration.
func (o *Orchestrator) transcodeQuality(ctx context.Context, st *jobState, quality config.QualityConfig) error {
	timeout := encodeTimeout(st.info.Duration(), o.cfg.EncodeTimeoutCap)
	encodeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	renditionDir := filepath.Join(st.outDir, quality.Name)
	_, segments, err := o.transcoder.EncodeQuality(encodeCtx, st.sourcePath, quality, renditionDir, o.cfg.SegmentDuration)
	if err != nil {
		return err
	}

	st.variants = append(st.variants, &models.QualityVariant{
		Name:         quality.Name,
		Width:        quality.Width,
		Height:       quality.Height,
		VideoBitrate: quality.VideoBitrate,
		AudioBitrate: quality.AudioBitrate,
		ManifestPath: path.Join(quality.Name, "manifest.m3u8"),
		SegmentCount: segments,
	})
	return nil
}

// finalize publishes outputs with a single directory rename, records the
// video and its variants in one transaction, and drops the temp dir.
func (o *Orchestrator) finalize(ctx context.Context, st *jobState) error {
	job := st.job
	key := job.ID.String()

	if err := o.store.Finalize(key, job.Slug); err != nil {
		return &StorageError{Op: "publishing outputs", Err: err}
	}

	video := &models.Video{
		Slug:         job.Slug,
		Title:        job.Title,
		Description:  job.Description,
		IsPublic:     job.IsPublic,
		DurationMs:   st.info.DurationMs,
		Width:        st.info.Width,
		Height:       st.info.Height,
		Framerate:    st.info.Framerate,
		Bitrate:      st.info.Bitrate,
		VideoCodec:   st.info.VideoCodec,
		AudioCodec:   st.info.AudioCodec,
		ThumbnailURL: path.Join("/media", job.Slug, thumbnailBasename),
		PosterURL:    path.Join("/media", job.Slug, posterBasename),
		Status:       models.VideoStatusReady,
	}
	if err := o.videos.CreateWithVariants(ctx, video, st.variants); err != nil {
		return &StorageError{Op: "recording video", Err: err}
	}

	if err := o.store.DeleteTemp(key); err != nil {
		o.logger.Warn("removing temp storage after finalize",
			slog.String("upload_id", key),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// progressAfter computes whole-percent progress after completing a stage.
func progressAfter(completed, total int) int {
	if total <= 0 {
		return 100
	}
	return completed * 100 / total
}

// backoff computes the delay before retry number attempt (1-based):
// base * 2^attempt, capped.
func backoff(base time.Duration, attempt int, max time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if attempt < 1 {
		attempt = 1
	}

	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if max > 0 && delay >= max {
			return max
		}
	}
	return delay
}

// encodeTimeout derives the encode deadline from the source duration.
func encodeTimeout(duration, cap time.Duration) time.Duration {
	timeout := duration * encodeDurationFactor
	if timeout <= 0 || (cap > 0 && timeout > cap) {
		return cap
	}
	return timeout
}

// logStageError logs a stage failure. Encode stderr tails are logged here
// and never stored on the job.
func logStageError(logger *slog.Logger, attempt int, err error) {
	attrs := []any{
		slog.Int("attempt", attempt),
		slog.String("error", err.Error()),
	}

	var encodeErr *ffmpeg.EncodeError
	if errors.As(err, &encodeErr) && encodeErr.StderrTail != "" {
		attrs = append(attrs, slog.String("stderr_tail", encodeErr.StderrTail))
	}

	logger.Error("stage failed", attrs...)
}
