package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/vodarr/vodarr/internal/ffmpeg"
)

// StorageError indicates a filesystem operation failed mid-pipeline.
// Storage failures get a single retry before the job fails.
type StorageError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// ErrCancelled marks a job cancelled by request. Permanent.
var ErrCancelled = errors.New("cancelled")

// ErrInterrupted marks a job stopped by server shutdown. Permanent, but the
// temp dir stays on disk for the retention sweeper.
var ErrInterrupted = errors.New("interrupted by shutdown")

// failure is the classified shape of a stage error.
type failure struct {
	// retryable is false for permanent failures.
	retryable bool
	// maxRetries bounds attempts of the failed stage.
	maxRetries int
	// reason is a short operator-safe message stored on the job.
	reason string
}

// classify maps a stage error onto retry policy and an operator-safe reason.
// Stderr tails and wrapped causes stay out of the reason; callers log them.
func classify(err error, defaultRetries int) failure {
	var probeErr *ffmpeg.ProbeError
	var frameErr *ffmpeg.FrameExtractionError
	var encodeErr *ffmpeg.EncodeError
	var timeoutErr *ffmpeg.TimeoutError
	var storageErr *StorageError

	switch {
	case errors.Is(err, ErrInterrupted):
		return failure{retryable: false, reason: "interrupted by shutdown"}
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return failure{retryable: false, reason: "cancelled"}
	case errors.As(err, &timeoutErr):
		return failure{retryable: true, maxRetries: defaultRetries, reason: timeoutErr.Error()}
	case errors.As(err, &probeErr):
		return failure{retryable: true, maxRetries: defaultRetries, reason: "failed to read media metadata"}
	case errors.As(err, &frameErr):
		return failure{retryable: true, maxRetries: defaultRetries, reason: "failed to extract still frame"}
	case errors.As(err, &encodeErr):
		return failure{
			retryable:  true,
			maxRetries: defaultRetries,
			reason:     fmt.Sprintf("encoding %s failed (exit code %d)", encodeErr.Quality, encodeErr.ExitCode),
		}
	case errors.As(err, &storageErr):
		return failure{retryable: true, maxRetries: 1, reason: "storage operation failed"}
	default:
		return failure{retryable: false, reason: "internal error"}
	}
}
