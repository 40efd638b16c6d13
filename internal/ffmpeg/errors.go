package ffmpeg

import (
	"fmt"
	"time"
)

// ProbeError indicates ffprobe failed or produced unusable output.
type ProbeError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ProbeError) Error() string {
	return fmt.Sprintf("probing %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProbeError) Unwrap() error {
	return e.Err
}

// FrameExtractionError indicates a still-frame grab failed.
type FrameExtractionError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *FrameExtractionError) Error() string {
	return fmt.Sprintf("extracting frame from %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *FrameExtractionError) Unwrap() error {
	return e.Err
}

// EncodeError indicates an encode run failed. StderrTail carries the last
// ffmpeg stderr lines for logging; it must not reach API responses.
type EncodeError struct {
	Quality    string
	ExitCode   int
	StderrTail string
	Err        error
}

// Error implements the error interface.
func (e *EncodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("encoding %s: %v", e.Quality, e.Err)
	}
	return fmt.Sprintf("encoding %s: exit code %d", e.Quality, e.ExitCode)
}

// Unwrap returns the underlying error.
func (e *EncodeError) Unwrap() error {
	return e.Err
}

// TimeoutError indicates a subprocess exceeded its deadline and was killed.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %v", e.Op, e.Timeout)
}
