package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vodarr/vodarr/internal/ffmpeg"
)

func TestClassify(t *testing.T) {
	const defaultRetries = 3

	t.Run("cancellation is permanent", func(t *testing.T) {
		f := classify(ErrCancelled, defaultRetries)
		assert.False(t, f.retryable)
		assert.Equal(t, "cancelled", f.reason)

		f = classify(context.Canceled, defaultRetries)
		assert.False(t, f.retryable)
		assert.Equal(t, "cancelled", f.reason)
	})

	t.Run("shutdown interruption is permanent with its own reason", func(t *testing.T) {
		f := classify(ErrInterrupted, defaultRetries)
		assert.False(t, f.retryable)
		assert.Equal(t, "interrupted by shutdown", f.reason)
	})

	t.Run("timeouts are retryable", func(t *testing.T) {
		f := classify(&ffmpeg.TimeoutError{Op: "probe", Timeout: time.Second}, defaultRetries)
		assert.True(t, f.retryable)
		assert.Equal(t, defaultRetries, f.maxRetries)
	})

	t.Run("probe errors are retryable with a safe reason", func(t *testing.T) {
		f := classify(&ffmpeg.ProbeError{Path: "/tmp/x", Err: errors.New("boom")}, defaultRetries)
		assert.True(t, f.retryable)
		assert.Equal(t, "failed to read media metadata", f.reason)
	})

	t.Run("encode errors keep stderr out of the reason", func(t *testing.T) {
		err := &ffmpeg.EncodeError{
			Quality:    "720p",
			ExitCode:   1,
			StderrTail: "x264 [error]: something very internal",
			Err:        errors.New("exit status 1"),
		}
		f := classify(err, defaultRetries)
		assert.True(t, f.retryable)
		assert.Equal(t, "encoding 720p failed (exit code 1)", f.reason)
		assert.NotContains(t, f.reason, "x264")
	})

	t.Run("storage errors get a single retry", func(t *testing.T) {
		f := classify(&StorageError{Op: "publishing outputs", Err: errors.New("disk full")}, defaultRetries)
		assert.True(t, f.retryable)
		assert.Equal(t, 1, f.maxRetries)
		assert.Equal(t, "storage operation failed", f.reason)
	})

	t.Run("unknown errors are permanent", func(t *testing.T) {
		f := classify(errors.New("surprise"), defaultRetries)
		assert.False(t, f.retryable)
		assert.Equal(t, "internal error", f.reason)
	})
}

func TestBackoff(t *testing.T) {
	base := 2 * time.Second
	max := 60 * time.Second

	assert.Equal(t, 4*time.Second, backoff(base, 1, max))
	assert.Equal(t, 8*time.Second, backoff(base, 2, max))
	assert.Equal(t, 16*time.Second, backoff(base, 3, max))
	assert.Equal(t, max, backoff(base, 10, max))

	// Zero base falls back to one second.
	assert.Equal(t, 2*time.Second, backoff(0, 1, max))
}

func TestProgressAfter(t *testing.T) {
	// Three fixed stages, two qualities, and finalize.
	total := 6
	assert.Equal(t, 16, progressAfter(1, total))
	assert.Equal(t, 50, progressAfter(3, total))
	assert.Equal(t, 100, progressAfter(6, total))
	assert.Equal(t, 100, progressAfter(1, 0))
}

func TestEncodeTimeout(t *testing.T) {
	cap := 2 * time.Hour

	assert.Equal(t, 10*time.Minute, encodeTimeout(time.Minute, cap))
	assert.Equal(t, cap, encodeTimeout(13*time.Hour, cap))
	assert.Equal(t, cap, encodeTimeout(0, cap))
}
