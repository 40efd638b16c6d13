package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bluenviron/gohlslib/v2/pkg/playlist"
	"github.com/vodarr/vodarr/internal/config"
)

// segmentPattern names HLS media segments inside a rendition directory.
const segmentPattern = "segment_%04d.ts"

// manifestBasename is the HLS playlist filename inside a rendition directory.
const manifestBasename = "manifest.m3u8"

// Transcoder runs the ffmpeg toolchain as subprocesses to probe sources,
// grab still frames, and encode HLS renditions.
type Transcoder struct {
	binaries     *Binaries
	prober       *Prober
	frameTimeout time.Duration
}

// NewTranscoder creates a Transcoder using the resolved binaries.
func NewTranscoder(binaries *Binaries, cfg config.TranscodeConfig) *Transcoder {
	return &Transcoder{
		binaries:     binaries,
		prober:       NewProber(binaries.FFprobe, cfg.ProbeTimeout),
		frameTimeout: cfg.FrameTimeout,
	}
}

// Probe probes a media file.
func (t *Transcoder) Probe(ctx context.Context, path string) (*MediaInfo, error) {
	return t.prober.Probe(ctx, path)
}

// ExtractFrame grabs a single frame at the given position, scaled to the
// target width with the aspect ratio preserved, and writes it to outPath.
func (t *Transcoder) ExtractFrame(ctx context.Context, path string, atSeconds float64, targetWidth int, outPath string) error {
	ctx, cancel := context.WithTimeout(ctx, t.frameTimeout)
	defer cancel()

	if err := os.MkdirAll(filepath.Dir(outPath), 0750); err != nil {
		return &FrameExtractionError{Path: path, Err: err}
	}

	cmd := NewCommandBuilder(t.binaries.FFmpeg).
		SeekTo(atSeconds).
		Input(path).
		Frames(1).
		VideoFilter(fmt.Sprintf("scale=%d:-2", targetWidth)).
		Output(outPath).
		Build()

	if err := cmd.Run(ctx); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &TimeoutError{Op: "frame extraction", Timeout: t.frameTimeout}
		}
		return &FrameExtractionError{Path: path, Err: fmt.Errorf("%w: %s", err, cmd.StderrTail())}
	}
	return nil
}

// EncodeQuality encodes one quality ladder rung as a VOD HLS rendition under
// outDir. The produced playlist is parsed and its segments counted; an empty
// rendition is an encode failure. The caller bounds the run via ctx.
func (t *Transcoder) EncodeQuality(ctx context.Context, path string, quality config.QualityConfig, outDir string, segmentDuration time.Duration) (string, int, error) {
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return "", 0, &EncodeError{Quality: quality.Name, Err: err}
	}

	budget := time.Duration(0)
	if deadline, ok := ctx.Deadline(); ok {
		budget = time.Until(deadline)
	}

	manifestPath := filepath.Join(outDir, manifestBasename)
	cmd := NewCommandBuilder(t.binaries.FFmpeg).
		Input(path).
		VideoCodec("libx264").
		VideoPreset("medium").
		VideoBitrate(fmt.Sprintf("%dk", quality.VideoBitrate)).
		VideoFilter(fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", quality.Width, quality.Height)).
		AudioCodec("aac").
		AudioBitrate(fmt.Sprintf("%dk", quality.AudioBitrate)).
		HLSArgs(int(segmentDuration.Seconds()), filepath.Join(outDir, segmentPattern)).
		Output(manifestPath).
		Build()

	if err := cmd.Run(ctx); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", 0, &TimeoutError{Op: "encode " + quality.Name, Timeout: budget}
		}
		return "", 0, &EncodeError{
			Quality:    quality.Name,
			ExitCode:   cmd.ExitCode(),
			StderrTail: cmd.StderrTail(),
			Err:        err,
		}
	}

	segments, err := countSegments(manifestPath)
	if err != nil {
		return "", 0, &EncodeError{Quality: quality.Name, Err: err}
	}
	if segments == 0 {
		return "", 0, &EncodeError{Quality: quality.Name, Err: fmt.Errorf("rendition produced no segments")}
	}

	return manifestPath, segments, nil
}

// countSegments parses the produced HLS playlist and returns its segment count.
func countSegments(manifestPath string) (int, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return 0, fmt.Errorf("reading playlist: %w", err)
	}

	pl, err := playlist.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("parsing playlist: %w", err)
	}

	media, ok := pl.(*playlist.Media)
	if !ok {
		return 0, fmt.Errorf("unexpected playlist type %T", pl)
	}

	return len(media.Segments), nil
}
