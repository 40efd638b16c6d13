package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// MediaInfo is the probed shape of an uploaded source file.
type MediaInfo struct {
	DurationMs int64   `json:"duration_ms"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Framerate  float64 `json:"framerate"`
	Bitrate    int64   `json:"bitrate"`
	VideoCodec string  `json:"video_codec"`
	AudioCodec string  `json:"audio_codec"`
}

// Duration returns the media duration.
func (m *MediaInfo) Duration() time.Duration {
	return time.Duration(m.DurationMs) * time.Millisecond
}

// probeResult mirrors the ffprobe JSON we consume.
type probeResult struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

type probeFormat struct {
	Duration string `json:"duration"`
	BitRate  string `json:"bit_rate"`
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	AvgFrameRate string `json:"avg_frame_rate,omitempty"`
	RFrameRate   string `json:"r_frame_rate,omitempty"`
}

// Prober handles ffprobe operations.
type Prober struct {
	ffprobePath string
	timeout     time.Duration
}

// NewProber creates a new media prober.
func NewProber(ffprobePath string, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Prober{
		ffprobePath: ffprobePath,
		timeout:     timeout,
	}
}

// Probe probes a media file and returns its essential properties.
// Non-zero exit, unparsable output, or a missing video stream all yield a
// ProbeError; deadline expiry kills ffprobe and yields a TimeoutError.
func (p *Prober) Probe(ctx context.Context, path string) (*MediaInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Op: "probe", Timeout: p.timeout}
		}
		return nil, &ProbeError{Path: path, Err: err}
	}

	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, &ProbeError{Path: path, Err: fmt.Errorf("parsing ffprobe output: %w", err)}
	}

	info, err := summarize(&result)
	if err != nil {
		return nil, &ProbeError{Path: path, Err: err}
	}
	return info, nil
}

// summarize reduces raw ffprobe output to a MediaInfo.
func summarize(result *probeResult) (*MediaInfo, error) {
	info := &MediaInfo{}

	if result.Format.Duration != "" {
		if dur, err := strconv.ParseFloat(result.Format.Duration, 64); err == nil {
			info.DurationMs = int64(dur * 1000)
		}
	}
	if result.Format.BitRate != "" {
		if br, err := strconv.ParseInt(result.Format.BitRate, 10, 64); err == nil {
			info.Bitrate = br
		}
	}

	for _, stream := range result.Streams {
		switch stream.CodecType {
		case "video":
			if info.VideoCodec != "" {
				continue
			}
			info.VideoCodec = stream.CodecName
			info.Width = stream.Width
			info.Height = stream.Height
			if stream.AvgFrameRate != "" {
				info.Framerate = parseFramerate(stream.AvgFrameRate)
			}
			if info.Framerate == 0 && stream.RFrameRate != "" {
				info.Framerate = parseFramerate(stream.RFrameRate)
			}
		case "audio":
			if info.AudioCodec == "" {
				info.AudioCodec = stream.CodecName
			}
		}
	}

	if info.VideoCodec == "" {
		return nil, fmt.Errorf("no video stream found")
	}
	if info.DurationMs <= 0 {
		return nil, fmt.Errorf("missing or zero duration")
	}

	return info, nil
}

// parseFramerate parses a framerate string like "30000/1001" or "25/1".
func parseFramerate(fr string) float64 {
	parts := strings.Split(fr, "/")
	if len(parts) != 2 {
		if f, err := strconv.ParseFloat(fr, 64); err == nil {
			return f
		}
		return 0
	}

	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}

	return num / den
}
