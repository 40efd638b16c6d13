package ffmpeg

import (
	"fmt"
	"os/exec"

	"github.com/vodarr/vodarr/internal/config"
)

// Binaries holds resolved paths to the ffmpeg toolchain.
type Binaries struct {
	FFmpeg  string
	FFprobe string
}

// FindBinaries resolves the ffmpeg and ffprobe binaries. Configured paths win;
// empty paths fall back to PATH lookup.
func FindBinaries(cfg config.FFmpegConfig) (*Binaries, error) {
	ffmpegPath := cfg.BinaryPath
	if ffmpegPath == "" {
		path, err := exec.LookPath("ffmpeg")
		if err != nil {
			return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
		}
		ffmpegPath = path
	}

	ffprobePath := cfg.ProbePath
	if ffprobePath == "" {
		path, err := exec.LookPath("ffprobe")
		if err != nil {
			return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
		}
		ffprobePath = path
	}

	return &Binaries{FFmpeg: ffmpegPath, FFprobe: ffprobePath}, nil
}
