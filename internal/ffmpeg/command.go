package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// stderrTailLines is how many trailing stderr lines a Command retains.
const stderrTailLines = 20

// CommandBuilder constructs ffmpeg command lines with a fluent API.
type CommandBuilder struct {
	ffmpegPath string
	inputArgs  []string
	input      string
	outputArgs []string
	output     string
}

// NewCommandBuilder creates a new FFmpeg command builder.
func NewCommandBuilder(ffmpegPath string) *CommandBuilder {
	return &CommandBuilder{
		ffmpegPath: ffmpegPath,
		inputArgs:  []string{"-hide_banner", "-loglevel", "error", "-y"},
	}
}

// SeekTo seeks the input to the given position in seconds before decoding.
func (b *CommandBuilder) SeekTo(seconds float64) *CommandBuilder {
	b.inputArgs = append(b.inputArgs, "-ss", fmt.Sprintf("%.3f", seconds))
	return b
}

// Input sets the input path.
func (b *CommandBuilder) Input(input string) *CommandBuilder {
	b.input = input
	return b
}

// Frames limits the number of output video frames.
func (b *CommandBuilder) Frames(n int) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-frames:v", fmt.Sprintf("%d", n))
	return b
}

// VideoFilter sets the video filter chain.
func (b *CommandBuilder) VideoFilter(filter string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-vf", filter)
	return b
}

// VideoCodec sets the output video codec.
func (b *CommandBuilder) VideoCodec(codec string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-c:v", codec)
	return b
}

// AudioCodec sets the output audio codec.
func (b *CommandBuilder) AudioCodec(codec string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-c:a", codec)
	return b
}

// VideoBitrate sets the output video bitrate, e.g. "2800k".
func (b *CommandBuilder) VideoBitrate(bitrate string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-b:v", bitrate)
	return b
}

// AudioBitrate sets the output audio bitrate, e.g. "128k".
func (b *CommandBuilder) AudioBitrate(bitrate string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-b:a", bitrate)
	return b
}

// VideoPreset sets the encoder preset.
func (b *CommandBuilder) VideoPreset(preset string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-preset", preset)
	return b
}

// OutputArgs appends raw output arguments.
func (b *CommandBuilder) OutputArgs(args ...string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, args...)
	return b
}

// HLSArgs configures VOD HLS output: fixed segment duration, a full playlist
// (hls_list_size 0) and numbered transport stream segments.
func (b *CommandBuilder) HLSArgs(segmentSeconds int, segmentPattern string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs,
		"-f", "hls",
		"-hls_time", fmt.Sprintf("%d", segmentSeconds),
		"-hls_playlist_type", "vod",
		"-hls_list_size", "0",
		"-hls_segment_filename", segmentPattern,
	)
	return b
}

// Output sets the output path.
func (b *CommandBuilder) Output(output string) *CommandBuilder {
	b.output = output
	return b
}

// Build assembles the command.
func (b *CommandBuilder) Build() *Command {
	args := make([]string, 0, len(b.inputArgs)+len(b.outputArgs)+4)
	args = append(args, b.inputArgs...)
	args = append(args, "-i", b.input)
	args = append(args, b.outputArgs...)
	args = append(args, b.output)

	return &Command{
		path: b.ffmpegPath,
		args: args,
	}
}

// Command is a runnable ffmpeg invocation that retains a stderr tail.
type Command struct {
	path string
	args []string

	mu          sync.Mutex
	stderrLines []string
	exitCode    int
}

// String returns the command line for logging.
func (c *Command) String() string {
	return c.path + " " + strings.Join(c.args, " ")
}

// Run executes the command, waiting for completion. The subprocess is killed
// when ctx is cancelled or its deadline passes.
func (c *Command) Run(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, c.path, c.args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("attaching stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting ffmpeg: %w", err)
	}

	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		c.appendStderr(scanner.Text())
	}

	err = cmd.Wait()
	if cmd.ProcessState != nil {
		c.mu.Lock()
		c.exitCode = cmd.ProcessState.ExitCode()
		c.mu.Unlock()
	}
	return err
}

// ExitCode returns the process exit code, valid after Run returns.
func (c *Command) ExitCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitCode
}

// StderrTail returns the trailing stderr lines, joined by newlines.
func (c *Command) StderrTail() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.stderrLines, "\n")
}

func (c *Command) appendStderr(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stderrLines = append(c.stderrLines, line)
	if len(c.stderrLines) > stderrTailLines {
		c.stderrLines = c.stderrLines[len(c.stderrLines)-stderrTailLines:]
	}
}
