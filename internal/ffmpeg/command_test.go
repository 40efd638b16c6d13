package ffmpeg

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandBuilder_FrameExtraction(t *testing.T) {
	cmd := NewCommandBuilder("/usr/bin/ffmpeg").
		SeekTo(6.5).
		Input("/tmp/source.mp4").
		Frames(1).
		VideoFilter("scale=480:-2").
		Output("/tmp/out/thumbnail.jpg").
		Build()

	line := cmd.String()
	assert.Contains(t, line, "-hide_banner -loglevel error -y")
	assert.Contains(t, line, "-ss 6.500 -i /tmp/source.mp4")
	assert.Contains(t, line, "-frames:v 1")
	assert.Contains(t, line, "-vf scale=480:-2")
	assert.True(t, strings.HasSuffix(line, "/tmp/out/thumbnail.jpg"))
}

func TestCommandBuilder_HLSEncode(t *testing.T) {
	cmd := NewCommandBuilder("/usr/bin/ffmpeg").
		Input("/tmp/source.mp4").
		VideoCodec("libx264").
		VideoPreset("medium").
		VideoBitrate("2800k").
		VideoFilter("scale=1280:720:force_original_aspect_ratio=decrease").
		AudioCodec("aac").
		AudioBitrate("128k").
		HLSArgs(6, "/tmp/out/720p/segment_%04d.ts").
		Output("/tmp/out/720p/manifest.m3u8").
		Build()

	line := cmd.String()
	assert.Contains(t, line, "-c:v libx264")
	assert.Contains(t, line, "-preset medium")
	assert.Contains(t, line, "-b:v 2800k")
	assert.Contains(t, line, "-c:a aac")
	assert.Contains(t, line, "-b:a 128k")
	assert.Contains(t, line, "-f hls -hls_time 6 -hls_playlist_type vod -hls_list_size 0")
	assert.Contains(t, line, "-hls_segment_filename /tmp/out/720p/segment_%04d.ts")
	assert.True(t, strings.HasSuffix(line, "manifest.m3u8"))
}

func TestCommand_StderrTailBounded(t *testing.T) {
	cmd := &Command{}
	for i := 0; i < 50; i++ {
		cmd.appendStderr(fmt.Sprintf("line %d", i))
	}

	tail := strings.Split(cmd.StderrTail(), "\n")
	assert.Len(t, tail, stderrTailLines)
	assert.Equal(t, "line 30", tail[0])
	assert.Equal(t, "line 49", tail[len(tail)-1])
}
