package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	t.Run("full result", func(t *testing.T) {
		result := &probeResult{
			Format: probeFormat{Duration: "63.5", BitRate: "4000000"},
			Streams: []probeStream{
				{CodecType: "video", CodecName: "h264", Width: 1920, Height: 1080, AvgFrameRate: "30000/1001"},
				{CodecType: "audio", CodecName: "aac"},
			},
		}

		info, err := summarize(result)
		require.NoError(t, err)
		assert.Equal(t, int64(63500), info.DurationMs)
		assert.Equal(t, int64(4000000), info.Bitrate)
		assert.Equal(t, "h264", info.VideoCodec)
		assert.Equal(t, "aac", info.AudioCodec)
		assert.Equal(t, 1920, info.Width)
		assert.InDelta(t, 29.97, info.Framerate, 0.01)
	})

	t.Run("no video stream", func(t *testing.T) {
		result := &probeResult{
			Format:  probeFormat{Duration: "10"},
			Streams: []probeStream{{CodecType: "audio", CodecName: "mp3"}},
		}
		_, err := summarize(result)
		assert.Error(t, err)
	})

	t.Run("missing duration", func(t *testing.T) {
		result := &probeResult{
			Streams: []probeStream{{CodecType: "video", CodecName: "h264"}},
		}
		_, err := summarize(result)
		assert.Error(t, err)
	})

	t.Run("falls back to r_frame_rate", func(t *testing.T) {
		result := &probeResult{
			Format: probeFormat{Duration: "10"},
			Streams: []probeStream{
				{CodecType: "video", CodecName: "vp9", RFrameRate: "25/1"},
			},
		}
		info, err := summarize(result)
		require.NoError(t, err)
		assert.Equal(t, 25.0, info.Framerate)
	})
}

func TestParseFramerate(t *testing.T) {
	assert.Equal(t, 25.0, parseFramerate("25/1"))
	assert.InDelta(t, 23.976, parseFramerate("24000/1001"), 0.001)
	assert.Equal(t, 30.0, parseFramerate("30"))
	assert.Zero(t, parseFramerate("0/0"))
	assert.Zero(t, parseFramerate("garbage"))
}

func TestMediaInfo_Duration(t *testing.T) {
	info := &MediaInfo{DurationMs: 90500}
	assert.Equal(t, "1m30.5s", info.Duration().String())
}
