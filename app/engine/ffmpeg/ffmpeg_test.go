package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFrameRate(t *testing.T) {
	assert.InDelta(t, 29.97, parseFrameRate("30000/1001"), 0.01)
	assert.Equal(t, 25.0, parseFrameRate("25/1"))
	assert.Equal(t, 0.0, parseFrameRate("0/0"))
	assert.Equal(t, 0.0, parseFrameRate("abc"))
	assert.Equal(t, 0.0, parseFrameRate(""))
}

func TestOutputPath(t *testing.T) {
	p := &Processor{scratchDir: "/data/scratch"}

	assert.Equal(t, "/data/scratch/video_compressed.mp4",
		p.outputPath("/tmp/video.webm", "mp4", "_compressed"))
	assert.Equal(t, "/data/scratch/a.b_processed.mp3",
		p.outputPath("/other/a.b.mkv", "mp3", "_processed"))
}

func TestWatermarkPositions(t *testing.T) {
	// 每个位置都必须映射到合法的 drawtext 坐标
	for _, pos := range []string{"top-left", "top-right", "bottom-left", "bottom-right", "center"} {
		coords, ok := watermarkPositions[pos]
		assert.True(t, ok, pos)
		assert.Contains(t, coords, "x=")
		assert.Contains(t, coords, "y=")
	}
}

func TestCompressionCrf(t *testing.T) {
	// 等级越低 CRF 越高（文件越小、画质越差）
	assert.Greater(t, compressionCrf["low"], compressionCrf["medium"])
	assert.Greater(t, compressionCrf["medium"], compressionCrf["high"])
}

func TestUnavailableProcessorRejectsOperations(t *testing.T) {
	p := &Processor{available: false}

	_, err := p.Compress("/tmp/a.mp4", "medium")
	assert.Error(t, err)

	_, err = p.Merge([]string{"/tmp/a.mp4", "/tmp/b.mp4"}, "mp4")
	assert.Error(t, err)

	_, err = p.ProbeMedia("/tmp/a.mp4")
	assert.Error(t, err)
}

func TestLastLines(t *testing.T) {
	assert.Equal(t, "unknown error", lastLines(" "))
	assert.Equal(t, "c; d; e", lastLines("a\nb\nc\nd\ne"))
}
