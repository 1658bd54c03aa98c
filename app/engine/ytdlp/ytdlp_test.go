package ytdlp

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, size int) error {
	t.Helper()
	return os.WriteFile(filepath.Join(dir, name), bytes.Repeat([]byte("x"), size), 0644)
}

func TestProgressPattern(t *testing.T) {
	m := progressPattern.FindStringSubmatch("[download]  42.7% of 10.00MiB at 1.00MiB/s ETA 00:05")
	require.NotNil(t, m)
	assert.Equal(t, "42.7", m[1])

	m = progressPattern.FindStringSubmatch("[download] 100% of 5.00MiB in 00:03")
	require.NotNil(t, m)
	assert.Equal(t, "100", m[1])

	// 不是进度行的输出不应匹配
	assert.Nil(t, progressPattern.FindStringSubmatch("[info] Downloading webpage"))
	assert.Nil(t, progressPattern.FindStringSubmatch("[download] Destination: /tmp/a.mp4"))
}

func TestDestinationAndMergerPatterns(t *testing.T) {
	m := destinationPattern.FindStringSubmatch("[download] Destination: /tmp/abc_video.f137.mp4")
	require.NotNil(t, m)
	assert.Equal(t, "/tmp/abc_video.f137.mp4", m[1])

	m = mergerPattern.FindStringSubmatch(`[Merger] Merging formats into "/tmp/abc_video.mp4"`)
	require.NotNil(t, m)
	assert.Equal(t, "/tmp/abc_video.mp4", m[1])
}

func TestTitleFromPath(t *testing.T) {
	assert.Equal(t, "My Video", titleFromPath("/scratch/task1_My Video.mp4", "task1"))
	assert.Equal(t, "a.b", titleFromPath("/scratch/t_a.b.webm", "t"))
	assert.Equal(t, "download", titleFromPath("/scratch/t_.mp4", "t"))
}

func TestCategorizeFormats(t *testing.T) {
	raw := []rawFormat{
		{FormatID: "18", Ext: "mp4", Height: 360, Vcodec: "avc1", Acodec: "mp4a"},
		{FormatID: "137", Ext: "mp4", Height: 1080, Vcodec: "avc1", Acodec: "none"},
		{FormatID: "136", Ext: "mp4", Height: 720, Vcodec: "avc1", Acodec: "none"},
		{FormatID: "140", Ext: "m4a", Vcodec: "none", Acodec: "mp4a", ABR: 128},
		{FormatID: "22", Ext: "mp4", Height: 720, Vcodec: "avc1", Acodec: "mp4a"},
	}

	out := categorizeFormats(raw)
	require.Len(t, out.Combined, 2)
	require.Len(t, out.Video, 2)
	require.Len(t, out.Audio, 1)

	// 各组按画质降序
	assert.Equal(t, "22", out.Combined[0].FormatID)
	assert.Equal(t, "18", out.Combined[1].FormatID)
	assert.Equal(t, "137", out.Video[0].FormatID)
}

func TestCategorizeFormatsTruncates(t *testing.T) {
	raw := make([]rawFormat, 20)
	for i := range raw {
		raw[i] = rawFormat{FormatID: "v", Height: i, Vcodec: "avc1", Acodec: "none"}
	}
	out := categorizeFormats(raw)
	assert.Len(t, out.Video, 15)
	assert.Equal(t, 19, out.Video[0].Quality)
}

func TestCategorizeFormatsEmptyCodec(t *testing.T) {
	// 缺失的 codec 字段按 none 处理，不归入任何音视频组
	out := categorizeFormats([]rawFormat{{FormatID: "x"}})
	assert.Empty(t, out.Video)
	assert.Empty(t, out.Audio)
	assert.Empty(t, out.Combined)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcde...", truncate("abcdefgh", 5))
}

func TestTail(t *testing.T) {
	assert.Equal(t, "unknown error", tail(""))
	assert.Equal(t, "one line", tail("one line\n"))
	assert.Equal(t, "b; c; d", tail("a\nb\nc\nd"))
}

func TestLocateArtifact(t *testing.T) {
	dir := t.TempDir()
	d := New("yt-dlp", dir, nil)

	write := func(name string, size int) {
		err := writeFile(t, dir, name, size)
		require.NoError(t, err)
	}
	write("task1_video.mp4", 5000)
	write("task1_video.en.vtt", 100)
	write("task1_video.info.json", 200)
	write("other_video.mp4", 9000)

	path, err := d.locateArtifact("task1", "")
	require.NoError(t, err)
	assert.Contains(t, path, "task1_video.mp4")

	_, err = d.locateArtifact("missing", "")
	assert.Error(t, err)
}
