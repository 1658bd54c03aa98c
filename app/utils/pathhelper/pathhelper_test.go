package pathhelper

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "My Video", SanitizeFilename("My Video"))
	assert.Equal(t, "a_b_c", SanitizeFilename(`a/b\c`))
	assert.Equal(t, "what_ when_", SanitizeFilename("what? when?"))
	assert.Equal(t, "one two", SanitizeFilename("  one \t\n two  "))
	assert.Equal(t, "download", SanitizeFilename(""))
	assert.Equal(t, "download", SanitizeFilename("   "))

	long := strings.Repeat("x", 300)
	assert.Len(t, SanitizeFilename(long), 200)
}

func TestScratchPath(t *testing.T) {
	got := ScratchPath("/data/scratch", "abc123", "video.mp4")
	assert.Equal(t, filepath.Join("/data/scratch", "abc123_video.mp4"), got)
}

func TestAttachmentName(t *testing.T) {
	assert.Equal(t, "My Video.mp4", AttachmentName("My Video", "/scratch/x_My Video.mp4"))
	assert.Equal(t, "Title_ sub.webm", AttachmentName("Title: sub", "/scratch/a.webm"))
	assert.Equal(t, "noext", AttachmentName("noext", "/scratch/file"))
}
