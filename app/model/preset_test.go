package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFormat(t *testing.T) {
	assert.Equal(t, "best[height<=720][ext=mp4]", ResolveFormat("hd_720p"))
	assert.Equal(t, "bestaudio/best", ResolveFormat("audio_only"))
	// 非预设名视为 yt-dlp 格式选择器，原样返回
	assert.Equal(t, "best", ResolveFormat("best"))
	assert.Equal(t, "bestvideo+bestaudio", ResolveFormat("bestvideo+bestaudio"))
}

func TestParsePostProcessEmpty(t *testing.T) {
	pp, err := ParsePostProcess(nil)
	require.NoError(t, err)
	assert.Nil(t, pp)

	pp, err = ParsePostProcess(json.RawMessage("null"))
	require.NoError(t, err)
	assert.Nil(t, pp)
}

func TestParsePostProcessPresetName(t *testing.T) {
	pp, err := ParsePostProcess(json.RawMessage(`"compress_high"`))
	require.NoError(t, err)
	require.NotNil(t, pp)
	assert.Equal(t, ActionCompress, pp.Action)
	assert.Equal(t, "high", pp.Level)

	_, err = ParsePostProcess(json.RawMessage(`"no_such_preset"`))
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestParsePostProcessInline(t *testing.T) {
	raw := json.RawMessage(`{"action":"trim","start_time":"00:00:10","duration":"00:00:30"}`)
	pp, err := ParsePostProcess(raw)
	require.NoError(t, err)
	assert.Equal(t, ActionTrim, pp.Action)
	assert.Equal(t, "00:00:10", pp.StartTime)
	assert.Equal(t, "00:00:30", pp.Duration)
}

func TestParsePostProcessUnknownAction(t *testing.T) {
	_, err := ParsePostProcess(json.RawMessage(`{"action":"explode"}`))
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = ParsePostProcess(json.RawMessage(`{"action":""}`))
	assert.ErrorAs(t, err, &verr)
}

func TestParsePostProcessPresetReturnsCopy(t *testing.T) {
	pp, err := ParsePostProcess(json.RawMessage(`"extract_audio_mp3"`))
	require.NoError(t, err)

	// 修改返回值不能污染全局预设表
	pp.Format = "wav"
	assert.Equal(t, "mp3", ProcessingPresets["extract_audio_mp3"].Format)
}

func TestActionValid(t *testing.T) {
	assert.True(t, ActionWatermark.Valid())
	assert.True(t, ActionExtractAudio.Valid())
	assert.False(t, PostProcessAction("resize").Valid())
	assert.False(t, PostProcessAction("").Valid())
}
