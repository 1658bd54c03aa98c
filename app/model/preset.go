package model

import (
	"encoding/json"
	"fmt"
)

// PostProcessAction 后处理动作，封闭枚举，调度时穷举匹配
type PostProcessAction string

const (
	ActionConvert      PostProcessAction = "convert"
	ActionCompress     PostProcessAction = "compress"
	ActionExtractAudio PostProcessAction = "extract_audio"
	ActionTrim         PostProcessAction = "trim"
	ActionWatermark    PostProcessAction = "watermark"
)

// Valid 动作是否为已知动作
func (a PostProcessAction) Valid() bool {
	switch a {
	case ActionConvert, ActionCompress, ActionExtractAudio, ActionTrim, ActionWatermark:
		return true
	}
	return false
}

// PostProcess 后处理配置，Action 决定哪些字段生效
type PostProcess struct {
	Action PostProcessAction `json:"action"`

	// convert / extract_audio
	Format string `json:"format,omitempty"`
	// convert：high / medium / low；extract_audio：音频码率，如 192k
	Quality string `json:"quality,omitempty"`
	// convert：480p / 720p / 1080p
	Resolution string `json:"resolution,omitempty"`

	// compress：high / medium / low
	Level string `json:"level,omitempty"`

	// trim
	StartTime string `json:"start_time,omitempty"`
	Duration  string `json:"duration,omitempty"`

	// watermark
	Text     string `json:"text,omitempty"`
	Position string `json:"position,omitempty"`
}

// FormatPresets 下载格式预设，进程启动时固定
var FormatPresets = map[string]string{
	"best_video":  "best[ext=mp4]/best",
	"best_audio":  "bestaudio[ext=m4a]/bestaudio",
	"worst_video": "worst[ext=mp4]/worst",
	"hd_720p":     "best[height<=720][ext=mp4]",
	"hd_1080p":    "best[height<=1080][ext=mp4]",
	"4k":          "best[height<=2160][ext=mp4]",
	"audio_only":  "bestaudio/best",
	"video_only":  "bestvideo[ext=mp4]",
}

// ProcessingPresets 后处理预设，进程启动时固定
var ProcessingPresets = map[string]PostProcess{
	"compress_high":     {Action: ActionCompress, Level: "high"},
	"compress_medium":   {Action: ActionCompress, Level: "medium"},
	"compress_low":      {Action: ActionCompress, Level: "low"},
	"extract_audio_mp3": {Action: ActionExtractAudio, Format: "mp3"},
	"extract_audio_aac": {Action: ActionExtractAudio, Format: "aac"},
	"convert_to_mp4":    {Action: ActionConvert, Format: "mp4"},
	"convert_to_webm":   {Action: ActionConvert, Format: "webm"},
	"scale_720p":        {Action: ActionConvert, Format: "mp4", Resolution: "720p"},
	"scale_1080p":       {Action: ActionConvert, Format: "mp4", Resolution: "1080p"},
}

// PresetDescriptions 预设的用户可读说明
var PresetDescriptions = map[string]string{
	"best_video":        "Best quality video (MP4)",
	"best_audio":        "Best quality audio only",
	"worst_video":       "Smallest file size video",
	"hd_720p":           "720p HD video",
	"hd_1080p":          "1080p Full HD video",
	"4k":                "4K Ultra HD video (if available)",
	"audio_only":        "Audio only (various formats)",
	"video_only":        "Video only (no audio)",
	"compress_high":     "High quality compression (smaller file)",
	"compress_medium":   "Medium quality compression",
	"compress_low":      "Low quality compression (smallest file)",
	"extract_audio_mp3": "Extract audio as MP3",
	"extract_audio_aac": "Extract audio as AAC",
	"convert_to_mp4":    "Convert to MP4 format",
	"convert_to_webm":   "Convert to WebM format",
	"scale_720p":        "Scale video to 720p resolution",
	"scale_1080p":       "Scale video to 1080p resolution",
}

// ResolveFormat 将格式预设名解析为 yt-dlp 格式选择器，非预设名原样返回
func ResolveFormat(selector string) string {
	if resolved, ok := FormatPresets[selector]; ok {
		return resolved
	}
	return selector
}

// ParsePostProcess 解析后处理参数。
// 入参可以是预设名字符串（如 "compress_high"），也可以是内联配置对象。
// 入参为空时返回 nil。
func ParsePostProcess(raw json.RawMessage) (*PostProcess, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	// 预设名
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		preset, ok := ProcessingPresets[name]
		if !ok {
			return nil, NewValidationError("未知的处理预设: %s", name)
		}
		cfg := preset
		return &cfg, nil
	}

	// 内联配置
	var cfg PostProcess
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, NewValidationError("后处理配置格式错误: %v", err)
	}
	if !cfg.Action.Valid() {
		return nil, NewValidationError("未知的处理动作: %s", cfg.Action)
	}
	return &cfg, nil
}

// String 便于日志输出
func (p *PostProcess) String() string {
	if p == nil {
		return "none"
	}
	return fmt.Sprintf("action=%s format=%s level=%s", p.Action, p.Format, p.Level)
}
