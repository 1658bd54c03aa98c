package model

// MediaFormat 单个可下载格式
type MediaFormat struct {
	FormatID       string  `json:"format_id"`
	Ext            string  `json:"ext"`
	Quality        int     `json:"quality"` // 视频高度，未知为 0
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
	FPS            float64 `json:"fps,omitempty"`
	Vcodec         string  `json:"vcodec"`
	Acodec         string  `json:"acodec"`
	ABR            float64 `json:"abr,omitempty"` // 音频码率
	VBR            float64 `json:"vbr,omitempty"` // 视频码率
	FormatNote     string  `json:"format_note,omitempty"`
	Resolution     string  `json:"resolution,omitempty"`
}

// MediaFormats 按类型分组的格式列表
type MediaFormats struct {
	Video    []MediaFormat `json:"video"`
	Audio    []MediaFormat `json:"audio"`
	Combined []MediaFormat `json:"combined"`
}

// MediaInfo 探测得到的媒体元数据（不下载）
type MediaInfo struct {
	ID                string        `json:"id"`
	Title             string        `json:"title"`
	Description       string        `json:"description"`
	Duration          float64       `json:"duration"`
	Uploader          string        `json:"uploader"`
	UploaderID        string        `json:"uploader_id"`
	UploadDate        string        `json:"upload_date"`
	ViewCount         int64         `json:"view_count"`
	LikeCount         int64         `json:"like_count"`
	CommentCount      int64         `json:"comment_count"`
	Thumbnail         string        `json:"thumbnail"`
	Platform          string        `json:"platform"`
	WebpageURL        string        `json:"webpage_url"`
	Tags              []string      `json:"tags"`
	Categories        []string      `json:"categories"`
	Subtitles         []string      `json:"subtitles"`
	AutomaticCaptions []string      `json:"automatic_captions"`
	FfmpegAvailable   bool          `json:"ffmpeg_available"`
	Formats           *MediaFormats `json:"formats,omitempty"`
}

// VideoProbe FFmpeg 对本地文件的探测结果
type VideoProbe struct {
	Duration   float64 `json:"duration"`
	Size       int64   `json:"size"`
	BitRate    int64   `json:"bit_rate"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	FPS        float64 `json:"fps,omitempty"`
	VideoCodec string  `json:"video_codec,omitempty"`
	AudioCodec string  `json:"audio_codec,omitempty"`
	SampleRate string  `json:"sample_rate,omitempty"`
	Channels   int     `json:"channels,omitempty"`
}
