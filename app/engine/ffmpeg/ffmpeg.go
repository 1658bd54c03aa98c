package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"media-forge/app/logger"
	"media-forge/app/model"

	"github.com/floostack/transcoder/ffmpeg"
)

// 水印位置到 drawtext 坐标的映射
var watermarkPositions = map[string]string{
	"top-left":     "x=10:y=10",
	"top-right":    "x=w-tw-10:y=10",
	"bottom-left":  "x=10:y=h-th-10",
	"bottom-right": "x=w-tw-10:y=h-th-10",
	"center":       "x=(w-tw)/2:y=(h-th)/2",
}

// 压缩等级到 CRF 的映射
var compressionCrf = map[string]uint32{
	"low":    35,
	"medium": 28,
	"high":   23,
}

// Processor 封装 FFmpeg 的转码引擎适配器。
// 可用性在进程启动时探测一次，之后视为不变。
type Processor struct {
	ffmpegPath  string
	ffprobePath string
	scratchDir  string
	available   bool
	log         *logger.Logger
}

// New 创建转码引擎适配器并探测 FFmpeg 可用性
func New(ffmpegPath, ffprobePath, scratchDir string, log *logger.Logger) *Processor {
	p := &Processor{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		scratchDir:  scratchDir,
	}
	p.log = log
	p.available = p.checkAvailability()
	if p.available {
		log.Info("FFmpeg 可用")
	} else {
		log.Warnf("FFmpeg 不可用，后处理功能将被跳过")
	}
	return p
}

// checkAvailability 执行 ffmpeg -version 探测可用性
func (p *Processor) checkAvailability() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return exec.CommandContext(ctx, p.ffmpegPath, "-version").Run() == nil
}

// Available 引擎是否可用
func (p *Processor) Available() bool {
	return p.available
}

// run 以给定选项执行一次转码，排空进度通道直到命令结束
func (p *Processor) run(op, input, output string, opts *ffmpeg.Options) (string, error) {
	if !p.available {
		return "", &model.TranscodeError{Op: op, Err: fmt.Errorf("FFmpeg 不可用")}
	}

	overwrite := true
	opts.Overwrite = &overwrite

	progress, err := ffmpeg.
		New(&ffmpeg.Config{
			FfmpegBinPath:  p.ffmpegPath,
			FfprobeBinPath: p.ffprobePath,
		}).
		Input(input).
		Output(output).
		WithOptions(opts).
		Start(opts)
	if err != nil {
		return "", &model.TranscodeError{Op: op, Err: err}
	}

	for range progress {
		// 转码进度不计入任务进度，排空即可
	}

	return output, nil
}

// Convert 转换容器格式，可选画质与分辨率
func (p *Processor) Convert(input, format, quality, resolution string) (string, error) {
	output := p.outputPath(input, format, "_processed")
	opts := &ffmpeg.Options{}

	var crf uint32
	var audioBitrate string
	switch quality {
	case "high":
		crf, audioBitrate = 18, "320k"
	case "medium":
		crf, audioBitrate = 23, "192k"
	case "low":
		crf, audioBitrate = 28, "128k"
	}
	if crf != 0 {
		opts.Crf = &crf
		opts.AudioBitrate = &audioBitrate
	}

	var scale string
	switch resolution {
	case "480p":
		scale = "scale=-2:480"
	case "720p":
		scale = "scale=-2:720"
	case "1080p":
		scale = "scale=-2:1080"
	}
	if scale != "" {
		opts.VideoFilter = &scale
	}

	return p.run("convert", input, output, opts)
}

// Compress 按等级压缩视频
func (p *Processor) Compress(input, level string) (string, error) {
	output := p.outputPath(input, "mp4", "_compressed")

	crf, ok := compressionCrf[level]
	if !ok {
		crf = compressionCrf["medium"]
	}
	preset := "medium"

	return p.run("compress", input, output, &ffmpeg.Options{
		Crf:    &crf,
		Preset: &preset,
	})
}

// ExtractAudio 从视频中提取音频
func (p *Processor) ExtractAudio(input, format, bitrate string) (string, error) {
	output := p.outputPath(input, format, "_processed")

	skipVideo := true
	codec := "libmp3lame"
	if format == "aac" {
		codec = "aac"
	}

	return p.run("extract_audio", input, output, &ffmpeg.Options{
		SkipVideo:    &skipVideo,
		AudioCodec:   &codec,
		AudioBitrate: &bitrate,
	})
}

// Trim 截取指定时间段，流复制不重新编码
func (p *Processor) Trim(input, start, duration string) (string, error) {
	output := p.outputPath(input, "mp4", "_trimmed")

	return p.run("trim", input, output, &ffmpeg.Options{
		SeekTime: &start,
		Duration: &duration,
		ExtraArgs: map[string]interface{}{
			"-c": "copy",
		},
	})
}

// Watermark 添加文字水印
func (p *Processor) Watermark(input, text, position string) (string, error) {
	output := p.outputPath(input, "mp4", "_watermarked")

	coords, ok := watermarkPositions[position]
	if !ok {
		coords = watermarkPositions["bottom-right"]
	}
	// drawtext 的文本参数需要转义单引号
	escaped := strings.ReplaceAll(text, "'", `\'`)
	filter := fmt.Sprintf("drawtext=text='%s':fontcolor=white:fontsize=24:%s", escaped, coords)

	return p.run("watermark", input, output, &ffmpeg.Options{
		VideoFilter: &filter,
	})
}

// Merge 把多个视频按顺序拼接为一个。
// concat 滤镜需要多路输入，单输入的构建器不适用，直接执行命令。
func (p *Processor) Merge(inputs []string, format string) (string, error) {
	if !p.available {
		return "", &model.TranscodeError{Op: "merge", Err: fmt.Errorf("FFmpeg 不可用")}
	}
	if len(inputs) < 2 {
		return "", &model.TranscodeError{Op: "merge", Err: fmt.Errorf("至少需要 2 个输入文件")}
	}
	if format == "" {
		format = "mp4"
	}

	output := filepath.Join(p.scratchDir, fmt.Sprintf("merged_video_%d.%s", time.Now().Unix(), format))

	args := []string{"-y"}
	for _, in := range inputs {
		args = append(args, "-i", in)
	}
	args = append(args,
		"-filter_complex", fmt.Sprintf("concat=n=%d:v=1:a=1", len(inputs)),
		output,
	)

	cmd := exec.Command(p.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &model.TranscodeError{Op: "merge", Err: fmt.Errorf("%s", lastLines(stderr.String()))}
	}

	p.log.Infof("视频合并完成: inputs=%d output=%s", len(inputs), output)
	return output, nil
}

// probeOutput ffprobe JSON 输出
type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
		Size     string `json:"size"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
}

// ProbeMedia 探测本地文件的编码信息
func (p *Processor) ProbeMedia(input string) (*model.VideoProbe, error) {
	if !p.available {
		return nil, &model.TranscodeError{Op: "probe", Err: fmt.Errorf("FFmpeg 不可用")}
	}

	cmd := exec.Command(p.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		input,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, &model.TranscodeError{Op: "probe", Err: err}
	}

	var raw probeOutput
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, &model.TranscodeError{Op: "probe", Err: err}
	}

	probe := &model.VideoProbe{}
	probe.Duration, _ = strconv.ParseFloat(raw.Format.Duration, 64)
	probe.Size, _ = strconv.ParseInt(raw.Format.Size, 10, 64)
	probe.BitRate, _ = strconv.ParseInt(raw.Format.BitRate, 10, 64)

	for _, s := range raw.Streams {
		switch s.CodecType {
		case "video":
			if probe.VideoCodec == "" {
				probe.VideoCodec = s.CodecName
				probe.Width = s.Width
				probe.Height = s.Height
				probe.FPS = parseFrameRate(s.RFrameRate)
			}
		case "audio":
			if probe.AudioCodec == "" {
				probe.AudioCodec = s.CodecName
				probe.SampleRate = s.SampleRate
				probe.Channels = s.Channels
			}
		}
	}
	return probe, nil
}

// outputPath 在临时目录中生成输出文件路径
func (p *Processor) outputPath(input, format, suffix string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(p.scratchDir, base+suffix+"."+format)
}

// parseFrameRate 解析 "30000/1001" 形式的帧率
func parseFrameRate(s string) float64 {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

// lastLines 取 stderr 的最后几行作为错误信息
func lastLines(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown error"
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 3 {
		lines = lines[len(lines)-3:]
	}
	return strings.Join(lines, "; ")
}
