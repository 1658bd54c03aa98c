package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"media-forge/app/logger"
	"media-forge/app/model"
	"media-forge/app/service"
	"media-forge/app/utils/urlcheck"
)

// 进度行形如：[download]  42.7% of 10.00MiB at 1.00MiB/s ETA 00:05
var progressPattern = regexp.MustCompile(`\[download\]\s+(\d+(?:\.\d+)?)%`)

// 目标文件行形如：[download] Destination: /tmp/xxx.mp4
var destinationPattern = regexp.MustCompile(`\[download\] Destination: (.+)`)

// 合并输出行形如：[Merger] Merging formats into "/tmp/xxx.mp4"
var mergerPattern = regexp.MustCompile(`Merging formats into "(.+)"`)

// 字幕等附属文件的扩展名，定位下载产物时跳过
var auxiliaryExts = map[string]bool{
	".vtt": true, ".srt": true, ".ass": true, ".json": true, ".part": true,
}

// Downloader 封装 yt-dlp 可执行文件的下载引擎适配器
type Downloader struct {
	binPath    string
	scratchDir string
	log        *logger.Logger
}

// New 创建下载引擎适配器
func New(binPath, scratchDir string, log *logger.Logger) *Downloader {
	return &Downloader{
		binPath:    binPath,
		scratchDir: scratchDir,
		log:        log,
	}
}

// rawInfo yt-dlp -J 输出中本服务关心的字段
type rawInfo struct {
	ID                string         `json:"id"`
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	Duration          float64        `json:"duration"`
	Uploader          string         `json:"uploader"`
	UploaderID        string         `json:"uploader_id"`
	UploadDate        string         `json:"upload_date"`
	ViewCount         int64          `json:"view_count"`
	LikeCount         int64          `json:"like_count"`
	CommentCount      int64          `json:"comment_count"`
	Thumbnail         string         `json:"thumbnail"`
	WebpageURL        string         `json:"webpage_url"`
	Tags              []string       `json:"tags"`
	Categories        []string       `json:"categories"`
	Subtitles         map[string]any `json:"subtitles"`
	AutomaticCaptions map[string]any `json:"automatic_captions"`
	Formats           []rawFormat    `json:"formats"`
}

type rawFormat struct {
	FormatID       string  `json:"format_id"`
	Ext            string  `json:"ext"`
	Height         int     `json:"height"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
	FPS            float64 `json:"fps"`
	Vcodec         string  `json:"vcodec"`
	Acodec         string  `json:"acodec"`
	ABR            float64 `json:"abr"`
	VBR            float64 `json:"vbr"`
	FormatNote     string  `json:"format_note"`
	Resolution     string  `json:"resolution"`
}

// Probe 探测媒体元数据，不下载
func (d *Downloader) Probe(ctx context.Context, url string) (*model.MediaInfo, error) {
	cmd := exec.CommandContext(ctx, d.binPath, "-J", "--no-warnings", url)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &model.FetchError{URL: url, Err: fmt.Errorf("yt-dlp 探测失败: %s", tail(stderr.String()))}
	}

	var raw rawInfo
	if err := json.Unmarshal(stdout.Bytes(), &raw); err != nil {
		return nil, &model.FetchError{URL: url, Err: fmt.Errorf("解析 yt-dlp 输出失败: %w", err)}
	}

	info := &model.MediaInfo{
		ID:                raw.ID,
		Title:             defaultTitle(raw.Title),
		Description:       truncate(raw.Description, 500),
		Duration:          raw.Duration,
		Uploader:          defaultTitle(raw.Uploader),
		UploaderID:        raw.UploaderID,
		UploadDate:        raw.UploadDate,
		ViewCount:         raw.ViewCount,
		LikeCount:         raw.LikeCount,
		CommentCount:      raw.CommentCount,
		Thumbnail:         raw.Thumbnail,
		Platform:          urlcheck.Platform(url),
		WebpageURL:        raw.WebpageURL,
		Tags:              limitStrings(raw.Tags, 10),
		Categories:        raw.Categories,
		Subtitles:         mapKeys(raw.Subtitles),
		AutomaticCaptions: mapKeys(raw.AutomaticCaptions),
		Formats:           categorizeFormats(raw.Formats),
	}
	if info.WebpageURL == "" {
		info.WebpageURL = url
	}
	return info, nil
}

// Fetch 执行下载，逐行解析进度输出并通过回调上报。
// 无法解析的进度行直接跳过，对外进度保持原值。
func (d *Downloader) Fetch(ctx context.Context, url string, opts service.FetchOptions,
	onProgress func(percent float64, filename string)) (string, string, error) {

	outputTemplate := filepath.Join(d.scratchDir, opts.Prefix+"_%(title)s.%(ext)s")

	args := []string{
		"-f", opts.Format,
		"-o", outputTemplate,
		"--newline",
		"--no-colors",
		"--no-warnings",
		"--no-playlist",
	}
	if opts.Subtitles {
		args = append(args, "--write-subs", "--write-auto-subs", "--sub-langs", "en,en-US,en-GB")
	}
	if opts.RemuxMP4 {
		args = append(args, "--remux-video", "mp4")
	}
	args = append(args, url)

	cmd := exec.CommandContext(ctx, d.binPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", "", &model.FetchError{URL: url, Err: err}
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return "", "", &model.FetchError{URL: url, Err: err}
	}

	currentFile := ""
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if m := destinationPattern.FindStringSubmatch(line); m != nil {
			currentFile = m[1]
			continue
		}
		if m := mergerPattern.FindStringSubmatch(line); m != nil {
			currentFile = m[1]
			continue
		}
		if m := progressPattern.FindStringSubmatch(line); m != nil {
			percent, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue // 格式异常的百分比，进度保持不动
			}
			if onProgress != nil {
				onProgress(percent, currentFile)
			}
		}
	}

	if err := cmd.Wait(); err != nil {
		return "", "", &model.FetchError{URL: url, Err: fmt.Errorf("yt-dlp: %s", tail(stderr.String()))}
	}

	// 以任务前缀在临时目录中定位最终产物，
	// 转封装或格式合并后的实际扩展名以磁盘上的为准
	path, err := d.locateArtifact(opts.Prefix, currentFile)
	if err != nil {
		return "", "", &model.FetchError{URL: url, Err: err}
	}

	return path, titleFromPath(path, opts.Prefix), nil
}

// locateArtifact 按前缀找到下载产物，跳过字幕等附属文件
func (d *Downloader) locateArtifact(prefix, hint string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(d.scratchDir, prefix+"_*"))
	if err != nil {
		return "", err
	}

	var best string
	var bestSize int64 = -1
	for _, m := range matches {
		if auxiliaryExts[strings.ToLower(filepath.Ext(m))] {
			continue
		}
		fi, err := os.Stat(m)
		if err != nil || fi.IsDir() {
			continue
		}
		// 多个候选时取最大的（媒体文件远大于附属文件）
		if fi.Size() > bestSize {
			best = m
			bestSize = fi.Size()
		}
	}

	if best == "" {
		// 进度输出中记录过目标文件时退而使用它
		if hint != "" {
			if _, err := os.Stat(hint); err == nil {
				return hint, nil
			}
		}
		return "", fmt.Errorf("未找到下载产物: prefix=%s", prefix)
	}
	return best, nil
}

// titleFromPath 从 "<prefix>_<title>.<ext>" 形式的文件名还原标题
func titleFromPath(path, prefix string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	title := strings.TrimPrefix(base, prefix+"_")
	if title == "" {
		return "download"
	}
	return title
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func defaultTitle(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func limitStrings(in []string, max int) []string {
	if in == nil {
		return []string{}
	}
	if len(in) > max {
		return in[:max]
	}
	return in
}

func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// categorizeFormats 把可用格式按视频/音频/音视频分组，
// 各组按画质降序排列并截断到 15 个
func categorizeFormats(raw []rawFormat) *model.MediaFormats {
	out := &model.MediaFormats{
		Video:    []model.MediaFormat{},
		Audio:    []model.MediaFormat{},
		Combined: []model.MediaFormat{},
	}

	for _, f := range raw {
		mf := model.MediaFormat{
			FormatID:       f.FormatID,
			Ext:            f.Ext,
			Quality:        f.Height,
			Filesize:       f.Filesize,
			FilesizeApprox: f.FilesizeApprox,
			FPS:            f.FPS,
			Vcodec:         defaultCodec(f.Vcodec),
			Acodec:         defaultCodec(f.Acodec),
			ABR:            f.ABR,
			VBR:            f.VBR,
			FormatNote:     f.FormatNote,
			Resolution:     f.Resolution,
		}

		hasVideo := mf.Vcodec != "none"
		hasAudio := mf.Acodec != "none"
		switch {
		case hasVideo && hasAudio:
			out.Combined = append(out.Combined, mf)
		case hasVideo:
			out.Video = append(out.Video, mf)
		case hasAudio:
			out.Audio = append(out.Audio, mf)
		}
	}

	for _, group := range []*[]model.MediaFormat{&out.Video, &out.Audio, &out.Combined} {
		sort.SliceStable(*group, func(i, j int) bool {
			return (*group)[i].Quality > (*group)[j].Quality
		})
		if len(*group) > 15 {
			*group = (*group)[:15]
		}
	}
	return out
}

func defaultCodec(c string) string {
	if c == "" {
		return "none"
	}
	return c
}

// tail 取 stderr 的最后几行作为错误信息
func tail(s string) string {
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
