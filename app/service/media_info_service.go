package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"media-forge/app/logger"
	"media-forge/app/model"
	"media-forge/app/utils/urlcheck"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"resty.dev/v3"
)

// MediaInfoService 媒体信息服务：探测元数据并缓存，下载缩略图。
// 元数据探测走下载引擎，结果按 URL 缓存，避免重复调起外部进程。
type MediaInfoService struct {
	retriever  Retriever
	infoCache  *cache.Cache
	client     *resty.Client
	scratchDir string
	ffmpegOK   bool
	log        *logger.Logger
}

// NewMediaInfoService 创建媒体信息服务
func NewMediaInfoService(retriever Retriever, scratchDir string, cacheTTL time.Duration,
	ffmpegOK bool, log *logger.Logger) *MediaInfoService {

	client := resty.New()
	client.SetTimeout(30 * time.Second)

	return &MediaInfoService{
		retriever:  retriever,
		infoCache:  cache.New(cacheTTL, 10*time.Minute),
		client:     client,
		scratchDir: scratchDir,
		ffmpegOK:   ffmpegOK,
		log:        log,
	}
}

// GetInfo 探测媒体元数据，命中缓存时直接返回
func (s *MediaInfoService) GetInfo(ctx context.Context, url string, includeFormats bool) (*model.MediaInfo, error) {
	if valid, message := urlcheck.Validate(url); !valid {
		return nil, model.NewValidationError("%s", message)
	}

	if cached, ok := s.infoCache.Get(url); ok {
		info := cached.(model.MediaInfo)
		return s.shape(&info, includeFormats), nil
	}

	info, err := s.retriever.Probe(ctx, url)
	if err != nil {
		return nil, err
	}
	info.FfmpegAvailable = s.ffmpegOK

	s.infoCache.Set(url, *info, cache.DefaultExpiration)
	return s.shape(info, includeFormats), nil
}

// shape 按需裁剪格式列表，返回副本
func (s *MediaInfoService) shape(info *model.MediaInfo, includeFormats bool) *model.MediaInfo {
	out := *info
	if !includeFormats {
		out.Formats = nil
	}
	return &out
}

// FetchThumbnail 探测缩略图地址并下载到临时目录，返回本地路径
func (s *MediaInfoService) FetchThumbnail(ctx context.Context, url string) (string, error) {
	info, err := s.GetInfo(ctx, url, false)
	if err != nil {
		return "", err
	}
	if info.Thumbnail == "" {
		return "", model.NewValidationError("该媒体没有缩略图")
	}

	ext := filepath.Ext(info.Thumbnail)
	if ext == "" || len(ext) > 5 {
		ext = ".jpg"
	}
	savePath := filepath.Join(s.scratchDir, "thumb_"+uuid.New().String()[:8]+ext)

	resp, err := s.client.R().
		SetContext(ctx).
		Get(info.Thumbnail)
	if err != nil {
		return "", fmt.Errorf("下载缩略图失败: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("下载缩略图失败，状态码: %d", resp.StatusCode())
	}

	if err := os.WriteFile(savePath, resp.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("保存缩略图失败: %w", err)
	}
	return savePath, nil
}
