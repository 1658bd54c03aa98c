package handler

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"media-forge/app/model"
	"media-forge/app/service"
	"media-forge/app/utils/urlcheck"

	"github.com/gin-gonic/gin"
)

// MediaHandler 媒体信息与本地文件处理接口
type MediaHandler struct {
	info *service.MediaInfoService
	svc  *service.DownloadService
}

// NewMediaHandler 创建媒体处理器
func NewMediaHandler(info *service.MediaInfoService, svc *service.DownloadService) *MediaHandler {
	return &MediaHandler{info: info, svc: svc}
}

// Validate 校验 URL
func (h *MediaHandler) Validate(c *gin.Context) {
	var req struct {
		URL string `json:"url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 400, "请求体格式错误: "+err.Error())
		return
	}

	valid, message := urlcheck.Validate(req.URL)
	data := gin.H{
		"valid":   valid,
		"message": message,
	}
	if valid {
		data["platform"] = urlcheck.Platform(req.URL)
	}
	success(c, data, "校验完成")
}

// Info 探测媒体元数据
func (h *MediaHandler) Info(c *gin.Context) {
	req := struct {
		URL            string `json:"url"`
		IncludeFormats *bool  `json:"include_formats"`
	}{}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 400, "请求体格式错误: "+err.Error())
		return
	}
	if req.URL == "" {
		fail(c, http.StatusBadRequest, 400, "URL is required")
		return
	}

	includeFormats := true
	if req.IncludeFormats != nil {
		includeFormats = *req.IncludeFormats
	}

	info, err := h.info.GetInfo(c.Request.Context(), req.URL, includeFormats)
	if err != nil {
		var validationErr *model.ValidationError
		if errors.As(err, &validationErr) {
			fail(c, http.StatusBadRequest, 400, err.Error())
		} else {
			fail(c, http.StatusInternalServerError, 500, err.Error())
		}
		return
	}

	// 信息响应中附带预设表，前端可直接展示
	success(c, gin.H{
		"info":               info,
		"format_presets":     model.FormatPresets,
		"processing_presets": model.ProcessingPresets,
	}, "获取媒体信息成功")
}

// Thumbnail 下载并返回媒体的缩略图
func (h *MediaHandler) Thumbnail(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		fail(c, http.StatusBadRequest, 400, "URL is required")
		return
	}

	path, err := h.info.FetchThumbnail(c.Request.Context(), url)
	if err != nil {
		var validationErr *model.ValidationError
		if errors.As(err, &validationErr) {
			fail(c, http.StatusBadRequest, 400, err.Error())
		} else {
			fail(c, http.StatusInternalServerError, 500, err.Error())
		}
		return
	}
	c.File(path)
}

// processRequest 本地文件处理请求体
type processRequest struct {
	FilePath string `json:"file_path"`
	Type     string `json:"type"`
	Options  struct {
		Format     string `json:"format"`
		Quality    string `json:"quality"`
		Resolution string `json:"resolution"`
		Level      string `json:"level"`
		StartTime  string `json:"start_time"`
		Duration   string `json:"duration"`
		Text       string `json:"text"`
		Position   string `json:"position"`
	} `json:"options"`
}

// ProcessVideo 对本地文件执行一种 FFmpeg 操作
func (h *MediaHandler) ProcessVideo(c *gin.Context) {
	if !h.svc.ProcessorAvailable() {
		fail(c, http.StatusBadRequest, 400, "FFmpeg is not available")
		return
	}

	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 400, "请求体格式错误: "+err.Error())
		return
	}
	if req.FilePath == "" {
		fail(c, http.StatusBadRequest, 400, "Valid file path required")
		return
	}
	if _, err := os.Stat(req.FilePath); err != nil {
		fail(c, http.StatusBadRequest, 400, "Valid file path required")
		return
	}

	// info 是查询操作，单独处理
	if req.Type == "info" {
		probe, err := h.svc.ProbeLocal(req.FilePath)
		if err != nil {
			fail(c, http.StatusInternalServerError, 500, err.Error())
			return
		}
		success(c, probe, "获取视频信息成功")
		return
	}

	action := model.PostProcessAction(req.Type)
	if !action.Valid() {
		fail(c, http.StatusBadRequest, 400, "Invalid processing type")
		return
	}

	pp := &model.PostProcess{
		Action:     action,
		Format:     req.Options.Format,
		Quality:    req.Options.Quality,
		Resolution: req.Options.Resolution,
		Level:      req.Options.Level,
		StartTime:  req.Options.StartTime,
		Duration:   req.Options.Duration,
		Text:       req.Options.Text,
		Position:   req.Options.Position,
	}

	result, err := h.svc.ProcessLocal(req.FilePath, pp)
	if err != nil {
		fail(c, http.StatusInternalServerError, 500, err.Error())
		return
	}
	if _, err := os.Stat(result); err != nil {
		fail(c, http.StatusInternalServerError, 500, "处理失败")
		return
	}
	c.FileAttachment(result, filepath.Base(result))
}

// MergeVideos 合并多个本地视频
func (h *MediaHandler) MergeVideos(c *gin.Context) {
	if !h.svc.ProcessorAvailable() {
		fail(c, http.StatusBadRequest, 400, "FFmpeg is not available")
		return
	}

	var req struct {
		FilePaths []string `json:"file_paths"`
		Format    string   `json:"format"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 400, "请求体格式错误: "+err.Error())
		return
	}
	if len(req.FilePaths) < 2 {
		fail(c, http.StatusBadRequest, 400, "At least 2 video files required")
		return
	}
	for _, path := range req.FilePaths {
		if _, err := os.Stat(path); err != nil {
			fail(c, http.StatusBadRequest, 400, "File not found: "+path)
			return
		}
	}
	if req.Format == "" {
		req.Format = "mp4"
	}

	result, err := h.svc.MergeLocal(req.FilePaths, req.Format)
	if err != nil {
		fail(c, http.StatusInternalServerError, 500, err.Error())
		return
	}
	c.FileAttachment(result, "merged_video."+req.Format)
}
