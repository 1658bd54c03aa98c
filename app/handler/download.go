package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"media-forge/app/model"
	"media-forge/app/service"
	"media-forge/app/utils/pathhelper"
	"media-forge/app/utils/urlcheck"

	"github.com/gin-gonic/gin"
)

// DownloadHandler 下载相关接口
type DownloadHandler struct {
	svc *service.DownloadService
}

// NewDownloadHandler 创建下载处理器
func NewDownloadHandler(svc *service.DownloadService) *DownloadHandler {
	return &DownloadHandler{svc: svc}
}

// downloadRequest 单个下载请求体
type downloadRequest struct {
	URL         string          `json:"url"`
	Format      string          `json:"format"`
	Subtitles   bool            `json:"subtitles"`
	PostProcess json.RawMessage `json:"post_process"`
}

// batchRequest 批量下载请求体
type batchRequest struct {
	URLs        []string        `json:"urls"`
	Format      string          `json:"format"`
	PostProcess json.RawMessage `json:"post_process"`
}

// parseDownloadRequest 解析并校验下载请求的公共部分
func parseDownloadRequest(c *gin.Context) (*downloadRequest, *model.PostProcess, bool) {
	var req downloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 400, "请求体格式错误: "+err.Error())
		return nil, nil, false
	}
	if req.URL == "" {
		fail(c, http.StatusBadRequest, 400, "URL is required")
		return nil, nil, false
	}
	if valid, message := urlcheck.Validate(req.URL); !valid {
		fail(c, http.StatusBadRequest, 400, message)
		return nil, nil, false
	}
	if req.Format == "" {
		req.Format = "best"
	}

	pp, err := model.ParsePostProcess(req.PostProcess)
	if err != nil {
		fail(c, http.StatusBadRequest, 400, err.Error())
		return nil, nil, false
	}
	return &req, pp, true
}

// SyncDownload 同步下载，阻塞到完成后直接以附件返回文件
func (h *DownloadHandler) SyncDownload(c *gin.Context) {
	req, pp, ok := parseDownloadRequest(c)
	if !ok {
		return
	}

	path, title, err := h.svc.SyncDownload(c.Request.Context(), req.URL, req.Format, req.Subtitles, pp)
	if err != nil {
		fail(c, http.StatusInternalServerError, 500, err.Error())
		return
	}

	if _, err := os.Stat(path); err != nil {
		fail(c, http.StatusInternalServerError, 500, "下载失败")
		return
	}
	c.FileAttachment(path, pathhelper.AttachmentName(title, path))
}

// AsyncDownload 提交异步下载任务，立即返回任务 ID
func (h *DownloadHandler) AsyncDownload(c *gin.Context) {
	req, pp, ok := parseDownloadRequest(c)
	if !ok {
		return
	}

	taskID, err := h.svc.SubmitSingle(req.URL, req.Format, req.Subtitles, pp)
	if err != nil {
		fail(c, http.StatusInternalServerError, 500, err.Error())
		return
	}

	success(c, gin.H{
		"task_id":           taskID,
		"ffmpeg_processing": pp != nil,
	}, "下载任务已提交")
}

// BatchDownload 提交批量下载任务，立即返回任务 ID
func (h *DownloadHandler) BatchDownload(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 400, "请求体格式错误: "+err.Error())
		return
	}
	if len(req.URLs) == 0 {
		fail(c, http.StatusBadRequest, 400, "URLs array is required")
		return
	}
	if req.Format == "" {
		req.Format = "best"
	}

	pp, err := model.ParsePostProcess(req.PostProcess)
	if err != nil {
		fail(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	taskID, err := h.svc.SubmitBatch(req.URLs, req.Format, pp)
	if err != nil {
		var validationErr *model.ValidationError
		if errors.As(err, &validationErr) {
			fail(c, http.StatusBadRequest, 400, err.Error())
		} else {
			fail(c, http.StatusInternalServerError, 500, err.Error())
		}
		return
	}

	success(c, gin.H{
		"task_id":           taskID,
		"total_urls":        len(req.URLs),
		"ffmpeg_processing": pp != nil,
	}, "批量下载任务已提交")
}
