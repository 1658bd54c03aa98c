package handler

import (
	"net/http"
	"strconv"

	"media-forge/app/config"
	"media-forge/app/database"
	"media-forge/app/model"
	"media-forge/app/scratch"
	"media-forge/app/service"
	"media-forge/app/utils/urlcheck"

	"github.com/gin-gonic/gin"
)

// Version 服务版本号
const Version = "2.1.0"

// SystemHandler 服务信息、健康检查与清理接口
type SystemHandler struct {
	cfg     *config.Config
	svc     *service.DownloadService
	cleanup *service.CleanupService
	watcher *scratch.Watcher
}

// NewSystemHandler 创建系统处理器
func NewSystemHandler(cfg *config.Config, svc *service.DownloadService,
	cleanup *service.CleanupService, watcher *scratch.Watcher) *SystemHandler {
	return &SystemHandler{
		cfg:     cfg,
		svc:     svc,
		cleanup: cleanup,
		watcher: watcher,
	}
}

// Home 服务首页信息
func (h *SystemHandler) Home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":             "media-forge API",
		"version":             Version,
		"supported_platforms": urlcheck.PlatformNames(),
		"ffmpeg_available":    h.svc.ProcessorAvailable(),
		"features": []string{
			"Multi-format downloads",
			"Batch processing",
			"Progress tracking",
			"Subtitle downloads",
			"Advanced format selection",
			"ZIP archive creation",
			"Video compression",
			"Audio extraction",
			"Format conversion",
			"Resolution scaling",
			"Video trimming",
			"Watermarking",
		},
	})
}

// Formats 下载与处理预设列表
func (h *SystemHandler) Formats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"download_presets":   model.FormatPresets,
		"processing_presets": model.ProcessingPresets,
		"descriptions":       model.PresetDescriptions,
		"ffmpeg_available":   h.svc.ProcessorAvailable(),
	})
}

// FfmpegStatus 转码引擎能力状态
func (h *SystemHandler) FfmpegStatus(c *gin.Context) {
	available := h.svc.ProcessorAvailable()

	capabilities := []string{}
	supportedFormats := gin.H{}
	if available {
		capabilities = []string{
			"Video compression",
			"Audio extraction",
			"Format conversion",
			"Resolution scaling",
			"Video trimming",
			"Video merging",
			"Watermarking",
			"Video analysis",
		}
		supportedFormats = gin.H{
			"input":  []string{"mp4", "avi", "mov", "mkv", "webm", "flv", "m4v"},
			"output": []string{"mp4", "avi", "mov", "mkv", "webm"},
			"audio":  []string{"mp3", "aac", "wav", "ogg", "flac"},
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"available":         available,
		"capabilities":      capabilities,
		"supported_formats": supportedFormats,
	})
}

// Health 健康检查
func (h *SystemHandler) Health(c *gin.Context) {
	data := gin.H{
		"status":              "healthy",
		"version":             Version,
		"scratch_dir":         h.cfg.Scratch.Dir,
		"supported_platforms": len(urlcheck.SupportedPlatforms),
		"active_tasks":        h.svc.Registry().Len(),
		"ffmpeg_available":    h.svc.ProcessorAvailable(),
	}
	if h.watcher != nil {
		data["scratch"] = h.watcher.Stats()
	}
	c.JSON(http.StatusOK, data)
}

// Cleanup 清理临时文件与过期任务
func (h *SystemHandler) Cleanup(c *gin.Context) {
	filesCleaned, err := h.cleanup.SweepScratch()
	if err != nil {
		fail(c, http.StatusInternalServerError, 500, "清理临时文件失败: "+err.Error())
		return
	}
	tasksCleaned := h.cleanup.SweepTasks()

	if h.watcher != nil {
		h.watcher.Rescan()
	}

	success(c, gin.H{
		"files_cleaned": filesCleaned,
		"tasks_cleaned": tasksCleaned,
	}, "清理完成")
}

// History 下载历史列表，分页
func (h *SystemHandler) History(c *gin.Context) {
	db := database.GetDB()
	if db == nil {
		fail(c, http.StatusInternalServerError, 500, "数据库不可用")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := db.Model(&model.DownloadHistory{})

	// 状态过滤
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var records []model.DownloadHistory
	if err := query.Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&records).Error; err != nil {
		fail(c, http.StatusInternalServerError, 500, "获取下载历史失败")
		return
	}

	success(c, gin.H{
		"list":     records,
		"total":    total,
		"current":  page,
		"pageSize": pageSize,
	}, "获取下载历史成功")
}
