package server

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"media-forge/app/config"
	"media-forge/app/database"
	"media-forge/app/engine/ffmpeg"
	"media-forge/app/engine/ytdlp"
	"media-forge/app/handler"
	"media-forge/app/logger"
	"media-forge/app/scratch"
	"media-forge/app/service"

	"github.com/gin-gonic/gin"
)

// Server 表示 HTTP 服务器
type Server struct {
	Config *config.Config
	Logger *logger.Logger
	gin    *gin.Engine
	http   *http.Server

	cleanupService *service.CleanupService
	scratchWatcher *scratch.Watcher
}

// New 创建一个新的 Server 实例并完成依赖装配
func New(cfg *config.Config, log *logger.Logger) (*Server, error) {
	// 临时目录每次启动重新创建
	if err := os.RemoveAll(cfg.Scratch.Dir); err != nil {
		return nil, fmt.Errorf("清理临时目录失败: %w", err)
	}
	if err := os.MkdirAll(cfg.Scratch.Dir, 0755); err != nil {
		return nil, fmt.Errorf("创建临时目录失败: %w", err)
	}

	// 外部引擎适配器
	retriever := ytdlp.New(cfg.Engine.YtdlpPath, cfg.Scratch.Dir, log)
	processor := ffmpeg.New(cfg.Engine.FfmpegPath, cfg.Engine.FfprobePath, cfg.Scratch.Dir, log)

	// 核心服务
	registry := service.NewTaskRegistry(cfg.Download.Retention())
	downloadService := service.NewDownloadService(registry, retriever, processor,
		database.GetDB(), log, cfg.Download.BatchMax)
	infoService := service.NewMediaInfoService(retriever, cfg.Scratch.Dir,
		cfg.Download.InfoCacheTTL(), processor.Available(), log)
	cleanupService := service.NewCleanupService(registry, cfg.Scratch.Dir, log)

	// 临时目录监控，失败不阻塞启动
	watcher, err := scratch.NewWatcher(cfg.Scratch.Dir, log)
	if err != nil {
		log.Warnf("启动临时目录监控失败: %v", err)
		watcher = nil
	}

	router := gin.Default()

	s := &Server{
		gin: router,
		http: &http.Server{
			Addr:    ":" + cfg.Server.Port,
			Handler: router,
		},
		Config:         cfg,
		Logger:         log,
		cleanupService: cleanupService,
		scratchWatcher: watcher,
	}

	// 设置路由
	s.setupRoutes(downloadService, infoService)

	return s, nil
}

// Start 启动服务器
func (s *Server) Start() error {
	s.Logger.Infof("在端口 %s 启动服务器", s.http.Addr)

	// 启动定期清理
	if err := s.cleanupService.Start(s.Config.Cleanup.Cron); err != nil {
		return fmt.Errorf("启动定期清理失败: %w", err)
	}

	return s.http.ListenAndServe()
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown(ctx context.Context) error {
	// 停止定期清理
	s.cleanupService.Stop()

	// 停止临时目录监控
	if s.scratchWatcher != nil {
		if err := s.scratchWatcher.Close(); err != nil {
			s.Logger.Errorf("关闭临时目录监控失败: %v", err)
		}
	}

	// 关闭数据库连接
	if err := database.Close(); err != nil {
		s.Logger.Errorf("关闭数据库连接失败: %v", err)
	}
	return s.http.Shutdown(ctx)
}

// setupRoutes 设置 API 路由
func (s *Server) setupRoutes(downloadService *service.DownloadService, infoService *service.MediaInfoService) {
	// 创建处理器实例
	systemHandler := handler.NewSystemHandler(s.Config, downloadService, s.cleanupService, s.scratchWatcher)
	mediaHandler := handler.NewMediaHandler(infoService, downloadService)
	downloadHandler := handler.NewDownloadHandler(downloadService)
	taskHandler := handler.NewTaskHandler(downloadService.Registry())

	s.gin.GET("/", systemHandler.Home)

	// API 路由组
	api := s.gin.Group("/api")
	{
		// URL 校验与媒体信息
		api.POST("/validate", mediaHandler.Validate)
		api.POST("/info", mediaHandler.Info)
		api.GET("/thumbnail", mediaHandler.Thumbnail)

		// 下载
		api.POST("/download", downloadHandler.SyncDownload)
		api.POST("/download/async", downloadHandler.AsyncDownload)
		api.POST("/batch-download", downloadHandler.BatchDownload)

		// 本地文件处理
		api.POST("/process-video", mediaHandler.ProcessVideo)
		api.POST("/merge-videos", mediaHandler.MergeVideos)

		// 任务查询与文件获取
		api.GET("/progress/:task_id", taskHandler.Progress)
		api.GET("/download/file/:task_id", taskHandler.File)
		api.GET("/download/batch/:task_id/zip", taskHandler.BatchZip)

		// 预设与引擎状态
		api.GET("/formats", systemHandler.Formats)
		api.GET("/ffmpeg/status", systemHandler.FfmpegStatus)

		// 运维
		api.GET("/health", systemHandler.Health)
		api.GET("/history", systemHandler.History)
		api.POST("/cleanup", systemHandler.Cleanup)
	}
}
