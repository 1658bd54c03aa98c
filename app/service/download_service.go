package service

import (
	"context"
	"time"

	"media-forge/app/logger"
	"media-forge/app/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FetchOptions 一次下载的参数
type FetchOptions struct {
	Format    string // yt-dlp 格式选择器（已解析预设）
	Subtitles bool   // 是否同时下载字幕
	Prefix    string // 临时目录中的唯一文件名前缀
	RemuxMP4  bool   // 下载后是否由引擎转封装为 mp4
}

// Retriever 下载引擎适配器接口
type Retriever interface {
	// Probe 只探测元数据，不下载
	Probe(ctx context.Context, url string) (*model.MediaInfo, error)
	// Fetch 执行下载。进度回调可能被调用零次或多次，
	// percent 为下载阶段内的百分比。
	Fetch(ctx context.Context, url string, opts FetchOptions,
		onProgress func(percent float64, filename string)) (path, title string, err error)
}

// MediaProcessor 转码引擎适配器接口
type MediaProcessor interface {
	// Available 引擎是否可用，进程启动时探测一次，之后不变
	Available() bool
	Convert(input, format, quality, resolution string) (string, error)
	Compress(input, level string) (string, error)
	ExtractAudio(input, format, bitrate string) (string, error)
	Trim(input, start, duration string) (string, error)
	Watermark(input, text, position string) (string, error)
	Merge(inputs []string, format string) (string, error)
	ProbeMedia(input string) (*model.VideoProbe, error)
}

// DownloadService 任务编排器。
// 每个提交的任务（或批次）对应一个后台协程，状态写入注册表，
// HTTP 层只读注册表。
type DownloadService struct {
	registry  *TaskRegistry
	retriever Retriever
	processor MediaProcessor
	db        *gorm.DB // 下载历史，允许为 nil
	log       *logger.Logger
	batchMax  int
}

// NewDownloadService 创建任务编排器
func NewDownloadService(registry *TaskRegistry, retriever Retriever, processor MediaProcessor,
	db *gorm.DB, log *logger.Logger, batchMax int) *DownloadService {
	return &DownloadService{
		registry:  registry,
		retriever: retriever,
		processor: processor,
		db:        db,
		log:       log,
		batchMax:  batchMax,
	}
}

// Registry 任务注册表（HTTP 层轮询用）
func (s *DownloadService) Registry() *TaskRegistry {
	return s.registry
}

// ProcessorAvailable 转码引擎是否可用
func (s *DownloadService) ProcessorAvailable() bool {
	return s.processor.Available()
}

// SubmitSingle 提交单个异步下载任务，返回任务 ID
func (s *DownloadService) SubmitSingle(url, format string, subtitles bool, pp *model.PostProcess) (string, error) {
	task := &model.Task{
		ID:             uuid.New().String(),
		Status:         model.StatusStarting,
		StartTime:      time.Now(),
		PostProcessing: pp != nil,
	}
	if err := s.registry.Create(task); err != nil {
		return "", err
	}

	go s.runSingle(task.ID, url, model.ResolveFormat(format), subtitles, pp)

	s.log.Infof("已提交下载任务: task=%s url=%s post_process=%s", task.ID, url, pp)
	return task.ID, nil
}

// SubmitBatch 提交批量下载任务，返回任务 ID。
// 批次内的 URL 在同一个后台协程中顺序处理，以限制资源占用。
func (s *DownloadService) SubmitBatch(urls []string, format string, pp *model.PostProcess) (string, error) {
	if len(urls) == 0 {
		return "", model.NewValidationError("URLs array is required")
	}
	if len(urls) > s.batchMax {
		return "", model.NewValidationError("Maximum %d URLs per batch", s.batchMax)
	}

	task := &model.Task{
		ID:             uuid.New().String(),
		Status:         model.StatusStarting,
		StartTime:      time.Now(),
		PostProcessing: pp != nil,
		Batch:          true,
		TotalFiles:     len(urls),
		Files:          make([]model.BatchFileResult, 0, len(urls)),
		Errors:         make([]model.BatchError, 0),
	}
	if err := s.registry.Create(task); err != nil {
		return "", err
	}

	go s.runBatch(task.ID, urls, model.ResolveFormat(format), pp)

	s.log.Infof("已提交批量下载任务: task=%s urls=%d post_process=%s", task.ID, len(urls), pp)
	return task.ID, nil
}

// SyncDownload 同步下载，阻塞直到完成，不产生任务记录
func (s *DownloadService) SyncDownload(ctx context.Context, url, format string, subtitles bool, pp *model.PostProcess) (string, string, error) {
	return s.download(ctx, "", url, model.ResolveFormat(format), subtitles, pp)
}

// runSingle 单任务的后台执行：下载，然后可选的后处理
func (s *DownloadService) runSingle(taskID, url, format string, subtitles bool, pp *model.PostProcess) {
	path, title, err := s.download(context.Background(), taskID, url, format, subtitles, pp)
	if err != nil {
		task, _ := s.registry.Update(taskID, func(t *model.Task) {
			t.SetError(err)
		})
		s.log.Errorf("下载任务失败: task=%s url=%s err=%v", taskID, url, err)
		s.recordHistory(task, url)
		return
	}

	task, _ := s.registry.Update(taskID, func(t *model.Task) {
		t.Title = title
		t.SetCompleted(path)
	})
	s.log.Infof("下载任务完成: task=%s file=%s", taskID, path)
	s.recordHistory(task, url)
}

// runBatch 批量任务的后台执行：顺序处理各个 URL，
// 单个 URL 的失败只记录，不中断批次，最终状态总是 completed。
func (s *DownloadService) runBatch(taskID string, urls []string, format string, pp *model.PostProcess) {
	total := len(urls)

	for i, url := range urls {
		s.registry.Update(taskID, func(t *model.Task) {
			t.Status = model.StatusDownloading
			t.CurrentItem = i + 1
		})

		path, title, err := s.download(context.Background(), "", url, format, false, pp)
		if err != nil {
			s.log.Warnf("批量任务单项失败: task=%s url=%s err=%v", taskID, url, err)
			s.registry.Update(taskID, func(t *model.Task) {
				t.Errors = append(t.Errors, model.BatchError{URL: url, Error: err.Error()})
				t.Files = append(t.Files, model.BatchFileResult{URL: url, Status: "error", Error: err.Error()})
				t.CompletedFiles = i + 1
				t.SetProgress(batchProgress(i+1, total))
			})
			continue
		}

		s.registry.Update(taskID, func(t *model.Task) {
			t.Files = append(t.Files, model.BatchFileResult{URL: url, Title: title, Filename: path, Status: "completed"})
			t.CompletedFiles = i + 1
			t.SetProgress(batchProgress(i+1, total))
		})
	}

	task, _ := s.registry.Update(taskID, func(t *model.Task) {
		t.SetCompleted("")
	})
	s.log.Infof("批量下载任务完成: task=%s total=%d errors=%d", taskID, total, len(task.Errors))
	s.recordHistory(task, "")
}

// download 下载单个 URL，并按需执行后处理。
// taskID 为空时不写注册表（批量任务的单项和同步下载走这条路径）。
func (s *DownloadService) download(ctx context.Context, taskID, url, format string, subtitles bool, pp *model.PostProcess) (string, string, error) {
	prefix := taskID
	if prefix == "" {
		prefix = uuid.New().String()
	}

	postProcessing := pp != nil

	onProgress := func(percent float64, filename string) {
		if taskID == "" {
			return
		}
		s.registry.Update(taskID, func(t *model.Task) {
			t.Status = model.StatusDownloading
			t.SetProgress(blendFetch(percent, postProcessing))
			if filename != "" {
				t.Filename = filename
			}
		})
	}

	opts := FetchOptions{
		Format:    format,
		Subtitles: subtitles,
		Prefix:    prefix,
		// 没有自定义后处理时，由下载引擎直接转封装为 mp4
		RemuxMP4: !postProcessing && s.processor.Available(),
	}

	path, title, err := s.retriever.Fetch(ctx, url, opts, onProgress)
	if err != nil {
		return "", "", err
	}

	// 下载阶段结束。需要后处理时进度跳到检查点，否则直接完成。
	if postProcessing && s.processor.Available() {
		if taskID != "" {
			s.registry.Update(taskID, func(t *model.Task) {
				t.Status = model.StatusPostProcessing
				t.SetProgress(postProcessCheckpoint)
				t.Filename = path
			})
		}

		processed, err := s.applyPostProcess(path, pp)
		if err != nil {
			// 后处理失败不是致命错误，回退到未处理的原始文件
			s.log.Warnf("后处理失败，回退到原始文件: file=%s err=%v", path, err)
			return path, title, nil
		}
		return processed, title, nil
	}

	return path, title, nil
}

// applyPostProcess 按配置调度一种后处理操作，穷举匹配所有动作
func (s *DownloadService) applyPostProcess(path string, pp *model.PostProcess) (string, error) {
	switch pp.Action {
	case model.ActionCompress:
		return s.processor.Compress(path, defaultStr(pp.Level, "medium"))
	case model.ActionExtractAudio:
		return s.processor.ExtractAudio(path, defaultStr(pp.Format, "mp3"), defaultStr(pp.Quality, "192k"))
	case model.ActionConvert:
		return s.processor.Convert(path, defaultStr(pp.Format, "mp4"), defaultStr(pp.Quality, "medium"), pp.Resolution)
	case model.ActionTrim:
		return s.processor.Trim(path, defaultStr(pp.StartTime, "00:00:00"), defaultStr(pp.Duration, "00:01:00"))
	case model.ActionWatermark:
		return s.processor.Watermark(path, defaultStr(pp.Text, "Downloaded with media-forge"), defaultStr(pp.Position, "bottom-right"))
	default:
		// Action 在解析阶段已校验，这里不应到达
		return path, nil
	}
}

// ProcessLocal 对本地文件执行一种后处理操作，失败直接返回错误
func (s *DownloadService) ProcessLocal(path string, pp *model.PostProcess) (string, error) {
	if !s.processor.Available() {
		return "", model.NewValidationError("FFmpeg is not available")
	}
	return s.applyPostProcess(path, pp)
}

// MergeLocal 合并多个本地视频文件
func (s *DownloadService) MergeLocal(paths []string, format string) (string, error) {
	if !s.processor.Available() {
		return "", model.NewValidationError("FFmpeg is not available")
	}
	if len(paths) < 2 {
		return "", model.NewValidationError("At least 2 video files required")
	}
	return s.processor.Merge(paths, format)
}

// ProbeLocal 探测本地文件的媒体信息
func (s *DownloadService) ProbeLocal(path string) (*model.VideoProbe, error) {
	if !s.processor.Available() {
		return nil, model.NewValidationError("FFmpeg is not available")
	}
	return s.processor.ProbeMedia(path)
}

// recordHistory 终态任务落一条历史记录，失败只记日志
func (s *DownloadService) recordHistory(task model.Task, url string) {
	if s.db == nil {
		return
	}
	record := &model.DownloadHistory{
		TaskID:   task.ID,
		URL:      url,
		Title:    task.Title,
		Filename: task.Filename,
		Status:   string(task.Status),
		Error:    task.Error,
	}
	if err := s.db.Create(record).Error; err != nil {
		s.log.Errorf("写入下载历史失败: task=%s err=%v", task.ID, err)
	}
}

func defaultStr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
