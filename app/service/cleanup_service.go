package service

import (
	"os"
	"path/filepath"
	"time"

	"media-forge/app/logger"

	"github.com/robfig/cron/v3"
)

// CleanupService 定期清理过期任务与临时文件，也支持按需触发
type CleanupService struct {
	registry   *TaskRegistry
	scratchDir string
	cron       *cron.Cron
	log        *logger.Logger
}

// NewCleanupService 创建清理服务
func NewCleanupService(registry *TaskRegistry, scratchDir string, log *logger.Logger) *CleanupService {
	return &CleanupService{
		registry:   registry,
		scratchDir: scratchDir,
		cron:       cron.New(),
		log:        log,
	}
}

// Start 按 cron 表达式启动定期清理
func (s *CleanupService) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		removed := s.registry.Sweep(time.Now())
		if removed > 0 {
			s.log.Infof("定期清理：移除 %d 个过期任务", removed)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.log.Infof("定期清理已启动: %s", spec)
	return nil
}

// Stop 停止定期清理，等待进行中的清理结束
func (s *CleanupService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// SweepTasks 立即清理过期任务，返回移除数量
func (s *CleanupService) SweepTasks() int {
	return s.registry.Sweep(time.Now())
}

// SweepScratch 删除临时目录中的所有文件，返回删除数量。
// 临时文件的清理与任务过期相互独立。
func (s *CleanupService) SweepScratch() (int, error) {
	entries, err := os.ReadDir(s.scratchDir)
	if err != nil {
		return 0, err
	}

	cleaned := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(s.scratchDir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.log.Warnf("删除临时文件失败: %s err=%v", path, err)
			continue
		}
		cleaned++
	}
	return cleaned, nil
}
