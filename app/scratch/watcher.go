package scratch

import (
	"os"
	"path/filepath"
	"sync"

	"media-forge/app/logger"

	"github.com/fsnotify/fsnotify"
)

// Stats 临时目录的占用统计
type Stats struct {
	FileCount  int   `json:"file_count"`
	TotalBytes int64 `json:"total_bytes"`
}

// Watcher 监控临时目录，维护文件数量与总字节数，供健康检查上报。
// 统计基于事件增量更新，事件丢失时误差在下次全量扫描时修正。
type Watcher struct {
	dir     string
	watcher *fsnotify.Watcher
	log     *logger.Logger

	mu    sync.RWMutex
	sizes map[string]int64

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWatcher 创建临时目录监控器并做一次全量扫描
func NewWatcher(dir string, log *logger.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	w := &Watcher{
		dir:     dir,
		watcher: fsWatcher,
		log:     log,
		sizes:   make(map[string]int64),
		done:    make(chan struct{}),
	}
	w.rescan()

	w.wg.Add(1)
	go w.loop()

	return w, nil
}

// Stats 当前统计快照
func (w *Watcher) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	stats := Stats{FileCount: len(w.sizes)}
	for _, size := range w.sizes {
		stats.TotalBytes += size
	}
	return stats
}

// Rescan 全量重扫临时目录（清理后调用，修正增量误差）
func (w *Watcher) Rescan() {
	w.rescan()
}

// Close 停止监控
func (w *Watcher) Close() error {
	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

// loop 消费文件系统事件，增量维护统计
func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warnf("临时目录监控错误: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	switch {
	case event.Op.Has(fsnotify.Create), event.Op.Has(fsnotify.Write):
		fi, err := os.Stat(event.Name)
		if err != nil || fi.IsDir() {
			return
		}
		w.mu.Lock()
		w.sizes[event.Name] = fi.Size()
		w.mu.Unlock()
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		w.mu.Lock()
		delete(w.sizes, event.Name)
		w.mu.Unlock()
	}
}

// rescan 全量扫描目录重建统计
func (w *Watcher) rescan() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.log.Warnf("扫描临时目录失败: %v", err)
		return
	}

	sizes := make(map[string]int64)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		sizes[filepath.Join(w.dir, entry.Name())] = info.Size()
	}

	w.mu.Lock()
	w.sizes = sizes
	w.mu.Unlock()
}
