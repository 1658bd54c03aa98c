package service

import (
	"sync"
	"time"

	"media-forge/app/model"
)

// TaskRegistry 进程内任务注册表，独占持有所有任务记录。
// 后台任务协程写、HTTP 处理器读，整表由一把读写锁保护。
type TaskRegistry struct {
	mu        sync.RWMutex
	tasks     map[string]*model.Task
	retention time.Duration // 终态任务的保留时间
}

// NewTaskRegistry 创建任务注册表
func NewTaskRegistry(retention time.Duration) *TaskRegistry {
	return &TaskRegistry{
		tasks:     make(map[string]*model.Task),
		retention: retention,
	}
}

// Create 注册新任务，ID 冲突时返回 ErrDuplicateTask。
// ID 由 uuid 生成，冲突在正常运行中不应出现，仍然检查。
func (r *TaskRegistry) Create(task *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[task.ID]; ok {
		return model.ErrDuplicateTask
	}
	r.tasks[task.ID] = task
	return nil
}

// Get 读取任务的副本。
// 终态任务超过保留时间时顺带删除并返回 ErrTaskNotFound，
// 不把过期数据返回给调用方。
func (r *TaskRegistry) Get(id string, now time.Time) (model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return model.Task{}, model.ErrTaskNotFound
	}
	if task.Expired(now, r.retention) {
		delete(r.tasks, id)
		return model.Task{}, model.ErrTaskNotFound
	}
	return task.Clone(), nil
}

// Update 原子地应用一次字段变更，返回变更后的副本。
// 进度不回退由调用方通过 Task.SetProgress 保证，这里不重复校验。
func (r *TaskRegistry) Update(id string, mutate func(*model.Task)) (model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return model.Task{}, model.ErrTaskNotFound
	}
	mutate(task)
	return task.Clone(), nil
}

// Delete 删除任务，任务不存在时为空操作
func (r *TaskRegistry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, id)
}

// Sweep 删除所有超过保留时间的终态任务，返回删除数量
func (r *TaskRegistry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, task := range r.tasks {
		if task.Expired(now, r.retention) {
			delete(r.tasks, id)
			removed++
		}
	}
	return removed
}

// Len 当前任务数量
func (r *TaskRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
