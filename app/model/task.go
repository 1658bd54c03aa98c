package model

import (
	"time"
)

// TaskStatus 任务状态
type TaskStatus string

// 状态常量
const (
	StatusStarting       TaskStatus = "starting"        // 已创建，尚未开始下载
	StatusDownloading    TaskStatus = "downloading"     // 下载中
	StatusPostProcessing TaskStatus = "post_processing" // FFmpeg 后处理中
	StatusCompleted      TaskStatus = "completed"       // 已完成
	StatusError          TaskStatus = "error"           // 失败
)

// IsTerminal 是否为终态（终态任务的字段不再变化）
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// BatchFileResult 批量任务中单个文件的结果
type BatchFileResult struct {
	URL      string `json:"url,omitempty"`
	Title    string `json:"title,omitempty"`
	Filename string `json:"filename,omitempty"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// BatchError 批量任务中单个 URL 的错误信息
type BatchError struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// Task 一次下载任务（单个 URL 或一个批次）
type Task struct {
	ID             string     `json:"task_id"`
	Status         TaskStatus `json:"status"`
	Progress       float64    `json:"progress"` // 0-100，非终态下单调不减
	Filename       string     `json:"filename,omitempty"`
	Title          string     `json:"title,omitempty"`
	Error          string     `json:"error,omitempty"`
	StartTime      time.Time  `json:"start_time"`
	PostProcessing bool       `json:"post_processing"`

	// 批量任务专用字段
	Batch          bool              `json:"batch,omitempty"`
	TotalFiles     int               `json:"total_files,omitempty"`
	CompletedFiles int               `json:"completed_files,omitempty"`
	CurrentItem    int               `json:"current_item,omitempty"` // 当前正在处理第几个 URL（从 1 开始）
	Files          []BatchFileResult `json:"files,omitempty"`
	Errors         []BatchError      `json:"errors,omitempty"`
}

// Clone 返回任务的深拷贝，避免调用方持有注册表内部引用
func (t *Task) Clone() Task {
	out := *t
	if t.Files != nil {
		out.Files = make([]BatchFileResult, len(t.Files))
		copy(out.Files, t.Files)
	}
	if t.Errors != nil {
		out.Errors = make([]BatchError, len(t.Errors))
		copy(out.Errors, t.Errors)
	}
	return out
}

// SetProgress 推进进度，保证非终态下进度不回退
func (t *Task) SetProgress(p float64) {
	if t.Status.IsTerminal() {
		return
	}
	if p > t.Progress {
		t.Progress = p
	}
}

// SetError 置为失败终态
func (t *Task) SetError(err error) {
	t.Status = StatusError
	t.Error = err.Error()
}

// SetCompleted 置为完成终态
func (t *Task) SetCompleted(filename string) {
	t.Status = StatusCompleted
	t.Progress = 100
	if filename != "" {
		t.Filename = filename
	}
}

// Expired 终态任务是否已超过保留时间
func (t *Task) Expired(now time.Time, retention time.Duration) bool {
	return t.Status.IsTerminal() && now.Sub(t.StartTime) > retention
}
