package model

import (
	"errors"
	"fmt"
)

// 注册表相关错误
var (
	// ErrTaskNotFound 任务不存在或已过期
	ErrTaskNotFound = errors.New("任务不存在")
	// ErrDuplicateTask 任务 ID 冲突，属于内部不变量被破坏
	ErrDuplicateTask = errors.New("任务 ID 已存在")
	// ErrNotReady 任务尚未完成，文件不可下载
	ErrNotReady = errors.New("下载尚未完成")
)

// ValidationError URL 或请求参数校验失败，可由调用方修正
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError 创建校验错误
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// FetchError 下载引擎失败，对任务（或批量任务中的单项）是致命的
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("下载失败: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// TranscodeError 后处理引擎失败，任务回退到未处理的原始文件
type TranscodeError struct {
	Op  string
	Err error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("%s 处理失败: %v", e.Op, e.Err)
}

func (e *TranscodeError) Unwrap() error {
	return e.Err
}
