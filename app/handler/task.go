package handler

import (
	"archive/zip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"media-forge/app/model"
	"media-forge/app/service"
	"media-forge/app/utils/pathhelper"

	"github.com/gin-gonic/gin"
)

// TaskHandler 任务查询与文件获取接口，只读注册表
type TaskHandler struct {
	registry *service.TaskRegistry
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(registry *service.TaskRegistry) *TaskHandler {
	return &TaskHandler{registry: registry}
}

// Progress 查询任务进度，过期的终态任务等同不存在
func (h *TaskHandler) Progress(c *gin.Context) {
	taskID := c.Param("task_id")

	task, err := h.registry.Get(taskID, time.Now())
	if err != nil {
		fail(c, http.StatusNotFound, 404, "任务不存在")
		return
	}

	c.JSON(http.StatusOK, task)
}

// File 获取已完成任务的文件
func (h *TaskHandler) File(c *gin.Context) {
	taskID := c.Param("task_id")

	task, err := h.registry.Get(taskID, time.Now())
	if err != nil {
		fail(c, http.StatusNotFound, 404, "任务不存在")
		return
	}

	if task.Status != model.StatusCompleted {
		fail(c, http.StatusBadRequest, 400, model.ErrNotReady.Error())
		return
	}
	if task.Filename == "" {
		fail(c, http.StatusNotFound, 404, "文件不存在")
		return
	}
	if _, err := os.Stat(task.Filename); err != nil {
		fail(c, http.StatusNotFound, 404, "文件不存在")
		return
	}

	name := filepath.Base(task.Filename)
	if task.Title != "" {
		name = pathhelper.AttachmentName(task.Title, task.Filename)
	}
	c.FileAttachment(task.Filename, name)
}

// BatchZip 把已完成批量任务的全部产物打包为 zip 返回
func (h *TaskHandler) BatchZip(c *gin.Context) {
	taskID := c.Param("task_id")

	task, err := h.registry.Get(taskID, time.Now())
	if err != nil {
		fail(c, http.StatusNotFound, 404, "任务不存在")
		return
	}
	if !task.Batch {
		fail(c, http.StatusBadRequest, 400, "不是批量任务")
		return
	}
	if task.Status != model.StatusCompleted {
		fail(c, http.StatusBadRequest, 400, model.ErrNotReady.Error())
		return
	}

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="batch_%s.zip"`, taskID[:8]))

	zw := zip.NewWriter(c.Writer)
	defer zw.Close()

	for _, file := range task.Files {
		if file.Status != "completed" || file.Filename == "" {
			continue
		}
		// 响应头已发出，单个文件写入失败只能跳过
		_ = addFileToZip(zw, file.Filename)
	}
}

// addFileToZip 把单个文件写入 zip 流
func addFileToZip(zw *zip.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := zw.Create(filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
