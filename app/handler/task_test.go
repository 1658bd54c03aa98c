package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"media-forge/app/model"
	"media-forge/app/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTaskRouter(reg *service.TaskRegistry) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewTaskHandler(reg)
	r := gin.New()
	r.GET("/api/progress/:task_id", h.Progress)
	r.GET("/api/download/file/:task_id", h.File)
	return r
}

func doGet(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestProgressEndpoint(t *testing.T) {
	reg := service.NewTaskRegistry(time.Hour)
	require.NoError(t, reg.Create(&model.Task{
		ID:        "t1",
		Status:    model.StatusDownloading,
		Progress:  42,
		StartTime: time.Now(),
	}))
	r := newTaskRouter(reg)

	w := doGet(r, "/api/progress/t1")
	assert.Equal(t, http.StatusOK, w.Code)

	var got model.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "t1", got.ID)
	assert.Equal(t, model.StatusDownloading, got.Status)
	assert.Equal(t, 42.0, got.Progress)
}

func TestProgressUnknownTask(t *testing.T) {
	r := newTaskRouter(service.NewTaskRegistry(time.Hour))

	w := doGet(r, "/api/progress/nothing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProgressExpiredTask(t *testing.T) {
	reg := service.NewTaskRegistry(time.Hour)
	require.NoError(t, reg.Create(&model.Task{
		ID:        "old",
		Status:    model.StatusCompleted,
		StartTime: time.Now().Add(-2 * time.Hour),
	}))
	r := newTaskRouter(reg)

	// 过期任务等同不存在，重复查询结果一致
	assert.Equal(t, http.StatusNotFound, doGet(r, "/api/progress/old").Code)
	assert.Equal(t, http.StatusNotFound, doGet(r, "/api/progress/old").Code)
}

func TestFileBeforeCompletion(t *testing.T) {
	reg := service.NewTaskRegistry(time.Hour)
	require.NoError(t, reg.Create(&model.Task{
		ID:        "t1",
		Status:    model.StatusDownloading,
		StartTime: time.Now(),
	}))
	r := newTaskRouter(reg)

	w := doGet(r, "/api/download/file/t1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFileDelivery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t1_My Video.mp4")
	require.NoError(t, os.WriteFile(path, []byte("fake video data"), 0644))

	reg := service.NewTaskRegistry(time.Hour)
	require.NoError(t, reg.Create(&model.Task{
		ID:        "t1",
		Status:    model.StatusCompleted,
		Progress:  100,
		Title:     "My Video",
		Filename:  path,
		StartTime: time.Now(),
	}))
	r := newTaskRouter(reg)

	w := doGet(r, "/api/download/file/t1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fake video data", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "My Video.mp4")
}

func TestFileMissingOnDisk(t *testing.T) {
	reg := service.NewTaskRegistry(time.Hour)
	require.NoError(t, reg.Create(&model.Task{
		ID:        "t1",
		Status:    model.StatusCompleted,
		Filename:  "/no/such/file.mp4",
		StartTime: time.Now(),
	}))
	r := newTaskRouter(reg)

	w := doGet(r, "/api/download/file/t1")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
