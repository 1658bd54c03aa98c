package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"media-forge/app/config"
	"media-forge/app/logger"
	"media-forge/app/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRetriever 可编程的下载引擎替身。
// URL 中包含 "bad" 时返回失败，其余情况按 progress 序列回调后成功。
type fakeRetriever struct {
	mu       sync.Mutex
	progress []float64
	fetched  []string
	lastOpts FetchOptions
}

func (f *fakeRetriever) Probe(ctx context.Context, url string) (*model.MediaInfo, error) {
	return &model.MediaInfo{Title: "probe-" + url}, nil
}

func (f *fakeRetriever) Fetch(ctx context.Context, url string, opts FetchOptions,
	onProgress func(percent float64, filename string)) (string, string, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	f.lastOpts = opts
	f.mu.Unlock()

	if strings.Contains(url, "bad") {
		return "", "", &model.FetchError{URL: url, Err: errors.New("unsupported url")}
	}
	for _, p := range f.progress {
		onProgress(p, "partial.mp4")
	}
	return "/scratch/" + opts.Prefix + "_video.mp4", "Test Video", nil
}

// fakeProcessor 记录调用次数的转码引擎替身
type fakeProcessor struct {
	mu        sync.Mutex
	available bool
	failNext  bool
	calls     int
}

func (f *fakeProcessor) record(out string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failNext {
		return "", &model.TranscodeError{Op: "test", Err: errors.New("boom")}
	}
	return out, nil
}

func (f *fakeProcessor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeProcessor) Available() bool { return f.available }
func (f *fakeProcessor) Convert(input, format, quality, resolution string) (string, error) {
	return f.record(input + ".converted." + format)
}
func (f *fakeProcessor) Compress(input, level string) (string, error) {
	return f.record(input + ".compressed-" + level)
}
func (f *fakeProcessor) ExtractAudio(input, format, bitrate string) (string, error) {
	return f.record(input + ".audio." + format)
}
func (f *fakeProcessor) Trim(input, start, duration string) (string, error) {
	return f.record(input + ".trimmed")
}
func (f *fakeProcessor) Watermark(input, text, position string) (string, error) {
	return f.record(input + ".marked")
}
func (f *fakeProcessor) Merge(inputs []string, format string) (string, error) {
	return f.record("merged." + format)
}
func (f *fakeProcessor) ProbeMedia(input string) (*model.VideoProbe, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return &model.VideoProbe{Duration: 12.5}, nil
}

func newTestService(retriever *fakeRetriever, processor *fakeProcessor) (*DownloadService, *TaskRegistry) {
	reg := NewTaskRegistry(time.Hour)
	log := logger.New(config.LogConfig{Level: "error", Output: "console"})
	return NewDownloadService(reg, retriever, processor, nil, log, 50), reg
}

func waitTerminal(t *testing.T, reg *TaskRegistry, id string) model.Task {
	t.Helper()
	var task model.Task
	require.Eventually(t, func() bool {
		got, err := reg.Get(id, time.Now())
		if err != nil {
			return false
		}
		task = got
		return task.Status.IsTerminal()
	}, 2*time.Second, 5*time.Millisecond)
	return task
}

func TestSingleDownloadCompletes(t *testing.T) {
	retriever := &fakeRetriever{progress: []float64{10, 50, 95}}
	processor := &fakeProcessor{available: true}
	svc, reg := newTestService(retriever, processor)

	id, err := svc.SubmitSingle("https://youtube.com/watch?v=abc", "best", false, nil)
	require.NoError(t, err)

	task := waitTerminal(t, reg, id)
	assert.Equal(t, model.StatusCompleted, task.Status)
	assert.Equal(t, 100.0, task.Progress)
	assert.Equal(t, "Test Video", task.Title)
	assert.Contains(t, task.Filename, id)
	assert.Empty(t, task.Error)
	assert.False(t, task.PostProcessing)
	// 无后处理时转码引擎不应被调用
	assert.Equal(t, 0, processor.callCount())
	// 但下载引擎应收到转封装指示
	assert.True(t, retriever.lastOpts.RemuxMP4)
}

func TestSingleDownloadFetchError(t *testing.T) {
	retriever := &fakeRetriever{}
	svc, reg := newTestService(retriever, &fakeProcessor{available: true})

	id, err := svc.SubmitSingle("https://youtube.com/bad", "best", false, nil)
	require.NoError(t, err)

	task := waitTerminal(t, reg, id)
	assert.Equal(t, model.StatusError, task.Status)
	assert.Contains(t, task.Error, "unsupported url")
}

func TestSingleDownloadWithPostProcess(t *testing.T) {
	retriever := &fakeRetriever{progress: []float64{100}}
	processor := &fakeProcessor{available: true}
	svc, reg := newTestService(retriever, processor)

	pp := &model.PostProcess{Action: model.ActionCompress, Level: "high"}
	id, err := svc.SubmitSingle("https://youtube.com/watch?v=abc", "best", false, pp)
	require.NoError(t, err)

	task := waitTerminal(t, reg, id)
	assert.Equal(t, model.StatusCompleted, task.Status)
	assert.Equal(t, 100.0, task.Progress)
	assert.True(t, task.PostProcessing)
	assert.Contains(t, task.Filename, ".compressed-high")
	assert.Equal(t, 1, processor.callCount())
	// 有自定义后处理时下载引擎不做转封装
	assert.False(t, retriever.lastOpts.RemuxMP4)
}

func TestPostProcessFailureFallsBackToOriginal(t *testing.T) {
	retriever := &fakeRetriever{}
	processor := &fakeProcessor{available: true, failNext: true}
	svc, reg := newTestService(retriever, processor)

	pp := &model.PostProcess{Action: model.ActionExtractAudio}
	id, err := svc.SubmitSingle("https://youtube.com/watch?v=abc", "best", false, pp)
	require.NoError(t, err)

	// 后处理失败回退到原始文件，任务仍然算成功
	task := waitTerminal(t, reg, id)
	assert.Equal(t, model.StatusCompleted, task.Status)
	assert.Contains(t, task.Filename, "_video.mp4")
	assert.NotContains(t, task.Filename, ".audio.")
	assert.Empty(t, task.Error)
}

func TestPostProcessSkippedWhenEngineUnavailable(t *testing.T) {
	retriever := &fakeRetriever{}
	processor := &fakeProcessor{available: false}
	svc, reg := newTestService(retriever, processor)

	pp := &model.PostProcess{Action: model.ActionConvert, Format: "avi"}
	id, err := svc.SubmitSingle("https://youtube.com/watch?v=abc", "best", false, pp)
	require.NoError(t, err)

	task := waitTerminal(t, reg, id)
	assert.Equal(t, model.StatusCompleted, task.Status)
	assert.Equal(t, 0, processor.callCount())
	assert.Contains(t, task.Filename, "_video.mp4")
}

func TestBatchDownloadAllSucceed(t *testing.T) {
	retriever := &fakeRetriever{}
	svc, reg := newTestService(retriever, &fakeProcessor{available: true})

	urls := []string{
		"https://youtube.com/watch?v=1",
		"https://youtube.com/watch?v=2",
		"https://youtube.com/watch?v=3",
	}
	id, err := svc.SubmitBatch(urls, "best", nil)
	require.NoError(t, err)

	task := waitTerminal(t, reg, id)
	assert.Equal(t, model.StatusCompleted, task.Status)
	assert.Equal(t, 100.0, task.Progress)
	assert.True(t, task.Batch)
	assert.Equal(t, 3, task.TotalFiles)
	assert.Equal(t, 3, task.CompletedFiles)
	assert.Len(t, task.Files, 3)
	assert.Empty(t, task.Errors)
	for _, f := range task.Files {
		assert.Equal(t, "completed", f.Status)
		assert.NotEmpty(t, f.Filename)
	}
}

func TestBatchDownloadPartialFailure(t *testing.T) {
	retriever := &fakeRetriever{}
	svc, reg := newTestService(retriever, &fakeProcessor{available: true})

	urls := []string{
		"https://youtube.com/watch?v=1",
		"https://youtube.com/bad1",
		"https://youtube.com/watch?v=2",
		"https://youtube.com/bad2",
	}
	id, err := svc.SubmitBatch(urls, "best", nil)
	require.NoError(t, err)

	// 单项失败不中断批次，最终状态仍是 completed，
	// completed_files 统计所有已处理的项
	task := waitTerminal(t, reg, id)
	assert.Equal(t, model.StatusCompleted, task.Status)
	assert.Equal(t, 4, task.CompletedFiles)
	assert.Len(t, task.Files, 4)
	assert.Len(t, task.Errors, 2)
	assert.Equal(t, "error", task.Files[1].Status)
	assert.Equal(t, "completed", task.Files[2].Status)
	assert.Equal(t, 100.0, task.Progress)
}

func TestBatchDownloadLimits(t *testing.T) {
	svc, _ := newTestService(&fakeRetriever{}, &fakeProcessor{})

	_, err := svc.SubmitBatch(nil, "best", nil)
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)

	urls := make([]string, 51)
	for i := range urls {
		urls[i] = "https://youtube.com/watch?v=x"
	}
	_, err = svc.SubmitBatch(urls, "best", nil)
	assert.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "Maximum 50")
}

func TestSyncDownload(t *testing.T) {
	retriever := &fakeRetriever{}
	svc, reg := newTestService(retriever, &fakeProcessor{available: true})

	path, title, err := svc.SyncDownload(context.Background(), "https://youtube.com/watch?v=abc", "best", false, nil)
	require.NoError(t, err)
	assert.Equal(t, "Test Video", title)
	assert.Contains(t, path, "_video.mp4")
	// 同步下载不产生任务记录
	assert.Equal(t, 0, reg.Len())
}

func TestProcessLocalRequiresEngine(t *testing.T) {
	svc, _ := newTestService(&fakeRetriever{}, &fakeProcessor{available: false})

	_, err := svc.ProcessLocal("/tmp/a.mp4", &model.PostProcess{Action: model.ActionTrim})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "FFmpeg is not available")
}

func TestMergeLocal(t *testing.T) {
	processor := &fakeProcessor{available: true}
	svc, _ := newTestService(&fakeRetriever{}, processor)

	_, err := svc.MergeLocal([]string{"/tmp/a.mp4"}, "mp4")
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)

	out, err := svc.MergeLocal([]string{"/tmp/a.mp4", "/tmp/b.mp4"}, "mp4")
	require.NoError(t, err)
	assert.Equal(t, "merged.mp4", out)
}
