package service

// 下载引擎只报告本阶段内的百分比，这里把各阶段的百分比
// 折算成对外的单一进度值，轮询方跨阶段看到的进度不会回退。

// postProcessCheckpoint 下载阶段完成、进入后处理阶段时的进度检查点
const postProcessCheckpoint = 70

// fetchWeight 下载阶段在整体进度中的权重
func fetchWeight(postProcessing bool) float64 {
	if postProcessing {
		return 0.7
	}
	return 1.0
}

// blendFetch 将下载引擎报告的阶段内百分比折算为对外进度
func blendFetch(percent float64, postProcessing bool) float64 {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return percent * fetchWeight(postProcessing)
}

// batchProgress 批量任务的进度：已完成数 / 总数
func batchProgress(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}
