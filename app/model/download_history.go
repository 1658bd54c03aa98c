package model

import "time"

// DownloadHistory 下载历史记录（仅审计用，任务生命周期状态不落库）
type DownloadHistory struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	TaskID    string    `json:"task_id" gorm:"size:64;index"`
	URL       string    `json:"url" gorm:"type:text"`
	Title     string    `json:"title"`
	Filename  string    `json:"filename" gorm:"type:text"`
	Status    string    `json:"status" gorm:"size:20;index"`
	Error     string    `json:"error,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (DownloadHistory) TableName() string {
	return "download_history"
}
