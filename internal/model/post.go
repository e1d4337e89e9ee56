package model

import "time"

// Post 状态只向前流转，终态不可再变
const (
	PostPending    = "pending"
	PostProcessing = "processing"
	PostCompleted  = "completed"
	PostFailed     = "failed"
	PostCanceled   = "canceled"
)

type Post struct {
	ID          uint64 `gorm:"primaryKey"`
	AuthorID    uint64 `gorm:"not null;index:idx_author_time"`
	PodID       uint64 `gorm:"not null;index"`
	PlatformURN string `gorm:"size:128;not null"`
	URL         string `gorm:"size:512"`
	RunID       uint64 `gorm:"index"`
	Status      string `gorm:"size:20;not null;default:'pending'"`
	// SuccessCount 聚合计数：只在互动插入事务内自增，是最终计数的唯一依据
	SuccessCount int64 `gorm:"not null;default:0"`
	FailureCount int64 `gorm:"not null;default:0"`
	CompletedAt  *time.Time
	CreatedAt    time.Time `gorm:"index:idx_author_time"`
	UpdatedAt    time.Time
}

// PostTerminal 是否已到终态
func PostTerminal(status string) bool {
	return status == PostCompleted || status == PostFailed || status == PostCanceled
}
