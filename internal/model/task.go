package model

import "time"

// 定时任务类型
const (
	TaskRunStep = "run_step" // 执行一次编排步骤
	TaskResync  = "resync"   // 完成后刷新外部指标
	TaskNotify  = "notify"   // 完成后延迟通知作者
)

const (
	TaskPending = 0
	TaskDone    = 1
	TaskFailed  = 2
)

// ScheduledTask "N 毫秒后执行"的持久化原语：至少一次投递，重启不丢
type ScheduledTask struct {
	ID        uint64    `gorm:"primaryKey"`
	Kind      string    `gorm:"size:16;not null;index:idx_due,priority:2"`
	RunID     uint64    `gorm:"not null;index"`
	PostID    uint64    `gorm:"not null;index"`
	RunAt     time.Time `gorm:"not null;index:idx_due,priority:3"`
	Status    int8      `gorm:"not null;default:0;index:idx_due,priority:1"`
	Attempts  int       `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ScheduledTask) TableName() string { return "scheduled_tasks" }

// EngagementOutbox 互动事件监控表，异步投递到 kafka
type EngagementOutbox struct {
	ID        uint64 `gorm:"primaryKey"`
	EventType string `gorm:"size:24;not null"` // engagement_recorded / run_finished
	PostID    uint64 `gorm:"not null"`
	UserID    uint64 `gorm:"not null"`
	Payload   string `gorm:"type:json;not null"`
	Status    int8   `gorm:"not null;default:0;comment:'0=pending,1=sent,2=failed'"`
	Retry     int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (EngagementOutbox) TableName() string { return "engagement_outbox" }
