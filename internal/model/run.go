package model

import (
	"encoding/json"
	"time"
)

// Run 状态机：pending -> processing -> {completed|failed|canceled}
const (
	RunPending    = "pending"
	RunProcessing = "processing"
	RunCompleted  = "completed"
	RunFailed     = "failed"
	RunCanceled   = "canceled"
)

// EngagementRun 持久化的编排任务：每步执行后回写 StepIndex/计数/排除集，
// 进程重启后从游标处恢复，不会重放已完成的步骤
type EngagementRun struct {
	ID              uint64 `gorm:"primaryKey"`
	PostID          uint64 `gorm:"not null;index"`
	PodID           uint64 `gorm:"not null;index"`
	TargetCount     int    `gorm:"not null"`
	MinDelaySeconds int    `gorm:"not null"`
	MaxDelaySeconds int    `gorm:"not null"`
	Reactions       string `gorm:"size:255;not null"` // JSON 数组
	Comments        bool   `gorm:"not null;default:false"`
	Status          string `gorm:"size:20;not null;default:'pending';index"`
	StepIndex       int    `gorm:"not null;default:0"`
	// 编排器自身的成功/失败流水账；终态以 Post.SuccessCount 为准
	SuccessTally    int    `gorm:"not null;default:0"`
	FailureTally    int    `gorm:"not null;default:0"`
	ExcludeIDs      string `gorm:"type:text"` // JSON 数组，本轮已尝试或不可用的 user_id
	CancelRequested bool   `gorm:"not null;default:false"`
	Diagnostic      string `gorm:"size:512"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (EngagementRun) TableName() string {
	return "engagement_runs"
}

func RunTerminal(status string) bool {
	return status == RunCompleted || status == RunFailed || status == RunCanceled
}

// ReactionSet 解析允许的反应集合
func (r *EngagementRun) ReactionSet() []string {
	var out []string
	_ = json.Unmarshal([]byte(r.Reactions), &out)
	return out
}

func (r *EngagementRun) SetReactionSet(rs []string) {
	b, _ := json.Marshal(rs)
	r.Reactions = string(b)
}

// ExcludeSet 解析排除集
func (r *EngagementRun) ExcludeSet() map[uint64]struct{} {
	var ids []uint64
	_ = json.Unmarshal([]byte(r.ExcludeIDs), &ids)
	set := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Exclude 将 userID 并入排除集（选中即加入，外部调用未完成也不会再选到）
func (r *EngagementRun) Exclude(userID uint64) {
	var ids []uint64
	_ = json.Unmarshal([]byte(r.ExcludeIDs), &ids)
	for _, id := range ids {
		if id == userID {
			return
		}
	}
	ids = append(ids, userID)
	b, _ := json.Marshal(ids)
	r.ExcludeIDs = string(b)
}
