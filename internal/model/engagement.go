package model

import "time"

// 允许的互动类型
const (
	ReactionLike      = "like"
	ReactionCelebrate = "celebrate"
	ReactionSupport   = "support"
	ReactionLove      = "love"
	ReactionInsight   = "insightful"
	ReactionComment   = "comment"
)

// Engagement (post_id, user_id) 全局唯一，只插入不更新不删除。
// 这条唯一约束是整个系统防重复执行、防重复计数的根基
type Engagement struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	PostID    uint64 `gorm:"not null;index;uniqueIndex:uk_post_user"`
	UserID    uint64 `gorm:"not null;index;uniqueIndex:uk_post_user"`
	Reaction  string `gorm:"size:20;not null"`
	Error     string `gorm:"size:512"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (Engagement) TableName() string {
	return "engagements"
}

// ValidReaction 是否是已知的反应类型（comment 不作为提交时的反应集合成员）
func ValidReaction(r string) bool {
	switch r {
	case ReactionLike, ReactionCelebrate, ReactionSupport, ReactionLove, ReactionInsight:
		return true
	}
	return false
}
