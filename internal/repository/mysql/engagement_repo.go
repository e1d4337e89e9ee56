package mysql

import (
	"Pod_Pulse/internal/model"
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EngagementRepository struct {
	DB *gorm.DB
}

type OutboxRepository struct {
	DB *gorm.DB
}

// Record 幂等落账：同一事务内插入互动并自增帖子聚合计数。
// (post_id, user_id) 已存在时不产生第二行，返回 created=false。
// 唯一索引兜底并发竞争：两个并发插入最多一个 RowsAffected=1
func (r *EngagementRepository) Record(ctx context.Context, postID, userID uint64, reaction string) (bool, error) {
	var created bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).Create(&model.Engagement{PostID: postID, UserID: userID, Reaction: reaction})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// 已存在，幂等
			return nil
		}
		created = true
		// 聚合计数与插入同事务，读者看不到中间态
		if err := tx.Model(&model.Post{}).
			Where("id = ?", postID).
			UpdateColumn("success_count", gorm.Expr("success_count + 1")).Error; err != nil {
			return err
		}
		return r.insertOutbox(tx, "engagement_recorded", postID, userID, reaction)
	})
	return created, err
}

// RecordFailure 记录带错误的互动行并自增失败计数。同样幂等，防重启后重选同一执行者
func (r *EngagementRepository) RecordFailure(ctx context.Context, postID, userID uint64, reaction, errText string) (bool, error) {
	var created bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).Create(&model.Engagement{PostID: postID, UserID: userID, Reaction: reaction, Error: errText})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		return tx.Model(&model.Post{}).
			Where("id = ?", postID).
			UpdateColumn("failure_count", gorm.Expr("failure_count + 1")).Error
	})
	return created, err
}

// Exists 选择器侧的防御性检查，独立于落账自身的唯一约束
func (r *EngagementRepository) Exists(ctx context.Context, postID, userID uint64) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).
		Model(&model.Engagement{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error
	return count > 0, err
}

// DailyCount 当日（UTC 日历日）成功互动数，日上限判定用
func (r *EngagementRepository) DailyCount(ctx context.Context, userID uint64, now time.Time) (int64, error) {
	dayStart := now.UTC().Truncate(24 * time.Hour)
	var count int64
	err := r.DB.WithContext(ctx).
		Model(&model.Engagement{}).
		Where("user_id = ? AND error = '' AND created_at >= ?", userID, dayStart).
		Count(&count).Error
	return count, err
}

func (r *EngagementRepository) insertOutbox(tx *gorm.DB, event string, postID, userID uint64, reaction string) error {
	payload, _ := json.Marshal(map[string]any{
		"event_time": time.Now().UTC().Format(time.RFC3339Nano),
		"post_id":    postID,
		"user_id":    userID,
		"reaction":   reaction,
	})
	return tx.Create(&model.EngagementOutbox{
		EventType: event,
		PostID:    postID,
		UserID:    userID,
		Payload:   string(payload),
		Status:    0,
	}).Error
}

// InsertRunFinished 终态事件，reconciler 写入
func (r *OutboxRepository) InsertRunFinished(ctx context.Context, postID, userID uint64, status string, count int64) error {
	payload, _ := json.Marshal(map[string]any{
		"event_time": time.Now().UTC().Format(time.RFC3339Nano),
		"post_id":    postID,
		"status":     status,
		"count":      count,
	})
	return r.DB.WithContext(ctx).Create(&model.EngagementOutbox{
		EventType: "run_finished",
		PostID:    postID,
		UserID:    userID,
		Payload:   string(payload),
		Status:    0,
	}).Error
}

// List outbox 查询
func (r *OutboxRepository) List(ctx context.Context, batchSize int) ([]model.EngagementOutbox, error) {
	var list []model.EngagementOutbox
	if err := r.DB.WithContext(ctx).
		Where("status = 0").
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// RetryUpdate 投递失败记录重试
func (r *OutboxRepository) RetryUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.EngagementOutbox{}).Where("id = ?", id).
		Updates(map[string]any{"status": 2, "retry": gorm.Expr("retry + 1")}).Error
}

// SuccessUpdate 投递成功更新
func (r *OutboxRepository) SuccessUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.EngagementOutbox{}).Where("id = ?", id).
		Update("status", 1).Error
}
