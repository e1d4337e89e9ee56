package mysql

import (
	"Pod_Pulse/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type TaskRepository struct {
	DB *gorm.DB
}

// Schedule 持久化"N 毫秒后执行"，重启不丢
func (r *TaskRepository) Schedule(ctx context.Context, kind string, runID, postID uint64, runAt time.Time) error {
	return r.DB.WithContext(ctx).Create(&model.ScheduledTask{
		Kind:   kind,
		RunID:  runID,
		PostID: postID,
		RunAt:  runAt,
		Status: model.TaskPending,
	}).Error
}

// DueList 到期任务。先取后标记，至少一次投递；重复执行由落账幂等兜底
func (r *TaskRepository) DueList(ctx context.Context, now time.Time, limit int) ([]model.ScheduledTask, error) {
	var list []model.ScheduledTask
	err := r.DB.WithContext(ctx).
		Where("status = ? AND run_at <= ?", model.TaskPending, now).
		Order("run_at ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *TaskRepository) MarkDone(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.ScheduledTask{}).
		Where("id = ?", id).
		Update("status", model.TaskDone).Error
}

func (r *TaskRepository) MarkFailed(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.ScheduledTask{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": model.TaskFailed, "attempts": gorm.Expr("attempts + 1")}).Error
}

// PendingForRun run 恢复排队前查重，避免重复补发步骤任务
func (r *TaskRepository) PendingForRun(ctx context.Context, runID uint64, kind string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.ScheduledTask{}).
		Where("run_id = ? AND kind = ? AND status = ?", runID, kind, model.TaskPending).
		Count(&count).Error
	return count > 0, err
}
