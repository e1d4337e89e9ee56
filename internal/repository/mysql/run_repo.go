package mysql

import (
	"Pod_Pulse/internal/model"
	"context"

	"gorm.io/gorm"
)

type RunRepository struct {
	DB *gorm.DB
}

func (r *RunRepository) Create(ctx context.Context, run *model.EngagementRun) error {
	return r.DB.WithContext(ctx).Create(run).Error
}

func (r *RunRepository) FindByID(ctx context.Context, id uint64) (*model.EngagementRun, error) {
	var run model.EngagementRun
	err := r.DB.WithContext(ctx).First(&run, id).Error
	return &run, err
}

// MarkProcessing pending -> processing，只在首步之前发生一次
func (r *RunRepository) MarkProcessing(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.EngagementRun{}).
		Where("id = ? AND status = ?", id, model.RunPending).
		Update("status", model.RunProcessing).Error
}

// Checkpoint 每步执行后回写游标与计数，重启后从这里恢复
func (r *RunRepository) Checkpoint(ctx context.Context, run *model.EngagementRun) error {
	return r.DB.WithContext(ctx).Model(&model.EngagementRun{}).
		Where("id = ?", run.ID).
		Updates(map[string]any{
			"step_index":    run.StepIndex,
			"success_tally": run.SuccessTally,
			"failure_tally": run.FailureTally,
			"exclude_ids":   run.ExcludeIDs,
		}).Error
}

// Finalize 写终态；已是终态则不再改（RowsAffected=0），保证只终结一次
func (r *RunRepository) Finalize(ctx context.Context, id uint64, status, diagnostic string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.EngagementRun{}).
		Where("id = ? AND status IN ?", id, []string{model.RunPending, model.RunProcessing}).
		Updates(map[string]any{"status": status, "diagnostic": diagnostic})
	return res.RowsAffected > 0, res.Error
}

// RequestCancel 外部取消信号的持久化镜像
func (r *RunRepository) RequestCancel(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.EngagementRun{}).
		Where("id = ? AND status IN ?", id, []string{model.RunPending, model.RunProcessing}).
		Update("cancel_requested", true).Error
}

// ListUnfinished 启动时找出中断的 run，重新排队（恢复即重新锚定延迟）
func (r *RunRepository) ListUnfinished(ctx context.Context) ([]model.EngagementRun, error) {
	var list []model.EngagementRun
	err := r.DB.WithContext(ctx).
		Where("status IN ?", []string{model.RunPending, model.RunProcessing}).
		Find(&list).Error
	return list, err
}
