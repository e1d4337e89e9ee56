package mysql

import (
	"Pod_Pulse/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type PostRepository struct {
	DB *gorm.DB
}

func (r *PostRepository) Create(post *model.Post) error {
	return r.DB.Create(post).Error
}

func (r *PostRepository) FindByID(id uint64) (*model.Post, error) {
	var post model.Post
	err := r.DB.First(&post, id).Error
	return &post, err
}

func (r *PostRepository) SetRunID(postID, runID uint64) error {
	return r.DB.Model(&model.Post{}).
		Where("id = ?", postID).
		Update("run_id", runID).Error
}

// MarkProcessing pending -> processing，状态只向前走
func (r *PostRepository) MarkProcessing(postID uint64) error {
	return r.DB.Model(&model.Post{}).
		Where("id = ? AND status = ?", postID, model.PostPending).
		Update("status", model.PostProcessing).Error
}

// Finalize 写终态与完成时间；已到终态不再覆盖，保证终结幂等。
// 计数不在这里写：success_count/failure_count 只由落账事务维护
func (r *PostRepository) Finalize(postID uint64, status string, at time.Time) (bool, error) {
	res := r.DB.Model(&model.Post{}).
		Where("id = ? AND status IN ?", postID, []string{model.PostPending, model.PostProcessing}).
		Updates(map[string]any{"status": status, "completed_at": at})
	return res.RowsAffected > 0, res.Error
}

// AggregateCount 聚合计数读取，终态对账的事实来源
func (r *PostRepository) AggregateCount(ctx context.Context, postID uint64) (int64, error) {
	var p model.Post
	err := r.DB.WithContext(ctx).Select("id", "success_count").First(&p, postID).Error
	if err != nil {
		return 0, err
	}
	return p.SuccessCount, nil
}

// ListByPod 面板展示用
func (r *PostRepository) ListByPod(podID uint64, offset, limit int) ([]model.Post, error) {
	var list []model.Post
	err := r.DB.
		Where("pod_id = ?", podID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	return list, err
}
