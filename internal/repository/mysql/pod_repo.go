package mysql

import (
	"Pod_Pulse/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PodRepository struct {
	DB *gorm.DB
}

type PodMemberRepository struct {
	DB *gorm.DB
}

// Create 建 pod 并幂等地让创建者入组
func (r *PodRepository) Create(p *model.Pod) (*model.Pod, error) {
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		mRepo := &PodMemberRepository{DB: tx}
		return mRepo.Join(&model.PodMember{
			PodID:  p.ID,
			UserID: p.CreatorID,
		})
	})
	return p, err
}

func (r *PodRepository) FindByID(id uint64) (*model.Pod, error) {
	var pod model.Pod
	err := r.DB.First(&pod, id).Error
	return &pod, err
}

// FindByInviteCode 邀请码加入的入口，invite_code 唯一
func (r *PodRepository) FindByInviteCode(code string) (*model.Pod, error) {
	var pod model.Pod
	err := r.DB.Where("invite_code = ?", code).First(&pod).Error
	return &pod, err
}

func (r *PodRepository) List(offset, limit int) ([]model.Pod, error) {
	var list []model.Pod
	err := r.DB.Order("id desc").Offset(offset).Limit(limit).Find(&list).Error
	return list, err
}

// Join 幂等插入：若已存在 (pod_id, user_id) 则不报错
func (r *PodMemberRepository) Join(member *model.PodMember) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pod_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(member).Error
}

func (r *PodMemberRepository) Leave(podID, userID uint64) error {
	return r.DB.Where("pod_id = ? AND user_id = ?", podID, userID).
		Delete(&model.PodMember{}).Error
}

func (r *PodMemberRepository) IsMember(podID, userID uint64) (bool, error) {
	var count int64
	err := r.DB.Model(&model.PodMember{}).
		Where("pod_id = ? AND user_id = ?", podID, userID).
		Count(&count).Error
	return count > 0, err
}

// ListUserIDs 成员候选池，只读
func (r *PodMemberRepository) ListUserIDs(podID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.DB.Model(&model.PodMember{}).
		Where("pod_id = ?", podID).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}
