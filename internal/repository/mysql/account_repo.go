package mysql

import (
	"Pod_Pulse/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountRepository struct {
	DB *gorm.DB
}

func (r *AccountRepository) FindByUserID(userID uint64) (*model.Account, error) {
	var acc model.Account
	err := r.DB.Where("user_id = ?", userID).First(&acc).Error
	return &acc, err
}

// Upsert 首次连接时建档，重复连接只刷新 URN 与健康状态
func (r *AccountRepository) Upsert(acc *model.Account) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"platform_urn", "health"}),
	}).Create(acc).Error
}

// UpdateHealth webhook 驱动：断开只做软失效，不删除历史
func (r *AccountRepository) UpdateHealth(userID uint64, health string) error {
	return r.DB.Model(&model.Account{}).
		Where("user_id = ?", userID).
		Update("health", health).Error
}

// UpdateSettings 设置接口驱动
func (r *AccountRepository) UpdateSettings(userID uint64, fields map[string]any) error {
	return r.DB.Model(&model.Account{}).
		Where("user_id = ?", userID).
		Updates(fields).Error
}
