package model

import "time"

type Pod struct {
	ID         uint64 `gorm:"primaryKey"`
	Name       string `gorm:"size:64;not null"`
	InviteCode string `gorm:"uniqueIndex;size:16;not null"`
	CreatorID  uint64 `gorm:"not null;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type PodMember struct {
	ID        uint64 `gorm:"primaryKey"`
	PodID     uint64 `gorm:"not null;index;uniqueIndex:uk_pod_user"`
	UserID    uint64 `gorm:"not null;index;uniqueIndex:uk_pod_user"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
