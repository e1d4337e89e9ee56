package model

import "time"

// 账号健康状态：只由 webhook 与设置接口修改，编排器侧只读
const (
	AccountHealthy        = "healthy"
	AccountNeedsReconnect = "needs_reconnect"
	AccountDisconnected   = "disconnected"
)

const DefaultDailyCap = 25

// Account 用户与外部平台的连接。断开只做软失效，历史存在期间不硬删
type Account struct {
	ID            uint64 `gorm:"primaryKey"`
	UserID        uint64 `gorm:"not null;uniqueIndex"`
	PlatformURN   string `gorm:"size:128;not null"`
	Health        string `gorm:"size:20;not null;default:'healthy'"`
	DailyCap      int    `gorm:"not null;default:25"`
	CommentPrompt string `gorm:"type:text"`
	// 可选工作时间窗：0-23 小时，两值相等表示不限制
	WorkStartHour int    `gorm:"not null;default:0"`
	WorkEndHour   int    `gorm:"not null;default:0"`
	Timezone      string `gorm:"size:40"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Usable 账号是否可被选为执行者
func (a *Account) Usable() bool {
	return a.Health == AccountHealthy
}

// InWorkingHours 按账号时区判断 t 是否在工作时间窗内；未配置窗口恒为 true
func (a *Account) InWorkingHours(t time.Time) bool {
	if a.WorkStartHour == a.WorkEndHour {
		return true
	}
	loc := time.UTC
	if a.Timezone != "" {
		if l, err := time.LoadLocation(a.Timezone); err == nil {
			loc = l
		}
	}
	h := t.In(loc).Hour()
	if a.WorkStartHour < a.WorkEndHour {
		return h >= a.WorkStartHour && h < a.WorkEndHour
	}
	// 跨午夜窗口
	return h >= a.WorkStartHour || h < a.WorkEndHour
}
