package service

import (
	"Pod_Pulse/internal/model"
	"Pod_Pulse/internal/repository/mysql"
	"errors"
)

var (
	ErrUnknownWebhookEvent = errors.New("unknown webhook event")
	ErrInvalidSettings     = errors.New("invalid account settings")
)

// WebhookEvent 平台侧账号状态回调
type WebhookEvent struct {
	UserID      uint64 `json:"user_id" binding:"required"`
	Event       string `json:"event" binding:"required"` // connected / needs_reconnect / disconnected
	PlatformURN string `json:"platform_urn"`
}

// SettingsRequest 账号参数；指针字段区分"没传"与"传零值"
type SettingsRequest struct {
	DailyCap      *int    `json:"daily_cap"`
	CommentPrompt *string `json:"comment_prompt"`
	WorkStartHour *int    `json:"work_start_hour"`
	WorkEndHour   *int    `json:"work_end_hour"`
	Timezone      *string `json:"timezone"`
}

type AccountService struct {
	repo *mysql.AccountRepository
}

func NewAccountService() *AccountService {
	return &AccountService{repo: &mysql.AccountRepository{DB: mysql.DB}}
}

func (s *AccountService) Get(userID uint64) (*model.Account, error) {
	return s.repo.FindByUserID(userID)
}

// HandleWebhook connected 建档/刷新；断开类事件只软失效，账号行保留
func (s *AccountService) HandleWebhook(ev *WebhookEvent) error {
	switch ev.Event {
	case "connected":
		return s.repo.Upsert(&model.Account{
			UserID:      ev.UserID,
			PlatformURN: ev.PlatformURN,
			Health:      model.AccountHealthy,
			DailyCap:    model.DefaultDailyCap,
		})
	case "needs_reconnect":
		return s.repo.UpdateHealth(ev.UserID, model.AccountNeedsReconnect)
	case "disconnected":
		return s.repo.UpdateHealth(ev.UserID, model.AccountDisconnected)
	}
	return ErrUnknownWebhookEvent
}

// UpdateSettings 只更新传了的字段
func (s *AccountService) UpdateSettings(userID uint64, req *SettingsRequest) error {
	fields := map[string]any{}
	if req.DailyCap != nil {
		if *req.DailyCap < 1 || *req.DailyCap > 200 {
			return ErrInvalidSettings
		}
		fields["daily_cap"] = *req.DailyCap
	}
	if req.CommentPrompt != nil {
		fields["comment_prompt"] = *req.CommentPrompt
	}
	if req.WorkStartHour != nil {
		if *req.WorkStartHour < 0 || *req.WorkStartHour > 23 {
			return ErrInvalidSettings
		}
		fields["work_start_hour"] = *req.WorkStartHour
	}
	if req.WorkEndHour != nil {
		if *req.WorkEndHour < 0 || *req.WorkEndHour > 23 {
			return ErrInvalidSettings
		}
		fields["work_end_hour"] = *req.WorkEndHour
	}
	if req.Timezone != nil {
		fields["timezone"] = *req.Timezone
	}
	if len(fields) == 0 {
		return nil
	}
	return s.repo.UpdateSettings(userID, fields)
}
