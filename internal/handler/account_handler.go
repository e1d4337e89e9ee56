package handler

import (
	"errors"
	"net/http"

	"Pod_Pulse/internal/middleware"
	"Pod_Pulse/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AccountHandler struct {
	svc *service.AccountService
}

func NewAccountHandler() *AccountHandler {
	return &AccountHandler{
		svc: service.NewAccountService(),
	}
}

// Get 查看自己的账号连接与参数
func (h *AccountHandler) Get(c *gin.Context) {
	uid, _ := c.Get(middleware.ContextUserIDKey)
	acc, err := h.svc.Get(uid.(uint64))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": 1, "msg": "account not connected"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"code": 1, "msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "account": acc})
}

// UpdateSettings 更新日上限、评论提示词、工作时间窗等
func (h *AccountHandler) UpdateSettings(c *gin.Context) {
	uid, _ := c.Get(middleware.ContextUserIDKey)
	var req service.SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 1, "msg": "invalid params"})
		return
	}
	if err := h.svc.UpdateSettings(uid.(uint64), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 1, "msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "ok"})
}

// Webhook 平台侧账号状态回调，无登录态
func (h *AccountHandler) Webhook(c *gin.Context) {
	var ev service.WebhookEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 1, "msg": "invalid params"})
		return
	}
	if err := h.svc.HandleWebhook(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 1, "msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "ok"})
}
