package handler

import (
	"net/http"
	"strconv"

	"Pod_Pulse/internal/middleware"
	"Pod_Pulse/internal/service"

	"github.com/gin-gonic/gin"
)

type PodHandler struct {
	svc *service.PodService
}

func NewPodHandler() *PodHandler {
	return &PodHandler{
		svc: service.NewPodService(),
	}
}

// Create 建组，返回邀请码
func (h *PodHandler) Create(c *gin.Context) {
	uid, _ := c.Get(middleware.ContextUserIDKey)
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 1, "msg": "invalid params"})
		return
	}
	pod, err := h.svc.CreatePod(uid.(uint64), req.Name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 1, "msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "pod_id": pod.ID, "invite_code": pod.InviteCode})
}

// Join 邀请码入组
func (h *PodHandler) Join(c *gin.Context) {
	uid, _ := c.Get(middleware.ContextUserIDKey)
	var req struct {
		InviteCode string `json:"invite_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 1, "msg": "invalid params"})
		return
	}
	pod, err := h.svc.JoinByCode(uid.(uint64), req.InviteCode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 1, "msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "pod_id": pod.ID, "name": pod.Name})
}

func (h *PodHandler) Leave(c *gin.Context) {
	uid, _ := c.Get(middleware.ContextUserIDKey)
	pid, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	if err := h.svc.Leave(pid, uid.(uint64)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 1, "msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "ok"})
}

// Members 成员名单，仅组内可见
func (h *PodHandler) Members(c *gin.Context) {
	uid, _ := c.Get(middleware.ContextUserIDKey)
	pid, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	ok, err := h.svc.IsMember(pid, uid.(uint64))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 1, "msg": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"code": 1, "msg": "not a pod member"})
		return
	}
	users, err := h.svc.Members(pid)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 1, "msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "members": users})
}

func (h *PodHandler) List(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	pods, err := h.svc.List(offset, limit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 1, "msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "pods": pods})
}
