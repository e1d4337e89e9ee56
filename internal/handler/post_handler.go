package handler

import (
	"net/http"
	"strconv"

	"Pod_Pulse/internal/middleware"
	"Pod_Pulse/internal/service"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	svc *service.PostService
}

func NewPostHandler() *PostHandler {
	return &PostHandler{
		svc: service.NewPostService(),
	}
}

// Submit 提交互动任务。参数不合法直接拒绝，不留任何持久化痕迹
func (h *PostHandler) Submit(c *gin.Context) {
	uid, _ := c.Get(middleware.ContextUserIDKey)
	var req service.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 1, "msg": "invalid params"})
		return
	}
	post, err := h.svc.SubmitRun(c.Request.Context(), uid.(uint64), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 1, "msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "post_id": post.ID, "run_id": post.RunID, "status": post.Status})
}

// Status 任务进度查询
func (h *PostHandler) Status(c *gin.Context) {
	pid, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	view, err := h.svc.Status(c.Request.Context(), pid)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": 1, "msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": view})
}

// Cancel 取消互动任务，只有作者可以
func (h *PostHandler) Cancel(c *gin.Context) {
	uid, _ := c.Get(middleware.ContextUserIDKey)
	pid, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	if err := h.svc.Cancel(c.Request.Context(), pid, uid.(uint64)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 1, "msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "cancel requested"})
}

// ListByPod 组内帖子列表
func (h *PostHandler) ListByPod(c *gin.Context) {
	pid, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	posts, err := h.svc.ListByPod(pid, offset, limit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 1, "msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "posts": posts})
}
