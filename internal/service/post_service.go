package service

import (
	"Pod_Pulse/internal/model"
	"Pod_Pulse/internal/repository/mysql"
	"Pod_Pulse/internal/repository/redis"
	"context"
	"errors"
	"math/rand"
	"time"
)

var (
	ErrInvalidTarget    = errors.New("target count must be between 1 and 100")
	ErrInvalidDelay     = errors.New("delay range invalid")
	ErrInvalidReactions = errors.New("reaction set empty or unknown")
	ErrNotPodMember     = errors.New("author is not a member of this pod")
	ErrAccountNotUsable = errors.New("author account missing or unhealthy")
	ErrNotAuthor        = errors.New("only the author can cancel")
	ErrRunFinished      = errors.New("run already finished")
)

const (
	MaxTargetCount  = 100
	MaxDelaySeconds = 3600
)

// SubmitRequest 提交一次互动任务
type SubmitRequest struct {
	PodID           uint64   `json:"pod_id" binding:"required"`
	PlatformURN     string   `json:"post_urn" binding:"required"`
	URL             string   `json:"url"`
	TargetCount     int      `json:"target_count" binding:"required"`
	MinDelaySeconds int      `json:"min_delay_seconds"`
	MaxDelaySeconds int      `json:"max_delay_seconds" binding:"required"`
	Reactions       []string `json:"reaction_types" binding:"required"`
	Comments        bool     `json:"comments"`
}

// Validate 纯参数校验，不碰库。校验失败的请求不产生任何持久化痕迹
func (req *SubmitRequest) Validate() error {
	if req.TargetCount < 1 || req.TargetCount > MaxTargetCount {
		return ErrInvalidTarget
	}
	if req.MinDelaySeconds <= 0 || req.MinDelaySeconds > req.MaxDelaySeconds || req.MaxDelaySeconds > MaxDelaySeconds {
		return ErrInvalidDelay
	}
	if len(req.Reactions) == 0 {
		return ErrInvalidReactions
	}
	for _, r := range req.Reactions {
		if !model.ValidReaction(r) {
			return ErrInvalidReactions
		}
	}
	return nil
}

// StatusView 状态查询响应
type StatusView struct {
	PostID       uint64     `json:"post_id"`
	RunID        uint64     `json:"run_id"`
	Status       string     `json:"status"`
	SuccessCount int64      `json:"success_count"`
	FailureCount int64      `json:"failure_count"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

type PostService struct {
	posts   *mysql.PostRepository
	runs    *mysql.RunRepository
	tasks   *mysql.TaskRepository
	members *mysql.PodMemberRepository
	acc     *mysql.AccountRepository
	cache   *redis.RunCacheRepository
}

func NewPostService() *PostService {
	return &PostService{
		posts:   &mysql.PostRepository{DB: mysql.DB},
		runs:    &mysql.RunRepository{DB: mysql.DB},
		tasks:   &mysql.TaskRepository{DB: mysql.DB},
		members: &mysql.PodMemberRepository{DB: mysql.DB},
		acc:     &mysql.AccountRepository{DB: mysql.DB},
		cache:   &redis.RunCacheRepository{},
	}
}

// SubmitRun 建帖、建 run、排首步任务。首步立即到期，延迟只作用于步与步之间
func (s *PostService) SubmitRun(ctx context.Context, authorID uint64, req *SubmitRequest) (*model.Post, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ok, err := s.members.IsMember(req.PodID, authorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotPodMember
	}
	acc, err := s.acc.FindByUserID(authorID)
	if err != nil || !acc.Usable() {
		return nil, ErrAccountNotUsable
	}

	post := &model.Post{
		AuthorID:    authorID,
		PodID:       req.PodID,
		PlatformURN: req.PlatformURN,
		URL:         req.URL,
		Status:      model.PostPending,
	}
	if err := s.posts.Create(post); err != nil {
		return nil, err
	}

	run := &model.EngagementRun{
		PostID:          post.ID,
		PodID:           req.PodID,
		TargetCount:     req.TargetCount,
		MinDelaySeconds: req.MinDelaySeconds,
		MaxDelaySeconds: req.MaxDelaySeconds,
		Comments:        req.Comments,
		Status:          model.RunPending,
		ExcludeIDs:      "[]",
	}
	run.SetReactionSet(req.Reactions)
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, err
	}
	if err := s.posts.SetRunID(post.ID, run.ID); err != nil {
		return nil, err
	}
	post.RunID = run.ID

	// 首步与后续步骤一样带随机延迟，提交后不会立刻出现一波互动
	first := time.Now().Add(firstStepDelay(req.MinDelaySeconds, req.MaxDelaySeconds))
	if err := s.tasks.Schedule(ctx, model.TaskRunStep, run.ID, post.ID, first); err != nil {
		return nil, err
	}
	return post, nil
}

func firstStepDelay(minSec, maxSec int) time.Duration {
	d := time.Duration(minSec) * time.Second
	if maxSec > minSec {
		d += time.Duration(rand.Int63n(int64(maxSec-minSec)+1)) * time.Second
	}
	return d
}

// Status 计数先走缓存，未命中回源读聚合计数
func (s *PostService) Status(ctx context.Context, postID uint64) (*StatusView, error) {
	post, err := s.posts.FindByID(postID)
	if err != nil {
		return nil, err
	}
	view := &StatusView{
		PostID:       post.ID,
		RunID:        post.RunID,
		Status:       post.Status,
		SuccessCount: post.SuccessCount,
		FailureCount: post.FailureCount,
		CompletedAt:  post.CompletedAt,
	}
	if cnt, hit, err := s.cache.GetCountCached(ctx, postID); err == nil && hit {
		view.SuccessCount = cnt
	}
	return view, nil
}

// Cancel 只有作者能取消；取消标记同时落 redis 与 mysql，
// 步与步之间生效，正在进行的单步不被打断
func (s *PostService) Cancel(ctx context.Context, postID, userID uint64) error {
	post, err := s.posts.FindByID(postID)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return ErrNotAuthor
	}
	if model.PostTerminal(post.Status) {
		return ErrRunFinished
	}
	if err := s.runs.RequestCancel(ctx, post.RunID); err != nil {
		return err
	}
	return s.cache.RequestCancel(ctx, post.RunID)
}

// ListByPod 面板列表
func (s *PostService) ListByPod(podID uint64, offset, limit int) ([]model.Post, error) {
	return s.posts.ListByPod(podID, offset, limit)
}
