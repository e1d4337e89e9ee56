package service

import (
	"Pod_Pulse/internal/model"
	"Pod_Pulse/internal/pkg"
	"Pod_Pulse/internal/repository/mysql"
	"Pod_Pulse/internal/repository/redis"
	"context"
	"fmt"
	"log"
	"time"
)

// 完成后的指标刷新节奏与作者通知延迟
var ResyncOffsets = []time.Duration{
	15 * time.Minute,
	30 * time.Minute,
	time.Hour,
	4 * time.Hour,
	12 * time.Hour,
}

const NotifyDelay = 24 * time.Hour

type runFinalizer interface {
	Finalize(ctx context.Context, id uint64, status, diagnostic string) (bool, error)
}

type postFinalizer interface {
	FindByID(id uint64) (*model.Post, error)
	Finalize(postID uint64, status string, at time.Time) (bool, error)
	AggregateCount(ctx context.Context, postID uint64) (int64, error)
}

type taskScheduler interface {
	Schedule(ctx context.Context, kind string, runID, postID uint64, runAt time.Time) error
}

type runEventSink interface {
	InsertRunFinished(ctx context.Context, postID, userID uint64, status string, count int64) error
}

type countCache interface {
	SetCount(ctx context.Context, postID uint64, cnt int64) error
	ClearCancel(ctx context.Context, runID uint64)
}

type metricsFetcher interface {
	FetchMetrics(ctx context.Context, postURN string) (int64, error)
}

type userGetter interface {
	FindByID(id uint64) (*model.User, error)
}

// ReconcileService run 的终结与对账：终态只落一次，后续副作用
// （resync/notify/outbox 事件）只随第一次终态转换触发
type ReconcileService struct {
	runs    runFinalizer
	posts   postFinalizer
	tasks   taskScheduler
	outbox  runEventSink
	cache   countCache
	metrics metricsFetcher
	users   userGetter

	smtp     pkg.SMTPConfig
	sendMail func(cfg pkg.SMTPConfig, to, subject, htmlBody string) error
	now      func() time.Time
}

func NewReconcileService(metrics metricsFetcher, smtp pkg.SMTPConfig) *ReconcileService {
	return &ReconcileService{
		runs:     &mysql.RunRepository{DB: mysql.DB},
		posts:    &mysql.PostRepository{DB: mysql.DB},
		tasks:    &mysql.TaskRepository{DB: mysql.DB},
		outbox:   &mysql.OutboxRepository{DB: mysql.DB},
		cache:    &redis.RunCacheRepository{},
		metrics:  metrics,
		users:    &mysql.UserRepository{DB: mysql.DB},
		smtp:     smtp,
		sendMail: pkg.SendEmail,
		now:      time.Now,
	}
}

// Finalize 对账并写终态。最终计数以帖子聚合计数为准，编排器流水账
// 只用于偏差诊断。重复调用安全：终态转换只发生一次，副作用跟着第一次走
func (s *ReconcileService) Finalize(ctx context.Context, run *model.EngagementRun, status string) error {
	count, err := s.posts.AggregateCount(ctx, run.PostID)
	if err != nil {
		return err
	}

	diagnostic := run.Diagnostic
	if count != int64(run.SuccessTally) {
		diagnostic = fmt.Sprintf("tally drift: orchestrator=%d ledger=%d", run.SuccessTally, count)
		log.Printf("run %d %s", run.ID, diagnostic)
	}

	first, err := s.runs.Finalize(ctx, run.ID, status, diagnostic)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}

	if _, err := s.posts.Finalize(run.PostID, status, s.now()); err != nil {
		return err
	}

	// 以下都是第一次终结才发生的副作用；失败不回滚终态，只记日志
	if err := s.cache.SetCount(ctx, run.PostID, count); err != nil {
		log.Printf("run %d count cache err: %v", run.ID, err)
	}
	s.cache.ClearCancel(ctx, run.ID)

	if err := s.outbox.InsertRunFinished(ctx, run.PostID, 0, status, count); err != nil {
		log.Printf("run %d outbox err: %v", run.ID, err)
	}

	for _, off := range ResyncOffsets {
		if err := s.tasks.Schedule(ctx, model.TaskResync, run.ID, run.PostID, s.now().Add(off)); err != nil {
			log.Printf("run %d resync schedule err: %v", run.ID, err)
		}
	}
	if err := s.tasks.Schedule(ctx, model.TaskNotify, run.ID, run.PostID, s.now().Add(NotifyDelay)); err != nil {
		log.Printf("run %d notify schedule err: %v", run.ID, err)
	}

	log.Printf("run %d finalized status=%s count=%d", run.ID, status, count)
	return nil
}

// Resync 从平台侧拉一次帖子指标，和本地账对照。只读不改账：
// 本地计数由唯一约束保证，平台数还包含 pod 之外的自然互动
func (s *ReconcileService) Resync(ctx context.Context, postID uint64) error {
	post, err := s.posts.FindByID(postID)
	if err != nil {
		return err
	}
	remote, err := s.metrics.FetchMetrics(ctx, post.PlatformURN)
	if err != nil {
		return err
	}
	log.Printf("post %d resync: local=%d remote=%d", postID, post.SuccessCount, remote)
	return nil
}

// Notify 给帖子作者发完成邮件，完成 24 小时后执行
func (s *ReconcileService) Notify(ctx context.Context, postID uint64) error {
	post, err := s.posts.FindByID(postID)
	if err != nil {
		return err
	}
	author, err := s.users.FindByID(post.AuthorID)
	if err != nil {
		return err
	}
	body := pkg.RunFinishedHTML(post.URL, post.Status, post.SuccessCount)
	return s.sendMail(s.smtp, author.Email, "互动任务已完成", body)
}
