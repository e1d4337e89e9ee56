package service

import (
	"Pod_Pulse/internal/model"
	"Pod_Pulse/internal/platform"
	"Pod_Pulse/internal/repository/mysql"
	"Pod_Pulse/internal/repository/redis"
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"
)

const (
	MaxConcurrentSteps = 12 // 全局准入上限，对上游限速的背压
	MaxRetryAttempts   = 3
	MinBackoff         = 250 * time.Millisecond
	StepJitterMax      = 2500 * time.Millisecond
)

type runStore interface {
	FindByID(ctx context.Context, id uint64) (*model.EngagementRun, error)
	MarkProcessing(ctx context.Context, id uint64) error
	Checkpoint(ctx context.Context, run *model.EngagementRun) error
	ListUnfinished(ctx context.Context) ([]model.EngagementRun, error)
}

type taskStore interface {
	Schedule(ctx context.Context, kind string, runID, postID uint64, runAt time.Time) error
	DueList(ctx context.Context, now time.Time, limit int) ([]model.ScheduledTask, error)
	MarkDone(ctx context.Context, id uint64) error
	MarkFailed(ctx context.Context, id uint64) error
	PendingForRun(ctx context.Context, runID uint64, kind string) (bool, error)
}

type postStore interface {
	FindByID(id uint64) (*model.Post, error)
	MarkProcessing(postID uint64) error
}

type stepSelector interface {
	SelectActor(ctx context.Context, podID, postID, authorID uint64, exclude map[uint64]struct{}) (*model.Account, error)
}

type actionClient interface {
	PerformReaction(ctx context.Context, actorURN, postURN, reaction string) error
	PerformComment(ctx context.Context, actorURN, postURN, text string) error
}

type ledger interface {
	Record(ctx context.Context, postID, userID uint64, reaction string) (bool, error)
	RecordFailure(ctx context.Context, postID, userID uint64, reaction, errText string) (bool, error)
}

type canceler interface {
	IsCancelRequested(ctx context.Context, runID uint64) (bool, error)
}

type followups interface {
	Finalize(ctx context.Context, run *model.EngagementRun, status string) error
	Resync(ctx context.Context, postID uint64) error
	Notify(ctx context.Context, postID uint64) error
}

// Orchestrator 持久化步进器：到期任务驱动，一步一个外部动作。
// 每步把下一步锚定在"当前时间 + 随机延迟"上——故意不用提交时刻的固定时间表，
// 这样后面的步骤能看到最新的候选池状态，恢复中断的 run 时也只需从恢复时刻重新锚定
type Orchestrator struct {
	runs     runStore
	tasks    taskStore
	posts    postStore
	selector stepSelector
	client   actionClient
	ledger   ledger
	cancels  canceler
	rec      followups
	lock     *redis.StepLock

	interval    time.Duration
	sem         chan struct{}
	backoffBase time.Duration
	sleep       func(time.Duration)
}

func NewOrchestrator(sel stepSelector, client actionClient, led ledger, rec followups) *Orchestrator {
	return &Orchestrator{
		runs:        &mysql.RunRepository{DB: mysql.DB},
		tasks:       &mysql.TaskRepository{DB: mysql.DB},
		posts:       &mysql.PostRepository{DB: mysql.DB},
		selector:    sel,
		client:      client,
		ledger:      led,
		cancels:     &redis.RunCacheRepository{},
		rec:         rec,
		lock:        &redis.StepLock{RDB: redis.Client},
		interval:    time.Second,
		sem:         make(chan struct{}, MaxConcurrentSteps),
		backoffBase: MinBackoff,
		sleep:       time.Sleep,
	}
}

// Run 调度循环：领取到期任务，run_step 自己执行，resync/notify 转给 reconciler
func (o *Orchestrator) Run(ctx context.Context) {
	t := time.NewTicker(o.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			o.dispatchOnce(ctx)
		}
	}
}

func (o *Orchestrator) dispatchOnce(ctx context.Context) {
	due, err := o.tasks.DueList(ctx, time.Now(), 50)
	if err != nil {
		log.Printf("task query err: %v", err)
		return
	}
	for i := range due {
		task := due[i]
		switch task.Kind {
		case model.TaskRunStep:
			select {
			case o.sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			go func() {
				defer func() { <-o.sem }()
				o.ExecuteStep(ctx, &task)
			}()
		case model.TaskResync:
			if err := o.rec.Resync(ctx, task.PostID); err != nil {
				_ = o.tasks.MarkFailed(ctx, task.ID)
				continue
			}
			_ = o.tasks.MarkDone(ctx, task.ID)
		case model.TaskNotify:
			if err := o.rec.Notify(ctx, task.PostID); err != nil {
				_ = o.tasks.MarkFailed(ctx, task.ID)
				continue
			}
			_ = o.tasks.MarkDone(ctx, task.ID)
		default:
			_ = o.tasks.MarkFailed(ctx, task.ID)
		}
	}
}

// ResumeInterrupted 启动时把中断的 run 重新排队；有待执行任务的不重复补发
func (o *Orchestrator) ResumeInterrupted(ctx context.Context) error {
	runs, err := o.runs.ListUnfinished(ctx)
	if err != nil {
		return err
	}
	for i := range runs {
		pending, err := o.tasks.PendingForRun(ctx, runs[i].ID, model.TaskRunStep)
		if err != nil {
			return err
		}
		if pending {
			continue
		}
		if err := o.tasks.Schedule(ctx, model.TaskRunStep, runs[i].ID, runs[i].PostID, time.Now()); err != nil {
			return err
		}
		log.Printf("resumed run %d at step %d", runs[i].ID, runs[i].StepIndex)
	}
	return nil
}

// ExecuteStep 一次编排步骤：取消检查 -> 选执行者 -> 外部动作（带退避重试）->
// 落账 -> 回写游标 -> 安排下一步。单个动作失败不终止 run，只有候选池耗尽、
// 取消或基础设施故障才提前收尾
func (o *Orchestrator) ExecuteStep(ctx context.Context, task *model.ScheduledTask) {
	if o.lock != nil {
		token := stepToken(task)
		got, _ := o.lock.Acquire(ctx, task.RunID, token)
		if !got {
			// 另一实例正在执行这个 run 的步骤，任务留待下轮
			return
		}
		defer func() { _ = o.lock.Release(ctx, task.RunID, token) }()
	}

	run, err := o.runs.FindByID(ctx, task.RunID)
	if err != nil {
		log.Printf("run %d load err: %v", task.RunID, err)
		_ = o.tasks.MarkFailed(ctx, task.ID)
		return
	}
	if model.RunTerminal(run.Status) {
		_ = o.tasks.MarkDone(ctx, task.ID)
		return
	}
	if run.Status == model.RunPending {
		if err := o.runs.MarkProcessing(ctx, run.ID); err != nil {
			o.fatal(ctx, run, task, err)
			return
		}
		_ = o.posts.MarkProcessing(run.PostID)
		run.Status = model.RunProcessing
	}

	// 取消信号在步与步之间生效；被取消的 run 仍然走 reconciler
	if canceled, _ := o.cancels.IsCancelRequested(ctx, run.ID); canceled || run.CancelRequested {
		o.finish(ctx, run, task, model.RunCanceled)
		return
	}

	post, err := o.posts.FindByID(run.PostID)
	if err != nil {
		o.fatal(ctx, run, task, err)
		return
	}

	actor, err := o.selector.SelectActor(ctx, run.PodID, run.PostID, post.AuthorID, run.ExcludeSet())
	if err != nil {
		o.fatal(ctx, run, task, err)
		return
	}
	if actor == nil {
		// 池子耗尽：正常提前收尾，带着已有计数进入终结
		o.finish(ctx, run, task, model.RunCompleted)
		return
	}

	// 选中即排除并立刻持久化：慢调用或重试期间绝不会再选到同一执行者
	run.Exclude(actor.UserID)
	if err := o.runs.Checkpoint(ctx, run); err != nil {
		o.fatal(ctx, run, task, err)
		return
	}

	reactions := run.ReactionSet()
	reaction := reactions[rand.Intn(len(reactions))]

	actErr := o.withRetry(ctx, func() error {
		return o.client.PerformReaction(ctx, actor.PlatformURN, post.PlatformURN, reaction)
	})
	if actErr == nil {
		// duplicate（created=false）视为成功，不会二次计数
		if _, err := o.ledger.Record(ctx, run.PostID, actor.UserID, reaction); err != nil {
			o.fatal(ctx, run, task, err)
			return
		}
		run.SuccessTally++

		if run.Comments {
			o.sleep(jitter())
			text := platform.GenerateComment(actor.CommentPrompt)
			if cerr := o.withRetry(ctx, func() error {
				return o.client.PerformComment(ctx, actor.PlatformURN, post.PlatformURN, text)
			}); cerr != nil {
				log.Printf("run %d comment by user %d failed: %v", run.ID, actor.UserID, cerr)
			}
		}
	} else {
		// 重试耗尽或永久失败：记失败、继续下一步
		run.FailureTally++
		if _, err := o.ledger.RecordFailure(ctx, run.PostID, actor.UserID, reaction, actErr.Error()); err != nil {
			o.fatal(ctx, run, task, err)
			return
		}
	}

	run.StepIndex++
	if err := o.runs.Checkpoint(ctx, run); err != nil {
		o.fatal(ctx, run, task, err)
		return
	}

	if run.StepIndex >= run.TargetCount {
		o.finish(ctx, run, task, model.RunCompleted)
		return
	}

	// 下一步锚定到现在，而不是提交时刻的时间表
	next := time.Now().Add(o.stepDelay(run))
	if err := o.tasks.Schedule(ctx, model.TaskRunStep, run.ID, run.PostID, next); err != nil {
		o.fatal(ctx, run, task, err)
		return
	}
	_ = o.tasks.MarkDone(ctx, task.ID)
}

func (o *Orchestrator) finish(ctx context.Context, run *model.EngagementRun, task *model.ScheduledTask, status string) {
	if err := o.rec.Finalize(ctx, run, status); err != nil {
		log.Printf("run %d finalize err: %v", run.ID, err)
		_ = o.tasks.MarkFailed(ctx, task.ID)
		return
	}
	_ = o.tasks.MarkDone(ctx, task.ID)
}

// fatal 基础设施故障：run 转 FAILED，reconciler 照常用已有聚合计数终结
func (o *Orchestrator) fatal(ctx context.Context, run *model.EngagementRun, task *model.ScheduledTask, cause error) {
	log.Printf("run %d fatal: %v", run.ID, cause)
	o.finish(ctx, run, task, model.RunFailed)
}

// withRetry 上游瞬时错误重试，最多 3 次，指数退避；永久错误直接返回
func (o *Orchestrator) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < MaxRetryAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !platform.IsTransient(err) {
			return err
		}
		if attempt < MaxRetryAttempts-1 {
			o.sleep(o.backoff(attempt))
		}
	}
	return err
}

// backoff 初始 250-500ms，按 2 的幂放大
func (o *Orchestrator) backoff(attempt int) time.Duration {
	base := o.backoffBase + time.Duration(rand.Int63n(int64(o.backoffBase)+1))
	return base << uint(attempt)
}

// stepDelay [min,max] 秒随机 + 抖动
func (o *Orchestrator) stepDelay(run *model.EngagementRun) time.Duration {
	d := time.Duration(run.MinDelaySeconds) * time.Second
	if run.MaxDelaySeconds > run.MinDelaySeconds {
		span := int64(run.MaxDelaySeconds-run.MinDelaySeconds) + 1
		d += time.Duration(rand.Int63n(span)) * time.Second
	}
	return d + jitter()
}

func jitter() time.Duration {
	return time.Duration(rand.Int63n(int64(StepJitterMax)))
}

func stepToken(task *model.ScheduledTask) string {
	return fmt.Sprintf("%d-%d", task.ID, time.Now().UnixNano())
}
