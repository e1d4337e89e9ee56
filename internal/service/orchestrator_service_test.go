package service

import (
	"Pod_Pulse/internal/model"
	"Pod_Pulse/internal/platform"
	"context"
	"testing"
	"time"
)

type fakeRunStore struct {
	run         *model.EngagementRun
	checkpoints int
	processing  bool
	unfinished  []model.EngagementRun
}

func (f *fakeRunStore) FindByID(ctx context.Context, id uint64) (*model.EngagementRun, error) {
	return f.run, nil
}

func (f *fakeRunStore) MarkProcessing(ctx context.Context, id uint64) error {
	f.processing = true
	return nil
}

func (f *fakeRunStore) Checkpoint(ctx context.Context, run *model.EngagementRun) error {
	f.checkpoints++
	return nil
}

func (f *fakeRunStore) ListUnfinished(ctx context.Context) ([]model.EngagementRun, error) {
	return f.unfinished, nil
}

type fakeTaskStore struct {
	scheduled []model.ScheduledTask
	done      []uint64
	failed    []uint64
	pending   map[uint64]bool
}

func (f *fakeTaskStore) Schedule(ctx context.Context, kind string, runID, postID uint64, runAt time.Time) error {
	f.scheduled = append(f.scheduled, model.ScheduledTask{Kind: kind, RunID: runID, PostID: postID, RunAt: runAt})
	return nil
}

func (f *fakeTaskStore) DueList(ctx context.Context, now time.Time, limit int) ([]model.ScheduledTask, error) {
	return nil, nil
}

func (f *fakeTaskStore) MarkDone(ctx context.Context, id uint64) error {
	f.done = append(f.done, id)
	return nil
}

func (f *fakeTaskStore) MarkFailed(ctx context.Context, id uint64) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeTaskStore) PendingForRun(ctx context.Context, runID uint64, kind string) (bool, error) {
	return f.pending[runID], nil
}

type fakePostStore struct {
	post       *model.Post
	processing bool
}

func (f *fakePostStore) FindByID(id uint64) (*model.Post, error) { return f.post, nil }

func (f *fakePostStore) MarkProcessing(postID uint64) error {
	f.processing = true
	return nil
}

type fakeStepSelector struct {
	queue []*model.Account
}

func (f *fakeStepSelector) SelectActor(ctx context.Context, podID, postID, authorID uint64, exclude map[uint64]struct{}) (*model.Account, error) {
	if len(f.queue) == 0 {
		return nil, nil
	}
	acc := f.queue[0]
	f.queue = f.queue[1:]
	return acc, nil
}

type fakeActionClient struct {
	errs     []error
	calls    int
	comments int
}

func (f *fakeActionClient) PerformReaction(ctx context.Context, actorURN, postURN, reaction string) error {
	f.calls++
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeActionClient) PerformComment(ctx context.Context, actorURN, postURN, text string) error {
	f.comments++
	return nil
}

type fakeLedger struct {
	records  int
	failures int
}

func (f *fakeLedger) Record(ctx context.Context, postID, userID uint64, reaction string) (bool, error) {
	f.records++
	return true, nil
}

func (f *fakeLedger) RecordFailure(ctx context.Context, postID, userID uint64, reaction, errText string) (bool, error) {
	f.failures++
	return true, nil
}

type fakeCanceler struct {
	canceled bool
}

func (f *fakeCanceler) IsCancelRequested(ctx context.Context, runID uint64) (bool, error) {
	return f.canceled, nil
}

type fakeFollowups struct {
	statuses []string
	resyncs  []uint64
	notifies []uint64
}

func (f *fakeFollowups) Finalize(ctx context.Context, run *model.EngagementRun, status string) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeFollowups) Resync(ctx context.Context, postID uint64) error {
	f.resyncs = append(f.resyncs, postID)
	return nil
}

func (f *fakeFollowups) Notify(ctx context.Context, postID uint64) error {
	f.notifies = append(f.notifies, postID)
	return nil
}

type orchFixture struct {
	o      *Orchestrator
	runs   *fakeRunStore
	tasks  *fakeTaskStore
	posts  *fakePostStore
	sel    *fakeStepSelector
	client *fakeActionClient
	led    *fakeLedger
	cancel *fakeCanceler
	rec    *fakeFollowups
	sleeps []time.Duration
}

func newOrchFixture(run *model.EngagementRun, actors []*model.Account, clientErrs []error) *orchFixture {
	f := &orchFixture{
		runs:   &fakeRunStore{run: run},
		tasks:  &fakeTaskStore{pending: map[uint64]bool{}},
		posts:  &fakePostStore{post: &model.Post{ID: run.PostID, AuthorID: 1, PodID: run.PodID, PlatformURN: "urn:share:9"}},
		sel:    &fakeStepSelector{queue: actors},
		client: &fakeActionClient{errs: clientErrs},
		led:    &fakeLedger{},
		cancel: &fakeCanceler{},
		rec:    &fakeFollowups{},
	}
	f.o = &Orchestrator{
		runs:        f.runs,
		tasks:       f.tasks,
		posts:       f.posts,
		selector:    f.sel,
		client:      f.client,
		ledger:      f.led,
		cancels:     f.cancel,
		rec:         f.rec,
		backoffBase: MinBackoff,
		sleep:       func(d time.Duration) { f.sleeps = append(f.sleeps, d) },
	}
	return f
}

func testRun(target int) *model.EngagementRun {
	run := &model.EngagementRun{
		ID:              7,
		PostID:          100,
		PodID:           10,
		TargetCount:     target,
		MinDelaySeconds: 2,
		MaxDelaySeconds: 5,
		Status:          model.RunPending,
		ExcludeIDs:      "[]",
	}
	run.SetReactionSet([]string{model.ReactionLike})
	return run
}

func TestExecuteStepSuccess(t *testing.T) {
	f := newOrchFixture(testRun(3), []*model.Account{healthyAccount(2)}, nil)
	task := &model.ScheduledTask{ID: 1, Kind: model.TaskRunStep, RunID: 7, PostID: 100}

	f.o.ExecuteStep(context.Background(), task)

	if !f.runs.processing || !f.posts.processing {
		t.Error("run/post should be marked processing on first step")
	}
	if f.led.records != 1 {
		t.Errorf("records = %d, want 1", f.led.records)
	}
	if f.runs.run.StepIndex != 1 || f.runs.run.SuccessTally != 1 {
		t.Errorf("cursor = %d/%d", f.runs.run.StepIndex, f.runs.run.SuccessTally)
	}
	if _, ok := f.runs.run.ExcludeSet()[2]; !ok {
		t.Error("actor should be excluded after selection")
	}
	// 选中后、落账后各一次 checkpoint
	if f.runs.checkpoints != 2 {
		t.Errorf("checkpoints = %d, want 2", f.runs.checkpoints)
	}
	if len(f.tasks.scheduled) != 1 || f.tasks.scheduled[0].Kind != model.TaskRunStep {
		t.Fatalf("next step not scheduled: %+v", f.tasks.scheduled)
	}
	delay := time.Until(f.tasks.scheduled[0].RunAt)
	if delay < time.Second || delay > 5*time.Second+StepJitterMax {
		t.Errorf("next step delay out of range: %v", delay)
	}
	if len(f.tasks.done) != 1 {
		t.Error("task should be marked done")
	}
	if len(f.rec.statuses) != 0 {
		t.Errorf("run should not be finalized yet: %v", f.rec.statuses)
	}
}

func TestExecuteStepTransientRetry(t *testing.T) {
	errs := []error{
		&platform.APIError{Code: 503},
		&platform.APIError{Code: 429},
		nil,
	}
	f := newOrchFixture(testRun(3), []*model.Account{healthyAccount(2)}, errs)
	f.o.ExecuteStep(context.Background(), &model.ScheduledTask{ID: 1, Kind: model.TaskRunStep, RunID: 7, PostID: 100})

	if f.client.calls != 3 {
		t.Errorf("calls = %d, want 3", f.client.calls)
	}
	if len(f.sleeps) != 2 {
		t.Errorf("backoff sleeps = %d, want 2", len(f.sleeps))
	}
	if f.led.records != 1 || f.led.failures != 0 {
		t.Errorf("records/failures = %d/%d", f.led.records, f.led.failures)
	}
}

func TestExecuteStepPermanentNoRetry(t *testing.T) {
	f := newOrchFixture(testRun(3), []*model.Account{healthyAccount(2)}, []error{&platform.APIError{Code: 400}})
	f.o.ExecuteStep(context.Background(), &model.ScheduledTask{ID: 1, Kind: model.TaskRunStep, RunID: 7, PostID: 100})

	if f.client.calls != 1 {
		t.Errorf("permanent error retried: calls = %d", f.client.calls)
	}
	if f.led.failures != 1 {
		t.Errorf("failures = %d, want 1", f.led.failures)
	}
	if f.runs.run.FailureTally != 1 {
		t.Errorf("failure tally = %d", f.runs.run.FailureTally)
	}
	// 单个执行者失败不终止 run
	if len(f.tasks.scheduled) != 1 {
		t.Error("next step should still be scheduled")
	}
}

func TestExecuteStepRetryExhausted(t *testing.T) {
	errs := []error{
		&platform.APIError{Code: 503},
		&platform.APIError{Code: 503},
		&platform.APIError{Code: 503},
	}
	f := newOrchFixture(testRun(3), []*model.Account{healthyAccount(2)}, errs)
	f.o.ExecuteStep(context.Background(), &model.ScheduledTask{ID: 1, Kind: model.TaskRunStep, RunID: 7, PostID: 100})

	if f.client.calls != MaxRetryAttempts {
		t.Errorf("calls = %d, want %d", f.client.calls, MaxRetryAttempts)
	}
	if f.led.failures != 1 {
		t.Errorf("failures = %d, want 1", f.led.failures)
	}
}

func TestExecuteStepPoolExhausted(t *testing.T) {
	run := testRun(5)
	run.SuccessTally = 3
	run.StepIndex = 3
	f := newOrchFixture(run, nil, nil)
	f.o.ExecuteStep(context.Background(), &model.ScheduledTask{ID: 1, Kind: model.TaskRunStep, RunID: 7, PostID: 100})

	// 候选池耗尽：带着已有计数正常收尾，不算失败
	if len(f.rec.statuses) != 1 || f.rec.statuses[0] != model.RunCompleted {
		t.Fatalf("statuses = %v, want [completed]", f.rec.statuses)
	}
	if f.client.calls != 0 {
		t.Error("no external call expected")
	}
}

func TestExecuteStepTargetReached(t *testing.T) {
	f := newOrchFixture(testRun(1), []*model.Account{healthyAccount(2)}, nil)
	f.o.ExecuteStep(context.Background(), &model.ScheduledTask{ID: 1, Kind: model.TaskRunStep, RunID: 7, PostID: 100})

	if len(f.rec.statuses) != 1 || f.rec.statuses[0] != model.RunCompleted {
		t.Fatalf("statuses = %v, want [completed]", f.rec.statuses)
	}
	if len(f.tasks.scheduled) != 0 {
		t.Error("no further step should be scheduled")
	}
}

func TestExecuteStepCancelBetweenSteps(t *testing.T) {
	f := newOrchFixture(testRun(3), []*model.Account{healthyAccount(2)}, nil)
	f.cancel.canceled = true
	f.o.ExecuteStep(context.Background(), &model.ScheduledTask{ID: 1, Kind: model.TaskRunStep, RunID: 7, PostID: 100})

	if len(f.rec.statuses) != 1 || f.rec.statuses[0] != model.RunCanceled {
		t.Fatalf("statuses = %v, want [canceled]", f.rec.statuses)
	}
	if f.client.calls != 0 {
		t.Error("canceled run must not reach the platform")
	}
}

func TestExecuteStepTerminalRunIsNoop(t *testing.T) {
	run := testRun(3)
	run.Status = model.RunCompleted
	f := newOrchFixture(run, []*model.Account{healthyAccount(2)}, nil)
	f.o.ExecuteStep(context.Background(), &model.ScheduledTask{ID: 1, Kind: model.TaskRunStep, RunID: 7, PostID: 100})

	if f.client.calls != 0 || f.led.records != 0 {
		t.Error("terminal run should be a no-op")
	}
	if len(f.tasks.done) != 1 {
		t.Error("stale task should be marked done")
	}
}

func TestExecuteStepCommentAfterReaction(t *testing.T) {
	run := testRun(1)
	run.Comments = true
	f := newOrchFixture(run, []*model.Account{healthyAccount(2)}, nil)
	f.o.ExecuteStep(context.Background(), &model.ScheduledTask{ID: 1, Kind: model.TaskRunStep, RunID: 7, PostID: 100})

	if f.client.comments != 1 {
		t.Errorf("comments = %d, want 1", f.client.comments)
	}
}

func TestWithRetryBackoffGrows(t *testing.T) {
	f := newOrchFixture(testRun(1), nil, nil)
	for attempt := 0; attempt < 3; attempt++ {
		d := f.o.backoff(attempt)
		min := MinBackoff << uint(attempt)
		max := 2 * MinBackoff << uint(attempt)
		if d < min || d > max {
			t.Errorf("attempt %d: backoff %v outside [%v, %v]", attempt, d, min, max)
		}
	}
}

func TestStepDelayBounds(t *testing.T) {
	f := newOrchFixture(testRun(1), nil, nil)
	run := testRun(1)
	for i := 0; i < 50; i++ {
		d := f.o.stepDelay(run)
		if d < 2*time.Second || d > 5*time.Second+StepJitterMax {
			t.Fatalf("delay %v outside [2s, 5s+jitter]", d)
		}
	}
}

func TestResumeInterrupted(t *testing.T) {
	f := newOrchFixture(testRun(3), nil, nil)
	f.runs.unfinished = []model.EngagementRun{
		{ID: 7, PostID: 100, Status: model.RunProcessing, StepIndex: 2},
		{ID: 8, PostID: 101, Status: model.RunPending},
	}
	f.tasks.pending[8] = true // run 8 已有待执行任务

	if err := f.o.ResumeInterrupted(context.Background()); err != nil {
		t.Fatalf("ResumeInterrupted: %v", err)
	}
	if len(f.tasks.scheduled) != 1 || f.tasks.scheduled[0].RunID != 7 {
		t.Fatalf("scheduled = %+v, want one task for run 7", f.tasks.scheduled)
	}
}
