package service

import (
	"Pod_Pulse/internal/model"
	"Pod_Pulse/internal/pkg"
	"Pod_Pulse/internal/repository/mysql"
	"Pod_Pulse/internal/repository/redis"
	"context"
	"log"
	"time"
)

// EngagementService 落账门面：重复即成功，聚合计数随插入同事务更新
type EngagementService struct {
	repo  *mysql.EngagementRepository
	cache *redis.RunCacheRepository
}

func NewEngagementService() *EngagementService {
	return &EngagementService{
		repo:  &mysql.EngagementRepository{DB: mysql.DB},
		cache: &redis.RunCacheRepository{},
	}
}

// Record created=false 表示 (post,user) 已有记录——竞态下的重复，调用方按成功处理
func (s *EngagementService) Record(ctx context.Context, postID, userID uint64, reaction string) (bool, error) {
	created, err := s.repo.Record(ctx, postID, userID, reaction)
	if err != nil {
		return false, err
	}
	if created {
		// 缓存计数尽力而为，失败交给读侧回源
		s.cache.BumpCount(ctx, postID)
	}
	return created, nil
}

// RecordFailure 失败也落行（带错误文本），重启后不会再选中同一执行者
func (s *EngagementService) RecordFailure(ctx context.Context, postID, userID uint64, reaction, errText string) (bool, error) {
	if len(errText) > 500 {
		errText = errText[:500]
	}
	return s.repo.RecordFailure(ctx, postID, userID, reaction, errText)
}

type Sender func(ctx context.Context, ob *model.EngagementOutbox) error

type outboxStore interface {
	List(ctx context.Context, batchSize int) ([]model.EngagementOutbox, error)
	RetryUpdate(ctx context.Context, id uint64) error
	SuccessUpdate(ctx context.Context, id uint64) error
}

// OutboxRelayer 互动事件投递器：轮询 outbox 表异步交给 kafka
type OutboxRelayer struct {
	repo      outboxStore
	batchSize int
	interval  time.Duration
	sender    Sender
}

func NewOutboxRelayer(sender Sender) *OutboxRelayer {
	return &OutboxRelayer{
		repo:      &mysql.OutboxRepository{DB: mysql.DB},
		batchSize: 200,
		interval:  time.Second,
		sender:    sender,
	}
}

func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.drainOnce(ctx)
		}
	}
}

func (r *OutboxRelayer) drainOnce(ctx context.Context) {
	rows, err := r.repo.List(ctx, r.batchSize)
	if err != nil {
		log.Printf("outbox query err: %v", err)
		return
	}
	for i := range rows {
		ob := rows[i]
		if err = r.sender(ctx, &ob); err != nil {
			_ = r.repo.RetryUpdate(ctx, ob.ID)
			continue
		}
		_ = r.repo.SuccessUpdate(ctx, ob.ID)
	}
}

// KafkaSender 按 post_id 作 key 投递，同一帖子事件进同一分区
func KafkaSender(p *pkg.KafkaProducer) Sender {
	return func(ctx context.Context, ob *model.EngagementOutbox) error {
		return p.Send(ctx, pkg.MakeKeyFromID(ob.PostID), []byte(ob.Payload))
	}
}

// LogSender 默认 sender（占位）：kafka 不可用时先打印
func LogSender(ctx context.Context, ob *model.EngagementOutbox) error {
	log.Printf("OUTBOX SEND type=%s post=%d user=%d payload=%s", ob.EventType, ob.PostID, ob.UserID, ob.Payload)
	return nil
}
