package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	CountTTL        = 24 * time.Hour
	CancelTTL       = 48 * time.Hour
	StepLockTTL     = 5 * time.Minute
	CountKeyPrefix  = "engage:cnt:post"  // 缓存某个帖子的互动计数
	CancelKeyPrefix = "engage:cancel:run" // run 取消标记
	StepLockPrefix  = "lock:run:step"    // 步骤执行锁，防多实例重复执行
)

var (
	ErrCacheUnavailable = errors.New("engagement cache unavailable")
)

type RunCacheRepository struct{}

type StepLock struct {
	RDB *redis.Client
}

func countKey(postID uint64) string {
	return fmt.Sprintf("%s:%d", CountKeyPrefix, postID)
}

func cancelKey(runID uint64) string {
	return fmt.Sprintf("%s:%d", CancelKeyPrefix, runID)
}

// SetCount 回填帖子互动计数
func (r *RunCacheRepository) SetCount(ctx context.Context, postID uint64, cnt int64) error {
	if err := Client.Set(ctx, countKey(postID), cnt, CountTTL).Err(); err != nil {
		return ErrCacheUnavailable
	}
	return nil
}

// BumpCount 落账成功后自增缓存；key 不存在时不创建，交给读侧回源重建
func (r *RunCacheRepository) BumpCount(ctx context.Context, postID uint64) {
	k := countKey(postID)
	if ok, _ := Client.Exists(ctx, k).Result(); ok > 0 {
		_ = Client.Incr(ctx, k).Err()
		_ = Client.Expire(ctx, k, CountTTL).Err()
	}
}

// GetCountCached 状态查询接口优先走缓存
func (r *RunCacheRepository) GetCountCached(ctx context.Context, postID uint64) (int64, bool, error) {
	val, err := Client.Get(ctx, countKey(postID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	return val, true, err
}

// RequestCancel 打取消标记，步与步之间的编排器会读到
func (r *RunCacheRepository) RequestCancel(ctx context.Context, runID uint64) error {
	if err := Client.Set(ctx, cancelKey(runID), 1, CancelTTL).Err(); err != nil {
		return ErrCacheUnavailable
	}
	return nil
}

func (r *RunCacheRepository) IsCancelRequested(ctx context.Context, runID uint64) (bool, error) {
	n, err := Client.Exists(ctx, cancelKey(runID)).Result()
	if err != nil {
		return false, ErrCacheUnavailable
	}
	return n > 0, nil
}

func (r *RunCacheRepository) ClearCancel(ctx context.Context, runID uint64) {
	_ = Client.Del(ctx, cancelKey(runID)).Err()
}

// Acquire 步骤锁：同一 run 同时只有一个步骤在执行
func (l *StepLock) Acquire(ctx context.Context, runID uint64, token string) (bool, error) {
	key := fmt.Sprintf("%s:%d", StepLockPrefix, runID)
	return l.RDB.SetNX(ctx, key, token, StepLockTTL).Result()
}

// Release 用 lua 保证原子性
func (l *StepLock) Release(ctx context.Context, runID uint64, token string) error {
	key := fmt.Sprintf("%s:%d", StepLockPrefix, runID)
	_, err := redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`).Run(ctx, l.RDB, []string{key}, token).Result()
	return err
}
