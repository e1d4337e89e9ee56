package service

import (
	"Pod_Pulse/internal/model"
	"Pod_Pulse/internal/repository/mysql"
	"context"
	"errors"
	"math/rand"
	"time"

	"gorm.io/gorm"
)

// 选择器只读这三类数据，窄接口便于替换
type memberLister interface {
	ListUserIDs(podID uint64) ([]uint64, error)
}

type accountGetter interface {
	FindByUserID(userID uint64) (*model.Account, error)
}

type engagementChecker interface {
	Exists(ctx context.Context, postID, userID uint64) (bool, error)
	DailyCount(ctx context.Context, userID uint64, now time.Time) (int64, error)
}

// SelectorService 从候选池里等概率抽一个可用执行者。
// 返回 nil 表示本轮池子已耗尽——这是正常的提前收尾信号，不是错误
type SelectorService struct {
	members     memberLister
	accounts    accountGetter
	engagements engagementChecker
	now         func() time.Time
	pick        func(n int) int
}

func NewSelectorService() *SelectorService {
	return &SelectorService{
		members:     &mysql.PodMemberRepository{DB: mysql.DB},
		accounts:    &mysql.AccountRepository{DB: mysql.DB},
		engagements: &mysql.EngagementRepository{DB: mysql.DB},
		now:         time.Now,
		pick:        rand.Intn,
	}
}

// SelectActor 过滤顺序：排除集与作者 -> 账号存在且健康 -> 未互动过 ->
// 当日上限未满 -> 工作时间窗。每次选择都重新读库，不缓存资格
func (s *SelectorService) SelectActor(ctx context.Context, podID, postID, authorID uint64, exclude map[uint64]struct{}) (*model.Account, error) {
	ids, err := s.members.ListUserIDs(podID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var pool []*model.Account
	for _, uid := range ids {
		if uid == authorID {
			continue
		}
		if _, ok := exclude[uid]; ok {
			continue
		}

		acc, err := s.accounts.FindByUserID(uid)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue // 没绑定账号
			}
			return nil, err
		}
		if !acc.Usable() {
			continue
		}

		// 防御性查重，独立于落账自身的唯一约束
		done, err := s.engagements.Exists(ctx, postID, uid)
		if err != nil {
			return nil, err
		}
		if done {
			continue
		}

		cnt, err := s.engagements.DailyCount(ctx, uid, now)
		if err != nil {
			return nil, err
		}
		if cnt >= int64(acc.DailyCap) {
			continue
		}

		if !acc.InWorkingHours(now) {
			continue
		}

		pool = append(pool, acc)
	}

	if len(pool) == 0 {
		return nil, nil
	}
	return pool[s.pick(len(pool))], nil
}
