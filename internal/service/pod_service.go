package service

import (
	"Pod_Pulse/internal/model"
	"Pod_Pulse/internal/pkg"
	"Pod_Pulse/internal/repository/mysql"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrPodNotFound   = errors.New("pod not found")
	ErrInviteCodeGen = errors.New("invite code generation failed")
)

const InviteCodeLen = 8

type PodService struct {
	pods    *mysql.PodRepository
	members *mysql.PodMemberRepository
	users   *mysql.UserRepository
}

func NewPodService() *PodService {
	return &PodService{
		pods:    &mysql.PodRepository{DB: mysql.DB},
		members: &mysql.PodMemberRepository{DB: mysql.DB},
		users:   &mysql.UserRepository{DB: mysql.DB},
	}
}

// CreatePod 生成唯一邀请码建组，创建者自动入组。
// 邀请码撞库概率极低，撞了就换一个重试
func (s *PodService) CreatePod(creatorID uint64, name string) (*model.Pod, error) {
	for i := 0; i < 3; i++ {
		code, err := pkg.RandInviteCode(InviteCodeLen)
		if err != nil {
			return nil, err
		}
		pod, err := s.pods.Create(&model.Pod{
			Name:       name,
			InviteCode: code,
			CreatorID:  creatorID,
		})
		if err == nil {
			return pod, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
	}
	return nil, ErrInviteCodeGen
}

// JoinByCode 邀请码入组，重复加入幂等
func (s *PodService) JoinByCode(userID uint64, code string) (*model.Pod, error) {
	pod, err := s.pods.FindByInviteCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPodNotFound
		}
		return nil, err
	}
	if err := s.members.Join(&model.PodMember{PodID: pod.ID, UserID: userID}); err != nil {
		return nil, err
	}
	return pod, nil
}

func (s *PodService) Leave(podID, userID uint64) error {
	return s.members.Leave(podID, userID)
}

func (s *PodService) IsMember(podID, userID uint64) (bool, error) {
	return s.members.IsMember(podID, userID)
}

// Members 成员名单（用户信息）
func (s *PodService) Members(podID uint64) ([]model.User, error) {
	ids, err := s.members.ListUserIDs(podID)
	if err != nil {
		return nil, err
	}
	out := make([]model.User, 0, len(ids))
	for _, id := range ids {
		u, err := s.users.FindByID(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		u.Password = ""
		out = append(out, *u)
	}
	return out, nil
}

func (s *PodService) List(offset, limit int) ([]model.Pod, error) {
	return s.pods.List(offset, limit)
}
