package service

import (
	"Pod_Pulse/internal/model"
	"Pod_Pulse/internal/pkg"
	"Pod_Pulse/internal/repository/mysql"
	"Pod_Pulse/internal/repository/redis"
	"errors"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUserExists       = errors.New("username or email already taken")
	ErrBadCredentials   = errors.New("bad credentials")
	ErrPasswordTooShort = errors.New("password too short")
)

type UserService struct {
	users  *mysql.UserRepository
	tokens *redis.UserRepository
}

func NewUserService() *UserService {
	return &UserService{
		users:  &mysql.UserRepository{DB: mysql.DB},
		tokens: &redis.UserRepository{},
	}
}

func (s *UserService) Register(username, email, password string) (*model.User, error) {
	if len(password) < 8 {
		return nil, ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{Username: username, Email: email, Password: string(hash)}
	if err := s.users.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	user.Password = ""
	return user, nil
}

func (s *UserService) Login(username, password string) (*pkg.Pair, *model.User, error) {
	user, err := s.users.FindByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrBadCredentials
		}
		return nil, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, nil, ErrBadCredentials
	}
	pair, err := pkg.GeneratePair(user.ID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.tokens.AddUserToken(user.ID, pair.AccessToken); err != nil {
		return nil, nil, err
	}
	user.Password = ""
	return pair, user, nil
}

func (s *UserService) Logout(userID uint64) error {
	return s.tokens.DeleteUserToken(userID)
}

func (s *UserService) Refresh(refreshToken string) (*pkg.Pair, error) {
	pair, err := pkg.Refresh(refreshToken)
	if err != nil {
		return nil, err
	}
	claims, err := pkg.ParseAccess(pair.AccessToken)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.AddUserToken(claims.UserID, pair.AccessToken); err != nil {
		return nil, err
	}
	return pair, nil
}
