package service

import (
	"strings"
	"time"
	"ttrac_backend/internal/config"
	"ttrac_backend/internal/model"
	"ttrac_backend/internal/repository"
	"ttrac_backend/internal/util"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type AuthService struct {
	ProfileRepo *repository.ProfileRepository
	Cfg         *config.Config
}

func NewAuthService(profileRepo *repository.ProfileRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		ProfileRepo: profileRepo,
		Cfg:         cfg,
	}
}

type RegisterReq struct {
	Name     string         `json:"name" validate:"required,max=100"`
	Email    string         `json:"email" validate:"required,email,max=100"`
	Password string         `json:"password"`
	Role     model.UserRole `json:"role" validate:"omitempty,oneof=student faculty"`
}

// Register 密码长度在任何写操作之前校验
func (s *AuthService) Register(req RegisterReq) (*model.Profile, error) {
	if len(req.Password) < minPasswordLength {
		return nil, util.ErrPasswordTooShort
	}
	if err := util.ValidateStruct(req); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	_, err := s.ProfileRepo.FindByEmail(email)
	if err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	role := req.Role
	if role == "" {
		role = model.Student
	}
	now := time.Now()
	p := &model.Profile{
		Name:      req.Name,
		Email:     email,
		Password:  string(hashedPassword),
		Role:      role,
		LastLogin: now,
		LastSeen:  now,
	}
	if err := s.ProfileRepo.Create(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *AuthService) Login(email, password string) (string, *model.Profile, error) {
	user, err := s.ProfileRepo.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", nil, util.ErrInvalidCredentials
	}
	if user.Disabled {
		return "", nil, util.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, util.ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return "", nil, err
	}
	_ = s.ProfileRepo.UpdateLastLogin(user.ID)
	return token, user, nil
}

// Profile 用户不存在时返回 nil 而不是错误
func (s *AuthService) Profile(userID uint) (*model.Profile, error) {
	p, err := s.ProfileRepo.FindByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return p, err
}
