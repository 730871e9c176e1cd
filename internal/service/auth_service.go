package service

import (
	"context"
	"elearning_backend/internal/config"
	"elearning_backend/internal/model"
	"elearning_backend/internal/repository"
	"elearning_backend/internal/util"
	"elearning_backend/pkg/logger"
	"elearning_backend/pkg/mailer"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ResetTokenStore 一次性密码重置令牌的存储
type ResetTokenStore interface {
	Save(ctx context.Context, token string, userID uint, ttl time.Duration) error
	Consume(ctx context.Context, token string) (uint, error)
}

type AuthService struct {
	UserRepo *repository.UserRepository
	Tokens   ResetTokenStore
	Mailer   mailer.Mailer
	Cfg      *config.Config
	Now      func() time.Time
}

func NewAuthService(userRepo *repository.UserRepository, tokens ResetTokenStore, m mailer.Mailer, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Tokens:   tokens,
		Mailer:   m,
		Cfg:      cfg,
		Now:      time.Now,
	}
}

type RegisterInput struct {
	FirstName string `json:"firstName" binding:"required,max=50"`
	LastName  string `json:"lastName" binding:"required,max=50"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	Role      string `json:"role" binding:"omitempty,oneof=student instructor"`
}

type UpdateDetailsInput struct {
	FirstName *string `json:"firstName" binding:"omitempty,max=50"`
	LastName  *string `json:"lastName" binding:"omitempty,max=50"`
	Email     *string `json:"email" binding:"omitempty,email"`
	Bio       *string `json:"bio" binding:"omitempty,max=500"`
}

// AuthSummary 登录/注册返回的用户摘要
type AuthSummary struct {
	ID        uint           `json:"id"`
	FirstName string         `json:"firstName"`
	LastName  string         `json:"lastName"`
	Email     string         `json:"email"`
	Role      model.UserRole `json:"role"`
	Avatar    string         `json:"avatar"`
}

func NewAuthSummary(u *model.User) AuthSummary {
	return AuthSummary{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
		Avatar:    u.Avatar,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (s *AuthService) token(user *model.User) (string, error) {
	return util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
}

// Register 自助注册只能选择 student 或 instructor
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, string, error) {
	role := model.Student
	if in.Role != "" {
		role = model.UserRole(in.Role)
	}
	if role != model.Student && role != model.Instructor {
		return nil, "", util.ErrInvalidRole
	}

	email := normalizeEmail(in.Email)
	_, err := s.UserRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, "", util.ErrEmailRegistered
	} else if !repository.IsNotFound(err) {
		return nil, "", err
	}

	hashed, err := hashPassword(in.Password)
	if err != nil {
		return nil, "", err
	}

	user := &model.User{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     email,
		Password:  hashed,
		Role:      role,
		IsActive:  true,
	}
	if err := s.UserRepo.Create(ctx, user); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, "", util.ErrEmailRegistered
		}
		return nil, "", err
	}

	token, err := s.token(user)
	if err != nil {
		return nil, "", err
	}

	logger.Log.Info("User registered", zap.Uint("user_id", user.ID), zap.String("role", string(role)))
	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := s.UserRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, "", util.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", util.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, "", util.ErrAccountDeactivated
	}

	now := s.Now()
	if err := s.UserRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, "", err
	}
	user.LastLogin = &now

	token, err := s.token(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) Me(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) UpdateDetails(ctx context.Context, userID uint, in UpdateDetailsInput) (*model.User, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Bio != nil {
		user.Bio = *in.Bio
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email != user.Email {
			if _, err := s.UserRepo.FindByEmail(ctx, email); err == nil {
				return nil, util.ErrEmailRegistered
			} else if !repository.IsNotFound(err) {
				return nil, err
			}
			user.Email = email
		}
	}

	if err := s.UserRepo.Update(ctx, user); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, util.ErrEmailRegistered
		}
		return nil, err
	}
	return user, nil
}

// UpdatePassword 校验当前密码后更新，返回新令牌
func (s *AuthService) UpdatePassword(ctx context.Context, userID uint, current, next string) (*model.User, string, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)); err != nil {
		return nil, "", util.ErrIncorrectPassword
	}

	hashed, err := hashPassword(next)
	if err != nil {
		return nil, "", err
	}
	if err := s.UserRepo.UpdatePassword(ctx, user.ID, hashed); err != nil {
		return nil, "", err
	}
	user.Password = hashed

	token, err := s.token(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// ForgotPassword 生成一次性重置令牌并发送邮件
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.UserRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if repository.IsNotFound(err) {
			return util.ErrUserNotFound
		}
		return err
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := s.Tokens.Save(ctx, token, user.ID, s.Cfg.Mail.ResetTTL); err != nil {
		return err
	}

	link := s.Cfg.Mail.ResetURL + token
	msg := mailer.Message{
		ToEmail: user.Email,
		ToName:  user.FullName(),
		Subject: "Password reset",
		Text: fmt.Sprintf("You requested a password reset. Use the link below within %d minutes:\n\n%s\n",
			int(s.Cfg.Mail.ResetTTL.Minutes()), link),
	}
	if err := s.Mailer.Send(ctx, msg); err != nil {
		logger.Log.Error("Failed to send reset email", zap.Uint("user_id", user.ID), zap.Error(err))
		return err
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, password string) (*model.User, string, error) {
	userID, err := s.Tokens.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrResetTokenNotFound) {
			return nil, "", util.ErrInvalidResetToken
		}
		return nil, "", err
	}

	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, "", util.ErrInvalidResetToken
		}
		return nil, "", err
	}

	hashed, err := hashPassword(password)
	if err != nil {
		return nil, "", err
	}
	if err := s.UserRepo.UpdatePassword(ctx, user.ID, hashed); err != nil {
		return nil, "", err
	}
	user.Password = hashed

	jwtToken, err := s.token(user)
	if err != nil {
		return nil, "", err
	}

	logger.Log.Info("Password reset", zap.Uint("user_id", user.ID))
	return user, jwtToken, nil
}
