package service

import (
	"context"
	"elearning_backend/internal/model"
	"elearning_backend/internal/repository"
	"elearning_backend/internal/util"
	"elearning_backend/pkg/logger"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserService 管理员维护用户
type UserService struct {
	DB         *gorm.DB
	UserRepo   *repository.UserRepository
	CourseRepo *repository.CourseRepository
}

func NewUserService(db *gorm.DB, userRepo *repository.UserRepository, courseRepo *repository.CourseRepository) *UserService {
	return &UserService{
		DB:         db,
		UserRepo:   userRepo,
		CourseRepo: courseRepo,
	}
}

type CreateUserInput struct {
	FirstName string `json:"firstName" binding:"required,max=50"`
	LastName  string `json:"lastName" binding:"required,max=50"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	Role      string `json:"role" binding:"omitempty,oneof=student instructor admin"`
	IsActive  *bool  `json:"isActive"`
	Bio       string `json:"bio" binding:"max=500"`
}

type UpdateUserInput struct {
	FirstName *string `json:"firstName" binding:"omitempty,max=50"`
	LastName  *string `json:"lastName" binding:"omitempty,max=50"`
	Email     *string `json:"email" binding:"omitempty,email"`
	Role      *string `json:"role" binding:"omitempty,oneof=student instructor admin"`
	IsActive  *bool   `json:"isActive"`
	Bio       *string `json:"bio" binding:"omitempty,max=500"`
}

func (s *UserService) List(ctx context.Context, filter repository.UserFilter, page, limit int) ([]model.User, int64, error) {
	return s.UserRepo.List(ctx, filter, page, limit)
}

func (s *UserService) Get(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.UserRepo.FindDetail(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*model.User, error) {
	role := model.Student
	if in.Role != "" {
		role = model.UserRole(in.Role)
	}
	if !role.Valid() {
		return nil, util.ErrInvalidRole
	}

	hashed, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	user := &model.User{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     normalizeEmail(in.Email),
		Password:  hashed,
		Role:      role,
		IsActive:  active,
		Bio:       in.Bio,
	}
	if err := s.UserRepo.Create(ctx, user); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, util.ErrEmailRegistered
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id uint, in UpdateUserInput) (*model.User, error) {
	user, err := s.UserRepo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}

	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Email != nil {
		user.Email = normalizeEmail(*in.Email)
	}
	if in.Role != nil {
		role := model.UserRole(*in.Role)
		if !role.Valid() {
			return nil, util.ErrInvalidRole
		}
		user.Role = role
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	if in.Bio != nil {
		user.Bio = *in.Bio
	}

	if err := s.UserRepo.Update(ctx, user); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, util.ErrEmailRegistered
		}
		return nil, err
	}
	return user, nil
}

// Delete 仍是课程讲师的用户不能删除
func (s *UserService) Delete(ctx context.Context, id uint) error {
	if _, err := s.UserRepo.FindByID(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return util.ErrUserNotFound
		}
		return err
	}

	owned, err := s.UserRepo.CountCreatedCourses(ctx, id)
	if err != nil {
		return err
	}
	if owned > 0 {
		return util.ErrUserOwnsCourses
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userRepo := s.UserRepo.WithTx(tx)
		rated, err := userRepo.RatedCourseIDs(ctx, id)
		if err != nil {
			return err
		}
		if err := userRepo.Delete(ctx, id); err != nil {
			return err
		}
		// 删除的报名可能带评分，重算相关课程
		courseRepo := s.CourseRepo.WithTx(tx)
		for _, courseID := range rated {
			if _, err := courseRepo.RecalculateRating(ctx, courseID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Log.Info("User deleted", zap.Uint("user_id", id))
	return nil
}
