package repository

import (
	"context"
	"elearning_backend/internal/model"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{DB: tx}
}

type UserFilter struct {
	Role     string
	IsActive *bool
	Search   string
}

// Create 邮箱重复时返回的错误满足 IsDuplicateKey
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(user).Error
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.User, error) {
	var users []model.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

// FindDetail 附带已报名和已创建的课程摘要
func (r *UserRepository) FindDetail(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).
		Preload("EnrolledCourses", func(db *gorm.DB) *gorm.DB {
			return db.Select("courses.id", "courses.title", "courses.thumbnail")
		}).
		Preload("CreatedCourses", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "title", "thumbnail", "instructor_id")
		}).
		First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) List(ctx context.Context, filter UserFilter, page, limit int) ([]model.User, int64, error) {
	query := func() *gorm.DB {
		q := r.DB.WithContext(ctx).Model(&model.User{})
		if filter.Role != "" {
			q = q.Where("role = ?", filter.Role)
		}
		if filter.IsActive != nil {
			q = q.Where("is_active = ?", *filter.IsActive)
		}
		if filter.Search != "" {
			term := escapeLike(filter.Search)
			q = q.Where("LOWER(first_name) LIKE ? ESCAPE '!' OR LOWER(last_name) LIKE ? ESCAPE '!' OR LOWER(email) LIKE ? ESCAPE '!'", term, term, term)
		}
		return q
	}

	var (
		users []model.User
		total int64
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		return query().Count(&total).Error
	})
	g.Go(func() error {
		return query().Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&users).Error
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Save(user).Error
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("last_login", at).
		Error
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("password", hash).
		Error
}

func (r *UserRepository) CountCreatedCourses(ctx context.Context, id uint) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Course{}).Where("instructor_id = ?", id).Count(&n).Error
	return n, err
}

func (r *UserRepository) RatedCourseIDs(ctx context.Context, id uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("student_id = ? AND rating IS NOT NULL", id).
		Pluck("course_id", &ids).Error
	return ids, err
}

// Delete 删除用户及其报名记录，调用方负责事务
func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	db := r.DB.WithContext(ctx)
	enrollmentIDs := db.Model(&model.Enrollment{}).Select("id").Where("student_id = ?", id)
	if err := db.Where("enrollment_id IN (?)", enrollmentIDs).Delete(&model.CompletedLesson{}).Error; err != nil {
		return err
	}
	if err := db.Where("student_id = ?", id).Delete(&model.Enrollment{}).Error; err != nil {
		return err
	}
	if err := db.Where("user_id = ?", id).Delete(&model.CourseStudent{}).Error; err != nil {
		return err
	}
	return db.Delete(&model.User{}, id).Error
}
