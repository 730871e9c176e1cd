package repository

import (
	"context"
	"elearning_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) WithTx(tx *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: tx}
}

// Create 重复报名时返回的错误满足 IsDuplicateKey
func (r *EnrollmentRepository) Create(ctx context.Context, e *model.Enrollment) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(e).Error
}

func (r *EnrollmentRepository) Exists(ctx context.Context, studentID, courseID uint) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Count(&n).Error
	return n > 0, err
}

func (r *EnrollmentRepository) Find(ctx context.Context, studentID, courseID uint) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.DB.WithContext(ctx).
		Preload("CompletedLessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("completed_at ASC, id ASC")
		}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// FindForUpdate 锁定报名行后再读取已完成课时，用于串行化同一报名的并发写
func (r *EnrollmentRepository) FindForUpdate(ctx context.Context, studentID, courseID uint) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	err = r.DB.WithContext(ctx).
		Where("enrollment_id = ?", e.ID).
		Order("completed_at ASC, id ASC").
		Find(&e.CompletedLessons).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// FindProgress 报名记录附带课程标题和按序排列的课时
func (r *EnrollmentRepository) FindProgress(ctx context.Context, studentID, courseID uint) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.DB.WithContext(ctx).
		Preload("Course", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "title")
		}).
		Preload("Course.Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("lesson_order ASC")
		}).
		Preload("CompletedLessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("completed_at ASC, id ASC")
		}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListByStudent 按报名时间倒序，附带课程摘要和讲师姓名
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID uint) ([]model.Enrollment, error) {
	var list []model.Enrollment
	err := r.DB.WithContext(ctx).
		Preload("Course", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "title", "description", "thumbnail", "instructor_id", "total_duration")
		}).
		Preload("Course.Instructor", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "first_name", "last_name")
		}).
		Preload("CompletedLessons").
		Where("student_id = ?", studentID).
		Order("enrollment_date DESC, id DESC").
		Find(&list).Error
	return list, err
}

func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID uint) ([]model.Enrollment, error) {
	var list []model.Enrollment
	err := r.DB.WithContext(ctx).
		Preload("CompletedLessons").
		Where("course_id = ?", courseID).
		Order("enrollment_date ASC, id ASC").
		Find(&list).Error
	return list, err
}

func (r *EnrollmentRepository) AddCompletedLesson(ctx context.Context, cl *model.CompletedLesson) error {
	return r.DB.WithContext(ctx).Create(cl).Error
}

// SaveProgress 写回进度相关字段
func (r *EnrollmentRepository) SaveProgress(ctx context.Context, e *model.Enrollment) error {
	return r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("id = ?", e.ID).
		Updates(map[string]interface{}{
			"progress":                e.Progress,
			"is_completed":            e.IsCompleted,
			"completion_date":         e.CompletionDate,
			"last_accessed_lesson_id": e.LastAccessedLessonID,
			"last_access_date":        e.LastAccessDate,
		}).Error
}

func (r *EnrollmentRepository) SaveReview(ctx context.Context, e *model.Enrollment) error {
	return r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("id = ?", e.ID).
		Updates(map[string]interface{}{
			"rating": e.Rating,
			"review": e.Review,
		}).Error
}

// Delete 删除报名及其完成记录，返回是否存在过报名
func (r *EnrollmentRepository) Delete(ctx context.Context, studentID, courseID uint) (bool, error) {
	db := r.DB.WithContext(ctx)
	enrollmentIDs := db.Model(&model.Enrollment{}).Select("id").
		Where("student_id = ? AND course_id = ?", studentID, courseID)
	if err := db.Where("enrollment_id IN (?)", enrollmentIDs).Delete(&model.CompletedLesson{}).Error; err != nil {
		return false, err
	}
	res := db.Where("student_id = ? AND course_id = ?", studentID, courseID).Delete(&model.Enrollment{})
	return res.RowsAffected > 0, res.Error
}
