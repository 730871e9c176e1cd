package repository

import (
	"context"
	"elearning_backend/internal/model"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) WithTx(tx *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: tx}
}

type CourseFilter struct {
	Category     string
	Level        string
	IsPublished  *bool
	InstructorID uint
	Search       string
}

type RatingStats struct {
	Average float64
	Count   int64
}

func instructorSummary(db *gorm.DB) *gorm.DB {
	return db.Select("id", "first_name", "last_name", "email", "avatar")
}

func (r *CourseRepository) Create(ctx context.Context, course *model.Course) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(course).Error
}

func (r *CourseRepository) FindByID(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	if err := r.DB.WithContext(ctx).First(&course, id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

// FindByIDForUpdate 在事务内锁定课程行，sqlite 会忽略锁子句
func (r *CourseRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&course, id).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// FindDetail 课程详情：讲师、报名学生、按序排列的课时
func (r *CourseRepository) FindDetail(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).
		Preload("Instructor", instructorSummary).
		Preload("EnrolledStudents", func(db *gorm.DB) *gorm.DB {
			return db.Select("users.id", "users.first_name", "users.last_name", "users.email", "users.avatar")
		}).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("lesson_order ASC")
		}).
		First(&course, id).Error
	if err != nil {
		return nil, err
	}
	course.EnrollmentCount = int64(len(course.EnrolledStudents))
	return &course, nil
}

func (r *CourseRepository) List(ctx context.Context, filter CourseFilter, page, limit int) ([]model.Course, int64, error) {
	query := func() *gorm.DB {
		q := r.DB.WithContext(ctx).Model(&model.Course{})
		if filter.Category != "" {
			q = q.Where("category = ?", filter.Category)
		}
		if filter.Level != "" {
			q = q.Where("level = ?", filter.Level)
		}
		if filter.IsPublished != nil {
			q = q.Where("is_published = ?", *filter.IsPublished)
		}
		if filter.InstructorID != 0 {
			q = q.Where("instructor_id = ?", filter.InstructorID)
		}
		if filter.Search != "" {
			term := escapeLike(filter.Search)
			q = q.Where("LOWER(title) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!'", term, term)
		}
		return q
	}

	var (
		courses []model.Course
		total   int64
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		return query().Count(&total).Error
	})
	g.Go(func() error {
		return query().
			Preload("Instructor", instructorSummary).
			Order("created_at DESC").
			Offset((page - 1) * limit).
			Limit(limit).
			Find(&courses).Error
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	if err := r.fillEnrollmentCounts(ctx, courses); err != nil {
		return nil, 0, err
	}
	return courses, total, nil
}

func (r *CourseRepository) fillEnrollmentCounts(ctx context.Context, courses []model.Course) error {
	if len(courses) == 0 {
		return nil
	}
	ids := make([]uint, len(courses))
	for i := range courses {
		ids[i] = courses[i].ID
	}

	var rows []struct {
		CourseID uint
		Total    int64
	}
	err := r.DB.WithContext(ctx).Model(&model.CourseStudent{}).
		Select("course_id, COUNT(*) AS total").
		Where("course_id IN ?", ids).
		Group("course_id").
		Scan(&rows).Error
	if err != nil {
		return err
	}

	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.CourseID] = row.Total
	}
	for i := range courses {
		courses[i].EnrollmentCount = counts[courses[i].ID]
	}
	return nil
}

// Update 只写入给定字段，派生字段由调用方排除
func (r *CourseRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	return r.DB.WithContext(ctx).Model(&model.Course{}).Where("id = ?", id).Updates(fields).Error
}

// Delete 删除课程及其课时、报名、完成记录和关联表行，调用方负责事务
func (r *CourseRepository) Delete(ctx context.Context, id uint) error {
	db := r.DB.WithContext(ctx)
	enrollmentIDs := db.Model(&model.Enrollment{}).Select("id").Where("course_id = ?", id)
	if err := db.Where("enrollment_id IN (?)", enrollmentIDs).Delete(&model.CompletedLesson{}).Error; err != nil {
		return err
	}
	if err := db.Where("course_id = ?", id).Delete(&model.Enrollment{}).Error; err != nil {
		return err
	}
	if err := db.Where("course_id = ?", id).Delete(&model.CourseStudent{}).Error; err != nil {
		return err
	}
	if err := db.Where("course_id = ?", id).Delete(&model.Lesson{}).Error; err != nil {
		return err
	}
	return db.Delete(&model.Course{}, id).Error
}

func (r *CourseRepository) ListIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.Course{}).Order("id").Pluck("id", &ids).Error
	return ids, err
}

// 课时

func (r *CourseRepository) ListLessons(ctx context.Context, courseID uint) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("lesson_order ASC").
		Find(&lessons).Error
	return lessons, err
}

func (r *CourseRepository) FindLesson(ctx context.Context, courseID, lessonID uint) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.WithContext(ctx).
		Where("id = ? AND course_id = ?", lessonID, courseID).
		First(&lesson).Error
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *CourseRepository) CountLessons(ctx context.Context, courseID uint) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Lesson{}).Where("course_id = ?", courseID).Count(&n).Error
	return n, err
}

func (r *CourseRepository) CreateLesson(ctx context.Context, lesson *model.Lesson) error {
	return r.DB.WithContext(ctx).Create(lesson).Error
}

func (r *CourseRepository) UpdateLesson(ctx context.Context, lessonID uint, fields map[string]interface{}) error {
	return r.DB.WithContext(ctx).Model(&model.Lesson{}).Where("id = ?", lessonID).Updates(fields).Error
}

func (r *CourseRepository) DeleteLesson(ctx context.Context, courseID, lessonID uint) error {
	return r.DB.WithContext(ctx).
		Where("id = ? AND course_id = ?", lessonID, courseID).
		Delete(&model.Lesson{}).Error
}

// 派生字段

// RecalculateTotalDuration 重算课程总时长并返回新值
func (r *CourseRepository) RecalculateTotalDuration(ctx context.Context, courseID uint) (int, error) {
	var total int
	err := r.DB.WithContext(ctx).Model(&model.Lesson{}).
		Select("COALESCE(SUM(duration), 0)").
		Where("course_id = ?", courseID).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	err = r.DB.WithContext(ctx).Model(&model.Course{}).
		Where("id = ?", courseID).
		Update("total_duration", total).Error
	return total, err
}

func (r *CourseRepository) RatingStats(ctx context.Context, courseID uint) (RatingStats, error) {
	var row struct {
		Average *float64
		Count   int64
	}
	err := r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Select("AVG(rating) AS average, COUNT(rating) AS count").
		Where("course_id = ? AND rating IS NOT NULL", courseID).
		Scan(&row).Error
	if err != nil {
		return RatingStats{}, err
	}
	stats := RatingStats{Count: row.Count}
	if row.Average != nil {
		stats.Average = *row.Average
	}
	return stats, nil
}

// RecalculateRating 从报名评分重算课程 rating/numReviews
func (r *CourseRepository) RecalculateRating(ctx context.Context, courseID uint) (RatingStats, error) {
	stats, err := r.RatingStats(ctx, courseID)
	if err != nil {
		return stats, err
	}
	err = r.DB.WithContext(ctx).Model(&model.Course{}).
		Where("id = ?", courseID).
		Updates(map[string]interface{}{
			"rating":      stats.Average,
			"num_reviews": stats.Count,
		}).Error
	return stats, err
}

// 报名关联表

func (r *CourseRepository) AddStudent(ctx context.Context, courseID, userID uint) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.CourseStudent{CourseID: courseID, UserID: userID}).Error
}

func (r *CourseRepository) RemoveStudent(ctx context.Context, courseID, userID uint) error {
	return r.DB.WithContext(ctx).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Delete(&model.CourseStudent{}).Error
}

func (r *CourseRepository) IsStudentEnrolled(ctx context.Context, courseID, userID uint) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.CourseStudent{}).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Count(&n).Error
	return n > 0, err
}
