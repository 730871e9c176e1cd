package service

import (
	"context"
	"elearning_backend/internal/model"
	"elearning_backend/internal/repository"
	"elearning_backend/internal/util"
	"elearning_backend/pkg/logger"
	"elearning_backend/pkg/monitoring"
	"elearning_backend/pkg/tracing"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type EnrollmentService struct {
	DB             *gorm.DB
	EnrollmentRepo *repository.EnrollmentRepository
	CourseRepo     *repository.CourseRepository
	Now            func() time.Time
}

func NewEnrollmentService(db *gorm.DB, enrollmentRepo *repository.EnrollmentRepository, courseRepo *repository.CourseRepository) *EnrollmentService {
	return &EnrollmentService{
		DB:             db,
		EnrollmentRepo: enrollmentRepo,
		CourseRepo:     courseRepo,
		Now:            time.Now,
	}
}

// Enroll 报名记录与 course_students 关联在同一事务中写入
func (s *EnrollmentService) Enroll(ctx context.Context, actor *model.User, courseID uint) (enrollment *model.Enrollment, err error) {
	ctx, end := tracing.StartSpan(ctx, "EnrollmentService.Enroll",
		attribute.Int64("user.id", int64(actor.ID)),
		attribute.Int64("course.id", int64(courseID)),
	)
	defer func() { end(err) }()

	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	if !course.IsPublished {
		return nil, util.ErrCourseNotPublished
	}

	exists, err := s.EnrollmentRepo.Exists(ctx, actor.ID, courseID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, util.ErrAlreadyEnrolled
	}

	enrollment = model.NewEnrollment(actor.ID, courseID, s.Now())
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.EnrollmentRepo.WithTx(tx).Create(ctx, enrollment); err != nil {
			if repository.IsDuplicateKey(err) {
				return util.ErrAlreadyEnrolled
			}
			return err
		}
		return s.CourseRepo.WithTx(tx).AddStudent(ctx, courseID, actor.ID)
	})
	if err != nil {
		return nil, err
	}

	monitoring.EnrollmentsTotal.WithLabelValues("enroll").Inc()
	logger.Log.Info("Student enrolled",
		zap.Uint("user_id", actor.ID),
		zap.Uint("course_id", courseID),
		zap.Uint("enrollment_id", enrollment.ID),
	)
	return enrollment, nil
}

func (s *EnrollmentService) MyEnrollments(ctx context.Context, actor *model.User) ([]model.Enrollment, error) {
	return s.EnrollmentRepo.ListByStudent(ctx, actor.ID)
}

func (s *EnrollmentService) Progress(ctx context.Context, actor *model.User, courseID uint) (*model.Enrollment, error) {
	e, err := s.EnrollmentRepo.FindProgress(ctx, actor.ID, courseID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrEnrollmentNotFound
		}
		return nil, err
	}
	return e, nil
}

// CompleteLesson 锁定报名行后在事务内读取课时总数并写入完成记录，
// (enrollment_id, lesson_id) 唯一索引兜底并发重复提交
func (s *EnrollmentService) CompleteLesson(ctx context.Context, actor *model.User, courseID, lessonID uint) (enrollment *model.Enrollment, err error) {
	ctx, end := tracing.StartSpan(ctx, "EnrollmentService.CompleteLesson",
		attribute.Int64("user.id", int64(actor.ID)),
		attribute.Int64("course.id", int64(courseID)),
		attribute.Int64("lesson.id", int64(lessonID)),
	)
	defer func() { end(err) }()

	var courseCompleted bool
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		enrollmentRepo := s.EnrollmentRepo.WithTx(tx)
		courseRepo := s.CourseRepo.WithTx(tx)

		e, err := enrollmentRepo.FindForUpdate(ctx, actor.ID, courseID)
		if err != nil {
			if repository.IsNotFound(err) {
				return util.ErrEnrollmentNotFound
			}
			return err
		}

		if _, err := courseRepo.FindLesson(ctx, courseID, lessonID); err != nil {
			if repository.IsNotFound(err) {
				return util.ErrLessonNotFound
			}
			return err
		}

		total, err := courseRepo.CountLessons(ctx, courseID)
		if err != nil {
			return err
		}

		wasCompleted := e.IsCompleted
		cl := e.CompleteLesson(lessonID, int(total), s.Now())
		if cl == nil {
			return util.ErrLessonAlreadyCompleted
		}
		if err := enrollmentRepo.AddCompletedLesson(ctx, cl); err != nil {
			if repository.IsDuplicateKey(err) {
				return util.ErrLessonAlreadyCompleted
			}
			return err
		}
		if err := enrollmentRepo.SaveProgress(ctx, e); err != nil {
			return err
		}

		courseCompleted = !wasCompleted && e.IsCompleted
		enrollment = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.LessonCompletionsTotal.Inc()
	if courseCompleted {
		monitoring.CourseCompletionsTotal.Inc()
		logger.Log.Info("Course completed",
			zap.Uint("user_id", actor.ID),
			zap.Uint("course_id", courseID),
		)
	}
	return enrollment, nil
}

// Unenroll 幂等；studentID 为 0 时作用于操作者本人
func (s *EnrollmentService) Unenroll(ctx context.Context, actor *model.User, courseID, studentID uint) (err error) {
	ctx, end := tracing.StartSpan(ctx, "EnrollmentService.Unenroll",
		attribute.Int64("user.id", int64(actor.ID)),
		attribute.Int64("course.id", int64(courseID)),
	)
	defer func() { end(err) }()

	target := actor.ID
	if studentID != 0 {
		if !CanActOnEnrollment(actor.Role, actor.ID, studentID) {
			return util.ErrUnenrollForbidden
		}
		target = studentID
	}

	var removed bool
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		courseRepo := s.CourseRepo.WithTx(tx)

		deleted, err := s.EnrollmentRepo.WithTx(tx).Delete(ctx, target, courseID)
		if err != nil {
			return err
		}
		if err := courseRepo.RemoveStudent(ctx, courseID, target); err != nil {
			return err
		}
		if deleted {
			// 被删除的报名可能带有评分
			if _, err := courseRepo.RecalculateRating(ctx, courseID); err != nil {
				return err
			}
		}
		removed = deleted
		return nil
	})
	if err != nil {
		return err
	}

	if removed {
		monitoring.EnrollmentsTotal.WithLabelValues("unenroll").Inc()
		logger.Log.Info("Student unenrolled",
			zap.Uint("user_id", target),
			zap.Uint("course_id", courseID),
			zap.Uint("actor_id", actor.ID),
		)
	}
	return nil
}

// Review 覆盖旧评分，并在同一事务中重算课程 rating/numReviews
func (s *EnrollmentService) Review(ctx context.Context, actor *model.User, courseID uint, rating int, review string) (enrollment *model.Enrollment, err error) {
	ctx, end := tracing.StartSpan(ctx, "EnrollmentService.Review",
		attribute.Int64("user.id", int64(actor.ID)),
		attribute.Int64("course.id", int64(courseID)),
		attribute.Int("rating", rating),
	)
	defer func() { end(err) }()

	if rating < model.MinRating || rating > model.MaxRating {
		return nil, util.ErrInvalidRating
	}
	if utf8.RuneCountInString(review) > model.MaxReviewLength {
		return nil, util.ErrReviewTooLong
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		enrollmentRepo := s.EnrollmentRepo.WithTx(tx)

		e, err := enrollmentRepo.FindForUpdate(ctx, actor.ID, courseID)
		if err != nil {
			if repository.IsNotFound(err) {
				return util.ErrNotEnrolledForReview
			}
			return err
		}

		e.SetReview(rating, review)
		if err := enrollmentRepo.SaveReview(ctx, e); err != nil {
			return err
		}
		if _, err := s.CourseRepo.WithTx(tx).RecalculateRating(ctx, courseID); err != nil {
			return err
		}
		enrollment = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.CourseReviewsTotal.Inc()
	return enrollment, nil
}
