package service

import (
	"context"
	"elearning_backend/internal/model"
	"elearning_backend/internal/repository"
	"elearning_backend/internal/util"
	"elearning_backend/pkg/logger"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CourseService struct {
	DB             *gorm.DB
	CourseRepo     *repository.CourseRepository
	EnrollmentRepo *repository.EnrollmentRepository
	UserRepo       *repository.UserRepository
}

func NewCourseService(db *gorm.DB, courseRepo *repository.CourseRepository, enrollmentRepo *repository.EnrollmentRepository, userRepo *repository.UserRepository) *CourseService {
	return &CourseService{
		DB:             db,
		CourseRepo:     courseRepo,
		EnrollmentRepo: enrollmentRepo,
		UserRepo:       userRepo,
	}
}

// CreateCourseInput rating/numReviews/totalDuration 不接受客户端输入
type CreateCourseInput struct {
	Title            string   `json:"title" binding:"required,max=100"`
	Description      string   `json:"description" binding:"required,max=1000"`
	Category         string   `json:"category" binding:"required,oneof=Programming Design Business Marketing Music Photography Other"`
	Level            string   `json:"level" binding:"required,oneof=Beginner Intermediate Advanced"`
	Price            float64  `json:"price" binding:"gte=0"`
	Thumbnail        string   `json:"thumbnail" binding:"max=255"`
	Requirements     []string `json:"requirements"`
	WhatYouWillLearn []string `json:"whatYouWillLearn"`
	Tags             []string `json:"tags"`
	IsPublished      bool     `json:"isPublished"`
}

type UpdateCourseInput struct {
	Title            *string   `json:"title" binding:"omitempty,max=100"`
	Description      *string   `json:"description" binding:"omitempty,max=1000"`
	Category         *string   `json:"category" binding:"omitempty,oneof=Programming Design Business Marketing Music Photography Other"`
	Level            *string   `json:"level" binding:"omitempty,oneof=Beginner Intermediate Advanced"`
	Price            *float64  `json:"price" binding:"omitempty,gte=0"`
	Thumbnail        *string   `json:"thumbnail" binding:"omitempty,max=255"`
	Requirements     *[]string `json:"requirements"`
	WhatYouWillLearn *[]string `json:"whatYouWillLearn"`
	Tags             *[]string `json:"tags"`
	IsPublished      *bool     `json:"isPublished"`
}

type LessonInput struct {
	Title     string                 `json:"title" binding:"required,max=200"`
	Content   string                 `json:"content" binding:"required"`
	VideoURL  string                 `json:"videoUrl" binding:"max=500"`
	Duration  int                    `json:"duration" binding:"gte=0"`
	Resources []model.LessonResource `json:"resources"`
}

type UpdateLessonInput struct {
	Title     *string                 `json:"title" binding:"omitempty,max=200"`
	Content   *string                 `json:"content"`
	VideoURL  *string                 `json:"videoUrl" binding:"omitempty,max=500"`
	Duration  *int                    `json:"duration" binding:"omitempty,gte=0"`
	Resources *[]model.LessonResource `json:"resources"`
}

func jsonStrings(in []string) datatypes.JSONSlice[string] {
	if in == nil {
		return datatypes.JSONSlice[string]{}
	}
	return datatypes.JSONSlice[string](in)
}

func validResources(in []model.LessonResource) (datatypes.JSONSlice[model.LessonResource], error) {
	for _, r := range in {
		if !r.Type.Valid() {
			return nil, util.ErrInvalidResource
		}
	}
	if in == nil {
		return datatypes.JSONSlice[model.LessonResource]{}, nil
	}
	return datatypes.JSONSlice[model.LessonResource](in), nil
}

func (s *CourseService) List(ctx context.Context, filter repository.CourseFilter, page, limit int) ([]model.Course, int64, error) {
	return s.CourseRepo.List(ctx, filter, page, limit)
}

func (s *CourseService) Get(ctx context.Context, id uint) (*model.Course, error) {
	course, err := s.CourseRepo.FindDetail(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	return course, nil
}

func (s *CourseService) Lessons(ctx context.Context, courseID uint) ([]model.Lesson, error) {
	if _, err := s.CourseRepo.FindByID(ctx, courseID); err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	return s.CourseRepo.ListLessons(ctx, courseID)
}

// Authorize 加载课程并校验操作者是否可以管理
func (s *CourseService) Authorize(ctx context.Context, actor *model.User, courseID uint) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	if !CanManageCourse(actor.Role, actor.ID, course.InstructorID) {
		return nil, util.ErrPermissionDenied
	}
	return course, nil
}

// lockManaged 事务内锁定课程行并校验权限，同一课程的课时变更因此串行执行
func lockManaged(ctx context.Context, repo *repository.CourseRepository, actor *model.User, courseID uint) (*model.Course, error) {
	course, err := repo.FindByIDForUpdate(ctx, courseID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	if !CanManageCourse(actor.Role, actor.ID, course.InstructorID) {
		return nil, util.ErrPermissionDenied
	}
	return course, nil
}

func (s *CourseService) Create(ctx context.Context, actor *model.User, in CreateCourseInput) (*model.Course, error) {
	thumbnail := strings.TrimSpace(in.Thumbnail)
	if thumbnail == "" {
		thumbnail = model.DefaultCourseThumbnail
	}

	course := &model.Course{
		Title:            strings.TrimSpace(in.Title),
		Description:      in.Description,
		InstructorID:     actor.ID,
		Category:         model.CourseCategory(in.Category),
		Level:            model.CourseLevel(in.Level),
		Price:            in.Price,
		Thumbnail:        thumbnail,
		Requirements:     jsonStrings(in.Requirements),
		WhatYouWillLearn: jsonStrings(in.WhatYouWillLearn),
		Tags:             jsonStrings(in.Tags),
		IsPublished:      in.IsPublished,
	}
	if err := s.CourseRepo.Create(ctx, course); err != nil {
		return nil, err
	}

	logger.Log.Info("Course created", zap.Uint("course_id", course.ID), zap.Uint("instructor_id", actor.ID))
	return course, nil
}

func (s *CourseService) Update(ctx context.Context, actor *model.User, courseID uint, in UpdateCourseInput) (*model.Course, error) {
	fields := map[string]interface{}{}
	if in.Title != nil {
		fields["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Category != nil {
		fields["category"] = *in.Category
	}
	if in.Level != nil {
		fields["level"] = *in.Level
	}
	if in.Price != nil {
		fields["price"] = *in.Price
	}
	if in.Thumbnail != nil {
		fields["thumbnail"] = *in.Thumbnail
	}
	if in.Requirements != nil {
		fields["requirements"] = jsonStrings(*in.Requirements)
	}
	if in.WhatYouWillLearn != nil {
		fields["what_you_will_learn"] = jsonStrings(*in.WhatYouWillLearn)
	}
	if in.Tags != nil {
		fields["tags"] = jsonStrings(*in.Tags)
	}
	if in.IsPublished != nil {
		fields["is_published"] = *in.IsPublished
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		courseRepo := s.CourseRepo.WithTx(tx)
		if _, err := lockManaged(ctx, courseRepo, actor, courseID); err != nil {
			return err
		}
		if len(fields) == 0 {
			return nil
		}
		return courseRepo.Update(ctx, courseID, fields)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, courseID)
}

// Delete 课程、课时、报名、完成记录和名单在同一事务中删除
func (s *CourseService) Delete(ctx context.Context, actor *model.User, courseID uint) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		courseRepo := s.CourseRepo.WithTx(tx)
		if _, err := lockManaged(ctx, courseRepo, actor, courseID); err != nil {
			return err
		}
		return courseRepo.Delete(ctx, courseID)
	})
	if err != nil {
		return err
	}

	logger.Log.Info("Course deleted", zap.Uint("course_id", courseID), zap.Uint("actor_id", actor.ID))
	return nil
}

// AddLesson 新课时序号为当前最大序号 +1，并在同一事务中重算课程总时长
func (s *CourseService) AddLesson(ctx context.Context, actor *model.User, courseID uint, in LessonInput) (*model.Lesson, error) {
	resources, err := validResources(in.Resources)
	if err != nil {
		return nil, err
	}

	lesson := &model.Lesson{
		CourseID:  courseID,
		Title:     strings.TrimSpace(in.Title),
		Content:   in.Content,
		VideoURL:  in.VideoURL,
		Duration:  in.Duration,
		Resources: resources,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		courseRepo := s.CourseRepo.WithTx(tx)
		if _, err := lockManaged(ctx, courseRepo, actor, courseID); err != nil {
			return err
		}

		lessons, err := courseRepo.ListLessons(ctx, courseID)
		if err != nil {
			return err
		}
		lesson.Order = model.NextLessonOrder(lessons)

		if err := courseRepo.CreateLesson(ctx, lesson); err != nil {
			return err
		}
		_, err = courseRepo.RecalculateTotalDuration(ctx, courseID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *CourseService) UpdateLesson(ctx context.Context, actor *model.User, courseID, lessonID uint, in UpdateLessonInput) (*model.Lesson, error) {
	fields := map[string]interface{}{}
	if in.Title != nil {
		fields["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		fields["content"] = *in.Content
	}
	if in.VideoURL != nil {
		fields["video_url"] = *in.VideoURL
	}
	if in.Duration != nil {
		fields["duration"] = *in.Duration
	}
	if in.Resources != nil {
		resources, err := validResources(*in.Resources)
		if err != nil {
			return nil, err
		}
		fields["resources"] = resources
	}

	var lesson *model.Lesson
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		courseRepo := s.CourseRepo.WithTx(tx)
		if _, err := lockManaged(ctx, courseRepo, actor, courseID); err != nil {
			return err
		}
		if _, err := courseRepo.FindLesson(ctx, courseID, lessonID); err != nil {
			if repository.IsNotFound(err) {
				return util.ErrLessonNotFound
			}
			return err
		}

		if len(fields) > 0 {
			if err := courseRepo.UpdateLesson(ctx, lessonID, fields); err != nil {
				return err
			}
			if _, err := courseRepo.RecalculateTotalDuration(ctx, courseID); err != nil {
				return err
			}
		}

		updated, err := courseRepo.FindLesson(ctx, courseID, lessonID)
		if err != nil {
			return err
		}
		lesson = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lesson, nil
}

// DeleteLesson 其余课时不重新编号
func (s *CourseService) DeleteLesson(ctx context.Context, actor *model.User, courseID, lessonID uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		courseRepo := s.CourseRepo.WithTx(tx)
		if _, err := lockManaged(ctx, courseRepo, actor, courseID); err != nil {
			return err
		}
		if _, err := courseRepo.FindLesson(ctx, courseID, lessonID); err != nil {
			if repository.IsNotFound(err) {
				return util.ErrLessonNotFound
			}
			return err
		}
		if err := courseRepo.DeleteLesson(ctx, courseID, lessonID); err != nil {
			return err
		}
		_, err := courseRepo.RecalculateTotalDuration(ctx, courseID)
		return err
	})
}

// ReconcileAggregates 从源数据重算所有课程的 rating/numReviews/totalDuration
func (s *CourseService) ReconcileAggregates(ctx context.Context) error {
	ids, err := s.CourseRepo.ListIDs(ctx)
	if err != nil {
		return err
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			courseRepo := s.CourseRepo.WithTx(tx)
			if _, err := courseRepo.RecalculateTotalDuration(ctx, id); err != nil {
				return err
			}
			_, err := courseRepo.RecalculateRating(ctx, id)
			return err
		})
		if err != nil {
			logger.Log.Error("Failed to reconcile course aggregates", zap.Uint("course_id", id), zap.Error(err))
			return err
		}
	}

	logger.Log.Info("Course aggregates reconciled", zap.Int("courses", len(ids)))
	return nil
}
