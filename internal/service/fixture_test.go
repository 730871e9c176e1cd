package service

import (
	"elearning_backend/internal/model"
	"elearning_backend/internal/repository"
	"elearning_backend/internal/testutil"
	"testing"
	"time"

	"gorm.io/gorm"
)

type fixture struct {
	db          *gorm.DB
	clock       *testutil.FixedClock
	userRepo    *repository.UserRepository
	courseRepo  *repository.CourseRepository
	enrollRepo  *repository.EnrollmentRepository
	enrollments *EnrollmentService
	courses     *CourseService
	users       *UserService

	admin      *model.User
	instructor *model.User
	student    *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)

	f := &fixture{
		db:         db,
		clock:      &testutil.FixedClock{T: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)},
		userRepo:   repository.NewUserRepository(db),
		courseRepo: repository.NewCourseRepository(db),
		enrollRepo: repository.NewEnrollmentRepository(db),
	}
	f.enrollments = NewEnrollmentService(db, f.enrollRepo, f.courseRepo)
	f.enrollments.Now = f.clock.Now
	f.courses = NewCourseService(db, f.courseRepo, f.enrollRepo, f.userRepo)
	f.users = NewUserService(db, f.userRepo, f.courseRepo)

	f.admin = testutil.CreateUser(t, db, "admin@example.com", model.Admin)
	f.instructor = testutil.CreateUser(t, db, "instructor@example.com", model.Instructor)
	f.student = testutil.CreateUser(t, db, "student@example.com", model.Student)
	return f
}

func (f *fixture) reloadCourse(t *testing.T, id uint) *model.Course {
	t.Helper()
	c, err := f.courseRepo.FindByID(t.Context(), id)
	if err != nil {
		t.Fatalf("reload course %d: %v", id, err)
	}
	return c
}
