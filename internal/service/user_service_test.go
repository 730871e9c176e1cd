package service

import (
	"context"
	"elearning_backend/internal/model"
	"elearning_backend/internal/repository"
	"elearning_backend/internal/testutil"
	"elearning_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_CreateAndUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inactive := false
	u, err := f.users.Create(ctx, CreateUserInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ADA@Example.com",
		Password:  "secret1",
		Role:      string(model.Instructor),
		IsActive:  &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, model.Instructor, u.Role)
	assert.False(t, u.IsActive)
	assert.NotEqual(t, "secret1", u.Password)

	_, err = f.users.Create(ctx, CreateUserInput{
		FirstName: "Dup",
		LastName:  "User",
		Email:     "ada@example.com",
		Password:  "secret1",
	})
	assert.ErrorIs(t, err, util.ErrEmailRegistered)

	active := true
	role := string(model.Admin)
	updated, err := f.users.Update(ctx, u.ID, UpdateUserInput{IsActive: &active, Role: &role})
	require.NoError(t, err)
	assert.True(t, updated.IsActive)
	assert.Equal(t, model.Admin, updated.Role)

	taken := f.student.Email
	_, err = f.users.Update(ctx, u.ID, UpdateUserInput{Email: &taken})
	assert.ErrorIs(t, err, util.ErrEmailRegistered)

	_, err = f.users.Update(ctx, 9999, UpdateUserInput{Role: &role})
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}

func TestUserService_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.CreateUser(t, f.db, "second.student@example.com", model.Student)

	list, total, err := f.users.List(ctx, repository.UserFilter{Role: string(model.Student)}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)

	list, total, err = f.users.List(ctx, repository.UserFilter{Search: "INSTRUCTOR"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, f.instructor.ID, list[0].ID)

	list, total, err = f.users.List(ctx, repository.UserFilter{}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, list, 2)
}

func TestUserService_Get(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course := testutil.CreateCourse(t, f.db, f.instructor.ID, true, 1)
	_, err := f.enrollments.Enroll(ctx, f.student, course.ID)
	require.NoError(t, err)

	student, err := f.users.Get(ctx, f.student.ID)
	require.NoError(t, err)
	require.Len(t, student.EnrolledCourses, 1)
	assert.Equal(t, course.Title, student.EnrolledCourses[0].Title)

	owner, err := f.users.Get(ctx, f.instructor.ID)
	require.NoError(t, err)
	require.Len(t, owner.CreatedCourses, 1)
	assert.Equal(t, course.ID, owner.CreatedCourses[0].ID)

	_, err = f.users.Get(ctx, 9999)
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}

func TestUserService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course := testutil.CreateCourse(t, f.db, f.instructor.ID, true, 1)
	classmate := testutil.CreateUser(t, f.db, "classmate@example.com", model.Student)

	for u, rating := range map[*model.User]int{f.student: 5, classmate: 3} {
		_, err := f.enrollments.Enroll(ctx, u, course.ID)
		require.NoError(t, err)
		_, err = f.enrollments.Review(ctx, u, course.ID, rating, "")
		require.NoError(t, err)
	}
	_, err := f.enrollments.CompleteLesson(ctx, f.student, course.ID, course.Lessons[0].ID)
	require.NoError(t, err)

	err = f.users.Delete(ctx, f.instructor.ID)
	assert.ErrorIs(t, err, util.ErrUserOwnsCourses)

	require.NoError(t, f.users.Delete(ctx, f.student.ID))

	_, err = f.users.Get(ctx, f.student.ID)
	assert.ErrorIs(t, err, util.ErrUserNotFound)

	c := f.reloadCourse(t, course.ID)
	assert.InDelta(t, 3.0, c.Rating, 1e-9)
	assert.Equal(t, 1, c.NumReviews)

	var n int64
	require.NoError(t, f.db.Model(&model.CompletedLesson{}).Count(&n).Error)
	assert.Zero(t, n)
	onRoster, err := f.courseRepo.IsStudentEnrolled(ctx, course.ID, f.student.ID)
	require.NoError(t, err)
	assert.False(t, onRoster)

	err = f.users.Delete(ctx, f.student.ID)
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}
