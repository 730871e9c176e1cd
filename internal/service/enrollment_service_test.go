package service

import (
	"context"
	"elearning_backend/internal/model"
	"elearning_backend/internal/testutil"
	"elearning_backend/internal/util"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnroll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course := testutil.CreateCourse(t, f.db, f.instructor.ID, true, 2)

	e, err := f.enrollments.Enroll(ctx, f.student, course.ID)
	require.NoError(t, err)
	assert.Equal(t, f.student.ID, e.StudentID)
	assert.Equal(t, course.ID, e.CourseID)
	assert.Equal(t, 0, e.Progress)
	assert.False(t, e.IsCompleted)
	assert.Equal(t, f.clock.T, e.EnrollmentDate)

	onRoster, err := f.courseRepo.IsStudentEnrolled(ctx, course.ID, f.student.ID)
	require.NoError(t, err)
	assert.True(t, onRoster)

	detail, err := f.courses.Get(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), detail.EnrollmentCount)
}

func TestEnroll_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	published := testutil.CreateCourse(t, f.db, f.instructor.ID, true, 1)
	draft := testutil.CreateCourse(t, f.db, f.instructor.ID, false, 1)

	_, err := f.enrollments.Enroll(ctx, f.student, published.ID)
	require.NoError(t, err)

	_, err = f.enrollments.Enroll(ctx, f.student, published.ID)
	assert.ErrorIs(t, err, util.ErrAlreadyEnrolled)

	_, err = f.enrollments.Enroll(ctx, f.student, draft.ID)
	assert.ErrorIs(t, err, util.ErrCourseNotPublished)

	_, err = f.enrollments.Enroll(ctx, f.student, 9999)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)

	list, err := f.enrollments.MyEnrollments(ctx, f.student)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCompleteLesson_ProgressThroughCourse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course := testutil.CreateCourse(t, f.db, f.instructor.ID, true, 4)

	_, err := f.enrollments.Enroll(ctx, f.student, course.ID)
	require.NoError(t, err)

	want := []int{25, 50, 75}
	for i, lesson := range course.Lessons[:3] {
		f.clock.Advance(time.Hour)
		e, err := f.enrollments.CompleteLesson(ctx, f.student, course.ID, lesson.ID)
		require.NoError(t, err)
		assert.Equal(t, want[i], e.Progress)
		assert.False(t, e.IsCompleted)
		assert.Nil(t, e.CompletionDate)
	}

	f.clock.Advance(time.Hour)
	finishedAt := f.clock.T
	e, err := f.enrollments.CompleteLesson(ctx, f.student, course.ID, course.Lessons[3].ID)
	require.NoError(t, err)
	assert.Equal(t, 100, e.Progress)
	assert.True(t, e.IsCompleted)
	require.NotNil(t, e.CompletionDate)
	assert.True(t, finishedAt.Equal(*e.CompletionDate))

	f.clock.Advance(time.Hour)
	_, err = f.enrollments.CompleteLesson(ctx, f.student, course.ID, course.Lessons[0].ID)
	assert.ErrorIs(t, err, util.ErrLessonAlreadyCompleted)

	progress, err := f.enrollments.Progress(ctx, f.student, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, progress.Progress)
	assert.True(t, progress.IsCompleted)
	require.NotNil(t, progress.CompletionDate)
	assert.True(t, finishedAt.Equal(*progress.CompletionDate))
	assert.Len(t, progress.CompletedLessons, 4)
	require.NotNil(t, progress.Course)
	require.Len(t, progress.Course.Lessons, 4)
	assert.Equal(t, 1, progress.Course.Lessons[0].Order)
	require.NotNil(t, progress.LastAccessedLessonID)
	assert.Equal(t, course.Lessons[3].ID, *progress.LastAccessedLessonID)
}

func TestCompleteLesson_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course := testutil.CreateCourse(t, f.db, f.instructor.ID, true, 2)
	other := testutil.CreateCourse(t, f.db, f.instructor.ID, true, 1)

	_, err := f.enrollments.CompleteLesson(ctx, f.student, course.ID, course.Lessons[0].ID)
	assert.ErrorIs(t, err, util.ErrEnrollmentNotFound)

	_, err = f.enrollments.Enroll(ctx, f.student, course.ID)
	require.NoError(t, err)

	_, err = f.enrollments.CompleteLesson(ctx, f.student, course.ID, other.Lessons[0].ID)
	assert.ErrorIs(t, err, util.ErrLessonNotFound)

	e, err := f.enrollments.CompleteLesson(ctx, f.student, course.ID, course.Lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 50, e.Progress)

	_, err = f.enrollments.CompleteLesson(ctx, f.student, course.ID, course.Lessons[0].ID)
	assert.ErrorIs(t, err, util.ErrLessonAlreadyCompleted)

	progress, err := f.enrollments.Progress(ctx, f.student, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, progress.Progress)
	assert.Len(t, progress.CompletedLessons, 1)
}

func TestProgress_NotEnrolled(t *testing.T) {
	f := newFixture(t)
	course := testutil.CreateCourse(t, f.db, f.instructor.ID, true, 1)

	_, err := f.enrollments.Progress(context.Background(), f.student, course.ID)
	assert.ErrorIs(t, err, util.ErrEnrollmentNotFound)
}

func TestMyEnrollments_NewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := testutil.CreateCourse(t, f.db, f.instructor.ID, true, 1)
	second := testutil.CreateCourse(t, f.db, f.instructor.ID, true, 1)

	_, err := f.enrollments.Enroll(ctx, f.student, first.ID)
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	_, err = f.enrollments.Enroll(ctx, f.student, second.ID)
	require.NoError(t, err)

	list, err := f.enrollments.MyEnrollments(ctx, f.student)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].CourseID)
	assert.Equal(t, first.ID, list[1].CourseID)
	require.NotNil(t, list[0].Course)
	assert.Equal(t, second.Title, list[0].Course.Title)
	require.NotNil(t, list[0].Course.Instructor)
	assert.Equal(t, f.instructor.FirstName, list[0].Course.Instructor.FirstName)
}

func TestUnenroll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course := testutil.CreateCourse(t, f.db, f.instructor.ID, true, 2)

	_, err := f.enrollments.Enroll(ctx, f.student, course.ID)
	require.NoError(t, err)
	_, err = f.enrollments.CompleteLesson(ctx, f.student, course.ID, course.Lessons[0].ID)
	require.NoError(t, err)

	require.NoError(t, f.enrollments.Unenroll(ctx, f.student, course.ID, 0))

	_, err = f.enrollments.Progress(ctx, f.student, course.ID)
	assert.ErrorIs(t, err, util.ErrEnrollmentNotFound)

	onRoster, err := f.courseRepo.IsStudentEnrolled(ctx, course.ID, f.student.ID)
	require.NoError(t, err)
	assert.False(t, onRoster)

	var completed int64
	require.NoError(t, f.db.Model(&model.CompletedLesson{}).Count(&completed).Error)
	assert.Zero(t, completed)

	// 再次取消报名不报错
	assert.NoError(t, f.enrollments.Unenroll(ctx, f.student, course.ID, 0))

	// 取消后可以重新报名，进度从 0 开始
	e, err := f.enrollments.Enroll(ctx, f.student, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, e.Progress)
}

func TestUnenroll_OtherStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course := testutil.CreateCourse(t, f.db, f.instructor.ID, true, 1)
	classmate := testutil.CreateUser(t, f.db, "classmate@example.com", model.Student)

	_, err := f.enrollments.Enroll(ctx, classmate, course.ID)
	require.NoError(t, err)

	err = f.enrollments.Unenroll(ctx, f.student, course.ID, classmate.ID)
	assert.ErrorIs(t, err, util.ErrUnenrollForbidden)

	err = f.enrollments.Unenroll(ctx, f.instructor, course.ID, classmate.ID)
	assert.ErrorIs(t, err, util.ErrUnenrollForbidden)

	require.NoError(t, f.enrollments.Unenroll(ctx, f.admin, course.ID, classmate.ID))
	_, err = f.enrollments.Progress(ctx, classmate, course.ID)
	assert.ErrorIs(t, err, util.ErrEnrollmentNotFound)
}

func TestReview_RecalculatesCourseRating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course := testutil.CreateCourse(t, f.db, f.instructor.ID, true, 1)
	classmate := testutil.CreateUser(t, f.db, "classmate@example.com", model.Student)

	for _, u := range []*model.User{f.student, classmate} {
		_, err := f.enrollments.Enroll(ctx, u, course.ID)
		require.NoError(t, err)
	}

	e, err := f.enrollments.Review(ctx, f.student, course.ID, 4, "Solid")
	require.NoError(t, err)
	require.NotNil(t, e.Rating)
	assert.Equal(t, 4, *e.Rating)
	assert.Equal(t, "Solid", e.Review)

	_, err = f.enrollments.Review(ctx, classmate, course.ID, 5, "")
	require.NoError(t, err)

	c := f.reloadCourse(t, course.ID)
	assert.InDelta(t, 4.5, c.Rating, 1e-9)
	assert.Equal(t, 2, c.NumReviews)

	// 再次评价覆盖旧评分，评价人数不变
	_, err = f.enrollments.Review(ctx, f.student, course.ID, 2, "Changed my mind")
	require.NoError(t, err)
	c = f.reloadCourse(t, course.ID)
	assert.InDelta(t, 3.5, c.Rating, 1e-9)
	assert.Equal(t, 2, c.NumReviews)

	// 取消报名后评分随之移除
	require.NoError(t, f.enrollments.Unenroll(ctx, classmate, course.ID, 0))
	c = f.reloadCourse(t, course.ID)
	assert.InDelta(t, 2.0, c.Rating, 1e-9)
	assert.Equal(t, 1, c.NumReviews)
}

func TestReview_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course := testutil.CreateCourse(t, f.db, f.instructor.ID, true, 1)

	_, err := f.enrollments.Review(ctx, f.student, course.ID, 5, "great")
	assert.ErrorIs(t, err, util.ErrNotEnrolledForReview)

	_, err = f.enrollments.Enroll(ctx, f.student, course.ID)
	require.NoError(t, err)

	for _, rating := range []int{0, 6, -1} {
		_, err = f.enrollments.Review(ctx, f.student, course.ID, rating, "")
		assert.ErrorIs(t, err, util.ErrInvalidRating)
	}

	_, err = f.enrollments.Review(ctx, f.student, course.ID, 3, strings.Repeat("好", 501))
	assert.ErrorIs(t, err, util.ErrReviewTooLong)

	_, err = f.enrollments.Review(ctx, f.student, course.ID, 3, strings.Repeat("好", 500))
	assert.NoError(t, err)

	c := f.reloadCourse(t, course.ID)
	assert.Equal(t, 1, c.NumReviews)
}
