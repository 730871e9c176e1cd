package controller

import (
	"bytes"
	"elearning_backend/internal/config"
	"elearning_backend/internal/middleware"
	"elearning_backend/internal/model"
	"elearning_backend/internal/repository"
	"elearning_backend/internal/service"
	"elearning_backend/internal/testutil"
	"elearning_backend/internal/util"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiFixture struct {
	db      *gorm.DB
	router  *gin.Engine
	cfg     *config.Config
	student *model.User
	admin   *model.User
	course  *model.Course
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	db := testutil.DB(t)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "api-secret", ExpireTime: time.Hour}}

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollRepo := repository.NewEnrollmentRepository(db)
	enrollments := NewEnrollmentController(service.NewEnrollmentService(db, enrollRepo, courseRepo))

	r := gin.New()
	g := r.Group("/api/enrollments")
	g.Use(middleware.AuthMiddleware(cfg, userRepo))
	{
		g.POST("/enroll/:courseId", enrollments.Enroll)
		g.GET("/my-courses", enrollments.MyCourses)
		g.GET("/progress/:courseId", enrollments.Progress)
		g.POST("/complete-lesson/:courseId/:lessonId", enrollments.CompleteLesson)
		g.DELETE("/unenroll/:courseId", enrollments.Unenroll)
		g.POST("/review/:courseId", enrollments.Review)
	}

	instructor := testutil.CreateUser(t, db, "instructor@example.com", model.Instructor)
	return &apiFixture{
		db:      db,
		router:  r,
		cfg:     cfg,
		student: testutil.CreateUser(t, db, "student@example.com", model.Student),
		admin:   testutil.CreateUser(t, db, "admin@example.com", model.Admin),
		course:  testutil.CreateCourse(t, db, instructor.ID, true, 2),
	}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Count   *int            `json:"count"`
	Data    json.RawMessage `json:"data"`
}

func (f *apiFixture) do(t *testing.T, as *model.User, method, path string, body interface{}) (int, apiResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		token, err := util.GenerateJWT(as, f.cfg.JWT.Secret, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestEnrollmentAPI_Flow(t *testing.T) {
	f := newAPIFixture(t)
	courseID := f.course.ID

	code, resp := f.do(t, f.student, http.MethodPost, fmt.Sprintf("/api/enrollments/enroll/%d", courseID), nil)
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, resp.Success)
	assert.Equal(t, "Successfully enrolled in course", resp.Message)

	code, resp = f.do(t, f.student, http.MethodPost, fmt.Sprintf("/api/enrollments/enroll/%d", courseID), nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, resp.Success)
	assert.Equal(t, "Already enrolled in this course", resp.Message)

	path := fmt.Sprintf("/api/enrollments/complete-lesson/%d/%d", courseID, f.course.Lessons[0].ID)
	code, resp = f.do(t, f.student, http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Lesson marked as complete", resp.Message)
	var enrollment model.Enrollment
	require.NoError(t, json.Unmarshal(resp.Data, &enrollment))
	assert.Equal(t, 50, enrollment.Progress)

	code, resp = f.do(t, f.student, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Lesson already completed", resp.Message)

	code, resp = f.do(t, f.student, http.MethodGet, "/api/enrollments/my-courses", nil)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, resp.Count)
	assert.Equal(t, 1, *resp.Count)

	code, resp = f.do(t, f.student, http.MethodPost, fmt.Sprintf("/api/enrollments/review/%d", courseID), ReviewRequest{Rating: 5, Review: "Great"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Review added successfully", resp.Message)

	code, resp = f.do(t, f.student, http.MethodDelete, fmt.Sprintf("/api/enrollments/unenroll/%d", courseID), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Successfully unenrolled from course", resp.Message)

	code, _ = f.do(t, f.student, http.MethodGet, fmt.Sprintf("/api/enrollments/progress/%d", courseID), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestEnrollmentAPI_Errors(t *testing.T) {
	f := newAPIFixture(t)
	courseID := f.course.ID

	code, resp := f.do(t, nil, http.MethodGet, "/api/enrollments/my-courses", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Access denied. No token provided.", resp.Message)

	code, resp = f.do(t, f.student, http.MethodPost, "/api/enrollments/enroll/9999", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Course not found", resp.Message)

	code, resp = f.do(t, f.student, http.MethodPost, fmt.Sprintf("/api/enrollments/review/%d", courseID), ReviewRequest{Rating: 3})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Must be enrolled to review this course", resp.Message)

	code, _ = f.do(t, f.student, http.MethodPost, fmt.Sprintf("/api/enrollments/enroll/%d", courseID), nil)
	require.Equal(t, http.StatusCreated, code)

	code, resp = f.do(t, f.student, http.MethodPost, fmt.Sprintf("/api/enrollments/review/%d", courseID), ReviewRequest{Rating: 9})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Rating must be between 1 and 5", resp.Message)

	code, resp = f.do(t, f.student, http.MethodDelete, fmt.Sprintf("/api/enrollments/unenroll/%d?studentId=%d", courseID, f.admin.ID), nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Not authorized to unenroll this student", resp.Message)

	code, _ = f.do(t, f.admin, http.MethodDelete, fmt.Sprintf("/api/enrollments/unenroll/%d?studentId=%d", courseID, f.student.ID), nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = f.do(t, f.student, http.MethodGet, fmt.Sprintf("/api/enrollments/progress/%d", courseID), nil)
	assert.Equal(t, http.StatusNotFound, code)
}
