package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindInvalidState, http.StatusBadRequest},
		{KindConflict, http.StatusBadRequest},
		{KindValidation, http.StatusBadRequest},
		{KindForbidden, http.StatusForbidden},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.kind))
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindConflict, KindOf(ErrAlreadyEnrolled))
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("load: %w", ErrCourseNotFound)))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"not found", ErrEnrollmentNotFound, http.StatusNotFound, "Enrollment not found"},
		{"invalid state", ErrCourseNotPublished, http.StatusBadRequest, "Cannot enroll in unpublished course"},
		{"forbidden", ErrPermissionDenied, http.StatusForbidden, "Not authorized to modify this course"},
		{"internal hides detail", errors.New("dial tcp: refused"), http.StatusInternalServerError, "Server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			HandleError(c, tt.err)

			assert.Equal(t, tt.code, w.Code)
			var resp Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.message, resp.Message)
		})
	}
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 10, 25)
	assert.Equal(t, 3, p.Pages)
	assert.Equal(t, 0, NewPagination(1, 10, 0).Pages)
}
