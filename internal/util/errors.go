package util

import "errors"

// ErrorKind 业务错误分类，由 HandleError 映射为 HTTP 状态码
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindInvalidState
	KindConflict
	KindValidation
	KindForbidden
	KindUnauthorized
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindInvalidState:
		return "InvalidState"
	case KindConflict:
		return "Conflict"
	case KindValidation:
		return "ValidationError"
	case KindForbidden:
		return "Forbidden"
	case KindUnauthorized:
		return "Unauthorized"
	}
	return "Internal"
}

type AppError struct {
	Kind    ErrorKind
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

func NewError(kind ErrorKind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// KindOf 非 AppError 一律视为 Internal
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

var (
	ErrUserNotFound       = NewError(KindNotFound, "User not found")
	ErrEmailRegistered    = NewError(KindConflict, "User already exists with this email")
	ErrInvalidCredentials = NewError(KindUnauthorized, "Invalid credentials")
	ErrAccountDeactivated = NewError(KindUnauthorized, "Account is deactivated")
	ErrIncorrectPassword  = NewError(KindUnauthorized, "Current password is incorrect")
	ErrInvalidResetToken  = NewError(KindValidation, "Invalid or expired reset token")
	ErrInvalidRole        = NewError(KindValidation, "Invalid role")
	ErrUserOwnsCourses    = NewError(KindInvalidState, "Cannot delete a user who still owns courses")

	ErrCourseNotFound   = NewError(KindNotFound, "Course not found")
	ErrLessonNotFound   = NewError(KindNotFound, "Lesson not found")
	ErrPermissionDenied = NewError(KindForbidden, "Not authorized to modify this course")
	ErrInvalidResource  = NewError(KindValidation, "Resource type must be one of pdf, video, link, document")

	ErrCourseNotPublished     = NewError(KindInvalidState, "Cannot enroll in unpublished course")
	ErrAlreadyEnrolled        = NewError(KindConflict, "Already enrolled in this course")
	ErrEnrollmentNotFound     = NewError(KindNotFound, "Enrollment not found")
	ErrNotEnrolledForReview   = NewError(KindNotFound, "Must be enrolled to review this course")
	ErrLessonAlreadyCompleted = NewError(KindConflict, "Lesson already completed")
	ErrInvalidRating          = NewError(KindValidation, "Rating must be between 1 and 5")
	ErrReviewTooLong          = NewError(KindValidation, "Review cannot exceed 500 characters")
	ErrUnenrollForbidden      = NewError(KindForbidden, "Not authorized to unenroll this student")
)
