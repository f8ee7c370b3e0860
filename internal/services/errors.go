package services

import (
	"errors"
	"fmt"
)

var (
	ErrValidationFailed = errors.New("validation failed")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")

	ErrProfileNotFound = errors.New("profile not found")
	ErrCourseNotFound  = errors.New("course not found")
	ErrLessonNotFound  = errors.New("lesson not found")
	ErrShellNotFound   = errors.New("shell not found")

	ErrCourseNotPublished = errors.New("course is not published")
	ErrNotEnrolled        = errors.New("not enrolled in course")
	ErrStudentOnly        = errors.New("only students can do this")
	ErrTeacherOnly        = errors.New("only teachers can do this")
	ErrLessonOrder        = errors.New("lesson order does not match course lessons")

	ErrInvalidInvite   = errors.New("invalid or expired invite code")
	ErrInvalidCover    = errors.New("cover must be an image")
	ErrCoverTooLarge   = errors.New("cover image too large")
	ErrProviderFailure = errors.New("auth provider request failed")
)

// PermissionError describes a denied action. It matches ErrForbidden.
type PermissionError struct {
	UserID     string
	ResourceID string
	Resource   string
	Action     string
	Reason     string
}

func NewPermissionError(userID, resourceID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %s: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func (e *PermissionError) Is(target error) bool {
	return target == ErrForbidden
}

// validationError wraps validator output so callers can match ErrValidationFailed
// and still reach the field errors
func validationError(err error) error {
	return fmt.Errorf("%w: %w", ErrValidationFailed, err)
}
