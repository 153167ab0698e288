package util

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailRegistered      = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrPasswordTooShort     = errors.New("password must be at least 8 characters")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrCourseNotFound       = errors.New("course not found")
	ErrNotCourseOwner       = errors.New("not the faculty of this course")
	ErrNotEnrolled          = errors.New("not enrolled in this course")
	ErrEnrollmentNotFound   = errors.New("enrollment not found")
	ErrEnrollmentExists     = errors.New("enrollment already requested")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrAssignmentNotFound   = errors.New("assignment not found")
	ErrSubmissionNotFound   = errors.New("submission not found")
	ErrAlreadyGraded        = errors.New("submission already graded")
	ErrQuizNotFound         = errors.New("quiz not found")
	ErrQuizNotPublished     = errors.New("quiz not published or not accessible")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrQuestionAutoGraded   = errors.New("question is graded automatically")
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrAttemptSubmitted     = errors.New("attempt already submitted")
	ErrAttemptInProgress    = errors.New("attempt has not been submitted")
	ErrMaterialNotFound     = errors.New("material not found")
	ErrNotificationNotFound = errors.New("notification not found")
)
