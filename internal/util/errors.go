package util

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserDisabled       = errors.New("account disabled")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrLessonNotFound     = errors.New("lesson not found")
	ErrCodeRunnerDown     = errors.New("code runner unavailable")
	ErrCodeRunnerFailed   = errors.New("code runner failed")
	ErrStorageDisabled    = errors.New("object storage not configured")
)
