package services

import "errors"

var (
	// ErrValidation marks input rejected before any store is touched.
	ErrValidation = errors.New("validation error")

	ErrDuplicateUser = errors.New("user already exists")
	ErrUserNotFound  = errors.New("user not found")
	ErrWrongPassword = errors.New("wrong password")
)
