package service

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("refresh token has expired")
	ErrTokenRevoked       = errors.New("refresh token has been revoked")
	ErrForbidden          = errors.New("forbidden")
)
