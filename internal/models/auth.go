package models

import "errors"

// Sign-in failures reported by the auth provider
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrAuthNetwork        = errors.New("auth network failure")
)
