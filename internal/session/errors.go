package session

import "errors"

var (
	ErrInvalidPIN      = errors.New("invalid pin")
	ErrPINFormat       = errors.New("pin must be exactly 4 digits")
	ErrSessionNotFound = errors.New("session not found or expired")
)
