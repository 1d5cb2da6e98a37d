package models

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrValidation            = errors.New("validation failed")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrUpstream              = errors.New("upstream failure")
	ErrConflict              = errors.New("conflict")
)
