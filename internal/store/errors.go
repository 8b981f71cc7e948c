package store

import "errors"

var (
	ErrNotFound       = errors.New("element not found")
	ErrInvalidElement = errors.New("invalid element")
)
