package repository

import "errors"

// Sentinel kinds for version store errors.
var (
	ErrNotFound    = errors.New("version not found")
	ErrStorage     = errors.New("version storage failed")
	ErrInvalidName = errors.New("version name is required")
)
