package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrUnknownTile           = errors.New("unknown tile")
	ErrClassifierUnavailable = errors.New("classifier not configured")
)
