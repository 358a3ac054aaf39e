package config

import "errors"

var (
	// ErrInvalidConfig wraps every Validate failure, e.g. an unknown
	// llm_provider or a redis store_backend without redis_addr.
	ErrInvalidConfig = errors.New("invalid bingo config")

	// ErrLoadConfig wraps failures reading the BINGO_CONFIG file or the
	// BINGO_ environment.
	ErrLoadConfig = errors.New("cannot load bingo config")
)
