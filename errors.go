package ggraph

import "errors"

// Sentinel errors for the root package.
var (
	// ErrInvalidConfig matches every *ConfigError.
	ErrInvalidConfig = errors.New("ggraph: invalid config")
)
