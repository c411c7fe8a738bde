package config

import (
	"errors"
	"fmt"
)

// Sentinel errors for control-flow signals, mirroring the teacher's
// errors.New-for-sentinels, fmt.Errorf-for-wrapping split.
var (
	ErrSettingNotFound = errors.New("config: setting not found")
	ErrUnknownProvider = errors.New("config: unknown provider")
	ErrMissingSecret   = errors.New("config: provider secret not configured")
)

// ValidationError reports a single field-level validation failure.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: invalid %s: %s", e.Field, e.Msg)
}

// LoadError wraps a failure to resolve a particular setting.
type LoadError struct {
	Key string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("config: failed to load %q: %v", e.Key, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func NewLoadError(key string, err error) *LoadError {
	return &LoadError{Key: key, Err: err}
}
