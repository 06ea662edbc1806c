package utils

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration    = errors.New("server configuration error")
	ErrValidation       = errors.New("validation failed")
	ErrStoreUnavailable = errors.New("object store unavailable")
	ErrKeyExists        = errors.New("object key already exists")

	ErrMissingFields   = fmt.Errorf("%w: missing required fields", ErrValidation)
	ErrInvalidFileType = fmt.Errorf("%w: only image and video files are allowed", ErrValidation)
	ErrFileTooLarge    = fmt.Errorf("%w: file too large", ErrValidation)
	ErrInvalidQuery    = fmt.Errorf("%w: invalid query parameter", ErrValidation)
)

// ConfigError lists the required configuration keys that were absent at start.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "missing environment variables: " + strings.Join(e.Missing, ", ")
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

// StoreError wraps a failed object store call. It always matches
// ErrStoreUnavailable; the underlying cause stays reachable through Unwrap.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("store %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.Err}
}
