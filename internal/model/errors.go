package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a camp, keyword or account does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on unique constraint violations (camp name, keyword term).
	ErrConflict = errors.New("already exists")
	// ErrStoreUnavailable wraps collaborator I/O failures that abort a recompute run.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrRunInProgress is returned when a camp already has a recompute in flight.
	ErrRunInProgress = errors.New("recompute already running for camp")
)

// ConfigError rejects invalid keyword or camp input before it reaches the engine.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsConfigError reports whether err wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// AccountFailure is a non-fatal failure reading or scoring a single account.
type AccountFailure struct {
	AccountID string
	Err       error
}

func (e *AccountFailure) Error() string {
	return fmt.Sprintf("account %s skipped: %v", e.AccountID, e.Err)
}

func (e *AccountFailure) Unwrap() error { return e.Err }
