package core

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAppID matches configuration errors caused by an empty app id.
	ErrMissingAppID = errors.New("app id is required")
	// ErrUnknownAction is returned for actions outside the three dialog choices.
	ErrUnknownAction = errors.New("unknown prompt action")
)

// ConfigurationError reports a configuration precondition that the
// integrating application must fix. It is never recovered from at runtime.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ValidateAppID returns a *ConfigurationError when appID is empty.
func ValidateAppID(appID string) error {
	if appID == "" {
		return &ConfigurationError{Field: "app_id", Reason: "must be set before reviewing", Err: ErrMissingAppID}
	}
	return nil
}
