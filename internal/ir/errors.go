package ir

import (
	"errors"
	"fmt"
)

// Configuration error codes.
const (
	ErrCodeDuplicateVariable      = "DUPLICATE_VARIABLE"
	ErrCodeInvalidHostIndex       = "INVALID_HOST_INDEX"
	ErrCodeDuplicateFailureCode   = "DUPLICATE_FAILURE_CODE"
	ErrCodeInvalidFailureType     = "INVALID_FAILURE_TYPE"
	ErrCodeConflictingDestination = "CONFLICTING_DESTINATION"
	ErrCodeDuplicateBus           = "DUPLICATE_BUS"
	ErrCodeDuplicateAPU           = "DUPLICATE_APU"
	ErrCodeInvalidVariable        = "INVALID_VARIABLE"
	ErrCodeInvalidRule            = "INVALID_RULE"
	ErrCodeAspectFailed           = "ASPECT_FAILED"
	ErrCodeMissingModelFactory    = "MISSING_MODEL_FACTORY"
	ErrCodeModelFactoryFailed     = "MODEL_FACTORY_FAILED"
	ErrCodeAlreadyBuilt           = "ALREADY_BUILT"
)

// ConfigError is returned by the builder when the configuration is invalid.
// The simulation is never constructed after a ConfigError.
type ConfigError struct {
	Code    string
	Message string
	// Variable is set when the error concerns a single variable.
	Variable Variable
	// Aspect is set when the error was raised while configuring an aspect.
	Aspect string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Aspect != "" {
		msg = fmt.Sprintf("%s (aspect %q)", msg, e.Aspect)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a ConfigError with a formatted message.
func NewConfigError(code, format string, args ...any) *ConfigError {
	return &ConfigError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err is a ConfigError with the given code.
// An empty code matches any ConfigError.
func IsConfigError(err error, code string) bool {
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		return false
	}
	return code == "" || cfgErr.Code == code
}
