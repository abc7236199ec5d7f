package schema

import (
	"errors"
	"fmt"
)

// Config error codes
const (
	ErrCodeAttributeMissing = "MAPPING_ATTRIBUTE_MISSING"
	ErrCodeAttributeInvalid = "MAPPING_ATTRIBUTE_INVALID"
	ErrCodeDuplicateDisplay = "MAPPING_DUPLICATE_DISPLAY_NAME"
	ErrCodeEmptyMapping     = "MAPPING_EMPTY"
	ErrCodeDocument         = "CONFIG_DOCUMENT_INVALID"
)

// ErrConfig matches every ConfigError through errors.Is
var ErrConfig = errors.New("configuration error")

// ConfigError reports a malformed or incomplete configuration document.
// It is fatal to a run.
type ConfigError struct {
	Code      string
	Source    string
	Field     string
	Attribute string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	msg := e.Message
	if e.Field != "" && e.Attribute != "" {
		msg = fmt.Sprintf("field '%s', attribute '%s': %s", e.Field, e.Attribute, e.Message)
	} else if e.Field != "" {
		msg = fmt.Sprintf("field '%s': %s", e.Field, e.Message)
	}
	if e.Source != "" {
		msg = e.Source + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is makes every ConfigError match ErrConfig
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// Unwrap returns the underlying cause
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a ConfigError for a document-level problem
func NewConfigError(source, message string, cause error) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeDocument,
		Source:  source,
		Message: message,
		Err:     cause,
	}
}
