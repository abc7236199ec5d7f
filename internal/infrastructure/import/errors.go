package csvimport

import (
	"errors"
	"fmt"
)

// Common read errors
var (
	// ErrEmptyFile is returned when a source file has no content
	ErrEmptyFile = errors.New("source file is empty")

	// ErrMissingHeader is returned when a source file has no header row
	ErrMissingHeader = errors.New("source file missing header row")

	// ErrUndecodable is returned when no configured encoding decodes the file
	ErrUndecodable = errors.New("source file cannot be decoded with any configured encoding")

	// ErrUnsupportedFormat is returned for file extensions without a reader
	ErrUnsupportedFormat = errors.New("unsupported source file format")
)

// SourceReadError reports a source file that could not be read or decoded.
// The run skips the file and continues.
type SourceReadError struct {
	Path string
	Err  error
}

// Error implements the error interface
func (e *SourceReadError) Error() string {
	return fmt.Sprintf("read source %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause
func (e *SourceReadError) Unwrap() error {
	return e.Err
}

func sourceError(path string, err error) error {
	var sre *SourceReadError
	if errors.As(err, &sre) {
		return err
	}
	return &SourceReadError{Path: path, Err: err}
}
