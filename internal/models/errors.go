package models

import (
	"errors"
	"fmt"
)

var (
	// ErrStartup marks state that prevents the service from starting.
	ErrStartup = errors.New("startup failed")
	// ErrEncoding marks an embedding backend failure.
	ErrEncoding = errors.New("encoding failed")
	// ErrIndexCorrupt marks an unreadable or malformed vector index.
	ErrIndexCorrupt = errors.New("vector index corrupt")
	// ErrCatalogMismatch marks an index built from a different catalog.
	ErrCatalogMismatch = errors.New("index does not match catalog")
	// ErrDimensionMismatch marks vectors of unexpected length.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// StartupError reports a missing or unusable resource found while loading
// process state. It is meant for operators and may name file paths.
type StartupError struct {
	Resource string
	Path     string
	Err      error
}

func (e *StartupError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load %s: %v", e.Resource, e.Err)
	}
	return fmt.Sprintf("load %s from %s: %v", e.Resource, e.Path, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

func (e *StartupError) Is(target error) bool { return target == ErrStartup }

// NewStartupError wraps err as a StartupError.
func NewStartupError(resource, path string, err error) error {
	return &StartupError{Resource: resource, Path: path, Err: err}
}

// EncodingError reports that the embedding backend could not produce a usable vector.
type EncodingError struct {
	Model string
	Err   error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode with %s: %v", e.Model, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

func (e *EncodingError) Is(target error) bool { return target == ErrEncoding }
