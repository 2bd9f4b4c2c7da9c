// Package mappingerror defines the typed errors returned by the mapping
// pipeline, its store and its AI providers.
package mappingerror

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when the requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrNoProvider is returned when an operation needs an AI provider and none
// is configured.
var ErrNoProvider = errors.New("no AI provider configured")

// ClassificationError represents a failed bulk classification call.
// Batch is the zero-based index of the batch that failed.
type ClassificationError struct {
	Provider string
	Batch    int
	Size     int
	Err      error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification batch %d (%d values) failed using %s: %v",
		e.Batch, e.Size, e.Provider, e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// ProviderError represents a failed call to an embedding or completion provider.
type ProviderError struct {
	Provider  string
	Operation string
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Operation, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ValidationError represents invalid caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// NotFoundError names the missing entity and wraps ErrNotFound so callers can
// test with errors.Is.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
