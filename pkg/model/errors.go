package model

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField indicates the generator omitted a required field.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidField indicates a field was present but unusable.
	ErrInvalidField = errors.New("invalid field value")
	// ErrNoImage indicates the image response carried no image part.
	ErrNoImage = errors.New("response contained no image")
	// ErrTimeout indicates the upstream call exceeded its deadline.
	ErrTimeout = errors.New("upstream call timed out")
)

// ConfigurationError is returned at startup when a required setting is absent.
type ConfigurationError struct {
	Setting string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Setting, e.Err)
	}
	return fmt.Sprintf("configuration error: %s is required", e.Setting)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// GenerationError wraps a failed or unusable structured-content call.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: generation failed: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// RenderError wraps a failed image call.
type RenderError struct {
	Prompt string
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("image render failed: %v", e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// BoundaryResolutionError is returned when an area's place id cannot be resolved to a viewport.
type BoundaryResolutionError struct {
	PlaceID string
	Status  string
	Err     error
}

func (e *BoundaryResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("boundary lookup for %q failed: %v", e.PlaceID, e.Err)
	}
	return fmt.Sprintf("boundary lookup for %q failed: status %s", e.PlaceID, e.Status)
}

func (e *BoundaryResolutionError) Unwrap() error { return e.Err }
