package native

import "errors"

// Package errors.
var (
	// ErrNilDevice is returned when the HAL device or queue is nil.
	ErrNilDevice = errors.New("native: HAL device or queue is nil")

	// ErrNoHAL is returned when a device provider does not expose HAL types.
	ErrNoHAL = errors.New("native: provider does not expose HAL device and queue")

	// ErrUnknownResource is returned when an ID does not name a live resource.
	ErrUnknownResource = errors.New("native: unknown resource")

	// ErrEmptyShader is returned for a shader source with neither WGSL nor SPIR-V.
	ErrEmptyShader = errors.New("native: empty shader source")
)
