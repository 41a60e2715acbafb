// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"time"
)

// CacheLimits bounds one content-addressed cache.
type CacheLimits struct {
	// Capacity is the byte budget. Zero means unlimited.
	Capacity uint64

	// Timeout is how long an unreferenced entry survives. Zero disables it.
	Timeout time.Duration
}

// String returns a compact representation like "1048576B/1m0s".
func (l CacheLimits) String() string {
	return fmt.Sprintf("%dB/%s", l.Capacity, l.Timeout)
}

// ShaderFormat selects the representation handed to CreateShaderModule.
type ShaderFormat uint8

const (
	// ShaderWGSL passes the embedded WGSL text to the device.
	ShaderWGSL ShaderFormat = iota

	// ShaderSPIRV compiles the WGSL with naga first, for backends that only
	// accept SPIR-V.
	ShaderSPIRV
)

// String returns the format name.
func (f ShaderFormat) String() string {
	switch f {
	case ShaderWGSL:
		return "wgsl"
	case ShaderSPIRV:
		return "spirv"
	default:
		return fmt.Sprintf("ShaderFormat(%d)", f)
	}
}

// Config configures a Resource.
type Config struct {
	// UniformBuffers bounds the per-slot uniform buffer cache.
	UniformBuffers CacheLimits

	// BindGroups bounds the bind group cache.
	BindGroups CacheLimits

	// Pipelines bounds the render pipeline cache.
	Pipelines CacheLimits

	// Textures bounds the texture cache of the TextureStore.
	Textures CacheLimits

	// Samplers bounds the sampler cache of the TextureStore.
	Samplers CacheLimits

	// SegmentSize is the byte size of each ring buffer segment.
	SegmentSize uint64

	// MaxCollectBytes caps the bytes accepted by a single Collect call.
	// Longer submissions are truncated to whole elements. Zero or values
	// above SegmentSize mean SegmentSize.
	MaxCollectBytes uint64

	// MaxSegments caps the number of segments per ring. Zero means unlimited.
	MaxSegments int

	// ShaderFormat selects WGSL or naga-compiled SPIR-V modules.
	ShaderFormat ShaderFormat

	// Now overrides the cache clock. Nil means time.Now.
	Now func() time.Time
}

// Default cache limits and ring geometry.
const (
	DefaultSegmentSize = 1024 * 1024
)

// DefaultConfig returns the stock Spine resource configuration.
func DefaultConfig() Config {
	return Config{
		UniformBuffers: CacheLimits{Capacity: 1024 * 1024, Timeout: 60 * time.Second},
		BindGroups:     CacheLimits{Capacity: 100 * 1024, Timeout: 60 * time.Second},
		Pipelines:      CacheLimits{Capacity: 1024, Timeout: 60 * time.Second},
		Textures:       CacheLimits{Capacity: 32 * 1024 * 1024, Timeout: 30 * time.Second},
		Samplers:       CacheLimits{Capacity: 32 * 1024, Timeout: 30 * time.Second},
		SegmentSize:    DefaultSegmentSize,
		ShaderFormat:   ShaderWGSL,
	}
}

// ring returns the ring geometry with defaults applied.
func (c Config) ring() RingConfig {
	return RingConfig{
		SegmentSize:     c.SegmentSize,
		MaxCollectBytes: c.MaxCollectBytes,
		MaxSegments:     c.MaxSegments,
	}
}

// now returns the configured clock.
func (c Config) now() func() time.Time {
	if c.Now != nil {
		return c.Now
	}
	return time.Now
}
