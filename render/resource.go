// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"

	"github.com/gogpu/spine/cache"
	"github.com/gogpu/spine/gpucore"
)

// ErrNilDevice is returned by NewResource without a device.
var ErrNilDevice = errors.New("render: nil device")

// ResourceStats aggregates the statistics of a Resource.
type ResourceStats struct {
	Vertices   RingStats
	Indices    RingStats
	Uniforms   UniformStats
	BindGroups cache.Stats
	Pipelines  cache.Stats
	Textures   cache.Stats
	Samplers   cache.Stats
}

// Resource is the GPU state shared by every renderer on one device.
//
// It is meant to be driven from a single frame thread: rings are not
// synchronized. Caches and uniform slots may be released from any goroutine.
type Resource struct {
	dev gpucore.Device
	cfg Config

	Vertices   *RingBuffer
	Indices    *RingBuffer
	Uniforms   *UniformSlotAllocator
	Layouts    *Layouts
	BindGroups *BindGroupCache
	Pipelines  *PipelineCache
	Textures   *TextureStore
}

// NewResource creates the shared resources on dev.
func NewResource(dev gpucore.Device, cfg Config) (*Resource, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	layouts, err := NewLayouts(dev)
	if err != nil {
		return nil, err
	}
	now := cfg.now()
	r := &Resource{
		dev:        dev,
		cfg:        cfg,
		Vertices:   NewVertexRing(dev, cfg.ring()),
		Indices:    NewIndexRing(dev, cfg.ring()),
		Uniforms:   NewUniformSlotAllocator(dev, cfg.UniformBuffers, now),
		Layouts:    layouts,
		BindGroups: NewBindGroupCache(dev, layouts, cfg.BindGroups, now),
		Pipelines:  NewPipelineCache(dev, layouts, cfg.ShaderFormat, cfg.Pipelines, now),
		Textures:   NewTextureStore(dev, cfg.Textures, cfg.Samplers, now),
	}
	slogger().Debug("render: resource created",
		"segment", r.Vertices.SegmentSize(), "shaders", cfg.ShaderFormat)
	return r, nil
}

// Device returns the device the resources live on.
func (r *Resource) Device() gpucore.Device { return r.dev }

// Config returns the configuration the resource was created with.
func (r *Resource) Config() Config { return r.cfg }

// Upload writes the staged vertex data, then the staged index data, and
// rewinds both rings. It returns the number of buffer writes.
func (r *Resource) Upload() int {
	return r.Vertices.Upload() + r.Indices.Upload()
}

// Collect evicts idle entries past their timeout from every cache and
// returns how many were evicted. Bind groups go first: evicting one starts
// the idle timeout of the buffer and textures it held.
func (r *Resource) Collect() int {
	n := r.BindGroups.Collect()
	n += r.Pipelines.Collect()
	n += r.Uniforms.Collect()
	n += r.Textures.Collect()
	return n
}

// Stats returns a snapshot of every component.
func (r *Resource) Stats() ResourceStats {
	return ResourceStats{
		Vertices:   r.Vertices.Stats(),
		Indices:    r.Indices.Stats(),
		Uniforms:   r.Uniforms.Stats(),
		BindGroups: r.BindGroups.Stats(),
		Pipelines:  r.Pipelines.Stats(),
		Textures:   r.Textures.TextureStats(),
		Samplers:   r.Textures.SamplerStats(),
	}
}

// Destroy releases every idle cached object, the ring segments and the
// layouts. Draw lists and uniform slots must be released first; entries
// still referenced stay alive.
func (r *Resource) Destroy() {
	r.BindGroups.Purge()
	r.Pipelines.Destroy()
	r.Uniforms.Purge()
	r.Textures.Purge()
	r.Vertices.Destroy()
	r.Indices.Destroy()
	r.Layouts.Destroy()

	s := r.Stats()
	if live := s.BindGroups.Len + s.Pipelines.Len + s.Uniforms.Buffers.Len + s.Textures.Len + s.Samplers.Len; live > 0 {
		slogger().Warn("render: resource destroyed with live objects", "live", live)
	}
}

// String summarizes the resource for logs.
func (s ResourceStats) String() string {
	return fmt.Sprintf("vertices %d/%dB in %d segments, indices %d/%dB in %d segments, uniforms %d live (hw %d), bind groups %d, pipelines %d, textures %d",
		s.Vertices.Staged, s.Vertices.Capacity, s.Vertices.Segments,
		s.Indices.Staged, s.Indices.Capacity, s.Indices.Segments,
		s.Uniforms.Live, s.Uniforms.HighWater,
		s.BindGroups.Len, s.Pipelines.Len, s.Textures.Len)
}
