// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/spine/cache"
	"github.com/gogpu/spine/gpucore"
	"github.com/gogpu/spine/internal/hashkey"
)

// ErrPipelineKeyCollision is returned when two different pipeline states
// hash to the same key.
var ErrPipelineKeyCollision = errors.New("render: pipeline key collision")

// pipelineSize is the nominal cache cost of a render pipeline.
const pipelineSize = 16

// DefaultBlend returns the Spine default blend state: straight alpha for
// color, premultiplied "over" for alpha.
func DefaultBlend() gpucore.BlendState {
	return gpucore.BlendState{
		Color: gpucore.BlendComponent{
			SrcFactor: gputypes.BlendFactorSrcAlpha,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
		Alpha: gpucore.BlendComponentOver,
	}
}

// BlendWith returns a blend state whose color component uses src and dst
// with an additive operation. Alpha stays "over".
func BlendWith(src, dst gputypes.BlendFactor) gpucore.BlendState {
	return gpucore.BlendState{
		Color: gpucore.BlendComponent{SrcFactor: src, DstFactor: dst, Operation: gputypes.BlendOperationAdd},
		Alpha: gpucore.BlendComponentOver,
	}
}

// DefaultPrimitive is the primitive state of every Spine pipeline:
// counter-clockwise triangle lists without culling.
func DefaultPrimitive() gpucore.PrimitiveState {
	return gpucore.PrimitiveState{
		Topology:  gputypes.PrimitiveTopologyTriangleList,
		FrontFace: gputypes.FrontFaceCCW,
		CullMode:  gputypes.CullModeNone,
	}
}

// PipelineState is everything a Spine render pipeline depends on.
// It is comparable.
type PipelineState struct {
	Variant      ShaderVariant
	BlendEnabled bool
	Blend        gpucore.BlendState
	TargetFormat gputypes.TextureFormat
	Primitive    gpucore.PrimitiveState
	SampleCount  uint32
}

// PipelineKey is the hash of a PipelineState.
type PipelineKey uint64

// Key hashes the state. A disabled blend hashes the same regardless of the
// stored factors.
func (s PipelineState) Key() PipelineKey {
	w := hashkey.New().Uint32(uint32(s.Variant))
	w.Bool(s.BlendEnabled)
	if s.BlendEnabled {
		w.Uint32(uint32(s.Blend.Color.SrcFactor)).
			Uint32(uint32(s.Blend.Color.DstFactor)).
			Uint32(uint32(s.Blend.Color.Operation)).
			Uint32(uint32(s.Blend.Alpha.SrcFactor)).
			Uint32(uint32(s.Blend.Alpha.DstFactor)).
			Uint32(uint32(s.Blend.Alpha.Operation))
	}
	w.Uint32(uint32(s.TargetFormat)).
		Uint32(uint32(s.Primitive.Topology)).
		Uint32(uint32(s.Primitive.FrontFace)).
		Uint32(uint32(s.Primitive.CullMode)).
		Uint32(s.sampleCount())
	return PipelineKey(w.Sum())
}

func (s PipelineState) sampleCount() uint32 {
	if s.SampleCount == 0 {
		return 1
	}
	return s.SampleCount
}

// same compares the parts of two states that reach the GPU.
func (s PipelineState) same(o PipelineState) bool {
	if !s.BlendEnabled {
		s.Blend = gpucore.BlendState{}
	}
	if !o.BlendEnabled {
		o.Blend = gpucore.BlendState{}
	}
	s.SampleCount, o.SampleCount = s.sampleCount(), o.sampleCount()
	return s == o
}

// Descriptor builds the render pipeline descriptor for the state.
func (s PipelineState) Descriptor(layout gpucore.PipelineLayoutID, module gpucore.ShaderModuleID) *gpucore.RenderPipelineDesc {
	desc := &gpucore.RenderPipelineDesc{
		Label:              fmt.Sprintf("spine_%s_pipeline", s.Variant),
		Layout:             layout,
		Module:             module,
		VertexEntryPoint:   VertexEntryPoint,
		FragmentEntryPoint: FragmentEntryPoint,
		VertexBuffers:      []gpucore.VertexBufferLayout{s.Variant.VertexLayout()},
		Primitive:          s.Primitive,
		TargetFormat:       s.TargetFormat,
		SampleCount:        s.sampleCount(),
	}
	if s.BlendEnabled {
		blend := s.Blend
		desc.Blend = &blend
	}
	return desc
}

// Pipeline is a cached render pipeline.
type Pipeline struct {
	ID    gpucore.RenderPipelineID
	State PipelineState
}

// PipelineHandle is a reference to a cached pipeline.
type PipelineHandle = cache.Handle[PipelineKey, *Pipeline]

// PipelineCache deduplicates render pipelines by PipelineKey. It owns one
// shader module per variant, created on first use.
type PipelineCache struct {
	dev     gpucore.Device
	layouts *Layouts
	format  ShaderFormat

	mu      sync.Mutex
	modules [shaderVariantCount]gpucore.ShaderModuleID

	pipelines *cache.Cache[PipelineKey, *Pipeline]
}

// NewPipelineCache creates an empty cache. now may be nil.
func NewPipelineCache(dev gpucore.Device, layouts *Layouts, format ShaderFormat, limits CacheLimits, now func() time.Time) *PipelineCache {
	return &PipelineCache{
		dev:     dev,
		layouts: layouts,
		format:  format,
		pipelines: cache.New(cache.Options[PipelineKey, *Pipeline]{
			Capacity: limits.Capacity,
			Timeout:  limits.Timeout,
			Now:      now,
			OnEvict: func(_ PipelineKey, p *Pipeline) {
				slogger().Debug("render: pipeline evicted", "variant", p.State.Variant)
				dev.DestroyRenderPipeline(p.ID)
			},
		}),
	}
}

// Resolve returns the pipeline for state, building it on a miss.
func (c *PipelineCache) Resolve(state PipelineState) (*PipelineHandle, error) {
	return c.ResolveKey(state.Key(), state)
}

// ResolveKey is Resolve with a precomputed key.
func (c *PipelineCache) ResolveKey(key PipelineKey, state PipelineState) (*PipelineHandle, error) {
	if !state.Variant.Valid() {
		return nil, fmt.Errorf("render: invalid shader variant %d", state.Variant)
	}
	if h, ok := c.pipelines.Get(key); ok {
		if !h.Value().State.same(state) {
			h.Release()
			return nil, fmt.Errorf("%w: %x", ErrPipelineKeyCollision, uint64(key))
		}
		return h, nil
	}

	module, err := c.module(state.Variant)
	if err != nil {
		return nil, err
	}
	id, err := c.dev.CreateRenderPipeline(state.Descriptor(c.layouts.PipelineLayout(state.Variant), module))
	if err != nil {
		return nil, fmt.Errorf("create %s pipeline: %w", state.Variant, err)
	}
	h, err := c.pipelines.Insert(key, &Pipeline{ID: id, State: state}, pipelineSize)
	if err != nil {
		c.dev.DestroyRenderPipeline(id)
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	slogger().Debug("render: pipeline created",
		"variant", state.Variant, "blend", state.BlendEnabled, "format", uint32(state.TargetFormat))
	return h, nil
}

// module returns the shader module of a variant, creating it once.
func (c *PipelineCache) module(v ShaderVariant) (gpucore.ShaderModuleID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id := c.modules[v]; id != gpucore.InvalidID {
		return id, nil
	}
	src, err := ShaderSourceFor(v, c.format)
	if err != nil {
		return gpucore.InvalidID, err
	}
	id, err := c.dev.CreateShaderModule(fmt.Sprintf("spine_%s", v), src)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("create %s shader module: %w", v, err)
	}
	c.modules[v] = id
	return id, nil
}

// Collect evicts pipelines idle past the timeout.
func (c *PipelineCache) Collect() int { return c.pipelines.Collect() }

// Purge destroys every idle pipeline.
func (c *PipelineCache) Purge() int { return c.pipelines.Purge() }

// Stats returns cache statistics.
func (c *PipelineCache) Stats() cache.Stats { return c.pipelines.Stats() }

// Destroy purges idle pipelines and releases the shader modules.
func (c *PipelineCache) Destroy() {
	c.pipelines.Purge()
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, id := range c.modules {
		if id != gpucore.InvalidID {
			c.dev.DestroyShaderModule(id)
			c.modules[i] = gpucore.InvalidID
		}
	}
}
