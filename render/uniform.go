// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/spine/cache"
	"github.com/gogpu/spine/gpucore"
)

// UniformSize is the byte size of one uniform slot:
// a 4x4 matrix, a mask flag vec4 and a visibility vec4.
const UniformSize = (16 + 4 + 4) * 4

// UniformFloats is the number of float32 values in one uniform slot.
const UniformFloats = UniformSize / 4

// ErrUniformTooLarge is returned by Allocate for data longer than UniformSize.
var ErrUniformTooLarge = errors.New("render: uniform data larger than slot")

// UniformParams is the typed form of a uniform slot.
type UniformParams struct {
	// MVP transforms skeleton space to clip space.
	MVP mgl32.Mat4

	// MaskFlag.X > 0.5 switches the fragment stage to premultiplied output.
	MaskFlag mgl32.Vec4

	// Visibility.X is the global opacity.
	Visibility mgl32.Vec4
}

// DefaultUniformParams returns identity transform, straight alpha and full
// opacity.
func DefaultUniformParams() UniformParams {
	return UniformParams{
		MVP:        mgl32.Ident4(),
		Visibility: mgl32.Vec4{1, 0, 0, 0},
	}
}

// Floats returns the 24 floats in buffer order. Matrices are column-major,
// matching WGSL mat4x4<f32>.
func (p UniformParams) Floats() []float32 {
	out := make([]float32, 0, UniformFloats)
	out = append(out, p.MVP[:]...)
	out = append(out, p.MaskFlag[:]...)
	out = append(out, p.Visibility[:]...)
	return out
}

// Bytes returns the 96-byte buffer encoding.
func (p UniformParams) Bytes() []byte {
	return FloatBytes(p.Floats())
}

// FloatBytes encodes float32 values as little-endian bytes.
func FloatBytes(f []float32) []byte {
	out := make([]byte, len(f)*4)
	for i, v := range f {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// Uint16Bytes encodes u16 indices as little-endian bytes.
func Uint16Bytes(idx []uint16) []byte {
	out := make([]byte, len(idx)*2)
	for i, v := range idx {
		binary.LittleEndian.PutUint16(out[i*2:], v)
	}
	return out
}

// slotTable is the free list of uniform slot indices. Slots hold a pointer
// back to it and return their index on final release.
type slotTable struct {
	mu   sync.Mutex
	free []uint32
	next uint32 // highest index ever issued
}

// take pops a free index or issues a new one. Indices start at 1.
func (t *slotTable) take() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n := len(t.free); n > 0 {
		idx := t.free[n-1]
		t.free = t.free[:n-1]
		return idx
	}
	t.next++
	return t.next
}

// give returns an index to the free list.
func (t *slotTable) give(idx uint32) {
	t.mu.Lock()
	t.free = append(t.free, idx)
	t.mu.Unlock()
}

func (t *slotTable) counts() (free int, high uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.free), t.next
}

// UniformStats reports uniform allocator state.
type UniformStats struct {
	// Live is the number of slot indices currently handed out.
	Live int
	// Free is the number of indices waiting for reuse.
	Free int
	// HighWater is the largest index ever issued.
	HighWater uint32
	// Allocations counts successful Allocate calls.
	Allocations uint64
	// Failures counts Allocate calls that returned an error.
	Failures uint64
	// Buffers describes the per-slot buffer cache.
	Buffers cache.Stats
}

// UniformSlotAllocator issues reusable 96-byte uniform buffers.
//
// Each slot index owns one GPU buffer, kept in a content-addressed cache
// keyed by the index. A slot index is reissued only after every reference to
// its previous UniformSlot has been released.
type UniformSlotAllocator struct {
	dev     gpucore.Device
	buffers *cache.Cache[uint32, gpucore.BufferID]
	table   *slotTable

	live        atomic.Int64
	allocations atomic.Uint64
	failures    atomic.Uint64
}

// NewUniformSlotAllocator creates an allocator whose buffer cache is bounded
// by limits. now may be nil.
func NewUniformSlotAllocator(dev gpucore.Device, limits CacheLimits, now func() time.Time) *UniformSlotAllocator {
	a := &UniformSlotAllocator{
		dev:   dev,
		table: &slotTable{},
	}
	a.buffers = cache.New(cache.Options[uint32, gpucore.BufferID]{
		Capacity: limits.Capacity,
		Timeout:  limits.Timeout,
		Now:      now,
		OnEvict: func(idx uint32, id gpucore.BufferID) {
			slogger().Debug("render: uniform buffer evicted", "slot", idx)
			dev.DestroyBuffer(id)
		},
	})
	return a
}

// Allocate writes data into a free slot and returns a handle to it.
//
// data shorter than UniformSize is zero padded. The write goes straight to
// the device queue. On failure the index goes back to the free list and no
// slot is returned.
func (a *UniformSlotAllocator) Allocate(data []byte) (*UniformSlot, error) {
	if len(data) > UniformSize {
		a.failures.Add(1)
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrUniformTooLarge, len(data), UniformSize)
	}

	idx := a.table.take()
	buf, err := a.buffer(idx)
	if err != nil {
		a.table.give(idx)
		a.failures.Add(1)
		return nil, err
	}

	payload := data
	if len(payload) < UniformSize {
		payload = make([]byte, UniformSize)
		copy(payload, data)
	}
	a.dev.WriteBuffer(buf.Value(), 0, payload)

	a.live.Add(1)
	a.allocations.Add(1)
	s := &UniformSlot{index: idx, buffer: buf, alloc: a}
	s.refs.Store(1)
	return s, nil
}

// AllocateParams is Allocate for typed parameters.
func (a *UniformSlotAllocator) AllocateParams(p UniformParams) (*UniformSlot, error) {
	return a.Allocate(p.Bytes())
}

// buffer returns a handle to the buffer of slot idx, creating it on miss.
func (a *UniformSlotAllocator) buffer(idx uint32) (*cache.Handle[uint32, gpucore.BufferID], error) {
	if h, ok := a.buffers.Get(idx); ok {
		return h, nil
	}
	id, err := a.dev.CreateBuffer(fmt.Sprintf("spine_uniform_%d", idx), UniformSize,
		gpucore.BufferUsageUniform|gpucore.BufferUsageCopyDst)
	if err != nil {
		return nil, fmt.Errorf("create uniform buffer: %w", err)
	}
	h, err := a.buffers.Insert(idx, id, UniformSize)
	if err != nil {
		a.dev.DestroyBuffer(id)
		return nil, fmt.Errorf("uniform slot %d: %w", idx, err)
	}
	return h, nil
}

// Collect evicts uniform buffers idle past the timeout.
func (a *UniformSlotAllocator) Collect() int {
	return a.buffers.Collect()
}

// Purge destroys every idle uniform buffer.
func (a *UniformSlotAllocator) Purge() int {
	return a.buffers.Purge()
}

// Stats returns allocator statistics.
func (a *UniformSlotAllocator) Stats() UniformStats {
	free, high := a.table.counts()
	return UniformStats{
		Live:        int(a.live.Load()),
		Free:        free,
		HighWater:   high,
		Allocations: a.allocations.Load(),
		Failures:    a.failures.Load(),
		Buffers:     a.buffers.Stats(),
	}
}

// UniformSlot is a reference-counted handle to one uniform slot.
//
// Retain adds a reference; each reference must be released once. When the
// last reference is released the slot index returns to the free list.
type UniformSlot struct {
	index  uint32
	buffer *cache.Handle[uint32, gpucore.BufferID]
	alloc  *UniformSlotAllocator
	refs   atomic.Int32
}

// Index returns the slot index.
func (s *UniformSlot) Index() uint32 { return s.index }

// Buffer returns the GPU buffer holding the slot data.
func (s *UniformSlot) Buffer() gpucore.BufferID { return s.buffer.Value() }

// Retain adds a reference and returns s.
func (s *UniformSlot) Retain() *UniformSlot {
	if s.refs.Add(1) <= 1 {
		panic("render: Retain on released UniformSlot")
	}
	return s
}

// Release drops one reference.
func (s *UniformSlot) Release() {
	if s == nil {
		return
	}
	switch n := s.refs.Add(-1); {
	case n > 0:
		return
	case n < 0:
		panic("render: UniformSlot released too many times")
	}
	s.alloc.live.Add(-1)
	s.alloc.table.give(s.index)
	s.buffer.Release()
}

// bufferHandle returns a new reference to the slot's buffer cache entry.
// Bind groups keep it so the buffer outlives the slot index.
func (s *UniformSlot) bufferHandle() *cache.Handle[uint32, gpucore.BufferID] {
	return s.buffer.Clone()
}
