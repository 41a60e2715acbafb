// Package gputest provides an in-memory gpucore.Device and gpucore.RenderPass
// for tests.
//
// Device keeps buffer and texture contents on the CPU so tests can read back
// what was written, counts every created and destroyed object, and can be
// told to fail the next creation of a given kind.
package gputest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/spine/gpucore"
)

// ErrInjected is returned by creation methods after a Fail* call.
var ErrInjected = errors.New("gputest: injected failure")

// Kind names a resource kind for counters and failure injection.
type Kind string

// Resource kinds.
const (
	KindBuffer          Kind = "buffer"
	KindTexture         Kind = "texture"
	KindTextureView     Kind = "texture_view"
	KindSampler         Kind = "sampler"
	KindShaderModule    Kind = "shader_module"
	KindBindGroupLayout Kind = "bind_group_layout"
	KindPipelineLayout  Kind = "pipeline_layout"
	KindRenderPipeline  Kind = "render_pipeline"
	KindBindGroup       Kind = "bind_group"
)

// Write records one WriteBuffer call.
type Write struct {
	Buffer gpucore.BufferID
	Offset uint64
	Data   []byte
}

// Buffer is the CPU mirror of a created buffer.
type Buffer struct {
	Label string
	Usage gpucore.BufferUsage
	Data  []byte
}

// Device is a recording gpucore.Device.
type Device struct {
	mu sync.Mutex

	nextID uint64

	buffers   map[gpucore.BufferID]*Buffer
	textures  map[gpucore.TextureID][]byte
	texDescs  map[gpucore.TextureID]gpucore.TextureDesc
	pipelines map[gpucore.RenderPipelineID]gpucore.RenderPipelineDesc
	groups    map[gpucore.BindGroupID]gpucore.BindGroupDesc
	shaders   map[gpucore.ShaderModuleID]gpucore.ShaderSource
	live      map[uint64]Kind

	created   map[Kind]int
	destroyed map[Kind]int
	fail      map[Kind]int
	writes    []Write
}

var _ gpucore.Device = (*Device)(nil)

// NewDevice creates an empty recording device.
func NewDevice() *Device {
	return &Device{
		buffers:   make(map[gpucore.BufferID]*Buffer),
		textures:  make(map[gpucore.TextureID][]byte),
		texDescs:  make(map[gpucore.TextureID]gpucore.TextureDesc),
		pipelines: make(map[gpucore.RenderPipelineID]gpucore.RenderPipelineDesc),
		groups:    make(map[gpucore.BindGroupID]gpucore.BindGroupDesc),
		shaders:   make(map[gpucore.ShaderModuleID]gpucore.ShaderSource),
		live:      make(map[uint64]Kind),
		created:   make(map[Kind]int),
		destroyed: make(map[Kind]int),
		fail:      make(map[Kind]int),
	}
}

// FailNext makes the next n creations of kind fail with ErrInjected.
func (d *Device) FailNext(kind Kind, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail[kind] = n
}

// Created returns how many objects of kind were created.
func (d *Device) Created(kind Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created[kind]
}

// Destroyed returns how many objects of kind were destroyed.
func (d *Device) Destroyed(kind Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.destroyed[kind]
}

// Live returns how many objects of kind exist.
func (d *Device) Live(kind Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, k := range d.live {
		if k == kind {
			n++
		}
	}
	return n
}

// Writes returns a copy of every WriteBuffer call so far.
func (d *Device) Writes() []Write {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Write(nil), d.writes...)
}

// ResetWrites forgets recorded writes.
func (d *Device) ResetWrites() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes = nil
}

// BufferData returns a copy of the current contents of a buffer.
func (d *Device) BufferData(id gpucore.BufferID) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok {
		return nil, fmt.Errorf("gputest: buffer %d not found", id)
	}
	return append([]byte(nil), b.Data...), nil
}

// BufferInfo returns the buffer record, or nil.
func (d *Device) BufferInfo(id gpucore.BufferID) *Buffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buffers[id]
}

// Pipeline returns the descriptor a pipeline was created with.
func (d *Device) Pipeline(id gpucore.RenderPipelineID) (gpucore.RenderPipelineDesc, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	desc, ok := d.pipelines[id]
	return desc, ok
}

// Shader returns the source a shader module was created with.
func (d *Device) Shader(id gpucore.ShaderModuleID) (gpucore.ShaderSource, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	src, ok := d.shaders[id]
	return src, ok
}

// BindGroup returns the descriptor a bind group was created with.
func (d *Device) BindGroup(id gpucore.BindGroupID) (gpucore.BindGroupDesc, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	desc, ok := d.groups[id]
	return desc, ok
}

// create allocates an ID for kind, honoring injected failures.
func (d *Device) create(kind Kind) (uint64, error) {
	if d.fail[kind] > 0 {
		d.fail[kind]--
		return gpucore.InvalidID, fmt.Errorf("create %s: %w", kind, ErrInjected)
	}
	d.nextID++
	d.created[kind]++
	d.live[d.nextID] = kind
	return d.nextID, nil
}

// destroy forgets an ID of kind.
func (d *Device) destroy(kind Kind, id uint64) {
	if d.live[id] != kind {
		return
	}
	delete(d.live, id)
	d.destroyed[kind]++
}

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(label string, size uint64, usage gpucore.BufferUsage) (gpucore.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, err := d.create(KindBuffer)
	if err != nil {
		return gpucore.InvalidID, err
	}
	d.buffers[gpucore.BufferID(id)] = &Buffer{Label: label, Usage: usage, Data: make([]byte, size)}
	return gpucore.BufferID(id), nil
}

// DestroyBuffer implements gpucore.Device.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.buffers, id)
	d.destroy(KindBuffer, uint64(id))
}

// WriteBuffer implements gpucore.Device. Out-of-range writes panic, like a
// validation error would abort on a real device.
func (d *Device) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok {
		panic(fmt.Sprintf("gputest: write to unknown buffer %d", id))
	}
	if offset+uint64(len(data)) > uint64(len(b.Data)) {
		panic(fmt.Sprintf("gputest: write of %d bytes at %d overflows buffer %d (%d bytes)",
			len(data), offset, id, len(b.Data)))
	}
	copy(b.Data[offset:], data)
	d.writes = append(d.writes, Write{Buffer: id, Offset: offset, Data: append([]byte(nil), data...)})
}

// CreateTexture implements gpucore.Device.
func (d *Device) CreateTexture(desc *gpucore.TextureDesc) (gpucore.TextureID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, err := d.create(KindTexture)
	if err != nil {
		return gpucore.InvalidID, err
	}
	d.textures[gpucore.TextureID(id)] = make([]byte, int(desc.Width)*int(desc.Height)*4)
	d.texDescs[gpucore.TextureID(id)] = *desc
	return gpucore.TextureID(id), nil
}

// DestroyTexture implements gpucore.Device.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.textures, id)
	delete(d.texDescs, id)
	d.destroy(KindTexture, uint64(id))
}

// WriteTexture implements gpucore.Device.
func (d *Device) WriteTexture(id gpucore.TextureID, data []byte, _, _, _ uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if dst, ok := d.textures[id]; ok {
		copy(dst, data)
	}
}

// TextureData returns a copy of a texture's texels.
func (d *Device) TextureData(id gpucore.TextureID) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.textures[id]...)
}

// TextureDesc returns the descriptor a live texture was created with.
func (d *Device) TextureDesc(id gpucore.TextureID) (gpucore.TextureDesc, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	desc, ok := d.texDescs[id]
	return desc, ok
}

// CreateTextureView implements gpucore.Device.
func (d *Device) CreateTextureView(gpucore.TextureID) (gpucore.TextureViewID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, err := d.create(KindTextureView)
	return gpucore.TextureViewID(id), err
}

// DestroyTextureView implements gpucore.Device.
func (d *Device) DestroyTextureView(id gpucore.TextureViewID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(KindTextureView, uint64(id))
}

// CreateSampler implements gpucore.Device.
func (d *Device) CreateSampler(*gpucore.SamplerDesc) (gpucore.SamplerID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, err := d.create(KindSampler)
	return gpucore.SamplerID(id), err
}

// DestroySampler implements gpucore.Device.
func (d *Device) DestroySampler(id gpucore.SamplerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(KindSampler, uint64(id))
}

// CreateShaderModule implements gpucore.Device.
func (d *Device) CreateShaderModule(_ string, src gpucore.ShaderSource) (gpucore.ShaderModuleID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if src.WGSL == "" && len(src.SPIRV) == 0 {
		return gpucore.InvalidID, errors.New("gputest: empty shader source")
	}
	id, err := d.create(KindShaderModule)
	if err != nil {
		return gpucore.InvalidID, err
	}
	d.shaders[gpucore.ShaderModuleID(id)] = src
	return gpucore.ShaderModuleID(id), nil
}

// DestroyShaderModule implements gpucore.Device.
func (d *Device) DestroyShaderModule(id gpucore.ShaderModuleID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.shaders, id)
	d.destroy(KindShaderModule, uint64(id))
}

// CreateBindGroupLayout implements gpucore.Device.
func (d *Device) CreateBindGroupLayout(*gpucore.BindGroupLayoutDesc) (gpucore.BindGroupLayoutID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, err := d.create(KindBindGroupLayout)
	return gpucore.BindGroupLayoutID(id), err
}

// DestroyBindGroupLayout implements gpucore.Device.
func (d *Device) DestroyBindGroupLayout(id gpucore.BindGroupLayoutID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(KindBindGroupLayout, uint64(id))
}

// CreatePipelineLayout implements gpucore.Device.
func (d *Device) CreatePipelineLayout(string, []gpucore.BindGroupLayoutID) (gpucore.PipelineLayoutID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, err := d.create(KindPipelineLayout)
	return gpucore.PipelineLayoutID(id), err
}

// DestroyPipelineLayout implements gpucore.Device.
func (d *Device) DestroyPipelineLayout(id gpucore.PipelineLayoutID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(KindPipelineLayout, uint64(id))
}

// CreateRenderPipeline implements gpucore.Device.
func (d *Device) CreateRenderPipeline(desc *gpucore.RenderPipelineDesc) (gpucore.RenderPipelineID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, err := d.create(KindRenderPipeline)
	if err != nil {
		return gpucore.InvalidID, err
	}
	d.pipelines[gpucore.RenderPipelineID(id)] = *desc
	return gpucore.RenderPipelineID(id), nil
}

// DestroyRenderPipeline implements gpucore.Device.
func (d *Device) DestroyRenderPipeline(id gpucore.RenderPipelineID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pipelines, id)
	d.destroy(KindRenderPipeline, uint64(id))
}

// CreateBindGroup implements gpucore.Device.
func (d *Device) CreateBindGroup(desc *gpucore.BindGroupDesc) (gpucore.BindGroupID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, err := d.create(KindBindGroup)
	if err != nil {
		return gpucore.InvalidID, err
	}
	d.groups[gpucore.BindGroupID(id)] = *desc
	return gpucore.BindGroupID(id), nil
}

// DestroyBindGroup implements gpucore.Device.
func (d *Device) DestroyBindGroup(id gpucore.BindGroupID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.groups, id)
	d.destroy(KindBindGroup, uint64(id))
}
