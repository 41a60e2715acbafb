// Package native implements gpucore.Device on top of the gogpu/wgpu HAL.
package native

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/spine/gpucore"
)

// Device implements gpucore.Device using hal.Device and hal.Queue directly.
//
// Device is safe for concurrent use. Resource tables are protected by a
// mutex; HAL calls are made outside of it.
type Device struct {
	mu     sync.RWMutex
	device hal.Device
	queue  hal.Queue

	surfaceFormat gputypes.TextureFormat

	nextID      atomic.Uint64
	writeErrors atomic.Uint64

	buffers          map[gpucore.BufferID]hal.Buffer
	textures         map[gpucore.TextureID]hal.Texture
	views            map[gpucore.TextureViewID]hal.TextureView
	samplers         map[gpucore.SamplerID]hal.Sampler
	shaderModules    map[gpucore.ShaderModuleID]hal.ShaderModule
	bindGroupLayouts map[gpucore.BindGroupLayoutID]hal.BindGroupLayout
	pipelineLayouts  map[gpucore.PipelineLayoutID]hal.PipelineLayout
	pipelines        map[gpucore.RenderPipelineID]hal.RenderPipeline
	bindGroups       map[gpucore.BindGroupID]hal.BindGroup

	inflight []inflight
}

var _ gpucore.Device = (*Device)(nil)

// New wraps a HAL device and queue. The caller keeps ownership of both.
func New(device hal.Device, queue hal.Queue) (*Device, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	d := &Device{
		device:           device,
		queue:            queue,
		buffers:          make(map[gpucore.BufferID]hal.Buffer),
		textures:         make(map[gpucore.TextureID]hal.Texture),
		views:            make(map[gpucore.TextureViewID]hal.TextureView),
		samplers:         make(map[gpucore.SamplerID]hal.Sampler),
		shaderModules:    make(map[gpucore.ShaderModuleID]hal.ShaderModule),
		bindGroupLayouts: make(map[gpucore.BindGroupLayoutID]hal.BindGroupLayout),
		pipelineLayouts:  make(map[gpucore.PipelineLayoutID]hal.PipelineLayout),
		pipelines:        make(map[gpucore.RenderPipelineID]hal.RenderPipeline),
		bindGroups:       make(map[gpucore.BindGroupID]hal.BindGroup),
	}
	// 0 is gpucore.InvalidID.
	d.nextID.Store(1)
	return d, nil
}

// NewFromProvider shares the device of a gpucontext provider (e.g. a gogpu
// window). The provider must implement HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue.
func NewFromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok {
		return nil, fmt.Errorf("%w: HalDevice is %T", ErrNoHAL, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok {
		return nil, fmt.Errorf("%w: HalQueue is %T", ErrNoHAL, hp.HalQueue())
	}
	d, err := New(device, queue)
	if err != nil {
		return nil, err
	}
	d.surfaceFormat = provider.SurfaceFormat()
	slogger().Info("native: device from provider", "surfaceFormat", d.surfaceFormat)
	return d, nil
}

// SurfaceFormat returns the provider's surface format, or
// TextureFormatUndefined when headless or created with New.
func (d *Device) SurfaceFormat() gputypes.TextureFormat { return d.surfaceFormat }

// WriteErrors returns the number of queue writes the HAL rejected.
func (d *Device) WriteErrors() uint64 { return d.writeErrors.Load() }

func (d *Device) newID() uint64 {
	return d.nextID.Add(1) - 1
}

// === Buffers ===

// CreateBuffer creates a GPU buffer.
func (d *Device) CreateBuffer(label string, size uint64, usage gpucore.BufferUsage) (gpucore.BufferID, error) {
	if size == 0 {
		return gpucore.InvalidID, fmt.Errorf("native: buffer %q has zero size", label)
	}
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: convertBufferUsage(usage),
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create buffer %q: %w", label, err)
	}
	id := gpucore.BufferID(d.newID())
	d.mu.Lock()
	d.buffers[id] = buf
	d.mu.Unlock()
	return id, nil
}

// DestroyBuffer releases a GPU buffer.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	if buf, ok := take(&d.mu, d.buffers, id); ok {
		d.device.DestroyBuffer(buf)
	}
}

// WriteBuffer writes data at offset through the queue. Failures are logged
// and counted.
func (d *Device) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) {
	buf, ok := lookup(&d.mu, d.buffers, id)
	if !ok || len(data) == 0 {
		return
	}
	if err := d.queue.WriteBuffer(buf, offset, data); err != nil {
		d.writeErrors.Add(1)
		slogger().Warn("native: buffer write failed", "buffer", id, "bytes", len(data), "err", err)
	}
}

// === Textures ===

// CreateTexture creates a 2D texture with one mip level.
func (d *Device) CreateTexture(desc *gpucore.TextureDesc) (gpucore.TextureID, error) {
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         desc.Label,
		Size:          hal.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         convertTextureUsage(desc.Usage),
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create texture %q: %w", desc.Label, err)
	}
	id := gpucore.TextureID(d.newID())
	d.mu.Lock()
	d.textures[id] = tex
	d.mu.Unlock()
	return id, nil
}

// DestroyTexture releases a texture.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	if tex, ok := take(&d.mu, d.textures, id); ok {
		d.device.DestroyTexture(tex)
	}
}

// WriteTexture uploads tightly packed texels to mip level 0.
func (d *Device) WriteTexture(id gpucore.TextureID, data []byte, bytesPerRow, width, height uint32) {
	tex, ok := lookup(&d.mu, d.textures, id)
	if !ok || len(data) == 0 {
		return
	}
	err := d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, Aspect: gputypes.TextureAspectAll},
		data,
		&hal.ImageDataLayout{BytesPerRow: bytesPerRow, RowsPerImage: height},
		&hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
	)
	if err != nil {
		d.writeErrors.Add(1)
		slogger().Warn("native: texture write failed", "texture", id, "err", err)
	}
}

// CreateTextureView creates the default 2D view of a texture.
func (d *Device) CreateTextureView(texID gpucore.TextureID) (gpucore.TextureViewID, error) {
	tex, ok := lookup(&d.mu, d.textures, texID)
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: texture %d", ErrUnknownResource, texID)
	}
	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Dimension: gputypes.TextureViewDimension2D,
		Aspect:    gputypes.TextureAspectAll,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create texture view: %w", err)
	}
	id := gpucore.TextureViewID(d.newID())
	d.mu.Lock()
	d.views[id] = view
	d.mu.Unlock()
	return id, nil
}

// DestroyTextureView releases a texture view.
func (d *Device) DestroyTextureView(id gpucore.TextureViewID) {
	if view, ok := take(&d.mu, d.views, id); ok {
		d.device.DestroyTextureView(view)
	}
}

// CreateSampler creates a sampler.
func (d *Device) CreateSampler(desc *gpucore.SamplerDesc) (gpucore.SamplerID, error) {
	smp, err := d.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "spine_sampler",
		AddressModeU: desc.AddressModeU,
		AddressModeV: desc.AddressModeV,
		AddressModeW: desc.AddressModeW,
		MagFilter:    desc.MagFilter,
		MinFilter:    desc.MinFilter,
		MipmapFilter: desc.MipmapFilter,
		LodMaxClamp:  32,
		Anisotropy:   1,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create sampler: %w", err)
	}
	id := gpucore.SamplerID(d.newID())
	d.mu.Lock()
	d.samplers[id] = smp
	d.mu.Unlock()
	return id, nil
}

// DestroySampler releases a sampler.
func (d *Device) DestroySampler(id gpucore.SamplerID) {
	if smp, ok := take(&d.mu, d.samplers, id); ok {
		d.device.DestroySampler(smp)
	}
}

// === Shaders and Pipelines ===

// CreateShaderModule creates a shader module from WGSL or SPIR-V.
func (d *Device) CreateShaderModule(label string, src gpucore.ShaderSource) (gpucore.ShaderModuleID, error) {
	if src.WGSL == "" && len(src.SPIRV) == 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: %q", ErrEmptyShader, label)
	}
	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{WGSL: src.WGSL, SPIRV: src.SPIRV},
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create shader module %q: %w", label, err)
	}
	id := gpucore.ShaderModuleID(d.newID())
	d.mu.Lock()
	d.shaderModules[id] = module
	d.mu.Unlock()
	return id, nil
}

// DestroyShaderModule releases a shader module.
func (d *Device) DestroyShaderModule(id gpucore.ShaderModuleID) {
	if module, ok := take(&d.mu, d.shaderModules, id); ok {
		d.device.DestroyShaderModule(module)
	}
}

// CreateBindGroupLayout creates a bind group layout.
func (d *Device) CreateBindGroupLayout(desc *gpucore.BindGroupLayoutDesc) (gpucore.BindGroupLayoutID, error) {
	entries := make([]gputypes.BindGroupLayoutEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		entries[i] = convertLayoutEntry(e)
	}
	layout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: entries,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create bind group layout %q: %w", desc.Label, err)
	}
	id := gpucore.BindGroupLayoutID(d.newID())
	d.mu.Lock()
	d.bindGroupLayouts[id] = layout
	d.mu.Unlock()
	return id, nil
}

// DestroyBindGroupLayout releases a bind group layout.
func (d *Device) DestroyBindGroupLayout(id gpucore.BindGroupLayoutID) {
	if layout, ok := take(&d.mu, d.bindGroupLayouts, id); ok {
		d.device.DestroyBindGroupLayout(layout)
	}
}

// CreatePipelineLayout combines bind group layouts into a pipeline layout.
func (d *Device) CreatePipelineLayout(label string, layouts []gpucore.BindGroupLayoutID) (gpucore.PipelineLayoutID, error) {
	halLayouts := make([]hal.BindGroupLayout, len(layouts))
	d.mu.RLock()
	for i, lid := range layouts {
		l, ok := d.bindGroupLayouts[lid]
		if !ok {
			d.mu.RUnlock()
			return gpucore.InvalidID, fmt.Errorf("%w: bind group layout %d", ErrUnknownResource, lid)
		}
		halLayouts[i] = l
	}
	d.mu.RUnlock()

	layout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: halLayouts,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create pipeline layout %q: %w", label, err)
	}
	id := gpucore.PipelineLayoutID(d.newID())
	d.mu.Lock()
	d.pipelineLayouts[id] = layout
	d.mu.Unlock()
	return id, nil
}

// DestroyPipelineLayout releases a pipeline layout.
func (d *Device) DestroyPipelineLayout(id gpucore.PipelineLayoutID) {
	if layout, ok := take(&d.mu, d.pipelineLayouts, id); ok {
		d.device.DestroyPipelineLayout(layout)
	}
}

// CreateRenderPipeline creates a render pipeline with one color target.
func (d *Device) CreateRenderPipeline(desc *gpucore.RenderPipelineDesc) (gpucore.RenderPipelineID, error) {
	d.mu.RLock()
	layout, okLayout := d.pipelineLayouts[desc.Layout]
	module, okModule := d.shaderModules[desc.Module]
	d.mu.RUnlock()
	if !okLayout {
		return gpucore.InvalidID, fmt.Errorf("%w: pipeline layout %d", ErrUnknownResource, desc.Layout)
	}
	if !okModule {
		return gpucore.InvalidID, fmt.Errorf("%w: shader module %d", ErrUnknownResource, desc.Module)
	}

	pipeline, err := d.device.CreateRenderPipeline(convertPipelineDesc(desc, layout, module))
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create render pipeline %q: %w", desc.Label, err)
	}
	id := gpucore.RenderPipelineID(d.newID())
	d.mu.Lock()
	d.pipelines[id] = pipeline
	d.mu.Unlock()
	return id, nil
}

// DestroyRenderPipeline releases a render pipeline.
func (d *Device) DestroyRenderPipeline(id gpucore.RenderPipelineID) {
	if p, ok := take(&d.mu, d.pipelines, id); ok {
		d.device.DestroyRenderPipeline(p)
	}
}

// CreateBindGroup binds resources to a layout.
func (d *Device) CreateBindGroup(desc *gpucore.BindGroupDesc) (gpucore.BindGroupID, error) {
	d.mu.RLock()
	layout, ok := d.bindGroupLayouts[desc.Layout]
	if !ok {
		d.mu.RUnlock()
		return gpucore.InvalidID, fmt.Errorf("%w: bind group layout %d", ErrUnknownResource, desc.Layout)
	}
	entries := make([]gputypes.BindGroupEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		entry, err := d.convertBindGroupEntry(e)
		if err != nil {
			d.mu.RUnlock()
			return gpucore.InvalidID, err
		}
		entries[i] = entry
	}
	d.mu.RUnlock()

	group, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create bind group %q: %w", desc.Label, err)
	}
	id := gpucore.BindGroupID(d.newID())
	d.mu.Lock()
	d.bindGroups[id] = group
	d.mu.Unlock()
	return id, nil
}

// DestroyBindGroup releases a bind group.
func (d *Device) DestroyBindGroup(id gpucore.BindGroupID) {
	if g, ok := take(&d.mu, d.bindGroups, id); ok {
		d.device.DestroyBindGroup(g)
	}
}

// Live returns the number of resources of every kind still alive.
func (d *Device) Live() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.buffers) + len(d.textures) + len(d.views) + len(d.samplers) +
		len(d.shaderModules) + len(d.bindGroupLayouts) + len(d.pipelineLayouts) +
		len(d.pipelines) + len(d.bindGroups)
}

// convertBindGroupEntry resolves the HAL handle of one entry.
// Must be called with mu held.
func (d *Device) convertBindGroupEntry(e gpucore.BindGroupEntry) (gputypes.BindGroupEntry, error) {
	out := gputypes.BindGroupEntry{Binding: e.Binding}
	switch {
	case e.Buffer != gpucore.InvalidID:
		buf, ok := d.buffers[e.Buffer]
		if !ok {
			return out, fmt.Errorf("%w: buffer %d", ErrUnknownResource, e.Buffer)
		}
		out.Resource = gputypes.BufferBinding{Buffer: buf.NativeHandle(), Offset: e.Offset, Size: e.Size}
	case e.TextureView != gpucore.InvalidID:
		view, ok := d.views[e.TextureView]
		if !ok {
			return out, fmt.Errorf("%w: texture view %d", ErrUnknownResource, e.TextureView)
		}
		out.Resource = gputypes.TextureViewBinding{TextureView: view.NativeHandle()}
	case e.Sampler != gpucore.InvalidID:
		smp, ok := d.samplers[e.Sampler]
		if !ok {
			return out, fmt.Errorf("%w: sampler %d", ErrUnknownResource, e.Sampler)
		}
		out.Resource = gputypes.SamplerBinding{Sampler: smp.NativeHandle()}
	default:
		return out, fmt.Errorf("native: bind group entry %d binds nothing", e.Binding)
	}
	return out, nil
}

// lookup reads m[id] under a read lock.
func lookup[K comparable, V any](mu *sync.RWMutex, m map[K]V, id K) (V, bool) {
	mu.RLock()
	v, ok := m[id]
	mu.RUnlock()
	return v, ok
}

// take removes and returns m[id] under the write lock.
func take[K comparable, V any](mu *sync.RWMutex, m map[K]V, id K) (V, bool) {
	mu.Lock()
	v, ok := m[id]
	if ok {
		delete(m, id)
	}
	mu.Unlock()
	return v, ok
}

// === Conversions ===

func convertBufferUsage(u gpucore.BufferUsage) gputypes.BufferUsage {
	var out gputypes.BufferUsage
	if u&gpucore.BufferUsageCopyDst != 0 {
		out |= gputypes.BufferUsageCopyDst
	}
	if u&gpucore.BufferUsageIndex != 0 {
		out |= gputypes.BufferUsageIndex
	}
	if u&gpucore.BufferUsageVertex != 0 {
		out |= gputypes.BufferUsageVertex
	}
	if u&gpucore.BufferUsageUniform != 0 {
		out |= gputypes.BufferUsageUniform
	}
	return out
}

func convertTextureUsage(u gpucore.TextureUsage) gputypes.TextureUsage {
	var out gputypes.TextureUsage
	if u&gpucore.TextureUsageCopySrc != 0 {
		out |= gputypes.TextureUsageCopySrc
	}
	if u&gpucore.TextureUsageCopyDst != 0 {
		out |= gputypes.TextureUsageCopyDst
	}
	if u&gpucore.TextureUsageTextureBinding != 0 {
		out |= gputypes.TextureUsageTextureBinding
	}
	if u&gpucore.TextureUsageRenderAttachment != 0 {
		out |= gputypes.TextureUsageRenderAttachment
	}
	return out
}

func convertStages(s gpucore.ShaderStage) gputypes.ShaderStages {
	var out gputypes.ShaderStages
	if s&gpucore.ShaderStageVertex != 0 {
		out |= gputypes.ShaderStageVertex
	}
	if s&gpucore.ShaderStageFragment != 0 {
		out |= gputypes.ShaderStageFragment
	}
	return out
}

func convertLayoutEntry(e gpucore.BindGroupLayoutEntry) gputypes.BindGroupLayoutEntry {
	out := gputypes.BindGroupLayoutEntry{
		Binding:    e.Binding,
		Visibility: convertStages(e.Visibility),
	}
	switch e.Type {
	case gpucore.BindingTypeUniformBuffer:
		out.Buffer = &gputypes.BufferBindingLayout{
			Type:           gputypes.BufferBindingTypeUniform,
			MinBindingSize: e.MinBindingSize,
		}
	case gpucore.BindingTypeSampledTexture:
		out.Texture = &gputypes.TextureBindingLayout{
			SampleType:    gputypes.TextureSampleTypeFloat,
			ViewDimension: gputypes.TextureViewDimension2D,
		}
	case gpucore.BindingTypeSampler:
		out.Sampler = &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}
	}
	return out
}

func convertPipelineDesc(desc *gpucore.RenderPipelineDesc, layout hal.PipelineLayout, module hal.ShaderModule) *hal.RenderPipelineDescriptor {
	buffers := make([]gputypes.VertexBufferLayout, len(desc.VertexBuffers))
	for i, vb := range desc.VertexBuffers {
		attrs := make([]gputypes.VertexAttribute, len(vb.Attributes))
		for j, a := range vb.Attributes {
			attrs[j] = gputypes.VertexAttribute{Format: a.Format, Offset: a.Offset, ShaderLocation: a.ShaderLocation}
		}
		buffers[i] = gputypes.VertexBufferLayout{
			ArrayStride: vb.ArrayStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes:  attrs,
		}
	}

	var blend *gputypes.BlendState
	if desc.Blend != nil {
		blend = &gputypes.BlendState{
			Color: convertBlendComponent(desc.Blend.Color),
			Alpha: convertBlendComponent(desc.Blend.Alpha),
		}
	}

	samples := desc.SampleCount
	if samples == 0 {
		samples = 1
	}
	return &hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: desc.VertexEntryPoint,
			Buffers:    buffers,
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  desc.Primitive.Topology,
			FrontFace: desc.Primitive.FrontFace,
			CullMode:  desc.Primitive.CullMode,
		},
		Multisample: gputypes.MultisampleState{Count: samples, Mask: 0xFFFFFFFF},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: desc.FragmentEntryPoint,
			Targets: []gputypes.ColorTargetState{{
				Format:    desc.TargetFormat,
				Blend:     blend,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
	}
}

func convertBlendComponent(c gpucore.BlendComponent) gputypes.BlendComponent {
	return gputypes.BlendComponent{SrcFactor: c.SrcFactor, DstFactor: c.DstFactor, Operation: c.Operation}
}
