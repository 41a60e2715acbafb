package gpucore

import "github.com/gogpu/gputypes"

// Device abstracts the GPU device and its queue.
//
// Creation methods return an error when the backend rejects the resource.
// Write methods enqueue a copy and return immediately; successive writes to
// the same resource are applied in submission order.
//
// Implementations must be safe for concurrent use.
type Device interface {
	// === Buffers ===

	// CreateBuffer creates a GPU buffer of size bytes.
	CreateBuffer(label string, size uint64, usage BufferUsage) (BufferID, error)

	// DestroyBuffer releases a GPU buffer.
	DestroyBuffer(id BufferID)

	// WriteBuffer enqueues a write of data at offset.
	WriteBuffer(id BufferID, offset uint64, data []byte)

	// === Textures ===

	// CreateTexture creates a 2D texture with one mip level.
	CreateTexture(desc *TextureDesc) (TextureID, error)

	// DestroyTexture releases a texture.
	DestroyTexture(id TextureID)

	// WriteTexture enqueues a full upload of tightly packed texels.
	WriteTexture(id TextureID, data []byte, bytesPerRow, width, height uint32)

	// CreateTextureView creates the default 2D view of a texture.
	CreateTextureView(id TextureID) (TextureViewID, error)

	// DestroyTextureView releases a texture view.
	DestroyTextureView(id TextureViewID)

	// CreateSampler creates a sampler.
	CreateSampler(desc *SamplerDesc) (SamplerID, error)

	// DestroySampler releases a sampler.
	DestroySampler(id SamplerID)

	// === Shaders and Pipelines ===

	// CreateShaderModule creates a shader module from WGSL or SPIR-V.
	CreateShaderModule(label string, src ShaderSource) (ShaderModuleID, error)

	// DestroyShaderModule releases a shader module.
	DestroyShaderModule(id ShaderModuleID)

	// CreateBindGroupLayout creates a bind group layout.
	CreateBindGroupLayout(desc *BindGroupLayoutDesc) (BindGroupLayoutID, error)

	// DestroyBindGroupLayout releases a bind group layout.
	DestroyBindGroupLayout(id BindGroupLayoutID)

	// CreatePipelineLayout combines bind group layouts into a pipeline layout.
	CreatePipelineLayout(label string, layouts []BindGroupLayoutID) (PipelineLayoutID, error)

	// DestroyPipelineLayout releases a pipeline layout.
	DestroyPipelineLayout(id PipelineLayoutID)

	// CreateRenderPipeline creates a render pipeline.
	CreateRenderPipeline(desc *RenderPipelineDesc) (RenderPipelineID, error)

	// DestroyRenderPipeline releases a render pipeline.
	DestroyRenderPipeline(id RenderPipelineID)

	// CreateBindGroup binds resources to a layout.
	CreateBindGroup(desc *BindGroupDesc) (BindGroupID, error)

	// DestroyBindGroup releases a bind group.
	DestroyBindGroup(id BindGroupID)
}

// RenderPass records draw commands into an open render pass.
//
// The pass itself (attachments, load/store ops, viewport) is owned by the
// caller; RenderPass only receives the per-draw state.
type RenderPass interface {
	// SetPipeline sets the active render pipeline.
	SetPipeline(id RenderPipelineID)

	// SetBindGroup sets a bind group at the specified index.
	SetBindGroup(index uint32, id BindGroupID)

	// SetVertexBuffer binds a vertex buffer to a slot starting at offset.
	SetVertexBuffer(slot uint32, id BufferID, offset uint64)

	// SetIndexBuffer binds the index buffer starting at offset.
	SetIndexBuffer(id BufferID, format gputypes.IndexFormat, offset uint64)

	// Draw draws non-indexed primitives.
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)

	// DrawIndexed draws indexed primitives.
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
}
