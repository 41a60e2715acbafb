package native

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/spine/gpucore"
)

// maxBindGroups is the WebGPU minimum for maxBindGroups.
const maxBindGroups = 4

// RenderPass implements gpucore.RenderPass over an open hal.RenderPassEncoder.
//
// Commands naming an unknown resource are skipped and counted; a draw issued
// while any of its state was skipped is skipped as well.
//
// RenderPass is NOT safe for concurrent use. The caller begins and ends the
// underlying pass.
type RenderPass struct {
	dev  *Device
	pass hal.RenderPassEncoder

	hasPipeline bool
	broken      bool
	skipped     int
}

var _ gpucore.RenderPass = (*RenderPass)(nil)

// NewRenderPass wraps pass, resolving IDs against d.
func (d *Device) NewRenderPass(pass hal.RenderPassEncoder) *RenderPass {
	return &RenderPass{dev: d, pass: pass}
}

// Skipped returns the number of commands dropped so far.
func (p *RenderPass) Skipped() int { return p.skipped }

func (p *RenderPass) skip(cmd string, id uint64) {
	p.skipped++
	p.broken = true
	slogger().Warn("native: render pass command skipped", "command", cmd, "id", id)
}

// SetPipeline sets the active render pipeline.
func (p *RenderPass) SetPipeline(id gpucore.RenderPipelineID) {
	pl, ok := lookup(&p.dev.mu, p.dev.pipelines, id)
	if !ok {
		p.skip("SetPipeline", uint64(id))
		return
	}
	p.pass.SetPipeline(pl)
	p.hasPipeline = true
	p.broken = false
}

// SetBindGroup sets the bind group at index.
func (p *RenderPass) SetBindGroup(index uint32, id gpucore.BindGroupID) {
	g, ok := lookup(&p.dev.mu, p.dev.bindGroups, id)
	if !ok || index >= maxBindGroups {
		p.skip("SetBindGroup", uint64(id))
		return
	}
	p.pass.SetBindGroup(index, g, nil)
}

// SetVertexBuffer binds a vertex buffer to slot starting at offset.
func (p *RenderPass) SetVertexBuffer(slot uint32, id gpucore.BufferID, offset uint64) {
	buf, ok := lookup(&p.dev.mu, p.dev.buffers, id)
	if !ok {
		p.skip("SetVertexBuffer", uint64(id))
		return
	}
	p.pass.SetVertexBuffer(slot, buf, offset)
}

// SetIndexBuffer binds the index buffer starting at offset.
func (p *RenderPass) SetIndexBuffer(id gpucore.BufferID, format gputypes.IndexFormat, offset uint64) {
	buf, ok := lookup(&p.dev.mu, p.dev.buffers, id)
	if !ok {
		p.skip("SetIndexBuffer", uint64(id))
		return
	}
	p.pass.SetIndexBuffer(buf, format, offset)
}

// Draw draws non-indexed primitives.
func (p *RenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if !p.hasPipeline || p.broken {
		p.skipped++
		return
	}
	p.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

// DrawIndexed draws indexed primitives.
func (p *RenderPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	if !p.hasPipeline || p.broken {
		p.skipped++
		return
	}
	p.pass.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}
