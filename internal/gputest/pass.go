package gputest

import (
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/spine/gpucore"
)

// Pass records render pass commands as readable strings.
type Pass struct {
	Commands []string
}

var _ gpucore.RenderPass = (*Pass)(nil)

// SetPipeline implements gpucore.RenderPass.
func (p *Pass) SetPipeline(id gpucore.RenderPipelineID) {
	p.Commands = append(p.Commands, fmt.Sprintf("pipeline %d", id))
}

// SetBindGroup implements gpucore.RenderPass.
func (p *Pass) SetBindGroup(index uint32, id gpucore.BindGroupID) {
	p.Commands = append(p.Commands, fmt.Sprintf("bindgroup %d=%d", index, id))
}

// SetVertexBuffer implements gpucore.RenderPass.
func (p *Pass) SetVertexBuffer(slot uint32, id gpucore.BufferID, offset uint64) {
	p.Commands = append(p.Commands, fmt.Sprintf("vertex %d=%d@%d", slot, id, offset))
}

// SetIndexBuffer implements gpucore.RenderPass.
func (p *Pass) SetIndexBuffer(id gpucore.BufferID, format gputypes.IndexFormat, offset uint64) {
	f := "u32"
	if format == gputypes.IndexFormatUint16 {
		f = "u16"
	}
	p.Commands = append(p.Commands, fmt.Sprintf("index %d %s@%d", id, f, offset))
}

// Draw implements gpucore.RenderPass.
func (p *Pass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.Commands = append(p.Commands, fmt.Sprintf("draw %d %d %d %d",
		vertexCount, instanceCount, firstVertex, firstInstance))
}

// DrawIndexed implements gpucore.RenderPass.
func (p *Pass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.Commands = append(p.Commands, fmt.Sprintf("drawindexed %d %d %d %d %d",
		indexCount, instanceCount, firstIndex, baseVertex, firstInstance))
}

// String joins the recorded commands one per line.
func (p *Pass) String() string {
	return strings.Join(p.Commands, "\n")
}
