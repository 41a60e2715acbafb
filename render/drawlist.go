// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/spine/gpucore"
)

// IndexRange locates u16 indices inside the index ring.
type IndexRange struct {
	Range
	Format gputypes.IndexFormat
}

// DrawObject is one GPU-ready draw. It is immutable once built.
//
// The object holds a reference to its pipeline and bind group until the
// DrawList that owns it is cleared.
type DrawObject struct {
	pipeline  *PipelineHandle
	bindGroup *BindGroupHandle

	// Vertices is the vertex data range.
	Vertices Range

	// Indices is the index data range, nil for non-indexed draws.
	Indices *IndexRange

	// VertexCount and IndexCount are the element counts of the draw.
	VertexCount uint32
	IndexCount  uint32

	// InstanceCount is always 1.
	InstanceCount uint32
}

// NewDrawObject assembles a draw. It takes ownership of the two handles.
func NewDrawObject(pipeline *PipelineHandle, bindGroup *BindGroupHandle, vertices Range, indices *IndexRange, vertexCount, indexCount uint32) *DrawObject {
	return &DrawObject{
		pipeline:      pipeline,
		bindGroup:     bindGroup,
		Vertices:      vertices,
		Indices:       indices,
		VertexCount:   vertexCount,
		IndexCount:    indexCount,
		InstanceCount: 1,
	}
}

// Pipeline returns the render pipeline of the draw.
func (d *DrawObject) Pipeline() gpucore.RenderPipelineID { return d.pipeline.Value().ID }

// BindGroup returns bind group 0 of the draw.
func (d *DrawObject) BindGroup() gpucore.BindGroupID { return d.bindGroup.Value().ID }

// PipelineHandle returns the cache handle of the pipeline.
func (d *DrawObject) PipelineHandle() *PipelineHandle { return d.pipeline }

// BindGroupHandle returns the cache handle of the bind group.
func (d *DrawObject) BindGroupHandle() *BindGroupHandle { return d.bindGroup }

// Indexed reports whether the draw uses the index ring.
func (d *DrawObject) Indexed() bool { return d.Indices != nil }

// Encode records the draw into pass.
func (d *DrawObject) Encode(pass gpucore.RenderPass) {
	pass.SetPipeline(d.Pipeline())
	pass.SetBindGroup(0, d.BindGroup())
	pass.SetVertexBuffer(0, d.Vertices.Buffer, d.Vertices.Start)
	if d.Indices != nil {
		pass.SetIndexBuffer(d.Indices.Buffer, d.Indices.Format, d.Indices.Start)
		pass.DrawIndexed(d.IndexCount, d.InstanceCount, 0, 0, 0)
		return
	}
	pass.Draw(d.VertexCount, d.InstanceCount, 0, 0)
}

// release drops the handles held by the draw.
func (d *DrawObject) release() {
	d.pipeline.Release()
	d.bindGroup.Release()
}

// DrawList is an ordered list of draws. Later draws composite over earlier
// ones, so order is preserved exactly.
type DrawList struct {
	objects []*DrawObject
}

// Append adds a draw at the end.
func (l *DrawList) Append(d *DrawObject) {
	l.objects = append(l.objects, d)
}

// Len returns the number of draws.
func (l *DrawList) Len() int { return len(l.objects) }

// Objects returns the draws in order. The slice must not be modified.
func (l *DrawList) Objects() []*DrawObject { return l.objects }

// Clear empties the list and releases every draw's handles.
func (l *DrawList) Clear() {
	for i, d := range l.objects {
		d.release()
		l.objects[i] = nil
	}
	l.objects = l.objects[:0]
}

// Encode records every draw into pass, in order.
func (l *DrawList) Encode(pass gpucore.RenderPass) {
	for _, d := range l.objects {
		d.Encode(pass)
	}
}
