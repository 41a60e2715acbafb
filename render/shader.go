// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/spine/gpucore"
)

// ShaderVariant identifies one of the three Spine shader programs.
// The set is closed; every switch over it is exhaustive.
type ShaderVariant uint8

const (
	// ShaderColored draws vertex-colored triangles (position, color).
	ShaderColored ShaderVariant = iota

	// ShaderColoredTextured samples the atlas and tints it (position, color, uv).
	ShaderColoredTextured

	// ShaderTwoColoredTextured applies Spine's light/dark tint
	// (position, light color, uv, dark color).
	ShaderTwoColoredTextured
)

// shaderVariantCount is the number of shader variants.
const shaderVariantCount = 3

var shaderVariantNames = [shaderVariantCount]string{
	"Colored",
	"ColoredTextured",
	"TwoColoredTextured",
}

// String returns the variant name.
func (v ShaderVariant) String() string {
	if v.Valid() {
		return shaderVariantNames[v]
	}
	return fmt.Sprintf("ShaderVariant(%d)", v)
}

// Valid reports whether v is one of the declared variants.
func (v ShaderVariant) Valid() bool {
	return v < shaderVariantCount
}

// ShaderVariants returns every variant in declaration order.
func ShaderVariants() []ShaderVariant {
	return []ShaderVariant{ShaderColored, ShaderColoredTextured, ShaderTwoColoredTextured}
}

// Textured reports whether the variant samples a texture, and therefore
// needs a texture and a sampler bound at bindings 1 and 2.
func (v ShaderVariant) Textured() bool {
	switch v {
	case ShaderColoredTextured, ShaderTwoColoredTextured:
		return true
	default:
		return false
	}
}

// FloatsPerVertex returns the number of float32 values in one vertex.
func (v ShaderVariant) FloatsPerVertex() int {
	switch v {
	case ShaderColored:
		return 2 + 4
	case ShaderColoredTextured:
		return 2 + 4 + 2
	case ShaderTwoColoredTextured:
		return 2 + 4 + 2 + 4
	default:
		return 0
	}
}

// Stride returns the vertex size in bytes.
func (v ShaderVariant) Stride() uint64 {
	return uint64(v.FloatsPerVertex()) * 4
}

// Attributes returns the variant's vertex attributes.
func (v ShaderVariant) Attributes() []gpucore.VertexAttribute {
	position := gpucore.VertexAttribute{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0}
	color := gpucore.VertexAttribute{Format: gputypes.VertexFormatFloat32x4, Offset: 8, ShaderLocation: 1}
	uv := gpucore.VertexAttribute{Format: gputypes.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2}
	dark := gpucore.VertexAttribute{Format: gputypes.VertexFormatFloat32x4, Offset: 32, ShaderLocation: 3}

	switch v {
	case ShaderColored:
		return []gpucore.VertexAttribute{position, color}
	case ShaderColoredTextured:
		return []gpucore.VertexAttribute{position, color, uv}
	case ShaderTwoColoredTextured:
		return []gpucore.VertexAttribute{position, color, uv, dark}
	default:
		return nil
	}
}

// VertexLayout returns the single vertex buffer layout of the variant.
func (v ShaderVariant) VertexLayout() gpucore.VertexBufferLayout {
	return gpucore.VertexBufferLayout{
		ArrayStride: v.Stride(),
		Attributes:  v.Attributes(),
	}
}
