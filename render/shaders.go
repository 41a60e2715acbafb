// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	_ "embed"
	"encoding/binary"
	"fmt"

	"github.com/gogpu/naga"

	"github.com/gogpu/spine/gpucore"
)

//go:embed shaders/colored.wgsl
var coloredShaderSource string

//go:embed shaders/colored_textured.wgsl
var coloredTexturedShaderSource string

//go:embed shaders/two_colored_textured.wgsl
var twoColoredTexturedShaderSource string

// Shader entry points shared by all variants.
const (
	VertexEntryPoint   = "vs_main"
	FragmentEntryPoint = "fs_main"
)

// WGSL returns the embedded WGSL source of the variant.
func (v ShaderVariant) WGSL() string {
	switch v {
	case ShaderColored:
		return coloredShaderSource
	case ShaderColoredTextured:
		return coloredTexturedShaderSource
	case ShaderTwoColoredTextured:
		return twoColoredTexturedShaderSource
	default:
		return ""
	}
}

// CompileSPIRV compiles the variant's WGSL to SPIR-V words with naga.
func CompileSPIRV(v ShaderVariant) ([]uint32, error) {
	src := v.WGSL()
	if src == "" {
		return nil, fmt.Errorf("render: no shader source for %s", v)
	}
	spirv, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("compile %s shader: %w", v, err)
	}
	if len(spirv)%4 != 0 {
		return nil, fmt.Errorf("compile %s shader: SPIR-V length %d is not a multiple of 4", v, len(spirv))
	}
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirv[i*4:])
	}
	return words, nil
}

// ShaderSourceFor returns the module source of a variant in the given format.
func ShaderSourceFor(v ShaderVariant, format ShaderFormat) (gpucore.ShaderSource, error) {
	switch format {
	case ShaderSPIRV:
		words, err := CompileSPIRV(v)
		if err != nil {
			return gpucore.ShaderSource{}, err
		}
		return gpucore.ShaderSource{SPIRV: words}, nil
	default:
		src := v.WGSL()
		if src == "" {
			return gpucore.ShaderSource{}, fmt.Errorf("render: no shader source for %s", v)
		}
		return gpucore.ShaderSource{WGSL: src}, nil
	}
}
