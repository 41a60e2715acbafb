// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"

	"github.com/gogpu/spine/gpucore"
)

// Layouts holds the bind group and pipeline layouts of the shader variants.
//
// The colored variant binds only the uniform buffer. Both textured variants
// share one layout: uniform at 0, texture at 1, sampler at 2.
type Layouts struct {
	dev gpucore.Device

	coloredGroup  gpucore.BindGroupLayoutID
	texturedGroup gpucore.BindGroupLayoutID

	coloredPipeline  gpucore.PipelineLayoutID
	texturedPipeline gpucore.PipelineLayoutID
}

// uniformLayoutEntry is binding 0 of every variant.
func uniformLayoutEntry() gpucore.BindGroupLayoutEntry {
	return gpucore.BindGroupLayoutEntry{
		Binding:        0,
		Visibility:     gpucore.ShaderStageVertex | gpucore.ShaderStageFragment,
		Type:           gpucore.BindingTypeUniformBuffer,
		MinBindingSize: UniformSize,
	}
}

// BindGroupLayoutDesc returns the layout descriptor of a variant.
func BindGroupLayoutDesc(v ShaderVariant) gpucore.BindGroupLayoutDesc {
	if !v.Textured() {
		return gpucore.BindGroupLayoutDesc{
			Label:   "spine_colored_bgl",
			Entries: []gpucore.BindGroupLayoutEntry{uniformLayoutEntry()},
		}
	}
	return gpucore.BindGroupLayoutDesc{
		Label: "spine_textured_bgl",
		Entries: []gpucore.BindGroupLayoutEntry{
			uniformLayoutEntry(),
			{Binding: 1, Visibility: gpucore.ShaderStageFragment, Type: gpucore.BindingTypeSampledTexture},
			{Binding: 2, Visibility: gpucore.ShaderStageFragment, Type: gpucore.BindingTypeSampler},
		},
	}
}

// NewLayouts creates the layouts on dev.
func NewLayouts(dev gpucore.Device) (*Layouts, error) {
	l := &Layouts{dev: dev}

	colored := BindGroupLayoutDesc(ShaderColored)
	textured := BindGroupLayoutDesc(ShaderColoredTextured)

	var err error
	if l.coloredGroup, err = dev.CreateBindGroupLayout(&colored); err != nil {
		return nil, fmt.Errorf("create colored bind group layout: %w", err)
	}
	if l.texturedGroup, err = dev.CreateBindGroupLayout(&textured); err != nil {
		l.Destroy()
		return nil, fmt.Errorf("create textured bind group layout: %w", err)
	}
	if l.coloredPipeline, err = dev.CreatePipelineLayout("spine_colored_layout", []gpucore.BindGroupLayoutID{l.coloredGroup}); err != nil {
		l.Destroy()
		return nil, fmt.Errorf("create colored pipeline layout: %w", err)
	}
	if l.texturedPipeline, err = dev.CreatePipelineLayout("spine_textured_layout", []gpucore.BindGroupLayoutID{l.texturedGroup}); err != nil {
		l.Destroy()
		return nil, fmt.Errorf("create textured pipeline layout: %w", err)
	}
	return l, nil
}

// BindGroupLayout returns the bind group layout of a variant.
func (l *Layouts) BindGroupLayout(v ShaderVariant) gpucore.BindGroupLayoutID {
	if v.Textured() {
		return l.texturedGroup
	}
	return l.coloredGroup
}

// PipelineLayout returns the pipeline layout of a variant.
func (l *Layouts) PipelineLayout(v ShaderVariant) gpucore.PipelineLayoutID {
	if v.Textured() {
		return l.texturedPipeline
	}
	return l.coloredPipeline
}

// Destroy releases every layout that was created.
func (l *Layouts) Destroy() {
	if l.texturedPipeline != gpucore.InvalidID {
		l.dev.DestroyPipelineLayout(l.texturedPipeline)
		l.texturedPipeline = gpucore.InvalidID
	}
	if l.coloredPipeline != gpucore.InvalidID {
		l.dev.DestroyPipelineLayout(l.coloredPipeline)
		l.coloredPipeline = gpucore.InvalidID
	}
	if l.texturedGroup != gpucore.InvalidID {
		l.dev.DestroyBindGroupLayout(l.texturedGroup)
		l.texturedGroup = gpucore.InvalidID
	}
	if l.coloredGroup != gpucore.InvalidID {
		l.dev.DestroyBindGroupLayout(l.coloredGroup)
		l.coloredGroup = gpucore.InvalidID
	}
}
