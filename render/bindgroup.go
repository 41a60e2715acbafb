// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/spine/cache"
	"github.com/gogpu/spine/gpucore"
	"github.com/gogpu/spine/internal/hashkey"
)

// ErrMissingTexture is returned when a textured variant is resolved without
// both a texture and a sampler.
var ErrMissingTexture = errors.New("render: textured shader needs texture and sampler")

// bindGroupSize is the nominal cache cost of a bind group.
const bindGroupSize = 64

// BindGroupKey identifies a bind group by the identity of what it binds:
// the uniform slot index, the texture content key and the sampler
// descriptor. Contents are never compared.
type BindGroupKey uint64

// NewBindGroupKey hashes the identities. texture and sampler may be nil.
func NewBindGroupKey(slot uint32, texture *Texture, sampler *gpucore.SamplerDesc) BindGroupKey {
	w := hashkey.New().Uint32(slot)
	w.Bool(texture != nil)
	if texture != nil {
		w.Uint64(texture.Key)
	}
	w.Bool(sampler != nil)
	if sampler != nil {
		w.Uint32(uint32(sampler.AddressModeU)).
			Uint32(uint32(sampler.AddressModeV)).
			Uint32(uint32(sampler.AddressModeW)).
			Uint32(uint32(sampler.MagFilter)).
			Uint32(uint32(sampler.MinFilter)).
			Uint32(uint32(sampler.MipmapFilter))
	}
	return BindGroupKey(w.Sum())
}

// BindGroup is a cached GPU bind group. It keeps the resources it binds
// resident until it is evicted.
type BindGroup struct {
	ID      gpucore.BindGroupID
	Variant ShaderVariant
	Slot    uint32

	uniform *cache.Handle[uint32, gpucore.BufferID]
	texture *TextureHandle
	sampler *SamplerHandle
}

// release drops the references held by the bind group.
func (b *BindGroup) release() {
	b.uniform.Release()
	b.texture.Release()
	b.sampler.Release()
}

// BindGroupHandle is a reference to a cached bind group.
type BindGroupHandle = cache.Handle[BindGroupKey, *BindGroup]

// BindGroupCache deduplicates bind groups by BindGroupKey.
type BindGroupCache struct {
	dev     gpucore.Device
	layouts *Layouts
	groups  *cache.Cache[BindGroupKey, *BindGroup]
}

// NewBindGroupCache creates an empty cache. now may be nil.
func NewBindGroupCache(dev gpucore.Device, layouts *Layouts, limits CacheLimits, now func() time.Time) *BindGroupCache {
	return &BindGroupCache{
		dev:     dev,
		layouts: layouts,
		groups: cache.New(cache.Options[BindGroupKey, *BindGroup]{
			Capacity: limits.Capacity,
			Timeout:  limits.Timeout,
			Now:      now,
			OnEvict: func(_ BindGroupKey, b *BindGroup) {
				dev.DestroyBindGroup(b.ID)
				b.release()
			},
		}),
	}
}

// Resolve returns the bind group for a draw, building it on a miss.
//
// The colored variant ignores texture and sampler. Textured variants need
// both.
func (c *BindGroupCache) Resolve(v ShaderVariant, slot *UniformSlot, texture *TextureHandle, sampler *SamplerHandle) (*BindGroupHandle, error) {
	if slot == nil {
		return nil, errors.New("render: bind group without uniform slot")
	}
	if !v.Textured() {
		texture, sampler = nil, nil
	} else if texture == nil || sampler == nil {
		return nil, fmt.Errorf("%w: %s (texture %t, sampler %t)", ErrMissingTexture, v, texture != nil, sampler != nil)
	}

	var tex *Texture
	var desc *gpucore.SamplerDesc
	if texture != nil {
		tex = texture.Value()
		d := sampler.Value().Desc
		desc = &d
	}
	key := NewBindGroupKey(slot.Index(), tex, desc)

	if h, ok := c.groups.Get(key); ok {
		return h, nil
	}

	entries := []gpucore.BindGroupEntry{
		{Binding: 0, Buffer: slot.Buffer(), Offset: 0, Size: UniformSize},
	}
	if tex != nil {
		entries = append(entries,
			gpucore.BindGroupEntry{Binding: 1, TextureView: tex.View},
			gpucore.BindGroupEntry{Binding: 2, Sampler: sampler.Value().ID},
		)
	}
	id, err := c.dev.CreateBindGroup(&gpucore.BindGroupDesc{
		Label:   fmt.Sprintf("spine_%s_bg_%d", v, slot.Index()),
		Layout:  c.layouts.BindGroupLayout(v),
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group: %w", err)
	}

	b := &BindGroup{ID: id, Variant: v, Slot: slot.Index(), uniform: slot.bufferHandle()}
	if tex != nil {
		b.texture = texture.Clone()
		b.sampler = sampler.Clone()
	}
	h, err := c.groups.Insert(key, b, bindGroupSize)
	if err != nil {
		c.dev.DestroyBindGroup(id)
		b.release()
		return nil, fmt.Errorf("bind group: %w", err)
	}
	slogger().Debug("render: bind group created", "variant", v, "slot", slot.Index())
	return h, nil
}

// Collect evicts bind groups idle past the timeout.
func (c *BindGroupCache) Collect() int { return c.groups.Collect() }

// Purge destroys every idle bind group.
func (c *BindGroupCache) Purge() int { return c.groups.Purge() }

// Stats returns cache statistics.
func (c *BindGroupCache) Stats() cache.Stats { return c.groups.Stats() }
