// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/spine/cache"
	"github.com/gogpu/spine/gpucore"
	"github.com/gogpu/spine/internal/hashkey"
)

// ErrTextureData is returned by Upload when the pixel slice does not match
// the texture size.
var ErrTextureData = errors.New("render: texture data size mismatch")

// samplerSize is the nominal cache cost of a sampler.
const samplerSize = 64

// TextureFormat is the format of uploaded atlas pages. Atlas texels are
// sRGB encoded, so sampling returns linear color.
const TextureFormat = gputypes.TextureFormatRGBA8UnormSrgb

// Texture is an atlas page on the GPU.
type Texture struct {
	Key    uint64
	ID     gpucore.TextureID
	View   gpucore.TextureViewID
	Width  uint32
	Height uint32
}

// Sampler is a GPU sampler and the descriptor it was built from.
type Sampler struct {
	Desc gpucore.SamplerDesc
	ID   gpucore.SamplerID
}

// TextureHandle is a reference to a cached texture.
type TextureHandle = cache.Handle[uint64, *Texture]

// SamplerHandle is a reference to a cached sampler.
type SamplerHandle = cache.Handle[gpucore.SamplerDesc, *Sampler]

// DefaultSamplerDesc is the sampler used for Spine atlas pages:
// repeat addressing, linear filtering, nearest mip selection.
func DefaultSamplerDesc() gpucore.SamplerDesc {
	return gpucore.SamplerDesc{
		AddressModeU: gputypes.AddressModeRepeat,
		AddressModeV: gputypes.AddressModeRepeat,
		AddressModeW: gputypes.AddressModeRepeat,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeNearest,
	}
}

// TextureKey hashes a texture name to its content key.
func TextureKey(name string) uint64 {
	return hashkey.String64(name)
}

// TextureStore caches atlas textures by content key and samplers by
// descriptor. It is shared by every renderer on a device.
type TextureStore struct {
	dev      gpucore.Device
	textures *cache.Cache[uint64, *Texture]
	samplers *cache.Cache[gpucore.SamplerDesc, *Sampler]
}

// NewTextureStore creates an empty store. now may be nil.
func NewTextureStore(dev gpucore.Device, textures, samplers CacheLimits, now func() time.Time) *TextureStore {
	return &TextureStore{
		dev: dev,
		textures: cache.New(cache.Options[uint64, *Texture]{
			Capacity: textures.Capacity,
			Timeout:  textures.Timeout,
			Now:      now,
			OnEvict: func(_ uint64, t *Texture) {
				slogger().Debug("render: texture evicted", "key", t.Key)
				dev.DestroyTextureView(t.View)
				dev.DestroyTexture(t.ID)
			},
		}),
		samplers: cache.New(cache.Options[gpucore.SamplerDesc, *Sampler]{
			Capacity: samplers.Capacity,
			Timeout:  samplers.Timeout,
			Now:      now,
			OnEvict: func(_ gpucore.SamplerDesc, s *Sampler) {
				dev.DestroySampler(s.ID)
			},
		}),
	}
}

// Texture returns the cached texture stored under key.
func (s *TextureStore) Texture(key uint64) (*TextureHandle, bool) {
	return s.textures.Get(key)
}

// Upload returns the texture named name, creating and filling it from
// tightly packed RGBA8 pixels on a cache miss. A resident texture is reused
// as is; rgba is ignored in that case.
func (s *TextureStore) Upload(name string, rgba []byte, width, height uint32) (*TextureHandle, error) {
	key := TextureKey(name)
	if h, ok := s.textures.Get(key); ok {
		return h, nil
	}

	size := uint64(width) * uint64(height) * 4
	if width == 0 || height == 0 || uint64(len(rgba)) != size {
		return nil, fmt.Errorf("%w: %q is %dx%d, got %d bytes", ErrTextureData, name, width, height, len(rgba))
	}

	id, err := s.dev.CreateTexture(&gpucore.TextureDesc{
		Label:  name,
		Width:  width,
		Height: height,
		Format: TextureFormat,
		Usage:  gpucore.TextureUsageCopySrc | gpucore.TextureUsageCopyDst | gpucore.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", name, err)
	}
	s.dev.WriteTexture(id, rgba, width*4, width, height)

	view, err := s.dev.CreateTextureView(id)
	if err != nil {
		s.dev.DestroyTexture(id)
		return nil, fmt.Errorf("create texture view %q: %w", name, err)
	}

	t := &Texture{Key: key, ID: id, View: view, Width: width, Height: height}
	h, err := s.textures.Insert(key, t, size)
	if err != nil {
		s.dev.DestroyTextureView(view)
		s.dev.DestroyTexture(id)
		return nil, fmt.Errorf("texture %q: %w", name, err)
	}
	slogger().Debug("render: texture uploaded", "name", name, "key", key, "width", width, "height", height)
	return h, nil
}

// Sampler returns the sampler for desc, creating it on a miss.
func (s *TextureStore) Sampler(desc gpucore.SamplerDesc) (*SamplerHandle, error) {
	if h, ok := s.samplers.Get(desc); ok {
		return h, nil
	}
	id, err := s.dev.CreateSampler(&desc)
	if err != nil {
		return nil, fmt.Errorf("create sampler: %w", err)
	}
	h, err := s.samplers.Insert(desc, &Sampler{Desc: desc, ID: id}, samplerSize)
	if err != nil {
		s.dev.DestroySampler(id)
		return nil, fmt.Errorf("sampler: %w", err)
	}
	return h, nil
}

// Collect evicts textures and samplers idle past their timeouts.
func (s *TextureStore) Collect() int {
	return s.textures.Collect() + s.samplers.Collect()
}

// Purge destroys every idle texture and sampler.
func (s *TextureStore) Purge() int {
	return s.textures.Purge() + s.samplers.Purge()
}

// TextureStats returns texture cache statistics.
func (s *TextureStore) TextureStats() cache.Stats { return s.textures.Stats() }

// SamplerStats returns sampler cache statistics.
func (s *TextureStore) SamplerStats() cache.Stats { return s.samplers.Stats() }
