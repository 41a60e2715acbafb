// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/spine/internal/gputest"
)

func TestTextureUploadOnce(t *testing.T) {
	r, dev := newTestResource(t)
	pixels := bytes.Repeat([]byte{0xff, 0x80, 0x00, 0xff}, 4)

	a, err := r.Textures.Upload("hero.png", pixels, 2, 2)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	defer a.Release()
	b, err := r.Textures.Upload("hero.png", make([]byte, 16), 2, 2)
	if err != nil {
		t.Fatalf("second Upload failed: %v", err)
	}
	defer b.Release()

	if !a.Same(b) {
		t.Error("same name uploaded twice")
	}
	if got := dev.Created(gputest.KindTexture); got != 1 {
		t.Errorf("created %d textures, want 1", got)
	}
	if got := dev.Created(gputest.KindTextureView); got != 1 {
		t.Errorf("created %d views, want 1", got)
	}
	if !bytes.Equal(dev.TextureData(a.Value().ID), pixels) {
		t.Error("resident texture overwritten by second upload")
	}

	tex := a.Value()
	if tex.Key != TextureKey("hero.png") || tex.Width != 2 || tex.Height != 2 {
		t.Errorf("texture = %+v", tex)
	}
	if desc, ok := dev.TextureDesc(tex.ID); !ok || desc.Format != gputypes.TextureFormatRGBA8UnormSrgb {
		t.Errorf("atlas format = %v, want RGBA8UnormSrgb", desc.Format)
	}
	if h, ok := r.Textures.Texture(TextureKey("hero.png")); !ok {
		t.Error("Texture(key) missed a resident texture")
	} else {
		h.Release()
	}
}

func TestTextureKey(t *testing.T) {
	if TextureKey("a.png") == TextureKey("b.png") {
		t.Error("different names share a key")
	}
	if TextureKey("a.png") != TextureKey("a.png") {
		t.Error("TextureKey is not deterministic")
	}
}

func TestTextureDataMismatch(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		width  uint32
		height uint32
	}{
		{"short", 12, 2, 2},
		{"long", 20, 2, 2},
		{"zero width", 0, 0, 2},
		{"zero height", 0, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, dev := newTestResource(t)
			_, err := r.Textures.Upload("bad.png", make([]byte, tt.size), tt.width, tt.height)
			if !errors.Is(err, ErrTextureData) {
				t.Errorf("error = %v, want ErrTextureData", err)
			}
			if got := dev.Created(gputest.KindTexture); got != 0 {
				t.Errorf("created %d textures for bad data", got)
			}
		})
	}
}

func TestTextureViewFailureCleansUp(t *testing.T) {
	r, dev := newTestResource(t)
	dev.FailNext(gputest.KindTextureView, 1)

	if _, err := r.Textures.Upload("atlas.png", make([]byte, 16), 2, 2); !errors.Is(err, gputest.ErrInjected) {
		t.Fatalf("error = %v, want injected failure", err)
	}
	if got := dev.Live(gputest.KindTexture); got != 0 {
		t.Errorf("live textures = %d, want 0", got)
	}
	if got := r.Textures.TextureStats().Len; got != 0 {
		t.Errorf("cached textures = %d, want 0", got)
	}
}

func TestSamplerDedup(t *testing.T) {
	r, dev := newTestResource(t)

	a, err := r.Textures.Sampler(DefaultSamplerDesc())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Release()
	b, err := r.Textures.Sampler(DefaultSamplerDesc())
	if err != nil {
		t.Fatal(err)
	}
	defer b.Release()
	if !a.Same(b) {
		t.Error("equal descriptors built two samplers")
	}

	nearest := DefaultSamplerDesc()
	nearest.MinFilter = gputypes.FilterModeNearest
	c, err := r.Textures.Sampler(nearest)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Release()
	if c.Same(a) {
		t.Error("different descriptors share a sampler")
	}
	if got := dev.Created(gputest.KindSampler); got != 2 {
		t.Errorf("created %d samplers, want 2", got)
	}
}

func TestDefaultSamplerDesc(t *testing.T) {
	d := DefaultSamplerDesc()
	if d.AddressModeU != gputypes.AddressModeRepeat || d.AddressModeV != gputypes.AddressModeRepeat {
		t.Errorf("address modes = %v/%v, want repeat", d.AddressModeU, d.AddressModeV)
	}
	if d.MagFilter != gputypes.FilterModeLinear || d.MinFilter != gputypes.FilterModeLinear {
		t.Errorf("filters = %v/%v, want linear", d.MagFilter, d.MinFilter)
	}
	if d.MipmapFilter != gputypes.FilterModeNearest {
		t.Errorf("mipmap filter = %v, want nearest", d.MipmapFilter)
	}
}

func TestTextureEviction(t *testing.T) {
	r, dev := newTestResource(t, func(c *Config) {
		c.Textures.Capacity = 16
	})

	a, err := r.Textures.Upload("one.png", make([]byte, 16), 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Textures.Upload("two.png", make([]byte, 16), 2, 2); err == nil {
		t.Fatal("Upload beyond capacity succeeded while the first texture is referenced")
	}
	a.Release()

	b, err := r.Textures.Upload("two.png", make([]byte, 16), 2, 2)
	if err != nil {
		t.Fatalf("Upload after release failed: %v", err)
	}
	defer b.Release()

	if got := dev.Destroyed(gputest.KindTexture); got != 2 {
		t.Errorf("destroyed %d textures, want 2 (rejected and evicted)", got)
	}
	if got := dev.Destroyed(gputest.KindTextureView); got != 2 {
		t.Errorf("destroyed %d views, want 2", got)
	}
	if _, ok := r.Textures.Texture(TextureKey("one.png")); ok {
		t.Error("evicted texture still resident")
	}
}

func TestTextureCollect(t *testing.T) {
	clock := newTestClock()
	r, dev := newTestResource(t, func(c *Config) { c.Now = clock.Now })
	tex, smp := testAtlas(t, r, "atlas.png")
	tex.Release()
	smp.Release()

	clock.Advance(r.Config().Textures.Timeout)
	if n := r.Textures.Collect(); n != 2 {
		t.Errorf("Collect() = %d, want 2", n)
	}
	if dev.Live(gputest.KindTexture) != 0 || dev.Live(gputest.KindSampler) != 0 {
		t.Error("texture or sampler survived Collect")
	}
}
