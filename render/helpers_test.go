// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"sync"
	"testing"
	"time"

	"github.com/gogpu/spine/internal/gputest"
)

// testClock is a manually advanced clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// newTestResource creates a Resource on a recording device. Each mutate
// function may adjust the default config first.
func newTestResource(t *testing.T, mutate ...func(*Config)) (*Resource, *gputest.Device) {
	t.Helper()
	dev := gputest.NewDevice()
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	r, err := NewResource(dev, cfg)
	if err != nil {
		t.Fatalf("NewResource failed: %v", err)
	}
	return r, dev
}

// testAtlas uploads a 4x4 texture and resolves the default sampler.
// Both handles are released at cleanup.
func testAtlas(t *testing.T, r *Resource, name string) (*TextureHandle, *SamplerHandle) {
	t.Helper()
	tex, err := r.Textures.Upload(name, make([]byte, 4*4*4), 4, 4)
	if err != nil {
		t.Fatalf("Upload(%q) failed: %v", name, err)
	}
	smp, err := r.Textures.Sampler(DefaultSamplerDesc())
	if err != nil {
		t.Fatalf("Sampler failed: %v", err)
	}
	t.Cleanup(func() {
		tex.Release()
		smp.Release()
	})
	return tex, smp
}

// mustSlot allocates a uniform slot or fails the test.
func mustSlot(t *testing.T, a *UniformSlotAllocator) *UniformSlot {
	t.Helper()
	s, err := a.Allocate(DefaultUniformParams().Bytes())
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	return s
}
