// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"bytes"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/spine/cache"
	"github.com/gogpu/spine/internal/gputest"
)

func TestUniformParamsLayout(t *testing.T) {
	p := UniformParams{
		MVP:        mgl32.Translate3D(3, 4, 0),
		MaskFlag:   mgl32.Vec4{1, 0, 0, 0},
		Visibility: mgl32.Vec4{0.25, 0, 0, 0},
	}
	f := p.Floats()
	if len(f) != UniformFloats {
		t.Fatalf("len(Floats()) = %d, want %d", len(f), UniformFloats)
	}
	// Column-major: translation sits in elements 12..14.
	if f[12] != 3 || f[13] != 4 {
		t.Errorf("translation = (%v, %v), want (3, 4)", f[12], f[13])
	}
	if f[16] != 1 {
		t.Errorf("mask flag = %v, want 1", f[16])
	}
	if f[20] != 0.25 {
		t.Errorf("visibility = %v, want 0.25", f[20])
	}
	if b := p.Bytes(); len(b) != UniformSize {
		t.Errorf("len(Bytes()) = %d, want %d", len(b), UniformSize)
	}
}

func TestUniformRoundTrip(t *testing.T) {
	dev := gputest.NewDevice()
	a := NewUniformSlotAllocator(dev, DefaultConfig().UniformBuffers, nil)

	p := UniformParams{
		MVP:        mgl32.Ortho2D(0, 800, 0, 600),
		MaskFlag:   mgl32.Vec4{1, 0, 0, 0},
		Visibility: mgl32.Vec4{0.5, 0, 0, 0},
	}
	want := p.Bytes()

	s, err := a.Allocate(want)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	defer s.Release()

	got, err := dev.BufferData(s.Buffer())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("buffer contents differ from input\n got %v\nwant %v", got, want)
	}
}

func TestUniformShortDataIsZeroPadded(t *testing.T) {
	dev := gputest.NewDevice()
	a := NewUniformSlotAllocator(dev, CacheLimits{}, nil)

	s, err := a.Allocate(FloatBytes([]float32{1, 2}))
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	defer s.Release()

	got, _ := dev.BufferData(s.Buffer())
	if len(got) != UniformSize {
		t.Fatalf("buffer size = %d, want %d", len(got), UniformSize)
	}
	for i, b := range got[8:] {
		if b != 0 {
			t.Fatalf("byte %d = %d, want 0", i+8, b)
		}
	}
}

func TestUniformTooLarge(t *testing.T) {
	a := NewUniformSlotAllocator(gputest.NewDevice(), CacheLimits{}, nil)
	if _, err := a.Allocate(make([]byte, UniformSize+4)); !errors.Is(err, ErrUniformTooLarge) {
		t.Errorf("Allocate error = %v, want ErrUniformTooLarge", err)
	}
	if got := a.Stats().Failures; got != 1 {
		t.Errorf("Failures = %d, want 1", got)
	}
}

func TestUniformFirstIndexIsOne(t *testing.T) {
	a := NewUniformSlotAllocator(gputest.NewDevice(), CacheLimits{}, nil)
	s := mustSlot(t, a)
	defer s.Release()
	if s.Index() != 1 {
		t.Errorf("first Index() = %d, want 1", s.Index())
	}
}

func TestUniformFreeListReuse(t *testing.T) {
	dev := gputest.NewDevice()
	a := NewUniformSlotAllocator(dev, DefaultConfig().UniformBuffers, nil)

	const n = 8
	first := make(map[uint32]bool, n)
	slots := make([]*UniformSlot, n)
	for i := range slots {
		slots[i] = mustSlot(t, a)
		first[slots[i].Index()] = true
	}
	high := a.Stats().HighWater
	if high != n {
		t.Fatalf("HighWater = %d, want %d", high, n)
	}

	for _, s := range slots {
		s.Release()
	}
	if st := a.Stats(); st.Free != n || st.Live != 0 {
		t.Fatalf("after release Free/Live = %d/%d, want %d/0", st.Free, st.Live, n)
	}

	for i := range slots {
		slots[i] = mustSlot(t, a)
		if !first[slots[i].Index()] {
			t.Errorf("reallocated index %d was not issued before", slots[i].Index())
		}
		delete(first, slots[i].Index())
	}
	if len(first) != 0 {
		t.Errorf("indices not reused: %v", first)
	}
	if got := a.Stats().HighWater; got != high {
		t.Errorf("HighWater grew to %d, want %d", got, high)
	}
	if got := dev.Created(gputest.KindBuffer); got != n {
		t.Errorf("created %d buffers, want %d (buffers reused by index)", got, n)
	}
	for _, s := range slots {
		s.Release()
	}
}

func TestUniformRetainDelaysReturn(t *testing.T) {
	a := NewUniformSlotAllocator(gputest.NewDevice(), CacheLimits{}, nil)

	s := mustSlot(t, a).Retain()
	s.Release()
	if got := a.Stats().Free; got != 0 {
		t.Fatalf("index returned with a reference left: Free = %d", got)
	}
	s.Release()
	if got := a.Stats().Free; got != 1 {
		t.Errorf("Free = %d after last release, want 1", got)
	}
}

func TestUniformReleaseTooManyTimesPanics(t *testing.T) {
	a := NewUniformSlotAllocator(gputest.NewDevice(), CacheLimits{}, nil)
	s := mustSlot(t, a)
	s.Release()

	defer func() {
		if recover() == nil {
			t.Error("second Release did not panic")
		}
	}()
	s.Release()
}

func TestUniformCapacityExhausted(t *testing.T) {
	dev := gputest.NewDevice()
	a := NewUniformSlotAllocator(dev, CacheLimits{Capacity: UniformSize}, nil)

	s1 := mustSlot(t, a)
	_, err := a.Allocate(nil)
	if !errors.Is(err, cache.ErrCapacityExceeded) {
		t.Fatalf("Allocate over capacity error = %v, want ErrCapacityExceeded", err)
	}
	if got := dev.Live(gputest.KindBuffer); got != 1 {
		t.Errorf("live buffers = %d, want 1 (rejected buffer destroyed)", got)
	}
	st := a.Stats()
	if st.Free != 1 || st.Failures != 1 {
		t.Errorf("Free/Failures = %d/%d, want 1/1", st.Free, st.Failures)
	}

	// Once the first slot is idle its buffer can be reclaimed.
	s1.Release()
	s2, err := a.Allocate(nil)
	if err != nil {
		t.Fatalf("Allocate after release failed: %v", err)
	}
	s2.Release()
}

func TestUniformCreateBufferFailure(t *testing.T) {
	dev := gputest.NewDevice()
	a := NewUniformSlotAllocator(dev, CacheLimits{}, nil)
	dev.FailNext(gputest.KindBuffer, 1)

	if _, err := a.Allocate(nil); !errors.Is(err, gputest.ErrInjected) {
		t.Fatalf("Allocate error = %v, want injected failure", err)
	}
	s := mustSlot(t, a)
	defer s.Release()
	if s.Index() != 1 {
		t.Errorf("Index() = %d after failed allocation, want 1 (index returned)", s.Index())
	}
}

func TestUniformBufferReusedAfterIdle(t *testing.T) {
	dev := gputest.NewDevice()
	a := NewUniformSlotAllocator(dev, DefaultConfig().UniformBuffers, nil)

	s := mustSlot(t, a)
	buf := s.Buffer()
	s.Release()

	again := mustSlot(t, a)
	defer again.Release()
	if again.Buffer() != buf {
		t.Errorf("Buffer() = %d, want idle buffer %d reused", again.Buffer(), buf)
	}
	if st := a.Stats().Buffers; st.Hits != 1 {
		t.Errorf("buffer cache hits = %d, want 1", st.Hits)
	}
}

func TestUniformCollectAfterTimeout(t *testing.T) {
	clock := newTestClock()
	dev := gputest.NewDevice()
	a := NewUniformSlotAllocator(dev, DefaultConfig().UniformBuffers, clock.Now)

	mustSlot(t, a).Release()
	clock.Advance(DefaultConfig().UniformBuffers.Timeout)
	if n := a.Collect(); n != 1 {
		t.Errorf("Collect() = %d, want 1", n)
	}
	if got := dev.Destroyed(gputest.KindBuffer); got != 1 {
		t.Errorf("destroyed buffers = %d, want 1", got)
	}
}
