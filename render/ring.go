// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"

	"github.com/gogpu/spine/gpucore"
)

// Ring buffer errors.
var (
	// ErrRingExhausted is returned by Collect when a new segment is needed
	// but MaxSegments segments already exist.
	ErrRingExhausted = errors.New("render: ring buffer exhausted")

	// ErrEmptyCollect is returned by Collect when nothing is left to stage
	// after truncation to whole elements.
	ErrEmptyCollect = errors.New("render: empty collect")
)

// RingKind tells the two ring variants apart.
type RingKind uint8

const (
	// RingVertex stages vertex data.
	RingVertex RingKind = iota

	// RingIndex stages u16 index data. Staged bytes are padded to 4 bytes
	// before upload.
	RingIndex
)

// String returns "vertex" or "index".
func (k RingKind) String() string {
	if k == RingIndex {
		return "index"
	}
	return "vertex"
}

// RingConfig is the geometry of a ring buffer.
type RingConfig struct {
	// SegmentSize is the byte size of each GPU buffer. Rounded up to 4.
	SegmentSize uint64

	// MaxCollectBytes caps one Collect. Zero or larger than SegmentSize
	// means SegmentSize.
	MaxCollectBytes uint64

	// MaxSegments caps the number of segments. Zero means unlimited.
	MaxSegments int
}

// normalize applies defaults.
func (c RingConfig) normalize() RingConfig {
	if c.SegmentSize == 0 {
		c.SegmentSize = DefaultSegmentSize
	}
	c.SegmentSize = align4(c.SegmentSize)
	if c.MaxCollectBytes == 0 || c.MaxCollectBytes > c.SegmentSize {
		c.MaxCollectBytes = c.SegmentSize
	}
	if c.MaxSegments < 0 {
		c.MaxSegments = 0
	}
	return c
}

// Range is a byte range written by Collect.
type Range struct {
	// Segment is the index of the segment inside its ring.
	Segment int

	// Buffer is the segment's GPU buffer.
	Buffer gpucore.BufferID

	// Start and End delimit the bytes inside Buffer.
	Start, End uint64
}

// Len returns End - Start.
func (r Range) Len() uint64 { return r.End - r.Start }

// RingStats reports ring buffer state.
type RingStats struct {
	Kind        RingKind
	Segments    int
	Active      int
	Staged      uint64 // bytes staged since the last upload
	Capacity    uint64 // Segments * SegmentSize
	Collects    uint64
	Truncations uint64
	Uploads     uint64 // WriteBuffer calls issued by Upload
}

// segment is one GPU buffer and its CPU staging area.
type segment struct {
	buffer  gpucore.BufferID
	staging []byte
}

// RingBuffer bump-allocates byte ranges from a few large GPU buffers.
//
// Collect only stages bytes on the CPU. Upload writes every touched segment
// once and rewinds to segment 0. Segments and their buffers are kept across
// frames.
//
// RingBuffer is not safe for concurrent use; it is driven by the frame
// thread only.
type RingBuffer struct {
	dev   gpucore.Device
	kind  RingKind
	cfg   RingConfig
	usage gpucore.BufferUsage

	segments []*segment
	active   int

	collects    uint64
	truncations uint64
	uploads     uint64
}

// NewVertexRing creates an empty vertex ring.
func NewVertexRing(dev gpucore.Device, cfg RingConfig) *RingBuffer {
	return newRing(dev, RingVertex, gpucore.BufferUsageVertex, cfg)
}

// NewIndexRing creates an empty index ring.
func NewIndexRing(dev gpucore.Device, cfg RingConfig) *RingBuffer {
	return newRing(dev, RingIndex, gpucore.BufferUsageIndex, cfg)
}

func newRing(dev gpucore.Device, kind RingKind, usage gpucore.BufferUsage, cfg RingConfig) *RingBuffer {
	return &RingBuffer{
		dev:   dev,
		kind:  kind,
		cfg:   cfg.normalize(),
		usage: usage | gpucore.BufferUsageCopyDst,
	}
}

// Kind returns the ring variant.
func (r *RingBuffer) Kind() RingKind { return r.kind }

// SegmentSize returns the byte size of each segment.
func (r *RingBuffer) SegmentSize() uint64 { return r.cfg.SegmentSize }

// Collect stages data and returns where it will live on the GPU.
//
// data longer than MaxCollectBytes is cut down to whole elements of
// bytesPerElement. A range is never split across segments: when the active
// segment cannot hold it, Collect moves on to the next one, creating it if
// needed. Ranges start on a 4-byte boundary.
func (r *RingBuffer) Collect(data []byte, bytesPerElement uint64) (Range, error) {
	if bytesPerElement == 0 {
		bytesPerElement = 1
	}
	n := uint64(len(data))
	if n > r.cfg.MaxCollectBytes {
		n = r.cfg.MaxCollectBytes
	}
	n -= n % bytesPerElement
	if n < uint64(len(data)) {
		r.truncations++
		slogger().Debug("render: ring collect truncated",
			"ring", r.kind, "bytes", len(data), "kept", n)
	}
	if n == 0 {
		return Range{}, ErrEmptyCollect
	}

	seg, err := r.segmentFor(n)
	if err != nil {
		return Range{}, err
	}
	s := r.segments[seg]

	start := align4(uint64(len(s.staging)))
	for uint64(len(s.staging)) < start {
		s.staging = append(s.staging, 0)
	}
	s.staging = append(s.staging, data[:n]...)
	r.collects++

	return Range{Segment: seg, Buffer: s.buffer, Start: start, End: start + n}, nil
}

// segmentFor returns the index of the first segment, starting at the active
// one, with room for n more bytes.
func (r *RingBuffer) segmentFor(n uint64) (int, error) {
	for {
		if r.active < len(r.segments) {
			used := align4(uint64(len(r.segments[r.active].staging)))
			// n <= MaxCollectBytes <= SegmentSize, so an empty segment always fits.
			if used+n <= r.cfg.SegmentSize {
				return r.active, nil
			}
			r.active++
			continue
		}
		if err := r.grow(); err != nil {
			return 0, err
		}
	}
}

// grow appends a new segment.
func (r *RingBuffer) grow() error {
	if r.cfg.MaxSegments > 0 && len(r.segments) >= r.cfg.MaxSegments {
		return fmt.Errorf("%w: %s ring has %d segments", ErrRingExhausted, r.kind, len(r.segments))
	}
	label := fmt.Sprintf("spine_%s_ring_%d", r.kind, len(r.segments))
	id, err := r.dev.CreateBuffer(label, r.cfg.SegmentSize, r.usage)
	if err != nil {
		return fmt.Errorf("create %s ring segment: %w", r.kind, err)
	}
	r.segments = append(r.segments, &segment{buffer: id})
	slogger().Debug("render: ring segment created",
		"ring", r.kind, "segment", len(r.segments)-1, "size", r.cfg.SegmentSize)
	return nil
}

// Upload writes every segment touched since the last upload, one write per
// segment, then clears staging and rewinds to segment 0. It returns the
// number of writes issued.
//
// Ranges returned before Upload must not be read after the next frame's
// Collect calls.
func (r *RingBuffer) Upload() int {
	writes := 0
	for _, s := range r.segments {
		if len(s.staging) == 0 {
			continue
		}
		if r.kind == RingIndex {
			for len(s.staging)%4 != 0 {
				s.staging = append(s.staging, 0)
			}
		}
		r.dev.WriteBuffer(s.buffer, 0, s.staging)
		s.staging = s.staging[:0]
		writes++
	}
	r.active = 0
	r.uploads += uint64(writes)
	return writes
}

// Stats returns ring statistics.
func (r *RingBuffer) Stats() RingStats {
	var staged uint64
	for _, s := range r.segments {
		staged += uint64(len(s.staging))
	}
	return RingStats{
		Kind:        r.kind,
		Segments:    len(r.segments),
		Active:      r.active,
		Staged:      staged,
		Capacity:    uint64(len(r.segments)) * r.cfg.SegmentSize,
		Collects:    r.collects,
		Truncations: r.truncations,
		Uploads:     r.uploads,
	}
}

// Destroy releases every segment buffer.
func (r *RingBuffer) Destroy() {
	for _, s := range r.segments {
		r.dev.DestroyBuffer(s.buffer)
	}
	r.segments = nil
	r.active = 0
}

// align4 rounds n up to a multiple of 4.
func align4(n uint64) uint64 {
	return (n + 3) &^ 3
}
