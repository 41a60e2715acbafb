// Package hashkey builds deterministic 64-bit cache keys with FNV-1a.
//
// Keys are composed field by field in a fixed little-endian encoding so the
// same logical tuple always hashes to the same value across runs and
// platforms. Optional fields are prefixed with a presence byte so that an
// absent value never collides with a present zero.
package hashkey

import (
	"encoding/binary"
	"hash"
	"hash/fnv"
)

// Writer accumulates fields into an FNV-1a hash.
type Writer struct {
	h hash.Hash64
}

// New returns an empty key writer.
func New() *Writer {
	return &Writer{h: fnv.New64a()}
}

// Uint32 appends v.
func (w *Writer) Uint32(v uint32) *Writer {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, _ = w.h.Write(buf[:]) // fnv.Write never returns an error
	return w
}

// Uint64 appends v.
func (w *Writer) Uint64(v uint64) *Writer {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = w.h.Write(buf[:])
	return w
}

// Bool appends v as a single byte.
func (w *Writer) Bool(v bool) *Writer {
	if v {
		_, _ = w.h.Write([]byte{1})
	} else {
		_, _ = w.h.Write([]byte{0})
	}
	return w
}

// String appends s prefixed with its length.
//
//nolint:gosec // G115: key strings are short labels
func (w *Writer) String(s string) *Writer {
	w.Uint32(uint32(len(s)))
	_, _ = w.h.Write([]byte(s))
	return w
}

// Sum returns the accumulated key.
func (w *Writer) Sum() uint64 {
	return w.h.Sum64()
}

// String64 returns the FNV-1a hash of s. It is used to derive texture
// content keys from asset names.
func String64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
