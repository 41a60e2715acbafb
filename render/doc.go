// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render holds the GPU resources shared by every Spine renderer and
// the draw records built from them.
//
// render RECEIVES a gpucore.Device from the host, it never opens one. All
// objects here are created through that device and released through it.
//
// # Shared Resource
//
// A [Resource] owns, for one device:
//
//   - two [RingBuffer]s (vertices and u16 indices) that batch every draw's
//     geometry into a few large GPU buffers and upload them once per frame
//   - a [UniformSlotAllocator] that hands out reusable 96-byte uniform buffers
//   - the bind group layouts of the three [ShaderVariant]s
//   - a [BindGroupCache] and a [PipelineCache], deduplicating GPU objects by
//     the identity of what they bind
//   - a [TextureStore] for Spine atlas pages and their samplers
//
// # Draw Lists
//
// Building a renderer produces a [DrawList] of immutable [DrawObject]s.
// Encode replays the list into a gpucore.RenderPass. Ranges inside a draw
// list stay valid until the next [Resource.Upload].
//
// # Lifetimes
//
// Cached objects are reference counted through cache.Handle. A cached object
// is only destroyed after its last handle is released and the cache needs
// the room or the idle timeout elapsed. DrawList.Clear releases the handles
// its draw objects hold.
package render
