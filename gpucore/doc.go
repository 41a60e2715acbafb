// Package gpucore defines the GPU capabilities consumed by the Spine
// draw-list builder.
//
// The builder never talks to a graphics API directly. It creates and writes
// resources through the [Device] interface and replays finished draw lists
// through the [RenderPass] interface. Resources are referred to by opaque
// IDs ([BufferID], [BindGroupID], [RenderPipelineID], ...); implementations
// keep the mapping from IDs to their backend objects.
//
//	            +------------------+
//	            |  spine.Registry  |
//	            +--------+---------+
//	                     |
//	            +--------v---------+
//	            |  render.Resource |
//	            +--------+---------+
//	                     | gpucore.Device
//	      +--------------+--------------+
//	      |                             |
//	+-----v------------+      +---------v--------+
//	|  backend/native  |      | internal/gputest |
//	|  (wgpu hal)      |      |  (recording)     |
//	+------------------+      +------------------+
//
// Enumerations that already exist in WebGPU (texture formats, blend factors,
// vertex formats, ...) are taken from github.com/gogpu/gputypes so that the
// descriptors here translate one to one into HAL descriptors.
//
// # Resource Lifecycle
//
//   - Resources are created via Create* methods
//   - Resources must be explicitly destroyed via Destroy* methods
//   - IDs become invalid after destruction and are never reused
//   - Writes are enqueued and ordered by submission, not synchronized
package gpucore
