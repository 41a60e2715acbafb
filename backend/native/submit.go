package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/spine/gpucore"
)

// inflight is a submitted command buffer waiting for the GPU.
type inflight struct {
	index uint64
	enc   hal.CommandEncoder
	cmd   hal.CommandBuffer
}

func (d *Device) release(f inflight) {
	d.device.FreeCommandBuffer(f.cmd)
	f.enc.Destroy()
}

// Target describes the color attachment of a submitted pass.
type Target struct {
	// View is the texture view rendered to.
	View gpucore.TextureViewID

	// Clear, when non-nil, clears the target first; otherwise its contents
	// are loaded.
	Clear *gputypes.Color
}

// Submit records one render pass into target and submits it. record issues
// the draws, typically through DrawList.Encode. It returns the number of
// commands the pass skipped.
//
// Command buffers are freed once the queue reports their submission
// completed.
func (d *Device) Submit(label string, target Target, record func(gpucore.RenderPass)) (int, error) {
	view, ok := lookup(&d.mu, d.views, target.View)
	if !ok {
		return 0, fmt.Errorf("%w: target view %d", ErrUnknownResource, target.View)
	}
	d.reclaim()

	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return 0, fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		enc.Destroy()
		return 0, fmt.Errorf("native: begin encoding: %w", err)
	}

	attachment := hal.RenderPassColorAttachment{
		View:    view,
		LoadOp:  gputypes.LoadOpLoad,
		StoreOp: gputypes.StoreOpStore,
	}
	if target.Clear != nil {
		attachment.LoadOp = gputypes.LoadOpClear
		attachment.ClearValue = *target.Clear
	}
	halPass := enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:            label,
		ColorAttachments: []hal.RenderPassColorAttachment{attachment},
	})
	pass := d.NewRenderPass(halPass)
	record(pass)
	halPass.End()

	cmd, err := enc.EndEncoding()
	if err != nil {
		enc.Destroy()
		return pass.Skipped(), fmt.Errorf("native: end encoding: %w", err)
	}
	index, err := d.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		d.release(inflight{enc: enc, cmd: cmd})
		return pass.Skipped(), fmt.Errorf("native: submit: %w", err)
	}

	d.mu.Lock()
	d.inflight = append(d.inflight, inflight{index: index, enc: enc, cmd: cmd})
	d.mu.Unlock()
	return pass.Skipped(), nil
}

// Pending returns the number of submissions not yet reclaimed.
func (d *Device) Pending() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.inflight)
}

// reclaim frees command buffers whose submission completed.
func (d *Device) reclaim() {
	done := d.queue.PollCompleted()
	d.mu.Lock()
	keep := d.inflight[:0]
	var free []inflight
	for _, f := range d.inflight {
		if f.index <= done {
			free = append(free, f)
			continue
		}
		keep = append(keep, f)
	}
	d.inflight = keep
	d.mu.Unlock()

	for _, f := range free {
		d.release(f)
	}
}

// Wait blocks until the GPU is idle and frees every submitted command buffer.
// Call it before destroying resources a submitted pass used.
func (d *Device) Wait() error {
	if err := d.device.WaitIdle(); err != nil {
		return fmt.Errorf("native: wait idle: %w", err)
	}
	d.mu.Lock()
	pending := d.inflight
	d.inflight = nil
	d.mu.Unlock()
	for _, f := range pending {
		d.release(f)
	}
	return nil
}
