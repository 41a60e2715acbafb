package spine

import (
	"testing"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/spine/internal/gputest"
	"github.com/gogpu/spine/render"
)

// TestDefaultOptions tests that a registry without options uses the stock
// configuration.
func TestDefaultOptions(t *testing.T) {
	o := applyOptions(nil)
	if o.cfg.Width != DefaultWidth || o.cfg.Height != DefaultHeight {
		t.Errorf("size = %dx%d, want %dx%d", o.cfg.Width, o.cfg.Height, DefaultWidth, DefaultHeight)
	}
	if o.cfg.TargetFormat != DefaultTargetFormat {
		t.Errorf("TargetFormat = %v, want %v", o.cfg.TargetFormat, DefaultTargetFormat)
	}
	if o.cfg.SegmentSize != render.DefaultSegmentSize {
		t.Errorf("SegmentSize = %d, want %d", o.cfg.SegmentSize, render.DefaultSegmentSize)
	}
	if o.logger != nil {
		t.Error("logger set without WithLogger")
	}
}

// TestOptionsApplyInOrder tests that later options win.
func TestOptionsApplyInOrder(t *testing.T) {
	epoch := time.Unix(1700000000, 0)
	cfg := DefaultConfig()
	cfg.Width = 640

	o := applyOptions([]Option{
		WithClock(func() time.Time { return epoch }),
		WithConfig(cfg), // replaces the clock set above
	})
	if o.cfg.Width != 640 {
		t.Errorf("Width = %d, want 640", o.cfg.Width)
	}
	if o.cfg.Now != nil {
		t.Error("WithConfig kept the earlier clock")
	}

	o = applyOptions([]Option{WithConfig(cfg), WithClock(func() time.Time { return epoch })})
	if o.cfg.Now == nil || !o.cfg.Now().Equal(epoch) {
		t.Error("WithClock after WithConfig was lost")
	}
}

// TestWithConfigTargetFormat tests that the configured format reaches
// renderers created without one.
func TestWithConfigTargetFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TargetFormat = gputypes.TextureFormatRGBA8UnormSrgb
	cfg.Width, cfg.Height = 300, 200

	res, err := NewResource(gputest.NewDevice(), WithConfig(cfg))
	if err != nil {
		t.Fatalf("NewResource failed: %v", err)
	}
	defer res.Destroy()
	reg := NewRegistry(res, WithConfig(cfg))
	defer reg.Close()

	reg.Apply(Create{ID: 1})
	reg.Apply(Create{ID: 2, TargetFormat: gputypes.TextureFormatBGRA8Unorm})

	tests := []struct {
		id     RendererID
		format gputypes.TextureFormat
	}{
		{1, gputypes.TextureFormatRGBA8UnormSrgb},
		{2, gputypes.TextureFormatBGRA8Unorm},
	}
	for _, tt := range tests {
		s, ok := reg.Renderer(tt.id)
		if !ok {
			t.Fatalf("renderer %d missing", tt.id)
		}
		if s.TargetFormat() != tt.format {
			t.Errorf("renderer %d format = %v, want %v", tt.id, s.TargetFormat(), tt.format)
		}
		if w, h := s.Size(); w != 300 || h != 200 {
			t.Errorf("renderer %d size = %dx%d, want 300x200", tt.id, w, h)
		}
	}
}
