package spine

import (
	"log/slog"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/spine/gpucore"
	"github.com/gogpu/spine/render"
)

// Renderer defaults used by Create.
const (
	// DefaultWidth and DefaultHeight are the render size of a renderer
	// created without an explicit size.
	DefaultWidth  = 128
	DefaultHeight = 128

	// DefaultTargetFormat is the target format of a renderer created without
	// a size or a format.
	DefaultTargetFormat = gputypes.TextureFormatBGRA8Unorm

	// OffscreenTargetFormat is the target format of a renderer created with
	// an explicit size.
	OffscreenTargetFormat = gputypes.TextureFormatRGBA8Unorm
)

// MaxVertices is the largest vertex count a single u16-indexed Spine batch
// uses: 10920 vertices, 1820 quads of 6 indices.
const MaxVertices = 10920

// Config configures the shared resources and the registry.
type Config struct {
	render.Config

	// Width and Height are the render size given to renderers created
	// without a size.
	Width, Height uint32

	// TargetFormat is used when a Create command carries no format.
	TargetFormat gputypes.TextureFormat
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Config:       render.DefaultConfig(),
		Width:        DefaultWidth,
		Height:       DefaultHeight,
		TargetFormat: DefaultTargetFormat,
	}
}

// Option configures NewResource or NewRegistry.
//
// Example:
//
//	cfg := spine.DefaultConfig()
//	cfg.SegmentSize = 256 << 10
//	reg := spine.NewRegistry(res, spine.WithConfig(cfg), spine.WithLogger(logger))
type Option func(*options)

// options holds the optional configuration of a registry or resource.
type options struct {
	cfg    Config
	logger *slog.Logger
}

// defaultOptions returns the default options.
func defaultOptions() options {
	return options{cfg: DefaultConfig()}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithClock sets the clock the caches use for idle timeouts.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.cfg.Now = now
	}
}

// WithLogger sets a registry-local logger. Without it the registry logs
// through Logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// NewResource creates the GPU resources shared by every renderer on dev.
func NewResource(dev gpucore.Device, opts ...Option) (*render.Resource, error) {
	o := applyOptions(opts)
	return render.NewResource(dev, o.cfg.Config)
}
