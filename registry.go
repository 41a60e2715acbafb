package spine

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/spine/render"
)

// Reasons a draw is dropped.
var (
	// ErrNoShader means a Draw arrived before any Shader command.
	ErrNoShader = errors.New("spine: no shader selected")

	// ErrNoUniform means a Draw arrived with no Uniform since the last build.
	ErrNoUniform = errors.New("spine: no uniform pushed")

	// ErrNoTexture means a textured shader was drawn with neither texture
	// nor sampler selected.
	ErrNoTexture = errors.New("spine: textured shader without texture")

	// ErrMissingUniform means the uniform a draw refers to has no slot,
	// because its allocation failed.
	ErrMissingUniform = errors.New("spine: uniform slot missing")

	// ErrInvalidShader means the selected shader is not one of the
	// three variants.
	ErrInvalidShader = errors.New("spine: invalid shader variant")
)

// RegistryStats counts registry activity since creation.
type RegistryStats struct {
	// Renderers is the number of live renderers.
	Renderers int
	// Applied counts commands addressed to a live renderer (or Create).
	Applied uint64
	// Ignored counts commands addressed to an unknown renderer.
	Ignored uint64
	// Queued counts draws accepted by Apply.
	Queued uint64
	// Dropped counts draws rejected by Apply or Build.
	Dropped uint64
	// Built counts draw objects appended by Build.
	Built uint64
}

// Registry owns the renderers of one device and builds their draw lists.
//
// A Registry is not safe for concurrent use.
type Registry struct {
	res    *render.Resource
	cfg    Config
	logger *slog.Logger

	renderers map[RendererID]*RendererState
	stats     RegistryStats
}

// NewRegistry creates an empty registry drawing with res.
func NewRegistry(res *render.Resource, opts ...Option) *Registry {
	o := applyOptions(opts)
	return &Registry{
		res:       res,
		cfg:       o.cfg,
		logger:    o.logger,
		renderers: make(map[RendererID]*RendererState),
	}
}

func (r *Registry) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return Logger()
}

// Resource returns the shared GPU resources.
func (r *Registry) Resource() *render.Resource { return r.res }

// Renderer returns the state of a live renderer.
func (r *Registry) Renderer(id RendererID) (*RendererState, bool) {
	s, ok := r.renderers[id]
	return s, ok
}

// Renderers returns the live renderer IDs in ascending order.
func (r *Registry) Renderers() []RendererID {
	return slices.Sorted(maps.Keys(r.renderers))
}

// Len returns the number of live renderers.
func (r *Registry) Len() int { return len(r.renderers) }

// Stats returns activity counters.
func (r *Registry) Stats() RegistryStats {
	s := r.stats
	s.Renderers = len(r.renderers)
	return s
}

// ApplyAll applies cmds in order.
func (r *Registry) ApplyAll(cmds []Command) {
	for _, c := range cmds {
		r.Apply(c)
	}
}

// Apply applies one command. Commands other than Create addressed to an
// unknown renderer are ignored. Rejected draws are logged and counted.
func (r *Registry) Apply(cmd Command) {
	if c, ok := cmd.(Create); ok {
		r.create(c)
		r.stats.Applied++
		return
	}

	s, ok := r.renderers[cmd.Renderer()]
	if !ok {
		r.stats.Ignored++
		r.log().Debug("spine: command for unknown renderer", "renderer", cmd.Renderer(), "command", cmd.Type())
		return
	}
	r.stats.Applied++

	switch c := cmd.(type) {
	case Dispose:
		s.dispose()
		delete(r.renderers, c.ID)
		r.log().Info("spine: renderer disposed", "renderer", c.ID)
	case Reset:
		s.reset()
	case RenderSize:
		s.width, s.height = c.Width, c.Height
	case Shader:
		s.shader, s.hasShader = c.Variant, !c.Clear
		if s.hasShader && !c.Variant.Valid() {
			r.log().Warn("spine: invalid shader selected", "renderer", c.ID, "shader", c.Variant)
		}
	case Blend:
		s.blendEnabled = c.Enabled
	case BlendMode:
		s.blend = render.BlendWith(c.Src, c.Dst)
	case Uniform:
		s.uniforms = append(s.uniforms, c.Data)
	case UseTexture:
		s.useTexture(c.Texture, c.Sampler)
	case Texture:
		s.recordTexture(c.Key, c.Texture)
		s.recordSampler(c.SamplerDesc, c.Sampler)
	case TextureRecord:
		if c.Texture != nil {
			s.recordTexture(c.Texture.Value().Key, c.Texture)
		}
	case SamplerRecord:
		s.recordSampler(c.Desc, c.Sampler)
	case RemoveTextureRecord:
		s.removeTexture(c.Key)
	case Draw:
		if err := r.queueDraw(s, c); err != nil {
			r.stats.Dropped++
			r.log().Warn("spine: draw dropped", "renderer", c.ID, "err", err)
			return
		}
		r.stats.Queued++
	default:
		r.log().Warn("spine: unsupported command", "renderer", cmd.Renderer(), "command", cmd.Type())
	}
}

// create makes a renderer, replacing any renderer with the same ID.
func (r *Registry) create(c Create) {
	if old, ok := r.renderers[c.ID]; ok {
		old.dispose()
	}

	var s *RendererState
	if c.Size != nil {
		s = newRendererState(c.ID, OffscreenTargetFormat, c.Size.Width, c.Size.Height, false)
	} else {
		format := c.TargetFormat
		if format == gputypes.TextureFormatUndefined {
			format = r.cfg.TargetFormat
		}
		s = newRendererState(c.ID, format, r.cfg.Width, r.cfg.Height, true)
	}
	r.renderers[c.ID] = s
	r.log().Info("spine: renderer created", "renderer", c.ID, "toScreen", s.toScreen,
		"width", s.width, "height", s.height)
}

// queueDraw validates a Draw against the renderer state and queues it.
func (r *Registry) queueDraw(s *RendererState, c Draw) error {
	if !s.hasShader {
		return ErrNoShader
	}
	if !s.shader.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidShader, s.shader)
	}
	if len(s.uniforms) == 0 {
		return ErrNoUniform
	}
	if s.shader.Textured() && s.texture == nil && s.sampler == nil {
		return fmt.Errorf("%w: %s", ErrNoTexture, s.shader)
	}

	state := s.pipelineState()
	s.draws = append(s.draws, pendingDraw{
		vertices:    c.Vertices,
		indices:     c.Indices,
		vertexCount: c.VertexCount,
		indexCount:  c.IndexCount,
		bindKey:     len(s.uniforms) - 1,
		texture:     clone(s.texture),
		sampler:     clone(s.sampler),
		state:       state,
		key:         state.Key(),
	})
	return nil
}

// Build turns the pending uniforms and draws of a renderer into draw
// objects appended to its draw list, and returns the list. It reports false
// for an unknown renderer.
//
// A draw that cannot be built is dropped with a warning; the others are
// appended in submission order. Build stages vertex and index data in the
// shared rings; the draw list must be encoded after the rings are uploaded
// and before the next Upload.
func (r *Registry) Build(id RendererID) (*render.DrawList, bool) {
	s, ok := r.renderers[id]
	if !ok {
		return nil, false
	}

	// Slots are indexed like the pending uniforms. A failed allocation
	// leaves a nil gap so later bind keys still line up.
	slots := make([]*render.UniformSlot, len(s.uniforms))
	for i, u := range s.uniforms {
		slot, err := r.res.Uniforms.Allocate(render.FloatBytes(u))
		if err != nil {
			r.log().Warn("spine: uniform allocation failed", "renderer", id, "uniform", i, "err", err)
			continue
		}
		slots[i] = slot
		s.slots = append(s.slots, slot)
	}
	clear(s.uniforms)
	s.uniforms = s.uniforms[:0]

	for i := range s.draws {
		d := &s.draws[i]
		obj, err := r.buildDraw(d, slots)
		d.release()
		if err != nil {
			r.stats.Dropped++
			r.log().Warn("spine: draw dropped", "renderer", id, "draw", i, "shader", d.state.Variant, "err", err)
			continue
		}
		s.list.Append(obj)
		r.stats.Built++
	}
	clear(s.draws)
	s.draws = s.draws[:0]

	return &s.list, true
}

// buildDraw resolves everything one draw needs.
func (r *Registry) buildDraw(d *pendingDraw, slots []*render.UniformSlot) (*render.DrawObject, error) {
	if d.bindKey < 0 || d.bindKey >= len(slots) || slots[d.bindKey] == nil {
		return nil, fmt.Errorf("%w: bind key %d", ErrMissingUniform, d.bindKey)
	}
	v := d.state.Variant
	if v.Stride() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidShader, v)
	}

	vertices, err := r.res.Vertices.Collect(render.FloatBytes(d.vertices), v.Stride())
	if err != nil {
		return nil, fmt.Errorf("vertices: %w", err)
	}
	vertexCount := min(d.vertexCount, uint32(vertices.Len()/v.Stride()))

	var indices *render.IndexRange
	var indexCount uint32
	if len(d.indices) > 0 {
		rng, err := r.res.Indices.Collect(render.Uint16Bytes(d.indices), 2)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		indices = &render.IndexRange{Range: rng, Format: gputypes.IndexFormatUint16}
		indexCount = min(d.indexCount, uint32(rng.Len()/2))
	}

	bg, err := r.res.BindGroups.Resolve(v, slots[d.bindKey], d.texture, d.sampler)
	if err != nil {
		return nil, err
	}
	p, err := r.res.Pipelines.ResolveKey(d.key, d.state)
	if err != nil {
		bg.Release()
		return nil, err
	}
	return render.NewDrawObject(p, bg, vertices, indices, vertexCount, indexCount), nil
}

// LoadTexture uploads an RGBA8 atlas page named name (or reuses the
// resident one), resolves the default Spine sampler, and records both in
// renderer id. The caller owns the returned handles and typically passes
// them to UseTexture.
func (r *Registry) LoadTexture(id RendererID, name string, rgba []byte, width, height uint32) (*render.TextureHandle, *render.SamplerHandle, error) {
	tex, err := r.res.Textures.Upload(name, rgba, width, height)
	if err != nil {
		return nil, nil, err
	}
	desc := render.DefaultSamplerDesc()
	smp, err := r.res.Textures.Sampler(desc)
	if err != nil {
		tex.Release()
		return nil, nil, err
	}
	r.Apply(Texture{ID: id, Key: tex.Value().Key, Texture: tex, SamplerDesc: desc, Sampler: smp})
	return tex, smp, nil
}

// Close disposes every renderer.
func (r *Registry) Close() {
	for _, id := range r.Renderers() {
		r.Apply(Dispose{ID: id})
	}
}
