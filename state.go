package spine

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/spine/cache"
	"github.com/gogpu/spine/gpucore"
	"github.com/gogpu/spine/render"
)

// pendingDraw is a Draw command waiting for the next build.
type pendingDraw struct {
	vertices    []float32
	indices     []uint16
	vertexCount uint32
	indexCount  uint32

	// bindKey indexes the uniforms pending at build time.
	bindKey int

	// texture and sampler are references taken when the draw was queued.
	texture *render.TextureHandle
	sampler *render.SamplerHandle

	state render.PipelineState
	key   render.PipelineKey
}

func (d *pendingDraw) release() {
	d.texture.Release()
	d.sampler.Release()
	d.texture, d.sampler = nil, nil
}

// RendererState is the command-driven state of one renderer.
//
// It is owned by a Registry and mutated only by Apply and Build.
type RendererState struct {
	id RendererID

	shader    render.ShaderVariant
	hasShader bool

	texture *render.TextureHandle
	sampler *render.SamplerHandle

	blendEnabled bool
	blend        gpucore.BlendState
	targetFormat gputypes.TextureFormat

	width, height uint32
	toScreen      bool

	uniforms [][]float32
	draws    []pendingDraw

	// slots are the uniform slots used by the current draw list.
	slots []*render.UniformSlot
	list  render.DrawList

	textures map[uint64]*render.TextureHandle
	samplers map[gpucore.SamplerDesc]*render.SamplerHandle
}

// newRendererState returns a renderer with Spine's defaults: no shader,
// blending enabled with straight alpha.
func newRendererState(id RendererID, format gputypes.TextureFormat, width, height uint32, toScreen bool) *RendererState {
	return &RendererState{
		id:           id,
		blendEnabled: true,
		blend:        render.DefaultBlend(),
		targetFormat: format,
		width:        width,
		height:       height,
		toScreen:     toScreen,
		textures:     make(map[uint64]*render.TextureHandle),
		samplers:     make(map[gpucore.SamplerDesc]*render.SamplerHandle),
	}
}

// ID returns the renderer ID.
func (s *RendererState) ID() RendererID { return s.id }

// Shader returns the selected shader variant, if any.
func (s *RendererState) Shader() (render.ShaderVariant, bool) { return s.shader, s.hasShader }

// BlendEnabled reports whether new draws blend.
func (s *RendererState) BlendEnabled() bool { return s.blendEnabled }

// Blend returns the blend state used when blending is enabled.
func (s *RendererState) Blend() gpucore.BlendState { return s.blend }

// TargetFormat returns the color target format of the renderer.
func (s *RendererState) TargetFormat() gputypes.TextureFormat { return s.targetFormat }

// Size returns the render size.
func (s *RendererState) Size() (width, height uint32) { return s.width, s.height }

// ToScreen reports whether the renderer draws to the screen rather than to
// an offscreen target.
func (s *RendererState) ToScreen() bool { return s.toScreen }

// PendingUniforms returns the number of uniform blocks waiting for a build.
func (s *RendererState) PendingUniforms() int { return len(s.uniforms) }

// PendingDraws returns the number of draws waiting for a build.
func (s *RendererState) PendingDraws() int { return len(s.draws) }

// DrawList returns the draws built so far. It stays valid until the next
// Reset or Dispose.
func (s *RendererState) DrawList() *render.DrawList { return &s.list }

// TextureRecord returns the recorded texture for key.
func (s *RendererState) TextureRecord(key uint64) (*render.TextureHandle, bool) {
	h, ok := s.textures[key]
	return h, ok
}

// SamplerRecord returns the recorded sampler for desc.
func (s *RendererState) SamplerRecord(desc gpucore.SamplerDesc) (*render.SamplerHandle, bool) {
	h, ok := s.samplers[desc]
	return h, ok
}

// pipelineState returns the pipeline state a draw queued now would use.
func (s *RendererState) pipelineState() render.PipelineState {
	return render.PipelineState{
		Variant:      s.shader,
		BlendEnabled: s.blendEnabled,
		Blend:        s.blend,
		TargetFormat: s.targetFormat,
		Primitive:    render.DefaultPrimitive(),
		SampleCount:  1,
	}
}

// useTexture replaces the selection with new references to tex and smp.
func (s *RendererState) useTexture(tex *render.TextureHandle, smp *render.SamplerHandle) {
	s.texture.Release()
	s.sampler.Release()
	s.texture, s.sampler = clone(tex), clone(smp)
}

// recordTexture stores a new reference to tex under key.
func (s *RendererState) recordTexture(key uint64, tex *render.TextureHandle) {
	if tex == nil {
		return
	}
	if old, ok := s.textures[key]; ok {
		old.Release()
	}
	s.textures[key] = tex.Clone()
}

// recordSampler stores a new reference to smp under desc.
func (s *RendererState) recordSampler(desc gpucore.SamplerDesc, smp *render.SamplerHandle) {
	if smp == nil {
		return
	}
	if old, ok := s.samplers[desc]; ok {
		old.Release()
	}
	s.samplers[desc] = smp.Clone()
}

// removeTexture forgets the texture recorded under key.
func (s *RendererState) removeTexture(key uint64) {
	if h, ok := s.textures[key]; ok {
		h.Release()
		delete(s.textures, key)
	}
}

// reset drops pending work, the draw list and its uniform slots.
func (s *RendererState) reset() {
	for i := range s.draws {
		s.draws[i].release()
	}
	s.draws = s.draws[:0]
	s.uniforms = s.uniforms[:0]
	s.list.Clear()
	for _, slot := range s.slots {
		slot.Release()
	}
	s.slots = s.slots[:0]
}

// dispose releases every handle the renderer holds.
func (s *RendererState) dispose() {
	s.reset()
	s.useTexture(nil, nil)
	for k, h := range s.textures {
		h.Release()
		delete(s.textures, k)
	}
	for k, h := range s.samplers {
		h.Release()
		delete(s.samplers, k)
	}
}

// clone returns a new reference to h, or nil.
func clone[K comparable, V any](h *cache.Handle[K, V]) *cache.Handle[K, V] {
	if h == nil {
		return nil
	}
	return h.Clone()
}
