package spine

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/spine/gpucore"
	"github.com/gogpu/spine/render"
)

// RendererID identifies one renderer, usually one skeleton instance.
type RendererID uint64

// CommandType identifies a command variant.
type CommandType uint8

// Command types.
const (
	CommandCreate CommandType = iota
	CommandDispose
	CommandReset
	CommandRenderSize
	CommandShader
	CommandBlend
	CommandBlendMode
	CommandUniform
	CommandUseTexture
	CommandTexture
	CommandTextureRecord
	CommandSamplerRecord
	CommandRemoveTextureRecord
	CommandDraw
)

var commandTypeNames = [...]string{
	CommandCreate:              "Create",
	CommandDispose:             "Dispose",
	CommandReset:               "Reset",
	CommandRenderSize:          "RenderSize",
	CommandShader:              "Shader",
	CommandBlend:               "Blend",
	CommandBlendMode:           "BlendMode",
	CommandUniform:             "Uniform",
	CommandUseTexture:          "UseTexture",
	CommandTexture:             "Texture",
	CommandTextureRecord:       "TextureRecord",
	CommandSamplerRecord:       "SamplerRecord",
	CommandRemoveTextureRecord: "RemoveTextureRecord",
	CommandDraw:                "Draw",
}

// String returns the command name.
func (t CommandType) String() string {
	if int(t) < len(commandTypeNames) {
		return commandTypeNames[t]
	}
	return fmt.Sprintf("CommandType(%d)", t)
}

// Command is one instruction addressed to a renderer.
//
// Commands borrow the cache handles they carry: the registry clones every
// handle it keeps, and the sender still releases its own.
type Command interface {
	// Renderer returns the addressed renderer.
	Renderer() RendererID
	// Type returns the command variant.
	Type() CommandType
}

// Size is a render size in pixels.
type Size struct {
	Width, Height uint32
}

// Create creates a renderer. An existing renderer with the same ID is
// disposed first.
//
// With a Size the renderer draws offscreen in RGBA8Unorm at that size.
// Without one it draws to the screen in TargetFormat at the default size.
type Create struct {
	ID           RendererID
	Size         *Size
	TargetFormat gputypes.TextureFormat
}

// Dispose destroys a renderer and releases everything it holds.
type Dispose struct {
	ID RendererID
}

// Reset drops pending uniforms and draws, the built draw list and the
// uniform slots it used. Shader, blend and texture selection survive.
type Reset struct {
	ID RendererID
}

// RenderSize sets the render size.
type RenderSize struct {
	ID            RendererID
	Width, Height uint32
}

// Shader selects the shader variant for subsequent draws. Clear deselects
// it, so later draws are dropped until a variant is selected again.
type Shader struct {
	ID      RendererID
	Variant render.ShaderVariant
	Clear   bool
}

// Blend enables or disables blending for subsequent draws.
type Blend struct {
	ID      RendererID
	Enabled bool
}

// BlendMode sets the color blend factors for subsequent draws. The
// operation is Add and alpha uses the "over" operator.
type BlendMode struct {
	ID       RendererID
	Src, Dst gputypes.BlendFactor
}

// Uniform queues one uniform block (at most 24 floats, see
// render.UniformParams) for the next build. Draws use the latest one.
type Uniform struct {
	ID   RendererID
	Data []float32
}

// UseTexture selects the atlas texture and sampler for subsequent draws.
// Either may be nil.
type UseTexture struct {
	ID      RendererID
	Texture *render.TextureHandle
	Sampler *render.SamplerHandle
}

// Texture records a resolved texture and sampler pair in the renderer's
// private tables.
type Texture struct {
	ID          RendererID
	Key         uint64
	Texture     *render.TextureHandle
	SamplerDesc gpucore.SamplerDesc
	Sampler     *render.SamplerHandle
}

// TextureRecord records a texture under its content key.
type TextureRecord struct {
	ID      RendererID
	Texture *render.TextureHandle
}

// SamplerRecord records a sampler under its descriptor.
type SamplerRecord struct {
	ID      RendererID
	Desc    gpucore.SamplerDesc
	Sampler *render.SamplerHandle
}

// RemoveTextureRecord forgets a recorded texture.
type RemoveTextureRecord struct {
	ID  RendererID
	Key uint64
}

// Draw queues a triangle batch. Vertices are packed in the layout of the
// selected shader variant. Empty Indices mean a non-indexed draw.
type Draw struct {
	ID          RendererID
	Vertices    []float32
	Indices     []uint16
	VertexCount uint32
	IndexCount  uint32
}

func (c Create) Renderer() RendererID              { return c.ID }
func (c Dispose) Renderer() RendererID             { return c.ID }
func (c Reset) Renderer() RendererID               { return c.ID }
func (c RenderSize) Renderer() RendererID          { return c.ID }
func (c Shader) Renderer() RendererID              { return c.ID }
func (c Blend) Renderer() RendererID               { return c.ID }
func (c BlendMode) Renderer() RendererID           { return c.ID }
func (c Uniform) Renderer() RendererID             { return c.ID }
func (c UseTexture) Renderer() RendererID          { return c.ID }
func (c Texture) Renderer() RendererID             { return c.ID }
func (c TextureRecord) Renderer() RendererID       { return c.ID }
func (c SamplerRecord) Renderer() RendererID       { return c.ID }
func (c RemoveTextureRecord) Renderer() RendererID { return c.ID }
func (c Draw) Renderer() RendererID                { return c.ID }

func (Create) Type() CommandType              { return CommandCreate }
func (Dispose) Type() CommandType             { return CommandDispose }
func (Reset) Type() CommandType               { return CommandReset }
func (RenderSize) Type() CommandType          { return CommandRenderSize }
func (Shader) Type() CommandType              { return CommandShader }
func (Blend) Type() CommandType               { return CommandBlend }
func (BlendMode) Type() CommandType           { return CommandBlendMode }
func (Uniform) Type() CommandType             { return CommandUniform }
func (UseTexture) Type() CommandType          { return CommandUseTexture }
func (Texture) Type() CommandType             { return CommandTexture }
func (TextureRecord) Type() CommandType       { return CommandTextureRecord }
func (SamplerRecord) Type() CommandType       { return CommandSamplerRecord }
func (RemoveTextureRecord) Type() CommandType { return CommandRemoveTextureRecord }
func (Draw) Type() CommandType                { return CommandDraw }
