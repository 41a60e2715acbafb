package spine

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/spine/internal/gputest"
	"github.com/gogpu/spine/render"
)

// newTestRegistry creates a registry on a recording device. Everything is
// released at cleanup.
func newTestRegistry(t *testing.T, opts ...Option) (*Registry, *gputest.Device) {
	t.Helper()
	dev := gputest.NewDevice()
	res, err := NewResource(dev, opts...)
	if err != nil {
		t.Fatalf("NewResource failed: %v", err)
	}
	reg := NewRegistry(res, opts...)
	t.Cleanup(func() {
		reg.Close()
		res.Destroy()
	})
	return reg, dev
}

// captureWarnings returns an option logging to buf.
func captureWarnings(buf *bytes.Buffer) Option {
	return WithLogger(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelWarn})))
}

// quad returns four vertices of variant v and the indices of two triangles.
func quad(v render.ShaderVariant) ([]float32, []uint16) {
	verts := make([]float32, 4*v.FloatsPerVertex())
	for i := range verts {
		verts[i] = float32(i)
	}
	return verts, []uint16{0, 1, 2, 2, 3, 0}
}

func drawQuad(id RendererID, v render.ShaderVariant) Draw {
	verts, idx := quad(v)
	return Draw{ID: id, Vertices: verts, Indices: idx, VertexCount: 4, IndexCount: 6}
}

func uniform(id RendererID) Uniform {
	return Uniform{ID: id, Data: render.DefaultUniformParams().Floats()}
}

// loadAtlas uploads a 2x2 page, records it in renderer id and selects it.
func loadAtlas(t *testing.T, reg *Registry, id RendererID, name string) {
	t.Helper()
	tex, smp, err := reg.LoadTexture(id, name, make([]byte, 16), 2, 2)
	if err != nil {
		t.Fatalf("LoadTexture failed: %v", err)
	}
	reg.Apply(UseTexture{ID: id, Texture: tex, Sampler: smp})
	tex.Release()
	smp.Release()
}

func mustBuild(t *testing.T, reg *Registry, id RendererID) *render.DrawList {
	t.Helper()
	list, ok := reg.Build(id)
	if !ok {
		t.Fatalf("Build(%d) reported unknown renderer", id)
	}
	return list
}

func TestCreateDefaults(t *testing.T) {
	reg, _ := newTestRegistry(t)
	reg.ApplyAll([]Command{
		Create{ID: 1, TargetFormat: gputypes.TextureFormatRGBA16Float},
		Create{ID: 2, Size: &Size{Width: 300, Height: 200}, TargetFormat: gputypes.TextureFormatBGRA8Unorm},
		Create{ID: 3},
	})

	tests := []struct {
		id       RendererID
		format   gputypes.TextureFormat
		w, h     uint32
		toScreen bool
	}{
		{1, gputypes.TextureFormatRGBA16Float, DefaultWidth, DefaultHeight, true},
		{2, OffscreenTargetFormat, 300, 200, false},
		{3, DefaultTargetFormat, DefaultWidth, DefaultHeight, true},
	}
	for _, tt := range tests {
		s, ok := reg.Renderer(tt.id)
		if !ok {
			t.Fatalf("renderer %d not created", tt.id)
		}
		if s.TargetFormat() != tt.format {
			t.Errorf("renderer %d format = %v, want %v", tt.id, s.TargetFormat(), tt.format)
		}
		if w, h := s.Size(); w != tt.w || h != tt.h {
			t.Errorf("renderer %d size = %dx%d, want %dx%d", tt.id, w, h, tt.w, tt.h)
		}
		if s.ToScreen() != tt.toScreen {
			t.Errorf("renderer %d ToScreen = %v", tt.id, s.ToScreen())
		}
		if !s.BlendEnabled() || s.Blend() != render.DefaultBlend() {
			t.Errorf("renderer %d blend = %v %+v, want default", tt.id, s.BlendEnabled(), s.Blend())
		}
		if _, ok := s.Shader(); ok {
			t.Errorf("renderer %d starts with a shader", tt.id)
		}
	}
}

func TestUnknownRendererIsNoOp(t *testing.T) {
	reg, _ := newTestRegistry(t)
	reg.ApplyAll([]Command{
		Shader{ID: 9, Variant: render.ShaderColored},
		uniform(9),
		drawQuad(9, render.ShaderColored),
		Reset{ID: 9},
		Dispose{ID: 9},
	})
	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}
	if st := reg.Stats(); st.Ignored != 5 || st.Applied != 0 {
		t.Errorf("ignored/applied = %d/%d, want 5/0", st.Ignored, st.Applied)
	}
	if _, ok := reg.Build(9); ok {
		t.Error("Build reported an unknown renderer as live")
	}
}

func TestBuildPreservesOrder(t *testing.T) {
	reg, _ := newTestRegistry(t)
	cmds := []Command{
		Create{ID: 1},
		Shader{ID: 1, Variant: render.ShaderColored},
		uniform(1),
	}
	counts := []uint32{3, 4, 5, 6}
	for _, n := range counts {
		verts := make([]float32, int(n)*render.ShaderColored.FloatsPerVertex())
		cmds = append(cmds, Draw{ID: 1, Vertices: verts, VertexCount: n})
	}
	reg.ApplyAll(cmds)

	list := mustBuild(t, reg, 1)
	if list.Len() != len(counts) {
		t.Fatalf("Len() = %d, want %d", list.Len(), len(counts))
	}
	var prevEnd uint64
	for i, obj := range list.Objects() {
		if obj.VertexCount != counts[i] {
			t.Errorf("draw %d VertexCount = %d, want %d", i, obj.VertexCount, counts[i])
		}
		if obj.Indexed() {
			t.Errorf("draw %d indexed without indices", i)
		}
		if obj.Vertices.Start < prevEnd {
			t.Errorf("draw %d starts at %d before previous end %d", i, obj.Vertices.Start, prevEnd)
		}
		prevEnd = obj.Vertices.End
	}
}

func TestBuildIdempotentWithoutUpload(t *testing.T) {
	reg, _ := newTestRegistry(t)
	reg.ApplyAll([]Command{
		Create{ID: 1},
		Shader{ID: 1, Variant: render.ShaderColored},
		uniform(1),
		drawQuad(1, render.ShaderColored),
		drawQuad(1, render.ShaderColored),
	})

	first := mustBuild(t, reg, 1)
	snapshot := append([]*render.DrawObject(nil), first.Objects()...)
	ranges := make([]render.Range, len(snapshot))
	for i, o := range snapshot {
		ranges[i] = o.Vertices
	}

	second := mustBuild(t, reg, 1)
	if second != first || second.Len() != len(snapshot) {
		t.Fatalf("second Build changed the list: len %d, want %d", second.Len(), len(snapshot))
	}
	for i, o := range second.Objects() {
		if o != snapshot[i] || o.Vertices != ranges[i] {
			t.Errorf("draw %d differs after second Build", i)
		}
	}
}

func TestTexturedDrawWithoutTextureDropped(t *testing.T) {
	var buf bytes.Buffer
	reg, _ := newTestRegistry(t, captureWarnings(&buf))
	reg.ApplyAll([]Command{
		Create{ID: 1},
		Shader{ID: 1, Variant: render.ShaderTwoColoredTextured},
		uniform(1),
		drawQuad(1, render.ShaderTwoColoredTextured),
	})

	if list := mustBuild(t, reg, 1); list.Len() != 0 {
		t.Errorf("Len() = %d, want 0", list.Len())
	}
	if !strings.Contains(buf.String(), "draw dropped") || !strings.Contains(buf.String(), ErrNoTexture.Error()) {
		t.Errorf("no warning logged for the dropped draw: %q", buf.String())
	}
	if st := reg.Stats(); st.Dropped != 1 || st.Queued != 0 {
		t.Errorf("dropped/queued = %d/%d, want 1/0", st.Dropped, st.Queued)
	}
}

func TestDrawRejections(t *testing.T) {
	tests := []struct {
		name  string
		setup []Command
		want  error
	}{
		{"no shader", []Command{uniform(1)}, ErrNoShader},
		{"no uniform", []Command{Shader{ID: 1, Variant: render.ShaderColored}}, ErrNoUniform},
		{"shader cleared", []Command{
			Shader{ID: 1, Variant: render.ShaderColored},
			Shader{ID: 1, Clear: true},
			uniform(1),
		}, ErrNoShader},
		{"textured without texture", []Command{
			Shader{ID: 1, Variant: render.ShaderColoredTextured},
			uniform(1),
		}, ErrNoTexture},
		{"unknown shader variant", []Command{
			Shader{ID: 1, Variant: render.ShaderVariant(7)},
			uniform(1),
		}, ErrInvalidShader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			reg, _ := newTestRegistry(t, captureWarnings(&buf))
			reg.Apply(Create{ID: 1})
			reg.ApplyAll(tt.setup)
			reg.Apply(drawQuad(1, render.ShaderColoredTextured))

			s, _ := reg.Renderer(1)
			if s.PendingDraws() != 0 {
				t.Errorf("PendingDraws() = %d, want 0", s.PendingDraws())
			}
			if !strings.Contains(buf.String(), tt.want.Error()) {
				t.Errorf("log %q does not mention %q", buf.String(), tt.want)
			}
		})
	}
}

func TestInvalidShaderDropsOnlyItsDraw(t *testing.T) {
	var buf bytes.Buffer
	reg, _ := newTestRegistry(t, captureWarnings(&buf))
	reg.ApplyAll([]Command{
		Create{ID: 1},
		Shader{ID: 1, Variant: render.ShaderVariant(7)},
		uniform(1),
		drawQuad(1, render.ShaderColored),
		Shader{ID: 1, Variant: render.ShaderColored},
		uniform(1),
		drawQuad(1, render.ShaderColored),
	})

	list := mustBuild(t, reg, 1)
	if list.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", list.Len())
	}
	if got := list.Objects()[0].PipelineHandle().Value().State.Variant; got != render.ShaderColored {
		t.Errorf("surviving draw variant = %v, want %v", got, render.ShaderColored)
	}
	if st := reg.Stats(); st.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", st.Dropped)
	}
	for _, want := range []string{"invalid shader selected", ErrInvalidShader.Error()} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("log %q does not mention %q", buf.String(), want)
		}
	}
}

func TestUniformRequiredAgainAfterBuild(t *testing.T) {
	reg, _ := newTestRegistry(t)
	reg.ApplyAll([]Command{
		Create{ID: 1},
		Shader{ID: 1, Variant: render.ShaderColored},
		uniform(1),
		drawQuad(1, render.ShaderColored),
	})
	mustBuild(t, reg, 1)

	reg.Apply(drawQuad(1, render.ShaderColored))
	s, _ := reg.Renderer(1)
	if s.PendingDraws() != 0 {
		t.Error("draw accepted without a uniform pushed since the last build")
	}
}

func TestSameIdentitySharesBindGroup(t *testing.T) {
	reg, dev := newTestRegistry(t)
	reg.ApplyAll([]Command{
		Create{ID: 1},
		Shader{ID: 1, Variant: render.ShaderTwoColoredTextured},
	})
	loadAtlas(t, reg, 1, "atlas.png")
	reg.ApplyAll([]Command{
		uniform(1),
		drawQuad(1, render.ShaderTwoColoredTextured),
		drawQuad(1, render.ShaderTwoColoredTextured),
	})

	list := mustBuild(t, reg, 1)
	if list.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", list.Len())
	}
	a, b := list.Objects()[0], list.Objects()[1]
	if !a.BindGroupHandle().Same(b.BindGroupHandle()) {
		t.Error("draws with identical identity got different bind groups")
	}
	if !a.PipelineHandle().Same(b.PipelineHandle()) {
		t.Error("draws with identical state got different pipelines")
	}
	if got := dev.Created(gputest.KindBindGroup); got != 1 {
		t.Errorf("created %d bind groups, want 1", got)
	}
}

func TestBindKeyUsesLatestUniform(t *testing.T) {
	reg, dev := newTestRegistry(t)
	first := render.UniformParams{MVP: render.DefaultUniformParams().MVP}
	second := render.DefaultUniformParams()
	second.Visibility[0] = 0.5

	reg.ApplyAll([]Command{
		Create{ID: 1},
		Shader{ID: 1, Variant: render.ShaderColored},
		Uniform{ID: 1, Data: first.Floats()},
		drawQuad(1, render.ShaderColored),
		Uniform{ID: 1, Data: second.Floats()},
		drawQuad(1, render.ShaderColored),
	})
	list := mustBuild(t, reg, 1)
	if list.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", list.Len())
	}

	for i, want := range []render.UniformParams{first, second} {
		desc, ok := dev.BindGroup(list.Objects()[i].BindGroup())
		if !ok {
			t.Fatalf("draw %d bind group not recorded", i)
		}
		got, err := dev.BufferData(desc.Entries[0].Buffer)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, want.Bytes()) {
			t.Errorf("draw %d uniform bytes differ", i)
		}
	}
}

func TestFailedUniformLeavesGap(t *testing.T) {
	var buf bytes.Buffer
	reg, dev := newTestRegistry(t, captureWarnings(&buf))
	reg.ApplyAll([]Command{
		Create{ID: 1},
		Shader{ID: 1, Variant: render.ShaderColored},
		uniform(1),
		drawQuad(1, render.ShaderColored),
		uniform(1),
		drawQuad(1, render.ShaderColored),
	})

	// The first buffer created by Build is the first uniform slot.
	dev.FailNext(gputest.KindBuffer, 1)
	list := mustBuild(t, reg, 1)

	if list.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (only the second draw survives)", list.Len())
	}
	if !strings.Contains(buf.String(), "uniform allocation failed") ||
		!strings.Contains(buf.String(), ErrMissingUniform.Error()) {
		t.Errorf("missing warnings: %q", buf.String())
	}
}

func TestHalfBoundTextureDroppedAtBuild(t *testing.T) {
	var buf bytes.Buffer
	reg, _ := newTestRegistry(t, captureWarnings(&buf))
	reg.ApplyAll([]Command{
		Create{ID: 1},
		Shader{ID: 1, Variant: render.ShaderColoredTextured},
	})
	tex, smp, err := reg.LoadTexture(1, "atlas.png", make([]byte, 16), 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer tex.Release()
	defer smp.Release()

	reg.ApplyAll([]Command{
		UseTexture{ID: 1, Texture: tex},
		uniform(1),
		drawQuad(1, render.ShaderColoredTextured),
	})
	s, _ := reg.Renderer(1)
	if s.PendingDraws() != 1 {
		t.Fatalf("PendingDraws() = %d, want 1 (texture alone passes the draw check)", s.PendingDraws())
	}
	if list := mustBuild(t, reg, 1); list.Len() != 0 {
		t.Errorf("Len() = %d, want 0", list.Len())
	}
	if !strings.Contains(buf.String(), render.ErrMissingTexture.Error()) {
		t.Errorf("log %q does not mention the missing sampler", buf.String())
	}
}

func TestResetThenBuildIsEmpty(t *testing.T) {
	reg, _ := newTestRegistry(t)
	reg.ApplyAll([]Command{
		Create{ID: 1},
		Shader{ID: 1, Variant: render.ShaderColored},
		uniform(1),
		drawQuad(1, render.ShaderColored),
	})
	if list := mustBuild(t, reg, 1); list.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", list.Len())
	}

	reg.ApplyAll([]Command{
		uniform(1),
		drawQuad(1, render.ShaderColored),
		Reset{ID: 1},
	})
	if list := mustBuild(t, reg, 1); list.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", list.Len())
	}
	s, _ := reg.Renderer(1)
	if v, ok := s.Shader(); !ok || v != render.ShaderColored {
		t.Error("Reset cleared the shader selection")
	}
	if st := reg.Resource().Uniforms.Stats(); st.Live != 0 {
		t.Errorf("live uniform slots after Reset = %d, want 0", st.Live)
	}
}

func TestBlendCommands(t *testing.T) {
	reg, dev := newTestRegistry(t)
	reg.ApplyAll([]Command{
		Create{ID: 1},
		Shader{ID: 1, Variant: render.ShaderColored},
		BlendMode{ID: 1, Src: gputypes.BlendFactorOne, Dst: gputypes.BlendFactorOne},
		uniform(1),
		drawQuad(1, render.ShaderColored),
		Blend{ID: 1, Enabled: false},
		drawQuad(1, render.ShaderColored),
	})
	list := mustBuild(t, reg, 1)
	if list.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", list.Len())
	}

	additive, _ := dev.Pipeline(list.Objects()[0].Pipeline())
	want := render.BlendWith(gputypes.BlendFactorOne, gputypes.BlendFactorOne)
	if additive.Blend == nil || *additive.Blend != want {
		t.Errorf("first draw blend = %+v, want %+v", additive.Blend, want)
	}
	opaque, _ := dev.Pipeline(list.Objects()[1].Pipeline())
	if opaque.Blend != nil {
		t.Errorf("second draw blend = %+v, want nil", opaque.Blend)
	}
}

func TestIndexCountClampedToStagedData(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxCollectBytes = 8
	reg, _ := newTestRegistry(t, WithConfig(cfg))

	verts := make([]float32, render.ShaderColored.FloatsPerVertex())
	reg.ApplyAll([]Command{
		Create{ID: 1},
		Shader{ID: 1, Variant: render.ShaderColored},
		uniform(1),
		Draw{ID: 1, Vertices: verts, Indices: []uint16{0, 0, 0, 0, 0, 0}, VertexCount: 1, IndexCount: 6},
	})
	list := mustBuild(t, reg, 1)
	if list.Len() != 0 {
		// 8 bytes cannot hold one 24-byte vertex.
		t.Fatalf("Len() = %d, want 0", list.Len())
	}

	cfg.MaxCollectBytes = 24
	reg2, _ := newTestRegistry(t, WithConfig(cfg))
	reg2.ApplyAll([]Command{
		Create{ID: 1},
		Shader{ID: 1, Variant: render.ShaderColored},
		uniform(1),
		Draw{ID: 1, Vertices: verts, Indices: make([]uint16, 20), VertexCount: 1, IndexCount: 20},
	})
	list = mustBuild(t, reg2, 1)
	if list.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", list.Len())
	}
	if got := list.Objects()[0].IndexCount; got != 12 {
		t.Errorf("IndexCount = %d, want 12 (24 bytes of u16)", got)
	}
}

func TestTextureRecords(t *testing.T) {
	reg, _ := newTestRegistry(t)
	reg.Apply(Create{ID: 1})

	tex, smp, err := reg.LoadTexture(1, "page0.png", make([]byte, 16), 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer tex.Release()
	defer smp.Release()

	s, _ := reg.Renderer(1)
	key := render.TextureKey("page0.png")
	if h, ok := s.TextureRecord(key); !ok || !h.Same(tex) {
		t.Error("LoadTexture did not record the texture")
	}
	if h, ok := s.SamplerRecord(render.DefaultSamplerDesc()); !ok || !h.Same(smp) {
		t.Error("LoadTexture did not record the sampler")
	}

	reg.Apply(RemoveTextureRecord{ID: 1, Key: key})
	if _, ok := s.TextureRecord(key); ok {
		t.Error("RemoveTextureRecord left the texture")
	}

	reg.Apply(TextureRecord{ID: 1, Texture: tex})
	if _, ok := s.TextureRecord(key); !ok {
		t.Error("TextureRecord did not record under the content key")
	}
	reg.Apply(SamplerRecord{ID: 1, Desc: render.DefaultSamplerDesc(), Sampler: smp})
	if st := reg.Resource().Textures.SamplerStats(); st.Len != 1 {
		t.Errorf("samplers = %d, want 1", st.Len)
	}
}

func TestDisposeReleasesEverything(t *testing.T) {
	reg, dev := newTestRegistry(t)
	reg.ApplyAll([]Command{
		Create{ID: 1},
		Shader{ID: 1, Variant: render.ShaderColoredTextured},
	})
	loadAtlas(t, reg, 1, "atlas.png")
	reg.ApplyAll([]Command{uniform(1), drawQuad(1, render.ShaderColoredTextured)})
	mustBuild(t, reg, 1)
	reg.Apply(Dispose{ID: 1})

	if reg.Len() != 0 {
		t.Fatalf("Len() = %d after Dispose", reg.Len())
	}
	res := reg.Resource()
	res.BindGroups.Purge()
	res.Pipelines.Purge()
	res.Uniforms.Purge()
	res.Textures.Purge()
	for _, k := range []gputest.Kind{gputest.KindTexture, gputest.KindSampler, gputest.KindBindGroup, gputest.KindRenderPipeline} {
		if n := dev.Live(k); n != 0 {
			t.Errorf("live %s = %d after Dispose and Purge", k, n)
		}
	}
	if st := res.Uniforms.Stats(); st.Live != 0 {
		t.Errorf("live uniform slots = %d", st.Live)
	}
}

func TestCreateReplacesRenderer(t *testing.T) {
	reg, _ := newTestRegistry(t)
	reg.ApplyAll([]Command{
		Create{ID: 1},
		Shader{ID: 1, Variant: render.ShaderColored},
		Create{ID: 1},
	})
	s, _ := reg.Renderer(1)
	if _, ok := s.Shader(); ok {
		t.Error("re-created renderer kept the old shader")
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
}

func TestLoadTextureBadData(t *testing.T) {
	reg, _ := newTestRegistry(t)
	reg.Apply(Create{ID: 1})
	if _, _, err := reg.LoadTexture(1, "bad.png", make([]byte, 3), 2, 2); !errors.Is(err, render.ErrTextureData) {
		t.Errorf("error = %v, want ErrTextureData", err)
	}
}

func TestCommandTypeString(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{Create{}, "Create"},
		{Draw{}, "Draw"},
		{RemoveTextureRecord{}, "RemoveTextureRecord"},
		{SamplerRecord{}, "SamplerRecord"},
	}
	for _, tt := range tests {
		if got := tt.cmd.Type().String(); got != tt.want {
			t.Errorf("Type().String() = %q, want %q", got, tt.want)
		}
	}
	if got := CommandType(200).String(); got != "CommandType(200)" {
		t.Errorf("unknown type String() = %q", got)
	}
}
