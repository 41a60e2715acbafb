package main

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/spine"
	"github.com/gogpu/spine/backend/native"
	"github.com/gogpu/spine/gpucore"
	"github.com/gogpu/spine/render"
)

// maxBatchQuads is the largest quad count of one u16-indexed draw.
const maxBatchQuads = spine.MaxVertices / 4

// atlasSize is the edge of the synthetic atlas pages.
const atlasSize = 64

// Workload describes the synthetic frames replayed by the bench.
type Workload struct {
	Frames    int
	Skeletons int
	// Quads is the number of quads drawn by each skeleton per frame.
	Quads         int
	Width, Height uint32
	// CollectEvery sweeps idle cache entries every N frames. Zero disables
	// collection.
	CollectEvery int
}

// Report accumulates the statistics of one run.
type Report struct {
	Frames    int
	Commands  int
	Draws     int
	Dropped   int
	Writes    int
	Skipped   int
	Collected int
	Elapsed   time.Duration

	Registry spine.RegistryStats
	Resource render.ResourceStats
}

// skeleton is one synthetic renderer of the workload.
type skeleton struct {
	id      spine.RendererID
	variant render.ShaderVariant
	origin  mgl32.Vec2
}

// Run replays w on dev and returns the accumulated statistics.
func Run(dev *native.Device, w Workload, cfg spine.Config) (Report, error) {
	var rep Report

	res, err := spine.NewResource(dev, spine.WithConfig(cfg))
	if err != nil {
		return rep, err
	}
	defer res.Destroy()
	reg := spine.NewRegistry(res, spine.WithConfig(cfg))
	defer reg.Close()

	target, release, err := newTarget(dev, w.Width, w.Height, cfg.TargetFormat)
	if err != nil {
		return rep, err
	}
	defer release()

	skeletons, err := setup(reg, w, cfg.TargetFormat)
	if err != nil {
		return rep, err
	}

	params := render.DefaultUniformParams()
	params.MVP = mgl32.Ortho2D(0, float32(w.Width), 0, float32(w.Height))
	uniform := params.Floats()
	background := gputypes.Color{R: 0.1, G: 0.1, B: 0.1, A: 1}

	start := time.Now()
	for f := 0; f < w.Frames; f++ {
		fs := spine.Frame(reg, frameCommands(skeletons, w.Quads, f, uniform))
		rep.Frames++
		rep.Commands += fs.Commands
		rep.Draws += fs.Draws
		rep.Dropped += fs.Dropped
		rep.Writes += fs.Writes

		for i, id := range reg.Renderers() {
			s, _ := reg.Renderer(id)
			t := native.Target{View: target}
			if i == 0 {
				t.Clear = &background
			}
			skipped, err := dev.Submit(fmt.Sprintf("skeleton %d", id), t, s.DrawList().Encode)
			if err != nil {
				return rep, fmt.Errorf("frame %d: %w", f, err)
			}
			rep.Skipped += skipped
		}
		if err := dev.Wait(); err != nil {
			return rep, err
		}

		if w.CollectEvery > 0 && (f+1)%w.CollectEvery == 0 {
			rep.Collected += res.Collect()
		}
	}
	rep.Elapsed = time.Since(start)
	rep.Registry = reg.Stats()
	rep.Resource = res.Stats()
	return rep, nil
}

// newTarget creates the offscreen color target every skeleton renders to.
func newTarget(dev gpucore.Device, width, height uint32, format gputypes.TextureFormat) (gpucore.TextureViewID, func(), error) {
	tex, err := dev.CreateTexture(&gpucore.TextureDesc{
		Label:  "spinebench target",
		Width:  width,
		Height: height,
		Format: format,
		Usage:  gpucore.TextureUsageRenderAttachment,
	})
	if err != nil {
		return gpucore.InvalidID, nil, fmt.Errorf("create target: %w", err)
	}
	view, err := dev.CreateTextureView(tex)
	if err != nil {
		dev.DestroyTexture(tex)
		return gpucore.InvalidID, nil, fmt.Errorf("create target view: %w", err)
	}
	return view, func() {
		dev.DestroyTextureView(view)
		dev.DestroyTexture(tex)
	}, nil
}

// setup creates one renderer per skeleton, cycling through the shader
// variants. Textured skeletons share two atlas pages.
func setup(reg *spine.Registry, w Workload, format gputypes.TextureFormat) ([]skeleton, error) {
	variants := render.ShaderVariants()
	cols := max(1, int(w.Width)/256)

	skeletons := make([]skeleton, w.Skeletons)
	for i := range skeletons {
		sk := skeleton{
			id:      spine.RendererID(i + 1),
			variant: variants[i%len(variants)],
			origin:  mgl32.Vec2{float32(i%cols) * 256, float32(i/cols) * 256},
		}
		reg.ApplyAll([]spine.Command{
			spine.Create{ID: sk.id, TargetFormat: format},
			spine.Blend{ID: sk.id, Enabled: true},
			spine.Shader{ID: sk.id, Variant: sk.variant},
		})
		if sk.variant.Textured() {
			page := i % 2
			tex, smp, err := reg.LoadTexture(sk.id, fmt.Sprintf("atlas-%d", page), atlas(page), atlasSize, atlasSize)
			if err != nil {
				return nil, fmt.Errorf("skeleton %d: %w", sk.id, err)
			}
			reg.Apply(spine.UseTexture{ID: sk.id, Texture: tex, Sampler: smp})
			tex.Release()
			smp.Release()
		}
		skeletons[i] = sk
	}
	return skeletons, nil
}

// frameCommands returns the commands of one frame: every skeleton resets,
// pushes its projection and draws quads split into u16-indexable batches.
func frameCommands(skeletons []skeleton, quads, frame int, uniform []float32) []spine.Command {
	var cmds []spine.Command
	for _, sk := range skeletons {
		cmds = append(cmds,
			spine.Reset{ID: sk.id},
			spine.Uniform{ID: sk.id, Data: uniform},
		)
		phase := float32(frame%60) / 60
		for first := 0; first < quads; first += maxBatchQuads {
			n := min(maxBatchQuads, quads-first)
			vertices, indices := quadBatch(sk.variant, n, sk.origin.Add(mgl32.Vec2{phase * 16, 0}))
			cmds = append(cmds, spine.Draw{
				ID:          sk.id,
				Vertices:    vertices,
				Indices:     indices,
				VertexCount: uint32(4 * n),
				IndexCount:  uint32(6 * n),
			})
		}
	}
	return cmds
}

// quadBatch lays n 8x8 quads out on a 16-wide grid starting at origin, in
// the vertex layout of v.
func quadBatch(v render.ShaderVariant, n int, origin mgl32.Vec2) ([]float32, []uint16) {
	stride := v.FloatsPerVertex()
	vertices := make([]float32, 0, 4*n*stride)
	indices := make([]uint16, 0, 6*n)

	corners := [4]mgl32.Vec2{{0, 0}, {8, 0}, {8, 8}, {0, 8}}
	for q := 0; q < n; q++ {
		at := origin.Add(mgl32.Vec2{float32(q%16) * 10, float32(q/16%16) * 10})
		for _, c := range corners {
			p := at.Add(c)
			vertices = append(vertices, p.X(), p.Y(), 1, 1, 1, 1)
			if v.Textured() {
				vertices = append(vertices, c.X()/8, c.Y()/8)
			}
			if v == render.ShaderTwoColoredTextured {
				vertices = append(vertices, 0, 0, 0, 1)
			}
		}
		base := uint16(4 * q)
		indices = append(indices, base, base+1, base+2, base+2, base+3, base)
	}
	return vertices, indices
}

// atlas returns a checkerboard RGBA8 page.
func atlas(page int) []byte {
	rgba := make([]byte, atlasSize*atlasSize*4)
	for y := 0; y < atlasSize; y++ {
		for x := 0; x < atlasSize; x++ {
			o := (y*atlasSize + x) * 4
			if (x/8+y/8+page)%2 == 0 {
				rgba[o], rgba[o+1], rgba[o+2] = 255, 255, 255
			}
			rgba[o+3] = 255
		}
	}
	return rgba
}
