// Package spine turns Spine skeleton draw commands into GPU-ready draw lists.
//
// # Overview
//
// A host (an animation runtime, a scene graph, a game loop) describes what a
// skeleton looks like this frame as a stream of [Command] values: select a
// shader, bind an atlas page, push a projection, draw a batch of triangles.
// The [Registry] applies those commands to one [RendererState] per skeleton
// and, once per frame, builds each renderer's [render.DrawList]: an ordered
// list of draws whose vertex data lives in shared ring buffers and whose
// uniform buffers, bind groups and pipelines come from content-addressed
// caches shared by every renderer on the device.
//
// # Quick Start
//
//	res, err := spine.NewResource(dev)
//	if err != nil {
//	    return err
//	}
//	reg := spine.NewRegistry(res)
//
//	cmds := []spine.Command{
//	    spine.Create{ID: 1, TargetFormat: gputypes.TextureFormatBGRA8Unorm},
//	    spine.Shader{ID: 1, Variant: render.ShaderColored},
//	    spine.Uniform{ID: 1, Data: render.DefaultUniformParams().Floats()},
//	    spine.Draw{ID: 1, Vertices: verts, Indices: idx, VertexCount: 4, IndexCount: 6},
//	}
//	spine.Frame(reg, cmds)
//
//	state, _ := reg.Renderer(1)
//	state.DrawList().Encode(pass)
//
// # Frame Sequence
//
// Every frame follows the same order:
//
//  1. commands are applied in submission order ([Registry.ApplyAll]);
//  2. every renderer is built ([Registry.Build]), which allocates uniform
//     slots, stages vertex and index bytes, and resolves bind groups and
//     pipelines;
//  3. the staged ring data is uploaded ([render.Resource.Upload]);
//  4. the host encodes each draw list into a render pass;
//  5. a [Reset] command releases last frame's draws before new ones are
//     recorded.
//
// [Frame] performs steps 1 to 3.
//
// # Failure Model
//
// Nothing is fatal. A draw that cannot be built (no shader, no uniform, no
// texture for a textured shader, a full cache) is dropped with a warning
// through the package logger and its siblings proceed. Commands addressed
// to an unknown renderer are ignored.
//
// # Concurrency
//
// A Registry and its Resource are driven from one frame goroutine. Handles
// returned by the caches may be released from any goroutine.
package spine
