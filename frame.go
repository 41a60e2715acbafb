package spine

// FrameStats summarizes one Frame call.
type FrameStats struct {
	// Commands is the number of commands applied.
	Commands int
	// Renderers is the number of renderers built.
	Renderers int
	// Draws is the number of draw objects appended this frame.
	Draws int
	// Dropped is the number of draws dropped this frame.
	Dropped int
	// Writes is the number of ring buffer writes issued by the upload.
	Writes int
}

// Frame runs the CPU side of one frame: it applies cmds in order, builds
// every renderer in ascending ID order, then uploads the vertex ring and the
// index ring.
//
// Callers encode the draw lists afterwards and send Reset before recording
// the next frame's draws.
func Frame(reg *Registry, cmds []Command) FrameStats {
	before := reg.Stats()
	reg.ApplyAll(cmds)

	fs := FrameStats{Commands: len(cmds)}
	for _, id := range reg.Renderers() {
		if s, ok := reg.Renderer(id); ok && s.list.Len() > 0 && s.PendingDraws() > 0 {
			reg.log().Warn("spine: draws appended to an earlier frame's list, missing Reset",
				"renderer", id, "objects", s.list.Len())
		}
		if _, ok := reg.Build(id); ok {
			fs.Renderers++
		}
	}
	fs.Writes = reg.res.Upload()

	after := reg.Stats()
	fs.Draws = int(after.Built - before.Built)
	fs.Dropped = int(after.Dropped - before.Dropped)
	return fs
}
