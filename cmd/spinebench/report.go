package main

import (
	"bytes"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/gogpu/spine/cache"
	"github.com/gogpu/spine/render"
)

// frameTable renders the per-run counters.
func frameTable(rep Report) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Counter", "Total", "Per frame"})

	perFrame := func(n int) string {
		if rep.Frames == 0 {
			return "-"
		}
		return fmt.Sprintf("%.1f", float64(n)/float64(rep.Frames))
	}
	rows := []struct {
		name string
		n    int
	}{
		{"commands", rep.Commands},
		{"draws", rep.Draws},
		{"dropped", rep.Dropped},
		{"ring writes", rep.Writes},
		{"skipped pass commands", rep.Skipped},
		{"collected entries", rep.Collected},
	}
	for _, r := range rows {
		table.Append([]string{r.name, fmt.Sprintf("%d", r.n), perFrame(r.n)})
	}

	var frameTime time.Duration
	if rep.Frames > 0 {
		frameTime = rep.Elapsed / time.Duration(rep.Frames)
	}
	table.SetFooter([]string{fmt.Sprintf("%d frames", rep.Frames), rep.Elapsed.String(), frameTime.String()})
	table.Render()
	return buf.String()
}

// resourceTable renders the state of the shared resources after the run.
func resourceTable(s render.ResourceStats) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Resource", "Entries", "Idle", "Bytes", "Hits", "Misses", "Evictions"})

	for _, r := range []struct {
		name  string
		stats cache.Stats
	}{
		{"uniform buffers", s.Uniforms.Buffers},
		{"bind groups", s.BindGroups},
		{"pipelines", s.Pipelines},
		{"textures", s.Textures},
		{"samplers", s.Samplers},
	} {
		table.Append([]string{
			r.name,
			fmt.Sprintf("%d", r.stats.Len),
			fmt.Sprintf("%d", r.stats.Idle),
			fmt.Sprintf("%d", r.stats.Used),
			fmt.Sprintf("%d", r.stats.Hits),
			fmt.Sprintf("%d", r.stats.Misses),
			fmt.Sprintf("%d", r.stats.Evictions),
		})
	}
	for _, r := range []render.RingStats{s.Vertices, s.Indices} {
		table.Append([]string{
			fmt.Sprintf("%s ring", r.Kind),
			fmt.Sprintf("%d segments", r.Segments),
			"",
			fmt.Sprintf("%d/%d", r.Staged, r.Capacity),
			fmt.Sprintf("%d uploads", r.Uploads),
			fmt.Sprintf("%d truncated", r.Truncations),
			"",
		})
	}
	table.Append([]string{
		"uniform slots",
		fmt.Sprintf("%d live", s.Uniforms.Live),
		fmt.Sprintf("%d", s.Uniforms.Free),
		"",
		fmt.Sprintf("%d allocations", s.Uniforms.Allocations),
		fmt.Sprintf("%d failures", s.Uniforms.Failures),
		fmt.Sprintf("hw %d", s.Uniforms.HighWater),
	})
	table.Render()
	return buf.String()
}
