// Command spinebench replays a synthetic multi-skeleton Spine workload on a
// headless GPU device and prints resource statistics.
package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/gogpu/spine"
	"github.com/gogpu/spine/backend/native"
	"github.com/gogpu/spine/render"
)

func main() {
	app := cli.NewApp()
	app.Name = "spinebench"
	app.Usage = "replay a synthetic Spine workload on a headless GPU device"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "run",
			Usage: "replay the workload and print statistics",
			Description: `
Create one renderer per skeleton, cycling through the three shader variants,
and replay the given number of frames. Every frame each skeleton resets,
pushes an orthographic projection and draws its quads in u16-indexable
batches. Draw lists are encoded into a headless render pass.`,
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "frames, f",
					Value: 120,
					Usage: "number of frames to replay",
				},
				cli.IntFlag{
					Name:  "skeletons, s",
					Value: 8,
					Usage: "number of skeletons (renderers)",
				},
				cli.IntFlag{
					Name:  "quads, q",
					Value: 500,
					Usage: "quads drawn by each skeleton per frame",
				},
				cli.IntFlag{
					Name:  "width",
					Value: 1280,
					Usage: "target width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 720,
					Usage: "target height",
				},
				cli.IntFlag{
					Name:  "collect-every",
					Value: 60,
					Usage: "sweep idle cache entries every N frames (0 disables)",
				},
				cli.IntFlag{
					Name:  "segment-size",
					Value: render.DefaultSegmentSize,
					Usage: "ring buffer segment size in bytes",
				},
				cli.BoolFlag{
					Name:  "spirv",
					Usage: "compile the shaders to SPIR-V with naga",
				},
			},
			Action: runBench,
		},
		{
			Name:   "variants",
			Usage:  "list the shader variants and their vertex layouts",
			Action: listVariants,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(ctx *cli.Context) {
	level := slog.LevelWarn
	if ctx.GlobalBool("v") {
		level = slog.LevelInfo
	}
	if ctx.GlobalBool("vv") {
		level = slog.LevelDebug
	}
	spine.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// openDevice opens the noop HAL backend.
func openDevice() (*native.Device, func(), error) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil, fmt.Errorf("no adapter available")
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, fmt.Errorf("open adapter: %w", err)
	}
	closeAll := func(d hal.Device) {
		d.Destroy()
		instance.Destroy()
	}
	dev, err := native.New(open.Device, open.Queue)
	if err != nil {
		closeAll(open.Device)
		return nil, nil, err
	}
	return dev, func() { closeAll(open.Device) }, nil
}

// benchConfig builds the spine configuration from the command flags.
func benchConfig(ctx *cli.Context, dev *native.Device) spine.Config {
	cfg := spine.DefaultConfig()
	if f := dev.SurfaceFormat(); f != gputypes.TextureFormatUndefined {
		cfg.TargetFormat = f
	}
	if n := ctx.Int("segment-size"); n > 0 {
		cfg.SegmentSize = uint64(n)
	}
	if ctx.Bool("spirv") {
		cfg.ShaderFormat = render.ShaderSPIRV
	}
	return cfg
}

func runBench(ctx *cli.Context) error {
	setupLogging(ctx)

	dev, closeDevice, err := openDevice()
	if err != nil {
		return err
	}
	defer closeDevice()

	w := Workload{
		Frames:       ctx.Int("frames"),
		Skeletons:    ctx.Int("skeletons"),
		Quads:        ctx.Int("quads"),
		Width:        uint32(ctx.Int("width")),
		Height:       uint32(ctx.Int("height")),
		CollectEvery: ctx.Int("collect-every"),
	}
	if w.Frames < 0 || w.Skeletons < 0 || w.Quads < 0 || w.Width == 0 || w.Height == 0 {
		return fmt.Errorf("invalid workload %+v", w)
	}

	rep, err := Run(dev, w, benchConfig(ctx, dev))
	if err != nil {
		return err
	}

	fmt.Printf("frame statistics\n%s\n", frameTable(rep))
	fmt.Printf("resource statistics\n%s", resourceTable(rep.Resource))
	if live := dev.Live(); live != 0 {
		spine.Logger().Warn("spinebench: resources alive after teardown", "count", live)
	}
	return nil
}

func listVariants(ctx *cli.Context) error {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Variant", "Floats", "Stride", "Attributes", "Textured"})
	for _, v := range render.ShaderVariants() {
		table.Append([]string{
			v.String(),
			fmt.Sprintf("%d", v.FloatsPerVertex()),
			fmt.Sprintf("%d", v.Stride()),
			fmt.Sprintf("%d", len(v.Attributes())),
			fmt.Sprintf("%t", v.Textured()),
		})
	}
	table.Render()
	fmt.Print(buf.String())
	return nil
}
