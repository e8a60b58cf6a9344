package main

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"os"
	"sort"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine"
	"github.com/Carmen-Shannon/oxy-trace/engine/pathtrace"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// RenderFrames traces a number of frames headless and writes the last one to disk.
func RenderFrames(ctx *cli.Context) error {
	setupLogging(ctx)

	frames := ctx.Int("frames")
	if frames <= 0 {
		return errors.New("frames must be positive")
	}
	clearColor, err := parseColor(ctx.String("clear"))
	if err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	options, err := tracerOptions(ctx)
	if err != nil {
		return err
	}

	r, err := newRenderer(ctx)
	if err != nil {
		return err
	}
	defer r.Release()

	sc, _, err := setupScene(ctx, r)
	if err != nil {
		return err
	}
	defer sc.Environment().Release()

	pt, err := pathtrace.NewPathTracer(r, options...)
	if err != nil {
		return err
	}
	defer pt.Release()

	e, err := engine.NewEngine(r,
		engine.WithFrameSize(ctx.Int("width"), ctx.Int("height")),
		engine.WithClearColor(clearColor.Vec4(1)),
		engine.WithScene(0, sc),
		engine.WithRenderPass(pt),
	)
	if err != nil {
		return err
	}
	defer e.Release()

	if err := e.RunFrames(frames, 1.0/60); err != nil {
		return err
	}

	img, err := e.Snapshot()
	if err != nil {
		return err
	}
	out := common.Coalesce(ctx.String("out"), "frame.png")
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode %s: %w", out, err)
	}
	logger.Noticef("wrote %s", out)

	displayFrameStats(pt.Config(), pt.Stats())
	e.Profiler().Summary()
	return nil
}

func displayFrameStats(cfg pathtrace.Config, stats pathtrace.FrameStats) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Last frame", "Value"})
	table.Append([]string{"Kernel", stats.Variant.String()})
	table.Append([]string{"Trace size", fmt.Sprintf("%dx%d (downscale %d)", stats.TraceWidth, stats.TraceHeight, cfg.DownscaleFactor)})
	table.Append([]string{"Meshes", fmt.Sprintf("%d", stats.Meshes)})
	table.Append([]string{"Triangles", fmt.Sprintf("%d", stats.Triangles)})
	table.Append([]string{"Upsample", cfg.Interpolation.String()})
	table.Append([]string{"Composite", fmt.Sprintf("%s x%.2f", cfg.Composite, cfg.CompositeIntensity)})
	table.Append([]string{"Transient resources", fmt.Sprintf("%d", stats.ArenaPeak)})

	stages := make([]string, 0, len(stats.Timings))
	for name := range stats.Timings {
		stages = append(stages, name)
	}
	sort.Strings(stages)
	for _, name := range stages {
		table.Append([]string{name, stats.Timings[name].String()})
	}
	table.SetFooter([]string{"TOTAL", stats.TotalDuration.String()})

	table.Render()
	logger.Noticef("frame statistics\n%s", buf.String())
}
