package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-trace/engine/pathtrace"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/urfave/cli"
)

var sceneFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "width",
		Value: 640,
		Usage: "frame width",
	},
	cli.IntFlag{
		Name:  "height",
		Value: 360,
		Usage: "frame height",
	},
	cli.StringSliceFlag{
		Name:  "env, e",
		Value: &cli.StringSlice{},
		Usage: "environment image: once for an equirect probe, six times for cubemap faces (+X -X +Y -Y +Z -Z)",
	},
	cli.IntFlag{
		Name:  "face-size",
		Value: 0,
		Usage: "resample cubemap faces to this edge length (0 = largest face)",
	},
	cli.StringFlag{
		Name:  "clear",
		Value: "0,0,0",
		Usage: "linear r,g,b the color target is cleared to before tracing",
	},
}

var tracerFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "downscale",
		Value: 2,
		Usage: "trace resolution divisor (0 = full resolution, max 16)",
	},
	cli.IntFlag{
		Name:  "bounces",
		Value: 2,
		Usage: "maximum bounces per path (1-32)",
	},
	cli.IntFlag{
		Name:  "spp",
		Value: 1,
		Usage: "samples per pixel per frame",
	},
	cli.StringFlag{
		Name:  "albedo",
		Value: "0.8,0.8,0.8",
		Usage: "material albedo as linear r,g,b",
	},
	cli.BoolFlag{
		Name:  "metal",
		Usage: "use the metal material",
	},
	cli.Float64Flag{
		Name:  "fuzz",
		Value: 0,
		Usage: "metal reflection fuzz (0-1)",
	},
	cli.BoolTFlag{
		Name:  "accumulate",
		Usage: "accumulate samples across frames",
	},
	cli.IntFlag{
		Name:  "history",
		Value: 256,
		Usage: "maximum accumulated samples per pixel",
	},
	cli.IntFlag{
		Name:  "blur",
		Value: 0,
		Usage: "blur radius in trace pixels (0-32)",
	},
	cli.StringFlag{
		Name:  "interpolation",
		Value: "nearest",
		Usage: "upsample filter: nearest, bilinear, bicubic or lanczos",
	},
	cli.StringFlag{
		Name:  "composite",
		Value: "additive",
		Usage: "composite mode: additive, max or replace",
	},
	cli.Float64Flag{
		Name:  "intensity",
		Value: 1,
		Usage: "composite intensity",
	},
}

// newRenderer creates the renderer selected by the global backend flags.
func newRenderer(ctx *cli.Context) (renderer.Renderer, error) {
	var backend renderer.RendererBackendType
	switch ctx.GlobalString("backend") {
	case "software":
		backend = renderer.BackendTypeSoftware
	case "wgpu":
		backend = renderer.BackendTypeWGPU
	default:
		return nil, fmt.Errorf("unknown backend %q", ctx.GlobalString("backend"))
	}
	var options []renderer.RendererBuilderOption
	if n := ctx.GlobalInt("workers"); n > 0 {
		options = append(options, renderer.WithWorkerCount(n))
	}
	return renderer.NewRenderer(backend, options...)
}

// tracerOptions maps the tracer flags onto path tracer options.
func tracerOptions(ctx *cli.Context) ([]pathtrace.ConfigOption, error) {
	interpolation, err := pathtrace.ParseInterpolationMode(ctx.String("interpolation"))
	if err != nil {
		return nil, err
	}
	composite, err := pathtrace.ParseCompositeMode(ctx.String("composite"))
	if err != nil {
		return nil, err
	}
	albedo, err := parseColor(ctx.String("albedo"))
	if err != nil {
		return nil, fmt.Errorf("albedo: %w", err)
	}
	return []pathtrace.ConfigOption{
		pathtrace.WithDownscaleFactor(uint32(max(ctx.Int("downscale"), 0))),
		pathtrace.WithMaxBounces(uint32(max(ctx.Int("bounces"), 0))),
		pathtrace.WithSamplesPerPixel(uint32(max(ctx.Int("spp"), 0))),
		pathtrace.WithMaterial(albedo.Vec4(1), ctx.Bool("metal"), float32(ctx.Float64("fuzz"))),
		pathtrace.WithAccumulation(ctx.BoolT("accumulate")),
		pathtrace.WithHistoryLimit(uint32(max(ctx.Int("history"), 0))),
		pathtrace.WithBlurSamples(uint32(max(ctx.Int("blur"), 0))),
		pathtrace.WithInterpolation(interpolation),
		pathtrace.WithComposite(composite, float32(ctx.Float64("intensity"))),
	}, nil
}

// parseColor reads a comma separated r,g,b triple.
func parseColor(s string) (mgl32.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return mgl32.Vec3{}, fmt.Errorf("want r,g,b, got %q", s)
	}
	var c mgl32.Vec3
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return mgl32.Vec3{}, err
		}
		c[i] = float32(f)
	}
	return c, nil
}
