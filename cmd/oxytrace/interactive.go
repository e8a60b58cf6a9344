package main

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine"
	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/pathtrace"
	"github.com/Carmen-Shannon/oxy-trace/engine/window"
	"github.com/urfave/cli"
)

// sampleKeys maps the number keys onto the fixed trace kernel sample counts.
var sampleKeys = map[uint32]uint32{
	common.Key1: 1,
	common.Key2: 2,
	common.Key3: 4,
	common.Key4: 8,
	common.Key5: 16,
}

// RenderInteractive opens a window and traces the scene every frame.
func RenderInteractive(ctx *cli.Context) error {
	setupLogging(ctx)

	clearColor, err := parseColor(ctx.String("clear"))
	if err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	options, err := tracerOptions(ctx)
	if err != nil {
		return err
	}

	win := window.NewWindow(
		window.WithTitle("oxytrace"),
		window.WithSize(ctx.Int("width"), ctx.Int("height")),
	)

	r, err := newRenderer(ctx)
	if err != nil {
		return err
	}
	defer r.Release()

	sc, controller, err := setupScene(ctx, r)
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
		engine.WithWindow(win),
		engine.WithClearColor(clearColor.Vec4(1)),
		engine.WithScene(0, sc),
		engine.WithRenderPass(pt),
		engine.WithRenderFrameLimit(ctx.Float64("fps")),
		engine.WithProfiling(true),
	)
	if err != nil {
		return err
	}
	defer e.Release()

	bindInput(win, controller, pt)
	e.Run()

	e.Profiler().Summary()
	return nil
}

// bindInput wires keyboard and mouse events to the orbit camera and the tracer settings.
func bindInput(win window.Window, controller camera.CameraController, pt pathtrace.PathTracer) {
	win.SetInputCallback(func(ev window.InputEvent) {
		switch ev.Kind {
		case window.InputKeyDown:
			if handleKey(ev.Key, controller, pt) {
				win.SetTitle(windowTitle(pt.Config()))
			}
		case window.InputScroll:
			controller.Zoom(ev.Delta)
		case window.InputDrag:
			controller.Drag(ev.DX, ev.DY)
		}
	})
	win.SetTitle(windowTitle(pt.Config()))
}

// windowTitle summarises the live tracer settings for the title bar.
func windowTitle(cfg pathtrace.Config) string {
	return fmt.Sprintf("oxytrace  |  %s  x%d  spp %d  accumulate %t  blur %d",
		cfg.Interpolation, cfg.DownscaleFactor, cfg.SamplesPerPixel, cfg.Accumulate, cfg.BlurSamples)
}

// handleKey applies one key binding and reports whether the tracer settings changed.
func handleKey(key uint32, controller camera.CameraController, pt pathtrace.PathTracer) bool {
	if samples, ok := sampleKeys[key]; ok {
		pt.Reconfigure(pathtrace.WithSamplesPerPixel(samples))
		logger.Noticef("samples per pixel: %d (%s)", samples, pt.Config().Variant())
		return true
	}
	cfg := pt.Config()
	switch key {
	case common.KeyA:
		controller.Orbit(-1, 0)
	case common.KeyD:
		controller.Orbit(1, 0)
	case common.KeyW:
		controller.Orbit(0, 1)
	case common.KeyS:
		controller.Orbit(0, -1)
	case common.KeyQ:
		controller.Zoom(1)
	case common.KeyE:
		controller.Zoom(-1)
	case common.KeyLeft:
		controller.Pan(-1, 0)
	case common.KeyRight:
		controller.Pan(1, 0)
	case common.KeyUp:
		controller.Pan(0, 1)
	case common.KeyDown:
		controller.Pan(0, -1)
	case common.KeyR:
		pt.ResetHistory()
	case common.KeySpace:
		pt.Reconfigure(pathtrace.WithAccumulation(!cfg.Accumulate))
		logger.Noticef("accumulation: %t", !cfg.Accumulate)
		return true
	case common.KeyB:
		blur := uint32(0)
		if cfg.BlurSamples == 0 {
			blur = 2
		}
		pt.Reconfigure(pathtrace.WithBlurSamples(blur))
		logger.Noticef("blur radius: %d", blur)
		return true
	case common.KeyM:
		pt.Reconfigure(pathtrace.WithMaterial(cfg.Albedo, !cfg.Metal, cfg.Fuzz))
		pt.ResetHistory()
		logger.Noticef("metal: %t", !cfg.Metal)
		return true
	case common.KeyI:
		next := (cfg.Interpolation + 1) % (pathtrace.InterpolationLanczos + 1)
		pt.Reconfigure(pathtrace.WithInterpolation(next))
		logger.Noticef("upsample: %s", next)
		return true
	case common.KeyPageUp:
		pt.Reconfigure(pathtrace.WithDownscaleFactor(cfg.DownscaleFactor + 1))
		logger.Noticef("downscale: %d", pt.Config().DownscaleFactor)
		return true
	case common.KeyPageDown:
		pt.Reconfigure(pathtrace.WithDownscaleFactor(max(cfg.DownscaleFactor-1, 1)))
		logger.Noticef("downscale: %d", pt.Config().DownscaleFactor)
		return true
	}
	return false
}
