package main

import (
	"os"

	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "oxytrace"
	app.Usage = "hybrid path tracing over a rasterized frame"
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
		cli.StringFlag{
			Name:  "backend",
			Value: "software",
			Usage: "compute backend: software or wgpu",
		},
		cli.IntFlag{
			Name:  "workers",
			Value: 0,
			Usage: "software backend workers (0 = one per CPU)",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render frames headless and write the last one to an image",
			Description: `
Trace the scene for a number of frames with temporal accumulation, then write the
composited color target as a PNG and print per-stage timings.`,
			ArgsUsage: "[mesh.obj ...]",
			Flags: append(append([]cli.Flag{
				cli.IntFlag{
					Name:  "frames",
					Value: 16,
					Usage: "number of frames to render",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "image filename for the last frame",
				},
			}, sceneFlags...), tracerFlags...),
			Action: RenderFrames,
		},
		{
			Name:  "interactive",
			Usage: "open a window and trace the scene continuously",
			Description: `
Orbit with W/A/S/D or a middle-mouse drag, zoom with Q/E or the scroll wheel and pan
with the arrow keys. Space toggles accumulation, B the blur, M the metal material,
I cycles the upsample filter, 1-5 select 1/2/4/8/16 samples per pixel, Page Up and
Page Down change the downscale factor and R restarts accumulation.`,
			ArgsUsage: "[mesh.obj ...]",
			Flags: append(append([]cli.Flag{
				cli.Float64Flag{
					Name:  "fps",
					Value: 0,
					Usage: "render frame rate cap (0 = uncapped)",
				},
			}, sceneFlags...), tracerFlags...),
			Action: RenderInteractive,
		},
		{
			Name:   "kernels",
			Usage:  "list the compute kernels and their workgroup sizes",
			Action: ListKernels,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}
