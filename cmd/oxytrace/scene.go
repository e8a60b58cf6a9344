package main

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/game_object"
	"github.com/Carmen-Shannon/oxy-trace/engine/loader"
	"github.com/Carmen-Shannon/oxy-trace/engine/model"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/urfave/cli"
)

// setupScene builds the scene from the command arguments: the OBJ meshes given as
// arguments (or a demo arrangement of primitives) lit by the environment flags
// (or a procedural sky). The scene environment is baked; the caller releases it.
func setupScene(ctx *cli.Context, r renderer.Renderer) (scene.Scene, camera.CameraController, error) {
	ld := loader.NewLoader(loader.BackendTypeOBJ,
		loader.WithRenderer(r),
		loader.WithFaceSize(uint32(max(ctx.Int("face-size"), 0))),
	)

	var objects []game_object.GameObject
	if ctx.NArg() == 0 {
		objects = demoObjects()
	}
	for i, path := range ctx.Args() {
		m, err := ld.Load(path)
		if err != nil {
			return nil, nil, err
		}
		objects = append(objects, game_object.NewGameObject(
			game_object.WithID(uint64(i+1)),
			game_object.WithModel(m),
		))
	}

	env, err := setupEnvironment(ctx, ld, r)
	if err != nil {
		return nil, nil, err
	}

	controller := camera.NewCameraController(
		camera.WithRadius(6),
		camera.WithTarget(mgl32.Vec3{0, 0.5, 0}),
	)
	cam := camera.NewCamera(
		camera.WithController(controller),
		camera.WithAspect(float32(ctx.Int("width"))/float32(max(ctx.Int("height"), 1))),
	)
	sc := scene.NewScene("main", cam,
		scene.WithObjects(objects...),
		scene.WithEnvironment(env),
	)
	logger.Infof("scene: %d objects, %s environment", sc.Count(), env.Kind())
	return sc, controller, nil
}

func setupEnvironment(ctx *cli.Context, ld loader.Loader, r renderer.Renderer) (scene.Environment, error) {
	if paths := ctx.StringSlice("env"); len(paths) > 0 {
		return ld.LoadEnvironment(paths...)
	}
	env := scene.NewGradientEnvironment(64,
		mgl32.Vec3{0.25, 0.45, 0.9},
		mgl32.Vec3{0.95, 0.95, 1},
		mgl32.Vec3{0.2, 0.18, 0.15},
	)
	if err := env.Bake(r); err != nil {
		return nil, fmt.Errorf("bake sky: %w", err)
	}
	return env, nil
}

// demoObjects is a ground plane with a spinning cube and a sphere on it.
func demoObjects() []game_object.GameObject {
	return []game_object.GameObject{
		game_object.NewGameObject(
			game_object.WithID(1),
			game_object.WithModel(model.NewPlane("ground", 20)),
		),
		game_object.NewGameObject(
			game_object.WithID(2),
			game_object.WithModel(model.NewCube("cube", 1)),
			game_object.WithPosition(mgl32.Vec3{-1, 0.5, 0}),
			game_object.WithRotationSpeed(mgl32.Vec3{0, 30, 0}),
		),
		game_object.NewGameObject(
			game_object.WithID(3),
			game_object.WithModel(model.NewSphere("sphere", 0.75, 24, 16)),
			game_object.WithPosition(mgl32.Vec3{1.2, 0.75, 0}),
		),
	}
}
