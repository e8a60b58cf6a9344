package engine

import (
	"errors"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/game_object"
	"github.com/Carmen-Shannon/oxy-trace/engine/model"
	"github.com/Carmen-Shannon/oxy-trace/engine/pathtrace"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

type recordingPass struct {
	contexts []pathtrace.FrameContext
	scenes   []pathtrace.SceneSource
	err      error
}

func (p *recordingPass) Prepare(ctx pathtrace.FrameContext) pathtrace.FrameParameters {
	p.contexts = append(p.contexts, ctx)
	return pathtrace.FrameParameters{FullWidth: ctx.Width, FullHeight: ctx.Height}
}

func (p *recordingPass) Execute(_ pathtrace.FrameParameters, rc pathtrace.ResourceContext) error {
	p.scenes = append(p.scenes, rc.Scene)
	return p.err
}

func newTestRenderer(t *testing.T) renderer.Renderer {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeSoftware, renderer.WithWorkerCount(2))
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	t.Cleanup(r.Release)
	return r
}

func newTestEngine(t *testing.T, r renderer.Renderer, options ...EngineBuilderOption) Engine {
	t.Helper()
	e, err := NewEngine(r, options...)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	t.Cleanup(e.Release)
	return e
}

func TestRenderFrameOrdersScenesAndCountsFrames(t *testing.T) {
	r := newTestRenderer(t)
	pass := &recordingPass{}
	back := scene.NewScene("back", camera.NewCamera())
	front := scene.NewScene("front", camera.NewCamera())
	hidden := scene.NewScene("hidden", camera.NewCamera(), scene.WithActive(false))

	e := newTestEngine(t, r, WithFrameSize(8, 4), WithRenderPass(pass),
		WithScene(2, front), WithScene(1, back), WithScene(0, hidden))

	if err := e.RunFrames(2, 1.0/60); err != nil {
		t.Fatalf("RunFrames() error = %v", err)
	}
	if e.FrameCounter() != 2 {
		t.Errorf("FrameCounter() = %d, want 2", e.FrameCounter())
	}
	if len(pass.scenes) != 4 {
		t.Fatalf("pass ran %d times, want 4", len(pass.scenes))
	}
	if pass.scenes[0] != back || pass.scenes[1] != front {
		t.Error("scenes not visited in ascending z-index order")
	}
	if pass.contexts[0].FrameCounter != 0 || pass.contexts[2].FrameCounter != 1 {
		t.Errorf("frame counters = %d, %d, want 0, 1", pass.contexts[0].FrameCounter, pass.contexts[2].FrameCounter)
	}
	if pass.contexts[0].Width != 8 || pass.contexts[0].Height != 4 {
		t.Errorf("frame size = %dx%d, want 8x4", pass.contexts[0].Width, pass.contexts[0].Height)
	}
	if got := back.Camera().Aspect(); got != 2 {
		t.Errorf("camera aspect = %v, want 2", got)
	}
}

func TestRenderFrameWrapsPassErrors(t *testing.T) {
	r := newTestRenderer(t)
	boom := errors.New("boom")
	e := newTestEngine(t, r, WithFrameSize(2, 2), WithRenderPass(&recordingPass{err: boom}),
		WithScene(0, scene.NewScene("s", camera.NewCamera())))
	if err := e.RenderFrame(0); !errors.Is(err, boom) {
		t.Fatalf("RenderFrame() error = %v, want boom", err)
	}
	if e.FrameCounter() != 0 {
		t.Error("failed frame advanced the counter")
	}
}

func TestPathTracedFrames(t *testing.T) {
	r := newTestRenderer(t)
	pt, err := pathtrace.NewPathTracer(r, pathtrace.WithDownscaleFactor(2))
	if err != nil {
		t.Fatal(err)
	}
	defer pt.Release()

	env := scene.NewGradientEnvironment(4, mgl32.Vec3{0.2, 0.4, 1}, mgl32.Vec3{1, 1, 1}, mgl32.Vec3{0.1, 0.1, 0.1})
	if err := env.Bake(r); err != nil {
		t.Fatal(err)
	}
	defer env.Release()

	cam := camera.NewCamera(camera.WithPose(mgl32.Vec3{0, 1, 4}, mgl32.Vec3{}))
	sc := scene.NewScene("main", cam, scene.WithEnvironment(env), scene.WithObjects(
		game_object.NewGameObject(game_object.WithModel(model.NewCube("cube", 1)), game_object.WithRotationSpeed(mgl32.Vec3{0, 45, 0})),
	))
	preview := scene.NewScene("preview", camera.NewCamera(camera.WithType(camera.CameraTypePreview)))

	clearColor := [4]float32{0, 0, 0, 1}
	e := newTestEngine(t, r, WithFrameSize(12, 8), WithClearColor(clearColor), WithRenderPass(pt),
		WithScene(0, sc), WithScene(1, preview))

	if err := e.RunFrames(3, 0.1); err != nil {
		t.Fatalf("RunFrames() error = %v", err)
	}
	prof := e.Profiler()
	if prof.Traced() != 3 || prof.Skipped(pathtrace.SkipCameraType) != 3 {
		t.Errorf("traced %d, skipped %d, want 3 and 3", prof.Traced(), prof.Skipped(pathtrace.SkipCameraType))
	}
	if prof.Table() == "" {
		t.Error("profiler table is empty")
	}

	img, err := e.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 12 || b.Dy() != 8 {
		t.Fatalf("snapshot is %dx%d, want 12x8", b.Dx(), b.Dy())
	}
	lit := false
	for i := 0; i < len(img.Pix); i += 4 {
		lit = lit || img.Pix[i] > 0 || img.Pix[i+1] > 0 || img.Pix[i+2] > 0
	}
	if !lit {
		t.Error("traced frame left the color target at the clear color")
	}
}

func TestResizeReallocatesTargets(t *testing.T) {
	r := newTestRenderer(t)
	e := newTestEngine(t, r, WithFrameSize(4, 4))
	live := r.LiveResources()

	if err := e.Resize(16, 8); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	if w, h := e.Size(); w != 16 || h != 8 {
		t.Errorf("Size() = %dx%d, want 16x8", w, h)
	}
	if r.LiveResources() != live {
		t.Errorf("resize changed live resources from %d to %d", live, r.LiveResources())
	}
	if err := e.Resize(0, 8); err == nil {
		t.Error("Resize(0, 8) should fail")
	}
	e.Release()
	if r.LiveResources() != 0 {
		t.Errorf("Release() left %d resources", r.LiveResources())
	}
}

// lockCheckingScene counts updates that ran while mu was free.
type lockCheckingScene struct {
	scene.Scene
	mu       *sync.Mutex
	updates  int
	unlocked int
}

func (s *lockCheckingScene) Update(dt float32) {
	s.updates++
	if s.mu.TryLock() {
		s.unlocked++
		s.mu.Unlock()
	}
	s.Scene.Update(dt)
}

func TestTickUpdatesScenesUnderFrameLock(t *testing.T) {
	r := newTestRenderer(t)
	e := newTestEngine(t, r, WithFrameSize(4, 4), WithRenderPass(&recordingPass{}))
	impl := e.(*engine)
	sc := &lockCheckingScene{Scene: scene.NewScene("spinning", camera.NewCamera()), mu: &impl.mu}
	e.AddScene(0, sc)

	if err := e.RunFrames(3, 1.0/60); err != nil {
		t.Fatalf("RunFrames() error = %v", err)
	}
	if sc.updates != 3 {
		t.Errorf("updates = %d, want 3", sc.updates)
	}
	if sc.unlocked != 0 {
		t.Errorf("%d of %d updates ran without the frame lock", sc.unlocked, sc.updates)
	}
}
