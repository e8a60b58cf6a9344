package pathtrace

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/game_object"
	"github.com/Carmen-Shannon/oxy-trace/engine/model"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

type testScene struct {
	instances []game_object.GameObject
	env       scene.Environment
}

func (s *testScene) Instances() []game_object.GameObject { return s.instances }
func (s *testScene) Environment() scene.Environment      { return s.env }

func newTestRenderer(t *testing.T) renderer.Renderer {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeSoftware, renderer.WithWorkerCount(2))
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	t.Cleanup(r.Release)
	return r
}

func newTracer(t *testing.T, r renderer.Renderer, options ...ConfigOption) PathTracer {
	t.Helper()
	pt, err := NewPathTracer(r, options...)
	if err != nil {
		t.Fatalf("NewPathTracer: %v", err)
	}
	t.Cleanup(pt.Release)
	return pt
}

func newColorTarget(t *testing.T, r renderer.Renderer, w, h uint32, fill [4]float32) resource.Texture {
	t.Helper()
	tex, err := r.CreateTexture(resource.TextureDescriptor{Label: "color", Width: w, Height: h})
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	px := make([]float32, w*h*4)
	for i := range px {
		px[i] = fill[i%4]
	}
	if err := r.WriteTexture(tex, 0, px); err != nil {
		t.Fatalf("WriteTexture: %v", err)
	}
	t.Cleanup(tex.Release)
	return tex
}

func bakedSky(t *testing.T, r renderer.Renderer, env scene.Environment) scene.Environment {
	t.Helper()
	if err := env.Bake(r); err != nil {
		t.Fatalf("Bake: %v", err)
	}
	t.Cleanup(env.Release)
	return env
}

func constantSky(t *testing.T, r renderer.Renderer, c [4]float32) scene.Environment {
	t.Helper()
	var faces [6][]float32
	for i := range faces {
		faces[i] = []float32{c[0], c[1], c[2], c[3]}
	}
	env, err := scene.NewCubemapEnvironment(1, faces)
	if err != nil {
		t.Fatalf("NewCubemapEnvironment: %v", err)
	}
	return bakedSky(t, r, env)
}

func gradientSky(t *testing.T, r renderer.Renderer) scene.Environment {
	t.Helper()
	env := scene.NewGradientEnvironment(8, mgl32.Vec3{0.2, 0.4, 1}, mgl32.Vec3{1, 1, 1}, mgl32.Vec3{0.1, 0.1, 0.1})
	return bakedSky(t, r, env)
}

// wall is a large plane at z = 0 facing +Z.
func wall() game_object.GameObject {
	return game_object.NewGameObject(
		game_object.WithID(1),
		game_object.WithModel(model.NewPlane("wall", 200)),
		game_object.WithRotation(mgl32.Vec3{90, 0, 0}),
	)
}

func frontCamera() camera.Camera {
	return camera.NewCamera(camera.WithPose(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}), camera.WithFov(60))
}

func renderFrame(t *testing.T, pt PathTracer, cam camera.Camera, counter uint64, rc ResourceContext) FrameParameters {
	t.Helper()
	params := pt.Prepare(FrameContext{
		Camera:       cam,
		Width:        rc.Color.Width(),
		Height:       rc.Color.Height(),
		FrameCounter: counter,
	})
	if err := pt.Execute(params, rc); err != nil {
		t.Fatalf("Execute frame %d: %v", counter, err)
	}
	return params
}

func TestConfigNormalization(t *testing.T) {
	tests := []struct {
		name string
		in   Config
		want func(Config) bool
	}{
		{"downscale zero reads as one", Config{DownscaleFactor: 0}, func(c Config) bool { return c.DownscaleFactor == 1 }},
		{"downscale clamped", Config{DownscaleFactor: 99}, func(c Config) bool { return c.DownscaleFactor == MaxDownscaleFactor }},
		{"bounces raised", Config{MaxBounces: 0}, func(c Config) bool { return c.MaxBounces == 1 }},
		{"bounces clamped", Config{MaxBounces: 100}, func(c Config) bool { return c.MaxBounces == MaxBounceLimit }},
		{"blur clamped", Config{BlurSamples: 100}, func(c Config) bool { return c.BlurSamples == MaxBlurSamples }},
		{"fuzz clamped", Config{Fuzz: 3}, func(c Config) bool { return c.Fuzz == 1 }},
		{"samples raised", Config{SamplesPerPixel: 0}, func(c Config) bool { return c.SamplesPerPixel == 1 }},
		{"unknown composite", Config{Composite: 9}, func(c Config) bool { return c.Composite == CompositeAdditive }},
	}
	for i, tt := range tests {
		if got := tt.in.Normalized(); !tt.want(got) {
			t.Errorf("[case %d] %s: got %+v", i, tt.name, got)
		}
	}
}

func TestDefaultCompositeSurvivesNormalization(t *testing.T) {
	def := DefaultConfig()
	if def.Composite != CompositeAdditive {
		t.Errorf("DefaultConfig().Composite = %v, want %v", def.Composite, CompositeAdditive)
	}
	if got := def.Normalized().Composite; got != def.Composite {
		t.Errorf("DefaultConfig().Normalized().Composite = %v, want %v", got, def.Composite)
	}
	unknown := def
	unknown.Composite = -1
	if got := unknown.Normalized().Composite; got != def.Composite {
		t.Errorf("out-of-range composite normalized to %v, want the default %v", got, def.Composite)
	}
}

func TestDownscaleZeroThroughOptions(t *testing.T) {
	r := newTestRenderer(t)
	pt := newTracer(t, r, WithDownscaleFactor(0))
	if pt.Config().DownscaleFactor != 1 {
		t.Fatalf("DownscaleFactor = %d, want 1", pt.Config().DownscaleFactor)
	}
	params := pt.Prepare(FrameContext{Camera: frontCamera(), Width: 17, Height: 9})
	if params.TraceWidth != 17 || params.TraceHeight != 9 {
		t.Errorf("trace resolution = %dx%d, want 17x9", params.TraceWidth, params.TraceHeight)
	}
}

func TestTraceExtentRoundsUp(t *testing.T) {
	tests := []struct{ full, ds, want uint32 }{
		{1920, 2, 960},
		{1921, 2, 961},
		{7, 16, 1},
		{5, 0, 5},
	}
	for _, tt := range tests {
		if got := traceExtent(tt.full, tt.ds); got != tt.want {
			t.Errorf("traceExtent(%d, %d) = %d, want %d", tt.full, tt.ds, got, tt.want)
		}
	}
}

func TestVariantSelection(t *testing.T) {
	r := newTestRenderer(t)
	if err := RegisterKernels(r); err != nil {
		t.Fatalf("RegisterKernels: %v", err)
	}
	if err := RegisterKernels(r); err != nil {
		t.Fatalf("second RegisterKernels: %v", err)
	}

	tests := []struct {
		samples uint32
		want    KernelVariant
	}{
		{1, OneSample}, {2, TwoSamples}, {4, FourSamples}, {8, EightSamples},
		{16, SixteenSamples}, {3, GeneralSampleCount}, {64, GeneralSampleCount},
	}
	for _, tt := range tests {
		v := VariantForSamples(tt.samples)
		if v != tt.want {
			t.Errorf("VariantForSamples(%d) = %v, want %v", tt.samples, v, tt.want)
			continue
		}
		k := v.Kernel()
		p := r.Pipeline(k.Key)
		if p == nil {
			t.Fatalf("kernel %s not registered", k.Key)
		}
		size := p.Shader().WorkgroupSize()
		if size[0] != k.Workgroup[0] || size[1] != k.Workgroup[1] {
			t.Errorf("%s workgroup = %v, want %v", k.Key, size, k.Workgroup)
		}
	}
}

func TestSampleOffsetCycles(t *testing.T) {
	seen := make(map[mgl32.Vec2]bool)
	for i := uint32(0); i < 16; i++ {
		o := SampleOffset(i)
		if o[0] < -0.5 || o[0] > 0.5 || o[1] < -0.5 || o[1] > 0.5 {
			t.Errorf("SampleOffset(%d) = %v outside the pixel", i, o)
		}
		seen[o] = true
		for _, k := range []uint32{16, 32, 16 * 255} {
			if SampleOffset(i+k) != o {
				t.Errorf("SampleOffset(%d) != SampleOffset(%d)", i+k, i)
			}
		}
	}
	if len(seen) != 16 {
		t.Errorf("%d distinct offsets, want 16", len(seen))
	}
	table := sampleTable()
	if table.Offsets[15][0] != -0.4375 || table.Offsets[15][1] != -0.5 {
		t.Errorf("sample table entry 15 = %v", table.Offsets[15])
	}
}

func TestArenaReleasesEverythingOnce(t *testing.T) {
	r := newTestRenderer(t)
	base := r.LiveResources()

	arena := NewFrameArena(r)
	a, err := arena.Buffer("a", 16, resource.BufferUsageStorage)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := arena.Uniform("u", make([]byte, 16)); err != nil {
		t.Fatal(err)
	}
	if _, err := arena.Buffer("empty", 0, resource.BufferUsageStorage); err != nil {
		t.Fatal(err)
	}
	if _, err := arena.Texture(resource.TextureDescriptor{Label: "t", Width: 2, Height: 2}); err != nil {
		t.Fatal(err)
	}
	arena.Provider("p")
	if arena.Len() != 5 || r.LiveResources() != base+4 {
		t.Fatalf("Len() = %d, live = %d", arena.Len(), r.LiveResources()-base)
	}

	arena.ReleaseNow(a)
	if !a.Released() || arena.Len() != 4 || r.LiveResources() != base+3 {
		t.Fatalf("ReleaseNow: released=%t Len()=%d live=%d", a.Released(), arena.Len(), r.LiveResources()-base)
	}
	arena.ReleaseNow(a)

	arena.Release()
	arena.Release()
	if arena.Len() != 0 || r.LiveResources() != base {
		t.Fatalf("after Release: Len()=%d live=%d", arena.Len(), r.LiveResources()-base)
	}
}

func TestAssemblerPartitionsTriangles(t *testing.T) {
	r := newTestRenderer(t)
	if err := RegisterKernels(r); err != nil {
		t.Fatal(err)
	}
	instances := []game_object.GameObject{
		game_object.NewGameObject(game_object.WithModel(model.NewCube("cube", 1))),
		game_object.NewGameObject(game_object.WithModel(model.NewModel(model.WithName("empty")))),
		game_object.NewGameObject(
			game_object.WithModel(model.NewPlane("plane", 2)),
			game_object.WithPosition(mgl32.Vec3{1, 2, 3}),
		),
	}

	base := r.LiveResources()
	dispatches := r.DispatchCount()
	arena := NewFrameArena(r)
	buffers, err := NewAssembler(r).Assemble(arena, instances)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	want := []model.GPUMeshRange{{StartIndex: 0, EndIndex: 12}, {StartIndex: 12, EndIndex: 12}, {StartIndex: 12, EndIndex: 14}}
	if len(buffers.MeshRanges) != len(want) {
		t.Fatalf("ranges = %v, want %v", buffers.MeshRanges, want)
	}
	for i, rg := range buffers.MeshRanges {
		if rg != want[i] {
			t.Errorf("range %d = %v, want %v", i, rg, want[i])
		}
		if i > 0 && buffers.MeshRanges[i-1].EndIndex != rg.StartIndex {
			t.Errorf("range %d does not start where range %d ends", i, i-1)
		}
	}
	if buffers.TriangleCount != 14 || buffers.Triangles.Size() != 14*model.GPUTriangleSize {
		t.Errorf("TriangleCount = %d, buffer size = %d", buffers.TriangleCount, buffers.Triangles.Size())
	}
	if got := r.DispatchCount() - dispatches; got != 2 {
		t.Errorf("dispatches = %d, want 2 (empty mesh skipped)", got)
	}
	if arena.Len() != 2 {
		t.Errorf("arena holds %d items after assembly, want triangles and ranges only", arena.Len())
	}

	tris := model.UnmarshalTriangles(buffers.Triangles.(resource.HostBuffer).Bytes())
	plane := tris[12]
	if !mgl32.Vec3(plane.Positions[0]).ApproxEqual(mgl32.Vec3{0, 2, 2}) {
		t.Errorf("plane vertex 0 = %v, want (0, 2, 2)", plane.Positions[0])
	}
	if !mgl32.Vec3(plane.Normals[0]).ApproxEqual(mgl32.Vec3{0, 1, 0}) {
		t.Errorf("plane normal 0 = %v, want +Y", plane.Normals[0])
	}
	gotRanges := model.UnmarshalMeshRanges(buffers.Ranges.(resource.HostBuffer).Bytes())
	if len(gotRanges) != 3 || gotRanges[2] != want[2] {
		t.Errorf("range buffer = %v", gotRanges)
	}

	arena.Release()
	if r.LiveResources() != base {
		t.Errorf("leaked %d resources", r.LiveResources()-base)
	}
}

func TestNoGeometrySkipsWithoutTouchingColor(t *testing.T) {
	r := newTestRenderer(t)
	pt := newTracer(t, r)
	color := newColorTarget(t, r, 8, 6, [4]float32{0.1, 0.2, 0.3, 1})
	before, _ := r.ReadTexture(color)

	disabled := wall()
	disabled.SetEnabled(false)
	sc := &testScene{
		instances: []game_object.GameObject{disabled, game_object.NewGameObject(game_object.WithID(2))},
		env:       constantSky(t, r, [4]float32{1, 1, 1, 1}),
	}
	dispatches := r.DispatchCount()
	renderFrame(t, pt, frontCamera(), 1, ResourceContext{Scene: sc, Color: color})

	if pt.Stats().Skip != SkipNoGeometry {
		t.Errorf("Skip = %v, want no_geometry", pt.Stats().Skip)
	}
	if r.DispatchCount() != dispatches {
		t.Errorf("skipped frame dispatched %d kernels", r.DispatchCount()-dispatches)
	}
	after, _ := r.ReadTexture(color)
	for i := range before {
		if math.Float32bits(before[i]) != math.Float32bits(after[i]) {
			t.Fatalf("color texel %d changed: %v -> %v", i, before[i], after[i])
		}
	}
}

func TestSkipConditions(t *testing.T) {
	r := newTestRenderer(t)
	pt := newTracer(t, r)
	color := newColorTarget(t, r, 4, 4, [4]float32{})

	unbaked := scene.NewGradientEnvironment(2, mgl32.Vec3{1, 1, 1}, mgl32.Vec3{1, 1, 1}, mgl32.Vec3{})
	tests := []struct {
		name string
		cam  camera.Camera
		sc   *testScene
		want SkipReason
	}{
		{"preview camera", camera.NewCamera(camera.WithType(camera.CameraTypePreview)), &testScene{instances: []game_object.GameObject{wall()}}, SkipCameraType},
		{"reflection camera", camera.NewCamera(camera.WithType(camera.CameraTypeReflection)), &testScene{instances: []game_object.GameObject{wall()}}, SkipCameraType},
		{"unbaked environment", frontCamera(), &testScene{instances: []game_object.GameObject{wall()}, env: unbaked}, SkipEnvironmentUnavailable},
		{"empty scene", frontCamera(), &testScene{}, SkipNoGeometry},
	}
	for i, tt := range tests {
		renderFrame(t, pt, tt.cam, uint64(i), ResourceContext{Scene: tt.sc, Color: color})
		if got := pt.Stats().Skip; got != tt.want {
			t.Errorf("[case %d] %s: Skip = %v, want %v", i, tt.name, got, tt.want)
		}
	}

	if params := pt.Prepare(FrameContext{Width: 4, Height: 4}); params.Skip != SkipNoCamera {
		t.Errorf("nil camera Skip = %v, want no_camera", params.Skip)
	}
}

func TestZeroTriangleSceneProceeds(t *testing.T) {
	r := newTestRenderer(t)
	pt := newTracer(t, r, WithDownscaleFactor(1), WithAccumulation(false))
	color := newColorTarget(t, r, 4, 4, [4]float32{})
	sky := [4]float32{0.25, 0.5, 0.75, 1}
	sc := &testScene{
		instances: []game_object.GameObject{game_object.NewGameObject(game_object.WithModel(model.NewModel(model.WithName("empty"))))},
		env:       constantSky(t, r, sky),
	}
	renderFrame(t, pt, frontCamera(), 0, ResourceContext{Scene: sc, Color: color})

	stats := pt.Stats()
	if stats.Skip != SkipNone || stats.Triangles != 0 || stats.Meshes != 1 {
		t.Fatalf("stats = %+v, want a traced frame with zero triangles", stats)
	}
	px, _ := r.ReadTexture(color)
	for i := 0; i < len(px); i += 4 {
		if px[i] != sky[0] || px[i+1] != sky[1] || px[i+2] != sky[2] {
			t.Fatalf("pixel %d = %v, want sky %v", i/4, px[i:i+3], sky[:3])
		}
	}
}

func TestMissingEnvironmentTracesBlackMisses(t *testing.T) {
	r := newTestRenderer(t)
	pt := newTracer(t, r,
		WithDownscaleFactor(1),
		WithAccumulation(false),
		WithComposite(CompositeReplace, 1),
	)
	color := newColorTarget(t, r, 6, 4, [4]float32{0.3, 0.6, 0.9, 1})
	behind := game_object.NewGameObject(
		game_object.WithModel(model.NewCube("behind", 1)),
		game_object.WithPosition(mgl32.Vec3{0, 0, 20}),
	)
	sc := &testScene{instances: []game_object.GameObject{behind}}
	renderFrame(t, pt, frontCamera(), 0, ResourceContext{Scene: sc, Color: color})
	if skip := pt.Stats().Skip; skip != SkipNone {
		t.Fatalf("Stats().Skip = %v, want %v", skip, SkipNone)
	}

	px, _ := r.ReadTexture(color)
	for i := 0; i < len(px); i += 4 {
		for c := 0; c < 3; c++ {
			if px[i+c] != 0 {
				t.Fatalf("pixel %d channel %d = %v, want 0", i/4, c, px[i+c])
			}
		}
		if px[i+3] != 1 {
			t.Fatalf("pixel %d alpha = %v, want 1", i/4, px[i+3])
		}
	}
}

func TestNearestAtScaleOneReproducesRadiance(t *testing.T) {
	r := newTestRenderer(t)
	pt := newTracer(t, r,
		WithDownscaleFactor(1),
		WithAccumulation(false),
		WithInterpolation(InterpolationNearest),
		WithComposite(CompositeAdditive, 1),
	)
	color := newColorTarget(t, r, 9, 7, [4]float32{})
	sky := [4]float32{0.5, 0.25, 0.125, 1}
	behind := game_object.NewGameObject(
		game_object.WithModel(model.NewCube("behind", 1)),
		game_object.WithPosition(mgl32.Vec3{0, 0, 20}),
	)
	sc := &testScene{instances: []game_object.GameObject{behind}, env: constantSky(t, r, sky)}
	renderFrame(t, pt, frontCamera(), 3, ResourceContext{Scene: sc, Color: color})

	px, _ := r.ReadTexture(color)
	for i := 0; i < len(px); i += 4 {
		for c := 0; c < 3; c++ {
			if px[i+c] != sky[c] {
				t.Fatalf("pixel %d channel %d = %v, want %v", i/4, c, px[i+c], sky[c])
			}
		}
	}
}

func TestAccumulationConvergesOnStaticScene(t *testing.T) {
	r := newTestRenderer(t)
	pt := newTracer(t, r, WithDownscaleFactor(2), WithSamplesPerPixel(1), WithMaxBounces(2))
	color := newColorTarget(t, r, 16, 12, [4]float32{})
	sc := &testScene{instances: []game_object.GameObject{wall()}, env: gradientSky(t, r)}
	cam := frontCamera()

	const frames = 64
	var prev []float32
	deltas := make([]float64, 0, frames)
	for f := uint64(0); f < frames; f++ {
		renderFrame(t, pt, cam, f, ResourceContext{Scene: sc, Color: color})
		if f > 0 && pt.Stats().HistoryReset {
			t.Fatalf("frame %d reset history on a static scene", f)
		}
		px, _ := r.ReadTexture(color)
		if prev != nil {
			var sum float64
			for i := range px {
				if i%4 == 3 {
					continue
				}
				sum += math.Abs(float64(px[i] - prev[i]))
			}
			deltas = append(deltas, sum/float64(len(px)))
		}
		prev = px
	}

	window := func(from, to int) float64 {
		var s float64
		for _, d := range deltas[from:to] {
			s += d
		}
		return s / float64(to-from)
	}
	early, late := window(0, 16), window(len(deltas)-16, len(deltas))
	if early == 0 {
		t.Fatal("no frame-to-frame noise; the scene does not exercise accumulation")
	}
	if late >= early*0.5 {
		t.Errorf("late window delta %.6f not well below early %.6f", late, early)
	}
}

func TestHistoryResetsOnUnmotionedCameraMove(t *testing.T) {
	r := newTestRenderer(t)
	pt := newTracer(t, r, WithDownscaleFactor(2))
	color := newColorTarget(t, r, 8, 8, [4]float32{})
	sc := &testScene{instances: []game_object.GameObject{wall()}, env: gradientSky(t, r)}
	cam := frontCamera()

	renderFrame(t, pt, cam, 0, ResourceContext{Scene: sc, Color: color})
	if !pt.Stats().HistoryReset {
		t.Error("first frame should start a fresh history")
	}
	renderFrame(t, pt, cam, 1, ResourceContext{Scene: sc, Color: color})
	if pt.Stats().HistoryReset {
		t.Error("unchanged frame reset history")
	}

	cam.SetPose(mgl32.Vec3{1, 0, 5}, mgl32.Vec3{})
	renderFrame(t, pt, cam, 2, ResourceContext{Scene: sc, Color: color})
	if !pt.Stats().HistoryReset {
		t.Error("camera move without motion vectors kept history")
	}

	motion := newColorTarget(t, r, 8, 8, [4]float32{})
	cam.SetPose(mgl32.Vec3{2, 0, 5}, mgl32.Vec3{})
	renderFrame(t, pt, cam, 3, ResourceContext{Scene: sc, Color: color, Motion: motion})
	if pt.Stats().HistoryReset {
		t.Error("camera move with motion vectors reset history")
	}
}

func TestAccumulationToggleReleasesHistory(t *testing.T) {
	r := newTestRenderer(t)
	pt := newTracer(t, r)
	color := newColorTarget(t, r, 8, 8, [4]float32{})
	sc := &testScene{instances: []game_object.GameObject{wall()}, env: gradientSky(t, r)}

	base := r.LiveResources()
	renderFrame(t, pt, frontCamera(), 0, ResourceContext{Scene: sc, Color: color})
	if got := r.LiveResources() - base; got != 2 {
		t.Fatalf("live resources after an accumulated frame = %d, want the two history textures", got)
	}
	pt.Reconfigure(WithAccumulation(false))
	if r.LiveResources() != base {
		t.Fatalf("disabling accumulation left %d resources", r.LiveResources()-base)
	}
	renderFrame(t, pt, frontCamera(), 1, ResourceContext{Scene: sc, Color: color})
	if r.LiveResources() != base {
		t.Errorf("pass-through frame retained %d resources", r.LiveResources()-base)
	}
}

func TestBlurDispatchCount(t *testing.T) {
	r := newTestRenderer(t)
	color := newColorTarget(t, r, 8, 8, [4]float32{})
	sc := &testScene{instances: []game_object.GameObject{wall()}, env: gradientSky(t, r)}

	count := func(blur uint32) uint64 {
		pt := newTracer(t, r, WithAccumulation(false), WithBlurSamples(blur))
		before := r.DispatchCount()
		renderFrame(t, pt, frontCamera(), 0, ResourceContext{Scene: sc, Color: color})
		return r.DispatchCount() - before
	}
	// format + trace + upsample + composite
	if got := count(0); got != 4 {
		t.Errorf("dispatches without blur = %d, want 4", got)
	}
	if got := count(3); got != 6 {
		t.Errorf("dispatches with blur = %d, want 6", got)
	}
}

func TestBlurSpreadsImpulseAlongBothAxes(t *testing.T) {
	r := newTestRenderer(t)
	if err := RegisterKernels(r); err != nil {
		t.Fatalf("RegisterKernels: %v", err)
	}
	const size, center = 9, 4
	radiance, err := r.CreateTexture(resource.TextureDescriptor{Label: "radiance", Width: size, Height: size})
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	defer radiance.Release()
	px := make([]float32, size*size*4)
	px[(center*size+center)*4] = 1
	if err := r.WriteTexture(radiance, 0, px); err != nil {
		t.Fatalf("WriteTexture: %v", err)
	}

	arena := NewFrameArena(r)
	defer arena.Release()
	if err := newDenoiser(r).blur(arena, 2, radiance); err != nil {
		t.Fatalf("blur: %v", err)
	}
	got, _ := r.ReadTexture(radiance)
	at := func(x, y int) float32 { return got[(y*size+x)*4] }

	if c := at(center, center); c <= 0 || c >= 1 {
		t.Errorf("center = %v, want in (0, 1)", c)
	}
	tests := []struct {
		name string
		x, y int
	}{
		{"left", center - 1, center},
		{"right", center + 1, center},
		{"up", center, center - 1},
		{"down", center, center + 1},
		{"diagonal", center + 1, center + 1},
	}
	for i, tt := range tests {
		if v := at(tt.x, tt.y); v <= 0 {
			t.Errorf("[case %d] %s neighbour = %v, want > 0", i, tt.name, v)
		}
	}
	if h, v := at(center+1, center), at(center, center+1); math.Abs(float64(h-v)) > 1e-6 {
		t.Errorf("horizontal neighbour %v != vertical neighbour %v", h, v)
	}
	var sum float64
	for i := 0; i < len(got); i += 4 {
		sum += float64(got[i])
	}
	if math.Abs(sum-1) > 1e-5 {
		t.Errorf("energy = %v, want 1", sum)
	}
}

func TestSkippedFramesDoNotLeak(t *testing.T) {
	r := newTestRenderer(t)
	pt := newTracer(t, r)
	color := newColorTarget(t, r, 4, 4, [4]float32{})
	preview := camera.NewCamera(camera.WithType(camera.CameraTypePreview))
	unbaked := scene.NewGradientEnvironment(1, mgl32.Vec3{}, mgl32.Vec3{}, mgl32.Vec3{})
	withGeometry := &testScene{instances: []game_object.GameObject{wall()}, env: unbaked}
	empty := &testScene{}

	base := r.LiveResources()
	for f := uint64(0); f < 10000; f++ {
		cam, sc := frontCamera(), empty
		switch f % 3 {
		case 1:
			cam, sc = preview, withGeometry
		case 2:
			sc = withGeometry
		}
		renderFrame(t, pt, cam, f, ResourceContext{Scene: sc, Color: color})
		if pt.Stats().Skip == SkipNone {
			t.Fatalf("frame %d was not skipped", f)
		}
	}
	if r.LiveResources() != base {
		t.Errorf("10000 skipped frames leaked %d resources", r.LiveResources()-base)
	}
}

func TestTracedFrameReleasesTransients(t *testing.T) {
	r := newTestRenderer(t)
	pt := newTracer(t, r, WithAccumulation(false), WithBlurSamples(2))
	color := newColorTarget(t, r, 8, 8, [4]float32{})
	sc := &testScene{instances: []game_object.GameObject{wall(), game_object.NewGameObject(game_object.WithModel(model.NewCube("c", 1)))}, env: gradientSky(t, r)}

	base := r.LiveResources()
	for f := uint64(0); f < 3; f++ {
		renderFrame(t, pt, frontCamera(), f, ResourceContext{Scene: sc, Color: color})
	}
	if r.LiveResources() != base {
		t.Errorf("traced frames leaked %d resources", r.LiveResources()-base)
	}
	if pt.Stats().ArenaPeak == 0 {
		t.Error("ArenaPeak not recorded")
	}
}

func TestFrameIndexWraps(t *testing.T) {
	r := newTestRenderer(t)
	pt := newTracer(t, r)
	params := pt.Prepare(FrameContext{Camera: frontCamera(), Width: 4, Height: 4, FrameCounter: 256*3 + 5})
	if params.FrameIndex != 5 {
		t.Errorf("FrameIndex = %d, want 5", params.FrameIndex)
	}
}
