package kernels

import (
	"math"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/model"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
)

func newKernelRenderer(t *testing.T) renderer.Renderer {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeSoftware, renderer.WithWorkerCount(2))
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	t.Cleanup(r.Release)
	pipelines, err := NewPipelines()
	if err != nil {
		t.Fatalf("NewPipelines() error = %v", err)
	}
	if err := r.RegisterPipelines(pipelines...); err != nil {
		t.Fatalf("RegisterPipelines() error = %v", err)
	}
	return r
}

func newBuffer(t *testing.T, r renderer.Renderer, label string, data []byte, usage resource.BufferUsage) resource.Buffer {
	t.Helper()
	b, err := r.CreateBuffer(label, uint64(len(data)), usage|resource.BufferUsageCopyDst)
	if err != nil {
		t.Fatalf("CreateBuffer(%s) error = %v", label, err)
	}
	if err := r.WriteBuffer(b, 0, data); err != nil {
		t.Fatalf("WriteBuffer(%s) error = %v", label, err)
	}
	t.Cleanup(b.Release)
	return b
}

func newTexture(t *testing.T, r renderer.Renderer, label string, w, h, layers uint32, fill func(x, y, layer uint32) [4]float32) resource.Texture {
	t.Helper()
	return newTextureFrom(t, r, resource.TextureDescriptor{Label: label, Width: w, Height: h, Layers: layers, Array: layers > 1}, fill)
}

// newArrayTexture creates a texture with an array view even for a single layer, as
// environment bindings require.
func newArrayTexture(t *testing.T, r renderer.Renderer, label string, w, h, layers uint32, fill func(x, y, layer uint32) [4]float32) resource.Texture {
	t.Helper()
	return newTextureFrom(t, r, resource.TextureDescriptor{Label: label, Width: w, Height: h, Layers: layers, Array: true}, fill)
}

func newTextureFrom(t *testing.T, r renderer.Renderer, desc resource.TextureDescriptor, fill func(x, y, layer uint32) [4]float32) resource.Texture {
	t.Helper()
	label, w, h, layers := desc.Label, desc.Width, desc.Height, desc.Layers
	tex, err := r.CreateTexture(desc)
	if err != nil {
		t.Fatalf("CreateTexture(%s) error = %v", label, err)
	}
	t.Cleanup(tex.Release)
	if fill == nil {
		return tex
	}
	for l := uint32(0); l < max(layers, 1); l++ {
		pixels := make([]float32, 0, w*h*4)
		for y := uint32(0); y < h; y++ {
			for x := uint32(0); x < w; x++ {
				c := fill(x, y, l)
				pixels = append(pixels, c[:]...)
			}
		}
		if err := r.WriteTexture(tex, l, pixels); err != nil {
			t.Fatalf("WriteTexture(%s) error = %v", label, err)
		}
	}
	return tex
}

func groups(n, size uint32) uint32 {
	return (n + size - 1) / size
}

func dispatch2D(t *testing.T, r renderer.Renderer, key string, p bind_group_provider.BindGroupProvider, w, h uint32) {
	t.Helper()
	size := r.Pipeline(key).Shader().WorkgroupSize()
	if err := r.DispatchCompute(key, p, [3]uint32{groups(w, size[0]), groups(h, size[1]), 1}); err != nil {
		t.Fatalf("DispatchCompute(%s) error = %v", key, err)
	}
}

func read(t *testing.T, r renderer.Renderer, tex resource.Texture) []float32 {
	t.Helper()
	px, err := r.ReadTexture(tex)
	if err != nil {
		t.Fatalf("ReadTexture() error = %v", err)
	}
	return px
}

func TestNewPipelinesParsesEveryKernel(t *testing.T) {
	pipelines, err := NewPipelines()
	if err != nil {
		t.Fatalf("NewPipelines() error = %v", err)
	}
	if got, want := len(pipelines), 5+len(TraceVariants); got != want {
		t.Fatalf("len(NewPipelines()) = %d, want %d", got, want)
	}

	wantBindings := map[string]int{
		FormatTrianglesKey: 4,
		AccumulateKey:      5,
		BlurKey:            3,
		UpsampleKey:        3,
		CompositeKey:       4,
	}
	for _, v := range TraceVariants {
		wantBindings[v.Key] = 7
	}
	for _, p := range pipelines {
		s := p.Shader()
		if s.EntryPoint() != "main" {
			t.Errorf("%s: EntryPoint() = %q, want main", p.PipelineKey(), s.EntryPoint())
		}
		if got := len(s.Bindings(0)); got != wantBindings[p.PipelineKey()] {
			t.Errorf("%s: len(Bindings(0)) = %d, want %d", p.PipelineKey(), got, wantBindings[p.PipelineKey()])
		}
		if p.HostKernel() == nil {
			t.Errorf("%s: missing host kernel", p.PipelineKey())
		}
		if strings.Contains(s.Source(), "@oxy:") {
			t.Errorf("%s: unexpanded annotation in source", p.PipelineKey())
		}
	}
}

func TestTraceVariantWorkgroupSizes(t *testing.T) {
	for _, v := range TraceVariants {
		src, err := TraceSource(v)
		if err != nil {
			t.Fatalf("TraceSource(%s) error = %v", v.Key, err)
		}
		s, err := shader.NewShader(v.Key, src, shader.NewPreProcessor(Registry()))
		if err != nil {
			t.Fatalf("NewShader(%s) error = %v", v.Key, err)
		}
		want := [3]uint32{v.Workgroup[0], v.Workgroup[1], 1}
		if got := s.WorkgroupSize(); got != want {
			t.Errorf("%s: WorkgroupSize() = %v, want %v", v.Key, got, want)
		}
		hasConst := strings.Contains(s.Source(), "const SAMPLE_COUNT")
		if hasConst != (v.Samples != 0) {
			t.Errorf("%s: SAMPLE_COUNT declared = %v", v.Key, hasConst)
		}
		b := s.Bindings(0)
		if b[0].MinSize != 96 {
			t.Errorf("%s: params MinSize = %d, want 96", v.Key, b[0].MinSize)
		}
		if b[3].MinSize != 256 {
			t.Errorf("%s: sample table MinSize = %d, want 256", v.Key, b[3].MinSize)
		}
		if b[2].MinSize != model.GPUMeshRangeSize {
			t.Errorf("%s: mesh range MinSize = %d, want %d", v.Key, b[2].MinSize, model.GPUMeshRangeSize)
		}
	}
}

func TestUniformSizesMatchWGSL(t *testing.T) {
	pipelines, err := NewPipelines()
	if err != nil {
		t.Fatalf("NewPipelines() error = %v", err)
	}
	byKey := make(map[string]uint64)
	for _, p := range pipelines {
		byKey[p.PipelineKey()] = p.Shader().Bindings(0)[0].MinSize
	}
	tests := []struct {
		key  string
		size int
	}{
		{FormatTrianglesKey, (&GPUFormatParams{}).Size()},
		{AccumulateKey, (&GPUAccumulateParams{}).Size()},
		{BlurKey, (&GPUBlurParams{}).Size()},
		{UpsampleKey, (&GPUUpsampleParams{}).Size()},
		{CompositeKey, (&GPUCompositeParams{}).Size()},
		{"trace_general", (&GPUTraceParams{}).Size()},
	}
	for _, tt := range tests {
		if byKey[tt.key] != uint64(tt.size) {
			t.Errorf("%s: WGSL size %d, Go size %d", tt.key, byKey[tt.key], tt.size)
		}
	}
}

func TestGaussianWeights(t *testing.T) {
	if w := GaussianWeights(0); len(w) != 1 || w[0] != 1 {
		t.Errorf("GaussianWeights(0) = %v, want [1]", w)
	}
	for _, radius := range []int{1, 2, 5, 32} {
		w := GaussianWeights(radius)
		if len(w) != 2*radius+1 {
			t.Fatalf("len(GaussianWeights(%d)) = %d", radius, len(w))
		}
		var sum float64
		for i := range w {
			sum += float64(w[i])
			if w[i] != w[len(w)-1-i] {
				t.Errorf("GaussianWeights(%d) not symmetric at %d", radius, i)
			}
			if i > 0 && i <= radius && w[i] < w[i-1] {
				t.Errorf("GaussianWeights(%d) not increasing toward center at %d", radius, i)
			}
		}
		if math.Abs(sum-1) > 1e-5 {
			t.Errorf("sum(GaussianWeights(%d)) = %v, want 1", radius, sum)
		}
	}
}

func TestPCGHashMatchesReference(t *testing.T) {
	// Reference values from the WGSL formulation evaluated with wrapping u32 math.
	state := uint32(0)*747796405 + 2891336453
	word := ((state >> ((state >> 28) + 4)) ^ state) * 277803737
	if got, want := pcgHash(0), (word>>22)^word; got != want {
		t.Errorf("pcgHash(0) = %d, want %d", got, want)
	}
	seen := make(map[uint32]bool)
	for i := uint32(0); i < 1024; i++ {
		seen[pcgHash(i)] = true
	}
	if len(seen) < 1020 {
		t.Errorf("pcgHash produced %d distinct values for 1024 inputs", len(seen))
	}
	s := uint32(7)
	for i := 0; i < 100; i++ {
		v := randomUnitVector(&s)
		if l := v.Len(); math.Abs(float64(l)-1) > 1e-4 {
			t.Fatalf("randomUnitVector length = %v", l)
		}
	}
}

func TestCubemapCoordsFaces(t *testing.T) {
	tests := []struct {
		dir  mgl32.Vec3
		face int
	}{
		{mgl32.Vec3{1, 0, 0}, 0},
		{mgl32.Vec3{-1, 0, 0}, 1},
		{mgl32.Vec3{0, 1, 0}, 2},
		{mgl32.Vec3{0, -1, 0}, 3},
		{mgl32.Vec3{0, 0, 1}, 4},
		{mgl32.Vec3{0, 0, -1}, 5},
	}
	for _, tt := range tests {
		u, v, face := cubemapCoords(tt.dir)
		if face != tt.face || u != 0.5 || v != 0.5 {
			t.Errorf("cubemapCoords(%v) = (%v, %v, %d), want (0.5, 0.5, %d)", tt.dir, u, v, face, tt.face)
		}
	}
}

func TestUpsampleNearestIsExactCopyAtScaleOne(t *testing.T) {
	r := newKernelRenderer(t)
	const w, h = 13, 9
	src := newTexture(t, r, "src", w, h, 1, func(x, y, _ uint32) [4]float32 {
		return [4]float32{float32(x) * 0.1, float32(y) * 0.37, float32(x*y) + 0.5, 1}
	})
	dst := newTexture(t, r, "dst", w, h, 1, nil)
	params := GPUUpsampleParams{SrcWidth: w, SrcHeight: h, DstWidth: w, DstHeight: h, Mode: UpsampleNearest}
	p := bind_group_provider.NewBindGroupProvider("upsample",
		bind_group_provider.WithBuffer(0, newBuffer(t, r, "params", params.Marshal(), resource.BufferUsageUniform)),
		bind_group_provider.WithTexture(1, src),
		bind_group_provider.WithTexture(2, dst),
	)
	dispatch2D(t, r, UpsampleKey, p, w, h)

	want := read(t, r, src)
	got := read(t, r, dst)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("texel component %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestUpsampleFiltersPreserveConstant(t *testing.T) {
	r := newKernelRenderer(t)
	c := [4]float32{0.25, 0.5, 0.75, 1}
	for _, mode := range []uint32{UpsampleNearest, UpsampleBilinear, UpsampleBicubic, UpsampleLanczos} {
		src := newTexture(t, r, "src", 4, 3, 1, func(_, _, _ uint32) [4]float32 { return c })
		dst := newTexture(t, r, "dst", 16, 12, 1, nil)
		params := GPUUpsampleParams{SrcWidth: 4, SrcHeight: 3, DstWidth: 16, DstHeight: 12, Mode: mode}
		p := bind_group_provider.NewBindGroupProvider("upsample",
			bind_group_provider.WithBuffer(0, newBuffer(t, r, "params", params.Marshal(), resource.BufferUsageUniform)),
			bind_group_provider.WithTexture(1, src),
			bind_group_provider.WithTexture(2, dst),
		)
		dispatch2D(t, r, UpsampleKey, p, 16, 12)
		for i, v := range read(t, r, dst) {
			if math.Abs(float64(v-c[i%4])) > 1e-5 {
				t.Fatalf("mode %d: component %d = %v, want %v", mode, i, v, c[i%4])
			}
		}
	}
}

func TestFormatTrianglesTransformsToWorld(t *testing.T) {
	r := newKernelRenderer(t)
	cube := model.NewCube("cube", 2)
	count := uint32(cube.TriangleCount())
	offset := uint32(3)

	xf := mgl32.Translate3D(10, 0, 0).Mul4(mgl32.Scale3D(2, 2, 2))
	params := GPUFormatParams{
		LocalToWorld:   xf,
		NormalMatrix:   xf.Inv().Transpose(),
		TriangleOffset: offset,
		TriangleCount:  count,
		VertexStride:   cube.VertexStride(),
		PositionOffset: model.PositionOffset,
		NormalOffset:   model.NormalOffset,
	}
	out := newBuffer(t, r, "triangles", make([]byte, int(offset+count)*model.GPUTriangleSize), resource.BufferUsageStorage)
	p := bind_group_provider.NewBindGroupProvider("format",
		bind_group_provider.WithBuffer(0, newBuffer(t, r, "params", params.Marshal(), resource.BufferUsageUniform)),
		bind_group_provider.WithBuffer(1, newBuffer(t, r, "vertices", cube.VertexData(), resource.BufferUsageStorage)),
		bind_group_provider.WithBuffer(2, newBuffer(t, r, "indices", cube.IndexData(), resource.BufferUsageStorage)),
		bind_group_provider.WithBuffer(3, out),
	)
	size := r.Pipeline(FormatTrianglesKey).Shader().WorkgroupSize()
	if err := r.DispatchCompute(FormatTrianglesKey, p, [3]uint32{groups(count, size[0]), 1, 1}); err != nil {
		t.Fatalf("DispatchCompute() error = %v", err)
	}

	tris := model.UnmarshalTriangles(out.(resource.HostBuffer).Bytes())
	for i := uint32(0); i < offset; i++ {
		if tris[i] != (model.GPUTriangle{}) {
			t.Errorf("triangle %d before offset was written", i)
		}
	}
	for i := offset; i < offset+count; i++ {
		for c := 0; c < 3; c++ {
			pos := tris[i].Positions[c]
			if math.Abs(float64(pos[0]-10)) != 2 || math.Abs(float64(pos[1])) != 2 || math.Abs(float64(pos[2])) != 2 {
				t.Fatalf("triangle %d corner %d position = %v", i, c, pos)
			}
			n := mgl32.Vec3(tris[i].Normals[c])
			if math.Abs(float64(n.Len())-1) > 1e-5 {
				t.Fatalf("triangle %d corner %d normal %v not unit", i, c, n)
			}
		}
	}
}

// traceScene binds a trace dispatch over the given triangles with a constant environment.
func traceScene(t *testing.T, r renderer.Renderer, key string, params GPUTraceParams, tris []model.GPUTriangle, sky [4]float32) resource.Texture {
	t.Helper()
	return traceSceneDepth(t, r, key, params, tris, sky, newTexture(t, r, "depth", 1, 1, 1, nil))
}

func traceSceneDepth(t *testing.T, r renderer.Renderer, key string, params GPUTraceParams, tris []model.GPUTriangle, sky [4]float32, depth resource.Texture) resource.Texture {
	t.Helper()
	triBytes := make([]byte, 0, len(tris)*model.GPUTriangleSize)
	for i := range tris {
		triBytes = append(triBytes, tris[i].Marshal()...)
	}
	ranges := []model.GPUMeshRange{{StartIndex: 0, EndIndex: uint32(len(tris))}}
	params.TriangleCount = uint32(len(tris))
	params.MeshCount = 1

	var table GPUSampleTable
	layers := uint32(1)
	if params.EnvironmentKind == EnvironmentKindCubemap {
		layers = 6
	}
	out := newTexture(t, r, "radiance", params.Width, params.Height, 1, nil)
	p := bind_group_provider.NewBindGroupProvider("trace",
		bind_group_provider.WithBuffer(0, newBuffer(t, r, "params", params.Marshal(), resource.BufferUsageUniform)),
		bind_group_provider.WithBuffer(1, newBuffer(t, r, "triangles", triBytes, resource.BufferUsageStorage)),
		bind_group_provider.WithBuffer(2, newBuffer(t, r, "ranges", model.MarshalMeshRanges(ranges), resource.BufferUsageStorage)),
		bind_group_provider.WithBuffer(3, newBuffer(t, r, "samples", table.Marshal(), resource.BufferUsageUniform)),
		bind_group_provider.WithTexture(4, depth),
		bind_group_provider.WithTexture(5, newArrayTexture(t, r, "environment", 4, 4, layers, func(_, _, _ uint32) [4]float32 { return sky })),
		bind_group_provider.WithTexture(6, out),
	)
	dispatch2D(t, r, key, p, params.Width, params.Height)
	return out
}

func baseTraceParams() GPUTraceParams {
	return GPUTraceParams{
		CameraPosition:  [3]float32{0, 0, 5},
		VerticalFov:     60,
		CameraForward:   [3]float32{0, 0, -1},
		Aspect:          1,
		Albedo:          [4]float32{0.5, 0.5, 0.5, 1},
		Width:           6,
		Height:          6,
		DownscaleFactor: 1,
		MaxBounces:      4,
		SamplesPerPixel: 3,
	}
}

func TestTraceMissReturnsEnvironment(t *testing.T) {
	r := newKernelRenderer(t)
	sky := [4]float32{0.2, 0.4, 0.8, 1}
	for _, kind := range []uint32{EnvironmentKindCubemap, EnvironmentKindEquirect} {
		params := baseTraceParams()
		params.EnvironmentKind = kind
		out := traceScene(t, r, "trace_spp2", params, nil, sky)
		for i, v := range read(t, r, out) {
			want := sky[i%4]
			if i%4 == 3 {
				want = 1
			}
			if math.Abs(float64(v-want)) > 1e-6 {
				t.Fatalf("kind %d: component %d = %v, want %v", kind, i, v, want)
			}
		}
	}
}

func TestTraceNoEnvironmentIsBlack(t *testing.T) {
	r := newKernelRenderer(t)
	params := baseTraceParams()
	out := traceScene(t, r, "trace_general", params, nil, [4]float32{1, 1, 1, 1})
	for i, v := range read(t, r, out) {
		if i%4 != 3 && v != 0 {
			t.Fatalf("component %d = %v, want 0", i, v)
		}
	}
}

// A wall filling the view under a white sky reflects exactly albedo on the first bounce:
// every Lambertian scatter leaves the wall and escapes to the sky.
func TestTraceDiffuseWallReflectsAlbedo(t *testing.T) {
	r := newKernelRenderer(t)
	n := [3]float32{0, 0, 1}
	wall := []model.GPUTriangle{
		{Positions: [3][3]float32{{-100, -100, 0}, {100, -100, 0}, {100, 100, 0}}, Normals: [3][3]float32{n, n, n}},
		{Positions: [3][3]float32{{-100, -100, 0}, {100, 100, 0}, {-100, 100, 0}}, Normals: [3][3]float32{n, n, n}},
	}
	for _, v := range TraceVariants {
		params := baseTraceParams()
		params.EnvironmentKind = EnvironmentKindEquirect
		out := traceScene(t, r, v.Key, params, wall, [4]float32{1, 1, 1, 1})
		for i, c := range read(t, r, out) {
			want := float32(0.5)
			if i%4 == 3 {
				want = 1
			}
			if math.Abs(float64(c-want)) > 1e-5 {
				t.Fatalf("%s: component %d = %v, want %v", v.Key, i, c, want)
			}
		}
	}
}

func TestFullResTexelRoundTripsThroughUpsample(t *testing.T) {
	tests := []struct {
		full, factor uint32
	}{
		{3, 2}, {5, 2}, {5, 4}, {7, 6}, {9, 2}, {17, 3}, {640, 3}, {8, 2},
	}
	for i, tt := range tests {
		trace := (tt.full + tt.factor - 1) / tt.factor
		for x := uint32(0); x < trace; x++ {
			f := fullResTexel(x, trace, tt.full)
			if f < 0 || f >= int(tt.full) {
				t.Fatalf("[case %d] fullResTexel(%d, %d, %d) = %d, out of range", i, x, trace, tt.full, f)
			}
			// Nearest upsampling of full pixel f reads trace texel back.
			back := ((2*uint32(f) + 1) * trace) / (2 * tt.full)
			if back != x {
				t.Errorf("[case %d] trace %d -> full %d -> trace %d, want %d", i, x, f, back, x)
			}
		}
	}
}

// Full width 5 at downscale 2 traces 3 columns. Column 1 covers full pixel 2, which
// holds the only raster depth, so only that column is capped and misses black.
func TestTraceDepthLookupUsesExtentRatio(t *testing.T) {
	r := newKernelRenderer(t)
	params := baseTraceParams()
	params.Width, params.Height = 3, 1
	params.Aspect = 3
	params.DownscaleFactor = 2
	params.EnvironmentKind = EnvironmentKindEquirect
	depth := newTexture(t, r, "depth", 5, 1, 1, func(x, _, _ uint32) [4]float32 {
		if x == 2 {
			return [4]float32{1, 0, 0, 1}
		}
		return [4]float32{}
	})
	out := read(t, r, traceSceneDepth(t, r, "trace_general", params, nil, [4]float32{1, 1, 1, 1}, depth))
	for x := 0; x < 3; x++ {
		want := float32(1)
		if x == 1 {
			want = 0
		}
		if got := out[x*4]; math.Abs(float64(got-want)) > 1e-6 {
			t.Errorf("column %d red = %v, want %v", x, got, want)
		}
	}
}

func TestAccumulateMotionUsesExtentRatio(t *testing.T) {
	r := newKernelRenderer(t)
	// Full width 7 at downscale 4 traces 2 columns; column 1 reads full pixel 5.
	const full, w = 7, 2
	radiance := newTexture(t, r, "radiance", w, 1, 1, func(_, _, _ uint32) [4]float32 { return [4]float32{0.5, 0.5, 0.5, 1} })
	history := newTexture(t, r, "history", w, 1, 1, func(x, _, _ uint32) [4]float32 {
		if x == 0 {
			return [4]float32{1, 1, 1, 1}
		}
		return [4]float32{0, 0, 0, 1}
	})
	// 3.5 full pixels is one trace texel at a 2/7 ratio.
	motion := newTexture(t, r, "motion", full, 1, 1, func(x, _, _ uint32) [4]float32 {
		if x == 5 {
			return [4]float32{3.5, 0, 0, 0}
		}
		return [4]float32{}
	})
	out := newTexture(t, r, "out", w, 1, 1, nil)
	params := GPUAccumulateParams{Width: w, Height: 1, DownscaleFactor: 4, HistoryLimit: 64}
	p := bind_group_provider.NewBindGroupProvider("accumulate",
		bind_group_provider.WithBuffer(0, newBuffer(t, r, "params", params.Marshal(), resource.BufferUsageUniform)),
		bind_group_provider.WithTexture(1, motion),
		bind_group_provider.WithTexture(2, radiance),
		bind_group_provider.WithTexture(3, history),
		bind_group_provider.WithTexture(4, out),
	)
	dispatch2D(t, r, AccumulateKey, p, w, 1)
	got := read(t, r, out)
	// Both columns blend history column 0: mix(1, 0.5, 1/2).
	if got[4] != 0.75 || got[7] != 2 {
		t.Errorf("column 1 = %v, want rgb 0.75 count 2", got[4:8])
	}
	if got[0] != 0.75 || got[3] != 2 {
		t.Errorf("column 0 = %v, want rgb 0.75 count 2", got[0:4])
	}
}

func TestAccumulateBlendAndReset(t *testing.T) {
	r := newKernelRenderer(t)
	const w, h = 4, 4
	radiance := newTexture(t, r, "radiance", w, h, 1, func(_, _, _ uint32) [4]float32 { return [4]float32{1, 1, 1, 1} })
	history := newTexture(t, r, "history", w, h, 1, func(_, _, _ uint32) [4]float32 { return [4]float32{0, 0, 0, 3} })
	motion := newTexture(t, r, "motion", 1, 1, 1, nil)

	run := func(params GPUAccumulateParams, motion resource.Texture) []float32 {
		out := newTexture(t, r, "out", w, h, 1, nil)
		p := bind_group_provider.NewBindGroupProvider("accumulate",
			bind_group_provider.WithBuffer(0, newBuffer(t, r, "params", params.Marshal(), resource.BufferUsageUniform)),
			bind_group_provider.WithTexture(1, motion),
			bind_group_provider.WithTexture(2, radiance),
			bind_group_provider.WithTexture(3, history),
			bind_group_provider.WithTexture(4, out),
		)
		dispatch2D(t, r, AccumulateKey, p, w, h)
		return read(t, r, out)
	}

	// count 3 + 1 = 4, so the new sample contributes a quarter.
	got := run(GPUAccumulateParams{Width: w, Height: h, DownscaleFactor: 1, HistoryLimit: 64}, motion)
	if got[0] != 0.25 || got[3] != 4 {
		t.Errorf("blend = %v, want rgb 0.25 count 4", got[:4])
	}

	got = run(GPUAccumulateParams{Width: w, Height: h, DownscaleFactor: 1, HistoryLimit: 2}, motion)
	if got[0] != 0.5 || got[3] != 2 {
		t.Errorf("limited blend = %v, want rgb 0.5 count 2", got[:4])
	}

	got = run(GPUAccumulateParams{Width: w, Height: h, DownscaleFactor: 1, HistoryLimit: 64, Reset: 1}, motion)
	if got[0] != 1 || got[3] != 1 {
		t.Errorf("reset = %v, want rgb 1 count 1", got[:4])
	}

	// Motion of +2 pixels in x: the two leftmost columns reproject off screen.
	moving := newTexture(t, r, "moving", w, h, 1, func(_, _, _ uint32) [4]float32 { return [4]float32{2, 0, 0, 0} })
	got = run(GPUAccumulateParams{Width: w, Height: h, DownscaleFactor: 1, HistoryLimit: 64}, moving)
	for x := 0; x < w; x++ {
		wantCount := float32(4)
		if x < 2 {
			wantCount = 1
		}
		if c := got[x*4+3]; c != wantCount {
			t.Errorf("column %d count = %v, want %v", x, c, wantCount)
		}
	}
}

func TestBlurPreservesConstantAndAlpha(t *testing.T) {
	r := newKernelRenderer(t)
	const w, h = 9, 7
	src := newTexture(t, r, "src", w, h, 1, func(_, _, _ uint32) [4]float32 { return [4]float32{0.3, 0.6, 0.9, 5} })
	for _, dir := range []uint32{BlurHorizontal, BlurVertical} {
		dst := newTexture(t, r, "dst", w, h, 1, nil)
		params := GPUBlurParams{Width: w, Height: h, Radius: 3, Direction: dir}
		p := bind_group_provider.NewBindGroupProvider("blur",
			bind_group_provider.WithBuffer(0, newBuffer(t, r, "params", params.Marshal(), resource.BufferUsageUniform)),
			bind_group_provider.WithTexture(1, src),
			bind_group_provider.WithTexture(2, dst),
		)
		dispatch2D(t, r, BlurKey, p, w, h)
		want := [4]float32{0.3, 0.6, 0.9, 5}
		for i, v := range read(t, r, dst) {
			if math.Abs(float64(v-want[i%4])) > 1e-5 {
				t.Fatalf("direction %d: component %d = %v, want %v", dir, i, v, want[i%4])
			}
		}
	}
}

func TestBlurPassStaysOnItsAxis(t *testing.T) {
	r := newKernelRenderer(t)
	const size, center = 7, 3
	src := newTexture(t, r, "impulse", size, size, 1, func(x, y, _ uint32) [4]float32 {
		if x == center && y == center {
			return [4]float32{1, 1, 1, 1}
		}
		return [4]float32{}
	})
	tests := []struct {
		direction     uint32
		along, across    [2]int
	}{
		{BlurHorizontal, [2]int{center + 1, center}, [2]int{center, center + 1}},
		{BlurVertical, [2]int{center, center + 1}, [2]int{center + 1, center}},
	}
	for i, tt := range tests {
		dst := newTexture(t, r, "dst", size, size, 1, nil)
		params := GPUBlurParams{Width: size, Height: size, Radius: 2, Direction: tt.direction}
		p := bind_group_provider.NewBindGroupProvider("blur",
			bind_group_provider.WithBuffer(0, newBuffer(t, r, "params", params.Marshal(), resource.BufferUsageUniform)),
			bind_group_provider.WithTexture(1, src),
			bind_group_provider.WithTexture(2, dst),
		)
		dispatch2D(t, r, BlurKey, p, size, size)
		got := read(t, r, dst)
		at := func(c [2]int) float32 { return got[(c[1]*size+c[0])*4] }
		if v := at(tt.along); v <= 0 {
			t.Errorf("[case %d] texel %v along the pass = %v, want > 0", i, tt.along, v)
		}
		if v := at(tt.across); v != 0 {
			t.Errorf("[case %d] texel %v across the pass = %v, want 0", i, tt.across, v)
		}
		if v := at([2]int{center + 1, center + 1}); v != 0 {
			t.Errorf("[case %d] diagonal texel = %v, want 0", i, v)
		}
	}
}

func TestCompositeModes(t *testing.T) {
	r := newKernelRenderer(t)
	scene := newTexture(t, r, "scene", 2, 2, 1, func(_, _, _ uint32) [4]float32 { return [4]float32{0.5, 0.2, 0.0, 0.7} })
	traced := newTexture(t, r, "traced", 2, 2, 1, func(_, _, _ uint32) [4]float32 { return [4]float32{0.2, 0.4, 1.0, 1} })
	tests := []struct {
		mode      uint32
		intensity float32
		want      [4]float32
	}{
		{CompositeAdditive, 0.5, [4]float32{0.6, 0.4, 0.5, 0.7}},
		{CompositeMax, 1, [4]float32{0.5, 0.4, 1.0, 0.7}},
		{CompositeReplace, 1, [4]float32{0.2, 0.4, 1.0, 0.7}},
		{CompositeReplace, 0, [4]float32{0.5, 0.2, 0.0, 0.7}},
	}
	for _, tt := range tests {
		out := newTexture(t, r, "out", 2, 2, 1, nil)
		params := GPUCompositeParams{Width: 2, Height: 2, Mode: tt.mode, Intensity: tt.intensity}
		p := bind_group_provider.NewBindGroupProvider("composite",
			bind_group_provider.WithBuffer(0, newBuffer(t, r, "params", params.Marshal(), resource.BufferUsageUniform)),
			bind_group_provider.WithTexture(1, scene),
			bind_group_provider.WithTexture(2, traced),
			bind_group_provider.WithTexture(3, out),
		)
		dispatch2D(t, r, CompositeKey, p, 2, 2)
		for i, v := range read(t, r, out) {
			if math.Abs(float64(v-tt.want[i%4])) > 1e-6 {
				t.Fatalf("mode %d: component %d = %v, want %v", tt.mode, i, v, tt.want[i%4])
			}
		}
	}
}
