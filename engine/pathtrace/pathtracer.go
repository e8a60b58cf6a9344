// Package pathtrace implements a per-frame hybrid path tracer. Every frame it flattens
// the scene into one world-space triangle buffer, traces it at a reduced resolution,
// accumulates the result over time with motion-vector reprojection, optionally blurs
// it, then upsamples and composites it over the rasterized color target.
package pathtrace

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/log"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/kernels"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
)

// ErrNoColorTarget is returned when Execute receives no color target for a traced frame.
var ErrNoColorTarget = errors.New("pathtrace: no color target")

// Stage names used in FrameStats.Timings.
const (
	StageAssemble   = "assemble"
	StageTrace      = "trace"
	StageAccumulate = "accumulate"
	StageDenoise    = "denoise"
	StageComposite  = "composite"
)

// FrameStats describes the last executed frame.
type FrameStats struct {
	Skip          SkipReason
	Meshes        int
	Triangles     uint32
	TraceWidth    uint32
	TraceHeight   uint32
	Variant       KernelVariant
	HistoryReset  bool
	ArenaPeak     int
	Timings       map[string]time.Duration
	TotalDuration time.Duration
}

// PathTracer is the RenderPass implementation of the path tracer.
type PathTracer interface {
	RenderPass

	// Config returns the normalized configuration.
	Config() Config

	// Reconfigure applies options over the current configuration.
	// Turning accumulation off releases the history.
	Reconfigure(options ...ConfigOption)

	// Stats returns the statistics of the last Execute call.
	Stats() FrameStats

	// ResetHistory drops accumulated samples so the next frame starts fresh.
	ResetHistory()

	// Release frees the history. The tracer may keep rendering afterwards.
	Release()
}

type pathTracer struct {
	mu sync.Mutex

	r      renderer.Renderer
	cfg    Config
	logger log.Logger

	assembler   *Assembler
	dispatcher  *traceDispatcher
	accumulator *accumulator
	denoiser    *denoiser
	compositor  *compositor

	stats FrameStats
}

var _ PathTracer = &pathTracer{}

// NewPathTracer creates a PathTracer rendering with r. Kernels missing from r are
// registered. NewPathTracer panics if r is nil.
//
// Parameters:
//   - r: the renderer executing every stage
//   - options: functional options applied over DefaultConfig
//
// Returns:
//   - PathTracer: the configured tracer
//   - error: a wrapped kernel build or registration error
func NewPathTracer(r renderer.Renderer, options ...ConfigOption) (PathTracer, error) {
	if r == nil {
		panic("pathtrace: NewPathTracer requires a non-nil Renderer")
	}
	if err := RegisterKernels(r); err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	for _, opt := range options {
		opt(&cfg)
	}
	pt := &pathTracer{
		r:           r,
		cfg:         cfg.Normalized(),
		logger:      log.New("pathtrace"),
		assembler:   NewAssembler(r),
		dispatcher:  newTraceDispatcher(r),
		accumulator: newAccumulator(r),
		denoiser:    newDenoiser(r),
		compositor:  newCompositor(r),
	}
	pt.logger.Infof("created: downscale %d, %d bounces, %d spp (%s), accumulation %t, %s upsample, blur %d",
		pt.cfg.DownscaleFactor, pt.cfg.MaxBounces, pt.cfg.SamplesPerPixel, pt.cfg.Variant(),
		pt.cfg.Accumulate, pt.cfg.Interpolation, pt.cfg.BlurSamples)
	return pt, nil
}

// RegisterKernels registers every path tracer kernel r does not already know.
//
// Parameters:
//   - r: the renderer
//
// Returns:
//   - error: a wrapped kernel build or registration error
func RegisterKernels(r renderer.Renderer) error {
	all, err := kernels.NewPipelines()
	if err != nil {
		return fmt.Errorf("pathtrace: build kernels: %w", err)
	}
	missing := slices.DeleteFunc(all, func(p pipeline.Pipeline) bool {
		return r.Pipeline(p.PipelineKey()) != nil
	})
	if len(missing) == 0 {
		return nil
	}
	if err := r.RegisterPipelines(missing...); err != nil {
		return fmt.Errorf("pathtrace: register kernels: %w", err)
	}
	return nil
}

func (pt *pathTracer) Config() Config {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.cfg
}

func (pt *pathTracer) Reconfigure(options ...ConfigOption) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	cfg := pt.cfg
	for _, opt := range options {
		opt(&cfg)
	}
	pt.cfg = cfg.Normalized()
	if !pt.cfg.Accumulate {
		pt.accumulator.release()
	}
}

func (pt *pathTracer) Stats() FrameStats {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.stats
}

func (pt *pathTracer) ResetHistory() {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.accumulator.release()
}

func (pt *pathTracer) Release() {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.accumulator.release()
}

func (pt *pathTracer) Prepare(ctx FrameContext) FrameParameters {
	pt.mu.Lock()
	cfg := pt.cfg
	pt.mu.Unlock()

	params := FrameParameters{
		FrameIndex: uint32(ctx.FrameCounter % FrameIndexPeriod),
		FullWidth:  ctx.Width,
		FullHeight: ctx.Height,
		Config:     cfg,
		Variant:    cfg.Variant(),
	}
	if ctx.Camera == nil || ctx.Width == 0 || ctx.Height == 0 {
		params.Skip = SkipNoCamera
		return params
	}

	cam := ctx.Camera
	params.CameraType = cam.Type()
	if params.CameraType == camera.CameraTypePreview || params.CameraType == camera.CameraTypeReflection {
		params.Skip = SkipCameraType
	}
	params.VerticalFov = cam.Fov()
	params.CameraPosition = cam.Position()
	params.CameraForward = cam.Forward()
	params.Aspect = float32(ctx.Width) / float32(ctx.Height)
	params.TraceWidth = traceExtent(ctx.Width, cfg.DownscaleFactor)
	params.TraceHeight = traceExtent(ctx.Height, cfg.DownscaleFactor)
	return params
}

func (pt *pathTracer) Execute(params FrameParameters, rc ResourceContext) error {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	start := time.Now()
	stats := FrameStats{
		Variant:     params.Variant,
		TraceWidth:  params.TraceWidth,
		TraceHeight: params.TraceHeight,
		Timings:     make(map[string]time.Duration, 5),
	}
	defer func() {
		stats.TotalDuration = time.Since(start)
		pt.stats = stats
	}()

	if params.Skip != SkipNone {
		stats.Skip = params.Skip
		pt.logger.Debugf("frame %d skipped: %s", params.FrameIndex, params.Skip)
		return nil
	}
	if rc.Scene == nil {
		stats.Skip = SkipNoGeometry
		pt.logger.Debugf("frame %d skipped: no scene", params.FrameIndex)
		return nil
	}
	instances := Renderable(rc.Scene.Instances())
	if len(instances) == 0 {
		stats.Skip = SkipNoGeometry
		pt.logger.Debugf("frame %d skipped: %s", params.FrameIndex, stats.Skip)
		return nil
	}
	var envTexture resource.Texture
	envKind := scene.EnvironmentKindNone
	if env := rc.Scene.Environment(); env != nil {
		if envTexture = env.Texture(); envTexture == nil {
			stats.Skip = SkipEnvironmentUnavailable
			pt.logger.Debugf("frame %d skipped: %s", params.FrameIndex, stats.Skip)
			return nil
		}
		envKind = env.Kind()
	}
	if rc.Color == nil || rc.Color.Released() {
		return ErrNoColorTarget
	}
	if rc.Color.Width() != params.FullWidth || rc.Color.Height() != params.FullHeight {
		return fmt.Errorf("%w: color target %dx%d, frame %dx%d", renderer.ErrSizeMismatch,
			rc.Color.Width(), rc.Color.Height(), params.FullWidth, params.FullHeight)
	}

	arena := NewFrameArena(pt.r)
	defer arena.Release()

	if err := pt.r.BeginComputeFrame(); err != nil {
		return fmt.Errorf("pathtrace: begin frame: %w", err)
	}
	defer pt.r.EndComputeFrame()

	stageStart := time.Now()
	buffers, err := pt.assembler.Assemble(arena, instances)
	if err != nil {
		return err
	}
	stats.Meshes = len(buffers.MeshRanges)
	stats.Triangles = buffers.TriangleCount
	stats.Timings[StageAssemble] = time.Since(stageStart)

	in := traceInputs{geometry: buffers}
	black, err := pt.fallback(arena)
	if err != nil {
		return err
	}
	in.depth = orFallback(rc.Depth, black)
	in.environment, in.envKind = envTexture, envKind
	if envTexture == nil {
		if in.environment, err = pt.environmentFallback(arena); err != nil {
			return err
		}
	}

	radiance, err := arena.Texture(resource.TextureDescriptor{
		Label:  "downscale_target",
		Width:  params.TraceWidth,
		Height: params.TraceHeight,
	})
	if err != nil {
		return err
	}

	stageStart = time.Now()
	if err := pt.dispatcher.dispatch(arena, params, in, radiance); err != nil {
		return err
	}
	stats.Timings[StageTrace] = time.Since(stageStart)

	if params.Config.Accumulate {
		stageStart = time.Now()
		motion := orFallback(rc.Motion, black)
		signature := frameSignature(params, instances, buffers.TriangleCount)
		reset, err := pt.accumulator.accumulate(arena, params, motion, motion != black, signature, radiance)
		if err != nil {
			return err
		}
		stats.HistoryReset = reset
		stats.Timings[StageAccumulate] = time.Since(stageStart)
	} else if pt.accumulator.allocated() {
		pt.accumulator.release()
	}

	stageStart = time.Now()
	if err := pt.denoiser.blur(arena, params.Config.BlurSamples, radiance); err != nil {
		return err
	}
	stats.Timings[StageDenoise] = time.Since(stageStart)

	stageStart = time.Now()
	if err := pt.compositor.composite(arena, params.Config, radiance, rc.Color); err != nil {
		return err
	}
	stats.Timings[StageComposite] = time.Since(stageStart)
	stats.ArenaPeak = arena.Len()
	return nil
}

// fallback allocates the 1x1 black texture standing in for absent inputs.
func (pt *pathTracer) fallback(arena *FrameArena) (resource.Texture, error) {
	return arena.Texture(resource.TextureDescriptor{Label: "black_fallback", Width: 1, Height: 1})
}

// environmentFallback allocates the 1x1 layered texture bound when the scene has no
// environment. The environment binding is declared with an array view.
func (pt *pathTracer) environmentFallback(arena *FrameArena) (resource.Texture, error) {
	return arena.Texture(resource.TextureDescriptor{Label: "environment_fallback", Width: 1, Height: 1, Array: true})
}

// orFallback returns tex unless it is missing or released.
func orFallback(tex, fallback resource.Texture) resource.Texture {
	if tex == nil || tex.Released() {
		return fallback
	}
	return tex
}
