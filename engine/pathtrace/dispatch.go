package pathtrace

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/kernels"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
)

// traceInputs are the resources bound to a trace dispatch besides the uniform.
type traceInputs struct {
	geometry    *SceneBuffers
	depth       resource.Texture
	environment resource.Texture
	envKind     scene.EnvironmentKind
}

// traceDispatcher selects the trace kernel variant and writes the radiance buffer.
type traceDispatcher struct {
	r       renderer.Renderer
	samples []byte
}

func newTraceDispatcher(r renderer.Renderer) *traceDispatcher {
	table := sampleTable()
	return &traceDispatcher{r: r, samples: table.Marshal()}
}

// traceParams builds the kernel uniform from the frame snapshot.
func traceParams(params FrameParameters, in traceInputs) kernels.GPUTraceParams {
	cfg := params.Config
	gp := kernels.GPUTraceParams{
		CameraPosition:  params.CameraPosition,
		VerticalFov:     params.VerticalFov,
		CameraForward:   params.CameraForward,
		Aspect:          params.Aspect,
		Albedo:          cfg.Albedo,
		Width:           params.TraceWidth,
		Height:          params.TraceHeight,
		DownscaleFactor: cfg.DownscaleFactor,
		FrameIndex:      params.FrameIndex,
		MaxBounces:      cfg.MaxBounces,
		SamplesPerPixel: cfg.SamplesPerPixel,
		TriangleCount:   in.geometry.TriangleCount,
		MeshCount:       uint32(len(in.geometry.MeshRanges)),
		MaterialFuzz:    cfg.Fuzz,
		EnvironmentKind: environmentKind(in.envKind),
	}
	if cfg.Metal {
		gp.IsMetal = 1
	}
	return gp
}

func environmentKind(k scene.EnvironmentKind) uint32 {
	switch k {
	case scene.EnvironmentKindCubemap:
		return kernels.EnvironmentKindCubemap
	case scene.EnvironmentKindProbe:
		return kernels.EnvironmentKindEquirect
	default:
		return kernels.EnvironmentKindNone
	}
}

// dispatch traces one frame into radiance and waits for completion.
//
// Parameters:
//   - arena: the frame arena
//   - params: the frame snapshot
//   - in: the bound geometry, depth and sky
//   - radiance: the trace-resolution output texture
//
// Returns:
//   - error: a wrapped allocation or dispatch error
func (d *traceDispatcher) dispatch(arena *FrameArena, params FrameParameters, in traceInputs, radiance resource.Texture) error {
	kernel := params.Variant.Kernel()
	p := d.r.Pipeline(kernel.Key)
	if p == nil {
		return fmt.Errorf("%w: %s", renderer.ErrKernelNotRegistered, kernel.Key)
	}

	gp := traceParams(params, in)
	uniform, err := arena.Uniform("trace_params", gp.Marshal())
	if err != nil {
		return err
	}
	samples, err := arena.Uniform("sample_table", d.samples)
	if err != nil {
		return err
	}
	provider := arena.Provider(kernel.Key,
		bind_group_provider.WithBuffer(0, uniform),
		bind_group_provider.WithBuffer(1, in.geometry.Triangles),
		bind_group_provider.WithBuffer(2, in.geometry.Ranges),
		bind_group_provider.WithBuffer(3, samples),
		bind_group_provider.WithTexture(4, in.depth),
		bind_group_provider.WithTexture(5, in.environment),
		bind_group_provider.WithTexture(6, radiance),
	)

	if err := d.r.DispatchCompute(kernel.Key, provider, groupCount(p.Shader().WorkgroupSize(), params.TraceWidth, params.TraceHeight)); err != nil {
		return fmt.Errorf("pathtrace: trace: %w", err)
	}
	d.r.Wait()
	return nil
}

// groupCount returns ceil(extent / workgroup size) per axis.
func groupCount(size [3]uint32, width, height uint32) [3]uint32 {
	gx, gy := max(size[0], 1), max(size[1], 1)
	return [3]uint32{common.CeilDiv(width, gx), common.CeilDiv(height, gy), 1}
}
