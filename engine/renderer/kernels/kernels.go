// Package kernels holds the WGSL compute kernels of the path tracer together with a
// host implementation of each kernel for the software backend. Both implementations
// read the same bindings and the same uniform layouts.
package kernels

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"

	"github.com/Carmen-Shannon/oxy-trace/engine/model"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
)

// Kernel keys.
const (
	FormatTrianglesKey = "format_triangles"
	AccumulateKey      = "accumulate"
	BlurKey            = "blur"
	UpsampleKey        = "upsample"
	CompositeKey       = "composite"
)

// Snippet keys accepted by //@oxy:include and //@oxy:group in kernel sources.
const (
	SnippetFormatParams     shader.AnnotationArg = "format_params"
	SnippetTraceParams      shader.AnnotationArg = "trace_params"
	SnippetSampleTable      shader.AnnotationArg = "sample_table"
	SnippetMeshRange        shader.AnnotationArg = "mesh_range"
	SnippetAccumulateParams shader.AnnotationArg = "accumulate_params"
	SnippetBlurParams       shader.AnnotationArg = "blur_params"
	SnippetUpsampleParams   shader.AnnotationArg = "upsample_params"
	SnippetCompositeParams  shader.AnnotationArg = "composite_params"
	SnippetRNG              shader.AnnotationArg = "rng"
	SnippetIntersect        shader.AnnotationArg = "intersect"
	SnippetEnvironment      shader.AnnotationArg = "environment"
)

var (
	//go:embed assets/rng.wgsl
	rngSource string

	//go:embed assets/intersect.wgsl
	intersectSource string

	//go:embed assets/environment.wgsl
	environmentSource string

	//go:embed assets/format_triangles.wgsl
	formatTrianglesSource string

	//go:embed assets/trace.wgsl.tmpl
	traceTemplateSource string

	//go:embed assets/accumulate.wgsl
	accumulateSource string

	//go:embed assets/blur.wgsl
	blurSource string

	//go:embed assets/upsample.wgsl
	upsampleSource string

	//go:embed assets/composite.wgsl
	compositeSource string
)

var traceTemplate = template.Must(template.New("trace").Parse(traceTemplateSource))

// TraceVariant describes one compiled trace kernel. Samples is zero for the general
// kernel, which reads the sample count from its uniform.
type TraceVariant struct {
	Key       string
	Samples   uint32
	Workgroup [2]uint32
}

// TraceVariants lists every trace kernel in ascending sample order, general last.
var TraceVariants = []TraceVariant{
	{Key: "trace_spp1", Samples: 1, Workgroup: [2]uint32{16, 16}},
	{Key: "trace_spp2", Samples: 2, Workgroup: [2]uint32{16, 8}},
	{Key: "trace_spp4", Samples: 4, Workgroup: [2]uint32{8, 8}},
	{Key: "trace_spp8", Samples: 8, Workgroup: [2]uint32{8, 8}},
	{Key: "trace_spp16", Samples: 16, Workgroup: [2]uint32{8, 4}},
	{Key: "trace_general", Samples: 0, Workgroup: [2]uint32{8, 8}},
}

// Registry returns the snippet registry used to pre-process every kernel.
//
// Returns:
//   - map[shader.AnnotationArg]shader.RegistryEntry: a fresh registry
func Registry() map[shader.AnnotationArg]shader.RegistryEntry {
	return map[shader.AnnotationArg]shader.RegistryEntry{
		SnippetFormatParams:     {Source: GPUFormatParamsSource, Type: "FormatParams"},
		SnippetTraceParams:      {Source: GPUTraceParamsSource, Type: "TraceParams"},
		SnippetSampleTable:      {Source: GPUSampleTableSource, Type: "SampleTable"},
		SnippetMeshRange:        {Source: model.GPUMeshRangeSource, Type: "MeshRange"},
		SnippetAccumulateParams: {Source: GPUAccumulateParamsSource, Type: "AccumulateParams"},
		SnippetBlurParams:       {Source: GPUBlurParamsSource, Type: "BlurParams"},
		SnippetUpsampleParams:   {Source: GPUUpsampleParamsSource, Type: "UpsampleParams"},
		SnippetCompositeParams:  {Source: GPUCompositeParamsSource, Type: "CompositeParams"},
		SnippetRNG:              {Source: rngSource},
		SnippetIntersect:        {Source: intersectSource},
		SnippetEnvironment:      {Source: environmentSource},
	}
}

// TraceSource renders the WGSL source of a trace variant.
//
// Parameters:
//   - v: the variant to render
//
// Returns:
//   - string: the raw kernel source, before annotation processing
//   - error: an error if the template fails to execute
func TraceSource(v TraceVariant) (string, error) {
	var buf bytes.Buffer
	err := traceTemplate.Execute(&buf, struct {
		Samples        uint32
		GroupX, GroupY uint32
	}{v.Samples, v.Workgroup[0], v.Workgroup[1]})
	if err != nil {
		return "", fmt.Errorf("render %s: %w", v.Key, err)
	}
	return buf.String(), nil
}

// NewPipelines builds every kernel of the path tracer as a compute pipeline carrying
// both its WGSL shader and its host implementation. The result is ready for
// Renderer.RegisterPipelines.
//
// Returns:
//   - []pipeline.Pipeline: one pipeline per kernel
//   - error: an error if any kernel source fails to parse
func NewPipelines() ([]pipeline.Pipeline, error) {
	type kernel struct {
		key    string
		source string
		host   pipeline.HostKernel
	}
	list := []kernel{
		{FormatTrianglesKey, formatTrianglesSource, formatTrianglesHost},
		{AccumulateKey, accumulateSource, accumulateHost},
		{BlurKey, blurSource, blurHost},
		{UpsampleKey, upsampleSource, upsampleHost},
		{CompositeKey, compositeSource, compositeHost},
	}
	for _, v := range TraceVariants {
		src, err := TraceSource(v)
		if err != nil {
			return nil, err
		}
		list = append(list, kernel{v.Key, src, traceHost(v.Samples)})
	}

	pipelines := make([]pipeline.Pipeline, 0, len(list))
	for _, k := range list {
		s, err := shader.NewShader(k.key, k.source, shader.NewPreProcessor(Registry()))
		if err != nil {
			return nil, fmt.Errorf("kernel %s: %w", k.key, err)
		}
		pipelines = append(pipelines, pipeline.NewPipeline(k.key,
			pipeline.WithComputeShader(s),
			pipeline.WithHostKernel(k.host),
		))
	}
	return pipelines, nil
}
