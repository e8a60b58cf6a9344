package pipeline

import (
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// Invocation runs a single kernel invocation for one global invocation id.
// Invocations of one dispatch run concurrently and must only write disjoint outputs.
type Invocation func(id [3]uint32)

// HostKernel is the host implementation of a compute kernel. It resolves the provider's
// bindings once per dispatch and returns the per-invocation body. Invocations whose id
// falls outside the kernel's domain must return without effect, as in WGSL.
type HostKernel func(provider bind_group_provider.BindGroupProvider) (Invocation, error)

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, used for caching and lookups
	pipelineKey string

	// computeShader is the parsed WGSL kernel
	computeShader shader.Shader

	// hostKernel is the host implementation used by the software backend
	hostKernel HostKernel

	// computePipeline is the wgpu pipeline, nil until registered with the wgpu backend
	computePipeline *wgpu.ComputePipeline

	// bindGroupLayout is the wgpu layout for @group(0), nil until registered with the wgpu backend
	bindGroupLayout *wgpu.BindGroupLayout
}

// Pipeline defines the interface for a compute pipeline: one WGSL kernel plus its
// host implementation, and the backend objects created when the pipeline is registered.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader returns the compute shader.
	//
	// Returns:
	//   - shader.Shader: the compute shader, or nil if not set
	Shader() shader.Shader

	// HostKernel returns the host implementation of the kernel, or nil if the kernel is GPU-only.
	//
	// Returns:
	//   - HostKernel: the host kernel or nil
	HostKernel() HostKernel

	// Pipeline returns the underlying *wgpu.ComputePipeline, or nil when not registered with the wgpu backend.
	// Note: The caller is responsible for type asserting the returned value.
	//
	// Returns:
	//   - any: the underlying pipeline object.
	Pipeline() any

	// BindGroupLayout returns the wgpu layout created for @group(0), or nil.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout or nil
	BindGroupLayout() *wgpu.BindGroupLayout

	// SetComputePipeline sets the compute pipeline and its @group(0) layout.
	//
	// Parameters:
	//   - p: the WebGPU compute pipeline to set
	//   - layout: the bind group layout the pipeline was created with
	SetComputePipeline(p *wgpu.ComputePipeline, layout *wgpu.BindGroupLayout)

	// Release frees the backend pipeline objects, if any.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a compute pipeline description. Backend objects are created later
// by Renderer.RegisterPipelines.
//
// Parameters:
//   - pipelineKey: a unique identifier for the pipeline
//   - opts: functional options configuring the pipeline
//
// Returns:
//   - Pipeline: the configured pipeline
func NewPipeline(pipelineKey string, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey: pipelineKey,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader() shader.Shader {
	return p.computeShader
}

func (p *pipeline) HostKernel() HostKernel {
	return p.hostKernel
}

func (p *pipeline) Pipeline() any {
	if p.computePipeline == nil {
		return nil
	}
	return p.computePipeline
}

func (p *pipeline) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *pipeline) SetComputePipeline(cp *wgpu.ComputePipeline, layout *wgpu.BindGroupLayout) {
	p.computePipeline = cp
	p.bindGroupLayout = layout
}

func (p *pipeline) Release() {
	if p.computePipeline != nil {
		p.computePipeline.Release()
		p.computePipeline = nil
	}
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
}
