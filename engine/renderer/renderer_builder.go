package renderer

import "runtime"

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe). It has no effect on BackendTypeSoftware.
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithWorkerCount sets the number of host workers used by BackendTypeSoftware.
// Values below 1 select one worker per CPU, leaving one CPU for the caller.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - RendererBuilderOption: a function that applies the option to a renderer
func WithWorkerCount(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.workerCount = n
	}
}

// defaultWorkerCount leaves one CPU for the submitting goroutine.
func defaultWorkerCount() int {
	return max(runtime.NumCPU()-1, 1)
}
