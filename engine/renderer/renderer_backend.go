package renderer

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/resource"
)

// RendererBackendType identifies the compute backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU compute backend.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeSoftware selects the host backend, which runs each kernel's host
	// implementation on a worker pool. It needs no GPU and is deterministic per dispatch.
	BackendTypeSoftware
)

// String returns the flag name of the backend type.
func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeSoftware:
		return "software"
	default:
		return fmt.Sprintf("RendererBackendType(%d)", int(t))
	}
}

// ParseBackendType parses a backend flag name.
//
// Parameters:
//   - name: "wgpu" or "software", case-insensitive
//
// Returns:
//   - RendererBackendType: the parsed backend type
//   - error: an error if the name is not recognized
func ParseBackendType(name string) (RendererBackendType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "wgpu", "gpu":
		return BackendTypeWGPU, nil
	case "software", "cpu":
		return BackendTypeSoftware, nil
	default:
		return 0, fmt.Errorf("renderer: unknown backend %q", name)
	}
}

// RendererBackend is the interface implemented by each compute backend. The Renderer
// front-end validates arguments and tracks resource accounting before delegating here.
type RendererBackend interface {
	RegisterComputePipeline(p pipeline.Pipeline) error
	CreateBuffer(label string, size uint64, usage resource.BufferUsage, onRelease func()) (resource.Buffer, error)
	CreateTexture(desc resource.TextureDescriptor, onRelease func()) (resource.Texture, error)
	WriteBuffer(buf resource.Buffer, offset uint64, data []byte) error
	WriteTexture(tex resource.Texture, layer uint32, pixels []float32) error
	CopyTexture(src, dst resource.Texture) error
	ReadTexture(tex resource.Texture) ([]float32, error)
	BeginComputeFrame() error
	DispatchCompute(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error
	EndComputeFrame() error
	Wait()
	Release()
}
