package renderer

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
)

var (
	// ErrKernelNotRegistered is returned when a dispatch names a pipeline that was never registered.
	ErrKernelNotRegistered = errors.New("renderer: kernel not registered")

	// ErrViewMismatch is returned when a texture's view dimension differs from the kernel declaration.
	ErrViewMismatch = errors.New("renderer: texture view dimension mismatch")

	// ErrMissingBinding is returned when a provider lacks a resource the kernel declares.
	ErrMissingBinding = errors.New("renderer: missing kernel binding")

	// ErrSizeMismatch is returned when a write or copy does not fit its target.
	ErrSizeMismatch = errors.New("renderer: size mismatch")

	// ErrWrongBackend is returned when a resource created by a different backend is used.
	ErrWrongBackend = errors.New("renderer: resource belongs to another backend")
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu            *sync.Mutex
	pipelineCache map[string]pipeline.Pipeline
	backendType   RendererBackendType
	backend       RendererBackend

	live       atomic.Int64
	dispatches atomic.Uint64

	forceFallbackAdapter bool
	workerCount          int
	released             bool
}

// Renderer is the compute device facade used by the path tracer. It owns registered
// kernel pipelines, creates and accounts GPU resources, and records dispatches.
//
// Dispatches issued between BeginComputeFrame and EndComputeFrame are batched into one
// submission; dispatches outside a frame are submitted immediately. Wait blocks until
// every submitted command has completed on the device.
type Renderer interface {
	// BackendType returns the backend this renderer was created with.
	//
	// Returns:
	//   - RendererBackendType: the backend type
	BackendType() RendererBackendType

	// Pipeline retrieves a registered pipeline by key.
	//
	// Parameters:
	//   - key: the pipeline key
	//
	// Returns:
	//   - pipeline.Pipeline: the pipeline, or nil if not registered
	Pipeline(key string) pipeline.Pipeline

	// Pipelines returns a copy of the registered pipeline cache.
	//
	// Returns:
	//   - map[string]pipeline.Pipeline: registered pipelines keyed by pipeline key
	Pipelines() map[string]pipeline.Pipeline

	// RegisterPipelines creates backend objects for each pipeline and caches it by key.
	// Pipelines whose key is already registered are skipped.
	//
	// Parameters:
	//   - pipelines: the pipelines to register
	//
	// Returns:
	//   - error: the first backend error encountered
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// CreateBuffer allocates a zeroed buffer.
	//
	// Parameters:
	//   - label: a debug label
	//   - size: the size in bytes, may be zero
	//   - usage: the usage flags
	//
	// Returns:
	//   - resource.Buffer: the allocated buffer
	//   - error: an error if allocation fails
	CreateBuffer(label string, size uint64, usage resource.BufferUsage) (resource.Buffer, error)

	// CreateTexture allocates a zeroed rgba32float texture.
	//
	// Parameters:
	//   - desc: the texture descriptor; width and height must be non-zero
	//
	// Returns:
	//   - resource.Texture: the allocated texture
	//   - error: an error if the descriptor is invalid or allocation fails
	CreateTexture(desc resource.TextureDescriptor) (resource.Texture, error)

	// WriteBuffer copies host data into a buffer at a byte offset.
	//
	// Parameters:
	//   - buf: the destination buffer
	//   - offset: the destination byte offset
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if the buffer is released or the write does not fit
	WriteBuffer(buf resource.Buffer, offset uint64, data []byte) error

	// WriteTexture uploads one layer of RGBA float texels.
	//
	// Parameters:
	//   - tex: the destination texture
	//   - layer: the array layer to write
	//   - pixels: width*height*4 floats
	//
	// Returns:
	//   - error: an error if the texture is released or the data does not match its size
	WriteTexture(tex resource.Texture, layer uint32, pixels []float32) error

	// CopyTexture copies every layer of src into dst. Both textures must have equal dimensions.
	// Inside a compute frame the copy is ordered after previously recorded dispatches.
	//
	// Parameters:
	//   - src: the source texture
	//   - dst: the destination texture
	//
	// Returns:
	//   - error: an error if the dimensions differ or either texture is released
	CopyTexture(src, dst resource.Texture) error

	// ReadTexture waits for outstanding work and returns the texture's texels.
	//
	// Parameters:
	//   - tex: the texture to read
	//
	// Returns:
	//   - []float32: width*height*layers*4 floats
	//   - error: an error if the texture is released or readback fails
	ReadTexture(tex resource.Texture) ([]float32, error)

	// BeginComputeFrame opens a batch of dispatches.
	//
	// Returns:
	//   - error: an error if the backend cannot create a command encoder
	BeginComputeFrame() error

	// DispatchCompute records a dispatch of a registered kernel. A workgroup count with a
	// zero dimension records nothing.
	//
	// Parameters:
	//   - pipelineKey: the registered pipeline key
	//   - provider: the kernel's @group(0) bindings
	//   - workGroupCount: the number of workgroups in x, y and z
	//
	// Returns:
	//   - error: ErrKernelNotRegistered, ErrMissingBinding, or a backend error
	DispatchCompute(pipelineKey string, provider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error

	// EndComputeFrame submits the dispatches recorded since BeginComputeFrame.
	//
	// Returns:
	//   - error: an error if submission fails
	EndComputeFrame() error

	// Wait blocks until every submitted command has completed.
	Wait()

	// LiveResources returns the number of buffers and textures created and not yet released.
	//
	// Returns:
	//   - int: the live resource count
	LiveResources() int

	// DispatchCount returns the number of dispatches recorded since creation.
	//
	// Returns:
	//   - uint64: the dispatch count
	DispatchCount() uint64

	// Release frees registered pipelines and the backend. Resources still alive must be
	// released by their owners first.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer for the given backend type.
//
// Parameters:
//   - backendType: the compute backend to use
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the configured renderer
//   - error: an error if the backend cannot be initialized (e.g. no GPU adapter)
func NewRenderer(backendType RendererBackendType, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	switch backendType {
	case BackendTypeSoftware:
		r.backend = newSoftwareRendererBackend(r.workerCount)
	case BackendTypeWGPU:
		b, err := newWGPURendererBackend(r.forceFallbackAdapter)
		if err != nil {
			return nil, err
		}
		r.backend = b
	default:
		return nil, fmt.Errorf("renderer: unsupported backend %v", backendType)
	}
	return r, nil
}

func (r *renderer) BackendType() RendererBackendType {
	return r.backendType
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]pipeline.Pipeline, len(r.pipelineCache))
	for k, p := range r.pipelineCache {
		out[k] = p
	}
	return out
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		if p.Shader() == nil {
			return fmt.Errorf("renderer: pipeline %s has no compute shader", key)
		}
		if err := r.backend.RegisterComputePipeline(p); err != nil {
			return fmt.Errorf("renderer: register %s: %w", key, err)
		}
		r.pipelineCache[key] = p
	}
	return nil
}

func (r *renderer) CreateBuffer(label string, size uint64, usage resource.BufferUsage) (resource.Buffer, error) {
	buf, err := r.backend.CreateBuffer(label, size, usage, r.onRelease)
	if err != nil {
		return nil, fmt.Errorf("renderer: create buffer %q: %w", label, err)
	}
	r.live.Add(1)
	return buf, nil
}

func (r *renderer) CreateTexture(desc resource.TextureDescriptor) (resource.Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("renderer: create texture %q: zero extent %dx%d", desc.Label, desc.Width, desc.Height)
	}
	tex, err := r.backend.CreateTexture(desc, r.onRelease)
	if err != nil {
		return nil, fmt.Errorf("renderer: create texture %q: %w", desc.Label, err)
	}
	r.live.Add(1)
	return tex, nil
}

func (r *renderer) WriteBuffer(buf resource.Buffer, offset uint64, data []byte) error {
	if buf == nil || buf.Released() {
		return resource.ErrResourceReleased
	}
	if offset+uint64(len(data)) > buf.Size() {
		return fmt.Errorf("%w: write of %d bytes at %d into %q of %d bytes", ErrSizeMismatch, len(data), offset, buf.Label(), buf.Size())
	}
	if len(data) == 0 {
		return nil
	}
	return r.backend.WriteBuffer(buf, offset, data)
}

func (r *renderer) WriteTexture(tex resource.Texture, layer uint32, pixels []float32) error {
	if tex == nil || tex.Released() {
		return resource.ErrResourceReleased
	}
	if layer >= tex.Layers() {
		return fmt.Errorf("%w: layer %d of %q with %d layers", ErrSizeMismatch, layer, tex.Label(), tex.Layers())
	}
	if want := int(tex.Width()) * int(tex.Height()) * 4; len(pixels) != want {
		return fmt.Errorf("%w: %d floats for %q, want %d", ErrSizeMismatch, len(pixels), tex.Label(), want)
	}
	return r.backend.WriteTexture(tex, layer, pixels)
}

func (r *renderer) CopyTexture(src, dst resource.Texture) error {
	if src == nil || dst == nil || src.Released() || dst.Released() {
		return resource.ErrResourceReleased
	}
	if src.Width() != dst.Width() || src.Height() != dst.Height() || src.Layers() != dst.Layers() {
		return fmt.Errorf("%w: copy %q (%dx%dx%d) to %q (%dx%dx%d)", ErrSizeMismatch,
			src.Label(), src.Width(), src.Height(), src.Layers(),
			dst.Label(), dst.Width(), dst.Height(), dst.Layers())
	}
	return r.backend.CopyTexture(src, dst)
}

func (r *renderer) ReadTexture(tex resource.Texture) ([]float32, error) {
	if tex == nil || tex.Released() {
		return nil, resource.ErrResourceReleased
	}
	return r.backend.ReadTexture(tex)
}

func (r *renderer) BeginComputeFrame() error {
	return r.backend.BeginComputeFrame()
}

func (r *renderer) EndComputeFrame() error {
	return r.backend.EndComputeFrame()
}

func (r *renderer) DispatchCompute(pipelineKey string, provider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error {
	r.mu.Lock()
	p, exists := r.pipelineCache[pipelineKey]
	r.mu.Unlock()
	if !exists {
		return fmt.Errorf("%w: %s", ErrKernelNotRegistered, pipelineKey)
	}
	if workGroupCount[0] == 0 || workGroupCount[1] == 0 || workGroupCount[2] == 0 {
		return nil
	}
	if err := validateBindings(p.Shader(), provider); err != nil {
		return err
	}
	if err := r.backend.DispatchCompute(p, provider, workGroupCount); err != nil {
		return fmt.Errorf("renderer: dispatch %s: %w", pipelineKey, err)
	}
	r.dispatches.Add(1)
	return nil
}

func (r *renderer) Wait() {
	r.backend.Wait()
}

func (r *renderer) LiveResources() int {
	return int(r.live.Load())
}

func (r *renderer) DispatchCount() uint64 {
	return r.dispatches.Load()
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return
	}
	r.released = true
	for key, p := range r.pipelineCache {
		p.Release()
		delete(r.pipelineCache, key)
	}
	r.backend.Release()
}

func (r *renderer) onRelease() {
	r.live.Add(-1)
}

// validateBindings checks that the provider binds a live resource of the right shape for
// every @group(0) declaration of the kernel.
func validateBindings(s shader.Shader, provider bind_group_provider.BindGroupProvider) error {
	if provider == nil {
		return fmt.Errorf("%w: nil provider for %s", ErrMissingBinding, s.Key())
	}
	for _, b := range s.Bindings(0) {
		switch b.Kind {
		case shader.BindingKindTexture, shader.BindingKindStorageTexture:
			tex := provider.Texture(b.Index)
			if tex == nil {
				return fmt.Errorf("%w: %s.%s (binding %d)", ErrMissingBinding, s.Key(), b.Name, b.Index)
			}
			if tex.Released() {
				return fmt.Errorf("%s.%s: %w", s.Key(), b.Name, resource.ErrResourceReleased)
			}
			if tex.IsArray() != b.ArrayView() {
				return fmt.Errorf("%w: %s.%s (binding %d) declares %s, got texture %q with array view %t",
					ErrViewMismatch, s.Key(), b.Name, b.Index, b.TypeName, tex.Label(), tex.IsArray())
			}
		default:
			buf := provider.Buffer(b.Index)
			if buf == nil {
				return fmt.Errorf("%w: %s.%s (binding %d)", ErrMissingBinding, s.Key(), b.Name, b.Index)
			}
			if buf.Released() {
				return fmt.Errorf("%s.%s: %w", s.Key(), b.Name, resource.ErrResourceReleased)
			}
		}
	}
	return nil
}
