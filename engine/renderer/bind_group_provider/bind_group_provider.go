package bind_group_provider

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/resource"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// buffers holds the buffers bound by this provider, keyed by binding index.
	buffers map[int]resource.Buffer
	// textures holds the textures bound by this provider, keyed by binding index.
	textures map[int]resource.Texture

	// bindGroup is the backend bind group built from the bindings, or nil until the renderer builds one.
	bindGroup any
	// releaseBindGroup frees bindGroup.
	releaseBindGroup func()
}

// BindGroupProvider describes the @group(0) resources of one kernel dispatch.
// It references buffers and textures by binding index but does not own them; the caller
// that created the resources releases them. The renderer lazily builds a backend bind
// group from the bindings on first dispatch and stores it here for reuse.
//
// Usage pattern:
//  1. Caller creates a BindGroupProvider and sets each binding the kernel declares
//  2. Caller passes the provider to Renderer.DispatchCompute
//  3. Caller releases the provider once the dispatch is no longer needed
type BindGroupProvider interface {
	// Release frees the backend bind group, if one was built. Bound resources are untouched.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Buffer returns the buffer bound at the given index, or nil if none.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - resource.Buffer: the buffer or nil
	Buffer(binding int) resource.Buffer

	// Texture returns the texture bound at the given index, or nil if none.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - resource.Texture: the texture or nil
	Texture(binding int) resource.Texture

	// Bindings returns all bound indices in ascending order.
	//
	// Returns:
	//   - []int: the sorted binding indices
	Bindings() []int

	// SetBuffer binds a buffer at the given index, replacing any previous binding.
	// Changing a binding discards the cached backend bind group.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer to bind
	SetBuffer(binding int, buf resource.Buffer)

	// SetTexture binds a texture at the given index, replacing any previous binding.
	// Changing a binding discards the cached backend bind group.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tex: the texture to bind
	SetTexture(binding int, tex resource.Texture)

	// BindGroup returns the backend bind group built by the renderer, or nil.
	//
	// Returns:
	//   - any: the backend bind group (a *wgpu.BindGroup for the wgpu backend)
	BindGroup() any

	// SetBindGroup stores a backend bind group and the function that frees it.
	// Any previously stored bind group is released first.
	//
	// Parameters:
	//   - bg: the backend bind group
	//   - release: frees bg, may be nil
	SetBindGroup(bg any, release func())
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: a debug label
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:    label,
		buffers:  make(map[int]resource.Buffer),
		textures: make(map[int]resource.Texture),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Buffer(binding int) resource.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) Texture(binding int) resource.Texture {
	return p.textures[binding]
}

func (p *bindGroupProvider) Bindings() []int {
	out := make([]int, 0, len(p.buffers)+len(p.textures))
	for b := range p.buffers {
		out = append(out, b)
	}
	for b := range p.textures {
		out = append(out, b)
	}
	sort.Ints(out)
	return out
}

func (p *bindGroupProvider) SetBuffer(binding int, buf resource.Buffer) {
	delete(p.textures, binding)
	p.buffers[binding] = buf
	p.dropBindGroup()
}

func (p *bindGroupProvider) SetTexture(binding int, tex resource.Texture) {
	delete(p.buffers, binding)
	p.textures[binding] = tex
	p.dropBindGroup()
}

func (p *bindGroupProvider) BindGroup() any {
	return p.bindGroup
}

func (p *bindGroupProvider) SetBindGroup(bg any, release func()) {
	p.dropBindGroup()
	p.bindGroup = bg
	p.releaseBindGroup = release
}

func (p *bindGroupProvider) Release() {
	p.dropBindGroup()
}

func (p *bindGroupProvider) dropBindGroup() {
	if p.releaseBindGroup != nil {
		p.releaseBindGroup()
	}
	p.bindGroup = nil
	p.releaseBindGroup = nil
}
