package resource

import "github.com/cogentcore/webgpu/wgpu"

// GPUBuffer is a Buffer backed by a wgpu buffer.
type GPUBuffer interface {
	Buffer

	// Raw returns the underlying wgpu buffer, or nil once released.
	Raw() *wgpu.Buffer
}

// GPUTexture is a Texture backed by a wgpu texture and its default view.
type GPUTexture interface {
	Texture

	// Raw returns the underlying wgpu texture, or nil once released.
	Raw() *wgpu.Texture

	// View returns the texture view used for binding, or nil once released.
	View() *wgpu.TextureView
}

type gpuBuffer struct {
	releaser
	label  string
	usage  BufferUsage
	size   uint64
	buffer *wgpu.Buffer
}

var _ GPUBuffer = &gpuBuffer{}

// NewGPUBuffer wraps an allocated wgpu buffer.
//
// Parameters:
//   - label: a debug label
//   - size: the requested size in bytes, which may be smaller than the allocation
//   - usage: the usage flags
//   - buffer: the allocated wgpu buffer
//   - onRelease: called once when the buffer is released, may be nil
//
// Returns:
//   - GPUBuffer: the wrapped buffer
func NewGPUBuffer(label string, size uint64, usage BufferUsage, buffer *wgpu.Buffer, onRelease func()) GPUBuffer {
	return &gpuBuffer{
		releaser: releaser{onRelease: onRelease},
		label:    label,
		usage:    usage,
		size:     size,
		buffer:   buffer,
	}
}

func (b *gpuBuffer) Label() string      { return b.label }
func (b *gpuBuffer) Size() uint64       { return b.size }
func (b *gpuBuffer) Usage() BufferUsage { return b.usage }
func (b *gpuBuffer) Released() bool     { return b.isReleased() }

func (b *gpuBuffer) Raw() *wgpu.Buffer {
	if b.isReleased() {
		return nil
	}
	return b.buffer
}

func (b *gpuBuffer) Release() {
	b.release(func() {
		b.buffer.Release()
		b.buffer = nil
	})
}

type gpuTexture struct {
	releaser
	label   string
	width   uint32
	height  uint32
	layers  uint32
	array   bool
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

var _ GPUTexture = &gpuTexture{}

// NewGPUTexture wraps an allocated wgpu texture and its binding view.
//
// Parameters:
//   - desc: the descriptor the texture was created from
//   - texture: the allocated wgpu texture
//   - view: the view used for binding
//   - onRelease: called once when the texture is released, may be nil
//
// Returns:
//   - GPUTexture: the wrapped texture
func NewGPUTexture(desc TextureDescriptor, texture *wgpu.Texture, view *wgpu.TextureView, onRelease func()) GPUTexture {
	return &gpuTexture{
		releaser: releaser{onRelease: onRelease},
		label:    desc.Label,
		width:    desc.Width,
		height:   desc.Height,
		layers:   normalizeLayers(desc.Layers),
		array:    arrayView(desc),
		texture:  texture,
		view:     view,
	}
}

func (t *gpuTexture) Label() string  { return t.label }
func (t *gpuTexture) Width() uint32  { return t.width }
func (t *gpuTexture) Height() uint32 { return t.height }
func (t *gpuTexture) Layers() uint32 { return t.layers }
func (t *gpuTexture) IsArray() bool  { return t.array }
func (t *gpuTexture) Released() bool { return t.isReleased() }

func (t *gpuTexture) Raw() *wgpu.Texture {
	if t.isReleased() {
		return nil
	}
	return t.texture
}

func (t *gpuTexture) View() *wgpu.TextureView {
	if t.isReleased() {
		return nil
	}
	return t.view
}

func (t *gpuTexture) Release() {
	t.release(func() {
		t.view.Release()
		t.texture.Release()
		t.view = nil
		t.texture = nil
	})
}
