package pathtrace

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/resource"
)

type releasable interface {
	Release()
}

// FrameArena scopes every transient allocation of one frame.
// Release frees whatever is still held, newest first, and is safe to call more than once.
type FrameArena struct {
	r     renderer.Renderer
	items []releasable
	held  int
}

// NewFrameArena creates an empty arena allocating from r.
func NewFrameArena(r renderer.Renderer) *FrameArena {
	return &FrameArena{r: r}
}

// Buffer allocates a buffer owned by the arena.
//
// Parameters:
//   - label: debug label
//   - size: size in bytes, zero allowed
//   - usage: usage flags
//
// Returns:
//   - resource.Buffer: the buffer
//   - error: the wrapped allocation error
func (a *FrameArena) Buffer(label string, size uint64, usage resource.BufferUsage) (resource.Buffer, error) {
	buf, err := a.r.CreateBuffer(label, size, usage)
	if err != nil {
		return nil, fmt.Errorf("pathtrace: arena buffer: %w", err)
	}
	a.track(buf)
	return buf, nil
}

// Upload allocates a buffer sized to data and writes data into it.
//
// Parameters:
//   - label: debug label
//   - usage: usage flags; BufferUsageCopyDst is added
//   - data: initial contents
//
// Returns:
//   - resource.Buffer: the filled buffer
//   - error: the wrapped allocation or write error
func (a *FrameArena) Upload(label string, usage resource.BufferUsage, data []byte) (resource.Buffer, error) {
	buf, err := a.Buffer(label, uint64(len(data)), usage|resource.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	if err := a.r.WriteBuffer(buf, 0, data); err != nil {
		return nil, fmt.Errorf("pathtrace: upload %s: %w", label, err)
	}
	return buf, nil
}

// Uniform uploads a marshaled uniform struct.
func (a *FrameArena) Uniform(label string, data []byte) (resource.Buffer, error) {
	return a.Upload(label, resource.BufferUsageUniform, data)
}

// Texture allocates a texture owned by the arena.
//
// Parameters:
//   - desc: the texture descriptor
//
// Returns:
//   - resource.Texture: the texture
//   - error: the wrapped allocation error
func (a *FrameArena) Texture(desc resource.TextureDescriptor) (resource.Texture, error) {
	tex, err := a.r.CreateTexture(desc)
	if err != nil {
		return nil, fmt.Errorf("pathtrace: arena texture: %w", err)
	}
	a.track(tex)
	return tex, nil
}

// Provider creates a bind group provider owned by the arena.
func (a *FrameArena) Provider(label string, options ...bind_group_provider.BindGroupProviderOption) bind_group_provider.BindGroupProvider {
	p := bind_group_provider.NewBindGroupProvider(label, options...)
	a.track(p)
	return p
}

// ReleaseNow frees items before the end of the frame. Items the arena does not own are ignored.
func (a *FrameArena) ReleaseNow(items ...releasable) {
	for _, it := range items {
		for i := len(a.items) - 1; i >= 0; i-- {
			if a.items[i] == it {
				it.Release()
				a.items[i] = nil
				a.held--
				break
			}
		}
	}
}

// Release frees every item still held, newest first.
func (a *FrameArena) Release() {
	for i := len(a.items) - 1; i >= 0; i-- {
		if a.items[i] != nil {
			a.items[i].Release()
		}
	}
	a.items = a.items[:0]
	a.held = 0
}

// Len returns the number of items still held.
func (a *FrameArena) Len() int {
	return a.held
}

func (a *FrameArena) track(it releasable) {
	a.items = append(a.items, it)
	a.held++
}
