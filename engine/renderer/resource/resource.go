// Package resource defines the GPU resource handles shared by the renderer backends.
// Every handle is created by a Renderer, counts toward its live resource total, and
// is released exactly once no matter how many times Release is called.
package resource

import (
	"errors"
	"sync"
)

// ErrResourceReleased is returned when an operation targets a released resource.
var ErrResourceReleased = errors.New("resource: use of released resource")

// BufferUsage is a bit set describing how a buffer is bound and copied.
type BufferUsage uint32

const (
	// BufferUsageUniform allows the buffer to be bound as var<uniform>.
	BufferUsageUniform BufferUsage = 1 << iota

	// BufferUsageStorage allows the buffer to be bound as var<storage>.
	BufferUsageStorage

	// BufferUsageCopySrc allows the buffer to be the source of a copy.
	BufferUsageCopySrc

	// BufferUsageCopyDst allows the buffer to be written from the host.
	BufferUsageCopyDst
)

// Buffer is a linear GPU allocation.
type Buffer interface {
	// Label returns the debug label given at creation.
	Label() string

	// Size returns the requested size in bytes.
	Size() uint64

	// Usage returns the usage flags given at creation.
	Usage() BufferUsage

	// Released reports whether Release has been called.
	Released() bool

	// Release frees the allocation. Calling Release more than once has no effect.
	Release()
}

// TextureDescriptor describes a 2D rgba32float texture.
type TextureDescriptor struct {
	// Label is a debug label.
	Label string

	// Width and Height are the texel dimensions; both must be non-zero.
	Width, Height uint32

	// Layers is the number of array layers; 0 is treated as 1.
	Layers uint32

	// Array requests a 2D array view even when Layers is 1.
	Array bool
}

// Texture is a 2D rgba32float GPU image, optionally layered.
type Texture interface {
	// Label returns the debug label given at creation.
	Label() string

	// Width returns the texel width.
	Width() uint32

	// Height returns the texel height.
	Height() uint32

	// Layers returns the number of array layers.
	Layers() uint32

	// IsArray reports whether the texture binds through a 2D array view.
	IsArray() bool

	// Released reports whether Release has been called.
	Released() bool

	// Release frees the allocation. Calling Release more than once has no effect.
	Release()
}

// releaser tracks the one-shot release of a resource and notifies its owner.
type releaser struct {
	once      sync.Once
	mu        sync.RWMutex
	released  bool
	onRelease func()
}

// release marks the resource released, runs free and then the owner callback, once.
func (r *releaser) release(free func()) {
	r.once.Do(func() {
		r.mu.Lock()
		r.released = true
		r.mu.Unlock()
		if free != nil {
			free()
		}
		if r.onRelease != nil {
			r.onRelease()
		}
	})
}

func (r *releaser) isReleased() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.released
}

// arrayView reports whether desc binds through a 2D array view.
func arrayView(desc TextureDescriptor) bool {
	return desc.Array || desc.Layers > 1
}

// normalizeLayers maps a zero layer count to 1.
func normalizeLayers(layers uint32) uint32 {
	if layers == 0 {
		return 1
	}
	return layers
}
