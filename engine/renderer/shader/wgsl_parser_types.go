package shader

import (
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// BindingKind classifies a kernel resource declaration by how the kernel accesses it.
type BindingKind int

const (
	// BindingKindUniform is a var<uniform> buffer.
	BindingKindUniform BindingKind = iota

	// BindingKindStorageRead is a var<storage, read> buffer.
	BindingKindStorageRead

	// BindingKindStorageReadWrite is a var<storage, read_write> buffer.
	BindingKindStorageReadWrite

	// BindingKindTexture is a sampled texture read through textureLoad.
	BindingKindTexture

	// BindingKindStorageTexture is a write-only storage texture.
	BindingKindStorageTexture
)

// String returns the WGSL-facing name of the binding kind.
func (k BindingKind) String() string {
	switch k {
	case BindingKindUniform:
		return "uniform"
	case BindingKindStorageRead:
		return "storage, read"
	case BindingKindStorageReadWrite:
		return "storage, read_write"
	case BindingKindTexture:
		return "texture"
	case BindingKindStorageTexture:
		return "storage texture"
	default:
		return "unknown"
	}
}

// Binding describes a single @group(0) resource declared by a kernel.
type Binding struct {
	// Index is the @binding(N) index.
	Index int

	// Name is the WGSL variable name.
	Name string

	// Kind is the access classification of the resource.
	Kind BindingKind

	// TypeName is the declared WGSL type, e.g. "TraceUniform" or "texture_2d<f32>".
	TypeName string

	// MinSize is the minimum binding size in bytes for buffer bindings, 0 when unknown.
	MinSize uint64
}

// ArrayView reports whether a texture binding is declared with a 2D array view.
func (b Binding) ArrayView() bool {
	base, _ := splitTypeParams(b.TypeName)
	return strings.HasSuffix(base, "_array")
}

// sampledTextureInfo holds the view dimension and multisampled flag for a sampled texture type
type sampledTextureInfo struct {
	viewDimension wgpu.TextureViewDimension
	multisampled  bool
}

// wgslTypeLayout holds the byte size and alignment for a WGSL type under WGSL host-shareable layout rules.
// Used to compute MinBindingSize for buffer bindings.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// parsedField represents a single field extracted from a WGSL struct during parsing
type parsedField struct {
	name      string
	typeName  string
	isBuiltin bool
}

// parsedStruct represents a WGSL struct block extracted during parsing
type parsedStruct struct {
	name   string
	fields []parsedField
}
