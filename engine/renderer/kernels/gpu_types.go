package kernels

import (
	_ "embed"
	"encoding/binary"
	"errors"
	"math"
	"unsafe"
)

// ErrShortBuffer is returned when a uniform is decoded from fewer bytes than its size.
var ErrShortBuffer = errors.New("kernels: buffer too short")

// GPUFormatParamsSource is the canonical WGSL definition of the FormatParams struct.
// Matches GPUFormatParams layout exactly (160 bytes).
//
//go:embed assets/format_params.wgsl
var GPUFormatParamsSource string

// GPUFormatParams is the per-mesh uniform of the format_triangles kernel.
// Size: 160 bytes (two mat4x4<f32> followed by eight u32, std140 aligned).
type GPUFormatParams struct {
	LocalToWorld   [16]float32 // offset   0: column-major model-to-world matrix (64 bytes)
	NormalMatrix   [16]float32 // offset  64: column-major inverse-transpose of LocalToWorld (64 bytes)
	TriangleOffset uint32      // offset 128: first output triangle index (4 bytes)
	TriangleCount  uint32      // offset 132: triangles to format (4 bytes)
	VertexStride   uint32      // offset 136: vertex stride in bytes (4 bytes)
	PositionOffset uint32      // offset 140: position byte offset within a vertex (4 bytes)
	NormalOffset   uint32      // offset 144: normal byte offset within a vertex (4 bytes)
	_              [3]uint32   // offset 148: padding (12 bytes)
}

// Size returns the size of the GPUFormatParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUFormatParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUFormatParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 160-byte buffer ready for GPU upload.
func (g *GPUFormatParams) Marshal() []byte {
	buf := make([]byte, 160)
	putFloats(buf[0:64], g.LocalToWorld[:])
	putFloats(buf[64:128], g.NormalMatrix[:])
	binary.LittleEndian.PutUint32(buf[128:132], g.TriangleOffset)
	binary.LittleEndian.PutUint32(buf[132:136], g.TriangleCount)
	binary.LittleEndian.PutUint32(buf[136:140], g.VertexStride)
	binary.LittleEndian.PutUint32(buf[140:144], g.PositionOffset)
	binary.LittleEndian.PutUint32(buf[144:148], g.NormalOffset)
	return buf
}

// Unmarshal decodes the struct from buf.
//
// Parameters:
//   - buf: at least 160 bytes
//
// Returns:
//   - error: ErrShortBuffer if buf is too small
func (g *GPUFormatParams) Unmarshal(buf []byte) error {
	if len(buf) < 160 {
		return ErrShortBuffer
	}
	readFloats(buf[0:64], g.LocalToWorld[:])
	readFloats(buf[64:128], g.NormalMatrix[:])
	g.TriangleOffset = binary.LittleEndian.Uint32(buf[128:132])
	g.TriangleCount = binary.LittleEndian.Uint32(buf[132:136])
	g.VertexStride = binary.LittleEndian.Uint32(buf[136:140])
	g.PositionOffset = binary.LittleEndian.Uint32(buf[140:144])
	g.NormalOffset = binary.LittleEndian.Uint32(buf[144:148])
	return nil
}

// GPUTraceParamsSource is the canonical WGSL definition of the TraceParams struct.
// Matches GPUTraceParams layout exactly (96 bytes).
//
//go:embed assets/trace_params.wgsl
var GPUTraceParamsSource string

// Environment kinds understood by the trace kernels.
const (
	EnvironmentKindNone     uint32 = 0
	EnvironmentKindCubemap  uint32 = 1
	EnvironmentKindEquirect uint32 = 2
)

// GPUTraceParams is the per-frame parameter snapshot bound to a trace kernel.
// Size: 96 bytes.
type GPUTraceParams struct {
	CameraPosition  [3]float32 // offset  0: camera world position (12 bytes)
	VerticalFov     float32    // offset 12: vertical field of view in degrees (4 bytes)
	CameraForward   [3]float32 // offset 16: unit view direction (12 bytes)
	Aspect          float32    // offset 28: width / height (4 bytes)
	Albedo          [4]float32 // offset 32: material color (16 bytes)
	Width           uint32     // offset 48: trace resolution width (4 bytes)
	Height          uint32     // offset 52: trace resolution height (4 bytes)
	DownscaleFactor uint32     // offset 56: full / trace resolution ratio (4 bytes)
	FrameIndex      uint32     // offset 60: frame counter modulo 256 (4 bytes)
	MaxBounces      uint32     // offset 64: bounce limit (4 bytes)
	SamplesPerPixel uint32     // offset 68: samples, read by the general kernel only (4 bytes)
	TriangleCount   uint32     // offset 72: triangles in the scene buffer (4 bytes)
	MeshCount       uint32     // offset 76: entries in the mesh range buffer (4 bytes)
	MaterialFuzz    float32    // offset 80: metal reflection fuzz in [0, 1] (4 bytes)
	IsMetal         uint32     // offset 84: 1 for metal, 0 for Lambertian (4 bytes)
	EnvironmentKind uint32     // offset 88: one of the EnvironmentKind constants (4 bytes)
	_               uint32     // offset 92: padding (4 bytes)
}

// Size returns the size of the GPUTraceParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUTraceParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUTraceParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 96-byte buffer ready for GPU upload.
func (g *GPUTraceParams) Marshal() []byte {
	buf := make([]byte, 96)
	putFloats(buf[0:12], g.CameraPosition[:])
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.VerticalFov))
	putFloats(buf[16:28], g.CameraForward[:])
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(g.Aspect))
	putFloats(buf[32:48], g.Albedo[:])
	putUints(buf[48:80], g.Width, g.Height, g.DownscaleFactor, g.FrameIndex,
		g.MaxBounces, g.SamplesPerPixel, g.TriangleCount, g.MeshCount)
	binary.LittleEndian.PutUint32(buf[80:84], math.Float32bits(g.MaterialFuzz))
	binary.LittleEndian.PutUint32(buf[84:88], g.IsMetal)
	binary.LittleEndian.PutUint32(buf[88:92], g.EnvironmentKind)
	return buf
}

// Unmarshal decodes the struct from buf.
func (g *GPUTraceParams) Unmarshal(buf []byte) error {
	if len(buf) < 96 {
		return ErrShortBuffer
	}
	readFloats(buf[0:12], g.CameraPosition[:])
	g.VerticalFov = math.Float32frombits(binary.LittleEndian.Uint32(buf[12:16]))
	readFloats(buf[16:28], g.CameraForward[:])
	g.Aspect = math.Float32frombits(binary.LittleEndian.Uint32(buf[28:32]))
	readFloats(buf[32:48], g.Albedo[:])
	readUints(buf[48:80], &g.Width, &g.Height, &g.DownscaleFactor, &g.FrameIndex,
		&g.MaxBounces, &g.SamplesPerPixel, &g.TriangleCount, &g.MeshCount)
	g.MaterialFuzz = math.Float32frombits(binary.LittleEndian.Uint32(buf[80:84]))
	g.IsMetal = binary.LittleEndian.Uint32(buf[84:88])
	g.EnvironmentKind = binary.LittleEndian.Uint32(buf[88:92])
	return nil
}

// GPUSampleTableSource is the canonical WGSL definition of the SampleTable struct.
//
//go:embed assets/sample_table.wgsl
var GPUSampleTableSource string

// GPUSampleTable holds the 16 sub-pixel jitter offsets, one per vec4 (xy used).
// Size: 256 bytes.
type GPUSampleTable struct {
	Offsets [16][4]float32 // offset 0: jitter offsets in pixels (256 bytes)
}

// Size returns the size of the GPUSampleTable struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUSampleTable) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUSampleTable struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 256-byte buffer ready for GPU upload.
func (g *GPUSampleTable) Marshal() []byte {
	buf := make([]byte, 256)
	for i := range g.Offsets {
		putFloats(buf[i*16:(i+1)*16], g.Offsets[i][:])
	}
	return buf
}

// Unmarshal decodes the struct from buf.
func (g *GPUSampleTable) Unmarshal(buf []byte) error {
	if len(buf) < 256 {
		return ErrShortBuffer
	}
	for i := range g.Offsets {
		readFloats(buf[i*16:(i+1)*16], g.Offsets[i][:])
	}
	return nil
}

// GPUAccumulateParamsSource is the canonical WGSL definition of the AccumulateParams struct.
//
//go:embed assets/accumulate_params.wgsl
var GPUAccumulateParamsSource string

// GPUAccumulateParams is the uniform of the accumulate kernel.
// Size: 32 bytes.
type GPUAccumulateParams struct {
	Width           uint32    // offset  0: trace resolution width (4 bytes)
	Height          uint32    // offset  4: trace resolution height (4 bytes)
	DownscaleFactor uint32    // offset  8: full / trace resolution ratio (4 bytes)
	HistoryLimit    uint32    // offset 12: maximum accumulated sample count (4 bytes)
	Reset           uint32    // offset 16: 1 discards history for this frame (4 bytes)
	_               [3]uint32 // offset 20: padding (12 bytes)
}

// Size returns the size of the GPUAccumulateParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUAccumulateParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUAccumulateParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUAccumulateParams) Marshal() []byte {
	buf := make([]byte, 32)
	putUints(buf[0:20], g.Width, g.Height, g.DownscaleFactor, g.HistoryLimit, g.Reset)
	return buf
}

// Unmarshal decodes the struct from buf.
func (g *GPUAccumulateParams) Unmarshal(buf []byte) error {
	if len(buf) < 32 {
		return ErrShortBuffer
	}
	readUints(buf[0:20], &g.Width, &g.Height, &g.DownscaleFactor, &g.HistoryLimit, &g.Reset)
	return nil
}

// GPUBlurParamsSource is the canonical WGSL definition of the BlurParams struct.
//
//go:embed assets/blur_params.wgsl
var GPUBlurParamsSource string

// Blur pass directions.
const (
	BlurHorizontal uint32 = 0
	BlurVertical   uint32 = 1
)

// GPUBlurParams is the uniform of one separable blur pass.
// Size: 16 bytes.
type GPUBlurParams struct {
	Width     uint32 // offset  0: texture width (4 bytes)
	Height    uint32 // offset  4: texture height (4 bytes)
	Radius    uint32 // offset  8: taps per side (4 bytes)
	Direction uint32 // offset 12: BlurHorizontal or BlurVertical (4 bytes)
}

// Size returns the size of the GPUBlurParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUBlurParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUBlurParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload.
func (g *GPUBlurParams) Marshal() []byte {
	buf := make([]byte, 16)
	putUints(buf, g.Width, g.Height, g.Radius, g.Direction)
	return buf
}

// Unmarshal decodes the struct from buf.
func (g *GPUBlurParams) Unmarshal(buf []byte) error {
	if len(buf) < 16 {
		return ErrShortBuffer
	}
	readUints(buf, &g.Width, &g.Height, &g.Radius, &g.Direction)
	return nil
}

// GPUUpsampleParamsSource is the canonical WGSL definition of the UpsampleParams struct.
//
//go:embed assets/upsample_params.wgsl
var GPUUpsampleParamsSource string

// Upsample reconstruction filters.
const (
	UpsampleNearest  uint32 = 0
	UpsampleBilinear uint32 = 1
	UpsampleBicubic  uint32 = 2
	UpsampleLanczos  uint32 = 3
)

// GPUUpsampleParams is the uniform of the upsample kernel.
// Size: 32 bytes.
type GPUUpsampleParams struct {
	SrcWidth  uint32    // offset  0: low-res width (4 bytes)
	SrcHeight uint32    // offset  4: low-res height (4 bytes)
	DstWidth  uint32    // offset  8: full-res width (4 bytes)
	DstHeight uint32    // offset 12: full-res height (4 bytes)
	Mode      uint32    // offset 16: one of the Upsample constants (4 bytes)
	_         [3]uint32 // offset 20: padding (12 bytes)
}

// Size returns the size of the GPUUpsampleParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUUpsampleParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUUpsampleParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUUpsampleParams) Marshal() []byte {
	buf := make([]byte, 32)
	putUints(buf[0:20], g.SrcWidth, g.SrcHeight, g.DstWidth, g.DstHeight, g.Mode)
	return buf
}

// Unmarshal decodes the struct from buf.
func (g *GPUUpsampleParams) Unmarshal(buf []byte) error {
	if len(buf) < 32 {
		return ErrShortBuffer
	}
	readUints(buf[0:20], &g.SrcWidth, &g.SrcHeight, &g.DstWidth, &g.DstHeight, &g.Mode)
	return nil
}

// GPUCompositeParamsSource is the canonical WGSL definition of the CompositeParams struct.
//
//go:embed assets/composite_params.wgsl
var GPUCompositeParamsSource string

// Composite blend modes.
const (
	CompositeAdditive uint32 = 0
	CompositeMax      uint32 = 1
	CompositeReplace  uint32 = 2
)

// GPUCompositeParams is the uniform of the composite kernel.
// Size: 16 bytes.
type GPUCompositeParams struct {
	Width     uint32  // offset  0: full-res width (4 bytes)
	Height    uint32  // offset  4: full-res height (4 bytes)
	Mode      uint32  // offset  8: one of the Composite constants (4 bytes)
	Intensity float32 // offset 12: traced radiance scale (4 bytes)
}

// Size returns the size of the GPUCompositeParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUCompositeParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUCompositeParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload.
func (g *GPUCompositeParams) Marshal() []byte {
	buf := make([]byte, 16)
	putUints(buf[0:12], g.Width, g.Height, g.Mode)
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.Intensity))
	return buf
}

// Unmarshal decodes the struct from buf.
func (g *GPUCompositeParams) Unmarshal(buf []byte) error {
	if len(buf) < 16 {
		return ErrShortBuffer
	}
	readUints(buf[0:12], &g.Width, &g.Height, &g.Mode)
	g.Intensity = math.Float32frombits(binary.LittleEndian.Uint32(buf[12:16]))
	return nil
}

func putFloats(buf []byte, values []float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(v))
	}
}

func readFloats(buf []byte, values []float32) {
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4 : (i+1)*4]))
	}
}

func putUints(buf []byte, values ...uint32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], v)
	}
}

func readUints(buf []byte, values ...*uint32) {
	for i, v := range values {
		*v = binary.LittleEndian.Uint32(buf[i*4 : (i+1)*4])
	}
}
