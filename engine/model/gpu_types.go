package model

import (
	_ "embed"
	"encoding/binary"
	"errors"
	"math"
	"unsafe"
)

// ErrShortBuffer is returned when unmarshalling from a buffer smaller than the record size.
var ErrShortBuffer = errors.New("model: buffer too short")

// GPUVertexSize is the byte stride of a GPUVertex in a vertex buffer.
const GPUVertexSize = 32

// GPUTriangleSize is the byte stride of a GPUTriangle in the scene triangle buffer.
const GPUTriangleSize = 72

// GPUMeshRangeSize is the byte stride of a GPUMeshRange in the mesh range buffer.
const GPUMeshRangeSize = 8

// GPUVertex is the GPU-aligned representation of a single mesh vertex.
// Kernels read vertex buffers as flat f32 arrays, so the layout is tightly packed.
// Size: 32 bytes.
type GPUVertex struct {
	Position [3]float32 // offset  0: vertex position in model space (12 bytes)
	Normal   [3]float32 // offset 12: vertex normal in model space (12 bytes)
	TexCoord [2]float32 // offset 24: UV texture coordinate (8 bytes)
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, GPUVertexSize)
	putFloats(buf[0:12], g.Position[:])
	putFloats(buf[12:24], g.Normal[:])
	putFloats(buf[24:32], g.TexCoord[:])
	return buf
}

// PositionOffset is the byte offset of GPUVertex.Position within a vertex.
const PositionOffset = 0

// NormalOffset is the byte offset of GPUVertex.Normal within a vertex.
const NormalOffset = 12

// GPUTriangle is one world-space triangle of the scene triangle buffer: three vertex
// positions followed by three vertex normals, each a packed vec3<f32>.
// Kernels address the buffer as array<f32> with a stride of 18 floats.
// Size: 72 bytes.
type GPUTriangle struct {
	Positions [3][3]float32 // offset  0: world-space corner positions (36 bytes)
	Normals   [3][3]float32 // offset 36: world-space corner normals (36 bytes)
}

// Size returns the size of the GPUTriangle struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUTriangle) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUTriangle struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 72-byte buffer ready for GPU upload.
func (g *GPUTriangle) Marshal() []byte {
	buf := make([]byte, GPUTriangleSize)
	for i := 0; i < 3; i++ {
		putFloats(buf[i*12:(i+1)*12], g.Positions[i][:])
		putFloats(buf[36+i*12:36+(i+1)*12], g.Normals[i][:])
	}
	return buf
}

// Unmarshal decodes a GPUTriangle from the first 72 bytes of buf.
//
// Parameters:
//   - buf: the source bytes
//
// Returns:
//   - error: ErrShortBuffer if buf holds fewer than 72 bytes
func (g *GPUTriangle) Unmarshal(buf []byte) error {
	if len(buf) < GPUTriangleSize {
		return ErrShortBuffer
	}
	for i := 0; i < 3; i++ {
		readFloats(buf[i*12:(i+1)*12], g.Positions[i][:])
		readFloats(buf[36+i*12:36+(i+1)*12], g.Normals[i][:])
	}
	return nil
}

// UnmarshalTriangles decodes every whole triangle record in buf.
// Trailing bytes that do not form a complete record are ignored.
func UnmarshalTriangles(buf []byte) []GPUTriangle {
	out := make([]GPUTriangle, len(buf)/GPUTriangleSize)
	for i := range out {
		_ = out[i].Unmarshal(buf[i*GPUTriangleSize:])
	}
	return out
}

// GPUMeshRangeSource is the canonical WGSL definition of the MeshRange struct.
// Matches GPUMeshRange layout exactly (8 bytes).
//
//go:embed assets/mesh_range.wgsl
var GPUMeshRangeSource string

// GPUMeshRange is the half-open span [StartIndex, EndIndex) of one mesh's triangles
// within the scene triangle buffer. Consecutive ranges partition the buffer.
// Size: 8 bytes.
type GPUMeshRange struct {
	StartIndex uint32 // offset 0: first triangle index (4 bytes)
	EndIndex   uint32 // offset 4: one past the last triangle index (4 bytes)
}

// Size returns the size of the GPUMeshRange struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMeshRange) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMeshRange struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 8-byte buffer ready for GPU upload.
func (g *GPUMeshRange) Marshal() []byte {
	buf := make([]byte, GPUMeshRangeSize)
	binary.LittleEndian.PutUint32(buf[0:4], g.StartIndex)
	binary.LittleEndian.PutUint32(buf[4:8], g.EndIndex)
	return buf
}

// Unmarshal decodes a GPUMeshRange from the first 8 bytes of buf.
func (g *GPUMeshRange) Unmarshal(buf []byte) error {
	if len(buf) < GPUMeshRangeSize {
		return ErrShortBuffer
	}
	g.StartIndex = binary.LittleEndian.Uint32(buf[0:4])
	g.EndIndex = binary.LittleEndian.Uint32(buf[4:8])
	return nil
}

// MarshalMeshRanges packs ranges back to back for upload.
func MarshalMeshRanges(ranges []GPUMeshRange) []byte {
	buf := make([]byte, 0, len(ranges)*GPUMeshRangeSize)
	for i := range ranges {
		buf = append(buf, ranges[i].Marshal()...)
	}
	return buf
}

// UnmarshalMeshRanges decodes every whole mesh range record in buf.
func UnmarshalMeshRanges(buf []byte) []GPUMeshRange {
	out := make([]GPUMeshRange, len(buf)/GPUMeshRangeSize)
	for i := range out {
		_ = out[i].Unmarshal(buf[i*GPUMeshRangeSize:])
	}
	return out
}

// ComputeBoundingRadius calculates the bounding sphere radius from a slice of
// GPUVertex positions. The radius is the maximum distance from the origin
// across all vertices in the slice.
//
// Parameters:
//   - vertices: the vertex data to compute the bounding radius from
//
// Returns:
//   - float32: the maximum distance from the origin
func ComputeBoundingRadius(vertices []GPUVertex) float32 {
	var maxDistSq float32
	for _, v := range vertices {
		p := v.Position
		distSq := p[0]*p[0] + p[1]*p[1] + p[2]*p[2]
		if distSq > maxDistSq {
			maxDistSq = distSq
		}
	}
	return float32(math.Sqrt(float64(maxDistSq)))
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
