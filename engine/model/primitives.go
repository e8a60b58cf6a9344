package model

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// NewPlane creates a square plane of the given edge length on the XZ plane, facing +Y.
//
// Parameters:
//   - name: the model identifier
//   - size: the edge length
//
// Returns:
//   - Model: a two-triangle model
func NewPlane(name string, size float32) Model {
	h := size / 2
	n := [3]float32{0, 1, 0}
	vertices := []GPUVertex{
		{Position: [3]float32{-h, 0, -h}, Normal: n, TexCoord: [2]float32{0, 0}},
		{Position: [3]float32{h, 0, -h}, Normal: n, TexCoord: [2]float32{1, 0}},
		{Position: [3]float32{h, 0, h}, Normal: n, TexCoord: [2]float32{1, 1}},
		{Position: [3]float32{-h, 0, h}, Normal: n, TexCoord: [2]float32{0, 1}},
	}
	return NewModel(WithName(name), WithVertices(vertices), WithIndices([]uint32{0, 2, 1, 0, 3, 2}))
}

// NewCube creates an axis-aligned cube of the given edge length centered on the origin
// with flat per-face normals.
//
// Parameters:
//   - name: the model identifier
//   - size: the edge length
//
// Returns:
//   - Model: a 12-triangle model
func NewCube(name string, size float32) Model {
	h := size / 2
	faces := []struct {
		normal, u, v mgl32.Vec3
	}{
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	}
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

	vertices := make([]GPUVertex, 0, 24)
	indices := make([]uint32, 0, 36)
	for _, f := range faces {
		base := uint32(len(vertices))
		for _, c := range corners {
			p := f.normal.Add(f.u.Mul(c[0])).Add(f.v.Mul(c[1])).Mul(h)
			vertices = append(vertices, GPUVertex{
				Position: p,
				Normal:   f.normal,
				TexCoord: [2]float32{(c[0] + 1) / 2, (c[1] + 1) / 2},
			})
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return NewModel(WithName(name), WithVertices(vertices), WithIndices(indices))
}

// NewSphere creates a UV sphere centered on the origin with smooth normals.
// segments and rings are clamped to at least 3 and 2.
//
// Parameters:
//   - name: the model identifier
//   - radius: the sphere radius
//   - segments: the number of longitudinal slices
//   - rings: the number of latitudinal stacks
//
// Returns:
//   - Model: the sphere model
func NewSphere(name string, radius float32, segments, rings int) Model {
	segments = max(segments, 3)
	rings = max(rings, 2)

	vertices := make([]GPUVertex, 0, (segments+1)*(rings+1))
	for r := 0; r <= rings; r++ {
		phi := math.Pi * float64(r) / float64(rings)
		for s := 0; s <= segments; s++ {
			theta := 2 * math.Pi * float64(s) / float64(segments)
			n := mgl32.Vec3{
				float32(math.Sin(phi) * math.Cos(theta)),
				float32(math.Cos(phi)),
				float32(math.Sin(phi) * math.Sin(theta)),
			}
			vertices = append(vertices, GPUVertex{
				Position: n.Mul(radius),
				Normal:   n,
				TexCoord: [2]float32{float32(s) / float32(segments), float32(r) / float32(rings)},
			})
		}
	}

	indices := make([]uint32, 0, segments*rings*6)
	row := uint32(segments + 1)
	for r := 0; r < rings; r++ {
		for s := 0; s < segments; s++ {
			a := uint32(r)*row + uint32(s)
			b := a + row
			if r != 0 {
				indices = append(indices, a, a+1, b)
			}
			if r != rings-1 {
				indices = append(indices, a+1, b+1, b)
			}
		}
	}
	return NewModel(WithName(name), WithVertices(vertices), WithIndices(indices))
}
