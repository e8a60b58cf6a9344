package model

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestGPUTypeSizes(t *testing.T) {
	if got := (&GPUVertex{}).Size(); got != GPUVertexSize {
		t.Errorf("GPUVertex.Size() = %d, want %d", got, GPUVertexSize)
	}
	if got := (&GPUTriangle{}).Size(); got != GPUTriangleSize {
		t.Errorf("GPUTriangle.Size() = %d, want %d", got, GPUTriangleSize)
	}
	if got := (&GPUMeshRange{}).Size(); got != GPUMeshRangeSize {
		t.Errorf("GPUMeshRange.Size() = %d, want %d", got, GPUMeshRangeSize)
	}
}

func TestGPUTriangleLayout(t *testing.T) {
	tri := GPUTriangle{
		Positions: [3][3]float32{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}},
		Normals:   [3][3]float32{{0, 1, 0}, {0, 0, 1}, {1, 0, 0}},
	}
	buf := tri.Marshal()
	if len(buf) != 72 {
		t.Fatalf("len(Marshal()) = %d, want 72", len(buf))
	}
	// Normals start after all three positions.
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[36:40])); got != 0 {
		t.Errorf("normal[0].x = %v, want 0", got)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[32:36])); got != 9 {
		t.Errorf("position[2].z = %v, want 9", got)
	}

	var back GPUTriangle
	if err := back.Unmarshal(buf); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back != tri {
		t.Errorf("Unmarshal() = %+v, want %+v", back, tri)
	}
	if err := back.Unmarshal(buf[:71]); err != ErrShortBuffer {
		t.Errorf("Unmarshal(short) error = %v, want ErrShortBuffer", err)
	}
}

func TestPrimitivesAreValid(t *testing.T) {
	tests := []struct {
		m             Model
		wantTriangles int
	}{
		{NewPlane("plane", 2), 2},
		{NewCube("cube", 1), 12},
		{NewSphere("sphere", 1, 8, 4), 8*4*2 - 2*8},
	}
	for _, tt := range tests {
		if err := tt.m.Validate(); err != nil {
			t.Errorf("%s: Validate() error = %v", tt.m.Name(), err)
		}
		if got := tt.m.TriangleCount(); got != tt.wantTriangles {
			t.Errorf("%s: TriangleCount() = %d, want %d", tt.m.Name(), got, tt.wantTriangles)
		}
		if got := len(tt.m.VertexData()); got != len(tt.m.Vertices())*GPUVertexSize {
			t.Errorf("%s: len(VertexData()) = %d", tt.m.Name(), got)
		}
		if got := len(tt.m.IndexData()); got != tt.m.IndexCount()*4 {
			t.Errorf("%s: len(IndexData()) = %d", tt.m.Name(), got)
		}
	}
}

func TestValidateRejectsBadIndices(t *testing.T) {
	m := NewModel(WithName("bad"), WithVertices(make([]GPUVertex, 3)), WithIndices([]uint32{0, 1}))
	if err := m.Validate(); err == nil {
		t.Error("Validate() accepted partial triangle")
	}
	m.SetMesh(make([]GPUVertex, 3), []uint32{0, 1, 3})
	if err := m.Validate(); err == nil {
		t.Error("Validate() accepted out of range index")
	}
	if got := m.TriangleCount(); got != 1 {
		t.Errorf("TriangleCount() = %d, want 1", got)
	}
}

func TestBoundingRadius(t *testing.T) {
	m := NewCube("cube", 2)
	want := float32(math.Sqrt(3))
	if got := m.BoundingRadius(); math.Abs(float64(got-want)) > 1e-5 {
		t.Errorf("BoundingRadius() = %v, want %v", got, want)
	}
}
