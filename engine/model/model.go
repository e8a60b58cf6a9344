package model

import (
	"encoding/binary"
	"fmt"
	"sync"
)

// model is the implementation of the Model interface.
type model struct {
	mu                    sync.RWMutex
	name                  string
	vertices              []GPUVertex
	indices               []uint32
	vertexData, indexData []byte
	boundingRadius        float32
}

// Model defines the interface for a triangle mesh that can be flattened into the scene
// triangle buffer. Vertex and index data are kept both as typed slices and as the packed
// little-endian bytes uploaded to the accelerator each frame.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Vertices returns the model-space vertices.
	//
	// Returns:
	//   - []GPUVertex: the vertex slice (shared, do not modify)
	Vertices() []GPUVertex

	// Indices returns the triangle list indices.
	//
	// Returns:
	//   - []uint32: the index slice (shared, do not modify)
	Indices() []uint32

	// VertexData returns the packed vertex buffer contents.
	//
	// Returns:
	//   - []byte: GPUVertexSize bytes per vertex
	VertexData() []byte

	// IndexData returns the packed index buffer contents.
	//
	// Returns:
	//   - []byte: 4 bytes per index
	IndexData() []byte

	// IndexCount returns the number of indices in the model's mesh.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int

	// TriangleCount returns IndexCount / 3. A trailing partial triangle is ignored.
	//
	// Returns:
	//   - int: the triangle count
	TriangleCount() int

	// VertexStride returns the byte stride between consecutive vertices.
	//
	// Returns:
	//   - uint32: the stride in bytes
	VertexStride() uint32

	// BoundingRadius returns the maximum vertex distance from the model origin.
	//
	// Returns:
	//   - float32: the bounding radius
	BoundingRadius() float32

	// SetMesh replaces the vertices and indices of the model.
	//
	// Parameters:
	//   - vertices: the new model-space vertices
	//   - indices: the new triangle list indices
	SetMesh(vertices []GPUVertex, indices []uint32)

	// Validate reports whether the index list forms whole triangles over existing vertices.
	//
	// Returns:
	//   - error: a descriptive error for the first problem found, or nil
	Validate() error
}

var _ Model = &model{}

// NewModel creates a new Model instance with the specified options applied.
//
// Parameters:
//   - options: a variadic list of ModelBuilderOption functions to configure the Model
//
// Returns:
//   - Model: a new instance of Model configured with the provided options
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{}
	for _, opt := range options {
		opt(m)
	}
	m.pack()
	return m
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Vertices() []GPUVertex {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vertices
}

func (m *model) Indices() []uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indices
}

func (m *model) VertexData() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vertexData
}

func (m *model) IndexData() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indexData
}

func (m *model) IndexCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.indices)
}

func (m *model) TriangleCount() int {
	return m.IndexCount() / 3
}

func (m *model) VertexStride() uint32 {
	return GPUVertexSize
}

func (m *model) BoundingRadius() float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.boundingRadius
}

func (m *model) SetMesh(vertices []GPUVertex, indices []uint32) {
	m.mu.Lock()
	m.vertices = vertices
	m.indices = indices
	m.mu.Unlock()
	m.pack()
}

func (m *model) Validate() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.indices)%3 != 0 {
		return fmt.Errorf("model %q: index count %d is not a multiple of 3", m.name, len(m.indices))
	}
	for i, idx := range m.indices {
		if int(idx) >= len(m.vertices) {
			return fmt.Errorf("model %q: index %d references vertex %d of %d", m.name, i, idx, len(m.vertices))
		}
	}
	return nil
}

// pack rebuilds the upload bytes and bounding radius from the typed slices.
func (m *model) pack() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.vertexData = make([]byte, 0, len(m.vertices)*GPUVertexSize)
	for i := range m.vertices {
		m.vertexData = append(m.vertexData, m.vertices[i].Marshal()...)
	}
	m.indexData = make([]byte, len(m.indices)*4)
	for i, idx := range m.indices {
		binary.LittleEndian.PutUint32(m.indexData[i*4:], idx)
	}
	m.boundingRadius = ComputeBoundingRadius(m.vertices)
}
