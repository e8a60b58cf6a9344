package loader

import (
	"io"

	"github.com/Carmen-Shannon/oxy-trace/engine/model"
)

// importedMesh is the CPU-side result of a backend import.
type importedMesh struct {
	Name     string
	Vertices []model.GPUVertex
	Indices  []uint32
}

// loaderBackend defines the generic interface for loading meshes from files or streams.
// Concrete implementations (e.g., objLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Load performs a mesh import from the given file path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *importedMesh: the imported mesh data
	//   - error: error if loading fails
	Load(path string) (*importedMesh, error)

	// LoadReader imports a mesh from a reader stream.
	//
	// Parameters:
	//   - name: the mesh name
	//   - r: the reader providing mesh data
	//
	// Returns:
	//   - *importedMesh: the imported mesh data
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader) (*importedMesh, error)
}
