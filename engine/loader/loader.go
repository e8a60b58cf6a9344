package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-trace/engine/log"
	"github.com/Carmen-Shannon/oxy-trace/engine/model"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
)

// LoaderBackendType identifies the mesh file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeOBJ selects the Wavefront OBJ loader backend.
	BackendTypeOBJ LoaderBackendType = iota
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	renderer renderer.Renderer
	logger   log.Logger

	modelCache map[string]model.Model

	// faceSize is the cubemap face edge length environments are resampled to.
	// Zero keeps the size of the largest face.
	faceSize uint32

	backend loaderBackend
}

// Loader defines the public-facing interface for loading and caching meshes and
// environment maps.
type Loader interface {
	// Load imports a mesh file and caches the result by path.
	// If the model is already cached, the cached version is returned.
	//
	// Parameters:
	//   - path: the file path to the mesh file
	//
	// Returns:
	//   - model.Model: the loaded and cached model
	//   - error: error if loading fails
	Load(path string) (model.Model, error)

	// LoadReader imports a mesh from a reader stream and caches it by the given name.
	//
	// Parameters:
	//   - name: the cache key and model name
	//   - r: the reader providing OBJ data
	//
	// Returns:
	//   - model.Model: the loaded model
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader) (model.Model, error)

	// Get retrieves a cached model by name. Returns nil if not found.
	Get(name string) model.Model

	// Models returns a copy of the model cache.
	Models() map[string]model.Model

	// LoadEnvironment decodes an environment map. Six paths are read as cubemap faces in
	// +X, -X, +Y, -Y, +Z, -Z order; one path is read as an equirectangular probe.
	// Pixels are converted from sRGB to linear. The environment is baked when the
	// Loader has a Renderer.
	//
	// Parameters:
	//   - paths: one or six image paths (PNG, JPEG, BMP or TIFF)
	//
	// Returns:
	//   - scene.Environment: the decoded environment
	//   - error: error if decoding or baking fails
	LoadEnvironment(paths ...string) (scene.Environment, error)
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeOBJ)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:         sync.RWMutex{},
		logger:     log.New("loader"),
		modelCache: make(map[string]model.Model),
	}

	switch backendType {
	case BackendTypeOBJ:
		l.backend = newOBJLoaderBackend()
	}

	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) (model.Model, error) {
	l.mu.RLock()
	if cached, ok := l.modelCache[path]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}

	imported, err := backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	m, err := importedToModel(imported)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	l.logger.Infof("loaded %s: %d vertices, %d triangles", path, len(imported.Vertices), m.TriangleCount())

	l.mu.Lock()
	l.modelCache[path] = m
	l.mu.Unlock()

	return m, nil
}

func (l *loader) LoadReader(name string, r io.Reader) (model.Model, error) {
	l.mu.RLock()
	if cached, ok := l.modelCache[name]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	imported, err := l.backend.LoadReader(name, r)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}

	m, err := importedToModel(imported)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}

	l.mu.Lock()
	l.modelCache[name] = m
	l.mu.Unlock()

	return m, nil
}

func (l *loader) Get(name string) model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[name]
}

func (l *loader) Models() map[string]model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]model.Model, len(l.modelCache))
	for k, v := range l.modelCache {
		result[k] = v
	}
	return result
}

func (l *loader) LoadEnvironment(paths ...string) (scene.Environment, error) {
	var (
		env scene.Environment
		err error
	)
	switch len(paths) {
	case 1:
		env, err = loadProbe(paths[0])
	case 6:
		env, err = loadCubemap([6]string(paths), l.faceSize)
	default:
		return nil, fmt.Errorf("loader: environment needs 1 or 6 images, got %d", len(paths))
	}
	if err != nil {
		return nil, err
	}
	l.logger.Infof("loaded %s environment %dx%d", env.Kind(), env.Width(), env.Height())

	if l.renderer != nil {
		if err := env.Bake(l.renderer); err != nil {
			return nil, fmt.Errorf("loader: bake environment: %w", err)
		}
	}
	return env, nil
}

// resolveBackend selects an appropriate loader backend based on the file extension.
// Currently only OBJ is supported.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".obj":
		return l.backend, nil
	default:
		return nil, fmt.Errorf("unsupported model format: %s", ext)
	}
}

// importedToModel converts an importedMesh into a validated Model.
func importedToModel(imported *importedMesh) (model.Model, error) {
	m := model.NewModel(
		model.WithName(imported.Name),
		model.WithVertices(imported.Vertices),
		model.WithIndices(imported.Indices),
	)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
