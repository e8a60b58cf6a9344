package scene

import (
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/game_object"
)

// Scene owns a camera, a registry of GameObjects and the active Environment.
// Instances are enumerated in ascending ID order so the triangle layout is
// stable from frame to frame. Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// SetCamera replaces the scene's camera.
	//
	// Parameters:
	//   - cam: the new camera (nil is ignored)
	SetCamera(cam camera.Camera)

	// Add registers a GameObject. Objects with a zero ID are assigned the next free ID.
	//
	// Parameters:
	//   - obj: the object to add
	//
	// Returns:
	//   - uint64: the object's ID
	Add(obj game_object.GameObject) uint64

	// Get returns the object with the given ID, or nil.
	Get(id uint64) game_object.GameObject

	// Remove drops the object with the given ID. Unknown IDs are ignored.
	Remove(id uint64)

	// Clear drops every object.
	Clear()

	// Count returns the number of registered objects.
	Count() int

	// Instances returns every registered object in ascending ID order,
	// including disabled ones; consumers filter with GameObject.Renderable.
	//
	// Returns:
	//   - []game_object.GameObject: a snapshot slice the caller may keep
	Instances() []game_object.GameObject

	// Environment returns the active environment, or nil.
	Environment() Environment

	// SetEnvironment replaces the active environment. The previous one is not released.
	//
	// Parameters:
	//   - env: the new environment
	SetEnvironment(env Environment)

	// Update advances object animation by dt seconds and refreshes the camera.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Update(dt float32)
}

type scene struct {
	mu sync.RWMutex

	name   string
	active bool
	cam    camera.Camera
	env    Environment

	registry map[uint64]game_object.GameObject
	nextID   uint64
}

var _ Scene = &scene{}

// NewScene creates a new Scene viewed through cam.
// NewScene panics if cam is nil.
//
// Parameters:
//   - name: the name of the scene
//   - cam: the camera to attach (must not be nil)
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, cam camera.Camera, options ...SceneBuilderOption) Scene {
	if cam == nil {
		panic("scene: NewScene requires a non-nil Camera")
	}
	s := &scene{
		name:     name,
		active:   true,
		cam:      cam,
		registry: make(map[uint64]game_object.GameObject),
		nextID:   1,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam
}

func (s *scene) SetCamera(cam camera.Camera) {
	if cam == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cam = cam
}

func (s *scene) Add(obj game_object.GameObject) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(obj)
}

// add registers obj. Caller holds mu.
func (s *scene) add(obj game_object.GameObject) uint64 {
	if obj.ID() == 0 {
		for s.registry[s.nextID] != nil {
			s.nextID++
		}
		obj.SetID(s.nextID)
		s.nextID++
	}
	s.registry[obj.ID()] = obj
	return obj.ID()
}

func (s *scene) Get(id uint64) game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id]
}

func (s *scene) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.registry, id)
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry = make(map[uint64]game_object.GameObject)
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}

func (s *scene) Instances() []game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]game_object.GameObject, 0, len(s.registry))
	for _, obj := range s.registry {
		out = append(out, obj)
	}
	slices.SortFunc(out, func(a, b game_object.GameObject) int {
		switch {
		case a.ID() < b.ID():
			return -1
		case a.ID() > b.ID():
			return 1
		default:
			return 0
		}
	})
	return out
}

func (s *scene) Environment() Environment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.env
}

func (s *scene) SetEnvironment(env Environment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.env = env
}

func (s *scene) Update(dt float32) {
	for _, obj := range s.Instances() {
		obj.Advance(dt)
	}
	s.Camera().Update()
}
