package game_object

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-trace/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

type gameObject struct {
	id      uint64
	enabled atomic.Bool
	mdl     model.Model

	mu sync.RWMutex

	position mgl32.Vec3
	scale    mgl32.Vec3

	// rotation and rotationSpeed are Euler angles in degrees, applied X then Y then Z.
	rotation      mgl32.Vec3
	rotationSpeed mgl32.Vec3
}

// GameObject defines the interface for a renderable scene instance.
// An instance pairs a shared Model with its own transform; many instances may
// reference the same Model.
type GameObject interface {
	// ID returns the object's unique identifier.
	//
	// Returns:
	//   - uint64: the object ID
	ID() uint64

	// Enabled returns whether this object is enabled for rendering.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// Model returns the Model associated with this object, or nil if not set.
	//
	// Returns:
	//   - model.Model: the associated model or nil
	Model() model.Model

	// Renderable reports whether the object should contribute geometry this frame:
	// it is enabled and carries a Model.
	//
	// Returns:
	//   - bool: true if renderable
	Renderable() bool

	// Position returns the world-space translation.
	Position() mgl32.Vec3

	// Rotation returns the Euler rotation in degrees.
	Rotation() mgl32.Vec3

	// RotationSpeed returns the Euler rotation rate in degrees per second.
	RotationSpeed() mgl32.Vec3

	// Scale returns the per-axis scale.
	Scale() mgl32.Vec3

	// Transform returns the local-to-world matrix: translate * rotate * scale.
	//
	// Returns:
	//   - mgl32.Mat4: the local-to-world matrix
	Transform() mgl32.Mat4

	// SetID sets the object's unique identifier.
	//
	// Parameters:
	//   - id: the ID to assign
	SetID(id uint64)

	// SetEnabled sets whether the object is enabled for rendering.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// SetModel assigns a Model to this object.
	//
	// Parameters:
	//   - m: the model
	SetModel(m model.Model)

	// SetPosition sets the world-space translation.
	SetPosition(p mgl32.Vec3)

	// SetRotation sets the Euler rotation in degrees.
	SetRotation(r mgl32.Vec3)

	// SetRotationSpeed sets the Euler rotation rate in degrees per second.
	SetRotationSpeed(r mgl32.Vec3)

	// SetScale sets the per-axis scale.
	SetScale(s mgl32.Vec3)

	// Advance applies the rotation speed over dt seconds.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Advance(dt float32)
}

var _ GameObject = &gameObject{}

// NewGameObject creates a new GameObject configured with the given options.
// Objects start enabled with unit scale at the origin.
//
// Parameters:
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the newly created object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	g := &gameObject{
		scale: mgl32.Vec3{1, 1, 1},
	}
	g.enabled.Store(true)
	for _, opt := range options {
		opt(g)
	}
	return g
}

func (g *gameObject) ID() uint64 {
	return g.id
}

func (g *gameObject) Enabled() bool {
	return g.enabled.Load()
}

func (g *gameObject) Model() model.Model {
	return g.mdl
}

func (g *gameObject) Renderable() bool {
	return g.Enabled() && g.mdl != nil
}

func (g *gameObject) Position() mgl32.Vec3 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.position
}

func (g *gameObject) Rotation() mgl32.Vec3 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rotation
}

func (g *gameObject) RotationSpeed() mgl32.Vec3 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rotationSpeed
}

func (g *gameObject) Scale() mgl32.Vec3 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.scale
}

func (g *gameObject) Transform() mgl32.Mat4 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	r := mgl32.AnglesToQuat(
		mgl32.DegToRad(g.rotation.X()),
		mgl32.DegToRad(g.rotation.Y()),
		mgl32.DegToRad(g.rotation.Z()),
		mgl32.XYZ,
	).Mat4()
	t := mgl32.Translate3D(g.position.X(), g.position.Y(), g.position.Z())
	s := mgl32.Scale3D(g.scale.X(), g.scale.Y(), g.scale.Z())
	return t.Mul4(r).Mul4(s)
}

func (g *gameObject) SetID(id uint64) {
	g.id = id
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

func (g *gameObject) SetModel(m model.Model) {
	g.mdl = m
}

func (g *gameObject) SetPosition(p mgl32.Vec3) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.position = p
}

func (g *gameObject) SetRotation(r mgl32.Vec3) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotation = r
}

func (g *gameObject) SetRotationSpeed(r mgl32.Vec3) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotationSpeed = r
}

func (g *gameObject) SetScale(s mgl32.Vec3) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scale = s
}

func (g *gameObject) Advance(dt float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rotationSpeed == (mgl32.Vec3{}) {
		return
	}
	g.rotation = wrapDegrees(g.rotation.Add(g.rotationSpeed.Mul(dt)))
}

func wrapDegrees(v mgl32.Vec3) mgl32.Vec3 {
	for i := range v {
		for v[i] >= 360 {
			v[i] -= 360
		}
		for v[i] < 0 {
			v[i] += 360
		}
	}
	return v
}
