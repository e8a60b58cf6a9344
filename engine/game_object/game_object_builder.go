package game_object

import (
	"github.com/Carmen-Shannon/oxy-trace/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// GameObjectBuilderOption is a functional option for configuring a GameObject during construction.
type GameObjectBuilderOption func(*gameObject)

// WithID sets the ID of the GameObject.
//
// Parameters:
//   - id: unique identifier for the GameObject
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the ID
func WithID(id uint64) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.id = id
	}
}

// WithEnabled sets whether the GameObject is enabled for rendering.
//
// Parameters:
//   - enabled: true to render the object, false to skip it
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the Enabled state
func WithEnabled(enabled bool) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.enabled.Store(enabled)
	}
}

// WithModel sets the Model for this GameObject.
//
// Parameters:
//   - m: the Model to associate
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the Model
func WithModel(m model.Model) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.mdl = m
	}
}

// WithPosition sets the initial world-space translation.
//
// Parameters:
//   - p: the translation
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the position
func WithPosition(p mgl32.Vec3) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.position = p
	}
}

// WithRotation sets the initial Euler rotation in degrees.
//
// Parameters:
//   - r: rotation around X, Y and Z in degrees
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the rotation
func WithRotation(r mgl32.Vec3) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.rotation = r
	}
}

// WithRotationSpeed sets the Euler rotation rate in degrees per second.
//
// Parameters:
//   - r: rotation rate around X, Y and Z
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the rotation speed
func WithRotationSpeed(r mgl32.Vec3) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.rotationSpeed = r
	}
}

// WithScale sets the initial per-axis scale.
//
// Parameters:
//   - s: scale along X, Y and Z
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the scale
func WithScale(s mgl32.Vec3) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.scale = s
	}
}

// WithUniformScale sets the same scale on every axis.
func WithUniformScale(s float32) GameObjectBuilderOption {
	return WithScale(mgl32.Vec3{s, s, s})
}
