package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraControllerOption is a functional option for configuring a CameraController.
type CameraControllerOption func(*orbitController)

// WithRadius sets the initial orbit radius (distance from target).
//
// Parameters:
//   - radius: distance from the orbit target
//
// Returns:
//   - CameraControllerOption: functional option to set the radius
func WithRadius(radius float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.radius = radius
	}
}

// WithAzimuth sets the initial horizontal angle around the Y axis.
//
// Parameters:
//   - azimuth: horizontal angle in radians (0 = +Z axis)
//
// Returns:
//   - CameraControllerOption: functional option to set the azimuth
func WithAzimuth(azimuth float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.azimuth = azimuth
	}
}

// WithElevation sets the initial vertical angle from the horizontal plane.
//
// Parameters:
//   - elevation: vertical angle in radians (0 = horizontal)
//
// Returns:
//   - CameraControllerOption: functional option to set the elevation
func WithElevation(elevation float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.elevation = elevation
	}
}

// WithTarget sets the orbit center.
//
// Parameters:
//   - target: world-space orbit center
//
// Returns:
//   - CameraControllerOption: functional option to set the target
func WithTarget(target mgl32.Vec3) CameraControllerOption {
	return func(cc *orbitController) {
		cc.target = target
	}
}

// WithRadiusBounds sets the zoom limits.
//
// Parameters:
//   - min: closest allowed radius
//   - max: farthest allowed radius
//
// Returns:
//   - CameraControllerOption: functional option to set the radius bounds
func WithRadiusBounds(min, max float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.minRadius = min
		cc.maxRadius = max
	}
}

// WithOrbitSpeed sets the angle in radians covered by one orbit step.
func WithOrbitSpeed(speed float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.orbitSpeed = speed
	}
}

// WithMouseSensitivity sets the radians per pixel applied by Drag.
func WithMouseSensitivity(sensitivity float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.mouseSensitivity = sensitivity
	}
}

// WithZoomSpeed sets the radius change per scroll unit.
func WithZoomSpeed(speed float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.zoomSpeed = speed
	}
}

// WithPanSpeed sets the pan distance per unit as a fraction of the radius.
func WithPanSpeed(speed float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.panSpeed = speed
	}
}
