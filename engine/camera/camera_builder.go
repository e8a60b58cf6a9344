package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraBuilderOption is a functional option for configuring a Camera.
type CameraBuilderOption func(*cameraImpl)

// WithType sets the camera's role.
//
// Parameters:
//   - t: the camera type
//
// Returns:
//   - CameraBuilderOption: functional option to set the camera type
func WithType(t CameraType) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.cameraType = t
	}
}

// WithFov sets the vertical field of view.
//
// Parameters:
//   - degrees: field of view in degrees, clamped to [1, 179]
//
// Returns:
//   - CameraBuilderOption: functional option to set the field of view
func WithFov(degrees float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = mgl32.Clamp(degrees, 1, 179)
	}
}

// WithAspect sets the aspect ratio (width / height).
//
// Parameters:
//   - aspect: the aspect ratio
//
// Returns:
//   - CameraBuilderOption: functional option to set the aspect ratio
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if aspect > 0 {
			c.aspect = aspect
		}
	}
}

// WithNear sets the near clipping plane distance.
//
// Parameters:
//   - near: near plane distance
//
// Returns:
//   - CameraBuilderOption: functional option to set the near plane
func WithNear(near float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
	}
}

// WithFar sets the far clipping plane distance.
//
// Parameters:
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: functional option to set the far plane
func WithFar(far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.far = far
	}
}

// WithPose places the camera at position looking at target.
//
// Parameters:
//   - position: world-space eye position
//   - target: world-space look-at point
//
// Returns:
//   - CameraBuilderOption: functional option to set the pose
func WithPose(position, target mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.position = position
		c.target = target
	}
}

// WithController attaches a CameraController that drives the pose on Update.
//
// Parameters:
//   - controller: the camera controller
//
// Returns:
//   - CameraBuilderOption: functional option to set the controller
func WithController(controller CameraController) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.controller = controller
	}
}
