package camera

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// CameraType identifies the role a camera plays in the frame.
// Render passes use it to skip cameras that should not receive expensive effects.
type CameraType int

const (
	// CameraTypeGame is the main player-facing camera.
	CameraTypeGame CameraType = iota

	// CameraTypeSceneView is an editor or debug viewport camera.
	CameraTypeSceneView

	// CameraTypePreview renders thumbnails and asset previews.
	CameraTypePreview

	// CameraTypeReflection renders reflection probes and planar reflections.
	CameraTypeReflection
)

// String returns the lowercase name of the camera type.
func (t CameraType) String() string {
	switch t {
	case CameraTypeGame:
		return "game"
	case CameraTypeSceneView:
		return "scene_view"
	case CameraTypePreview:
		return "preview"
	case CameraTypeReflection:
		return "reflection"
	default:
		return fmt.Sprintf("camera_type(%d)", int(t))
	}
}

// worldUp is the fixed up axis of every camera basis.
var worldUp = mgl32.Vec3{0, 1, 0}

type cameraImpl struct {
	mu sync.RWMutex

	cameraType CameraType

	position mgl32.Vec3
	target   mgl32.Vec3

	// fov is the vertical field of view in degrees.
	fov    float32
	aspect float32
	near   float32
	far    float32

	view           mgl32.Mat4
	projection     mgl32.Mat4
	viewProjection mgl32.Mat4

	controller CameraController
}

// Camera holds a perspective camera pose.
// When a CameraController is attached, Update pulls the pose from it;
// otherwise the pose is set directly with SetPose.
type Camera interface {
	// Type returns the camera's role.
	Type() CameraType

	// Fov returns the vertical field of view in degrees.
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// Position returns the camera's world-space position.
	Position() mgl32.Vec3

	// Target returns the world-space point the camera looks at.
	Target() mgl32.Vec3

	// Forward returns the unit view direction.
	// A camera whose target coincides with its position looks down -Z.
	Forward() mgl32.Vec3

	// ViewMatrix returns the world-to-view matrix computed by the last Update.
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the perspective projection computed by the last Update.
	ProjectionMatrix() mgl32.Mat4

	// ViewProjectionMatrix returns projection * view.
	ViewProjectionMatrix() mgl32.Mat4

	// Controller returns the attached controller, or nil.
	Controller() CameraController

	// SetType changes the camera's role.
	//
	// Parameters:
	//   - t: the new camera type
	SetType(t CameraType)

	// SetFov sets the vertical field of view.
	//
	// Parameters:
	//   - degrees: field of view in degrees, clamped to [1, 179]
	SetFov(degrees float32)

	// SetAspect sets the aspect ratio.
	//
	// Parameters:
	//   - aspect: width / height; non-positive values are ignored
	SetAspect(aspect float32)

	// SetPose places the camera at position looking at target.
	// Ignored while a controller is attached.
	//
	// Parameters:
	//   - position: world-space eye position
	//   - target: world-space look-at point
	SetPose(position, target mgl32.Vec3)

	// SetController attaches or detaches (nil) a controller.
	//
	// Parameters:
	//   - controller: the controller driving the pose
	SetController(controller CameraController)

	// Update refreshes the pose from the controller (if any) and recomputes the matrices.
	Update()
}

var _ Camera = &cameraImpl{}

// NewCamera creates a Camera with the given options.
// Defaults: game camera at (0, 0, 5) looking at the origin, 45° vertical fov,
// 16:9 aspect, near 0.1, far 1000.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the configured camera with its matrices already computed
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		cameraType: CameraTypeGame,
		position:   mgl32.Vec3{0, 0, 5},
		fov:        45,
		aspect:     16.0 / 9.0,
		near:       0.1,
		far:        1000,
	}
	for _, opt := range options {
		opt(c)
	}
	c.Update()
	return c
}

func (c *cameraImpl) Type() CameraType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cameraType
}

func (c *cameraImpl) Fov() float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.far
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.position
}

func (c *cameraImpl) Target() mgl32.Vec3 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.target
}

func (c *cameraImpl) Forward() mgl32.Vec3 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return forward(c.position, c.target)
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.projection
}

func (c *cameraImpl) ViewProjectionMatrix() mgl32.Mat4 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viewProjection
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.controller
}

func (c *cameraImpl) SetType(t CameraType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cameraType = t
}

func (c *cameraImpl) SetFov(degrees float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = mgl32.Clamp(degrees, 1, 179)
}

func (c *cameraImpl) SetAspect(aspect float32) {
	if aspect <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
}

func (c *cameraImpl) SetPose(position, target mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller != nil {
		return
	}
	c.position = position
	c.target = target
}

func (c *cameraImpl) SetController(controller CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = controller
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.controller != nil {
		c.position = c.controller.Position()
		c.target = c.controller.Target()
	}

	f := forward(c.position, c.target)
	up := worldUp
	if mgl32.Abs(f.Dot(worldUp)) > 0.9999 {
		up = mgl32.Vec3{0, 0, -1}
	}
	c.view = mgl32.LookAtV(c.position, c.position.Add(f), up)
	c.projection = mgl32.Perspective(mgl32.DegToRad(c.fov), c.aspect, c.near, c.far)
	c.viewProjection = c.projection.Mul4(c.view)
}

// forward returns the unit direction from position to target, -Z when degenerate.
func forward(position, target mgl32.Vec3) mgl32.Vec3 {
	d := target.Sub(position)
	if d.Len() < 1e-8 {
		return mgl32.Vec3{0, 0, -1}
	}
	return d.Normalize()
}
