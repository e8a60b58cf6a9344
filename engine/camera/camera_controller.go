package camera

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// CameraController drives a camera pose from user input.
// The orbit controller keeps the eye on a sphere around a target point.
type CameraController interface {
	// Position returns the world-space eye position.
	Position() mgl32.Vec3

	// Target returns the orbit center.
	Target() mgl32.Vec3

	// SetTarget moves the orbit center, keeping radius and angles.
	//
	// Parameters:
	//   - target: the new orbit center
	SetTarget(target mgl32.Vec3)

	// Radius returns the distance between eye and target.
	Radius() float32

	// Orbit rotates the eye around the target by whole orbit steps.
	//
	// Parameters:
	//   - azimuthSteps: horizontal steps (positive turns right)
	//   - elevationSteps: vertical steps (positive raises the eye)
	Orbit(azimuthSteps, elevationSteps float32)

	// Drag rotates the eye by a mouse delta scaled by the mouse sensitivity.
	//
	// Parameters:
	//   - dx, dy: cursor delta in pixels
	Drag(dx, dy float32)

	// Zoom moves the eye toward (positive) or away from the target.
	//
	// Parameters:
	//   - delta: scroll amount
	Zoom(delta float32)

	// Pan translates eye and target along the camera's right and up axes.
	//
	// Parameters:
	//   - right: amount along the right axis
	//   - up: amount along the up axis
	Pan(right, up float32)
}

type orbitController struct {
	mu sync.Mutex

	target mgl32.Vec3

	radius    float32
	azimuth   float32
	elevation float32

	minRadius, maxRadius       float32
	minElevation, maxElevation float32

	orbitSpeed       float32
	mouseSensitivity float32
	zoomSpeed        float32
	panSpeed         float32
}

var _ CameraController = &orbitController{}

// NewCameraController creates an orbit CameraController.
// Defaults: radius 10 around the origin, 30° elevation, radius bounds [0.5, 500],
// elevation bounds just short of the poles.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the configured controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &orbitController{
		radius:           10,
		elevation:        math.Pi / 6,
		minRadius:        0.5,
		maxRadius:        500,
		minElevation:     -math.Pi/2 + 0.01,
		maxElevation:     math.Pi/2 - 0.01,
		orbitSpeed:       0.05,
		mouseSensitivity: 0.005,
		zoomSpeed:        1,
		panSpeed:         0.05,
	}
	for _, opt := range options {
		opt(cc)
	}
	cc.clamp()
	return cc
}

func (cc *orbitController) Position() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position()
}

func (cc *orbitController) Target() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target
}

func (cc *orbitController) SetTarget(target mgl32.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = target
}

func (cc *orbitController) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

func (cc *orbitController) Orbit(azimuthSteps, elevationSteps float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth += azimuthSteps * cc.orbitSpeed
	cc.elevation += elevationSteps * cc.orbitSpeed
	cc.clamp()
}

func (cc *orbitController) Drag(dx, dy float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth -= dx * cc.mouseSensitivity
	cc.elevation += dy * cc.mouseSensitivity
	cc.clamp()
}

func (cc *orbitController) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius -= delta * cc.zoomSpeed
	cc.clamp()
}

func (cc *orbitController) Pan(right, up float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	f := cc.target.Sub(cc.position()).Normalize()
	r := f.Cross(worldUp)
	if r.Len() < 1e-6 {
		r = mgl32.Vec3{1, 0, 0}
	}
	r = r.Normalize()
	u := r.Cross(f)

	cc.target = cc.target.
		Add(r.Mul(right * cc.panSpeed * cc.radius)).
		Add(u.Mul(up * cc.panSpeed * cc.radius))
}

// position places the eye on the orbit sphere. Azimuth 0 sits on +Z.
func (cc *orbitController) position() mgl32.Vec3 {
	se, ce := math.Sincos(float64(cc.elevation))
	sa, ca := math.Sincos(float64(cc.azimuth))
	offset := mgl32.Vec3{float32(ce * sa), float32(se), float32(ce * ca)}
	return cc.target.Add(offset.Mul(cc.radius))
}

func (cc *orbitController) clamp() {
	cc.radius = mgl32.Clamp(cc.radius, cc.minRadius, cc.maxRadius)
	cc.elevation = mgl32.Clamp(cc.elevation, cc.minElevation, cc.maxElevation)
}
