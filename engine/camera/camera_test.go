package camera

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestCameraDefaults(t *testing.T) {
	c := NewCamera()
	if c.Type() != CameraTypeGame {
		t.Errorf("Type() = %v, want game", c.Type())
	}
	if c.Fov() != 45 {
		t.Errorf("Fov() = %v, want 45", c.Fov())
	}
	if f := c.Forward(); !f.ApproxEqual(mgl32.Vec3{0, 0, -1}) {
		t.Errorf("Forward() = %v, want -Z", f)
	}
}

func TestCameraForwardIsUnit(t *testing.T) {
	c := NewCamera(WithPose(mgl32.Vec3{3, 4, 0}, mgl32.Vec3{0, 0, 0}))
	f := c.Forward()
	if !mgl32.FloatEqualThreshold(f.Len(), 1, 1e-5) {
		t.Fatalf("|Forward()| = %v, want 1", f.Len())
	}
	if !f.ApproxEqualThreshold(mgl32.Vec3{-0.6, -0.8, 0}, 1e-5) {
		t.Errorf("Forward() = %v, want (-0.6, -0.8, 0)", f)
	}
}

func TestCameraViewMapsTargetOntoAxis(t *testing.T) {
	c := NewCamera(WithPose(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{4, -1, 0}))
	v := c.ViewMatrix().Mul4x1(mgl32.Vec4{4, -1, 0, 1})
	if mgl32.Abs(v.X()) > 1e-4 || mgl32.Abs(v.Y()) > 1e-4 || v.Z() >= 0 {
		t.Errorf("target in view space = %v, want on -Z axis", v)
	}
}

func TestCameraFovClamped(t *testing.T) {
	c := NewCamera(WithFov(500))
	if c.Fov() != 179 {
		t.Errorf("Fov() = %v, want 179", c.Fov())
	}
	c.SetFov(0)
	if c.Fov() != 1 {
		t.Errorf("Fov() = %v, want 1", c.Fov())
	}
}

func TestCameraFollowsController(t *testing.T) {
	cc := NewCameraController(WithRadius(5), WithElevation(0), WithTarget(mgl32.Vec3{1, 0, 0}))
	c := NewCamera(WithController(cc))
	if p := c.Position(); !p.ApproxEqualThreshold(mgl32.Vec3{1, 0, 5}, 1e-5) {
		t.Fatalf("Position() = %v, want (1, 0, 5)", p)
	}

	c.SetPose(mgl32.Vec3{9, 9, 9}, mgl32.Vec3{})
	if p := c.Position(); p.ApproxEqual(mgl32.Vec3{9, 9, 9}) {
		t.Fatalf("SetPose should be ignored while a controller is attached")
	}

	cc.Zoom(2)
	c.Update()
	if p := c.Position(); !p.ApproxEqualThreshold(mgl32.Vec3{1, 0, 3}, 1e-5) {
		t.Errorf("Position() after zoom = %v, want (1, 0, 3)", p)
	}
}

func TestControllerClamps(t *testing.T) {
	cc := NewCameraController(WithRadius(2), WithRadiusBounds(1, 4))
	cc.Zoom(100)
	if cc.Radius() != 1 {
		t.Errorf("Radius() = %v, want 1", cc.Radius())
	}
	cc.Zoom(-100)
	if cc.Radius() != 4 {
		t.Errorf("Radius() = %v, want 4", cc.Radius())
	}

	cc.Orbit(0, 1e6)
	p := cc.Position().Sub(cc.Target()).Normalize()
	if p.Y() >= 1 {
		t.Errorf("elevation reached the pole: %v", p)
	}
}

func TestControllerPanMovesTarget(t *testing.T) {
	cc := NewCameraController(WithRadius(10), WithElevation(0), WithPanSpeed(0.1))
	cc.Pan(1, 0)
	if tg := cc.Target(); !tg.ApproxEqualThreshold(mgl32.Vec3{1, 0, 0}, 1e-5) {
		t.Errorf("Target() after pan = %v, want (1, 0, 0)", tg)
	}
}

func TestCameraTypeString(t *testing.T) {
	if CameraTypeReflection.String() != "reflection" {
		t.Errorf("String() = %q", CameraTypeReflection.String())
	}
}
