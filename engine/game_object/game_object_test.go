package game_object

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

func TestTransformOrder(t *testing.T) {
	g := NewGameObject(
		WithPosition(mgl32.Vec3{10, 0, 0}),
		WithRotation(mgl32.Vec3{0, 90, 0}),
		WithUniformScale(2),
	)
	// +X scaled to 2, rotated 90° about Y onto -Z, then translated.
	p := g.Transform().Mul4x1(mgl32.Vec4{1, 0, 0, 1}).Vec3()
	if !p.ApproxEqualThreshold(mgl32.Vec3{10, 0, -2}, 1e-5) {
		t.Errorf("transformed point = %v, want (10, 0, -2)", p)
	}
}

func TestRenderable(t *testing.T) {
	g := NewGameObject()
	if g.Renderable() {
		t.Fatal("object without a model should not be renderable")
	}
	g.SetModel(model.NewCube("cube", 1))
	if !g.Renderable() {
		t.Fatal("enabled object with a model should be renderable")
	}
	g.SetEnabled(false)
	if g.Renderable() {
		t.Fatal("disabled object should not be renderable")
	}
}

func TestAdvanceWrapsRotation(t *testing.T) {
	g := NewGameObject(WithRotation(mgl32.Vec3{0, 350, 0}), WithRotationSpeed(mgl32.Vec3{0, 20, 0}))
	g.Advance(1)
	if r := g.Rotation(); !mgl32.FloatEqualThreshold(r.Y(), 10, 1e-4) {
		t.Errorf("Rotation().Y() = %v, want 10", r.Y())
	}
}
