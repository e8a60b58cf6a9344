package pathtrace

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/game_object"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// FrameIndexPeriod is the wrap of the frame index handed to the trace kernel.
const FrameIndexPeriod = 256

// SceneSource enumerates the geometry and sky of one frame. scene.Scene satisfies it.
type SceneSource interface {
	// Instances returns the candidate instances in a stable order.
	Instances() []game_object.GameObject

	// Environment returns the active sky, or nil.
	Environment() scene.Environment
}

// FrameContext is what the host knows about a frame before any resource is touched.
type FrameContext struct {
	Camera camera.Camera

	// Width and Height are the full output resolution in pixels.
	Width, Height uint32

	// FrameCounter increases by one per presented frame.
	FrameCounter uint64
}

// ResourceContext holds the host render targets of a frame.
type ResourceContext struct {
	Scene SceneSource

	// Color is the rasterized color target; it is overwritten with the composited result.
	Color resource.Texture

	// Depth holds per-pixel hit distance along the primary ray, zero where nothing was rasterized. Optional.
	Depth resource.Texture

	// Motion holds per-pixel screen motion in full-resolution pixels. Optional.
	Motion resource.Texture
}

// SkipReason explains why a frame left the color target untouched.
type SkipReason int

const (
	// SkipNone means the frame was traced.
	SkipNone SkipReason = iota

	// SkipCameraType means the camera is a preview or reflection camera.
	SkipCameraType

	// SkipNoCamera means the frame had no camera or no output pixels.
	SkipNoCamera

	// SkipNoGeometry means the scene had no renderable instance.
	SkipNoGeometry

	// SkipEnvironmentUnavailable means the sky has not been baked.
	SkipEnvironmentUnavailable
)

var skipNames = []string{"none", "camera_type", "no_camera", "no_geometry", "environment_unavailable"}

// String returns the lowercase reason.
func (s SkipReason) String() string {
	if s < 0 || int(s) >= len(skipNames) {
		return fmt.Sprintf("skip(%d)", int(s))
	}
	return skipNames[s]
}

// FrameParameters is the immutable snapshot built by Prepare and consumed once by Execute.
type FrameParameters struct {
	// Skip is set by Prepare when the frame must not be traced.
	Skip SkipReason

	CameraType     camera.CameraType
	VerticalFov    float32
	CameraPosition mgl32.Vec3
	CameraForward  mgl32.Vec3
	Aspect         float32

	// FrameIndex is the host frame counter modulo FrameIndexPeriod.
	FrameIndex uint32

	FullWidth, FullHeight   uint32
	TraceWidth, TraceHeight uint32

	Config  Config
	Variant KernelVariant
}

// RenderPass is the per-frame hook invoked by the host pipeline.
type RenderPass interface {
	// Prepare snapshots the camera and configuration for one frame.
	//
	// Parameters:
	//   - ctx: the host frame context
	//
	// Returns:
	//   - FrameParameters: the snapshot to hand to Execute
	Prepare(ctx FrameContext) FrameParameters

	// Execute renders the frame into rc.Color. Skipped frames return nil and leave
	// the color target untouched.
	//
	// Parameters:
	//   - params: the snapshot returned by Prepare
	//   - rc: the host render targets and scene
	//
	// Returns:
	//   - error: a wrapped accelerator failure; nil for traced and skipped frames
	Execute(params FrameParameters, rc ResourceContext) error
}

// traceExtent returns ceil(full / downscale).
func traceExtent(full, downscale uint32) uint32 {
	downscale = max(downscale, 1)
	return common.CeilDiv(full, downscale)
}
