package pathtrace

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/Carmen-Shannon/oxy-trace/engine/game_object"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/kernels"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/resource"
)

// accumulator blends each traced frame into a ping-pong pair of history textures.
// The alpha channel of a history texel is its accumulated sample count.
// History is the only state that outlives a frame.
type accumulator struct {
	r renderer.Renderer

	history       [2]resource.Texture
	latest        int
	width, height uint32

	signature    uint64
	hasSignature bool
}

func newAccumulator(r renderer.Renderer) *accumulator {
	return &accumulator{r: r}
}

// accumulate reprojects history through motion, blends radiance into it and writes
// the result back into radiance.
//
// Parameters:
//   - arena: the frame arena
//   - params: the frame snapshot
//   - motion: the motion texture, or a black fallback
//   - hasMotion: false when motion is the fallback
//   - signature: the frame signature; a change without motion vectors resets history
//   - radiance: the trace-resolution radiance, updated in place
//
// Returns:
//   - bool: true when the history was discarded for this frame
//   - error: a wrapped allocation, dispatch or copy error
func (a *accumulator) accumulate(arena *FrameArena, params FrameParameters, motion resource.Texture, hasMotion bool, signature uint64, radiance resource.Texture) (bool, error) {
	reset, err := a.ensure(params.TraceWidth, params.TraceHeight)
	if err != nil {
		return false, err
	}
	if !hasMotion && a.hasSignature && a.signature != signature {
		reset = true
	}
	if !a.hasSignature {
		reset = true
	}
	a.signature, a.hasSignature = signature, true

	gp := kernels.GPUAccumulateParams{
		Width:           params.TraceWidth,
		Height:          params.TraceHeight,
		DownscaleFactor: params.Config.DownscaleFactor,
		HistoryLimit:    params.Config.HistoryLimit,
	}
	if reset {
		gp.Reset = 1
	}
	uniform, err := arena.Uniform("accumulate_params", gp.Marshal())
	if err != nil {
		return reset, err
	}
	previous, next := a.history[a.latest], a.history[1-a.latest]
	provider := arena.Provider(kernels.AccumulateKey,
		bind_group_provider.WithBuffer(0, uniform),
		bind_group_provider.WithTexture(1, motion),
		bind_group_provider.WithTexture(2, radiance),
		bind_group_provider.WithTexture(3, previous),
		bind_group_provider.WithTexture(4, next),
	)

	p := a.r.Pipeline(kernels.AccumulateKey)
	if p == nil {
		return reset, fmt.Errorf("%w: %s", renderer.ErrKernelNotRegistered, kernels.AccumulateKey)
	}
	if err := a.r.DispatchCompute(kernels.AccumulateKey, provider, groupCount(p.Shader().WorkgroupSize(), params.TraceWidth, params.TraceHeight)); err != nil {
		return reset, fmt.Errorf("pathtrace: accumulate: %w", err)
	}
	a.r.Wait()
	if err := a.r.CopyTexture(next, radiance); err != nil {
		return reset, fmt.Errorf("pathtrace: accumulate: %w", err)
	}
	a.latest = 1 - a.latest
	return reset, nil
}

// ensure (re)allocates history at the trace resolution.
// It reports true when the history was just created and holds no samples.
func (a *accumulator) ensure(width, height uint32) (bool, error) {
	if a.history[0] != nil && a.width == width && a.height == height {
		return false, nil
	}
	a.release()
	for i := range a.history {
		tex, err := a.r.CreateTexture(resource.TextureDescriptor{
			Label:  fmt.Sprintf("history_%d", i),
			Width:  width,
			Height: height,
		})
		if err != nil {
			a.release()
			return false, fmt.Errorf("pathtrace: allocate history: %w", err)
		}
		a.history[i] = tex
	}
	a.width, a.height = width, height
	return true, nil
}

// release frees both history textures and forgets the signature.
func (a *accumulator) release() {
	for i, tex := range a.history {
		if tex != nil {
			tex.Release()
		}
		a.history[i] = nil
	}
	a.latest = 0
	a.width, a.height = 0, 0
	a.hasSignature = false
}

func (a *accumulator) allocated() bool {
	return a.history[0] != nil
}

// frameSignature hashes everything that moves the traced image when no motion
// vectors are supplied: camera pose and projection, trace resolution, and every
// instance's identity, transform and triangle count.
func frameSignature(params FrameParameters, instances []game_object.GameObject, triangleCount uint32) uint64 {
	h := fnv.New64a()
	var scratch [4]byte
	putF := func(fs ...float32) {
		for _, f := range fs {
			binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(f))
			h.Write(scratch[:])
		}
	}
	putU := func(us ...uint32) {
		for _, u := range us {
			binary.LittleEndian.PutUint32(scratch[:], u)
			h.Write(scratch[:])
		}
	}

	putF(params.CameraPosition[:]...)
	putF(params.CameraForward[:]...)
	putF(params.VerticalFov, params.Aspect)
	putU(params.TraceWidth, params.TraceHeight, triangleCount, uint32(len(instances)))
	for _, obj := range instances {
		id := obj.ID()
		putU(uint32(id), uint32(id>>32), uint32(obj.Model().TriangleCount()))
		m := obj.Transform()
		putF(m[:]...)
	}
	return h.Sum64()
}
