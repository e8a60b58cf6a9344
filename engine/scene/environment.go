package scene

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/resource"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrInvalidEnvironment is returned when environment pixel data does not match its dimensions.
var ErrInvalidEnvironment = errors.New("scene: invalid environment data")

// EnvironmentKind identifies how an Environment maps directions to texels.
type EnvironmentKind int

const (
	// EnvironmentKindNone has no sky; escaping rays return black.
	EnvironmentKindNone EnvironmentKind = iota

	// EnvironmentKindCubemap is a six-face skybox, faces ordered +X, -X, +Y, -Y, +Z, -Z.
	EnvironmentKindCubemap

	// EnvironmentKindProbe is a baked reflection probe stored as one equirectangular image.
	EnvironmentKindProbe
)

// String returns the lowercase name of the kind.
func (k EnvironmentKind) String() string {
	switch k {
	case EnvironmentKindNone:
		return "none"
	case EnvironmentKindCubemap:
		return "cubemap"
	case EnvironmentKindProbe:
		return "probe"
	default:
		return fmt.Sprintf("environment_kind(%d)", int(k))
	}
}

// Environment is the sky seen by rays that leave the scene.
// Pixel data lives on the host until Bake uploads it; until then the
// environment is unavailable and path-traced frames are skipped.
type Environment interface {
	// Kind returns the direction mapping of the environment.
	Kind() EnvironmentKind

	// Width returns the texel width of one face or of the equirect image.
	Width() uint32

	// Height returns the texel height of one face or of the equirect image.
	Height() uint32

	// Available reports whether the environment has been baked and not released.
	Available() bool

	// Texture returns the baked texture, or nil when unavailable.
	Texture() resource.Texture

	// Bake uploads the pixel data to r. Baking an available environment is a no-op.
	//
	// Parameters:
	//   - r: the renderer that owns the texture
	//
	// Returns:
	//   - error: a wrapped creation or upload error
	Bake(r renderer.Renderer) error

	// Release frees the baked texture. The host pixels are kept so the environment can be baked again.
	Release()
}

type environment struct {
	mu sync.Mutex

	kind          EnvironmentKind
	width, height uint32

	// layers holds one RGBA float slice per face (cubemap) or a single image (probe).
	layers [][]float32

	texture resource.Texture
}

var _ Environment = &environment{}

// NewCubemapEnvironment creates a cubemap environment from six square RGBA faces.
//
// Parameters:
//   - size: edge length of each face in texels
//   - faces: RGBA float pixels per face, ordered +X, -X, +Y, -Y, +Z, -Z
//
// Returns:
//   - Environment: the unbaked environment
//   - error: ErrInvalidEnvironment when a face has the wrong length
func NewCubemapEnvironment(size uint32, faces [6][]float32) (Environment, error) {
	want := int(size) * int(size) * 4
	if size == 0 {
		return nil, fmt.Errorf("%w: zero face size", ErrInvalidEnvironment)
	}
	layers := make([][]float32, 6)
	for i, f := range faces {
		if len(f) != want {
			return nil, fmt.Errorf("%w: face %d has %d floats, want %d", ErrInvalidEnvironment, i, len(f), want)
		}
		layers[i] = f
	}
	return &environment{kind: EnvironmentKindCubemap, width: size, height: size, layers: layers}, nil
}

// NewProbeEnvironment creates a reflection-probe environment from one equirectangular RGBA image.
//
// Parameters:
//   - width, height: image dimensions in texels
//   - pixels: RGBA float pixels, row-major from the top row
//
// Returns:
//   - Environment: the unbaked environment
//   - error: ErrInvalidEnvironment when pixels has the wrong length
func NewProbeEnvironment(width, height uint32, pixels []float32) (Environment, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: zero extent %dx%d", ErrInvalidEnvironment, width, height)
	}
	if want := int(width) * int(height) * 4; len(pixels) != want {
		return nil, fmt.Errorf("%w: %d floats, want %d", ErrInvalidEnvironment, len(pixels), want)
	}
	return &environment{kind: EnvironmentKindProbe, width: width, height: height, layers: [][]float32{pixels}}, nil
}

// NewGradientEnvironment creates a procedural cubemap blending from ground through
// horizon to zenith by the direction's elevation.
//
// Parameters:
//   - size: edge length of each face in texels
//   - zenith: linear color straight up
//   - horizon: linear color at the horizon
//   - ground: linear color straight down
//
// Returns:
//   - Environment: the unbaked environment
func NewGradientEnvironment(size uint32, zenith, horizon, ground mgl32.Vec3) Environment {
	size = max(size, 1)
	var faces [6][]float32
	for face := range faces {
		px := make([]float32, 0, size*size*4)
		for y := uint32(0); y < size; y++ {
			for x := uint32(0); x < size; x++ {
				u := (float32(x) + 0.5) / float32(size)
				v := (float32(y) + 0.5) / float32(size)
				e := CubemapDirection(face, u, v).Y()
				var c mgl32.Vec3
				if e >= 0 {
					c = horizon.Mul(1 - e).Add(zenith.Mul(e))
				} else {
					c = horizon.Mul(1 + e).Add(ground.Mul(-e))
				}
				px = append(px, c[0], c[1], c[2], 1)
			}
		}
		faces[face] = px
	}
	env, _ := NewCubemapEnvironment(size, faces)
	return env
}

// CubemapDirection returns the unit direction through texel coordinate (u, v) of a cubemap face.
// It inverts the major-axis face lookup used by the trace kernel.
//
// Parameters:
//   - face: face index, ordered +X, -X, +Y, -Y, +Z, -Z
//   - u, v: normalized face coordinates in [0, 1], v growing downward
//
// Returns:
//   - mgl32.Vec3: the unit direction
func CubemapDirection(face int, u, v float32) mgl32.Vec3 {
	sc, tc := 2*u-1, 2*v-1
	var d mgl32.Vec3
	switch face {
	case 0:
		d = mgl32.Vec3{1, -tc, -sc}
	case 1:
		d = mgl32.Vec3{-1, -tc, sc}
	case 2:
		d = mgl32.Vec3{sc, 1, tc}
	case 3:
		d = mgl32.Vec3{sc, -1, -tc}
	case 4:
		d = mgl32.Vec3{sc, -tc, 1}
	default:
		d = mgl32.Vec3{-sc, -tc, -1}
	}
	return d.Normalize()
}

func (e *environment) Kind() EnvironmentKind { return e.kind }
func (e *environment) Width() uint32         { return e.width }
func (e *environment) Height() uint32        { return e.height }

func (e *environment) Available() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.texture != nil && !e.texture.Released()
}

func (e *environment) Texture() resource.Texture {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.texture == nil || e.texture.Released() {
		return nil
	}
	return e.texture
}

func (e *environment) Bake(r renderer.Renderer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.texture != nil && !e.texture.Released() {
		return nil
	}

	tex, err := r.CreateTexture(resource.TextureDescriptor{
		Label:  "environment_" + e.kind.String(),
		Width:  e.width,
		Height: e.height,
		Layers: uint32(len(e.layers)),
		Array:  true,
	})
	if err != nil {
		return fmt.Errorf("scene: bake environment: %w", err)
	}
	for i, px := range e.layers {
		if err := r.WriteTexture(tex, uint32(i), px); err != nil {
			tex.Release()
			return fmt.Errorf("scene: bake environment layer %d: %w", i, err)
		}
	}
	e.texture = tex
	return nil
}

func (e *environment) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.texture != nil {
		e.texture.Release()
		e.texture = nil
	}
}
