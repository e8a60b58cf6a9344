package pathtrace

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/kernels"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// MaxDownscaleFactor is the largest accepted full-to-trace resolution ratio.
	MaxDownscaleFactor = 16

	// MaxBounceLimit is the largest accepted bounce count.
	MaxBounceLimit = 32

	// MaxBlurSamples is the largest accepted blur radius.
	MaxBlurSamples = 32
)

// InterpolationMode selects the reconstruction filter of the upsample stage.
type InterpolationMode int

const (
	InterpolationNearest InterpolationMode = iota
	InterpolationBilinear
	InterpolationBicubic
	InterpolationLanczos
)

var interpolationNames = []string{"nearest", "bilinear", "bicubic", "lanczos"}

// String returns the lowercase filter name.
func (m InterpolationMode) String() string {
	if m < 0 || int(m) >= len(interpolationNames) {
		return fmt.Sprintf("interpolation(%d)", int(m))
	}
	return interpolationNames[m]
}

// ParseInterpolationMode maps a filter name to an InterpolationMode.
func ParseInterpolationMode(name string) (InterpolationMode, error) {
	for i, n := range interpolationNames {
		if n == name {
			return InterpolationMode(i), nil
		}
	}
	return InterpolationNearest, fmt.Errorf("pathtrace: unknown interpolation %q", name)
}

func (m InterpolationMode) kernelMode() uint32 {
	switch m {
	case InterpolationBilinear:
		return kernels.UpsampleBilinear
	case InterpolationBicubic:
		return kernels.UpsampleBicubic
	case InterpolationLanczos:
		return kernels.UpsampleLanczos
	default:
		return kernels.UpsampleNearest
	}
}

// CompositeMode selects how traced radiance is blended over the rasterized color.
type CompositeMode int

const (
	// CompositeAdditive adds scaled radiance to the scene color.
	CompositeAdditive CompositeMode = iota

	// CompositeMax keeps the per-channel maximum.
	CompositeMax

	// CompositeReplace lerps from scene color to radiance by the intensity. Pixels whose
	// primary ray is cut short by raster depth and then misses trace black.
	CompositeReplace
)

var compositeNames = []string{"additive", "max", "replace"}

// String returns the lowercase mode name.
func (m CompositeMode) String() string {
	if m < 0 || int(m) >= len(compositeNames) {
		return fmt.Sprintf("composite(%d)", int(m))
	}
	return compositeNames[m]
}

// ParseCompositeMode maps a mode name to a CompositeMode.
func ParseCompositeMode(name string) (CompositeMode, error) {
	for i, n := range compositeNames {
		if n == name {
			return CompositeMode(i), nil
		}
	}
	return CompositeAdditive, fmt.Errorf("pathtrace: unknown composite mode %q", name)
}

func (m CompositeMode) kernelMode() uint32 {
	switch m {
	case CompositeMax:
		return kernels.CompositeMax
	case CompositeReplace:
		return kernels.CompositeReplace
	default:
		return kernels.CompositeAdditive
	}
}

// Config is the normalized configuration of a PathTracer.
// Values are clamped once at construction; the zero Config is never used directly.
type Config struct {
	// DownscaleFactor is the full-to-trace resolution ratio in [1, 16]. Zero is read as 1.
	DownscaleFactor uint32

	// MaxBounces is the bounce limit per path in [1, 32].
	MaxBounces uint32

	// SamplesPerPixel is the number of paths per trace pixel and frame.
	SamplesPerPixel uint32

	// Albedo is the material color applied to every surface.
	Albedo mgl32.Vec4

	// Fuzz perturbs metal reflections, in [0, 1].
	Fuzz float32

	// Metal selects a reflective material instead of Lambertian.
	Metal bool

	// Accumulate enables temporal accumulation with reprojection.
	Accumulate bool

	// HistoryLimit caps the per-pixel accumulated sample count.
	HistoryLimit uint32

	// Interpolation is the upsample reconstruction filter.
	Interpolation InterpolationMode

	// BlurSamples is the separable blur radius in taps per side, in [0, 32]. Zero disables the blur.
	BlurSamples uint32

	// Composite is the blend mode over the rasterized color.
	Composite CompositeMode

	// CompositeIntensity scales traced radiance before blending.
	CompositeIntensity float32
}

// DefaultConfig returns the configuration used when no options are given.
//
// Returns:
//   - Config: downscale 2, two bounces, one sample, grey Lambertian, accumulation on,
//     nearest upsample, no blur, full-intensity additive
func DefaultConfig() Config {
	return Config{
		DownscaleFactor:    2,
		MaxBounces:         2,
		SamplesPerPixel:    1,
		Albedo:             mgl32.Vec4{0.8, 0.8, 0.8, 1},
		Accumulate:         true,
		HistoryLimit:       256,
		Interpolation:      InterpolationNearest,
		Composite:          CompositeAdditive,
		CompositeIntensity: 1,
	}
}

// Normalized returns a copy with every field clamped to its accepted range.
func (c Config) Normalized() Config {
	if c.DownscaleFactor == 0 {
		c.DownscaleFactor = 1
	}
	c.DownscaleFactor = min(c.DownscaleFactor, MaxDownscaleFactor)
	c.MaxBounces = min(max(c.MaxBounces, 1), MaxBounceLimit)
	c.SamplesPerPixel = max(c.SamplesPerPixel, 1)
	c.Fuzz = mgl32.Clamp(c.Fuzz, 0, 1)
	c.HistoryLimit = max(c.HistoryLimit, 1)
	if c.Interpolation < InterpolationNearest || c.Interpolation > InterpolationLanczos {
		c.Interpolation = InterpolationNearest
	}
	c.BlurSamples = min(c.BlurSamples, MaxBlurSamples)
	if c.Composite < CompositeAdditive || c.Composite > CompositeReplace {
		c.Composite = CompositeAdditive
	}
	c.CompositeIntensity = max(c.CompositeIntensity, 0)
	return c
}

// Variant returns the trace kernel variant selected by SamplesPerPixel.
func (c Config) Variant() KernelVariant {
	return VariantForSamples(c.SamplesPerPixel)
}
