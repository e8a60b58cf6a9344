package pathtrace

import "github.com/go-gl/mathgl/mgl32"

// ConfigOption is a functional option for configuring a PathTracer.
type ConfigOption func(*Config)

// WithConfig replaces the whole configuration. Later options still apply on top.
//
// Parameters:
//   - c: the configuration to start from
//
// Returns:
//   - ConfigOption: functional option to set the configuration
func WithConfig(c Config) ConfigOption {
	return func(dst *Config) {
		*dst = c
	}
}

// WithDownscaleFactor sets the full-to-trace resolution ratio.
//
// Parameters:
//   - factor: ratio in [1, 16]; zero is read as 1 and larger values are clamped
//
// Returns:
//   - ConfigOption: functional option to set the downscale factor
func WithDownscaleFactor(factor uint32) ConfigOption {
	return func(c *Config) {
		c.DownscaleFactor = factor
	}
}

// WithMaxBounces sets the bounce limit per path.
//
// Parameters:
//   - bounces: limit in [1, 32]
//
// Returns:
//   - ConfigOption: functional option to set the bounce limit
func WithMaxBounces(bounces uint32) ConfigOption {
	return func(c *Config) {
		c.MaxBounces = bounces
	}
}

// WithSamplesPerPixel sets the paths traced per pixel and frame.
// 1, 2, 4, 8 and 16 select specialized kernels; other counts use the general kernel.
//
// Parameters:
//   - samples: sample count, at least 1
//
// Returns:
//   - ConfigOption: functional option to set the sample count
func WithSamplesPerPixel(samples uint32) ConfigOption {
	return func(c *Config) {
		c.SamplesPerPixel = samples
	}
}

// WithMaterial sets the surface material.
//
// Parameters:
//   - albedo: linear material color
//   - metal: true for reflective metal, false for Lambertian
//   - fuzz: metal reflection perturbation in [0, 1]
//
// Returns:
//   - ConfigOption: functional option to set the material
func WithMaterial(albedo mgl32.Vec4, metal bool, fuzz float32) ConfigOption {
	return func(c *Config) {
		c.Albedo = albedo
		c.Metal = metal
		c.Fuzz = fuzz
	}
}

// WithAccumulation toggles temporal accumulation.
//
// Parameters:
//   - enabled: true to accumulate across frames
//
// Returns:
//   - ConfigOption: functional option to set accumulation
func WithAccumulation(enabled bool) ConfigOption {
	return func(c *Config) {
		c.Accumulate = enabled
	}
}

// WithHistoryLimit caps the accumulated sample count per pixel.
func WithHistoryLimit(limit uint32) ConfigOption {
	return func(c *Config) {
		c.HistoryLimit = limit
	}
}

// WithInterpolation sets the upsample reconstruction filter.
func WithInterpolation(mode InterpolationMode) ConfigOption {
	return func(c *Config) {
		c.Interpolation = mode
	}
}

// WithBlurSamples sets the separable blur radius; zero disables the blur.
func WithBlurSamples(samples uint32) ConfigOption {
	return func(c *Config) {
		c.BlurSamples = samples
	}
}

// WithComposite sets how traced radiance is blended over the scene color.
//
// Parameters:
//   - mode: the blend mode
//   - intensity: radiance scale, negative values read as 0
//
// Returns:
//   - ConfigOption: functional option to set the composite
func WithComposite(mode CompositeMode, intensity float32) ConfigOption {
	return func(c *Config) {
		c.Composite = mode
		c.CompositeIntensity = intensity
	}
}
