package pathtrace

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/kernels"
	"github.com/go-gl/mathgl/mgl32"
)

// KernelVariant selects one of the compiled trace kernels.
// Fixed variants bake their sample count and workgroup size into the kernel;
// the general variant reads the sample count from its uniform.
type KernelVariant int

const (
	OneSample KernelVariant = iota
	TwoSamples
	FourSamples
	EightSamples
	SixteenSamples
	GeneralSampleCount
)

// VariantForSamples returns the kernel variant that traces samples paths per pixel.
//
// Parameters:
//   - samples: paths per pixel
//
// Returns:
//   - KernelVariant: a fixed variant for 1, 2, 4, 8 or 16, GeneralSampleCount otherwise
func VariantForSamples(samples uint32) KernelVariant {
	switch samples {
	case 1:
		return OneSample
	case 2:
		return TwoSamples
	case 4:
		return FourSamples
	case 8:
		return EightSamples
	case 16:
		return SixteenSamples
	default:
		return GeneralSampleCount
	}
}

// String returns the pipeline key of the variant.
func (v KernelVariant) String() string {
	if v < OneSample || v > GeneralSampleCount {
		return fmt.Sprintf("kernel_variant(%d)", int(v))
	}
	return v.Kernel().Key
}

// Kernel returns the compiled kernel descriptor of the variant.
// Unknown variants map to the general kernel.
func (v KernelVariant) Kernel() kernels.TraceVariant {
	switch v {
	case OneSample, TwoSamples, FourSamples, EightSamples, SixteenSamples:
		return kernels.TraceVariants[v]
	default:
		return kernels.TraceVariants[len(kernels.TraceVariants)-1]
	}
}

// SampleOffsets is the fixed table of sub-pixel jitter offsets, in pixels.
// Sixteen consecutive frames cover the pixel footprint once.
var SampleOffsets = [16]mgl32.Vec2{
	{0.0625, 0.0625},
	{-0.0625, -0.1875},
	{-0.1875, 0.125},
	{0.25, -0.0625},
	{-0.3125, -0.125},
	{0.125, 0.3125},
	{0.3125, 0.1875},
	{0.1875, -0.3125},
	{-0.125, 0.375},
	{0, -0.4375},
	{-0.25, -0.375},
	{-0.375, 0.25},
	{-0.5, 0},
	{0.4375, -0.25},
	{0.375, 0.4375},
	{-0.4375, -0.5},
}

// SampleOffset returns the jitter for the i-th sample, cycling through SampleOffsets.
func SampleOffset(i uint32) mgl32.Vec2 {
	return SampleOffsets[i%uint32(len(SampleOffsets))]
}

// sampleTable packs SampleOffsets into the kernel uniform.
func sampleTable() kernels.GPUSampleTable {
	var t kernels.GPUSampleTable
	for i, o := range SampleOffsets {
		t.Offsets[i] = [4]float32{o[0], o[1], 0, 0}
	}
	return t
}
