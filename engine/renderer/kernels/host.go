package kernels

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/resource"
	"github.com/go-gl/mathgl/mgl32"
)

// uniform decodes binding into dst from the provider's host buffer.
func uniform(p bind_group_provider.BindGroupProvider, binding int, dst interface{ Unmarshal([]byte) error }) error {
	raw, err := hostBytes(p, binding)
	if err != nil {
		return err
	}
	if err := dst.Unmarshal(raw); err != nil {
		return fmt.Errorf("%s: binding %d: %w", p.Label(), binding, err)
	}
	return nil
}

// fullResTexel maps trace texel i to the full-resolution texel that nearest upsampling
// samples it for, using the same extent ratio as upsample.wgsl.
func fullResTexel(i, traceExtent, fullExtent uint32) int {
	return int(min((2*i+1)*fullExtent/(2*max(traceExtent, 1)), fullExtent-1))
}

func hostBytes(p bind_group_provider.BindGroupProvider, binding int) ([]byte, error) {
	b, ok := p.Buffer(binding).(resource.HostBuffer)
	if !ok {
		return nil, fmt.Errorf("%s: binding %d is not a host buffer", p.Label(), binding)
	}
	return b.Bytes(), nil
}

func hostTexture(p bind_group_provider.BindGroupProvider, binding int) (resource.HostTexture, error) {
	t, ok := p.Texture(binding).(resource.HostTexture)
	if !ok {
		return nil, fmt.Errorf("%s: binding %d is not a host texture", p.Label(), binding)
	}
	return t, nil
}

func readVec3(buf []byte, floatIndex uint32) mgl32.Vec3 {
	o := floatIndex * 4
	return mgl32.Vec3{
		math.Float32frombits(binary.LittleEndian.Uint32(buf[o:])),
		math.Float32frombits(binary.LittleEndian.Uint32(buf[o+4:])),
		math.Float32frombits(binary.LittleEndian.Uint32(buf[o+8:])),
	}
}

func writeVec3(buf []byte, floatIndex uint32, v mgl32.Vec3) {
	o := floatIndex * 4
	binary.LittleEndian.PutUint32(buf[o:], math.Float32bits(v[0]))
	binary.LittleEndian.PutUint32(buf[o+4:], math.Float32bits(v[1]))
	binary.LittleEndian.PutUint32(buf[o+8:], math.Float32bits(v[2]))
}

func safeNormalize(v mgl32.Vec3) mgl32.Vec3 {
	if l := v.Len(); l > 0 {
		return v.Mul(1 / l)
	}
	return v
}

func hadamard(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func reflect(d, n mgl32.Vec3) mgl32.Vec3 {
	return d.Sub(n.Mul(2 * d.Dot(n)))
}

// pcgHash matches pcgHash in assets/rng.wgsl bit for bit.
func pcgHash(v uint32) uint32 {
	state := v*747796405 + 2891336453
	word := ((state >> ((state >> 28) + 4)) ^ state) * 277803737
	return (word >> 22) ^ word
}

func randomFloat(state *uint32) float32 {
	*state = pcgHash(*state)
	return float32(*state) / 4294967295.0
}

func randomUnitVector(state *uint32) mgl32.Vec3 {
	z := randomFloat(state)*2 - 1
	a := float64(randomFloat(state) * 6.28318530718)
	r := float32(math.Sqrt(math.Max(float64(1-z*z), 0)))
	return mgl32.Vec3{r * float32(math.Cos(a)), r * float32(math.Sin(a)), z}
}

// cubemapCoords matches cubemapCoords in assets/environment.wgsl.
func cubemapCoords(d mgl32.Vec3) (u, v float32, face int) {
	ax, ay, az := abs32(d[0]), abs32(d[1]), abs32(d[2])
	var sc, tc, ma float32
	switch {
	case ax >= ay && ax >= az:
		ma, tc = ax, -d[1]
		if d[0] > 0 {
			face, sc = 0, -d[2]
		} else {
			face, sc = 1, d[2]
		}
	case ay >= az:
		ma, sc = ay, d[0]
		if d[1] > 0 {
			face, tc = 2, d[2]
		} else {
			face, tc = 3, -d[2]
		}
	default:
		ma, tc = az, -d[1]
		if d[2] > 0 {
			face, sc = 4, d[0]
		} else {
			face, sc = 5, -d[0]
		}
	}
	ma = max(ma, 1e-8)
	return (sc/ma + 1) * 0.5, (tc/ma + 1) * 0.5, face
}

// equirectCoords matches equirectCoords in assets/environment.wgsl.
func equirectCoords(d mgl32.Vec3) (u, v float32) {
	u = 0.5 + float32(math.Atan2(float64(d[2]), float64(d[0]))/(2*math.Pi))
	v = float32(math.Acos(float64(mgl32.Clamp(d[1], -1, 1))) / math.Pi)
	return u, v
}

func abs32(f float32) float32 {
	return float32(math.Abs(float64(f)))
}

// texelIndex maps a normalized coordinate to a texel index in [0, size).
func texelIndex(c float32, size uint32) int {
	i := int(c * float32(size))
	return min(max(i, 0), int(size)-1)
}
