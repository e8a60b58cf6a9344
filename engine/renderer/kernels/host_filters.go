package kernels

import (
	"math"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
)

// accumulateHost is the host implementation of accumulate.wgsl.
func accumulateHost(p bind_group_provider.BindGroupProvider) (pipeline.Invocation, error) {
	var params GPUAccumulateParams
	if err := uniform(p, 0, &params); err != nil {
		return nil, err
	}
	motion, err := hostTexture(p, 1)
	if err != nil {
		return nil, err
	}
	radiance, err := hostTexture(p, 2)
	if err != nil {
		return nil, err
	}
	history, err := hostTexture(p, 3)
	if err != nil {
		return nil, err
	}
	out, err := hostTexture(p, 4)
	if err != nil {
		return nil, err
	}
	limit := float32(max(params.HistoryLimit, 1))

	return func(id [3]uint32) {
		x, y := int(id[0]), int(id[1])
		if id[0] >= params.Width || id[1] >= params.Height {
			return
		}
		current := radiance.Load(x, y, 0)
		fresh := [4]float32{current[0], current[1], current[2], 1}
		if params.Reset != 0 {
			out.Store(x, y, 0, fresh)
			return
		}

		fx := fullResTexel(id[0], params.Width, motion.Width())
		fy := fullResTexel(id[1], params.Height, motion.Height())
		m := motion.Load(fx, fy, 0)
		mx := m[0] * float32(params.Width) / float32(motion.Width())
		my := m[1] * float32(params.Height) / float32(motion.Height())
		px := int(math.RoundToEven(float64(float32(x) - mx)))
		py := int(math.RoundToEven(float64(float32(y) - my)))
		if px < 0 || py < 0 || px >= int(params.Width) || py >= int(params.Height) {
			out.Store(x, y, 0, fresh)
			return
		}

		h := history.Load(px, py, 0)
		count := min(h[3]+1, limit)
		w := 1 / count
		out.Store(x, y, 0, [4]float32{
			h[0] + (current[0]-h[0])*w,
			h[1] + (current[1]-h[1])*w,
			h[2] + (current[2]-h[2])*w,
			count,
		})
	}, nil
}

// GaussianWeights returns the 2*radius+1 normalized weights of a Gaussian with
// sigma = radius/2 (at least 0.5), center tap at index radius.
//
// Parameters:
//   - radius: taps per side
//
// Returns:
//   - []float32: weights summing to 1
func GaussianWeights(radius int) []float32 {
	radius = max(radius, 0)
	sigma := max(float64(radius)*0.5, 0.5)
	weights := make([]float32, 2*radius+1)
	var sum float64
	raw := make([]float64, len(weights))
	for i := -radius; i <= radius; i++ {
		w := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		raw[i+radius] = w
		sum += w
	}
	for i, w := range raw {
		weights[i] = float32(w / sum)
	}
	return weights
}

// blurHost is the host implementation of blur.wgsl.
func blurHost(p bind_group_provider.BindGroupProvider) (pipeline.Invocation, error) {
	var params GPUBlurParams
	if err := uniform(p, 0, &params); err != nil {
		return nil, err
	}
	src, err := hostTexture(p, 1)
	if err != nil {
		return nil, err
	}
	dst, err := hostTexture(p, 2)
	if err != nil {
		return nil, err
	}
	radius := int(params.Radius)
	weights := GaussianWeights(radius)
	dx, dy := 1, 0
	if params.Direction != BlurHorizontal {
		dx, dy = 0, 1
	}

	return func(id [3]uint32) {
		if id[0] >= params.Width || id[1] >= params.Height {
			return
		}
		x, y := int(id[0]), int(id[1])
		var sum [3]float32
		for i := -radius; i <= radius; i++ {
			c := src.Load(x+dx*i, y+dy*i, 0)
			w := weights[i+radius]
			sum[0] += c[0] * w
			sum[1] += c[1] * w
			sum[2] += c[2] * w
		}
		center := src.Load(x, y, 0)
		dst.Store(x, y, 0, [4]float32{sum[0], sum[1], sum[2], center[3]})
	}, nil
}

// catmullRom is the Catmull-Rom cubic (a = -0.5) reconstruction weight.
func catmullRom(x float64) float64 {
	ax := math.Abs(x)
	switch {
	case ax < 1:
		return 1.5*ax*ax*ax - 2.5*ax*ax + 1
	case ax < 2:
		return -0.5*ax*ax*ax + 2.5*ax*ax - 4*ax + 2
	default:
		return 0
	}
}

func sinc(x float64) float64 {
	if math.Abs(x) < 1e-6 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

func lanczos2(x float64) float64 {
	if math.Abs(x) >= 2 {
		return 0
	}
	return sinc(x) * sinc(x/2)
}

// upsampleHost is the host implementation of upsample.wgsl.
func upsampleHost(p bind_group_provider.BindGroupProvider) (pipeline.Invocation, error) {
	var params GPUUpsampleParams
	if err := uniform(p, 0, &params); err != nil {
		return nil, err
	}
	src, err := hostTexture(p, 1)
	if err != nil {
		return nil, err
	}
	dst, err := hostTexture(p, 2)
	if err != nil {
		return nil, err
	}
	scaleX := float64(params.SrcWidth) / float64(params.DstWidth)
	scaleY := float64(params.SrcHeight) / float64(params.DstHeight)
	weight := lanczos2
	if params.Mode == UpsampleBicubic {
		weight = catmullRom
	}

	return func(id [3]uint32) {
		if id[0] >= params.DstWidth || id[1] >= params.DstHeight {
			return
		}
		x, y := int(id[0]), int(id[1])
		if params.Mode == UpsampleNearest {
			sx := ((2*id[0] + 1) * params.SrcWidth) / (2 * params.DstWidth)
			sy := ((2*id[1] + 1) * params.SrcHeight) / (2 * params.DstHeight)
			dst.Store(x, y, 0, src.Load(int(sx), int(sy), 0))
			return
		}

		fx := (float64(x)+0.5)*scaleX - 0.5
		fy := (float64(y)+0.5)*scaleY - 0.5
		bx, by := math.Floor(fx), math.Floor(fy)
		tx, ty := fx-bx, fy-by
		ix, iy := int(bx), int(by)

		if params.Mode == UpsampleBilinear {
			a, b := src.Load(ix, iy, 0), src.Load(ix+1, iy, 0)
			c, d := src.Load(ix, iy+1, 0), src.Load(ix+1, iy+1, 0)
			var out [4]float32
			for k := range out {
				top := float64(a[k]) + (float64(b[k])-float64(a[k]))*tx
				bottom := float64(c[k]) + (float64(d[k])-float64(c[k]))*tx
				out[k] = float32(top + (bottom-top)*ty)
			}
			dst.Store(x, y, 0, out)
			return
		}

		var sum [4]float64
		var weightSum float64
		for j := -1; j <= 2; j++ {
			wy := weight(ty - float64(j))
			for i := -1; i <= 2; i++ {
				w := weight(tx-float64(i)) * wy
				c := src.Load(ix+i, iy+j, 0)
				for k := range sum {
					sum[k] += float64(c[k]) * w
				}
				weightSum += w
			}
		}
		var out [4]float32
		for k := range out {
			out[k] = float32(sum[k] / weightSum)
		}
		dst.Store(x, y, 0, out)
	}, nil
}

// compositeHost is the host implementation of composite.wgsl.
func compositeHost(p bind_group_provider.BindGroupProvider) (pipeline.Invocation, error) {
	var params GPUCompositeParams
	if err := uniform(p, 0, &params); err != nil {
		return nil, err
	}
	scene, err := hostTexture(p, 1)
	if err != nil {
		return nil, err
	}
	traced, err := hostTexture(p, 2)
	if err != nil {
		return nil, err
	}
	out, err := hostTexture(p, 3)
	if err != nil {
		return nil, err
	}
	k := params.Intensity

	return func(id [3]uint32) {
		if id[0] >= params.Width || id[1] >= params.Height {
			return
		}
		x, y := int(id[0]), int(id[1])
		c := scene.Load(x, y, 0)
		r := traced.Load(x, y, 0)
		result := c
		for i := 0; i < 3; i++ {
			switch params.Mode {
			case CompositeAdditive:
				result[i] = c[i] + r[i]*k
			case CompositeMax:
				result[i] = max(c[i], r[i]*k)
			default:
				result[i] = c[i] + (r[i]-c[i])*k
			}
		}
		out.Store(x, y, 0, result)
	}, nil
}
