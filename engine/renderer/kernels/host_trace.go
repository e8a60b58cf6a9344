package kernels

import (
	"math"

	"github.com/Carmen-Shannon/oxy-trace/engine/model"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/resource"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	traceTMin = 1e-4
	traceTFar = 3.0e38
)

type hostTriangle struct {
	p0, e1, e2 mgl32.Vec3
	normals    [3]mgl32.Vec3
}

type traceState struct {
	params      GPUTraceParams
	samples     GPUSampleTable
	sampleCount uint32
	triangles   []hostTriangle
	ranges      []model.GPUMeshRange
	depth       resource.HostTexture
	environment resource.HostTexture
	out         resource.HostTexture

	forward, right, up    mgl32.Vec3
	halfWidth, halfHeight float32
}

// traceHost returns the host implementation of trace.wgsl.tmpl. A zero fixedSamples
// selects the general kernel, which reads the sample count from the uniform.
func traceHost(fixedSamples uint32) pipeline.HostKernel {
	return func(p bind_group_provider.BindGroupProvider) (pipeline.Invocation, error) {
		s := &traceState{}
		if err := uniform(p, 0, &s.params); err != nil {
			return nil, err
		}
		triBytes, err := hostBytes(p, 1)
		if err != nil {
			return nil, err
		}
		rangeBytes, err := hostBytes(p, 2)
		if err != nil {
			return nil, err
		}
		if err := uniform(p, 3, &s.samples); err != nil {
			return nil, err
		}
		if s.depth, err = hostTexture(p, 4); err != nil {
			return nil, err
		}
		if s.environment, err = hostTexture(p, 5); err != nil {
			return nil, err
		}
		if s.out, err = hostTexture(p, 6); err != nil {
			return nil, err
		}

		s.sampleCount = fixedSamples
		if s.sampleCount == 0 {
			s.sampleCount = max(s.params.SamplesPerPixel, 1)
		}
		for _, t := range model.UnmarshalTriangles(triBytes) {
			p0 := mgl32.Vec3(t.Positions[0])
			s.triangles = append(s.triangles, hostTriangle{
				p0:      p0,
				e1:      mgl32.Vec3(t.Positions[1]).Sub(p0),
				e2:      mgl32.Vec3(t.Positions[2]).Sub(p0),
				normals: [3]mgl32.Vec3{t.Normals[0], t.Normals[1], t.Normals[2]},
			})
		}
		s.ranges = model.UnmarshalMeshRanges(rangeBytes)
		if int(s.params.MeshCount) < len(s.ranges) {
			s.ranges = s.ranges[:s.params.MeshCount]
		}
		s.basis()
		return s.invoke, nil
	}
}

func (s *traceState) basis() {
	s.forward = safeNormalize(mgl32.Vec3(s.params.CameraForward))
	right := s.forward.Cross(mgl32.Vec3{0, 1, 0})
	if right.Dot(right) < 1e-12 {
		right = mgl32.Vec3{1, 0, 0}
	}
	s.right = right.Normalize()
	s.up = s.right.Cross(s.forward)
	s.halfHeight = float32(math.Tan(float64(mgl32.DegToRad(s.params.VerticalFov)) * 0.5))
	s.halfWidth = s.halfHeight * s.params.Aspect
}

func (s *traceState) invoke(id [3]uint32) {
	x, y := id[0], id[1]
	if x >= s.params.Width || y >= s.params.Height {
		return
	}
	fx := fullResTexel(x, s.params.Width, s.depth.Width())
	fy := fullResTexel(y, s.params.Height, s.depth.Height())
	depth := s.depth.Load(fx, fy, 0)[0]
	primaryMax := float32(traceTFar)
	if depth > 0 {
		primaryMax = depth * 1.001
	}

	pixelIndex := y*s.params.Width + x
	var total mgl32.Vec3
	for i := uint32(0); i < s.sampleCount; i++ {
		sampleIndex := s.params.FrameIndex*s.sampleCount + i
		jitter := s.samples.Offsets[sampleIndex%16]
		rng := pcgHash(pixelIndex ^ pcgHash(sampleIndex+1))
		ndcX := ((float32(x)+0.5+jitter[0])/float32(s.params.Width))*2 - 1
		ndcY := 1 - ((float32(y)+0.5+jitter[1])/float32(s.params.Height))*2
		dir := s.forward.Add(s.right.Mul(ndcX * s.halfWidth)).Add(s.up.Mul(ndcY * s.halfHeight)).Normalize()
		total = total.Add(s.radiance(mgl32.Vec3(s.params.CameraPosition), dir, primaryMax, &rng))
	}
	avg := total.Mul(1 / float32(s.sampleCount))
	s.out.Store(int(x), int(y), 0, [4]float32{avg[0], avg[1], avg[2], 1})
}

func (s *traceState) radiance(origin, dir mgl32.Vec3, primaryMax float32, rng *uint32) mgl32.Vec3 {
	o, d := origin, dir
	throughput := mgl32.Vec3{1, 1, 1}
	albedo := mgl32.Vec3{s.params.Albedo[0], s.params.Albedo[1], s.params.Albedo[2]}
	tMax := primaryMax
	for bounce := uint32(0); bounce < s.params.MaxBounces; bounce++ {
		t, n, ok := s.intersect(o, d, tMax)
		if !ok {
			if tMax < traceTFar {
				return mgl32.Vec3{}
			}
			return hadamard(throughput, s.sky(d))
		}
		tMax = traceTFar
		if n.Dot(d) > 0 {
			n = n.Mul(-1)
		}
		o = o.Add(d.Mul(t))
		if s.params.IsMetal != 0 {
			r := reflect(d, n).Add(randomUnitVector(rng).Mul(s.params.MaterialFuzz))
			if r.Dot(n) <= 0 {
				return mgl32.Vec3{}
			}
			d = r.Normalize()
		} else {
			scatter := n.Add(randomUnitVector(rng))
			if scatter.Dot(scatter) < 1e-12 {
				scatter = n
			}
			d = scatter.Normalize()
		}
		throughput = hadamard(throughput, albedo)
	}
	return mgl32.Vec3{}
}

// intersect walks every mesh range and returns the closest hit in (traceTMin, tMax).
func (s *traceState) intersect(o, d mgl32.Vec3, tMax float32) (float32, mgl32.Vec3, bool) {
	closest := tMax
	var normal mgl32.Vec3
	hit := false
	for _, r := range s.ranges {
		end := min(int(r.EndIndex), len(s.triangles))
		for i := int(r.StartIndex); i < end; i++ {
			tri := &s.triangles[i]
			t, u, v, ok := intersectTriangle(o, d, tri.p0, tri.e1, tri.e2, traceTMin, closest)
			if !ok {
				continue
			}
			closest = t
			w := 1 - u - v
			n := tri.normals[0].Mul(w).Add(tri.normals[1].Mul(u)).Add(tri.normals[2].Mul(v))
			if n.Dot(n) < 1e-12 {
				n = tri.e1.Cross(tri.e2)
			}
			normal = n.Normalize()
			hit = true
		}
	}
	return closest, normal, hit
}

// intersectTriangle is the Möller-Trumbore test of assets/intersect.wgsl with the
// edges precomputed.
func intersectTriangle(o, d, p0, e1, e2 mgl32.Vec3, tMin, tMax float32) (t, u, v float32, ok bool) {
	pv := d.Cross(e2)
	det := e1.Dot(pv)
	if abs32(det) < 1e-6 {
		return 0, 0, 0, false
	}
	invDet := 1 / det
	tv := o.Sub(p0)
	u = tv.Dot(pv) * invDet
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}
	qv := tv.Cross(e1)
	v = d.Dot(qv) * invDet
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}
	t = e2.Dot(qv) * invDet
	if t <= tMin || t >= tMax {
		return 0, 0, 0, false
	}
	return t, u, v, true
}

func (s *traceState) sky(d mgl32.Vec3) mgl32.Vec3 {
	env := s.environment
	switch s.params.EnvironmentKind {
	case EnvironmentKindCubemap:
		u, v, face := cubemapCoords(d)
		c := env.Load(texelIndex(u, env.Width()), texelIndex(v, env.Height()), face)
		return mgl32.Vec3{c[0], c[1], c[2]}
	case EnvironmentKindEquirect:
		u, v := equirectCoords(d)
		c := env.Load(texelIndex(u, env.Width()), texelIndex(v, env.Height()), 0)
		return mgl32.Vec3{c[0], c[1], c[2]}
	default:
		return mgl32.Vec3{}
	}
}
