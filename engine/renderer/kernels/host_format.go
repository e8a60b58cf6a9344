package kernels

import (
	"encoding/binary"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
	"github.com/go-gl/mathgl/mgl32"
)

// formatTrianglesHost is the host implementation of format_triangles.wgsl.
func formatTrianglesHost(p bind_group_provider.BindGroupProvider) (pipeline.Invocation, error) {
	var params GPUFormatParams
	if err := uniform(p, 0, &params); err != nil {
		return nil, err
	}
	vertices, err := hostBytes(p, 1)
	if err != nil {
		return nil, err
	}
	indices, err := hostBytes(p, 2)
	if err != nil {
		return nil, err
	}
	triangles, err := hostBytes(p, 3)
	if err != nil {
		return nil, err
	}
	localToWorld := mgl32.Mat4(params.LocalToWorld)
	normalMatrix := mgl32.Mat4(params.NormalMatrix)

	return func(id [3]uint32) {
		tri := id[0]
		if tri >= params.TriangleCount {
			return
		}
		base := (params.TriangleOffset + tri) * 18
		for corner := uint32(0); corner < 3; corner++ {
			vertex := binary.LittleEndian.Uint32(indices[(tri*3+corner)*4:])
			first := (vertex * params.VertexStride) / 4
			position := readVec3(vertices, first+params.PositionOffset/4)
			normal := readVec3(vertices, first+params.NormalOffset/4)

			wp := localToWorld.Mul4x1(position.Vec4(1)).Vec3()
			wn := safeNormalize(normalMatrix.Mul4x1(normal.Vec4(0)).Vec3())

			writeVec3(triangles, base+corner*3, wp)
			writeVec3(triangles, base+9+corner*3, wn)
		}
	}, nil
}
