package pathtrace

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/game_object"
	"github.com/Carmen-Shannon/oxy-trace/engine/model"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/kernels"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/resource"
)

// SceneBuffers is the flattened geometry of one frame.
type SceneBuffers struct {
	// Triangles holds TriangleCount world-space model.GPUTriangle records.
	Triangles resource.Buffer

	// Ranges holds one model.GPUMeshRange per instance, in enumeration order.
	Ranges resource.Buffer

	// MeshRanges mirrors Ranges on the host.
	MeshRanges []model.GPUMeshRange

	TriangleCount uint32
}

// Assembler flattens renderable instances into one world-space triangle buffer.
type Assembler struct {
	r renderer.Renderer
}

// NewAssembler creates an Assembler dispatching the format_triangles kernel on r.
func NewAssembler(r renderer.Renderer) *Assembler {
	return &Assembler{r: r}
}

// Renderable filters instances down to enabled objects carrying a model, keeping order.
func Renderable(instances []game_object.GameObject) []game_object.GameObject {
	out := make([]game_object.GameObject, 0, len(instances))
	for _, obj := range instances {
		if obj != nil && obj.Renderable() {
			out = append(out, obj)
		}
	}
	return out
}

// Assemble allocates the frame's triangle buffer and fills it with one format_triangles
// dispatch per non-empty mesh. Per-mesh staging buffers are released right after
// their dispatch; the returned buffers stay in the arena until the frame ends.
//
// Parameters:
//   - arena: the frame arena
//   - instances: renderable instances in enumeration order
//
// Returns:
//   - *SceneBuffers: the filled buffers and the host mesh range table
//   - error: a wrapped allocation or dispatch error
func (a *Assembler) Assemble(arena *FrameArena, instances []game_object.GameObject) (*SceneBuffers, error) {
	total := 0
	for _, obj := range instances {
		total += obj.Model().TriangleCount()
	}

	triangles, err := arena.Buffer("scene_triangles", uint64(total)*model.GPUTriangleSize,
		resource.BufferUsageStorage|resource.BufferUsageCopySrc)
	if err != nil {
		return nil, err
	}

	p := a.r.Pipeline(kernels.FormatTrianglesKey)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", renderer.ErrKernelNotRegistered, kernels.FormatTrianglesKey)
	}
	groupX := max(p.Shader().WorkgroupSize()[0], 1)

	ranges := make([]model.GPUMeshRange, 0, len(instances))
	offset := uint32(0)
	for _, obj := range instances {
		mdl := obj.Model()
		count := uint32(mdl.TriangleCount())
		ranges = append(ranges, model.GPUMeshRange{StartIndex: offset, EndIndex: offset + count})
		if count == 0 {
			continue
		}
		if err := a.formatMesh(arena, triangles, obj, offset, count, groupX); err != nil {
			return nil, fmt.Errorf("pathtrace: assemble %s: %w", mdl.Name(), err)
		}
		offset += count
	}

	rangeBuf, err := arena.Upload("mesh_ranges", resource.BufferUsageStorage, model.MarshalMeshRanges(ranges))
	if err != nil {
		return nil, err
	}

	return &SceneBuffers{
		Triangles:     triangles,
		Ranges:        rangeBuf,
		MeshRanges:    ranges,
		TriangleCount: offset,
	}, nil
}

func (a *Assembler) formatMesh(arena *FrameArena, triangles resource.Buffer, obj game_object.GameObject, offset, count, groupX uint32) error {
	mdl := obj.Model()
	localToWorld := obj.Transform()
	params := kernels.GPUFormatParams{
		LocalToWorld:   localToWorld,
		NormalMatrix:   localToWorld.Inv().Transpose(),
		TriangleOffset: offset,
		TriangleCount:  count,
		VertexStride:   mdl.VertexStride(),
		PositionOffset: model.PositionOffset,
		NormalOffset:   model.NormalOffset,
	}

	vertices, err := arena.Upload("staging_vertices", resource.BufferUsageStorage, mdl.VertexData())
	if err != nil {
		return err
	}
	indices, err := arena.Upload("staging_indices", resource.BufferUsageStorage, mdl.IndexData())
	if err != nil {
		return err
	}
	uniform, err := arena.Uniform("format_params", params.Marshal())
	if err != nil {
		return err
	}
	provider := arena.Provider("format_triangles",
		bind_group_provider.WithBuffer(0, uniform),
		bind_group_provider.WithBuffer(1, vertices),
		bind_group_provider.WithBuffer(2, indices),
		bind_group_provider.WithBuffer(3, triangles),
	)

	groups := common.CeilDiv(count, groupX)
	if err := a.r.DispatchCompute(kernels.FormatTrianglesKey, provider, [3]uint32{groups, 1, 1}); err != nil {
		return err
	}
	a.r.Wait()
	arena.ReleaseNow(provider, uniform, indices, vertices)
	return nil
}
