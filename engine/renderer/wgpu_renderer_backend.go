package renderer

import (
	"encoding/binary"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// textureRowAlignment is the WebGPU bytes-per-row alignment for texture-buffer copies.
const textureRowAlignment = 256

// minBufferAllocation keeps zero-length buffers bindable; WGSL runtime arrays need at least one element.
const minBufferAllocation = 16

// wgpuRendererBackendImpl is a headless WebGPU compute backend. Presentation is handled
// outside the renderer, so no surface is configured.
type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter

	// frame batches dispatches and copies between BeginComputeFrame and EndComputeFrame
	frame frameBatch[*wgpu.CommandEncoder]
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(forceFallbackAdapter bool) (*wgpuRendererBackendImpl, error) {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:       &sync.Mutex{},
		instance: wgpu.CreateInstance(nil),
	}

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
	})
	if err != nil {
		w.instance.Release()
		return nil, fmt.Errorf("renderer: request adapter: %w", err)
	}
	w.adapter = a

	limits := wgpu.DefaultLimits()

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Trace Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		a.Release()
		w.instance.Release()
		return nil, fmt.Errorf("renderer: request device: %w", err)
	}
	w.device = d
	w.queue = d.GetQueue()
	w.frame = frameBatch[*wgpu.CommandEncoder]{
		open:    func() (*wgpu.CommandEncoder, error) { return w.device.CreateCommandEncoder(nil) },
		submit:  w.submit,
		discard: func(encoder *wgpu.CommandEncoder) { encoder.Release() },
	}

	return w, nil
}

func (b *wgpuRendererBackendImpl) RegisterComputePipeline(p pipeline.Pipeline) error {
	computeShader := p.Shader()
	s, err := b.device.CreateShaderModule(computeShader.Module())
	if err != nil {
		return err
	}
	defer s.Release()

	desc := computeShader.BindGroupLayoutDescriptor(0)
	desc.Label = p.PipelineKey() + " Bind Group Layout"
	bgl, err := b.device.CreateBindGroupLayout(&desc)
	if err != nil {
		return fmt.Errorf("failed to create bind group layout: %w", err)
	}

	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		bgl.Release()
		return err
	}
	defer layout.Release()

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  p.PipelineKey() + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     s,
			EntryPoint: computeShader.EntryPoint(),
		},
	})
	if err != nil {
		bgl.Release()
		return err
	}

	p.SetComputePipeline(created, bgl)
	return nil
}

func (b *wgpuRendererBackendImpl) CreateBuffer(label string, size uint64, usage resource.BufferUsage, onRelease func()) (resource.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	alloc := max(size, minBufferAllocation)
	alloc = (alloc + 3) &^ 3
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  alloc,
		Usage: toWGPUBufferUsage(usage),
	})
	if err != nil {
		return nil, err
	}
	return resource.NewGPUBuffer(label, size, usage, buf, onRelease), nil
}

func (b *wgpuRendererBackendImpl) CreateTexture(desc resource.TextureDescriptor, onRelease func()) (resource.Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	layers := max(desc.Layers, 1)
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Usage: wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding |
			wgpu.TextureUsageCopySrc | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: layers,
		},
		Format:        wgpu.TextureFormatRGBA32Float,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}

	dimension := wgpu.TextureViewDimension2D
	if desc.Array || layers > 1 {
		dimension = wgpu.TextureViewDimension2DArray
	}
	view, err := tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           desc.Label + " View",
		Format:          wgpu.TextureFormatRGBA32Float,
		Dimension:       dimension,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: layers,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		tex.Release()
		return nil, err
	}
	return resource.NewGPUTexture(desc, tex, view, onRelease), nil
}

func (b *wgpuRendererBackendImpl) WriteBuffer(buf resource.Buffer, offset uint64, data []byte) error {
	gb, ok := buf.(resource.GPUBuffer)
	if !ok {
		return ErrWrongBackend
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	// queue writes land before any later submit, so recorded work goes first
	if err := b.frame.flush(); err != nil {
		return err
	}

	// queue writes must be 4-byte multiples
	if rem := len(data) % 4; rem != 0 {
		padded := make([]byte, len(data)+4-rem)
		copy(padded, data)
		data = padded
	}
	b.queue.WriteBuffer(gb.Raw(), offset, data)
	return nil
}

func (b *wgpuRendererBackendImpl) WriteTexture(tex resource.Texture, layer uint32, pixels []float32) error {
	gt, ok := tex.(resource.GPUTexture)
	if !ok {
		return ErrWrongBackend
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.frame.flush(); err != nil {
		return err
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  gt.Raw(),
			MipLevel: 0,
			Origin:   wgpu.Origin3D{X: 0, Y: 0, Z: layer},
			Aspect:   wgpu.TextureAspectAll,
		},
		float32sToBytes(pixels),
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  gt.Width() * 16,
			RowsPerImage: gt.Height(),
		},
		&wgpu.Extent3D{
			Width:              gt.Width(),
			Height:             gt.Height(),
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

func (b *wgpuRendererBackendImpl) CopyTexture(src, dst resource.Texture) error {
	gs, ok := src.(resource.GPUTexture)
	if !ok {
		return ErrWrongBackend
	}
	gd, ok := dst.(resource.GPUTexture)
	if !ok {
		return ErrWrongBackend
	}
	return b.record(func(encoder *wgpu.CommandEncoder) {
		encoder.CopyTextureToTexture(
			&wgpu.ImageCopyTexture{Texture: gs.Raw(), Aspect: wgpu.TextureAspectAll},
			&wgpu.ImageCopyTexture{Texture: gd.Raw(), Aspect: wgpu.TextureAspectAll},
			&wgpu.Extent3D{Width: gs.Width(), Height: gs.Height(), DepthOrArrayLayers: gs.Layers()},
		)
	})
}

// ReadTexture copies the texture into a mappable staging buffer, blocks until the map
// completes, and strips the row padding required by the copy.
func (b *wgpuRendererBackendImpl) ReadTexture(tex resource.Texture) ([]float32, error) {
	gt, ok := tex.(resource.GPUTexture)
	if !ok {
		return nil, ErrWrongBackend
	}
	width, height, layers := gt.Width(), gt.Height(), gt.Layers()
	rowBytes := width * 16
	paddedRow := (rowBytes + textureRowAlignment - 1) &^ (textureRowAlignment - 1)
	size := uint64(paddedRow) * uint64(height) * uint64(layers)

	b.mu.Lock()
	staging, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: gt.Label() + " Readback",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	defer staging.Release()

	b.mu.Lock()
	err = b.frame.record(func(encoder *wgpu.CommandEncoder) {
		encoder.CopyTextureToBuffer(
			&wgpu.ImageCopyTexture{Texture: gt.Raw(), Aspect: wgpu.TextureAspectAll},
			&wgpu.ImageCopyBuffer{
				Buffer: staging,
				Layout: wgpu.TextureDataLayout{
					Offset:       0,
					BytesPerRow:  paddedRow,
					RowsPerImage: height,
				},
			},
			&wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: layers},
		)
	})
	if err == nil {
		err = b.frame.flush()
	}
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var mapStatus wgpu.BufferMapAsyncStatus
	mapped := false
	staging.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		mapStatus = status
		mapped = true
	})
	for !mapped {
		b.device.Poll(true, nil)
	}
	if mapStatus != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("map %s: status %v", gt.Label(), mapStatus)
	}
	defer staging.Unmap()

	raw := staging.GetMappedRange(0, uint(size))
	out := make([]float32, 0, int(width)*int(height)*int(layers)*4)
	for row := uint32(0); row < height*layers; row++ {
		start := int(row) * int(paddedRow)
		out = append(out, bytesToFloat32s(raw[start:start+int(rowBytes)])...)
	}
	return out, nil
}

func (b *wgpuRendererBackendImpl) BeginComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frame.begin()
}

func (b *wgpuRendererBackendImpl) EndComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frame.end()
}

func (b *wgpuRendererBackendImpl) DispatchCompute(
	p pipeline.Pipeline,
	provider bind_group_provider.BindGroupProvider,
	workGroupCount [3]uint32,
) error {
	computePipeline, ok := p.Pipeline().(*wgpu.ComputePipeline)
	if !ok || computePipeline == nil {
		return fmt.Errorf("pipeline %s has no wgpu compute pipeline", p.PipelineKey())
	}
	bindGroup, err := b.bindGroup(p, provider)
	if err != nil {
		return err
	}

	return b.record(func(encoder *wgpu.CommandEncoder) {
		pass := encoder.BeginComputePass(nil)
		pass.SetPipeline(computePipeline)
		pass.SetBindGroup(0, bindGroup, nil)
		pass.DispatchWorkgroups(workGroupCount[0], workGroupCount[1], workGroupCount[2])
		pass.End()
	})
}

// Wait submits whatever the open frame has recorded, then blocks until the queue
// drains. A submit failure is reported by EndComputeFrame.
func (b *wgpuRendererBackendImpl) Wait() {
	b.mu.Lock()
	_ = b.frame.flush()
	b.mu.Unlock()
	b.device.Poll(true, nil)
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frame.release()
	b.queue = nil
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// record runs fn against the open compute frame encoder, or against a one-shot encoder
// that is submitted immediately when no frame is open.
func (b *wgpuRendererBackendImpl) record(fn func(encoder *wgpu.CommandEncoder)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frame.record(fn)
}

// submit finishes and submits an encoder, releasing it either way. Callers hold b.mu.
func (b *wgpuRendererBackendImpl) submit(encoder *wgpu.CommandEncoder) error {
	defer encoder.Release()
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

// bindGroup returns the provider's cached bind group, building it from the kernel's
// declared bindings on first use.
func (b *wgpuRendererBackendImpl) bindGroup(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider) (*wgpu.BindGroup, error) {
	if bg, ok := provider.BindGroup().(*wgpu.BindGroup); ok && bg != nil {
		return bg, nil
	}

	declared := p.Shader().Bindings(0)
	entries := make([]wgpu.BindGroupEntry, 0, len(declared))
	for _, d := range declared {
		switch d.Kind {
		case shader.BindingKindTexture, shader.BindingKindStorageTexture:
			gt, ok := provider.Texture(d.Index).(resource.GPUTexture)
			if !ok {
				return nil, ErrWrongBackend
			}
			entries = append(entries, wgpu.BindGroupEntry{
				Binding:     uint32(d.Index),
				TextureView: gt.View(),
			})
		default:
			gb, ok := provider.Buffer(d.Index).(resource.GPUBuffer)
			if !ok {
				return nil, ErrWrongBackend
			}
			entries = append(entries, wgpu.BindGroupEntry{
				Binding: uint32(d.Index),
				Buffer:  gb.Raw(),
				Offset:  0,
				Size:    wgpu.WholeSize,
			})
		}
	}

	b.mu.Lock()
	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  p.BindGroupLayout(),
		Entries: entries,
	})
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	provider.SetBindGroup(bg, bg.Release)
	return bg, nil
}

// toWGPUBufferUsage maps resource usage flags to wgpu buffer usage flags.
func toWGPUBufferUsage(usage resource.BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	if usage&resource.BufferUsageUniform != 0 {
		out |= wgpu.BufferUsageUniform
	}
	if usage&resource.BufferUsageStorage != 0 {
		out |= wgpu.BufferUsageStorage
	}
	if usage&resource.BufferUsageCopySrc != 0 {
		out |= wgpu.BufferUsageCopySrc
	}
	if usage&resource.BufferUsageCopyDst != 0 {
		out |= wgpu.BufferUsageCopyDst
	}
	return out
}

func float32sToBytes(values []float32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32s(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}
