package renderer

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/resource"
)

// softwareRendererBackend runs host kernels on a worker pool. Each dispatch is executed
// to completion before DispatchCompute returns, so submission order is execution order
// and Wait has nothing to wait for.
type softwareRendererBackend struct {
	pool       worker.DynamicWorkerPool
	mu         sync.Mutex
	nextTaskID int
}

var _ RendererBackend = &softwareRendererBackend{}

func newSoftwareRendererBackend(workers int) *softwareRendererBackend {
	if workers < 1 {
		workers = defaultWorkerCount()
	}
	return &softwareRendererBackend{
		pool: worker.NewDynamicWorkerPool(workers, 256, 1*time.Second),
	}
}

func (b *softwareRendererBackend) RegisterComputePipeline(p pipeline.Pipeline) error {
	if p.HostKernel() == nil {
		return fmt.Errorf("pipeline %s has no host kernel", p.PipelineKey())
	}
	return nil
}

func (b *softwareRendererBackend) CreateBuffer(label string, size uint64, usage resource.BufferUsage, onRelease func()) (resource.Buffer, error) {
	return resource.NewHostBuffer(label, size, usage, onRelease), nil
}

func (b *softwareRendererBackend) CreateTexture(desc resource.TextureDescriptor, onRelease func()) (resource.Texture, error) {
	return resource.NewHostTexture(desc, onRelease), nil
}

func (b *softwareRendererBackend) WriteBuffer(buf resource.Buffer, offset uint64, data []byte) error {
	hb, ok := buf.(resource.HostBuffer)
	if !ok {
		return ErrWrongBackend
	}
	copy(hb.Bytes()[offset:], data)
	return nil
}

func (b *softwareRendererBackend) WriteTexture(tex resource.Texture, layer uint32, pixels []float32) error {
	ht, ok := tex.(resource.HostTexture)
	if !ok {
		return ErrWrongBackend
	}
	start := int(layer) * len(pixels)
	copy(ht.Pixels()[start:start+len(pixels)], pixels)
	return nil
}

func (b *softwareRendererBackend) CopyTexture(src, dst resource.Texture) error {
	hs, ok := src.(resource.HostTexture)
	if !ok {
		return ErrWrongBackend
	}
	hd, ok := dst.(resource.HostTexture)
	if !ok {
		return ErrWrongBackend
	}
	copy(hd.Pixels(), hs.Pixels())
	return nil
}

func (b *softwareRendererBackend) ReadTexture(tex resource.Texture) ([]float32, error) {
	ht, ok := tex.(resource.HostTexture)
	if !ok {
		return nil, ErrWrongBackend
	}
	out := make([]float32, len(ht.Pixels()))
	copy(out, ht.Pixels())
	return out, nil
}

func (b *softwareRendererBackend) BeginComputeFrame() error {
	return nil
}

func (b *softwareRendererBackend) EndComputeFrame() error {
	return nil
}

// DispatchCompute submits one pool task per workgroup and blocks on a barrier until all
// of them have run. A panicking invocation fails the dispatch instead of the process.
func (b *softwareRendererBackend) DispatchCompute(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error {
	invoke, err := p.HostKernel()(provider)
	if err != nil {
		return err
	}
	size := p.Shader().WorkgroupSize()

	b.mu.Lock()
	defer b.mu.Unlock()

	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)
	for gz := uint32(0); gz < workGroupCount[2]; gz++ {
		for gy := uint32(0); gy < workGroupCount[1]; gy++ {
			for gx := uint32(0); gx < workGroupCount[0]; gx++ {
				base := [3]uint32{gx * size[0], gy * size[1], gz * size[2]}
				wg.Add(1)
				id := b.nextTaskID
				b.nextTaskID++
				b.pool.SubmitTask(worker.Task{
					ID:      id,
					Payload: base,
					Do: func() (_ any, err error) {
						defer wg.Done()
						defer func() {
							if rec := recover(); rec != nil {
								errMu.Lock()
								if firstErr == nil {
									firstErr = fmt.Errorf("workgroup %v: %v", base, rec)
								}
								errMu.Unlock()
							}
						}()
						for lz := uint32(0); lz < size[2]; lz++ {
							for ly := uint32(0); ly < size[1]; ly++ {
								for lx := uint32(0); lx < size[0]; lx++ {
									invoke([3]uint32{base[0] + lx, base[1] + ly, base[2] + lz})
								}
							}
						}
						return nil, nil
					},
				})
			}
		}
	}
	wg.Wait()
	return firstErr
}

func (b *softwareRendererBackend) Wait() {}

func (b *softwareRendererBackend) Release() {
	b.pool.Stop()
}
