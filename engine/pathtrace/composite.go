package pathtrace

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/kernels"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/resource"
)

// compositor upsamples the radiance to full resolution and blends it over the scene color.
type compositor struct {
	r renderer.Renderer
}

func newCompositor(r renderer.Renderer) *compositor {
	return &compositor{r: r}
}

// composite writes blend(color, upsample(radiance)) into color.
//
// Parameters:
//   - arena: the frame arena
//   - cfg: the frame configuration
//   - radiance: the trace-resolution radiance
//   - color: the host color target, read and overwritten
//
// Returns:
//   - error: a wrapped allocation, dispatch or copy error
func (c *compositor) composite(arena *FrameArena, cfg Config, radiance, color resource.Texture) error {
	up := c.r.Pipeline(kernels.UpsampleKey)
	if up == nil {
		return fmt.Errorf("%w: %s", renderer.ErrKernelNotRegistered, kernels.UpsampleKey)
	}
	comp := c.r.Pipeline(kernels.CompositeKey)
	if comp == nil {
		return fmt.Errorf("%w: %s", renderer.ErrKernelNotRegistered, kernels.CompositeKey)
	}
	w, h := color.Width(), color.Height()

	upscaled, err := arena.Texture(resource.TextureDescriptor{Label: "upscale_target", Width: w, Height: h})
	if err != nil {
		return err
	}
	upParams := kernels.GPUUpsampleParams{
		SrcWidth:  radiance.Width(),
		SrcHeight: radiance.Height(),
		DstWidth:  w,
		DstHeight: h,
		Mode:      cfg.Interpolation.kernelMode(),
	}
	upUniform, err := arena.Uniform("upsample_params", upParams.Marshal())
	if err != nil {
		return err
	}
	upProvider := arena.Provider(kernels.UpsampleKey,
		bind_group_provider.WithBuffer(0, upUniform),
		bind_group_provider.WithTexture(1, radiance),
		bind_group_provider.WithTexture(2, upscaled),
	)
	if err := c.r.DispatchCompute(kernels.UpsampleKey, upProvider, groupCount(up.Shader().WorkgroupSize(), w, h)); err != nil {
		return fmt.Errorf("pathtrace: upsample: %w", err)
	}
	c.r.Wait()

	sceneCopy, err := arena.Texture(resource.TextureDescriptor{Label: "scene_color_copy", Width: w, Height: h})
	if err != nil {
		return err
	}
	if err := c.r.CopyTexture(color, sceneCopy); err != nil {
		return fmt.Errorf("pathtrace: copy scene color: %w", err)
	}
	output, err := arena.Texture(resource.TextureDescriptor{Label: "composite_output", Width: w, Height: h})
	if err != nil {
		return err
	}
	compParams := kernels.GPUCompositeParams{
		Width:     w,
		Height:    h,
		Mode:      cfg.Composite.kernelMode(),
		Intensity: cfg.CompositeIntensity,
	}
	compUniform, err := arena.Uniform("composite_params", compParams.Marshal())
	if err != nil {
		return err
	}
	compProvider := arena.Provider(kernels.CompositeKey,
		bind_group_provider.WithBuffer(0, compUniform),
		bind_group_provider.WithTexture(1, sceneCopy),
		bind_group_provider.WithTexture(2, upscaled),
		bind_group_provider.WithTexture(3, output),
	)
	if err := c.r.DispatchCompute(kernels.CompositeKey, compProvider, groupCount(comp.Shader().WorkgroupSize(), w, h)); err != nil {
		return fmt.Errorf("pathtrace: composite: %w", err)
	}
	c.r.Wait()

	if err := c.r.CopyTexture(output, color); err != nil {
		return fmt.Errorf("pathtrace: write color target: %w", err)
	}
	return nil
}
