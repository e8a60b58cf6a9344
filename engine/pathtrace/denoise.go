package pathtrace

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/kernels"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/resource"
)

// denoiser runs a separable Gaussian blur over the trace-resolution radiance.
type denoiser struct {
	r renderer.Renderer
}

func newDenoiser(r renderer.Renderer) *denoiser {
	return &denoiser{r: r}
}

// blur filters radiance horizontally into a temporary texture, then vertically back.
// A zero radius dispatches nothing.
//
// Parameters:
//   - arena: the frame arena
//   - radius: taps per side
//   - radiance: the texture to filter in place
//
// Returns:
//   - error: a wrapped allocation or dispatch error
func (d *denoiser) blur(arena *FrameArena, radius uint32, radiance resource.Texture) error {
	if radius == 0 {
		return nil
	}
	p := d.r.Pipeline(kernels.BlurKey)
	if p == nil {
		return fmt.Errorf("%w: %s", renderer.ErrKernelNotRegistered, kernels.BlurKey)
	}
	w, h := radiance.Width(), radiance.Height()
	temp, err := arena.Texture(resource.TextureDescriptor{Label: "blur_temp", Width: w, Height: h})
	if err != nil {
		return err
	}

	groups := groupCount(p.Shader().WorkgroupSize(), w, h)
	passes := []struct {
		direction uint32
		src, dst  resource.Texture
	}{
		{kernels.BlurHorizontal, radiance, temp},
		{kernels.BlurVertical, temp, radiance},
	}
	for _, pass := range passes {
		// Each pass owns its uniform. Queue writes are not ordered against dispatches
		// recorded in the same frame.
		gp := kernels.GPUBlurParams{Width: w, Height: h, Radius: radius, Direction: pass.direction}
		uniform, err := arena.Uniform("blur_params", gp.Marshal())
		if err != nil {
			return err
		}
		provider := arena.Provider(kernels.BlurKey,
			bind_group_provider.WithBuffer(0, uniform),
			bind_group_provider.WithTexture(1, pass.src),
			bind_group_provider.WithTexture(2, pass.dst),
		)
		if err := d.r.DispatchCompute(kernels.BlurKey, provider, groups); err != nil {
			return fmt.Errorf("pathtrace: blur: %w", err)
		}
		d.r.Wait()
	}
	return nil
}
