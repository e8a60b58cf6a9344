package bind_group_provider

import "github.com/Carmen-Shannon/oxy-trace/engine/renderer/resource"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBuffer sets a buffer for a specific binding index.
//
// Parameters:
//   - binding: the binding index for this buffer
//   - buf: the buffer to associate with this binding
//
// Returns:
//   - BindGroupProviderOption: a function that sets the buffer for the specified binding
func WithBuffer(binding int, buf resource.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = buf
	}
}

// WithTexture sets a texture for a specific binding index.
//
// Parameters:
//   - binding: the binding index for this texture
//   - tex: the texture to associate with this binding
//
// Returns:
//   - BindGroupProviderOption: a function that sets the texture for the specified binding
func WithTexture(binding int, tex resource.Texture) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.textures[binding] = tex
	}
}
