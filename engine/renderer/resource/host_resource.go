package resource

// HostBuffer is a Buffer backed by host memory, used by the software backend.
type HostBuffer interface {
	Buffer

	// Bytes returns the backing memory. The slice is nil once the buffer is released.
	Bytes() []byte
}

// HostTexture is a Texture backed by host memory, used by the software backend.
// Texels are stored as RGBA float32 quadruples, layer-major then row-major.
type HostTexture interface {
	Texture

	// Pixels returns the backing texel memory. The slice is nil once the texture is released.
	Pixels() []float32

	// Load returns the texel at (x, y) in the given layer, clamping coordinates to the edge.
	Load(x, y, layer int) [4]float32

	// Store writes the texel at (x, y) in the given layer. Out-of-range coordinates are ignored.
	Store(x, y, layer int, v [4]float32)
}

type hostBuffer struct {
	releaser
	label string
	usage BufferUsage
	size  uint64
	data  []byte
}

var _ HostBuffer = &hostBuffer{}

// NewHostBuffer allocates a zeroed host buffer.
//
// Parameters:
//   - label: a debug label
//   - size: the size in bytes
//   - usage: the usage flags
//   - onRelease: called once when the buffer is released, may be nil
//
// Returns:
//   - HostBuffer: the allocated buffer
func NewHostBuffer(label string, size uint64, usage BufferUsage, onRelease func()) HostBuffer {
	return &hostBuffer{
		releaser: releaser{onRelease: onRelease},
		label:    label,
		usage:    usage,
		size:     size,
		data:     make([]byte, size),
	}
}

func (b *hostBuffer) Label() string      { return b.label }
func (b *hostBuffer) Size() uint64       { return b.size }
func (b *hostBuffer) Usage() BufferUsage { return b.usage }
func (b *hostBuffer) Released() bool     { return b.isReleased() }

func (b *hostBuffer) Bytes() []byte {
	if b.isReleased() {
		return nil
	}
	return b.data
}

func (b *hostBuffer) Release() {
	b.release(func() { b.data = nil })
}

type hostTexture struct {
	releaser
	label  string
	width  int
	height int
	layers int
	array  bool
	pixels []float32
}

var _ HostTexture = &hostTexture{}

// NewHostTexture allocates a zeroed host texture.
//
// Parameters:
//   - desc: the texture descriptor
//   - onRelease: called once when the texture is released, may be nil
//
// Returns:
//   - HostTexture: the allocated texture
func NewHostTexture(desc TextureDescriptor, onRelease func()) HostTexture {
	layers := normalizeLayers(desc.Layers)
	return &hostTexture{
		releaser: releaser{onRelease: onRelease},
		label:    desc.Label,
		width:    int(desc.Width),
		height:   int(desc.Height),
		layers:   int(layers),
		array:    arrayView(desc),
		pixels:   make([]float32, int(desc.Width)*int(desc.Height)*int(layers)*4),
	}
}

func (t *hostTexture) Label() string  { return t.label }
func (t *hostTexture) Width() uint32  { return uint32(t.width) }
func (t *hostTexture) Height() uint32 { return uint32(t.height) }
func (t *hostTexture) Layers() uint32 { return uint32(t.layers) }
func (t *hostTexture) IsArray() bool  { return t.array }
func (t *hostTexture) Released() bool { return t.isReleased() }

func (t *hostTexture) Pixels() []float32 {
	if t.isReleased() {
		return nil
	}
	return t.pixels
}

func (t *hostTexture) Load(x, y, layer int) [4]float32 {
	x = min(max(x, 0), t.width-1)
	y = min(max(y, 0), t.height-1)
	layer = min(max(layer, 0), t.layers-1)
	i := ((layer*t.height+y)*t.width + x) * 4
	return [4]float32{t.pixels[i], t.pixels[i+1], t.pixels[i+2], t.pixels[i+3]}
}

func (t *hostTexture) Store(x, y, layer int, v [4]float32) {
	if x < 0 || y < 0 || layer < 0 || x >= t.width || y >= t.height || layer >= t.layers {
		return
	}
	i := ((layer*t.height+y)*t.width + x) * 4
	copy(t.pixels[i:i+4], v[:])
}

func (t *hostTexture) Release() {
	t.release(func() { t.pixels = nil })
}
