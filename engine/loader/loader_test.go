package loader

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

const quadOBJ = `# unit quad
v -1 0 -1
v 1 0 -1
v 1 0 1
v -1 0 1
vn 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
f 1/1/1 4/4/1 3/3/1 2/2/1
`

func TestLoadReaderTriangulatesPolygons(t *testing.T) {
	l := NewLoader(BackendTypeOBJ)
	m, err := l.LoadReader("quad", strings.NewReader(quadOBJ))
	if err != nil {
		t.Fatalf("LoadReader() error = %v", err)
	}
	if got := m.TriangleCount(); got != 2 {
		t.Fatalf("TriangleCount() = %d, want 2", got)
	}
	if got := len(m.Vertices()); got != 4 {
		t.Errorf("len(Vertices()) = %d, want 4 shared corners", got)
	}
	want := []uint32{0, 1, 2, 0, 2, 3}
	for i, idx := range m.Indices() {
		if idx != want[i] {
			t.Fatalf("Indices() = %v, want %v", m.Indices(), want)
		}
	}
	if n := mgl32.Vec3(m.Vertices()[0].Normal); !n.ApproxEqual(mgl32.Vec3{0, 1, 0}) {
		t.Errorf("normal = %v, want +Y", n)
	}
	if l.Get("quad") != m {
		t.Error("Get() did not return the cached model")
	}
}

func TestLoadReaderFaceNormalsAndNegativeIndices(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf -3 -2 -1\n"
	m, err := NewLoader(BackendTypeOBJ).LoadReader("tri", strings.NewReader(src))
	if err != nil {
		t.Fatalf("LoadReader() error = %v", err)
	}
	if m.TriangleCount() != 1 {
		t.Fatalf("TriangleCount() = %d, want 1", m.TriangleCount())
	}
	for i, v := range m.Vertices() {
		if n := mgl32.Vec3(v.Normal); !n.ApproxEqual(mgl32.Vec3{0, 0, 1}) {
			t.Errorf("vertex %d normal = %v, want +Z", i, n)
		}
	}
}

func TestLoadReaderErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"out of range", "v 0 0 0\nf 1 2 3\n"},
		{"two corners", "v 0 0 0\nv 1 0 0\nf 1 2\n"},
		{"bad float", "v 0 x 0\n"},
	}
	for i, tt := range tests {
		if _, err := NewLoader(BackendTypeOBJ).LoadReader(tt.name, strings.NewReader(tt.src)); err == nil {
			t.Errorf("[case %d] %s: expected an error", i, tt.name)
		}
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	if _, err := NewLoader(BackendTypeOBJ).Load("mesh.fbx"); err == nil {
		t.Fatal("expected an unsupported format error")
	}
}

func writePNG(t *testing.T, dir, name string, size int, c color.NRGBA) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadEnvironmentCubemap(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 6; i++ {
		size := 4
		if i == 3 {
			size = 2
		}
		paths = append(paths, writePNG(t, dir, "face"+string(rune('0'+i))+".png", size, color.NRGBA{R: 255, B: 0, A: 255}))
	}

	r, err := renderer.NewRenderer(renderer.BackendTypeSoftware)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Release()

	env, err := NewLoader(BackendTypeOBJ, WithRenderer(r)).LoadEnvironment(paths...)
	if err != nil {
		t.Fatalf("LoadEnvironment() error = %v", err)
	}
	defer env.Release()
	if env.Kind() != scene.EnvironmentKindCubemap || env.Width() != 4 {
		t.Fatalf("environment = %s %dx%d, want a 4x4 cubemap", env.Kind(), env.Width(), env.Height())
	}
	if !env.Available() || env.Texture() == nil {
		t.Fatal("environment was not baked")
	}
	px, err := r.ReadTexture(env.Texture())
	if err != nil {
		t.Fatal(err)
	}
	if len(px) != 6*4*4*4 {
		t.Fatalf("len(pixels) = %d", len(px))
	}
	if px[0] < 0.99 || px[2] != 0 {
		t.Errorf("first texel = %v, want linear red", px[:4])
	}
}

func TestLoadEnvironmentProbe(t *testing.T) {
	path := writePNG(t, t.TempDir(), "probe.png", 3, color.NRGBA{R: 188, G: 188, B: 188, A: 255})
	env, err := NewLoader(BackendTypeOBJ).LoadEnvironment(path)
	if err != nil {
		t.Fatalf("LoadEnvironment() error = %v", err)
	}
	if env.Kind() != scene.EnvironmentKindProbe || env.Available() {
		t.Errorf("environment = %s available=%t, want an unbaked probe", env.Kind(), env.Available())
	}
	if _, err := NewLoader(BackendTypeOBJ).LoadEnvironment(path, path); err == nil {
		t.Error("two images should be rejected")
	}
}

func TestSRGBToLinear(t *testing.T) {
	tests := []struct{ in, want float32 }{
		{0, 0},
		{1, 1},
		{0.04045, 0.04045 / 12.92},
		{0.5, 0.21404},
	}
	for _, tt := range tests {
		if got := srgbToLinear(tt.in); mgl32.Abs(got-tt.want) > 1e-4 {
			t.Errorf("srgbToLinear(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
