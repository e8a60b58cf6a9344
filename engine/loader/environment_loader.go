package loader

import (
	"fmt"
	"image"
	"math"
	"os"

	// Decoders registered for image.Decode.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"

	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
)

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func loadProbe(path string) (scene.Environment, error) {
	img, err := decodeImage(path)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return scene.NewProbeEnvironment(uint32(b.Dx()), uint32(b.Dy()), linearPixels(toRGBA64(img)))
}

// loadCubemap decodes six faces and resamples them to a common square size.
func loadCubemap(paths [6]string, size uint32) (scene.Environment, error) {
	var images [6]image.Image
	for i, p := range paths {
		img, err := decodeImage(p)
		if err != nil {
			return nil, err
		}
		images[i] = img
		if size == 0 {
			b := img.Bounds()
			size = uint32(max(b.Dx(), b.Dy()))
		}
	}
	var faces [6][]float32
	for i, img := range images {
		faces[i] = linearPixels(resampleFace(img, int(size)))
	}
	return scene.NewCubemapEnvironment(size, faces)
}

// resampleFace scales img onto a size x size canvas unless it already fits.
func resampleFace(img image.Image, size int) *image.RGBA64 {
	if b := img.Bounds(); b.Dx() == size && b.Dy() == size {
		return toRGBA64(img)
	}
	dst := image.NewRGBA64(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}

func toRGBA64(img image.Image) *image.RGBA64 {
	if rgba, ok := img.(*image.RGBA64); ok {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA64(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	return dst
}

// linearPixels converts an sRGB image into linear RGBA floats, row-major from the top row.
// Alpha stays linear.
func linearPixels(img *image.RGBA64) []float32 {
	b := img.Bounds()
	out := make([]float32, 0, b.Dx()*b.Dy()*4)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.RGBA64At(x, y)
			a := float32(c.A) / 0xffff
			r, g, bl := unpremultiply(c.R, c.A), unpremultiply(c.G, c.A), unpremultiply(c.B, c.A)
			out = append(out, srgbToLinear(r), srgbToLinear(g), srgbToLinear(bl), a)
		}
	}
	return out
}

func unpremultiply(v, a uint16) float32 {
	if a == 0 {
		return 0
	}
	return float32(v) / float32(a)
}

// srgbToLinear applies the IEC 61966-2-1 decoding curve.
func srgbToLinear(c float32) float32 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return float32(math.Pow((float64(c)+0.055)/1.055, 2.4))
}
