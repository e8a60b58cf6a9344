package common

import (
	"image"
	"image/color"
	"math"
)

// LinearToSRGB applies the IEC 61966-2-1 encoding curve to a linear value clamped to [0, 1].
func LinearToSRGB(c float32) float32 {
	c = min(max(c, 0), 1)
	if c <= 0.0031308 {
		return c * 12.92
	}
	return float32(1.055*math.Pow(float64(c), 1/2.4) - 0.055)
}

// EncodeRGBA8 converts linear RGBA float pixels, row-major from the top row, into an
// opaque sRGB image.
//
// Parameters:
//   - pixels: width*height*4 floats
//   - width, height: image dimensions
//
// Returns:
//   - *image.RGBA: the encoded image; texels beyond len(pixels) stay black
func EncodeRGBA8(pixels []float32, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 4
			if i+3 >= len(pixels) {
				return img
			}
			img.SetRGBA(x, y, color.RGBA{
				R: quantize(LinearToSRGB(pixels[i])),
				G: quantize(LinearToSRGB(pixels[i+1])),
				B: quantize(LinearToSRGB(pixels[i+2])),
				A: 255,
			})
		}
	}
	return img
}

func quantize(c float32) uint8 {
	return uint8(c*255 + 0.5)
}
