package remap

import (
	"math"

	"github.com/lemonberrylabs/holomorph/pkg/types"
)

// Bilinear samples img at the continuous coordinate (x, y) by blending the
// four neighbouring pixels, horizontally first and then vertically. Each
// blend truncates to the 8-bit channel value. Coordinates are clipped to the
// image so no read goes out of bounds.
func Bilinear(img *types.Image, x, y float64) [3]byte {
	x = clamp(x, 0, float64(img.Width-1))
	y = clamp(y, 0, float64(img.Height-1))

	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	x1 := min(x0+1, img.Width-1)
	y1 := min(y0+1, img.Height-1)

	wx := x - float64(x0)
	wy := y - float64(y0)

	p00 := img.At(x0, y0)
	p10 := img.At(x1, y0)
	p01 := img.At(x0, y1)
	p11 := img.At(x1, y1)

	var out [3]byte
	for c := 0; c < types.BytesPerPixel; c++ {
		top := lerp(p00[c], p10[c], wx)
		bottom := lerp(p01[c], p11[c], wx)
		out[c] = lerp(top, bottom, wy)
	}
	return out
}

// lerp truncates rather than rounds.
func lerp(a, b byte, w float64) byte {
	return byte((1-w)*float64(a) + w*float64(b))
}
