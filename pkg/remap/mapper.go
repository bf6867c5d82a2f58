// Package remap implements inverse-mapping of images through complex
// expressions: per-pixel coordinate mapping with singularity detection and
// quadrant wrap, bilinear resampling, and precomputed lookup tables for
// applying one mapping to many frames.
package remap

import (
	"math"

	"github.com/lemonberrylabs/holomorph/pkg/expr"
)

// SingularityThreshold bounds the real and imaginary parts of a mapped value.
// Beyond it the pixel is rendered with the fallback color.
const SingularityThreshold = 1e6

// Mapper computes source coordinates for output pixels of a W×H image.
// It is safe for concurrent use.
type Mapper struct {
	node   expr.Node
	width  int
	height int
	halfW  float64
	halfH  float64
}

// NewMapper creates a mapper for the given tree and image size.
func NewMapper(node expr.Node, width, height int) *Mapper {
	return &Mapper{
		node:   node,
		width:  width,
		height: height,
		halfW:  half(width),
		halfH:  half(height),
	}
}

// half uses integer division so an odd dimension has a centre pixel that
// maps exactly to zero.
func half(n int) float64 {
	if n/2 == 0 {
		return 1
	}
	return float64(n / 2)
}

// Normalize returns the complex coordinate of pixel (x, y): the centre maps
// to 0 and the edges to roughly ±1.
func (m *Mapper) Normalize(x, y int) complex128 {
	return complex((float64(x)-m.halfW)/m.halfW, (float64(y)-m.halfH)/m.halfH)
}

// Map returns the continuous source coordinate for output pixel (x, y). ok is
// false when the mapped value is singular; the caller then writes the
// fallback color instead of sampling.
func (m *Mapper) Map(x, y int) (sx, sy float64, ok bool) {
	r := expr.Evaluate(m.node, m.Normalize(x, y))
	if IsSingular(r) {
		return 0, 0, false
	}
	origX := real(r)*m.halfW + m.halfW
	origY := imag(r)*m.halfH + m.halfH
	return wrap(origX, m.width), wrap(origY, m.height), true
}

// IsSingular reports whether v is NaN or exceeds SingularityThreshold in
// either component.
func IsSingular(v complex128) bool {
	re, im := real(v), imag(v)
	if math.IsNaN(re) || math.IsNaN(im) {
		return true
	}
	return math.Abs(re) > SingularityThreshold || math.Abs(im) > SingularityThreshold
}

// wrap folds v into [0, n-1] by mirrored tiling: v is reduced modulo 2n and
// the upper copy [n, 2n) is reflected back as n - (v mod n).
func wrap(v float64, n int) float64 {
	size := float64(n)
	e := math.Mod(v, 2*size)
	if e < 0 {
		e += 2 * size
	}
	if e >= 2*size {
		// -tiny + 2n rounds up to 2n
		e = 0
	}
	if e >= size {
		e = size - math.Mod(e, size)
	}
	return clamp(e, 0, size-1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
