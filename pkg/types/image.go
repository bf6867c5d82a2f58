// Package types defines the image buffer and error types shared by the
// expression parser, the remapping engine and the transports built on them.
package types

import "fmt"

// BytesPerPixel is the number of bytes of one RGB pixel.
const BytesPerPixel = 3

// MaxPixels bounds the area of any image the engine allocates. It keeps
// lookup table indices well inside int32 and an RGB buffer under 192 MiB.
const MaxPixels = 1 << 26

// Black is the color written for pixels whose mapping hits a singularity.
var Black = [3]byte{0, 0, 0}

// Image is a dense row-major RGB buffer with no row padding.
type Image struct {
	Width  int
	Height int
	Pix    []byte
}

// NewImage allocates a black image of the given size.
func NewImage(width, height int) *Image {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("types: negative image size %dx%d", width, height))
	}
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*BytesPerPixel),
	}
}

// CheckSize rejects negative sizes with a DimensionError and sizes whose
// area exceeds MaxPixels with ErrTooLarge.
func CheckSize(width, height int) error {
	if width < 0 || height < 0 {
		return NewDimensionError(width, height, 0)
	}
	// Compare each side first so the product cannot overflow.
	if width > MaxPixels || height > MaxPixels || width*height > MaxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, width, height, MaxPixels)
	}
	return nil
}

// FromRaw wraps pix without copying. It fails with a DimensionError when
// len(pix) != width*height*3.
func FromRaw(pix []byte, width, height int) (*Image, error) {
	if err := CheckSize(width, height); err != nil {
		return nil, err
	}
	if len(pix) != width*height*BytesPerPixel {
		return nil, NewDimensionError(width, height, len(pix))
	}
	return &Image{Width: width, Height: height, Pix: pix}, nil
}

// Offset returns the index of the first byte of pixel (x, y).
func (m *Image) Offset(x, y int) int {
	return (y*m.Width + x) * BytesPerPixel
}

// At returns the color of pixel (x, y). The coordinates must be in bounds.
func (m *Image) At(x, y int) [3]byte {
	i := m.Offset(x, y)
	return [3]byte{m.Pix[i], m.Pix[i+1], m.Pix[i+2]}
}

// Set writes the color of pixel (x, y).
func (m *Image) Set(x, y int, c [3]byte) {
	i := m.Offset(x, y)
	m.Pix[i] = c[0]
	m.Pix[i+1] = c[1]
	m.Pix[i+2] = c[2]
}

// Len returns the number of pixels.
func (m *Image) Len() int {
	return m.Width * m.Height
}

// SameSize reports whether m and o have identical dimensions.
func (m *Image) SameSize(o *Image) bool {
	return m.Width == o.Width && m.Height == o.Height
}
