package remap

import (
	"fmt"
	"math"

	"github.com/lemonberrylabs/holomorph/pkg/expr"
	"github.com/lemonberrylabs/holomorph/pkg/types"
)

// Fallback marks a table entry whose pixel is rendered black.
const Fallback int32 = -1

// LookupTable holds, for every output pixel, the row-major index of the
// source pixel it copies, or Fallback. Building it evaluates the expression
// once per pixel; applying it is a plain gather, so one table serves every
// frame of a stream at a fixed resolution. A table is immutable and safe for
// concurrent use.
type LookupTable struct {
	Width  int
	Height int
	Index  []int32
}

// BuildLookup runs the mapping pass for a width×height image and snaps each
// source coordinate to the nearest pixel.
func BuildLookup(node expr.Node, width, height int, opts ...Option) (*LookupTable, error) {
	if err := types.CheckSize(width, height); err != nil {
		return nil, fmt.Errorf("lookup table: %w", err)
	}

	o := newOptions(opts)
	t := &LookupTable{
		Width:  width,
		Height: height,
		Index:  make([]int32, width*height),
	}
	m := NewMapper(node, width, height)

	forEachRowBand(height, o.workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := t.Index[y*width : (y+1)*width]
			for x := range row {
				sx, sy, ok := m.Map(x, y)
				if !ok {
					row[x] = Fallback
					continue
				}
				row[x] = int32(math.Round(sy))*int32(width) + int32(math.Round(sx))
			}
		}
	})
	return t, nil
}

// At returns the entry for output pixel (x, y).
func (t *LookupTable) At(x, y int) int32 {
	return t.Index[y*t.Width+x]
}

// Apply gathers src through the table into a new image. src must have the
// table's dimensions.
func (t *LookupTable) Apply(src *types.Image, opts ...Option) (*types.Image, error) {
	dst := types.NewImage(t.Width, t.Height)
	if err := t.ApplyInto(dst, src, opts...); err != nil {
		return nil, err
	}
	return dst, nil
}

// ApplyInto gathers src through the table into dst, reusing dst's buffer.
// dst and src must not overlap.
func (t *LookupTable) ApplyInto(dst, src *types.Image, opts ...Option) error {
	if src.Width != t.Width || src.Height != t.Height || len(src.Pix) != t.Width*t.Height*types.BytesPerPixel {
		return types.NewDimensionError(t.Width, t.Height, len(src.Pix))
	}
	if !dst.SameSize(src) || len(dst.Pix) != len(src.Pix) {
		return types.NewDimensionError(t.Width, t.Height, len(dst.Pix))
	}

	o := newOptions(opts)
	forEachRowBand(t.Height, o.workers, func(y0, y1 int) {
		out := dst.Pix[y0*t.Width*types.BytesPerPixel : y1*t.Width*types.BytesPerPixel]
		for i, idx := range t.Index[y0*t.Width : y1*t.Width] {
			d := i * types.BytesPerPixel
			if idx == Fallback {
				copy(out[d:d+types.BytesPerPixel], types.Black[:])
				continue
			}
			s := int(idx) * types.BytesPerPixel
			copy(out[d:d+types.BytesPerPixel], src.Pix[s:s+types.BytesPerPixel])
		}
	})
	return nil
}

// FallbackCount returns the number of singular entries.
func (t *LookupTable) FallbackCount() int {
	n := 0
	for _, idx := range t.Index {
		if idx == Fallback {
			n++
		}
	}
	return n
}

// Bytes returns the memory held by the index.
func (t *LookupTable) Bytes() int {
	return len(t.Index) * 4
}
