package remap

import (
	"github.com/lemonberrylabs/holomorph/pkg/expr"
	"github.com/lemonberrylabs/holomorph/pkg/types"
)

// Transform remaps src through node on the direct path: every output pixel
// evaluates the expression and is bilinearly resampled. Singular pixels are
// black. src is only read.
func Transform(src *types.Image, node expr.Node, opts ...Option) *types.Image {
	o := newOptions(opts)
	dst := types.NewImage(src.Width, src.Height)
	m := NewMapper(node, src.Width, src.Height)

	forEachRowBand(src.Height, o.workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < src.Width; x++ {
				sx, sy, ok := m.Map(x, y)
				if !ok {
					dst.Set(x, y, types.Black)
					continue
				}
				dst.Set(x, y, Bilinear(src, sx, sy))
			}
		}
	})
	return dst
}
