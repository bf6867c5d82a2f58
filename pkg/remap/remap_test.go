package remap

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/lemonberrylabs/holomorph/pkg/expr"
	"github.com/lemonberrylabs/holomorph/pkg/types"
)

// gradient fills R with 2x, G with 2y and B with a constant.
func gradient(w, h int) *types.Image {
	img := types.NewImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, [3]byte{byte(2 * x), byte(2 * y), 100})
		}
	}
	return img
}

func solid(w, h int, c [3]byte) *types.Image {
	img := types.NewImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func absDiff(a, b byte) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func TestTransformIdentity(t *testing.T) {
	for _, size := range [][2]int{{8, 8}, {9, 7}, {16, 5}} {
		src := gradient(size[0], size[1])
		dst := Transform(src, expr.MustParse("z"))
		for y := 0; y < src.Height; y++ {
			for x := 0; x < src.Width; x++ {
				want, got := src.At(x, y), dst.At(x, y)
				for c := 0; c < 3; c++ {
					if absDiff(want[c], got[c]) > 1 {
						t.Fatalf("%dx%d pixel (%d,%d): got %v, want %v", size[0], size[1], x, y, got, want)
					}
				}
			}
		}
	}
}

func TestLookupIdentity(t *testing.T) {
	lut, err := BuildLookup(expr.MustParse("z"), 9, 7)
	if err != nil {
		t.Fatalf("BuildLookup: %v", err)
	}
	for y := 0; y < 7; y++ {
		for x := 0; x < 9; x++ {
			if got, want := lut.At(x, y), int32(y*9+x); got != want {
				t.Errorf("At(%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}
	if n := lut.FallbackCount(); n != 0 {
		t.Errorf("FallbackCount = %d, want 0", n)
	}
}

func TestCentreIsFixed(t *testing.T) {
	for _, input := range []string{"z^2", "z^3", "sin(z)", "z*z*z"} {
		t.Run(input, func(t *testing.T) {
			lut, err := BuildLookup(expr.MustParse(input), 9, 7)
			if err != nil {
				t.Fatalf("BuildLookup: %v", err)
			}
			if got := lut.At(4, 3); got != 3*9+4 {
				t.Errorf("centre maps to %d, want %d", got, 3*9+4)
			}

			src := gradient(9, 7)
			dst := Transform(src, expr.MustParse(input))
			if got, want := dst.At(4, 3), src.At(4, 3); got != want {
				t.Errorf("direct centre = %v, want %v", got, want)
			}
		})
	}
}

func TestSingularityFallsBackToBlack(t *testing.T) {
	white := [3]byte{255, 255, 255}
	src := solid(9, 9, white)
	node := expr.MustParse("1/z")

	dst := Transform(src, node)
	if got := dst.At(4, 4); got != types.Black {
		t.Errorf("direct centre = %v, want black", got)
	}
	if got := dst.At(0, 0); got == types.Black {
		t.Errorf("direct corner is black")
	}

	lut, err := BuildLookup(node, 9, 9)
	if err != nil {
		t.Fatalf("BuildLookup: %v", err)
	}
	if got := lut.At(4, 4); got != Fallback {
		t.Errorf("lookup centre = %d, want Fallback", got)
	}
	if n := lut.FallbackCount(); n != 1 {
		t.Errorf("FallbackCount = %d, want 1", n)
	}
	out, err := lut.Apply(src)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := out.At(4, 4); got != types.Black {
		t.Errorf("lookup centre pixel = %v, want black", got)
	}
	if got := out.At(1, 1); got != white {
		t.Errorf("lookup pixel (1,1) = %v, want white", got)
	}
}

func TestIsSingular(t *testing.T) {
	tests := []struct {
		v    complex128
		want bool
	}{
		{0, false},
		{complex(1e6, -1e6), false},
		{complex(1e6+1, 0), true},
		{complex(0, -2e6), true},
		{complex(math.NaN(), 0), true},
		{complex(0, math.Inf(1)), true},
	}
	for _, tt := range tests {
		if got := IsSingular(tt.v); got != tt.want {
			t.Errorf("IsSingular(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		v    float64
		n    int
		want float64
	}{
		{5, 10, 5},
		{0, 10, 0},
		{9.5, 10, 9},
		{10, 10, 9},
		{12, 10, 8},
		{25, 10, 5},
		{-1, 10, 1},
		{-12, 10, 8},
		{-1e-17, 10, 0},
	}
	for _, tt := range tests {
		if got := wrap(tt.v, tt.n); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("wrap(%v, %d) = %v, want %v", tt.v, tt.n, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	m := NewMapper(expr.MustParse("z"), 8, 4)
	tests := []struct {
		x, y int
		want complex128
	}{
		{4, 2, 0},
		{0, 0, complex(-1, -1)},
		{6, 3, complex(0.5, 0.5)},
	}
	for _, tt := range tests {
		if got := m.Normalize(tt.x, tt.y); got != tt.want {
			t.Errorf("Normalize(%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestBilinearTruncates(t *testing.T) {
	img := types.NewImage(2, 1)
	img.Set(1, 0, [3]byte{255, 10, 3})

	if got := Bilinear(img, 0.5, 0); got != [3]byte{127, 5, 1} {
		t.Errorf("Bilinear(0.5, 0) = %v, want [127 5 1]", got)
	}
	if got := Bilinear(img, 1, 0); got != [3]byte{255, 10, 3} {
		t.Errorf("Bilinear(1, 0) = %v, want exact pixel", got)
	}
	if got := Bilinear(img, 7, -3); got != [3]byte{255, 10, 3} {
		t.Errorf("Bilinear out of range = %v, want clipped pixel", got)
	}
}

func TestLookupMatchesDirect(t *testing.T) {
	src := gradient(64, 64)
	node := expr.MustParse("z*0.5")

	direct := Transform(src, node)
	lut, err := BuildLookup(node, 64, 64)
	if err != nil {
		t.Fatalf("BuildLookup: %v", err)
	}
	viaLUT, err := lut.Apply(src)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	for i := range direct.Pix {
		if d := absDiff(direct.Pix[i], viaLUT.Pix[i]); d > 2 {
			t.Fatalf("byte %d: direct %d, lookup %d", i, direct.Pix[i], viaLUT.Pix[i])
		}
	}
}

func TestWorkersDoNotChangeOutput(t *testing.T) {
	src := gradient(37, 23)
	node := expr.MustParse("sin(z)*2 + 1/z")

	serial := Transform(src, node, WithWorkers(1))
	parallel := Transform(src, node, WithWorkers(8))
	if !bytes.Equal(serial.Pix, parallel.Pix) {
		t.Error("direct output differs between 1 and 8 workers")
	}

	a, err := BuildLookup(node, 37, 23, WithWorkers(1))
	if err != nil {
		t.Fatal(err)
	}
	b, err := BuildLookup(node, 37, 23, WithWorkers(8))
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Index {
		if a.Index[i] != b.Index[i] {
			t.Fatalf("index %d: %d vs %d", i, a.Index[i], b.Index[i])
		}
	}
}

func TestApplyDimensionMismatch(t *testing.T) {
	lut, err := BuildLookup(expr.MustParse("z"), 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	_, err = lut.Apply(types.NewImage(4, 5))
	if !errors.Is(err, types.ErrDimensionMismatch) {
		t.Errorf("Apply error = %v, want ErrDimensionMismatch", err)
	}
	err = lut.ApplyInto(types.NewImage(2, 2), types.NewImage(4, 4))
	if !errors.Is(err, types.ErrDimensionMismatch) {
		t.Errorf("ApplyInto error = %v, want ErrDimensionMismatch", err)
	}
}

func TestBuildLookupRejectsBadSize(t *testing.T) {
	if _, err := BuildLookup(expr.MustParse("z"), -1, 4); err == nil {
		t.Error("expected error for negative width")
	}
	if _, err := BuildLookup(expr.MustParse("z"), 100000, 100000); !errors.Is(err, types.ErrTooLarge) {
		t.Errorf("oversized table error = %v, want ErrTooLarge", err)
	}
	lut, err := BuildLookup(expr.MustParse("z"), 0, 0)
	if err != nil {
		t.Fatalf("empty table: %v", err)
	}
	if len(lut.Index) != 0 {
		t.Errorf("len(Index) = %d, want 0", len(lut.Index))
	}
}

func TestEmptyImage(t *testing.T) {
	dst := Transform(types.NewImage(0, 0), expr.MustParse("z^2"))
	if dst.Len() != 0 {
		t.Errorf("Len = %d, want 0", dst.Len())
	}
}
