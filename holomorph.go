// Package holomorph remaps RGB images through complex-valued expressions.
//
// Every output pixel is normalised to a complex number z in roughly
// [-1, 1] × [-1, 1], the expression f(z) is evaluated, and the result is
// mapped back to a source coordinate that is sampled from the input image.
// Pixels where f blows up are rendered black.
//
// # Quick Start
//
//	// One-off transform of a raw RGB buffer
//	out, err := holomorph.ApplyTransform(pixels, 640, 480, "z^2 + sin(z)")
//
//	// Parse once, build a lookup table, apply it to many frames
//	e, err := holomorph.Parse("1/z")
//	t, err := holomorph.BuildLookup(e, 640, 480)
//	frame1, _ := holomorph.ApplyLookup(t, raw1)
//	frame2, _ := holomorph.ApplyLookup(t, raw2)
//
// Buffers are width*height*3 bytes, row-major RGB without padding. Parse
// failures are *types.ParseError and wrongly sized buffers are
// *types.DimensionError (errors.Is(err, types.ErrDimensionMismatch)).
//
// For more control see:
//   - Parser and evaluator: github.com/lemonberrylabs/holomorph/pkg/expr
//   - Mapping and resampling: github.com/lemonberrylabs/holomorph/pkg/remap
//   - Image buffers and errors: github.com/lemonberrylabs/holomorph/pkg/types
package holomorph

import (
	"github.com/lemonberrylabs/holomorph/pkg/expr"
	"github.com/lemonberrylabs/holomorph/pkg/remap"
	"github.com/lemonberrylabs/holomorph/pkg/types"
)

// Expression is a parsed expression. It is immutable and safe for
// concurrent use.
type Expression struct {
	source string
	tree   expr.Node
}

// LookupTable is a precomputed mapping for one expression at one resolution.
type LookupTable = remap.LookupTable

// Parse parses an expression such as "z^2 + sin(z)".
func Parse(expression string) (*Expression, error) {
	tree, err := expr.Parse(expression)
	if err != nil {
		return nil, err
	}
	return &Expression{source: expression, tree: tree}, nil
}

// Source returns the text the expression was parsed from.
func (e *Expression) Source() string { return e.source }

// Tree returns the parsed tree.
func (e *Expression) Tree() expr.Node { return e.tree }

// String returns the canonical fully parenthesised form.
func (e *Expression) String() string { return expr.Format(e.tree) }

// Eval evaluates the expression at z.
func (e *Expression) Eval(z complex128) complex128 {
	return expr.Evaluate(e.tree, z)
}

// ApplyTransform parses expression and remaps pixels through it using
// bilinear resampling. The returned buffer has the same size as pixels.
func ApplyTransform(pixels []byte, width, height uint32, expression string) ([]byte, error) {
	e, err := Parse(expression)
	if err != nil {
		return nil, err
	}
	return e.Apply(pixels, width, height)
}

// Apply remaps pixels through e using bilinear resampling.
func (e *Expression) Apply(pixels []byte, width, height uint32) ([]byte, error) {
	src, err := types.FromRaw(pixels, int(width), int(height))
	if err != nil {
		return nil, err
	}
	return remap.Transform(src, e.tree).Pix, nil
}

// BuildLookup precomputes the mapping of e for a width×height image.
func BuildLookup(e *Expression, width, height uint32) (*LookupTable, error) {
	return remap.BuildLookup(e.tree, int(width), int(height))
}

// ApplyLookup gathers pixels through t. pixels must match the table's
// resolution.
func ApplyLookup(t *LookupTable, pixels []byte) ([]byte, error) {
	src, err := types.FromRaw(pixels, t.Width, t.Height)
	if err != nil {
		return nil, err
	}
	dst, err := t.Apply(src)
	if err != nil {
		return nil, err
	}
	return dst.Pix, nil
}
