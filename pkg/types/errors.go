package types

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch is matched by every DimensionError via errors.Is.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// ErrTooLarge is returned for images larger than MaxPixels.
var ErrTooLarge = errors.New("image too large")

// ParseError reports malformed expression syntax.
type ParseError struct {
	Message string
	Pos     int // byte offset into the expression, -1 when unknown
}

// NewParseError creates a ParseError at the given position.
func NewParseError(pos int, format string, args ...interface{}) *ParseError {
	return &ParseError{Message: fmt.Sprintf(format, args...), Pos: pos}
}

func (e *ParseError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("parse error at position %d: %s", e.Pos, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// DimensionError reports a pixel buffer whose length does not match width*height*3.
type DimensionError struct {
	Width  int
	Height int
	Got    int
}

// NewDimensionError creates a DimensionError for a buffer of got bytes.
func NewDimensionError(width, height, got int) *DimensionError {
	return &DimensionError{Width: width, Height: height, Got: got}
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("pixel buffer has %d bytes, want %d for %dx%d RGB",
		e.Got, e.Width*e.Height*BytesPerPixel, e.Width, e.Height)
}

// Is reports whether target is ErrDimensionMismatch.
func (e *DimensionError) Is(target error) bool {
	return target == ErrDimensionMismatch
}
