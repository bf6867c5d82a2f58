// Package stream applies a lookup table to a sequence of raw rgb24 frames,
// e.g. piped from and to ffmpeg:
//
//	ffmpeg -f v4l2 -i /dev/video0 -f rawvideo -pix_fmt rgb24 -s 640x480 - |
//	  holomorph stream "z^2" --dimensions 640,480 |
//	  ffplay -f rawvideo -pixel_format rgb24 -video_size 640x480 -
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/lemonberrylabs/holomorph/pkg/remap"
	"github.com/lemonberrylabs/holomorph/pkg/types"
)

// ErrTruncatedFrame is returned when the input ends inside a frame.
var ErrTruncatedFrame = errors.New("input ended inside a frame")

// Processor gathers frames through its current lookup table. The table can
// be swapped while Run is active; each frame uses one table throughout.
type Processor struct {
	table  atomic.Pointer[remap.LookupTable]
	width  int
	height int
	opts   []remap.Option
}

// NewProcessor creates a processor for frames of the table's resolution.
func NewProcessor(t *remap.LookupTable, opts ...remap.Option) *Processor {
	p := &Processor{width: t.Width, height: t.Height, opts: opts}
	p.table.Store(t)
	return p
}

// FrameSize returns the number of bytes in one frame.
func (p *Processor) FrameSize() int {
	return p.width * p.height * types.BytesPerPixel
}

// Table returns the current lookup table.
func (p *Processor) Table() *remap.LookupTable {
	return p.table.Load()
}

// Swap replaces the lookup table for subsequent frames. The new table must
// have the same resolution.
func (p *Processor) Swap(t *remap.LookupTable) error {
	if t.Width != p.width || t.Height != p.height {
		return fmt.Errorf("cannot swap %dx%d table into a %dx%d stream", t.Width, t.Height, p.width, p.height)
	}
	p.table.Store(t)
	return nil
}

// Run reads whole frames from r, remaps each and writes it to w until r is
// exhausted at a frame boundary. It returns the number of frames written.
// Cancelling ctx stops Run before the next frame.
func (p *Processor) Run(ctx context.Context, r io.Reader, w io.Writer) (int, error) {
	size := p.FrameSize()
	if size == 0 {
		return 0, fmt.Errorf("empty frame size %dx%d", p.width, p.height)
	}
	in, err := types.FromRaw(make([]byte, size), p.width, p.height)
	if err != nil {
		return 0, err
	}
	out := types.NewImage(p.width, p.height)

	frames := 0
	for {
		if err := ctx.Err(); err != nil {
			return frames, err
		}

		if _, err := io.ReadFull(r, in.Pix); err != nil {
			if errors.Is(err, io.EOF) {
				return frames, nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return frames, fmt.Errorf("frame %d: %w", frames+1, ErrTruncatedFrame)
			}
			return frames, fmt.Errorf("reading frame %d: %w", frames+1, err)
		}

		if err := p.table.Load().ApplyInto(out, in, p.opts...); err != nil {
			return frames, fmt.Errorf("frame %d: %w", frames+1, err)
		}
		if _, err := w.Write(out.Pix); err != nil {
			return frames, fmt.Errorf("writing frame %d: %w", frames+1, err)
		}
		frames++
	}
}
