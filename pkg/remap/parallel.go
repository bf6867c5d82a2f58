package remap

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// bandsPerWorker oversubscribes row bands so uneven rows (e.g. near
// singularities) balance across workers.
const bandsPerWorker = 4

// Option configures a remapping call.
type Option func(*options)

type options struct {
	workers int
}

// WithWorkers sets how many goroutines process row bands. n <= 1 runs the
// loop on the calling goroutine.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

func newOptions(opts []Option) options {
	o := options{workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// forEachRowBand splits rows [0, height) into contiguous bands and calls fn
// for each. Bands are disjoint, so fn may write its rows of a shared output
// without locking.
func forEachRowBand(height, workers int, fn func(y0, y1 int)) {
	if height <= 0 {
		return
	}
	if workers <= 1 || height == 1 {
		fn(0, height)
		return
	}

	bands := min(workers*bandsPerWorker, height)
	rows := (height + bands - 1) / bands

	var g errgroup.Group
	g.SetLimit(workers)
	for y0 := 0; y0 < height; y0 += rows {
		y0 := y0 // per-iteration copy; go.mod targets go 1.21 loop semantics
		y1 := min(y0+rows, height)
		g.Go(func() error {
			fn(y0, y1)
			return nil
		})
	}
	_ = g.Wait()
}
