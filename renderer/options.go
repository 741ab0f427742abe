package renderer

import (
	"math"
	"math/rand/v2"
	"runtime"

	"github.com/achilleasa/stilltrace/tracer"
)

const (
	// Default number of scanline chunks whose sample units may be alive
	// at the same time.
	DefaultMaxChunksInFlight = 2

	// Stream id of the jitter generator. Worker generators use the worker
	// index so the jitter stream never collides with them.
	jitterStream = math.MaxUint64
)

type Options struct {
	// Number of pool workers. Defaults to runtime.NumCPU().
	Workers int

	// Run seed for the per-worker generators and the default jitter
	// source.
	Seed uint64

	// Number of scanlines per submitted chunk. If zero, the whole frame
	// is submitted as a single chunk.
	ChunkRows int

	// Max chunks alive at any time (generated but not yet aggregated).
	MaxChunksInFlight int

	// Source of sub-pixel offsets. Only accessed by the goroutine that
	// generates sample units. Defaults to a PCG generator seeded from Seed.
	Jitter tracer.Sampler

	// Max number of evaluation errors kept in FrameStats.
	MaxReportedErrors int
}

func (opts Options) withDefaults(frameH int) Options {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.ChunkRows <= 0 || opts.ChunkRows > frameH {
		opts.ChunkRows = frameH
	}
	if opts.MaxChunksInFlight <= 0 {
		opts.MaxChunksInFlight = DefaultMaxChunksInFlight
	}
	if opts.Jitter == nil {
		opts.Jitter = rand.New(rand.NewPCG(opts.Seed, jitterStream))
	}
	return opts
}
