package renderer

import (
	"context"
	"fmt"
	"time"

	"github.com/achilleasa/stilltrace/log"
	"github.com/achilleasa/stilltrace/tracer"
	"github.com/achilleasa/stilltrace/types"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// The Scene interface describes the scene model consumed by the renderer.
// Scenes must be fully built before rendering starts and must not be
// mutated while a frame is being rendered.
type Scene interface {
	tracer.Evaluator

	Width() int
	Height() int
	SamplesPerPixel() int

	// Map (sub)pixel coordinates to a primary ray.
	PixelToRay(coords types.Vec2) types.Ray
}

type Renderer interface {
	// Render frame.
	Render() (*Frame, error)

	// Get render statistics for the last rendered frame.
	Stats() FrameStats
}

// A set of consecutive scanlines whose sample units are generated,
// scheduled and aggregated together.
type chunk struct {
	firstRow int
	rows     int
	units    []tracer.SampleUnit
}

// The default renderer traces all samples on a CPU worker pool.
type defaultRenderer struct {
	logger   log.Logger
	scene    Scene
	pipeline *Pipeline
	opts     Options

	frameW, frameH, spp int

	stats FrameStats
}

// Create a new renderer for the given scene. Post processing stages from
// pipeline are applied to every rendered frame; a nil pipeline leaves the
// frame with the mean linear radiance of each pixel.
func NewDefault(sc Scene, pipeline *Pipeline, opts Options) (Renderer, error) {
	if sc == nil {
		return nil, ErrSceneNotDefined
	}

	frameW, frameH, spp := sc.Width(), sc.Height(), sc.SamplesPerPixel()
	if frameW <= 0 || frameH <= 0 {
		return nil, fmt.Errorf("%w; got %d x %d", ErrInvalidDimensions, frameW, frameH)
	}
	if spp <= 0 {
		return nil, fmt.Errorf("%w; got %d", ErrInvalidSamples, spp)
	}
	if pipeline == nil {
		pipeline = &Pipeline{}
	}

	return &defaultRenderer{
		logger:   log.New("renderer"),
		scene:    sc,
		pipeline: pipeline,
		opts:     opts.withDefaults(frameH),
		frameW:   frameW,
		frameH:   frameH,
		spp:      spp,
	}, nil
}

// Get render statistics.
func (r *defaultRenderer) Stats() FrameStats {
	return r.stats
}

// Render a frame. Chunks of scanlines are generated by a producer goroutine
// and submitted to the worker pool while the calling goroutine aggregates
// completed chunks in submission order. At most MaxChunksInFlight chunks
// are alive at any time.
func (r *defaultRenderer) Render() (*Frame, error) {
	start := time.Now()
	frame := newFrame(r.frameW, r.frameH)

	r.stats = FrameStats{
		Width:           r.frameW,
		Height:          r.frameH,
		SamplesPerPixel: r.spp,
		Workers:         r.opts.Workers,
		ChunkRows:       r.opts.ChunkRows,
		MaxUnitsAlive:   int64(min(r.opts.MaxChunksInFlight*r.opts.ChunkRows, r.frameH)) * int64(r.frameW) * int64(r.spp),
	}

	pool := tracer.NewPool(r.scene, tracer.PoolOptions{
		Workers:           r.opts.Workers,
		Seed:              r.opts.Seed,
		MaxReportedErrors: r.opts.MaxReportedErrors,
	})

	r.logger.Infof("rendering %dx%d frame with %d samples per pixel (%d sample units)", r.frameW, r.frameH, r.spp, int64(r.frameW)*int64(r.frameH)*int64(r.spp))

	chunks := make(chan *chunk, r.opts.MaxChunksInFlight)
	inFlight := semaphore.NewWeighted(int64(r.opts.MaxChunksInFlight))

	var producer errgroup.Group
	producer.Go(func() error {
		defer close(chunks)
		for y := 0; y < r.frameH; y += r.opts.ChunkRows {
			// The context never expires so Acquire only returns once
			// the aggregator releases a chunk.
			if err := inFlight.Acquire(context.Background(), 1); err != nil {
				return err
			}

			c := r.generateChunk(y, min(r.opts.ChunkRows, r.frameH-y))
			if err := pool.Submit(c.units); err != nil {
				inFlight.Release(1)
				return err
			}
			chunks <- c
		}
		return nil
	})

	var numChunks int
	for c := range chunks {
		r.aggregateChunk(frame, c)
		inFlight.Release(1)
		r.logger.Debugf("aggregated rows %d-%d", c.firstRow, c.firstRow+c.rows-1)
		numChunks++
	}
	r.stats.Chunks = numChunks

	produceErr := producer.Wait()
	poolStats, poolErr := pool.Wait()
	r.stats.Pool = poolStats
	r.stats.RenderTime = time.Since(start)
	if produceErr != nil {
		return nil, produceErr
	}
	if poolErr != nil {
		return nil, poolErr
	}

	r.logger.Infof("sampled frame in %d ms", r.stats.RenderTime.Nanoseconds()/1e6)
	if poolStats.Failed > 0 {
		r.logger.Warningf("%d of %d samples failed and contributed black to their pixels", poolStats.Failed, poolStats.Executed)
	}

	for index, stage := range r.pipeline.PostProcess {
		elapsed, err := stage(frame)
		r.stats.PostProcessTime += elapsed
		if err != nil {
			return nil, fmt.Errorf("renderer: post-process stage %d: %w", index, err)
		}
	}
	r.stats.TotalTime = time.Since(start)

	return frame, nil
}

// Generate the sample units for rows [firstRow, firstRow+rows). Units are
// laid out pixel-major: the samples of a pixel occupy consecutive slots.
func (r *defaultRenderer) generateChunk(firstRow, rows int) *chunk {
	c := &chunk{
		firstRow: firstRow,
		rows:     rows,
		units:    tracer.NewSampleUnits(rows * r.frameW * r.spp),
	}

	jitter := r.opts.Jitter
	unit := 0
	for y := firstRow; y < firstRow+rows; y++ {
		for x := 0; x < r.frameW; x++ {
			pixel := y*r.frameW + x
			for s := 0; s < r.spp; s++ {
				u, v := jitter.Float32(), jitter.Float32()
				c.units[unit].Pixel = pixel
				c.units[unit].Ray = r.scene.PixelToRay(types.XY(float32(x)+u, float32(y)+v))
				unit++
			}
		}
	}

	return c
}

// Compute the mean radiance of every pixel in a chunk, blocking until the
// pixel's samples have been evaluated. Failed samples contribute black but
// still count towards the sample total.
func (r *defaultRenderer) aggregateChunk(frame *Frame, c *chunk) {
	for base := 0; base < len(c.units); base += r.spp {
		frame.Radiance[c.units[base].Pixel] = meanRadiance(c.units[base : base+r.spp])
	}
}

// Average the results of a group of sample units.
func meanRadiance(units []tracer.SampleUnit) types.Vec3 {
	var sum types.Vec3
	for i := range units {
		color, _ := units[i].Result.Wait()
		sum = sum.Add(color)
	}
	n := float32(len(units))
	return types.Vec3{sum[0] / n, sum[1] / n, sum[2] / n}
}
