package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/achilleasa/stilltrace/renderer"
	"github.com/achilleasa/stilltrace/scene/reader"
	"github.com/urfave/cli"
)

// Number of failed sample errors listed after a render.
const maxListedFailures = 3

var ErrUsage = errors.New("usage: stilltrace [options] <scene file> <output.ppm>")

// Render a still frame.
func RenderFrame(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 2 {
		return fmt.Errorf("%w; expected 2 arguments; got %d", ErrUsage, ctx.NArg())
	}
	sceneFile, imgFile := ctx.Args().Get(0), ctx.Args().Get(1)

	opts := renderer.Options{
		Workers:   ctx.GlobalInt("workers"),
		Seed:      ctx.GlobalUint64("seed"),
		ChunkRows: ctx.GlobalInt("chunk-rows"),
	}
	if !ctx.GlobalIsSet("seed") {
		opts.Seed = uint64(time.Now().UnixNano())
	}

	// Load scene
	sc, err := reader.ReadScene(context.Background(), sceneFile)
	if err != nil {
		return err
	}
	logger.Infof("scene information:\n%s", sc.Stats())
	logger.Noticef("loaded %d primitives", len(sc.Primitives))

	// Setup post-processing pipeline
	pipeline := renderer.DefaultPipeline()
	pipeline.PostProcess = append(pipeline.PostProcess, renderer.SaveFrameBuffer(imgFile))

	r, err := renderer.NewDefault(sc, pipeline, opts)
	if err != nil {
		return err
	}

	logger.Noticef("rendering %d sample units (seed %d)", int64(sc.Width())*int64(sc.Height())*int64(sc.SamplesPerPixel()), opts.Seed)
	_, err = r.Render()
	stats := r.Stats()
	if err != nil {
		return err
	}

	reportFailures(stats)
	displayFrameStats(stats)
	logger.Noticef("wrote frame to %s in %d ms", imgFile, stats.TotalTime.Nanoseconds()/1e6)

	return nil
}

func reportFailures(stats renderer.FrameStats) {
	failed := stats.FailedSamples()
	if failed == 0 {
		return
	}

	logger.Warningf("%d samples failed to evaluate and were rendered as black", failed)
	for index, err := range stats.Pool.Errors {
		if index == maxListedFailures {
			break
		}
		logger.Warningf("  %v", err)
	}
}

func displayFrameStats(stats renderer.FrameStats) {
	logger.Noticef("frame statistics\n%s", stats.Table())
}
