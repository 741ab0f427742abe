package renderer

import (
	"bytes"
	"fmt"
	"time"
	"unsafe"

	"github.com/achilleasa/stilltrace/tracer"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type FrameStats struct {
	// Frame settings.
	Width           int
	Height          int
	SamplesPerPixel int

	Workers   int
	ChunkRows int
	Chunks    int

	// Upper bound of sample units alive at the same time.
	MaxUnitsAlive int64

	// Worker pool statistics.
	Pool tracer.Stats

	// Time spent generating, tracing and aggregating samples.
	RenderTime time.Duration

	// Time spent in post-processing stages.
	PostProcessTime time.Duration

	// Total time for the entire frame.
	TotalTime time.Duration
}

// Number of samples whose evaluation failed.
func (s FrameStats) FailedSamples() int64 {
	return s.Pool.Failed
}

// Estimated peak memory used by sample units.
func (s FrameStats) SampleMemory() uint64 {
	return uint64(s.MaxUnitsAlive) * uint64(unsafe.Sizeof(tracer.SampleUnit{}))
}

// Build a tabular representation of frame statistics.
func (s FrameStats) Table() string {
	p := message.NewPrinter(language.English)

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Stage", "Metric", "Value"})
	table.Append([]string{"Frame", "Dimensions", fmt.Sprintf("%d x %d", s.Width, s.Height)})
	table.Append([]string{"", "Samples/pixel", p.Sprintf("%d", s.SamplesPerPixel)})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Sampling", "Sample units", p.Sprintf("%d", s.Pool.Executed)})
	table.Append([]string{"", "Failed samples", p.Sprintf("%d", s.Pool.Failed)})
	table.Append([]string{"", "Workers", p.Sprintf("%d", s.Workers)})
	table.Append([]string{"", "Chunks", p.Sprintf("%d x %d rows", s.Chunks, s.ChunkRows)})
	table.Append([]string{"", "Sample memory", humanize.Bytes(s.SampleMemory())})
	table.Append([]string{"", "Render time", s.RenderTime.String()})
	table.Append([]string{" ", " ", " "})
	for index, count := range s.Pool.PerWorker {
		table.Append([]string{"Workers", fmt.Sprintf("#%d", index), p.Sprintf("%d units (%02.1f %%)", count, percent(count, s.Pool.Executed))})
	}
	table.Append([]string{"Post-process", "Time", s.PostProcessTime.String()})
	table.SetFooter([]string{"", "TOTAL", s.TotalTime.String()})

	table.Render()
	return buf.String()
}

func percent(value, total int64) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(value) / float64(total)
}
