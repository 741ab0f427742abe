package renderer

import "github.com/achilleasa/stilltrace/types"

// A rendered frame. Radiance holds one color per pixel (index y*Width+x);
// it contains the mean linear radiance after aggregation and is updated in
// place by the color post-processing stages. Pixels holds the quantized
// RGB triplets in the same order and is populated by the Quantize stage.
type Frame struct {
	Width  int
	Height int

	Radiance []types.Vec3
	Pixels   []byte
}

func newFrame(width, height int) *Frame {
	return &Frame{
		Width:    width,
		Height:   height,
		Radiance: make([]types.Vec3, width*height),
	}
}
