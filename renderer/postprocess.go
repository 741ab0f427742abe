package renderer

import (
	"math"
	"time"

	"github.com/achilleasa/stilltrace/asset/image"
	"github.com/achilleasa/stilltrace/types"
)

// ACES filmic curve coefficients.
const (
	acesA = 2.51
	acesB = 0.03
	acesC = 2.43
	acesD = 0.59
	acesE = 0.14

	DefaultGamma float32 = 2.2
)

// An alias for functions that can be used as part of the post-processing
// pipeline. Stages run sequentially on the driver goroutine once all pixels
// have been aggregated.
type PipelineStage func(frame *Frame) (time.Duration, error)

// The list of stages applied to the aggregated frame.
type Pipeline struct {
	PostProcess []PipelineStage
}

// Tone map, gamma correct and quantize the frame.
func DefaultPipeline() *Pipeline {
	return &Pipeline{
		PostProcess: []PipelineStage{
			TonemapACES(),
			GammaCorrect(DefaultGamma),
			Quantize(),
		},
	}
}

// Apply the ACES filmic tone mapping curve to the frame radiance.
func TonemapACES() PipelineStage {
	return func(frame *Frame) (time.Duration, error) {
		start := time.Now()
		for i, c := range frame.Radiance {
			frame.Radiance[i] = TonemapACESColor(c)
		}
		return time.Since(start), nil
	}
}

// Apply gamma correction to the (already tone mapped) frame radiance.
func GammaCorrect(gamma float32) PipelineStage {
	return func(frame *Frame) (time.Duration, error) {
		start := time.Now()
		for i, c := range frame.Radiance {
			frame.Radiance[i] = GammaCorrectColor(c, gamma)
		}
		return time.Since(start), nil
	}
}

// Convert the frame radiance into 8-bit RGB triplets.
func Quantize() PipelineStage {
	return func(frame *Frame) (time.Duration, error) {
		start := time.Now()
		frame.Pixels = make([]byte, 3*len(frame.Radiance))
		for i, c := range frame.Radiance {
			rgb := QuantizeColor(c)
			copy(frame.Pixels[3*i:], rgb[:])
		}
		return time.Since(start), nil
	}
}

// Write the quantized frame to a PPM image.
func SaveFrameBuffer(imgFile string) PipelineStage {
	return func(frame *Frame) (time.Duration, error) {
		start := time.Now()
		if frame.Pixels == nil {
			return 0, ErrNotQuantized
		}
		err := image.WritePPM(imgFile, frame.Width, frame.Height, frame.Pixels)
		return time.Since(start), err
	}
}

// ACES filmic approximation. The output is clamped to [0, 1]; NaN inputs
// map to 0. The curve is evaluated in float64 so that large HDR values do
// not overflow.
func TonemapACESValue(x float32) float32 {
	if math.IsInf(float64(x), 1) {
		return 1
	}
	xd := float64(x)
	v := (xd * (acesA*xd + acesB)) / (xd*(acesC*xd+acesD) + acesE)
	return clamp01(float32(v))
}

func TonemapACESColor(c types.Vec3) types.Vec3 {
	return types.Vec3{TonemapACESValue(c[0]), TonemapACESValue(c[1]), TonemapACESValue(c[2])}
}

// Raise y to 1/gamma. Inputs are expected in [0, 1]; negative inputs map
// to 0.
func GammaCorrectValue(y, gamma float32) float32 {
	if !(y > 0) {
		return 0
	}
	return float32(math.Pow(float64(y), 1/float64(gamma)))
}

func GammaCorrectColor(c types.Vec3, gamma float32) types.Vec3 {
	return types.Vec3{GammaCorrectValue(c[0], gamma), GammaCorrectValue(c[1], gamma), GammaCorrectValue(c[2], gamma)}
}

// Map z to round(clamp(z*255, 0, 255)).
func QuantizeValue(z float32) uint8 {
	v := float64(z) * 255
	if !(v > 0) {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}

func QuantizeColor(c types.Vec3) [3]uint8 {
	return [3]uint8{QuantizeValue(c[0]), QuantizeValue(c[1]), QuantizeValue(c[2])}
}

func clamp01(v float32) float32 {
	switch {
	case !(v > 0):
		return 0
	case v > 1:
		return 1
	}
	return v
}
