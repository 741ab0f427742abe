package renderer

import "errors"

var (
	ErrSceneNotDefined   = errors.New("renderer: no scene defined")
	ErrInvalidDimensions = errors.New("renderer: frame dimensions must be positive")
	ErrInvalidSamples    = errors.New("renderer: samples per pixel must be positive")
	ErrNotQuantized      = errors.New("renderer: frame has not been quantized")
)
