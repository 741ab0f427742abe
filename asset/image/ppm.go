package image

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var (
	ErrInvalidDimensions = errors.New("image: frame dimensions must be positive")
	ErrBufferSize        = errors.New("image: pixel buffer size does not match frame dimensions")
)

// A WriteError is returned when an image cannot be written to its target
// path.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("image: could not write %q: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Encode an 8-bit RGB pixel buffer as a binary (P6) PPM image. Pixels are
// stored row-major starting from the top row with 3 bytes per pixel.
func EncodePPM(w io.Writer, width, height int, pixels []byte) error {
	if err := validate(width, height, pixels); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "P6\n%d %d\n255\n", width, height); err != nil {
		return err
	}
	if _, err := bw.Write(pixels); err != nil {
		return err
	}
	return bw.Flush()
}

// Write a PPM image to path, replacing any existing file. The image is
// encoded into a temporary file next to the target which is then renamed
// over it so a failed write never leaves a truncated image behind.
func WritePPM(path string, width, height int, pixels []byte) error {
	if err := validate(width, height, pixels); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	tmpName := f.Name()

	err = EncodePPM(f, width, height, pixels)
	if err == nil {
		err = f.Chmod(0o644)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmpName, path)
	}
	if err != nil {
		os.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

func validate(width, height int, pixels []byte) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w; got %d x %d", ErrInvalidDimensions, width, height)
	}
	if exp := 3 * width * height; len(pixels) != exp {
		return fmt.Errorf("%w; expected %d bytes; got %d", ErrBufferSize, exp, len(pixels))
	}
	return nil
}
