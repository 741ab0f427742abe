package tracer

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyFulfilled = errors.New("tracer: sample result fulfilled more than once")
	ErrPoolClosed       = errors.New("tracer: submit called on a drained pool")
)

// EvalError describes a failed sample evaluation. Evaluation failures are
// absorbed by the pool: the sample contributes black to its pixel.
type EvalError struct {
	// The submission sequence number of the failed unit.
	Unit int64

	// The pixel the failed sample belongs to.
	Pixel int

	Err error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("tracer: evaluation of sample %d (pixel %d) failed: %v", e.Unit, e.Pixel, e.Err)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}
