package tracer

import (
	"sync/atomic"

	"github.com/achilleasa/stilltrace/types"
)

// A write-once container for the outcome of a sample evaluation. The zero
// value is not usable; slots are initialized by NewSampleUnits.
type Result struct {
	written atomic.Bool
	done    chan struct{}

	color types.Vec3
	err   error
}

// Store the outcome of an evaluation and wake up any waiting readers.
// Fulfilling a slot twice violates the single producer contract; the
// second write is discarded and ErrAlreadyFulfilled is returned.
func (r *Result) fulfill(color types.Vec3, err error) error {
	if !r.written.CompareAndSwap(false, true) {
		return ErrAlreadyFulfilled
	}
	r.color = color
	r.err = err
	close(r.done)
	return nil
}

// Block until the slot is fulfilled and return its value. If the sample
// evaluation failed, the returned color is black and err describes the
// failure.
func (r *Result) Wait() (types.Vec3, error) {
	<-r.done
	return r.color, r.err
}

// Returns a channel that is closed once the slot has been fulfilled.
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// A unit of work that is processed by a worker pool: a single primary ray
// and the slot receiving its radiance.
type SampleUnit struct {
	// The index (y*width + x) of the pixel this sample contributes to.
	Pixel int

	// The primary ray to trace.
	Ray types.Ray

	Result Result
}

// Allocate count sample units with initialized result slots.
func NewSampleUnits(count int) []SampleUnit {
	units := make([]SampleUnit, count)
	for i := range units {
		units[i].Result.done = make(chan struct{})
	}
	return units
}
