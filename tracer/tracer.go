package tracer

import "github.com/achilleasa/stilltrace/types"

// A source of uniformly distributed values in [0, 1). Implementations are
// not required to be safe for concurrent use; every worker receives its own
// instance.
type Sampler interface {
	Float32() float32
}

// The Evaluator interface is implemented by scene models that can compute
// the linear radiance carried along a ray. Implementations must be safe for
// concurrent use by multiple workers as long as each call receives its own
// Sampler.
type Evaluator interface {
	// Evaluate the incoming radiance along a ray. The returned color is
	// unclamped and may exceed the [0, 1] range.
	Evaluate(ray types.Ray, rng Sampler) (types.Vec3, error)
}

// The EvaluatorFunc type is an adapter to allow the use of ordinary
// functions as evaluators.
type EvaluatorFunc func(ray types.Ray, rng Sampler) (types.Vec3, error)

// Evaluate calls f(ray, rng).
func (f EvaluatorFunc) Evaluate(ray types.Ray, rng Sampler) (types.Vec3, error) {
	return f(ray, rng)
}
