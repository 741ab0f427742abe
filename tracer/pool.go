package tracer

import (
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/achilleasa/stilltrace/log"
	"github.com/achilleasa/stilltrace/types"
	"golang.org/x/sync/errgroup"
)

const (
	// Number of queued units per worker.
	queueDepthPerWorker = 64

	// Default number of evaluation errors retained for reporting.
	defaultMaxReportedErrors = 8
)

// Pool configuration.
type PoolOptions struct {
	// Number of workers. If zero, runtime.NumCPU() workers are used.
	Workers int

	// The run seed. Worker i draws from a PCG generator seeded with
	// (Seed, i).
	Seed uint64

	// Max number of evaluation errors retained in Stats.Errors. The
	// failure counter is not affected by this limit.
	MaxReportedErrors int
}

// Pool statistics.
type Stats struct {
	Workers int

	// Unit counters.
	Submitted int64
	Executed  int64
	Failed    int64

	// Number of units executed by each worker.
	PerWorker []int64

	// The first few evaluation errors (see PoolOptions.MaxReportedErrors).
	Errors []error

	// Time between pool creation and the last worker exiting.
	Elapsed time.Duration
}

type job struct {
	unit *SampleUnit
	seq  int64
}

// A Pool executes sample units on a fixed set of workers that pull from a
// shared queue. Every submitted unit is executed exactly once and its result
// slot is always fulfilled, even if the evaluator fails or panics.
type Pool struct {
	logger    log.Logger
	evaluator Evaluator
	opts      PoolOptions

	queue  chan job
	group  errgroup.Group
	start  time.Time
	closed bool

	// Serializes Submit and Wait.
	mu        sync.Mutex
	submitted int64

	executed  atomic.Int64
	failed    atomic.Int64
	perWorker []int64

	errMu  sync.Mutex
	errors []error

	elapsed time.Duration
}

// Create a pool and start its workers.
func NewPool(evaluator Evaluator, opts PoolOptions) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.MaxReportedErrors <= 0 {
		opts.MaxReportedErrors = defaultMaxReportedErrors
	}

	p := &Pool{
		logger:    log.New("pool"),
		evaluator: evaluator,
		opts:      opts,
		queue:     make(chan job, opts.Workers*queueDepthPerWorker),
		start:     time.Now(),
		perWorker: make([]int64, opts.Workers),
	}

	for id := 0; id < opts.Workers; id++ {
		p.group.Go(func() error {
			return p.work(id)
		})
	}
	p.logger.Debugf("started %d workers (seed %d)", opts.Workers, opts.Seed)

	return p
}

// Queue units for execution. Units must stay reachable and must not be
// moved until their results have been read. Submit blocks while the queue
// is full.
func (p *Pool) Submit(units []SampleUnit) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}

	for i := range units {
		p.queue <- job{unit: &units[i], seq: p.submitted}
		p.submitted++
	}
	return nil
}

// Close the queue and block until all submitted units have been executed.
// The returned error is non-nil only if a result slot was fulfilled twice,
// which means the same unit was submitted more than once. Wait may be
// called multiple times.
func (p *Pool) Wait() (Stats, error) {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	err := p.group.Wait()

	p.mu.Lock()
	if p.elapsed == 0 {
		p.elapsed = time.Since(p.start)
		p.logger.Debugf("drained %d units in %s", p.executed.Load(), p.elapsed)
	}
	p.mu.Unlock()

	return p.stats(), err
}

func (p *Pool) stats() Stats {
	p.errMu.Lock()
	errs := append([]error(nil), p.errors...)
	p.errMu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Workers:   p.opts.Workers,
		Submitted: p.submitted,
		Executed:  p.executed.Load(),
		Failed:    p.failed.Load(),
		PerWorker: append([]int64(nil), p.perWorker...),
		Errors:    errs,
		Elapsed:   p.elapsed,
	}
}

// Worker loop. Each worker owns its random generator so no generator state
// is shared between goroutines.
func (p *Pool) work(id int) error {
	rng := NewWorkerRNG(p.opts.Seed, id)

	var violation error
	for j := range p.queue {
		if err := p.execute(j, rng); err != nil && violation == nil {
			violation = fmt.Errorf("worker %d: unit %d: %w", id, j.seq, err)
		}
		p.perWorker[id]++
	}
	return violation
}

func (p *Pool) execute(j job, rng Sampler) error {
	color, err := p.evaluate(j.unit.Ray, rng)
	if err != nil {
		err = &EvalError{Unit: j.seq, Pixel: j.unit.Pixel, Err: err}
		p.recordFailure(err)
		color = types.Vec3{}
	}

	if ferr := j.unit.Result.fulfill(color, err); ferr != nil {
		return ferr
	}
	p.executed.Add(1)
	return nil
}

// Invoke the evaluator converting panics into errors so that a single bad
// ray cannot take down the worker.
func (p *Pool) evaluate(ray types.Ray, rng Sampler) (color types.Vec3, err error) {
	defer func() {
		if r := recover(); r != nil {
			color, err = types.Vec3{}, fmt.Errorf("evaluator panic: %v", r)
		}
	}()

	color, err = p.evaluator.Evaluate(ray, rng)
	if err != nil {
		return types.Vec3{}, err
	}
	return color, nil
}

func (p *Pool) recordFailure(err error) {
	p.failed.Add(1)
	p.logger.Debug(err)

	p.errMu.Lock()
	if len(p.errors) < p.opts.MaxReportedErrors {
		p.errors = append(p.errors, err)
	}
	p.errMu.Unlock()
}

// Create the random generator used by a worker. Generators created with the
// same seed and worker index produce identical sequences.
func NewWorkerRNG(seed uint64, worker int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(worker)))
}
