// Package dispatch runs planning requests in the background on a bounded
// pool of workers so HTTP handlers can return immediately. A cancelled job is
// discarded as a whole; no partial result is kept.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eugenenazirov/kerf-planner/internal/cutlist"
	"github.com/eugenenazirov/kerf-planner/internal/cutplan"
	"github.com/eugenenazirov/kerf-planner/internal/service"
)

const (
	defaultWorkers   = 2
	defaultQueueSize = 32
	defaultRetention = 15 * time.Minute
)

var (
	// ErrQueueFull is returned when no more jobs can be accepted.
	ErrQueueFull = errors.New("job queue is full")
	// ErrJobNotFound is returned for unknown or expired job ids.
	ErrJobNotFound = errors.New("job not found")
	// ErrClosed is returned after the dispatcher has been closed.
	ErrClosed = errors.New("dispatcher is closed")
)

// State is the lifecycle stage of a job.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateDone      State = "done"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

func (s State) finished() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}

// Runner plans a batch of cut lists.
type Runner interface {
	PlanDocuments(ctx context.Context, docs []cutlist.Document, overrides service.Overrides) ([]cutplan.Plan, error)
}

// Request is the work submitted for one job.
type Request struct {
	Documents []cutlist.Document
	Overrides service.Overrides
}

// Job is a snapshot of a background planning job.
type Job struct {
	ID          string         `json:"id"`
	State       State          `json:"state"`
	SubmittedAt time.Time      `json:"submittedAt"`
	FinishedAt  *time.Time     `json:"finishedAt,omitempty"`
	Plans       []cutplan.Plan `json:"plans,omitempty"`
	Error       string         `json:"error,omitempty"`
}

type entry struct {
	job    Job
	req    Request
	ctx    context.Context
	cancel context.CancelFunc
}

// Dispatcher owns the job table and the worker goroutines.
type Dispatcher struct {
	runner    Runner
	logger    *zap.Logger
	clock     func() time.Time
	workers   int
	queueSize int
	retention time.Duration

	root   context.Context
	stop   context.CancelFunc
	queue  chan *entry
	wg     sync.WaitGroup
	mu     sync.Mutex
	jobs   map[string]*entry
	closed bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWorkers sets the number of concurrent planning workers.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithQueueSize sets how many jobs may wait for a worker.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

// WithRetention sets how long finished jobs stay queryable.
func WithRetention(ttl time.Duration) Option {
	return func(d *Dispatcher) {
		if ttl > 0 {
			d.retention = ttl
		}
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(d *Dispatcher) {
		d.clock = clock
	}
}

// New creates a Dispatcher and starts its workers.
func New(runner Runner, logger *zap.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		runner:    runner,
		logger:    logger,
		clock:     func() time.Time { return time.Now().UTC() },
		workers:   defaultWorkers,
		queueSize: defaultQueueSize,
		retention: defaultRetention,
		jobs:      make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.root, d.stop = context.WithCancel(context.Background())
	d.queue = make(chan *entry, d.queueSize)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Submit queues req and returns the queued job.
func (d *Dispatcher) Submit(req Request) (Job, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return Job{}, ErrClosed
	}
	d.evictLocked()

	ctx, cancel := context.WithCancel(d.root)
	e := &entry{
		job: Job{
			ID:          uuid.NewString(),
			State:       StateQueued,
			SubmittedAt: d.clock(),
		},
		req:    req,
		ctx:    ctx,
		cancel: cancel,
	}

	select {
	case d.queue <- e:
	default:
		cancel()
		return Job{}, ErrQueueFull
	}
	d.jobs[e.job.ID] = e

	d.logger.Info("job queued", zap.String("job_id", e.job.ID), zap.Int("documents", len(req.Documents)))
	return e.job, nil
}

// Get returns the current snapshot of job id.
func (d *Dispatcher) Get(id string) (Job, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.evictLocked()
	e, ok := d.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return e.job, nil
}

// Cancel aborts a queued or running job. Finished jobs are returned unchanged.
func (d *Dispatcher) Cancel(id string) (Job, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if !e.job.State.finished() {
		e.cancel()
		d.finishLocked(e, StateCancelled, nil, nil)
		d.logger.Info("job cancelled", zap.String("job_id", id))
	}
	return e.job, nil
}

// Close stops accepting jobs, cancels the ones in flight and waits for the
// workers to exit or ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.stop()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for e := range d.queue {
		d.run(e)
	}
}

func (d *Dispatcher) run(e *entry) {
	d.mu.Lock()
	if e.job.State != StateQueued {
		d.mu.Unlock()
		return
	}
	e.job.State = StateRunning
	d.mu.Unlock()

	plans, err := d.runner.PlanDocuments(e.ctx, e.req.Documents, e.req.Overrides)

	d.mu.Lock()
	defer d.mu.Unlock()

	if e.job.State != StateRunning {
		return
	}
	switch {
	case err != nil && e.ctx.Err() != nil:
		d.finishLocked(e, StateCancelled, nil, nil)
	case err != nil:
		d.finishLocked(e, StateFailed, nil, err)
		d.logger.Warn("job failed", zap.String("job_id", e.job.ID), zap.Error(err))
	default:
		d.finishLocked(e, StateDone, plans, nil)
		d.logger.Info("job finished", zap.String("job_id", e.job.ID), zap.Int("plans", len(plans)))
	}
	e.cancel()
}

func (d *Dispatcher) finishLocked(e *entry, state State, plans []cutplan.Plan, err error) {
	now := d.clock()
	e.job.State = state
	e.job.FinishedAt = &now
	e.job.Plans = plans
	if err != nil {
		e.job.Error = err.Error()
	}
}

func (d *Dispatcher) evictLocked() {
	cutoff := d.clock().Add(-d.retention)
	for id, e := range d.jobs {
		if e.job.State.finished() && e.job.FinishedAt != nil && e.job.FinishedAt.Before(cutoff) {
			delete(d.jobs, id)
		}
	}
}
