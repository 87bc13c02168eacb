// Package scheduler runs inference jobs on background workers and hands results back to a
// single consumer goroutine.
//
// # Overview
//
// The consumer (the game loop) calls [Scheduler.Enqueue] to admit work and [Scheduler.Pump]
// once per tick to receive results. Between those calls:
//
//   - pending jobs are kept sorted by priority, then by admission order
//   - at most Config.MaxConcurrentJobs jobs run at once, each on its own goroutine
//   - a finished job goes into a FIFO handoff buffer; Pump drains it and invokes callbacks on
//     the consumer goroutine in completion order
//
// Backend failures never surface as errors. A job whose backend call fails, panics, times
// out, or finds the backend detached completes with an empty Result, and downstream
// decoding rejects that naturally.
//
// # Locks
//
// The pending list, the active counter and the completed buffer each have their own lock
// and no two are ever held together.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rickchristie/director"
	"github.com/rickchristie/director/internal/buffer"
)

var (
	ErrBackendUnavailable = errors.New("scheduler: backend unavailable")
	ErrBackendPanic       = errors.New("scheduler: backend panicked")
)

// DefaultMaxConcurrentJobs is the concurrency ceiling used when Config leaves it unset.
const DefaultMaxConcurrentJobs = 2

// Config holds the scheduler's tunable parameters.
type Config struct {
	// MaxConcurrentJobs bounds how many jobs may be active at once. Values below 1 become 1.
	MaxConcurrentJobs int

	// InferenceTimeout bounds each backend call. Zero means no timeout.
	InferenceTimeout time.Duration

	// Clock stamps admission times. Defaults to the system clock.
	Clock director.Clock

	// Logger receives scheduler logs. Defaults to a discard logger.
	Logger *slog.Logger

	// Observer receives lifecycle notifications. Defaults to NopObserver.
	Observer Observer
}

// DefaultConfig returns a Config with two concurrent jobs and no inference timeout.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentJobs: DefaultMaxConcurrentJobs,
	}
}

// Stats is a point-in-time snapshot of scheduler counters.
type Stats struct {
	Enqueued     int64
	Rejected     int64
	Discarded    int64
	Started      int64
	Completed    int64
	EmptyResults int64
	Dispatched   int64
	Pending      int
	Active       int
	Awaiting     int
}

// Scheduler admits jobs, orders them by priority, bounds concurrency and hands results
// back through Pump.
type Scheduler struct {
	maxConcurrent int
	timeout       time.Duration
	clock         director.Clock
	logger        *slog.Logger
	observer      Observer

	backendMu sync.RWMutex
	backend   director.Backend

	pendingMu sync.Mutex
	pending   pendingList
	seq       uint64

	activeMu sync.Mutex
	active   int

	completed *buffer.FIFO[*director.Job]

	closed  atomic.Bool
	workers sync.WaitGroup

	enqueued     atomic.Int64
	rejected     atomic.Int64
	discarded    atomic.Int64
	started      atomic.Int64
	finished     atomic.Int64
	emptyResults atomic.Int64
	dispatched   atomic.Int64
}

// New creates a Scheduler that runs jobs against backend.
//
// A nil backend makes the scheduler inert: jobs are still accepted, ordered and dispatched,
// but every one completes with an empty result.
func New(backend director.Backend, cfg Config) *Scheduler {
	s := &Scheduler{
		maxConcurrent: max(1, cfg.MaxConcurrentJobs),
		timeout:       cfg.InferenceTimeout,
		clock:         cfg.Clock,
		logger:        cfg.Logger,
		observer:      cfg.Observer,
		backend:       backend,
		completed:     buffer.NewFIFO[*director.Job](),
	}
	if s.clock == nil {
		s.clock = director.NewSystemClock()
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.observer == nil {
		s.observer = NopObserver{}
	}
	return s
}

// MaxConcurrentJobs returns the concurrency ceiling.
func (s *Scheduler) MaxConcurrentJobs() int {
	return s.maxConcurrent
}

// Enqueue admits job and tries to start work immediately. It never blocks on inference.
//
// Enqueue rejects (logs and returns false) a nil job, a job that was already admitted, and
// any job after Close. A rejected job's callback is never invoked.
func (s *Scheduler) Enqueue(job *director.Job) bool {
	if job == nil || job.Ticket != "" {
		s.reject(RejectInvalid)
		s.logger.Warn("rejected invalid job", "already_admitted", job != nil)
		return false
	}

	// Checked under pendingMu so Close's drain cannot miss a job admitted concurrently.
	s.pendingMu.Lock()
	if s.closed.Load() {
		s.pendingMu.Unlock()
		s.reject(RejectClosed)
		s.logger.Warn("rejected job after close", "job", job.ID)
		return false
	}
	s.seq++
	job.Seq = s.seq
	job.EnqueueTime = s.clock.Now()
	job.Ticket = uuid.NewString()
	job.Result = ""
	s.pending.insert(job)
	pending := s.pending.len()
	s.observer.PendingChanged(pending)
	s.pendingMu.Unlock()

	s.enqueued.Add(1)
	s.observer.JobEnqueued(job)
	s.logger.Debug("enqueued job",
		"job", job.ID,
		"ticket", job.Ticket,
		"priority", job.Priority.String(),
		"pending", pending,
	)

	s.tryStartJobs()
	return true
}

// Pump starts whatever capacity allows, then invokes the callback of every job completed
// since the previous call, in completion order, on the calling goroutine. It returns the
// number of jobs dispatched.
//
// Only one goroutine may call Pump. A panicking callback is recovered and logged so the
// remaining callbacks still run.
func (s *Scheduler) Pump() int {
	if !s.closed.Load() {
		s.tryStartJobs()
	}

	jobs := s.completed.Drain()
	for _, job := range jobs {
		s.dispatched.Add(1)
		s.observer.JobDispatched(job)
		s.logger.Debug("dispatching completed job",
			"job", job.ID,
			"ticket", job.Ticket,
			"empty", job.Result == "",
		)
		s.invoke(job)
	}
	return len(jobs)
}

// invoke runs the job's callback, recovering a panic into a log line.
func (s *Scheduler) invoke(job *director.Job) {
	if job.OnComplete == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job callback panicked",
				"job", job.ID,
				"ticket", job.Ticket,
				"panic", fmt.Sprint(r),
			)
		}
	}()
	job.OnComplete(job.Result)
}

// IsBusy reports whether any job is active or pending.
//
// A finished job is handed off before its slot is released, so once IsBusy returns false
// every result is already waiting for the next Pump.
func (s *Scheduler) IsBusy() bool {
	// Pending first: a job takes its slot before it leaves the pending list, so it is
	// always visible in one of the two reads.
	if s.PendingCount() > 0 {
		return true
	}
	return s.ActiveCount() > 0
}

// ActiveCount returns the number of jobs currently holding a worker slot.
func (s *Scheduler) ActiveCount() int {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	return s.active
}

// PendingCount returns the number of admitted jobs waiting for a slot.
func (s *Scheduler) PendingCount() int {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return s.pending.len()
}

// Stats returns a snapshot of the scheduler's counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Enqueued:     s.enqueued.Load(),
		Rejected:     s.rejected.Load(),
		Discarded:    s.discarded.Load(),
		Started:      s.started.Load(),
		Completed:    s.finished.Load(),
		EmptyResults: s.emptyResults.Load(),
		Dispatched:   s.dispatched.Load(),
		Pending:      s.PendingCount(),
		Active:       s.ActiveCount(),
		Awaiting:     s.completed.Len(),
	}
}

// DetachBackend drops the scheduler's reference to its backend, as when the model is torn
// down. Jobs that have not yet reached the backend complete with empty results.
func (s *Scheduler) DetachBackend() {
	s.backendMu.Lock()
	defer s.backendMu.Unlock()
	s.backend = nil
}

// Close stops admissions, discards pending jobs and waits for active jobs to finish.
//
// Discarded jobs never have their callbacks invoked. Jobs that were active complete
// normally and stay in the handoff buffer, so a Pump after Close still delivers them.
func (s *Scheduler) Close() {
	if s.closed.Swap(true) {
		s.workers.Wait()
		return
	}

	// Any reserveSlot that raced with the flag either already registered its worker or
	// now sees closed.
	s.activeMu.Lock()
	s.activeMu.Unlock()

	s.pendingMu.Lock()
	dropped := s.pending.drain()
	s.observer.PendingChanged(0)
	s.pendingMu.Unlock()

	for _, job := range dropped {
		s.discarded.Add(1)
		s.observer.JobRejected(RejectDiscarded)
		s.logger.Warn("discarded pending job on close", "job", job.ID, "ticket", job.Ticket)
	}

	s.workers.Wait()
}

func (s *Scheduler) reject(reason RejectReason) {
	s.rejected.Add(1)
	s.observer.JobRejected(reason)
}

// tryStartJobs starts pending jobs while capacity allows. The slot is reserved before a
// job is popped, so concurrent callers can never push active past the ceiling.
func (s *Scheduler) tryStartJobs() {
	for !s.closed.Load() {
		if !s.reserveSlot() {
			return
		}

		s.pendingMu.Lock()
		job := s.pending.popFront()
		if job != nil {
			s.observer.PendingChanged(s.pending.len())
		}
		s.pendingMu.Unlock()

		if job == nil {
			s.releaseSlot()
			s.workers.Done()
			return
		}

		s.startJob(job)
	}
}

// reserveSlot takes a worker slot and registers the worker with the wait group.
func (s *Scheduler) reserveSlot() bool {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	if s.closed.Load() || s.active >= s.maxConcurrent {
		return false
	}
	s.active++
	s.workers.Add(1)
	s.observer.ActiveChanged(s.active)
	return true
}

func (s *Scheduler) releaseSlot() {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	s.active = max(0, s.active-1)
	s.observer.ActiveChanged(s.active)
}

func (s *Scheduler) startJob(job *director.Job) {
	s.started.Add(1)
	s.observer.JobStarted(job)
	s.logger.Debug("starting job", "job", job.ID, "ticket", job.Ticket)

	go s.runJob(job)
}

// runJob executes on a worker goroutine.
func (s *Scheduler) runJob(job *director.Job) {
	defer s.workers.Done()

	start := time.Now()
	result, err := s.infer(job)
	elapsed := time.Since(start)

	if err != nil {
		result = ""
		s.logger.Warn("inference failed, completing with empty result",
			"job", job.ID,
			"ticket", job.Ticket,
			"error", err,
		)
	} else {
		s.logger.Debug("job completed", "job", job.ID, "ticket", job.Ticket, "elapsed", elapsed)
	}
	job.Result = result
	if result == "" {
		s.emptyResults.Add(1)
	}

	// Hand off before releasing the slot so IsBusy stays true until the result is visible
	// to Pump.
	s.completed.Push(job)
	s.finished.Add(1)
	s.releaseSlot()
	s.observer.JobFinished(job, elapsed, err)

	s.tryStartJobs()
}

// infer calls the backend, mapping every failure mode to an error.
func (s *Scheduler) infer(job *director.Job) (result string, err error) {
	s.backendMu.RLock()
	backend := s.backend
	s.backendMu.RUnlock()

	if backend == nil {
		return "", ErrBackendUnavailable
	}

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			result = ""
			err = fmt.Errorf("%w: %v", ErrBackendPanic, r)
		}
	}()

	return backend.Infer(ctx, job.Payload)
}
