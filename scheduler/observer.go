package scheduler

import (
	"time"

	"github.com/rickchristie/director"
)

// Observer receives scheduler lifecycle notifications, typically for metrics.
//
// JobStarted, JobFinished and the two count callbacks may be called from worker goroutines.
// Implementations must be safe for concurrent use and must not call back into the
// scheduler.
type Observer interface {
	// JobEnqueued is called after a job is admitted to the pending set.
	JobEnqueued(job *director.Job)

	// PendingChanged is called with the pending list locked whenever its length changes:
	// on admission, when a job leaves for a worker and when Close discards the rest.
	// Calls are therefore ordered and the last one is the current length.
	PendingChanged(pending int)

	// ActiveChanged is called with the active counter locked whenever a worker slot is
	// taken or released, so the last call carries the current count.
	ActiveChanged(active int)

	// JobRejected is called when Enqueue refuses a job or Close discards one.
	JobRejected(reason RejectReason)

	// JobStarted is called when a job leaves the pending set and takes a worker slot.
	JobStarted(job *director.Job)

	// JobFinished is called when the backend call returns and the job has been handed off.
	// err is non-nil when the backend was unavailable or failed; the job's Result is empty.
	JobFinished(job *director.Job, elapsed time.Duration, err error)

	// JobDispatched is called on the consumer goroutine right before the job's callback.
	JobDispatched(job *director.Job)
}

// RejectReason explains why a job never reached a worker.
type RejectReason string

const (
	RejectInvalid   RejectReason = "invalid"
	RejectClosed    RejectReason = "closed"
	RejectDiscarded RejectReason = "discarded"
)

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) JobEnqueued(*director.Job) {}
func (NopObserver) PendingChanged(int) {}
func (NopObserver) JobRejected(RejectReason) {}
func (NopObserver) ActiveChanged(int) {}
func (NopObserver) JobStarted(*director.Job) {}
func (NopObserver) JobFinished(*director.Job, time.Duration, error) {}
func (NopObserver) JobDispatched(*director.Job) {}

// Compile-time check that NopObserver implements Observer.
var _ Observer = NopObserver{}
