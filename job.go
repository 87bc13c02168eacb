package director

import (
	"fmt"
	"time"
)

// Priority orders pending jobs. Higher priorities start first.
type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	default:
		return fmt.Sprintf("priority(%d)", uint8(p))
	}
}

// ParsePriority converts "low", "normal" or "high" into a Priority.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "low":
		return PriorityLow, nil
	case "normal", "":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	default:
		return PriorityNormal, fmt.Errorf("%w: %q", ErrUnknownPriority, s)
	}
}

// Job is one inference request handled by the scheduler.
//
// The caller fills ID, Payload, Priority and OnComplete. The scheduler stamps EnqueueTime,
// Ticket and Seq at admission, and Result when the backend returns.
type Job struct {
	// ID identifies the requesting component (e.g. "Difficulty"). It is not unique:
	// a component may have several jobs in flight.
	ID string

	// Payload is the scenario JSON sent to the backend.
	Payload string

	// Result is the raw backend output. Empty until completed, and empty when the
	// backend was unavailable or failed.
	Result string

	Priority Priority

	// EnqueueTime is stamped at admission, not at creation.
	EnqueueTime time.Time

	// Ticket is a unique correlation id stamped at admission.
	Ticket string

	// Seq is the admission sequence number. It breaks EnqueueTime ties.
	Seq uint64

	// OnComplete receives Result on the consumer goroutine, exactly once.
	// It is never called for a job that was rejected or discarded before dispatch.
	OnComplete func(result string)
}

// NewJob creates a job with the given component id, payload and priority.
func NewJob(id, payload string, priority Priority, onComplete func(string)) *Job {
	return &Job{
		ID:         id,
		Payload:    payload,
		Priority:   priority,
		OnComplete: onComplete,
	}
}

// Before reports whether j should start before other: higher priority first, then
// earlier admission.
func (j *Job) Before(other *Job) bool {
	if j.Priority != other.Priority {
		return j.Priority > other.Priority
	}
	if !j.EnqueueTime.Equal(other.EnqueueTime) {
		return j.EnqueueTime.Before(other.EnqueueTime)
	}
	return j.Seq < other.Seq
}
