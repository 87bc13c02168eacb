package scheduler

import (
	"sort"

	"github.com/rickchristie/director"
)

// pendingList keeps jobs sorted by priority (high first) and admission order within a
// priority. It is not safe for concurrent use; the scheduler guards it with pendingMu.
type pendingList struct {
	jobs []*director.Job
}

// insert places job after every job that should start before it. Since a newly admitted
// job has the highest sequence number, this is a stable insertion: equal-priority jobs keep
// their admission order.
func (p *pendingList) insert(job *director.Job) {
	i := sort.Search(len(p.jobs), func(i int) bool {
		return job.Before(p.jobs[i])
	})
	p.jobs = append(p.jobs, nil)
	copy(p.jobs[i+1:], p.jobs[i:])
	p.jobs[i] = job
}

// popFront removes and returns the job that should start next, or nil when empty.
func (p *pendingList) popFront() *director.Job {
	if len(p.jobs) == 0 {
		return nil
	}
	job := p.jobs[0]
	p.jobs[0] = nil
	p.jobs = p.jobs[1:]
	return job
}

// drain removes and returns every pending job in start order.
func (p *pendingList) drain() []*director.Job {
	out := p.jobs
	p.jobs = nil
	return out
}

func (p *pendingList) len() int {
	return len(p.jobs)
}
