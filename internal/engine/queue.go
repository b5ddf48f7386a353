package engine

import (
	"container/heap"
	"time"

	"github.com/roach88/strata/internal/task"
)

// job is a pending step of one task.
type job struct {
	at   time.Duration
	seq  int64 // tie-break: scheduling order
	task task.ID
	gen  uint64 // must match the task's generation when popped, or the job is stale
}

// jobHeap orders jobs by (at, seq).
type jobHeap []job

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}

func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x any) { *h = append(*h, x.(job)) }

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	j := old[n-1]
	old[n-1] = job{}
	*h = old[:n-1]
	return j
}

// jobQueue is the engine's agenda: a priority queue of jobs by simulated
// time, FIFO within an instant.
//
// Not safe for concurrent use; only the engine's single writer touches it.
type jobQueue struct {
	h jobHeap
}

func newJobQueue() *jobQueue {
	return &jobQueue{h: make(jobHeap, 0, 64)}
}

// Push adds a job.
func (q *jobQueue) Push(j job) {
	heap.Push(&q.h, j)
}

// Peek returns the earliest job without removing it.
func (q *jobQueue) Peek() (job, bool) {
	if len(q.h) == 0 {
		return job{}, false
	}
	return q.h[0], true
}

// Pop removes and returns the earliest job.
func (q *jobQueue) Pop() (job, bool) {
	if len(q.h) == 0 {
		return job{}, false
	}
	return heap.Pop(&q.h).(job), true
}

// PopAt removes every job due at exactly at, in scheduling order.
func (q *jobQueue) PopAt(at time.Duration) []job {
	var out []job
	for len(q.h) > 0 && q.h[0].at == at {
		out = append(out, heap.Pop(&q.h).(job))
	}
	return out
}

// Len returns the number of queued jobs, stale ones included.
func (q *jobQueue) Len() int {
	return len(q.h)
}
