package jobs

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/gnames/gntree/pkg/schema"
	"github.com/google/uuid"
)

// MemQueue keeps jobs in memory. It is used in tests and by commands that
// run without a worker.
type MemQueue struct {
	mu          sync.Mutex
	jobs        []*schema.Job
	maxAttempts int
}

// NewMemQueue creates an empty in-memory queue. Failed jobs are retried
// until maxAttempts is reached.
func NewMemQueue(maxAttempts int) *MemQueue {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &MemQueue{maxAttempts: maxAttempts}
}

func (q *MemQueue) Enqueue(
	_ context.Context,
	jobType string,
	entityID int64,
) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, j := range q.jobs {
		if j.JobType == jobType && j.EntityID == entityID && j.IsPending() {
			return false, nil
		}
	}
	now := time.Now()
	q.jobs = append(q.jobs, &schema.Job{
		ID:        uuid.NewString(),
		JobType:   jobType,
		EntityID:  entityID,
		Status:    schema.JobQueued,
		RunAt:     now,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return true, nil
}

func (q *MemQueue) Cancel(
	_ context.Context,
	jobType string,
	entityID int64,
) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var n int64
	q.jobs = slices.DeleteFunc(q.jobs, func(j *schema.Job) bool {
		del := j.JobType == jobType && j.EntityID == entityID && j.IsPending()
		if del {
			n++
		}
		return del
	})
	return n, nil
}

func (q *MemQueue) Claim(_ context.Context) (*schema.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now()
	for _, j := range q.jobs {
		if !j.IsPending() || j.Attempts >= q.maxAttempts || j.RunAt.After(now) {
			continue
		}
		j.Status = schema.JobRunning
		j.Attempts++
		j.LockedAt = &now
		j.HeartbeatAt = &now
		j.UpdatedAt = now
		res := *j
		return &res, nil
	}
	return nil, nil
}

func (q *MemQueue) Complete(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if j := q.find(id); j != nil {
		j.Status = schema.JobSucceeded
		j.UpdatedAt = time.Now()
	}
	return nil
}

func (q *MemQueue) Fail(_ context.Context, id string, err error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if j := q.find(id); j != nil {
		now := time.Now()
		j.Status = schema.JobFailed
		if j.Attempts >= q.maxAttempts || q.hasPending(j) {
			j.Status = schema.JobDead
		}
		j.LastError = err.Error()
		j.LastErrorAt = &now
		j.UpdatedAt = now
	}
	return nil
}

// Jobs returns copies of all jobs with the given status, or of all jobs if
// the status is empty.
func (q *MemQueue) Jobs(status string) []schema.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	var res []schema.Job
	for _, j := range q.jobs {
		if status == "" || j.Status == status {
			res = append(res, *j)
		}
	}
	return res
}

// Pending returns jobs of a type that wait to run.
func (q *MemQueue) Pending(jobType string) []schema.Job {
	var res []schema.Job
	for _, j := range q.Jobs("") {
		if j.JobType == jobType && j.IsPending() {
			res = append(res, j)
		}
	}
	return res
}

// hasPending checks if another job of the same entity waits to run.
func (q *MemQueue) hasPending(job *schema.Job) bool {
	for _, j := range q.jobs {
		if j.ID != job.ID && j.JobType == job.JobType &&
			j.EntityID == job.EntityID && j.IsPending() {
			return true
		}
	}
	return false
}

func (q *MemQueue) find(id string) *schema.Job {
	for _, j := range q.jobs {
		if j.ID == id {
			return j
		}
	}
	return nil
}
