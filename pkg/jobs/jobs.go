// Package jobs describes background jobs of gntree: the queue contract,
// handlers registry and a worker pool that claims and runs jobs.
package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/gnames/gntree/pkg/schema"
)

// Job types.
const (
	// GuideBundle regenerates the downloadable bundle of a guide.
	GuideBundle = "guide_bundle"

	// TaxonSummary fetches a summary of a taxon from an external service.
	TaxonSummary = "taxon_summary"

	// ObservationIconic reconciles iconic taxa of observations of a taxon
	// and its descendants.
	ObservationIconic = "observation_iconic"
)

// Enqueuer submits jobs for later processing.
type Enqueuer interface {
	// Enqueue adds a job unless a queued job with the same type and entity
	// already exists. Returns true if a new job was added.
	Enqueue(ctx context.Context, jobType string, entityID int64) (bool, error)

	// Cancel removes queued jobs of the type for the entity and returns
	// their number.
	Cancel(ctx context.Context, jobType string, entityID int64) (int64, error)
}

// Queue is a persistent jobs queue.
type Queue interface {
	Enqueuer

	// Claim marks the next runnable job as running and returns it.
	// Returns nil when there is nothing to run.
	Claim(ctx context.Context) (*schema.Job, error)

	// Complete marks a job as succeeded.
	Complete(ctx context.Context, id string) error

	// Fail records the error of a job run.
	Fail(ctx context.Context, id string, err error) error
}

// Handler runs jobs of one type.
type Handler interface {
	Type() string
	Run(ctx context.Context, job *schema.Job) error
}

type handlerFunc struct {
	jobType string
	fn      func(ctx context.Context, entityID int64) error
}

// NewHandler creates a Handler from a function of the job entity ID.
func NewHandler(
	jobType string,
	fn func(ctx context.Context, entityID int64) error,
) Handler {
	return &handlerFunc{jobType: jobType, fn: fn}
}

func (h *handlerFunc) Type() string { return h.jobType }

func (h *handlerFunc) Run(ctx context.Context, job *schema.Job) error {
	return h.fn(ctx, job.EntityID)
}

// Registry keeps handlers by job type.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler. A job type can have only one handler.
func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	t := h.Type()
	if t == "" {
		return fmt.Errorf("handler Type() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[t]; exists {
		return fmt.Errorf("handler already registered for job_type=%s", t)
	}
	r.handlers[t] = h
	return nil
}

// Get returns the handler of a job type.
func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}

// Types returns registered job types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		res = append(res, k)
	}
	return res
}
