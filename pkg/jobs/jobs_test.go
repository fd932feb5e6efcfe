package jobs_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gnames/gntree/pkg/jobs"
	"github.com/gnames/gntree/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRegistry(t *testing.T) {
	reg := jobs.NewRegistry()
	noop := func(context.Context, int64) error { return nil }

	require.NoError(t, reg.Register(jobs.NewHandler(jobs.GuideBundle, noop)))
	assert.Error(t, reg.Register(jobs.NewHandler(jobs.GuideBundle, noop)),
		"duplicate type")
	assert.Error(t, reg.Register(jobs.NewHandler("", noop)))
	assert.Error(t, reg.Register(nil))

	h, ok := reg.Get(jobs.GuideBundle)
	require.True(t, ok)
	assert.Equal(t, jobs.GuideBundle, h.Type())
	_, ok = reg.Get(jobs.TaxonSummary)
	assert.False(t, ok)
	assert.Equal(t, []string{jobs.GuideBundle}, reg.Types())
}

func TestMemQueue(t *testing.T) {
	ctx := context.Background()
	q := jobs.NewMemQueue(2)

	added, err := q.Enqueue(ctx, jobs.GuideBundle, 1)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = q.Enqueue(ctx, jobs.GuideBundle, 1)
	require.NoError(t, err)
	assert.False(t, added, "one pending job per entity")
	added, err = q.Enqueue(ctx, jobs.GuideBundle, 2)
	require.NoError(t, err)
	assert.True(t, added)

	n, err := q.Cancel(ctx, jobs.GuideBundle, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	job, err := q.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, int64(1), job.EntityID)
	assert.Equal(t, 1, job.Attempts)

	// running job does not block a new pending one
	added, err = q.Enqueue(ctx, jobs.GuideBundle, 1)
	require.NoError(t, err)
	assert.True(t, added)

	// the newer pending job replaces the failed one
	require.NoError(t, q.Fail(ctx, job.ID, errors.New("boom")))
	assert.Empty(t, q.Jobs(schema.JobFailed))
	dead := q.Jobs(schema.JobDead)
	require.Len(t, dead, 1)
	assert.Equal(t, "boom", dead[0].LastError)
	assert.Len(t, q.Pending(jobs.GuideBundle), 1)
}

func TestMemQueueFailedIsPending(t *testing.T) {
	ctx := context.Background()
	q := jobs.NewMemQueue(3)

	_, err := q.Enqueue(ctx, jobs.GuideBundle, 7)
	require.NoError(t, err)
	job, err := q.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	require.NoError(t, q.Fail(ctx, job.ID, errors.New("boom")))

	added, err := q.Enqueue(ctx, jobs.GuideBundle, 7)
	require.NoError(t, err)
	assert.False(t, added, "a retriable failed job is pending")

	retry, err := q.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, retry)
	assert.Equal(t, job.ID, retry.ID)
	none, err := q.Claim(ctx)
	require.NoError(t, err)
	assert.Nil(t, none, "one job per entity")

	require.NoError(t, q.Fail(ctx, retry.ID, errors.New("boom")))
	n, err := q.Cancel(ctx, jobs.GuideBundle, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	none, err = q.Claim(ctx)
	require.NoError(t, err)
	assert.Nil(t, none, "cancelled retry does not run")
}

func TestMemQueueRetries(t *testing.T) {
	ctx := context.Background()
	q := jobs.NewMemQueue(2)
	_, err := q.Enqueue(ctx, jobs.TaxonSummary, 5)
	require.NoError(t, err)

	for i := range 2 {
		job, err := q.Claim(ctx)
		require.NoError(t, err)
		require.NotNil(t, job, "attempt %d", i+1)
		require.NoError(t, q.Fail(ctx, job.ID, errors.New("boom")))
	}

	job, err := q.Claim(ctx)
	require.NoError(t, err)
	assert.Nil(t, job, "attempts are exhausted")
	assert.Len(t, q.Jobs(schema.JobDead), 1)

	added, err := q.Enqueue(ctx, jobs.TaxonSummary, 5)
	require.NoError(t, err)
	assert.True(t, added, "dead jobs do not block new ones")
}

func TestWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := jobs.NewMemQueue(1)
	reg := jobs.NewRegistry()
	metrics := jobs.NewMetrics("")

	var done atomic.Int64
	require.NoError(t, reg.Register(jobs.NewHandler(jobs.GuideBundle,
		func(_ context.Context, id int64) error {
			done.Add(id)
			return nil
		})))
	require.NoError(t, reg.Register(jobs.NewHandler(jobs.TaxonSummary,
		func(context.Context, int64) error {
			panic("summary handler")
		})))

	for i := range int64(5) {
		_, err := q.Enqueue(ctx, jobs.GuideBundle, i+1)
		require.NoError(t, err)
	}
	_, err := q.Enqueue(ctx, jobs.TaxonSummary, 1)
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, jobs.ObservationIconic, 1)
	require.NoError(t, err)

	w := jobs.NewWorker(q, reg,
		jobs.OptConcurrency(3),
		jobs.OptPollInterval(10*time.Millisecond),
		jobs.OptMetrics(metrics),
	)
	w.Start(ctx)

	require.Eventually(t, func() bool {
		return len(q.Jobs(schema.JobQueued)) == 0 &&
			len(q.Jobs(schema.JobRunning)) == 0
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	w.Wait()

	assert.Equal(t, int64(15), done.Load())
	assert.Len(t, q.Jobs(schema.JobSucceeded), 5)
	failed := q.Jobs(schema.JobDead)
	require.Len(t, failed, 2)
	for _, v := range failed {
		switch v.JobType {
		case jobs.TaxonSummary:
			assert.Contains(t, v.LastError, "panic")
		case jobs.ObservationIconic:
			assert.Contains(t, v.LastError, "no handler")
		}
	}

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "gntree_jobs_processed_total"))
	assert.Contains(t, body, `status="succeeded"`)
}

// failRecorder remembers the context error seen by Fail.
type failRecorder struct {
	*jobs.MemQueue
	failErr chan error
}

func (q *failRecorder) Fail(ctx context.Context, id string, err error) error {
	q.failErr <- ctx.Err()
	return q.MemQueue.Fail(ctx, id, err)
}

func TestFailAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := &failRecorder{MemQueue: jobs.NewMemQueue(3), failErr: make(chan error, 1)}
	reg := jobs.NewRegistry()
	started := make(chan struct{})
	require.NoError(t, reg.Register(jobs.NewHandler(jobs.GuideBundle,
		func(ctx context.Context, _ int64) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		})))
	_, err := q.Enqueue(ctx, jobs.GuideBundle, 1)
	require.NoError(t, err)

	w := jobs.NewWorker(q, reg)
	done := make(chan bool)
	go func() {
		ran, _ := w.RunOnce(ctx)
		done <- ran
	}()
	<-started
	cancel()

	assert.True(t, <-done)
	assert.NoError(t, <-q.failErr, "failure is recorded with a live context")
	failed := q.Jobs(schema.JobFailed)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].LastError, "context canceled")
}

func TestRunOnceEmpty(t *testing.T) {
	w := jobs.NewWorker(jobs.NewMemQueue(1), jobs.NewRegistry())
	ran, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
}
