package jobs_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gnames/gn"
	"github.com/gnames/gntree/pkg/errcode"
	"github.com/gnames/gntree/pkg/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedule(t *testing.T) {
	ctx := context.Background()
	var runs atomic.Int64
	stop, err := jobs.Schedule(ctx, "@every 1s", "count",
		func(context.Context) error {
			if runs.Add(1) == 1 {
				return errors.New("first run fails")
			}
			return nil
		})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return runs.Load() >= 2 },
		5*time.Second, 50*time.Millisecond)
	stop()
	n := runs.Load()
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, n, runs.Load(), "stopped schedule does not run")
}

func TestScheduleDisabled(t *testing.T) {
	stop, err := jobs.Schedule(context.Background(), "", "noop",
		func(context.Context) error {
			t.Fatal("must not run")
			return nil
		})
	require.NoError(t, err)
	stop()
}

func TestScheduleInvalid(t *testing.T) {
	_, err := jobs.Schedule(context.Background(), "every day", "noop",
		func(context.Context) error { return nil })
	gnErr, ok := err.(*gn.Error)
	require.True(t, ok)
	assert.Equal(t, errcode.JobScheduleError, gnErr.Code)
	assert.Equal(t, []any{"every day"}, gnErr.Vars)
}
