package iojobs

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/gntree/pkg/errcode"
)

// NotConnectedError is returned when the queue is used before the
// database connection is established.
func NotConnectedError() error {
	return &gn.Error{
		Code: errcode.DBNotConnectedError,
		Msg:  "Jobs queue used without database connection",
		Err:  fmt.Errorf("not connected to database"),
	}
}

// EnqueueError is returned when a job cannot be added or cancelled.
func EnqueueError(jobType string, entityID int64, err error) error {
	msg := "Cannot schedule <em>%s</em> job for record <em>%d</em>"

	return &gn.Error{
		Code: errcode.JobEnqueueError,
		Msg:  msg,
		Vars: []any{jobType, entityID},
		Err: fmt.Errorf("enqueue %s for %d: %w",
			jobType, entityID, err),
	}
}

// ClaimError is returned when the state of jobs cannot be read or
// changed.
func ClaimError(err error) error {
	msg := `Cannot update background jobs

<em>How to fix:</em>
  Run <em>gntree migrate</em> to bring the jobs table up to date`

	return &gn.Error{
		Code: errcode.JobClaimError,
		Msg:  msg,
		Err:  fmt.Errorf("jobs queue: %w", err),
	}
}
