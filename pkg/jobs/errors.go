package jobs

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/gntree/pkg/errcode"
)

// HandlerError is recorded for a job that has no handler or whose handler
// panicked.
func HandlerError(jobType string, err error) error {
	return &gn.Error{
		Code: errcode.JobHandlerError,
		Msg:  "Job of type <em>%s</em> cannot run",
		Vars: []any{jobType},
		Err:  fmt.Errorf("%s handler: %w", jobType, err),
	}
}

// ScheduleError is returned for an invalid cron expression.
func ScheduleError(spec string, err error) error {
	return &gn.Error{
		Code: errcode.JobScheduleError,
		Msg:  "Invalid schedule <em>%s</em>",
		Vars: []any{spec},
		Err:  fmt.Errorf("cannot parse schedule %q: %w", spec, err),
	}
}
