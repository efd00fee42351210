package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when submitting to a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobQueueFull is returned when the job queue is full
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrUnknownJobKind is returned by the executor for kinds it has no runner for
	ErrUnknownJobKind = errors.New("unknown job kind")

	// ErrInvalidSchedule is returned for cron specs robfig/cron rejects
	ErrInvalidSchedule = errors.New("invalid cron schedule")
)
