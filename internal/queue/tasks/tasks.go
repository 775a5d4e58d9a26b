package tasks

import (
	"context"

	"github.com/hibiken/asynq"
)

// Task type names.
const (
	TypeActivityAppend = "activity:append"
	TypeReminderRun    = "reminders:send"
)

// Queue names.
const (
	QueueDefault = "default"
	QueueLow     = "low"
)

// Enqueuer is the subset of *asynq.Client used to submit tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

var _ Enqueuer = (*asynq.Client)(nil)
