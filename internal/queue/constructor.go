package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer is the part of *asynq.Client the scheduler needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Scheduler enqueues delayed publish tasks. It implements
// service.PublishScheduler.
type Scheduler struct {
	client Enqueuer
}

func NewScheduler(client Enqueuer) *Scheduler {
	return &Scheduler{client: client}
}

func NewPublishPostTask(postID string) (*asynq.Task, error) {
	payload, err := json.Marshal(PublishPostPayload{PostID: postID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePublishPost, payload), nil
}

// SchedulePublish enqueues a single-attempt publish of postID after delay.
func (s *Scheduler) SchedulePublish(ctx context.Context, postID string, delay time.Duration) error {
	task, err := NewPublishPostTask(postID)
	if err != nil {
		return err
	}

	info, err := s.client.EnqueueContext(ctx, task, asynq.ProcessIn(delay), asynq.MaxRetry(0))
	if err != nil {
		return err
	}

	slog.Info("publish task scheduled", "post_id", postID, "task_id", info.ID, "delay", delay)
	return nil
}
