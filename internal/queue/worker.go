package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/postpub/internal/service"
)

func (q *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}

	post, err := q.ps.PublishPost(ctx, payload.PostID)
	if errors.Is(err, service.ErrNotFound) {
		// Deleted or already published since it was scheduled.
		slog.Info("scheduled post is no longer pending", "post_id", payload.PostID)
		return nil
	}
	if errors.Is(err, service.ErrConflict) {
		// A manual publish of the same post is already running.
		slog.Info("scheduled post is already being published", "post_id", payload.PostID)
		return nil
	}
	if err != nil {
		slog.Error("scheduled publish failed", "post_id", payload.PostID, "error", err)
		return fmt.Errorf("publish %s: %v: %w", payload.PostID, err, asynq.SkipRetry)
	}

	slog.Info("scheduled post published", "post_id", post.ID, "facebook_post_id", post.FacebookPostID)
	return nil
}
