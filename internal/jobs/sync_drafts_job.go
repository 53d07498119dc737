package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/maheshrc27/postpub/internal/service"
)

type SyncDraftsJob struct {
	ps      service.PostService
	timeout time.Duration
}

func NewSyncDraftsJob(ps service.PostService, timeout time.Duration) *SyncDraftsJob {
	return &SyncDraftsJob{
		ps:      ps,
		timeout: timeout,
	}
}

// SyncDrafts moves new inbox files into drafts. Meant to run from cron.
func (j *SyncDraftsJob) SyncDrafts() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	moved, err := j.ps.SyncDrafts(ctx)
	if err != nil {
		slog.Info("scheduled draft sync failed", "moved", moved, "error", err)
		return
	}
	if moved > 0 {
		slog.Info("scheduled draft sync", "moved", moved)
	}
}
