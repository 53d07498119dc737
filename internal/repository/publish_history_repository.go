package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/postpub/internal/models"
)

type PublishHistoryRepository interface {
	Create(ctx context.Context, pa *models.PublishAttempt) (int64, error)
	List(ctx context.Context) ([]*models.PublishAttempt, error)
}

type publishHistoryRepository struct {
	db *sql.DB
}

func NewPublishHistoryRepository(db *sql.DB) PublishHistoryRepository {
	return &publishHistoryRepository{db: db}
}

const createPublishHistoryTable = `
	CREATE TABLE IF NOT EXISTS publish_history (
		id BIGSERIAL PRIMARY KEY,
		post_id TEXT NOT NULL,
		file_name TEXT NOT NULL,
		facebook_post_id TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// MigratePublishHistory creates the publish_history table if it is missing.
func MigratePublishHistory(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createPublishHistoryTable); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *publishHistoryRepository) Create(ctx context.Context, pa *models.PublishAttempt) (int64, error) {
	query := `
		INSERT INTO publish_history (post_id, file_name, facebook_post_id, error_message)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, pa.PostID, pa.FileName, pa.FacebookPostID, pa.ErrorMessage).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *publishHistoryRepository) List(ctx context.Context) ([]*models.PublishAttempt, error) {
	query := `SELECT id, post_id, file_name, facebook_post_id, error_message, created_at FROM publish_history ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	attempts := []*models.PublishAttempt{}
	for rows.Next() {
		var pa models.PublishAttempt
		err := rows.Scan(&pa.ID, &pa.PostID, &pa.FileName, &pa.FacebookPostID, &pa.ErrorMessage, &pa.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		attempts = append(attempts, &pa)
	}
	return attempts, rows.Err()
}

// memoryPublishHistory keeps attempts in process memory. Used when no
// Postgres database is configured.
type memoryPublishHistory struct {
	mu       sync.Mutex
	attempts []*models.PublishAttempt
}

func NewMemoryPublishHistory() PublishHistoryRepository {
	return &memoryPublishHistory{}
}

func (r *memoryPublishHistory) Create(ctx context.Context, pa *models.PublishAttempt) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pa.ID = int64(len(r.attempts) + 1)
	if pa.CreatedAt.IsZero() {
		pa.CreatedAt = time.Now()
	}
	r.attempts = append(r.attempts, pa)
	return pa.ID, nil
}

func (r *memoryPublishHistory) List(ctx context.Context) ([]*models.PublishAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	attempts := make([]*models.PublishAttempt, 0, len(r.attempts))
	for i := len(r.attempts) - 1; i >= 0; i-- {
		attempts = append(attempts, r.attempts[i])
	}
	return attempts, nil
}
