package models

import "time"

type PublishAttempt struct {
	ID             int64     `db:"id" json:"id"`
	PostID         string    `db:"post_id" json:"post_id"`
	FileName       string    `db:"file_name" json:"file_name"`
	FacebookPostID string    `db:"facebook_post_id" json:"facebook_post_id"`
	ErrorMessage   string    `db:"error_message" json:"error_message"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
