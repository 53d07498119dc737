package models

import "time"

type Post struct {
	ID             string     `json:"id"`
	FileName       string     `json:"fileName"`
	Caption        string     `json:"caption"`
	PublishURL     string     `json:"publishUrl"`
	ImageURL       string     `json:"imageUrl,omitempty"`
	FacebookPostID string     `json:"facebookPostId,omitempty"`
	AcceptedAt     time.Time  `json:"acceptedAt"`
	ScheduledAt    *time.Time `json:"scheduledAt,omitempty"`
	PublishedAt    *time.Time `json:"publishedAt,omitempty"`
	Path           string     `json:"path,omitempty"` // computed on read, never persisted
}

type Draft struct {
	ID       string `json:"id"`
	FileName string `json:"fileName"`
	Path     string `json:"path"`
	MimeType string `json:"mimeType,omitempty"`
}

// Document is the on-disk JSON layout. Drafts is kept for compatibility with
// older data files; draft membership comes from the drafts directory.
type Document struct {
	Drafts        []*Post  `json:"drafts"`
	ToBePublished []*Post  `json:"toBePublished"`
	Published     []*Post  `json:"published"`
	Account       *Account `json:"account,omitempty"`
}
