package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/maheshrc27/postpub/internal/models"
)

type PostRepository interface {
	ListPending(ctx context.Context) ([]*models.Post, error)
	ListPublished(ctx context.Context) ([]*models.Post, error)
	GetPending(ctx context.Context, id string) (*models.Post, error)
	CreatePending(ctx context.Context, post *models.Post) error
	UpdatePending(ctx context.Context, post *models.Post) error
	RemovePending(ctx context.Context, id string) (bool, error)
	MarkPublished(ctx context.Context, post *models.Post) error
	GetAccount(ctx context.Context) (*models.Account, error)
	SetAccount(ctx context.Context, account *models.Account) error
}

// postRepository keeps every record in a single JSON document. All access is
// serialised by mu; each mutation rewrites the whole document.
type postRepository struct {
	mu   sync.Mutex
	path string
}

func NewPostRepository(path string) (PostRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	r := &postRepository{path: path}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func emptyDocument() *models.Document {
	return &models.Document{
		Drafts:        []*models.Post{},
		ToBePublished: []*models.Post{},
		Published:     []*models.Post{},
	}
}

// load reads the document, resetting it to the empty default when the file is
// missing, empty or malformed.
func (r *postRepository) load() (*models.Document, error) {
	data, err := os.ReadFile(r.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Info(err.Error())
		return nil, err
	}

	doc := emptyDocument()
	if len(data) > 0 {
		if err := json.Unmarshal(data, doc); err == nil {
			normalize(doc)
			return doc, nil
		}
		slog.Warn("posts data file is malformed, resetting", "path", r.path)
	}

	doc = emptyDocument()
	if err := r.save(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func normalize(doc *models.Document) {
	if doc.Drafts == nil {
		doc.Drafts = []*models.Post{}
	}
	if doc.ToBePublished == nil {
		doc.ToBePublished = []*models.Post{}
	}
	if doc.Published == nil {
		doc.Published = []*models.Post{}
	}
}

// save writes to a temp file in the same directory and renames it over the
// document.
func (r *postRepository) save(doc *models.Document) error {
	for _, list := range [][]*models.Post{doc.ToBePublished, doc.Published} {
		for _, p := range list {
			p.Path = ""
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".posts-*.json")
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), r.path); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) update(fn func(doc *models.Document) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return r.save(doc)
}

func (r *postRepository) read() (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

func (r *postRepository) ListPending(ctx context.Context) ([]*models.Post, error) {
	doc, err := r.read()
	if err != nil {
		return nil, err
	}
	return doc.ToBePublished, nil
}

func (r *postRepository) ListPublished(ctx context.Context) ([]*models.Post, error) {
	doc, err := r.read()
	if err != nil {
		return nil, err
	}
	return doc.Published, nil
}

func findPost(posts []*models.Post, id string) int {
	for i, p := range posts {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// GetPending returns nil, nil when no pending post has the id.
func (r *postRepository) GetPending(ctx context.Context, id string) (*models.Post, error) {
	doc, err := r.read()
	if err != nil {
		return nil, err
	}

	i := findPost(doc.ToBePublished, id)
	if i == -1 {
		return nil, nil
	}
	return doc.ToBePublished[i], nil
}

func (r *postRepository) CreatePending(ctx context.Context, post *models.Post) error {
	return r.update(func(doc *models.Document) error {
		if findPost(doc.ToBePublished, post.ID) != -1 {
			return fmt.Errorf("post %s already pending", post.ID)
		}
		doc.ToBePublished = append(doc.ToBePublished, post)
		return nil
	})
}

func (r *postRepository) UpdatePending(ctx context.Context, post *models.Post) error {
	return r.update(func(doc *models.Document) error {
		i := findPost(doc.ToBePublished, post.ID)
		if i == -1 {
			return fmt.Errorf("post %s is not pending", post.ID)
		}
		doc.ToBePublished[i] = post
		return nil
	})
}

func (r *postRepository) RemovePending(ctx context.Context, id string) (bool, error) {
	removed := false
	err := r.update(func(doc *models.Document) error {
		i := findPost(doc.ToBePublished, id)
		if i == -1 {
			return nil
		}
		doc.ToBePublished = append(doc.ToBePublished[:i], doc.ToBePublished[i+1:]...)
		removed = true
		return nil
	})
	return removed, err
}

// MarkPublished drops the pending record with post.ID and appends post to the
// published list in one write.
func (r *postRepository) MarkPublished(ctx context.Context, post *models.Post) error {
	return r.update(func(doc *models.Document) error {
		i := findPost(doc.ToBePublished, post.ID)
		if i == -1 {
			return fmt.Errorf("post %s is not pending", post.ID)
		}
		doc.ToBePublished = append(doc.ToBePublished[:i], doc.ToBePublished[i+1:]...)
		doc.Published = append(doc.Published, post)
		return nil
	})
}

func (r *postRepository) GetAccount(ctx context.Context) (*models.Account, error) {
	doc, err := r.read()
	if err != nil {
		return nil, err
	}
	return doc.Account, nil
}

func (r *postRepository) SetAccount(ctx context.Context, account *models.Account) error {
	return r.update(func(doc *models.Document) error {
		doc.Account = account
		return nil
	})
}
