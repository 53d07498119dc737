package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/postpub/internal/models"
	"github.com/maheshrc27/postpub/internal/repository"
	"github.com/maheshrc27/postpub/internal/storage"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type PostService interface {
	SyncDrafts(ctx context.Context) (int, error)
	ListDrafts(ctx context.Context) ([]*models.Draft, error)
	AcceptPost(ctx context.Context, fileName, caption string) (string, error)
	RejectPost(ctx context.Context, fileName string) error
	ListPendingPublish(ctx context.Context) ([]*models.Post, error)
	PublishPost(ctx context.Context, id string) (*models.Post, error)
	DeletePending(ctx context.Context, id string) error
	ListPublished(ctx context.Context) ([]*models.Post, error)
	UploadImage(ctx context.Context, name string, data []byte) (string, error)
	SchedulePublish(ctx context.Context, id string, at time.Time) error
	History(ctx context.Context) ([]*models.PublishAttempt, error)
}

// PublishScheduler runs PublishPost for postID once delay has passed.
type PublishScheduler interface {
	SchedulePublish(ctx context.Context, postID string, delay time.Duration) error
}

type postService struct {
	publicURL string
	fs        *storage.LocalStorage
	pr        repository.PostRepository
	ph        repository.PublishHistoryRepository
	fb        FacebookService
	mirror    MediaMirror
	scheduler PublishScheduler

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewPostService wires the lifecycle manager. mirror and scheduler may be nil.
func NewPostService(
	publicURL string,
	fs *storage.LocalStorage,
	pr repository.PostRepository,
	ph repository.PublishHistoryRepository,
	fb FacebookService,
	mirror MediaMirror,
	scheduler PublishScheduler) PostService {
	return &postService{
		publicURL: publicURL,
		fs:        fs,
		pr:        pr,
		ph:        ph,
		fb:        fb,
		mirror:    mirror,
		scheduler: scheduler,
		inFlight:  make(map[string]struct{}),
	}
}

// claim marks a pending post as busy until release is called. A post that is
// already being published or deleted yields ErrConflict.
func (s *postService) claim(id string) (release func(), err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inFlight[id]; busy {
		return nil, fmt.Errorf("%w: post %s is already being processed", ErrConflict, id)
	}
	s.inFlight[id] = struct{}{}

	return func() {
		s.mu.Lock()
		delete(s.inFlight, id)
		s.mu.Unlock()
	}, nil
}

var allowedImageTypes = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "png": {},
}

func (s *postService) SyncDrafts(ctx context.Context) (int, error) {
	names, err := s.fs.List(storage.Inbox)
	if err != nil {
		slog.Error("error reading inbox", "dir", s.fs.Dir(storage.Inbox), "error", err)
		return 0, fmt.Errorf("%w: error reading inbox: %v", ErrIO, err)
	}

	moved := 0
	var errs []error
	for _, name := range names {
		if err := s.fs.Move(storage.Inbox, storage.Drafts, name); err != nil {
			slog.Error("failed to move file to drafts", "file", name, "error", err)
			errs = append(errs, err)
			continue
		}
		moved++
	}

	if len(errs) > 0 {
		return moved, fmt.Errorf("%w: %d of %d files not moved: %v", ErrIO, len(errs), len(names), errors.Join(errs...))
	}

	if moved > 0 {
		slog.Info("inbox synced", "moved", moved)
	}
	return moved, nil
}

func (s *postService) ListDrafts(ctx context.Context) ([]*models.Draft, error) {
	names, err := s.fs.List(storage.Drafts)
	if err != nil {
		return nil, fmt.Errorf("%w: error reading drafts: %v", ErrIO, err)
	}

	drafts := make([]*models.Draft, 0, len(names))
	for _, name := range names {
		draft := &models.Draft{
			ID:       DraftID(name),
			FileName: name,
			Path:     ImageURL(s.publicURL, name),
		}

		if path, err := s.fs.Path(storage.Drafts, name); err == nil {
			if kind, err := filetype.MatchFile(path); err == nil && kind != types.Unknown {
				draft.MimeType = kind.MIME.Value
			}
		}
		drafts = append(drafts, draft)
	}
	return drafts, nil
}

func (s *postService) existsIn(folder storage.Folder, fileName string) (string, error) {
	name, err := storage.CleanName(fileName)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	exists, err := s.fs.Exists(folder, name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}
	if !exists {
		return "", fmt.Errorf("%w: %s not in %s", ErrNotFound, name, folder)
	}
	return name, nil
}

func (s *postService) AcceptPost(ctx context.Context, fileName, caption string) (string, error) {
	name, err := s.existsIn(storage.Drafts, fileName)
	if err != nil {
		return "", err
	}

	pending, err := s.pr.ListPending(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}
	for _, p := range pending {
		if p.FileName == name {
			return "", fmt.Errorf("%w: %s is already waiting to be published as %s", ErrConflict, name, p.ID)
		}
	}

	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}

	imageURL := ImageURL(s.publicURL, name)
	mirrorKey := ""
	if s.mirror != nil {
		mirrorKey = id + "-" + name
		imageURL, err = s.mirrorImage(ctx, mirrorKey, name)
		if err != nil {
			return "", err
		}
	}

	publishURL, err := s.fb.PublishURL(ctx, imageURL, caption)
	if err != nil {
		s.unmirror(ctx, mirrorKey)
		return "", err
	}

	if err := s.fs.Move(storage.Drafts, storage.ToBePublished, name); err != nil {
		s.unmirror(ctx, mirrorKey)
		return "", fmt.Errorf("%w: error moving draft: %v", ErrIO, err)
	}

	post := &models.Post{
		ID:         id,
		FileName:   name,
		Caption:    caption,
		PublishURL: publishURL,
		ImageURL:   imageURL,
		AcceptedAt: time.Now().UTC(),
	}
	if err := s.pr.CreatePending(ctx, post); err != nil {
		s.moveBack(storage.ToBePublished, storage.Drafts, name)
		s.unmirror(ctx, mirrorKey)
		return "", fmt.Errorf("%w: error saving post: %v", ErrIO, err)
	}

	slog.Info("post accepted", "id", id, "file", name)
	return id, nil
}

func (s *postService) mirrorImage(ctx context.Context, key, name string) (string, error) {
	data, err := s.fs.ReadFile(storage.Drafts, name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}

	contentType := "application/octet-stream"
	if kind, err := filetype.Match(data); err == nil && kind != types.Unknown {
		contentType = kind.MIME.Value
	}

	if err := s.mirror.Upload(ctx, key, data, contentType); err != nil {
		return "", fmt.Errorf("%w: error uploading image: %v", ErrUpstream, err)
	}
	return s.mirror.PublicURL(key), nil
}

// unmirror removes an uploaded copy whose accept did not complete.
func (s *postService) unmirror(ctx context.Context, key string) {
	if s.mirror == nil || key == "" {
		return
	}
	if err := s.mirror.Delete(context.WithoutCancel(ctx), key); err != nil {
		slog.Error("failed to remove mirrored image", "key", key, "error", err)
	}
}

// moveBack undoes a file move after the document write failed.
func (s *postService) moveBack(from, to storage.Folder, name string) {
	if err := s.fs.Move(from, to, name); err != nil {
		slog.Error("failed to restore file", "file", name, "from", from, "to", to, "error", err)
	}
}

func (s *postService) RejectPost(ctx context.Context, fileName string) error {
	name, err := s.existsIn(storage.Drafts, fileName)
	if err != nil {
		return err
	}

	if err := s.fs.Remove(storage.Drafts, name); err != nil {
		return fmt.Errorf("%w: error deleting draft: %v", ErrIO, err)
	}

	slog.Info("draft rejected", "file", name)
	return nil
}

func (s *postService) withPaths(posts []*models.Post) []*models.Post {
	for _, p := range posts {
		p.Path = ImageURL(s.publicURL, p.FileName)
	}
	return posts
}

func (s *postService) ListPendingPublish(ctx context.Context) ([]*models.Post, error) {
	posts, err := s.pr.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return s.withPaths(posts), nil
}

func (s *postService) ListPublished(ctx context.Context) ([]*models.Post, error) {
	posts, err := s.pr.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return s.withPaths(posts), nil
}

func (s *postService) getPending(ctx context.Context, id string) (*models.Post, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is empty", ErrInvalidInput)
	}

	post, err := s.pr.GetPending(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	if post == nil {
		return nil, fmt.Errorf("%w: post %s", ErrNotFound, id)
	}
	return post, nil
}

// PublishPost makes one publish attempt. A failed attempt leaves the post
// pending with its file in place; retrying is up to the caller.
func (s *postService) PublishPost(ctx context.Context, id string) (*models.Post, error) {
	release, err := s.claim(id)
	if err != nil {
		return nil, err
	}
	defer release()

	post, err := s.getPending(ctx, id)
	if err != nil {
		return nil, err
	}

	facebookPostID, err := s.fb.PublishPhoto(ctx, post.PublishURL)
	s.recordAttempt(ctx, post, facebookPostID, err)
	if err != nil {
		slog.Error("publish failed", "id", id, "file", post.FileName, "error", err)
		if !errors.Is(err, ErrUpstream) && !errors.Is(err, ErrIO) {
			err = fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		return nil, err
	}

	now := time.Now().UTC()
	post.FacebookPostID = facebookPostID
	post.PublishedAt = &now

	if err := s.pr.MarkPublished(ctx, post); err != nil {
		slog.Error("post published but not recorded", "id", id, "facebook_post_id", facebookPostID, "error", err)
		return nil, fmt.Errorf("%w: published as %s but failed to save: %v", ErrIO, facebookPostID, err)
	}

	if err := s.fs.Move(storage.ToBePublished, storage.Published, post.FileName); err != nil {
		slog.Error("post published but file not moved", "id", id, "file", post.FileName, "error", err)
		return nil, fmt.Errorf("%w: published as %s but failed to move file: %v", ErrIO, facebookPostID, err)
	}

	slog.Info("post published", "id", id, "facebook_post_id", facebookPostID)
	post.Path = ImageURL(s.publicURL, post.FileName)
	return post, nil
}

func (s *postService) recordAttempt(ctx context.Context, post *models.Post, facebookPostID string, publishErr error) {
	if s.ph == nil {
		return
	}

	attempt := &models.PublishAttempt{
		PostID:         post.ID,
		FileName:       post.FileName,
		FacebookPostID: facebookPostID,
	}
	if publishErr != nil {
		attempt.ErrorMessage = publishErr.Error()
	}

	if _, err := s.ph.Create(ctx, attempt); err != nil {
		slog.Error("failed to record publish attempt", "id", post.ID, "error", err)
	}
}

// DeletePending removes the record first and restores it if the file cannot
// be deleted, so callers never observe one without the other.
func (s *postService) DeletePending(ctx context.Context, id string) error {
	release, err := s.claim(id)
	if err != nil {
		return err
	}
	defer release()

	post, err := s.getPending(ctx, id)
	if err != nil {
		return err
	}

	removed, err := s.pr.RemovePending(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if !removed {
		return fmt.Errorf("%w: post %s", ErrNotFound, id)
	}

	if err := s.fs.Remove(storage.ToBePublished, post.FileName); err != nil && !errors.Is(err, os.ErrNotExist) {
		if rerr := s.pr.CreatePending(ctx, post); rerr != nil {
			slog.Error("failed to restore pending post", "id", id, "error", rerr)
		}
		return fmt.Errorf("%w: error deleting file: %v", ErrIO, err)
	}

	slog.Info("pending post deleted", "id", id, "file", post.FileName)
	return nil
}

// UploadImage stores an uploaded jpeg or png in the inbox under a unique
// name and returns that name.
func (s *postService) UploadImage(ctx context.Context, name string, data []byte) (string, error) {
	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return "", fmt.Errorf("%w: unsupported file type", ErrInvalidInput)
	}
	if _, ok := allowedImageTypes[kind.Extension]; !ok {
		return "", fmt.Errorf("%w: file type %s is not allowed", ErrInvalidInput, kind.Extension)
	}

	base, err := storage.CleanName(filepath.Base(name))
	if err != nil {
		base = "image"
	}
	if filepath.Ext(base) == "" {
		base += "." + kind.Extension
	}

	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}

	fileName := id + "-" + base
	if err := s.fs.WriteFile(storage.Inbox, fileName, data); err != nil {
		return "", fmt.Errorf("%w: error saving upload: %v", ErrIO, err)
	}

	slog.Info("image uploaded", "file", fileName, "type", kind.MIME.Value)
	return fileName, nil
}

func (s *postService) SchedulePublish(ctx context.Context, id string, at time.Time) error {
	if s.scheduler == nil {
		return ErrQueueDisabled
	}

	post, err := s.getPending(ctx, id)
	if err != nil {
		return err
	}

	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}

	if err := s.scheduler.SchedulePublish(ctx, id, delay); err != nil {
		return fmt.Errorf("%w: error scheduling post: %v", ErrUpstream, err)
	}

	scheduledAt := at.UTC()
	post.ScheduledAt = &scheduledAt
	if err := s.pr.UpdatePending(ctx, post); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}

	slog.Info("post scheduled", "id", id, "at", scheduledAt)
	return nil
}

func (s *postService) History(ctx context.Context) ([]*models.PublishAttempt, error) {
	if s.ph == nil {
		return []*models.PublishAttempt{}, nil
	}

	attempts, err := s.ph.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return attempts, nil
}
