package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	config "github.com/maheshrc27/postpub/configs"
	"github.com/maheshrc27/postpub/internal/repository"
	"github.com/maheshrc27/postpub/internal/storage"
	"github.com/stretchr/testify/require"
)

var (
	jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}
	pngBytes  = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 'I', 'H', 'D', 'R'}
)

const testPublicURL = "http://localhost:3000"

// fakeGraph records photo publish requests and answers them with handler.
type fakeGraph struct {
	mu       sync.Mutex
	requests []*http.Request
	handler  http.HandlerFunc
	server   *httptest.Server
}

func newFakeGraph(t *testing.T, handler http.HandlerFunc) *fakeGraph {
	t.Helper()
	g := &fakeGraph{handler: handler}
	g.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.requests = append(g.requests, r.Clone(context.Background()))
		handler := g.handler
		g.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(g.server.Close)
	return g
}

func (g *fakeGraph) setHandler(h http.HandlerFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handler = h
}

func (g *fakeGraph) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

func (g *fakeGraph) last() *http.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[len(g.requests)-1]
}

func photoOK(id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"id": id, "post_id": "page_" + id})
	}
}

// photoHeld answers like photoOK once release is closed. Each request is
// announced on started first.
func photoHeld(id string, started chan<- struct{}, release <-chan struct{}) http.HandlerFunc {
	ok := photoOK(id)
	return func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		ok(w, r)
	}
}

func photoFail(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	w.Write([]byte(`{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`))
}

type fakeMirror struct {
	keys    []string
	deleted []string
	err     error
}

func (m *fakeMirror) Upload(ctx context.Context, key string, file []byte, filetype string) error {
	if m.err != nil {
		return m.err
	}
	m.keys = append(m.keys, key)
	return nil
}

func (m *fakeMirror) Delete(ctx context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *fakeMirror) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

type fakeScheduler struct {
	postID string
	delay  time.Duration
}

func (f *fakeScheduler) SchedulePublish(ctx context.Context, postID string, delay time.Duration) error {
	f.postID = postID
	f.delay = delay
	return nil
}

type fixture struct {
	svc     PostService
	fb      FacebookService
	fs      *storage.LocalStorage
	repo    repository.PostRepository
	history repository.PublishHistoryRepository
	graph   *fakeGraph
}

type fixtureOption func(*fixtureDeps)

type fixtureDeps struct {
	mirror    MediaMirror
	scheduler PublishScheduler
}

func withMirror(m MediaMirror) fixtureOption {
	return func(d *fixtureDeps) { d.mirror = m }
}

func withScheduler(s PublishScheduler) fixtureOption {
	return func(d *fixtureDeps) { d.scheduler = s }
}

func testConfig(graphURL string) config.Config {
	return config.Config{
		PublicURL: testPublicURL,
		Facebook: config.Facebook{
			PageAccessToken: "page-token",
			GraphURL:        graphURL,
			GraphVersion:    "v21.0",
		},
		PublishTimeout: 5 * time.Second,
		SecretKey:      "test-secret",
	}
}

func newFixture(t *testing.T, handler http.HandlerFunc, opts ...fixtureOption) *fixture {
	t.Helper()

	var deps fixtureDeps
	for _, opt := range opts {
		opt(&deps)
	}

	root := t.TempDir()
	fs, err := storage.NewLocalStorage(filepath.Join(root, "posts-management"), filepath.Join(root, "posts"))
	require.NoError(t, err)

	repo, err := repository.NewPostRepository(filepath.Join(root, "data", "posts.json"))
	require.NoError(t, err)

	graph := newFakeGraph(t, handler)
	fb := NewFacebookService(testConfig(graph.server.URL), repo)
	history := repository.NewMemoryPublishHistory()

	return &fixture{
		svc:     NewPostService(testPublicURL, fs, repo, history, fb, deps.mirror, deps.scheduler),
		fb:      fb,
		fs:      fs,
		repo:    repo,
		history: history,
		graph:   graph,
	}
}

func (f *fixture) addDraft(t *testing.T, name string) {
	t.Helper()
	require.NoError(t, f.fs.WriteFile(storage.Drafts, name, jpegBytes))
}
