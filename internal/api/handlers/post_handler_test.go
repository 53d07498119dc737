package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/postpub/configs"
	"github.com/maheshrc27/postpub/internal/api/middleware"
	"github.com/maheshrc27/postpub/internal/models"
	"github.com/maheshrc27/postpub/internal/repository"
	"github.com/maheshrc27/postpub/internal/service"
	"github.com/maheshrc27/postpub/internal/storage"
	"github.com/maheshrc27/postpub/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}

type testServer struct {
	app   *fiber.App
	fs    *storage.LocalStorage
	graph *httptest.Server
}

func newTestServer(t *testing.T, graphHandler http.HandlerFunc, requireAuth bool) *testServer {
	t.Helper()

	graph := httptest.NewServer(graphHandler)
	t.Cleanup(graph.Close)

	root := t.TempDir()
	cfg := config.Config{
		PublicURL:   "http://localhost:3000",
		FrontendURL: "http://localhost:5173",
		Facebook: config.Facebook{
			AppID:           "app",
			PageAccessToken: "page-token",
			GraphURL:        graph.URL,
			GraphVersion:    "v21.0",
		},
		PublishTimeout: 5 * time.Second,
		SecretKey:      "test-secret",
		CookieName:     "postpub_token",
	}

	fs, err := storage.NewLocalStorage(filepath.Join(root, "posts-management"), filepath.Join(root, "posts"))
	require.NoError(t, err)
	repo, err := repository.NewPostRepository(filepath.Join(root, "data", "posts.json"))
	require.NoError(t, err)

	fb := service.NewFacebookService(cfg, repo)
	ps := service.NewPostService(cfg.PublicURL, fs, repo, repository.NewMemoryPublishHistory(), fb, nil, nil)

	var auth fiber.Handler
	if requireAuth {
		auth = middleware.NewAuthMiddleware(cfg).AuthMiddleware()
	}

	app := fiber.New()
	RegisterRoutes(app, NewPostHandler(ps), NewAccountHandler(fb, cfg), auth,
		fs.Dir(storage.Drafts), fs.Dir(storage.ToBePublished), fs.Dir(storage.Published))

	return &testServer{app: app, fs: fs, graph: graph}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func graphOK(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"id":"photo_1","post_id":"page_photo_1"}`))
}

func graphDown(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusInternalServerError)
}

func TestPostLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, graphOK, false)
	require.NoError(t, s.fs.WriteFile(storage.Inbox, "a.jpg", jpegBytes))

	resp, body := s.do(t, http.MethodPost, "/sync-drafts", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Posts moved to drafts.")

	resp, body = s.do(t, http.MethodGet, "/drafts", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var drafts []models.Draft
	require.NoError(t, json.Unmarshal(body, &drafts))
	require.Len(t, drafts, 1)
	assert.Equal(t, "a.jpg", drafts[0].FileName)

	resp, body = s.do(t, http.MethodPost, "/accept-post", map[string]string{"fileName": "a.jpg", "caption": "hi"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var accepted struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(body, &accepted))
	require.NotEmpty(t, accepted.ID)
	assert.Equal(t, "Post accepted.", accepted.Message)

	resp, body = s.do(t, http.MethodGet, "/to-be-published", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pending []models.Post
	require.NoError(t, json.Unmarshal(body, &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, accepted.ID, pending[0].ID)
	assert.Equal(t, "http://localhost:3000/images/a.jpg", pending[0].Path)

	resp, body = s.do(t, http.MethodGet, "/images/a.jpg", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, jpegBytes, body)

	resp, body = s.do(t, http.MethodPost, "/publish-post", map[string]string{"id": accepted.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Post published successfully.", string(body))

	resp, body = s.do(t, http.MethodGet, "/published", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var published []models.Post
	require.NoError(t, json.Unmarshal(body, &published))
	require.Len(t, published, 1)
	assert.Equal(t, "photo_1", published[0].FacebookPostID)
	assert.NotNil(t, published[0].PublishedAt)

	resp, body = s.do(t, http.MethodGet, "/to-be-published", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))

	resp, body = s.do(t, http.MethodGet, "/images/a.jpg", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "published images stay reachable")
	assert.Equal(t, jpegBytes, body)

	resp, body = s.do(t, http.MethodGet, "/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "photo_1")
}

func TestNotFoundResponses(t *testing.T) {
	s := newTestServer(t, graphOK, false)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   string
	}{
		{"accept", http.MethodPost, "/accept-post", map[string]string{"fileName": "x.jpg", "caption": "hi"}, "Draft not found."},
		{"reject", http.MethodPost, "/reject-post", map[string]string{"fileName": "x.jpg"}, "Draft not found."},
		{"publish", http.MethodPost, "/publish-post", map[string]string{"id": "nope"}, "Post not found."},
		{"delete", http.MethodDelete, "/to-be-published/nope", nil, "Post not found."},
		{"account", http.MethodGet, "/account", nil, "No Facebook page connected."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			assert.Equal(t, tt.want, string(body))
		})
	}
}

func TestRejectPostOverHTTP(t *testing.T) {
	s := newTestServer(t, graphOK, false)
	require.NoError(t, s.fs.WriteFile(storage.Drafts, "a.jpg", jpegBytes))

	resp, _ := s.do(t, http.MethodGet, "/images/a.jpg", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := s.do(t, http.MethodPost, "/reject-post", map[string]string{"fileName": "a.jpg"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Post rejected and deleted.", string(body))

	resp, body = s.do(t, http.MethodGet, "/drafts", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))

	resp, _ = s.do(t, http.MethodGet, "/images/a.jpg", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "rejected image is no longer served")

	// A new file under the same name is served with its own bytes.
	replacement := append(append([]byte{}, jpegBytes...), 'x', 'y')
	require.NoError(t, s.fs.WriteFile(storage.Drafts, "a.jpg", replacement))
	resp, body = s.do(t, http.MethodGet, "/images/a.jpg", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, replacement, body)
}

func TestPublishUpstreamFailureOverHTTP(t *testing.T) {
	s := newTestServer(t, graphDown, false)
	require.NoError(t, s.fs.WriteFile(storage.Drafts, "a.jpg", jpegBytes))

	_, body := s.do(t, http.MethodPost, "/accept-post", map[string]string{"fileName": "a.jpg", "caption": "hi"})
	var accepted struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &accepted))

	resp, body := s.do(t, http.MethodPost, "/publish-post", map[string]string{"id": accepted.ID})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Error publishing post.", string(body))

	_, body = s.do(t, http.MethodGet, "/to-be-published", nil)
	var pending []models.Post
	require.NoError(t, json.Unmarshal(body, &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, accepted.ID, pending[0].ID)
}

func TestDeletePendingOverHTTP(t *testing.T) {
	s := newTestServer(t, graphOK, false)
	require.NoError(t, s.fs.WriteFile(storage.Drafts, "a.jpg", jpegBytes))

	_, body := s.do(t, http.MethodPost, "/accept-post", map[string]string{"fileName": "a.jpg", "caption": "hi"})
	var accepted struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &accepted))

	resp, _ := s.do(t, http.MethodGet, "/images/a.jpg", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = s.do(t, http.MethodDelete, "/to-be-published/"+accepted.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Post deleted.", string(body))

	resp, body = s.do(t, http.MethodGet, "/images/a.jpg", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "deleted image is no longer served")
	assert.Equal(t, "Image not found.", string(body))
}

func TestBadRequests(t *testing.T) {
	s := newTestServer(t, graphOK, false)

	req := httptest.NewRequest(http.MethodPost, "/accept-post", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/accept-post", map[string]string{"fileName": "../data/posts.json"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/schedule-post", map[string]string{"id": "x", "scheduledTime": "tomorrow"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/schedule-post", map[string]string{"id": "x", "scheduledTime": "2030-01-02T15:04"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAcceptConflictOverHTTP(t *testing.T) {
	s := newTestServer(t, graphOK, false)

	require.NoError(t, s.fs.WriteFile(storage.Drafts, "a.jpg", jpegBytes))
	resp, _ := s.do(t, http.MethodPost, "/accept-post", map[string]string{"fileName": "a.jpg", "caption": "one"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.fs.WriteFile(storage.Drafts, "a.jpg", jpegBytes))
	resp, _ = s.do(t, http.MethodPost, "/accept-post", map[string]string{"fileName": "a.jpg", "caption": "two"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestUploadImage(t *testing.T) {
	s := newTestServer(t, graphOK, false)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", "quote.jpg")
	require.NoError(t, err)
	_, err = part.Write(jpegBytes)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		FileName string `json:"fileName"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.True(t, strings.HasSuffix(result.FileName, "-quote.jpg"))

	inbox, err := s.fs.List(storage.Inbox)
	require.NoError(t, err)
	assert.Equal(t, []string{result.FileName}, inbox)

	resp, _ = s.do(t, http.MethodPost, "/upload", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, graphOK, true)
	require.NoError(t, s.fs.WriteFile(storage.Drafts, "a.jpg", jpegBytes))

	resp, _ := s.do(t, http.MethodGet, "/drafts", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/images/a.jpg", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "images stay public")

	resp, body := s.do(t, http.MethodGet, "/images/missing.jpg", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Image not found.", string(body))

	token, err := utils.GenerateToken("test-secret", "dashboard", middleware.APIScope, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/drafts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestConnectFacebookRedirects(t *testing.T) {
	s := newTestServer(t, graphOK, false)

	resp, _ := s.do(t, http.MethodGet, "/auth/facebook", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "state=")

	resp, _ = s.do(t, http.MethodGet, "/auth/facebook/callback?code=abc&state=forged", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
