package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/contentpilot/configs"
	"github.com/maheshrc27/contentpilot/internal/assets"
	"github.com/maheshrc27/contentpilot/internal/models"
	"github.com/maheshrc27/contentpilot/internal/repository"
	"github.com/maheshrc27/contentpilot/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 0x49, 0x48, 0x44, 0x52}

type testEnv struct {
	app    *fiber.App
	layout *assets.Layout
	repo   repository.PostRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	layout := assets.NewLayout(filepath.Join(root, "clients"), config.AssetSubdirs{
		Preview:      filepath.Join("output", "preview"),
		Approved:     filepath.Join("output", "approved"),
		PostingQueue: filepath.Join("output", "posting_queue"),
		Posted:       filepath.Join("output", "posted"),
	}, "/static")
	require.NoError(t, layout.EnsureDirs("acme"))

	repo := repository.NewPostRepository(filepath.Join(root, "runtime", "posts.json"))
	locks := service.NewPostLocks()
	platforms := config.DefaultPlatforms()

	posts := service.NewPostService(repo, layout, service.NewCaptionService(layout.Root()), models.PlatformInstagram)
	actions := service.NewActionService(repo, layout, platforms, service.PolicyApproveThenSchedule, models.PlatformInstagram, locks)
	publish := service.NewPublishService(repo, nil, layout, service.Publishers{}, platforms, nil, locks, models.PlatformInstagram)

	app := fiber.New()
	NewPostHandler(posts, actions, publish).Register(app.Group("/api"))
	return &testEnv{app: app, layout: layout, repo: repo}
}

func (e *testEnv) writeVariant(t *testing.T, folder assets.Folder, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(e.layout.Dir("acme", folder), name), pngBytes, 0o644))
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestListPostsReconciles(t *testing.T) {
	env := newTestEnv(t)
	env.writeVariant(t, assets.FolderPreview, "fp_01.png")

	resp, body := env.do(t, "GET", "/api/clients/acme/posts", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	posts := body["posts"].([]any)
	require.Len(t, posts, 1)
	assert.Equal(t, "fp_01", posts[0].(map[string]any)["id"])

	resp, body = env.do(t, "GET", "/api/clients", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{"acme"}, body["clients"])
}

func TestApproveScheduleAndPublish(t *testing.T) {
	env := newTestEnv(t)
	env.writeVariant(t, assets.FolderPreview, "p1.png")
	env.do(t, "GET", "/api/clients/acme/posts", "")

	resp, body := env.do(t, "POST", "/api/posts/p1/approve", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "approved", body["status"])

	past := time.Now().UTC().Add(-time.Minute).Format(time.RFC3339)
	resp, body = env.do(t, "POST", "/api/posts/p1/schedule", `{"publish_at":"`+past+`"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "scheduled", body["status"])

	resp, body = env.do(t, "POST", "/api/posts/p1/publish", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, service.OutcomePublished, body["status"])

	resp, body = env.do(t, "POST", "/api/posts/p1/publish", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, service.OutcomeSkipped, body["status"])

	resp, body = env.do(t, "GET", "/api/posts/p1/history", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{}, body["history"])
	assert.Equal(t, service.ReasonAlreadyPublished, body["reason"])

	assert.FileExists(t, filepath.Join(env.layout.Dir("acme", assets.FolderPosted), "p1.png"))
}

func TestScheduleRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.repo.Save(context.Background(), &models.Post{ID: "p2", Client: "acme"}))

	resp, body := env.do(t, "POST", "/api/posts/p2/schedule", `{"publish_at":"tomorrow"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "InvalidSchedule", body["code"])

	resp, body = env.do(t, "POST", "/api/posts/p2/schedule", `{"publish_at":"2030-01-01T09:00:00Z"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "NoAssets", body["code"])
}

func TestUnknownPostIsNotFound(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/posts/ghost/approve", "/api/posts/ghost/schedule", "/api/posts/ghost/publish"} {
		resp, body := env.do(t, "POST", path, `{"publish_at":"2030-01-01T09:00:00Z"}`)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode, path)
		assert.Equal(t, "NotFound", body["code"], path)
	}

	resp, _ := env.do(t, "GET", "/api/posts/ghost", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, body := env.do(t, "POST", "/api/posts/ghost/revert", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "reverted_to_preview", body["status"])
}

func TestRevertAndMarkPosted(t *testing.T) {
	env := newTestEnv(t)
	env.writeVariant(t, assets.FolderApproved, "p3.png")
	require.NoError(t, env.repo.Save(context.Background(), &models.Post{ID: "p3", Client: "acme", Status: models.PostStatusApproved}))

	resp, body := env.do(t, "POST", "/api/posts/p3/mark-posted/linkedin", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "posted", body["platform_status"].(map[string]any)["linkedin"])

	resp, body = env.do(t, "POST", "/api/posts/p3/revert", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "reverted_to_preview", body["status"])
	assert.FileExists(t, filepath.Join(env.layout.Dir("acme", assets.FolderPreview), "p3.png"))
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("client", "acme"))
	require.NoError(t, w.WriteField("platform", "facebook"))
	fw, err := w.CreateFormFile("file", "photo.png")
	require.NoError(t, err)
	_, err = fw.Write(pngBytes)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/api/posts/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var post models.Post
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&post))
	assert.True(t, strings.HasPrefix(post.ID, "mp_"))
	assert.Equal(t, models.PostStatusPreview, post.Status)
	assert.FileExists(t, filepath.Join(env.layout.Dir("acme", assets.FolderPreview), post.ID+"_facebook.png"))
}
