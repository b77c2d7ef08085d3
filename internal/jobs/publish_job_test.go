package job

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	config "github.com/maheshrc27/contentpilot/configs"
	"github.com/maheshrc27/contentpilot/internal/assets"
	"github.com/maheshrc27/contentpilot/internal/models"
	"github.com/maheshrc27/contentpilot/internal/repository"
	"github.com/maheshrc27/contentpilot/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	layout  *assets.Layout
	repo    repository.PostRepository
	posts   service.PostService
	actions service.ActionService
	publish service.PublishService
}

func newEnv(t *testing.T, clients ...string) *env {
	t.Helper()
	root := t.TempDir()
	layout := assets.NewLayout(filepath.Join(root, "clients"), config.AssetSubdirs{
		Preview:      "preview",
		Approved:     "approved",
		PostingQueue: "posting_queue",
		Posted:       "posted",
	}, "/static")
	for _, c := range clients {
		require.NoError(t, layout.EnsureDirs(c))
	}

	repo := repository.NewPostRepository(filepath.Join(root, "posts.json"))
	locks := service.NewPostLocks()
	platforms := config.DefaultPlatforms()
	return &env{
		layout:  layout,
		repo:    repo,
		posts:   service.NewPostService(repo, layout, nil, models.PlatformInstagram),
		actions: service.NewActionService(repo, layout, platforms, service.PolicyApproveThenSchedule, models.PlatformInstagram, locks),
		publish: service.NewPublishService(repo, nil, layout, nil, platforms, nil, locks, models.PlatformInstagram),
	}
}

func (e *env) save(t *testing.T, p *models.Post) {
	t.Helper()
	require.NoError(t, e.repo.Save(context.Background(), p))
}

func (e *env) file(t *testing.T, client string, f assets.Folder, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(e.layout.Dir(client, f), name), []byte("img"), 0o644))
}

func TestDuePostsSelection(t *testing.T) {
	e := newEnv(t, "acme")
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

	e.save(t, &models.Post{ID: "past", Client: "acme", Status: models.PostStatusScheduled, PublishAt: now.Add(-time.Second).Format(time.RFC3339)})
	e.save(t, &models.Post{ID: "older", Client: "acme", Status: models.PostStatusScheduled, PublishAt: "2026-04-10T08:00:00"})
	e.save(t, &models.Post{ID: "future", Client: "acme", Status: models.PostStatusScheduled, PublishAt: now.Add(time.Hour).Format(time.RFC3339)})
	e.save(t, &models.Post{ID: "missing", Client: "acme", Status: models.PostStatusScheduled})
	e.save(t, &models.Post{ID: "garbage", Client: "acme", Status: models.PostStatusScheduled, PublishAt: "next tuesday"})
	e.save(t, &models.Post{ID: "approved", Client: "acme", Status: models.PostStatusApproved, PublishAt: "2026-01-01T00:00:00Z"})

	job := NewPublishJob(e.posts, e.publish)
	due, err := job.DuePosts(context.Background(), "acme", now)
	require.NoError(t, err)

	ids := make([]string, len(due))
	for i, p := range due {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"older", "past"}, ids)
}

func TestLifecycleScenario(t *testing.T) {
	e := newEnv(t, "acme")
	ctx := context.Background()
	e.file(t, "acme", assets.FolderPreview, "p1.png")
	_, err := e.repo.EnsureExists(ctx, "p1", "acme")
	require.NoError(t, err)

	res, err := e.actions.Approve(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "approved", res.Status)
	assert.True(t, e.layout.AnyVariantsExist("acme", assets.FolderApproved, "p1"))

	_, err = e.actions.Schedule(ctx, "p1", time.Now().Add(-time.Minute), nil)
	require.NoError(t, err)
	assert.True(t, e.layout.AnyVariantsExist("acme", assets.FolderPostingQueue, "p1"))
	p, err := e.repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusScheduled, p.Status)

	summary := NewPublishJob(e.posts, e.publish).RunOnce(ctx)
	assert.Equal(t, 1, summary.Due)
	assert.Equal(t, 1, summary.Published)
	assert.Zero(t, summary.Errored)
	assert.NotEmpty(t, summary.TickID)

	assert.True(t, e.layout.AnyVariantsExist("acme", assets.FolderPosted, "p1"))
	assert.False(t, e.layout.AnyVariantsExist("acme", assets.FolderPostingQueue, "p1"))

	posts, err := e.posts.Get(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, models.PostStatusPublished, posts[0].Status)
	assert.Equal(t, models.ResultStatusOK, posts[0].Results["instagram"].Status)
	assert.Equal(t, "/static/acme/posted/p1.png", posts[0].Results["instagram"].PreviewURL)

	again := NewPublishJob(e.posts, e.publish).RunOnce(ctx)
	assert.Zero(t, again.Due)
}

type flakyPublisher struct {
	fail  map[string]error
	panic map[string]bool
	calls []string
}

func (f *flakyPublisher) Publish(ctx context.Context, id string, publishAt *time.Time) (*service.PublishOutcome, error) {
	f.calls = append(f.calls, id)
	if f.panic[id] {
		panic("boom")
	}
	if err := f.fail[id]; err != nil {
		return nil, err
	}
	if id == "done" {
		return &service.PublishOutcome{Status: service.OutcomeSkipped, PostID: id}, nil
	}
	return &service.PublishOutcome{Status: service.OutcomePublished, PostID: id}, nil
}

func (f *flakyPublisher) History(ctx context.Context, id string) ([]*models.PostingHistory, error) {
	return nil, nil
}

func TestRunOnceIsolatesPostFailures(t *testing.T) {
	e := newEnv(t, "acme", "beta")
	for i, id := range []string{"a", "b", "c", "done"} {
		e.save(t, &models.Post{ID: id, Client: "acme", Status: models.PostStatusScheduled, PublishAt: time.Date(2026, 1, 1, i, 0, 0, 0, time.UTC).Format(time.RFC3339)})
	}
	e.save(t, &models.Post{ID: "z", Client: "beta", Status: models.PostStatusScheduled, PublishAt: "2026-01-01T00:00:00Z"})

	pub := &flakyPublisher{
		fail:  map[string]error{"a": errors.New("store unavailable")},
		panic: map[string]bool{"b": true},
	}
	summary := NewPublishJob(e.posts, pub).RunOnce(context.Background())

	assert.Equal(t, []string{"a", "b", "c", "done", "z"}, pub.calls)
	assert.Equal(t, 2, summary.Clients)
	assert.Equal(t, 5, summary.Due)
	assert.Equal(t, 2, summary.Published)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 2, summary.Errored)
}

func TestRunSkipsOverlappingTick(t *testing.T) {
	e := newEnv(t, "acme")
	pub := &flakyPublisher{}
	job := NewPublishJob(e.posts, pub)
	e.save(t, &models.Post{ID: "a", Client: "acme", Status: models.PostStatusScheduled, PublishAt: "2026-01-01T00:00:00Z"})

	job.running.Lock()
	job.Run()
	job.running.Unlock()
	assert.Empty(t, pub.calls)

	job.Run()
	assert.Equal(t, []string{"a"}, pub.calls)
}
