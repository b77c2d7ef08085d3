package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	config "github.com/maheshrc27/contentpilot/configs"
	"github.com/maheshrc27/contentpilot/internal/assets"
	"github.com/maheshrc27/contentpilot/internal/models"
	"github.com/maheshrc27/contentpilot/internal/repository"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testClient = "acme"

type fixture struct {
	layout  *assets.Layout
	repo    repository.PostRepository
	posts   PostService
	actions ActionService
	publish PublishService
}

func newFixture(t *testing.T, publishers Publishers, policy string) *fixture {
	t.Helper()
	root := t.TempDir()
	layout := assets.NewLayout(filepath.Join(root, "clients"), config.AssetSubdirs{
		Preview:      filepath.Join("output", "preview"),
		Approved:     filepath.Join("output", "approved"),
		PostingQueue: filepath.Join("output", "posting_queue"),
		Posted:       filepath.Join("output", "posted"),
	}, "/static")
	require.NoError(t, layout.EnsureDirs(testClient))

	repo := repository.NewPostRepository(filepath.Join(root, "runtime", "posts.json"))
	locks := NewPostLocks()
	platforms := config.DefaultPlatforms()

	return &fixture{
		layout:  layout,
		repo:    repo,
		posts:   NewPostService(repo, layout, NewCaptionService(layout.Root()), models.PlatformInstagram),
		actions: NewActionService(repo, layout, platforms, policy, models.PlatformInstagram, locks),
		publish: NewPublishService(repo, nil, layout, publishers, platforms, nil, locks, models.PlatformInstagram),
	}
}

func (f *fixture) writeVariant(t *testing.T, folder assets.Folder, name string) string {
	t.Helper()
	dir := f.layout.Dir(testClient, folder)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, pngBytes, 0o644))
	return p
}

func (f *fixture) savePost(t *testing.T, p *models.Post) {
	t.Helper()
	if p.Client == "" {
		p.Client = testClient
	}
	require.NoError(t, f.repo.Save(context.Background(), p))
}

func (f *fixture) get(t *testing.T, id string) *models.Post {
	t.Helper()
	p, err := f.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

// pngBytes is the smallest header filetype recognizes as image/png.
var pngBytes = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 0x49, 0x48, 0x44, 0x52}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, post *models.Post) (*models.PlatformResult, error) {
	args := m.Called(ctx, post)
	res, _ := args.Get(0).(*models.PlatformResult)
	return res, args.Error(1)
}

type recordingNotifier struct {
	sent []Notification
	err  error
}

func (r *recordingNotifier) Notify(ctx context.Context, n Notification) error {
	r.sent = append(r.sent, n)
	return r.err
}
