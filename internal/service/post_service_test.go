package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/maheshrc27/contentpilot/internal/assets"
	"github.com/maheshrc27/contentpilot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileCreatesRecordsFromFiles(t *testing.T) {
	f := newFixture(t, nil, PolicyApproveThenSchedule)
	f.writeVariant(t, assets.FolderPreview, "fp_01.png")
	f.writeVariant(t, assets.FolderPreview, "fp_01_facebook.png")

	posts, err := f.posts.Get(context.Background(), testClient)
	require.NoError(t, err)
	require.Len(t, posts, 1)

	p := posts[0]
	assert.Equal(t, "fp_01", p.ID)
	assert.Equal(t, "foundation", p.Type)
	assert.Equal(t, models.PostStatusPreview, p.Status)
	assert.Equal(t, models.DefaultCategory, p.Category)
	assert.Equal(t, "/static/acme/output/preview/fp_01.png", p.Results["instagram"].PreviewURL)
	assert.Equal(t, "/static/acme/output/preview/fp_01_facebook.png", p.Results["facebook"].PreviewURL)
	assert.Equal(t, p.Results["instagram"].PreviewURL, p.Preview)
}

func TestReconcileStatusFollowsFolder(t *testing.T) {
	f := newFixture(t, nil, PolicyApproveThenSchedule)
	src := f.writeVariant(t, assets.FolderPreview, "p1.png")
	ctx := context.Background()

	steps := []struct {
		folder assets.Folder
		want   models.Status
	}{
		{assets.FolderApproved, models.PostStatusApproved},
		{assets.FolderPostingQueue, models.PostStatusScheduled},
		{assets.FolderPosted, models.PostStatusPosted},
	}
	require.NoError(t, f.posts.Reconcile(ctx, testClient))
	assert.Equal(t, models.PostStatusPreview, f.get(t, "p1").Status)

	for _, step := range steps {
		dst := filepath.Join(f.layout.Dir(testClient, step.folder), "p1.png")
		require.NoError(t, os.Rename(src, dst))
		src = dst

		require.NoError(t, f.posts.Reconcile(ctx, testClient))
		p := f.get(t, "p1")
		assert.Equal(t, step.want, p.Status, step.folder)
		assert.Equal(t, f.layout.StaticURL(testClient, step.folder, "p1.png"), p.Results["instagram"].PreviewURL)
	}
}

func TestReconcileKeepsTerminalSpelling(t *testing.T) {
	f := newFixture(t, nil, PolicyApproveThenSchedule)
	f.writeVariant(t, assets.FolderPosted, "p9.png")
	f.savePost(t, &models.Post{ID: "p9", Status: models.PostStatusPublished})

	require.NoError(t, f.posts.Reconcile(context.Background(), testClient))
	assert.Equal(t, models.PostStatusPublished, f.get(t, "p9").Status)
}

func TestReconcileMostAdvancedFolderWins(t *testing.T) {
	f := newFixture(t, nil, PolicyApproveThenSchedule)
	f.writeVariant(t, assets.FolderPreview, "p2.png")
	f.writeVariant(t, assets.FolderPostingQueue, "p2_facebook.png")

	require.NoError(t, f.posts.Reconcile(context.Background(), testClient))
	assert.Equal(t, models.PostStatusScheduled, f.get(t, "p2").Status)
}

func TestReconcilePrunesAndClearsStaleURLs(t *testing.T) {
	f := newFixture(t, nil, PolicyApproveThenSchedule)
	f.savePost(t, &models.Post{ID: "gone", Status: models.PostStatusPreview})
	f.savePost(t, &models.Post{
		ID:     "kept",
		Status: models.PostStatusApproved,
		Results: map[string]models.PlatformResult{
			"instagram": {PreviewURL: "/static/acme/output/approved/kept.png", Caption: "hi"},
			"facebook":  {PreviewURL: "https://cdn.example.com/kept.png"},
		},
	})
	f.savePost(t, &models.Post{ID: "other", Client: "beta", Status: models.PostStatusPreview})

	require.NoError(t, f.posts.Reconcile(context.Background(), testClient))

	_, err := f.repo.GetByID(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNotFound)

	kept := f.get(t, "kept")
	assert.Equal(t, models.PostStatusApproved, kept.Status)
	assert.Empty(t, kept.Results["instagram"].PreviewURL)
	assert.Equal(t, "hi", kept.Results["instagram"].Caption)
	assert.Equal(t, "https://cdn.example.com/kept.png", kept.Results["facebook"].PreviewURL)

	assert.Equal(t, "beta", f.get(t, "other").Client)
}

func TestReconcileFallsBackToBaseVariantAndFillsCaptions(t *testing.T) {
	f := newFixture(t, nil, PolicyApproveThenSchedule)
	writeCaptions(t, f.layout.Root(), testClient, "trust", "default: [\"Trusted by {client}\"]\n")
	f.writeVariant(t, assets.FolderApproved, "tr_3.jpg")
	f.savePost(t, &models.Post{ID: "tr_3", Status: models.PostStatusApproved, Platforms: []string{"instagram", "linkedin"}})

	posts, err := f.posts.Get(context.Background(), testClient)
	require.NoError(t, err)
	require.Len(t, posts, 1)

	p := posts[0]
	url := "/static/acme/output/approved/tr_3.jpg"
	assert.Equal(t, url, p.Results["instagram"].PreviewURL)
	assert.Equal(t, url, p.Results["linkedin"].PreviewURL)
	assert.Equal(t, "Trusted by acme", p.Results["instagram"].Caption)
	assert.Equal(t, "Trusted by acme", p.Results["linkedin"].Caption)
}

func TestGetByIDReconciles(t *testing.T) {
	f := newFixture(t, nil, PolicyApproveThenSchedule)
	f.savePost(t, &models.Post{ID: "p5", Status: models.PostStatusPreview})
	f.writeVariant(t, assets.FolderApproved, "p5.png")

	p, err := f.posts.GetByID(context.Background(), "p5")
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusApproved, p.Status)

	_, err = f.posts.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReconcileLeavesOtherClientsIDAlone(t *testing.T) {
	f := newFixture(t, nil, PolicyApproveThenSchedule)
	require.NoError(t, f.layout.EnsureDirs("beta"))
	require.NoError(t, os.WriteFile(filepath.Join(f.layout.Dir("beta", assets.FolderPreview), "x.png"), pngBytes, 0o644))
	f.savePost(t, &models.Post{ID: "x", Status: models.PostStatusApproved})

	require.NoError(t, f.posts.Reconcile(context.Background(), "beta"))

	x := f.get(t, "x")
	assert.Equal(t, testClient, x.Client)
	assert.Equal(t, models.PostStatusApproved, x.Status)

	beta, err := f.repo.GetByClient(context.Background(), "beta")
	require.NoError(t, err)
	assert.Empty(t, beta)
}
