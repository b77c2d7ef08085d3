package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/maheshrc27/contentpilot/internal/models"
)

var (
	ErrNotFound        = errors.New("post not found")
	ErrStoreCorruption = errors.New("post store corrupted")
)

type PostRepository interface {
	GetByID(ctx context.Context, id string) (*models.Post, error)
	GetByClient(ctx context.Context, client string) ([]*models.Post, error)
	EnsureExists(ctx context.Context, id, client string) (*models.Post, error)
	Save(ctx context.Context, post *models.Post) error
	Patch(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error)
	Mutate(ctx context.Context, fn func(posts []*models.Post) ([]*models.Post, error)) error
}

type storeFile struct {
	Posts []*models.Post `json:"posts"`
}

// postRepository keeps every post in one JSON document. Each operation loads
// the whole collection, mutates it and writes it back atomically.
type postRepository struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func NewPostRepository(path string) PostRepository {
	return &postRepository{path: path, now: func() time.Time { return time.Now().UTC() }}
}

func (r *postRepository) load() ([]*models.Post, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading post store: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var doc storeFile
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Warn("post store unreadable, treating as empty", "path", r.path, "error", fmt.Errorf("%w: %v", ErrStoreCorruption, err))
		return nil, nil
	}

	posts := doc.Posts[:0]
	for _, p := range doc.Posts {
		if p == nil || p.ID == "" {
			continue
		}
		normalize(p)
		posts = append(posts, p)
	}
	return posts, nil
}

func (r *postRepository) save(posts []*models.Post) error {
	if posts == nil {
		posts = []*models.Post{}
	}
	data, err := json.MarshalIndent(storeFile{Posts: posts}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding post store: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating store dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".posts-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func normalize(p *models.Post) {
	p.Status = models.ParseStatus(string(p.Status))
	if p.Status == "" {
		p.Status = models.PostStatusPreview
	}
	if strings.TrimSpace(p.Category) == "" {
		p.Category = firstNonEmpty(p.ImageContext, p.ImageCategory)
	}
	p.Category = models.NormalizeCategory(p.Category)
	if p.Results == nil {
		p.Results = map[string]models.PlatformResult{}
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	posts, err := r.load()
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

func (r *postRepository) GetByClient(ctx context.Context, client string) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	posts, err := r.load()
	if err != nil {
		return nil, err
	}
	var out []*models.Post
	for _, p := range posts {
		if p.Client == client {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *postRepository) EnsureExists(ctx context.Context, id, client string) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	posts, err := r.load()
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		if p.ID == id {
			return p, nil
		}
	}

	now := r.now()
	post := &models.Post{
		ID:              id,
		Client:          client,
		Type:            "manual",
		Status:          models.PostStatusPreview,
		Category:        models.DefaultCategory,
		ContentCategory: "manual",
		Results:         map[string]models.PlatformResult{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := r.save(append(posts, post)); err != nil {
		return nil, err
	}
	return post, nil
}

// Save inserts post or replaces the stored record with the same id.
func (r *postRepository) Save(ctx context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	posts, err := r.load()
	if err != nil {
		return err
	}
	normalize(post)
	if post.CreatedAt.IsZero() {
		post.CreatedAt = r.now()
	}
	if post.UpdatedAt.IsZero() {
		post.UpdatedAt = post.CreatedAt
	}
	for i, p := range posts {
		if p.ID == post.ID {
			posts[i] = post
			return r.save(posts)
		}
	}
	return r.save(append(posts, post))
}

func (r *postRepository) Patch(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	posts, err := r.load()
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		if p.ID != id {
			continue
		}
		patch.Apply(p)
		if err := r.save(posts); err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("patch %s: %w", id, ErrNotFound)
}

// Mutate runs fn over the full collection and persists what it returns.
func (r *postRepository) Mutate(ctx context.Context, fn func(posts []*models.Post) ([]*models.Post, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	posts, err := r.load()
	if err != nil {
		return err
	}
	out, err := fn(posts)
	if err != nil {
		return err
	}
	return r.save(out)
}
