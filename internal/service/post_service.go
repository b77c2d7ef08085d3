package service

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/maheshrc27/contentpilot/internal/assets"
	"github.com/maheshrc27/contentpilot/internal/models"
	"github.com/maheshrc27/contentpilot/internal/repository"
)

// PostService is the read side of the post store. Every read reconciles the
// stored records with the asset folders first; the folders win.
type PostService interface {
	Reconcile(ctx context.Context, client string) error
	Get(ctx context.Context, client string) ([]*models.Post, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	Clients(ctx context.Context) ([]string, error)
}

type postService struct {
	p               repository.PostRepository
	layout          *assets.Layout
	captions        CaptionService
	defaultPlatform string
	now             func() time.Time
}

func NewPostService(p repository.PostRepository, layout *assets.Layout, captions CaptionService, defaultPlatform string) PostService {
	return &postService{
		p:               p,
		layout:          layout,
		captions:        captions,
		defaultPlatform: defaultPlatform,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (s *postService) Clients(ctx context.Context) ([]string, error) {
	return s.layout.Clients()
}

func (s *postService) Get(ctx context.Context, client string) ([]*models.Post, error) {
	if err := s.Reconcile(ctx, client); err != nil {
		return nil, err
	}
	posts, err := s.p.GetByClient(ctx, client)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.Before(posts[j].CreatedAt)
		}
		return posts[i].ID < posts[j].ID
	})
	return posts, nil
}

func (s *postService) GetByID(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.p.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Reconcile(ctx, post.Client); err != nil {
		slog.Info(err.Error())
		return post, nil
	}
	return s.p.GetByID(ctx, id)
}

func (s *postService) Reconcile(ctx context.Context, client string) error {
	byID, err := s.layout.Scan(client)
	if err != nil {
		return err
	}
	now := s.now()

	return s.p.Mutate(ctx, func(posts []*models.Post) ([]*models.Post, error) {
		// ids are unique across the whole store, not per client
		known := make(map[string]bool, len(posts))
		out := make([]*models.Post, 0, len(posts)+len(byID))

		for _, p := range posts {
			known[p.ID] = true
			if p.Client != client {
				if _, ok := byID[p.ID]; ok {
					slog.Warn("asset id already belongs to another client, not tracked", "client", client, "owner", p.Client, "post_id", p.ID)
				}
				out = append(out, p)
				continue
			}
			if variants, ok := byID[p.ID]; ok {
				s.apply(ctx, p, variants, now)
				out = append(out, p)
				continue
			}
			s.dropStale(p)
			if !p.Status.IsAdvanced() {
				slog.Info("pruning post without assets", "client", client, "post_id", p.ID, "status", p.Status)
				continue
			}
			s.setPreview(p)
			out = append(out, p)
		}

		ids := make([]string, 0, len(byID))
		for id := range byID {
			if !known[id] {
				ids = append(ids, id)
			}
		}
		sort.Strings(ids)
		for _, id := range ids {
			p := newRecord(id, client, now)
			s.apply(ctx, p, byID[id], now)
			out = append(out, p)
		}
		return out, nil
	})
}

func newRecord(id, client string, now time.Time) *models.Post {
	typ := postType(id)
	return &models.Post{
		ID:              id,
		Client:          client,
		Type:            typ,
		Source:          "filesystem",
		Status:          models.PostStatusPreview,
		Category:        models.DefaultCategory,
		ContentCategory: typ,
		Results:         map[string]models.PlatformResult{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func postType(id string) string {
	switch {
	case strings.HasPrefix(id, "fp_"):
		return "foundation"
	case strings.HasPrefix(id, "tr_"):
		return "trust"
	case strings.HasPrefix(id, "sv_"):
		return "service"
	}
	return "manual"
}

// statusFor maps the most advanced folder holding a post's files to a status.
// A terminal status keeps its spelling.
func statusFor(f assets.Folder, current models.Status) models.Status {
	switch f {
	case assets.FolderPosted:
		if current.IsTerminal() {
			return current
		}
		return models.PostStatusPosted
	case assets.FolderPostingQueue:
		return models.PostStatusScheduled
	case assets.FolderApproved:
		return models.PostStatusApproved
	}
	return models.PostStatusPreview
}

func (s *postService) apply(ctx context.Context, p *models.Post, variants []assets.Variant, now time.Time) {
	perPlatform := map[string]assets.Variant{}
	var folder assets.Folder
	for _, f := range assets.Folders {
		for _, v := range variants {
			if v.Folder != f {
				continue
			}
			if folder == "" {
				folder = f
			}
			if _, ok := perPlatform[v.Platform]; !ok {
				perPlatform[v.Platform] = v
			}
		}
	}

	if status := statusFor(folder, p.Status); status != p.Status {
		slog.Info("status taken from asset folder", "client", p.Client, "post_id", p.ID, "from", p.Status, "to", status)
		p.Status = status
		p.UpdatedAt = now
	}

	if p.Results == nil {
		p.Results = map[string]models.PlatformResult{}
	}
	for pf, v := range perPlatform {
		r := p.Results[pf]
		r.PreviewURL = s.layout.StaticURL(p.Client, v.Folder, v.Name)
		p.Results[pf] = r
	}

	base, hasBase := perPlatform[models.PlatformInstagram]
	for _, pf := range p.ResolvePlatforms(s.defaultPlatform) {
		if _, ok := perPlatform[pf]; ok {
			continue
		}
		r := p.Results[pf]
		if hasBase {
			r.PreviewURL = s.layout.StaticURL(p.Client, base.Folder, base.Name)
		}
		p.Results[pf] = r
	}

	s.dropStale(p)
	s.fillCaptions(ctx, p)
	s.setPreview(p)
}

// dropStale clears preview URLs whose backing file is gone. URLs outside the
// static prefix are left alone.
func (s *postService) dropStale(p *models.Post) {
	for pf, r := range p.Results {
		if r.PreviewURL == "" {
			continue
		}
		path, ok := s.layout.PathFromStatic(r.PreviewURL)
		if !ok {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			r.PreviewURL = ""
			p.Results[pf] = r
		}
	}
}

func (s *postService) fillCaptions(ctx context.Context, p *models.Post) {
	if s.captions == nil {
		return
	}
	category := models.CaptionCategory(p)
	for pf, r := range p.Results {
		if r.Caption != "" {
			continue
		}
		r.Caption = s.captions.RenderCaption(ctx, p.Client, category, pf, p.ID)
		p.Results[pf] = r
	}
}

func (s *postService) setPreview(p *models.Post) {
	if r, ok := p.Results[models.PlatformInstagram]; ok && r.PreviewURL != "" {
		p.Preview = r.PreviewURL
		return
	}
	keys := make([]string, 0, len(p.Results))
	for pf := range p.Results {
		keys = append(keys, pf)
	}
	sort.Strings(keys)
	p.Preview = ""
	for _, pf := range keys {
		if url := p.Results[pf].PreviewURL; url != "" {
			p.Preview = url
			return
		}
	}
}
