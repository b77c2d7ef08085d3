package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype"
	config "github.com/maheshrc27/contentpilot/configs"
	"github.com/maheshrc27/contentpilot/internal/assets"
	"github.com/maheshrc27/contentpilot/internal/models"
	"github.com/maheshrc27/contentpilot/internal/repository"
	"github.com/maheshrc27/contentpilot/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"gopkg.in/yaml.v3"
)

const (
	PolicyApproveThenSchedule = "approve-then-schedule"
	PolicyApproveIsSchedule   = "approve-is-schedule"
)

const uploadIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// ActionService holds the human-triggered transitions. Each one moves the
// post's variants and then patches its record.
type ActionService interface {
	Approve(ctx context.Context, id string) (*transfer.ActionResponse, error)
	Schedule(ctx context.Context, id string, publishAt time.Time, platforms []string) (*transfer.ActionResponse, error)
	Post(ctx context.Context, id string) (*transfer.ActionResponse, error)
	Revert(ctx context.Context, id string) (*transfer.ActionResponse, error)
	MarkPlatformPosted(ctx context.Context, id, platform string) (*transfer.MarkPostedResponse, error)
	Upload(ctx context.Context, client, platform, filename string, data []byte) (*models.Post, error)
	AutoscheduleFoundation(ctx context.Context, client string) (*transfer.AutoscheduleResponse, error)
}

type actionService struct {
	p               repository.PostRepository
	layout          *assets.Layout
	platforms       config.Platforms
	policy          string
	defaultPlatform string
	locks           *PostLocks
	now             func() time.Time
}

func NewActionService(
	p repository.PostRepository,
	layout *assets.Layout,
	platforms config.Platforms,
	policy string,
	defaultPlatform string,
	locks *PostLocks) ActionService {
	if policy != PolicyApproveIsSchedule {
		policy = PolicyApproveThenSchedule
	}
	return &actionService{
		p:               p,
		layout:          layout,
		platforms:       platforms,
		policy:          policy,
		defaultPlatform: defaultPlatform,
		locks:           locks,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (s *actionService) Approve(ctx context.Context, id string) (*transfer.ActionResponse, error) {
	id = assets.BaseID(id)
	unlock := s.locks.Lock(id)
	defer unlock()

	post, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	dst, status := assets.FolderApproved, models.PostStatusApproved
	if s.policy == PolicyApproveIsSchedule {
		dst, status = assets.FolderPostingQueue, models.PostStatusScheduled
	}

	if _, err := s.stage(post, dst, assets.FolderPreview, assets.FolderApproved); err != nil {
		return nil, err
	}
	if !s.layout.AnyVariantsExist(post.Client, dst, id) {
		if err := s.copyFallback(post, dst); err != nil {
			slog.Warn("approve found no assets", "post_id", id, "error", err)
		}
	}

	now := s.now()
	patch := models.PostPatch{Status: &status, UpdatedAt: &now}
	if status == models.PostStatusScheduled {
		at := now.Format(time.RFC3339)
		patch.PublishAt = &at
		patch.PlatformTimes = PlatformTimes(s.platforms, now)
	}
	if _, err := s.p.Patch(ctx, id, patch); err != nil {
		return nil, err
	}

	slog.Info("post approved", "post_id", id, "status", status, "policy", s.policy)
	return &transfer.ActionResponse{Status: string(status), PostID: id}, nil
}

func (s *actionService) Schedule(ctx context.Context, id string, publishAt time.Time, platforms []string) (*transfer.ActionResponse, error) {
	id = assets.BaseID(id)
	unlock := s.locks.Lock(id)
	defer unlock()

	post, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.stage(post, assets.FolderPostingQueue, assets.FolderApproved, assets.FolderPreview); err != nil {
		return nil, err
	}
	if !s.layout.AnyVariantsExist(post.Client, assets.FolderPostingQueue, id) {
		if err := s.copyFallback(post, assets.FolderPostingQueue); err != nil {
			return nil, fmt.Errorf("schedule %s: %w", id, err)
		}
	}

	now := s.now()
	status := models.PostStatusScheduled
	at := publishAt.UTC().Format(time.RFC3339)
	patch := models.PostPatch{
		Status:        &status,
		PublishAt:     &at,
		PlatformTimes: PlatformTimes(s.platforms, publishAt),
		UpdatedAt:     &now,
	}
	if pfs := normalizePlatforms(platforms); len(pfs) > 0 {
		patch.Platforms = pfs
	}
	if _, err := s.p.Patch(ctx, id, patch); err != nil {
		return nil, err
	}

	slog.Info("post scheduled", "post_id", id, "publish_at", at)
	return &transfer.ActionResponse{Status: string(status), PostID: id, PublishAt: at}, nil
}

func (s *actionService) Post(ctx context.Context, id string) (*transfer.ActionResponse, error) {
	id = assets.BaseID(id)
	unlock := s.locks.Lock(id)
	defer unlock()

	post, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.stage(post, assets.FolderPosted, assets.FolderPostingQueue, assets.FolderApproved); err != nil {
		return nil, err
	}
	if !s.layout.AnyVariantsExist(post.Client, assets.FolderPosted, id) {
		if err := s.copyFallback(post, assets.FolderPosted); err != nil {
			return nil, fmt.Errorf("post %s: %w", id, err)
		}
	}

	now := s.now()
	status := models.PostStatusPosted
	if _, err := s.p.Patch(ctx, id, models.PostPatch{Status: &status, PostedAt: &now, UpdatedAt: &now}); err != nil {
		return nil, err
	}

	slog.Info("post marked as posted", "post_id", id)
	return &transfer.ActionResponse{Status: string(status), PostID: id}, nil
}

// Revert succeeds even when no file can be moved.
func (s *actionService) Revert(ctx context.Context, id string) (*transfer.ActionResponse, error) {
	id = assets.BaseID(id)
	unlock := s.locks.Lock(id)
	defer unlock()

	post, err := s.lookup(ctx, id)
	if errors.Is(err, ErrNotFound) {
		slog.Info("revert of unknown post, nothing to reset", "post_id", id)
		return &transfer.ActionResponse{Status: "reverted_to_preview", PostID: id}, nil
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.stage(post, assets.FolderPreview, assets.FolderApproved, assets.FolderPostingQueue, assets.FolderPosted); err != nil {
		slog.Error("revert could not move every variant", "post_id", id, "error", err)
	}

	now := s.now()
	status := models.PostStatusPreview
	cleared := ""
	if _, err := s.p.Patch(ctx, id, models.PostPatch{
		Status:         &status,
		PublishAt:      &cleared,
		ClearTimes:     true,
		PlatformStatus: map[string]string{},
		UpdatedAt:      &now,
	}); err != nil {
		return nil, err
	}

	slog.Info("post reverted to preview", "post_id", id)
	return &transfer.ActionResponse{Status: "reverted_to_preview", PostID: id}, nil
}

// MarkPlatformPosted confirms one platform. The aggregate status flips to
// posted once every platform of the post is confirmed.
func (s *actionService) MarkPlatformPosted(ctx context.Context, id, platform string) (*transfer.MarkPostedResponse, error) {
	id = assets.BaseID(id)
	platform = strings.ToLower(strings.TrimSpace(platform))
	if platform == "" {
		return nil, errors.New("platform is required")
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	post, err := s.p.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	platformStatus := make(map[string]string, len(post.PlatformStatus)+1)
	for pf, st := range post.PlatformStatus {
		platformStatus[pf] = st
	}
	platformStatus[platform] = models.PlatformStatusPosted

	complete := true
	for _, pf := range post.ResolvePlatforms(s.defaultPlatform) {
		if platformStatus[pf] != models.PlatformStatusPosted {
			complete = false
			break
		}
	}

	now := s.now()
	patch := models.PostPatch{PlatformStatus: platformStatus, UpdatedAt: &now}
	if complete && !post.Status.IsTerminal() {
		status := models.PostStatusPosted
		patch.Status = &status
		patch.PostedAt = &now
	}
	post, err = s.p.Patch(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	if complete {
		if _, err := s.stage(post, assets.FolderPosted, assets.FolderPostingQueue, assets.FolderApproved, assets.FolderPreview); err != nil {
			slog.Error("moving confirmed post to posted", "post_id", id, "error", err)
		}
	}

	return &transfer.MarkPostedResponse{PostID: id, Status: string(post.Status), PlatformStatus: post.PlatformStatus}, nil
}

// Upload stores an image as a new preview post. The image type is sniffed
// from its bytes, not taken from the file name.
func (s *actionService) Upload(ctx context.Context, client, platform, filename string, data []byte) (*models.Post, error) {
	if !validClient(client) {
		return nil, fmt.Errorf("%w: invalid client %q", ErrInvalidUpload, client)
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return nil, fmt.Errorf("%w: unknown file type", ErrInvalidUpload)
	}
	ext := "." + kind.Extension
	if !assets.IsImage(ext) {
		return nil, fmt.Errorf("%w: file type %s is not allowed", ErrInvalidUpload, kind.Extension)
	}

	platform = strings.ToLower(strings.TrimSpace(platform))
	if platform == "" {
		platform = models.PlatformInstagram
	}

	suffix, err := gonanoid.Generate(uploadIDAlphabet, 12)
	if err != nil {
		return nil, err
	}
	id := "mp_" + suffix
	name := assets.VariantName(id, platform, ext)

	dir := s.layout.Dir(client, assets.FolderPreview)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return nil, fmt.Errorf("writing upload: %w", err)
	}

	now := s.now()
	url := s.layout.StaticURL(client, assets.FolderPreview, name)
	post := &models.Post{
		ID:              id,
		Client:          client,
		Type:            "manual",
		Source:          "upload:" + filepath.Base(filename),
		Status:          models.PostStatusPreview,
		Category:        models.DefaultCategory,
		ContentCategory: "manual",
		Platforms:       []string{platform},
		Results:         map[string]models.PlatformResult{platform: {PreviewURL: url}},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if platform == models.PlatformInstagram {
		post.Preview = url
	}
	if err := s.p.Save(ctx, post); err != nil {
		return nil, err
	}

	slog.Info("upload stored", "client", client, "post_id", id, "platform", platform, "type", kind.MIME.Value)
	return post, nil
}

// foundationSchedule is <client>/content_rules/foundation_schedule.yaml.
type foundationSchedule struct {
	Posts []struct {
		ID        string `yaml:"id"`
		PublishAt string `yaml:"publish_at"`
	} `yaml:"posts"`
}

// AutoscheduleFoundation schedules every approved post listed in the client's
// foundation plan.
func (s *actionService) AutoscheduleFoundation(ctx context.Context, client string) (*transfer.AutoscheduleResponse, error) {
	if !validClient(client) {
		return nil, fmt.Errorf("invalid client %q", client)
	}
	path := filepath.Join(s.layout.ClientDir(client), "content_rules", "foundation_schedule.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading foundation schedule: %w", err)
	}

	var plan foundationSchedule
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parsing foundation schedule: %w", err)
	}

	scheduled := []string{}
	for _, entry := range plan.Posts {
		id := assets.BaseID(strings.TrimSpace(entry.ID))
		post, err := s.p.GetByID(ctx, id)
		if err != nil || post.Client != client || post.Status != models.PostStatusApproved {
			continue
		}

		at, ok := (&models.Post{PublishAt: entry.PublishAt}).PublishAtTime()
		if !ok {
			slog.Warn("foundation entry has no valid publish_at", "post_id", id, "publish_at", entry.PublishAt)
			continue
		}

		if _, err := s.Schedule(ctx, id, at, nil); err != nil {
			slog.Error("foundation autoschedule failed", "post_id", id, "error", err)
			continue
		}
		scheduled = append(scheduled, id)
	}

	return &transfer.AutoscheduleResponse{Status: "ok", Scheduled: scheduled, Count: len(scheduled)}, nil
}

// stage moves every variant of post from the given sources into dst.
// lookup returns the post's record. When there is none but some client's
// folders hold variants of id, the record is created for that client.
func (s *actionService) lookup(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.p.GetByID(ctx, id)
	if !errors.Is(err, ErrNotFound) {
		return post, err
	}

	clients, cerr := s.layout.Clients()
	if cerr != nil {
		slog.Info(cerr.Error())
		return nil, err
	}
	for _, client := range clients {
		if f, ok := s.layout.FolderOf(client, id); ok {
			slog.Info("creating record for unrecorded assets", "client", client, "post_id", id, "folder", f)
			return s.p.EnsureExists(ctx, id, client)
		}
	}
	return nil, err
}

func (s *actionService) stage(post *models.Post, dst assets.Folder, sources ...assets.Folder) (int, error) {
	total := 0
	for _, src := range sources {
		if src == dst {
			continue
		}
		n, err := s.layout.MoveVariants(post.Client, post.ID, src, dst)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// copyFallback copies the source asset of a post without rendered variants,
// typically a foundation post, into dst.
func (s *actionService) copyFallback(post *models.Post, dst assets.Folder) error {
	var candidates []string
	if post.SourceAsset != "" {
		src := post.SourceAsset
		if !filepath.IsAbs(src) {
			src = filepath.Join(s.layout.ClientDir(post.Client), src)
		}
		candidates = append(candidates, src)
	}
	foundationDir := filepath.Join(s.layout.ClientDir(post.Client), "foundation")
	if entries, err := os.ReadDir(foundationDir); err == nil {
		for _, e := range entries {
			name := e.Name()
			if !e.IsDir() && strings.TrimSuffix(name, filepath.Ext(name)) == post.ID {
				candidates = append(candidates, filepath.Join(foundationDir, name))
			}
		}
	}

	for _, src := range candidates {
		info, err := os.Stat(src)
		if err != nil || info.IsDir() || !assets.IsImage(src) {
			continue
		}
		name := post.ID + strings.ToLower(filepath.Ext(src))
		if err := s.layout.CopyInto(post.Client, dst, src, name); err != nil {
			return fmt.Errorf("copying %s: %w", src, err)
		}
		slog.Info("copied source asset", "post_id", post.ID, "source", src, "folder", dst)
		return nil
	}
	return ErrNoAssets
}

func normalizePlatforms(platforms []string) []string {
	var out []string
	for _, pf := range platforms {
		if pf = strings.ToLower(strings.TrimSpace(pf)); pf != "" {
			out = append(out, pf)
		}
	}
	return out
}

func validClient(client string) bool {
	return client != "" && client != "." && client != ".." && !strings.ContainsAny(client, `/\`)
}
