package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	config "github.com/maheshrc27/contentpilot/configs"
	"github.com/maheshrc27/contentpilot/internal/assets"
	"github.com/maheshrc27/contentpilot/internal/models"
	"github.com/maheshrc27/contentpilot/internal/repository"
)

const (
	OutcomePublished = "published"
	OutcomeScheduled = "scheduled"
	OutcomeSkipped   = "skipped"

	ReasonAlreadyPublished = "already_published"
)

const publishConcurrency = 4

type PublishOutcome struct {
	Status    string                           `json:"status"`
	Reason    string                           `json:"reason,omitempty"`
	PostID    string                           `json:"post_id"`
	PublishAt string                           `json:"publish_at,omitempty"`
	Results   map[string]models.PlatformResult `json:"results,omitempty"`
}

// PublishService drives a post to its terminal status. With a non-nil
// publishAt it only schedules.
type PublishService interface {
	Publish(ctx context.Context, id string, publishAt *time.Time) (*PublishOutcome, error)
	History(ctx context.Context, id string) ([]*models.PostingHistory, error)
}

type publishService struct {
	p               repository.PostRepository
	ph              repository.PostingHistoryRepository
	layout          *assets.Layout
	publishers      Publishers
	platforms       config.Platforms
	notifier        Notifier
	locks           *PostLocks
	defaultPlatform string
	now             func() time.Time
}

// NewPublishService wires the orchestrator. ph, notifier and locks may be nil.
func NewPublishService(
	p repository.PostRepository,
	ph repository.PostingHistoryRepository,
	layout *assets.Layout,
	publishers Publishers,
	platforms config.Platforms,
	notifier Notifier,
	locks *PostLocks,
	defaultPlatform string) PublishService {
	return &publishService{
		p:               p,
		ph:              ph,
		layout:          layout,
		publishers:      publishers,
		platforms:       platforms,
		notifier:        notifier,
		locks:           locks,
		defaultPlatform: defaultPlatform,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (s *publishService) Publish(ctx context.Context, id string, publishAt *time.Time) (*PublishOutcome, error) {
	id = assets.BaseID(id)
	unlock := s.locks.Lock(id)
	defer unlock()

	post, err := s.p.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if post.Status.IsTerminal() {
		slog.Info("post already published, skipping", "post_id", id, "status", post.Status)
		return &PublishOutcome{Status: OutcomeSkipped, Reason: ReasonAlreadyPublished, PostID: id}, nil
	}

	now := s.now()
	if publishAt != nil {
		return s.schedule(ctx, post, publishAt.UTC(), now)
	}

	if post.Status != models.PostStatusScheduled {
		scheduled := models.PostStatusScheduled
		at := now.Format(time.RFC3339)
		post, err = s.p.Patch(ctx, id, models.PostPatch{
			Status:        &scheduled,
			PublishAt:     &at,
			PlatformTimes: PlatformTimes(s.platforms, now),
			UpdatedAt:     &now,
		})
		if err != nil {
			return nil, err
		}
	}

	platforms := uniquePlatforms(post.ResolvePlatforms(s.defaultPlatform))
	results := s.publishAll(ctx, post, platforms)

	done := s.now()
	published := models.PostStatusPublished
	post, err = s.p.Patch(ctx, id, models.PostPatch{
		Status:         &published,
		Results:        results,
		PlatformStatus: s.pendingManual(post, platforms),
		PublishedAt:    &done,
		PostedAt:       &done,
		UpdatedAt:      &done,
	})
	if err != nil {
		return nil, fmt.Errorf("storing publish result for %s: %w", id, err)
	}

	s.finalizeAssets(post)
	s.recordHistory(ctx, post, platforms, results)
	s.notify(ctx, post, platforms, results)

	return &PublishOutcome{Status: OutcomePublished, PostID: id, PublishAt: post.PublishAt, Results: results}, nil
}

func (s *publishService) schedule(ctx context.Context, post *models.Post, at, now time.Time) (*PublishOutcome, error) {
	for _, src := range []assets.Folder{assets.FolderApproved, assets.FolderPreview} {
		if _, err := s.layout.MoveVariants(post.Client, post.ID, src, assets.FolderPostingQueue); err != nil {
			slog.Error("moving variants to posting queue", "post_id", post.ID, "from", src, "error", err)
		}
	}

	scheduled := models.PostStatusScheduled
	publishAt := at.Format(time.RFC3339)
	if _, err := s.p.Patch(ctx, post.ID, models.PostPatch{
		Status:        &scheduled,
		PublishAt:     &publishAt,
		PlatformTimes: PlatformTimes(s.platforms, at),
		UpdatedAt:     &now,
	}); err != nil {
		return nil, err
	}
	return &PublishOutcome{Status: OutcomeScheduled, PostID: post.ID, PublishAt: publishAt}, nil
}

func (s *publishService) publishAll(ctx context.Context, post *models.Post, platforms []string) map[string]models.PlatformResult {
	results := make(map[string]models.PlatformResult, len(post.Results)+len(platforms))
	for pf, r := range post.Results {
		results[pf] = r
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	semaphore := make(chan struct{}, publishConcurrency)

	for _, pf := range platforms {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(platform string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			res := s.publishOne(ctx, post.Clone(), platform)

			mu.Lock()
			results[platform] = res
			mu.Unlock()
		}(pf)
	}

	wg.Wait()
	return results
}

// publishOne never fails: errors and panics end up in the returned result.
func (s *publishService) publishOne(ctx context.Context, post *models.Post, platform string) (res models.PlatformResult) {
	prev := post.Results[platform]
	res = models.PlatformResult{PreviewURL: prev.PreviewURL, Caption: prev.Caption}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("publisher panicked", "post_id", post.ID, "platform", platform, "panic", r)
			res.Status = models.ResultStatusError
			res.Error = fmt.Sprintf("panic: %v", r)
			res.PublishedAt = nil
		}
	}()

	pub, ok := s.publishers.Lookup(platform)
	if !ok {
		slog.Info("no publisher registered, simulating", "post_id", post.ID, "platform", platform)
		now := s.now()
		res.Status = models.ResultStatusOK
		res.PublishedAt = &now
		return res
	}

	out, err := pub.Publish(ctx, post)
	if err != nil {
		slog.Error("publish failed", "post_id", post.ID, "platform", platform, "error", err)
		res.Status = models.ResultStatusError
		res.Error = err.Error()
		return res
	}

	res.Status = models.ResultStatusOK
	if out != nil {
		res.ExternalID = out.ExternalID
		res.PublishedAt = out.PublishedAt
	}
	if res.PublishedAt == nil {
		now := s.now()
		res.PublishedAt = &now
	}
	return res
}

// pendingManual marks platforms configured for manual posting as pending so
// that MarkPlatformPosted can close them. It returns nil when nothing changes.
func (s *publishService) pendingManual(post *models.Post, platforms []string) map[string]string {
	var out map[string]string
	for _, pf := range platforms {
		cfg, ok := s.platforms[pf]
		if !ok || !cfg.PostedManually() || post.PlatformStatus[pf] == models.PlatformStatusPosted {
			continue
		}
		if out == nil {
			out = make(map[string]string, len(post.PlatformStatus)+1)
			for k, v := range post.PlatformStatus {
				out[k] = v
			}
		}
		out[pf] = models.PlatformStatusPending
	}
	return out
}

// History returns the audited per-platform outcomes of a post. Without a
// history store it is always empty.
func (s *publishService) History(ctx context.Context, id string) ([]*models.PostingHistory, error) {
	id = assets.BaseID(id)
	if _, err := s.p.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if s.ph == nil {
		return []*models.PostingHistory{}, nil
	}
	history, err := s.ph.GetByPostID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reading posting history for %s: %w", id, err)
	}
	if history == nil {
		history = []*models.PostingHistory{}
	}
	return history, nil
}

func (s *publishService) finalizeAssets(post *models.Post) {
	for _, src := range []assets.Folder{assets.FolderPostingQueue, assets.FolderApproved, assets.FolderPreview} {
		moved, err := s.layout.MoveVariants(post.Client, post.ID, src, assets.FolderPosted)
		if err != nil {
			slog.Error("moving variants to posted", "post_id", post.ID, "from", src, "error", err)
			continue
		}
		if moved > 0 {
			slog.Info("moved variants to posted", "post_id", post.ID, "from", src, "count", moved)
		}
	}
}

func (s *publishService) recordHistory(ctx context.Context, post *models.Post, platforms []string, results map[string]models.PlatformResult) {
	if s.ph == nil {
		return
	}
	for _, pf := range platforms {
		r := results[pf]
		if _, err := s.ph.Create(ctx, &models.PostingHistory{
			Client:       post.Client,
			PostID:       post.ID,
			Platform:     pf,
			Status:       r.Status,
			ExternalID:   r.ExternalID,
			ErrorMessage: r.Error,
		}); err != nil {
			slog.Error("saving posting history", "post_id", post.ID, "platform", pf, "error", err)
		}
	}
}

func (s *publishService) notify(ctx context.Context, post *models.Post, platforms []string, results map[string]models.PlatformResult) {
	if s.notifier == nil {
		return
	}

	var failed []string
	for _, pf := range platforms {
		if results[pf].Status == models.ResultStatusError {
			failed = append(failed, pf)
		}
	}
	msg := fmt.Sprintf("Post %s published on %s", post.ID, strings.Join(platforms, ", "))
	if len(failed) > 0 {
		msg += fmt.Sprintf(" (failed: %s)", strings.Join(failed, ", "))
	}

	if err := s.notifier.Notify(ctx, Notification{
		Client:    post.Client,
		PostID:    post.ID,
		Platforms: platforms,
		Message:   msg,
	}); err != nil {
		slog.Error("notification failed", "post_id", post.ID, "error", err)
	}
}

func uniquePlatforms(platforms []string) []string {
	seen := make(map[string]bool, len(platforms))
	out := make([]string, 0, len(platforms))
	for _, pf := range platforms {
		if !seen[pf] {
			seen[pf] = true
			out = append(out, pf)
		}
	}
	sort.Strings(out)
	return out
}
