package job

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maheshrc27/contentpilot/internal/models"
	"github.com/maheshrc27/contentpilot/internal/service"
)

type TickSummary struct {
	TickID    string `json:"tick_id"`
	Clients   int    `json:"clients"`
	Due       int    `json:"due"`
	Published int    `json:"published"`
	Skipped   int    `json:"skipped"`
	Errored   int    `json:"errored"`
}

// PublishJob is the scheduler loop. It finds due posts and hands them to the
// publisher; it makes no lifecycle decisions itself.
type PublishJob struct {
	posts     service.PostService
	publisher service.PublishService
	now       func() time.Time
	running   sync.Mutex
}

func NewPublishJob(posts service.PostService, publisher service.PublishService) *PublishJob {
	return &PublishJob{
		posts:     posts,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run is the cron entry point. A tick that starts while the previous one is
// still running is dropped.
func (j *PublishJob) Run() {
	if !j.running.TryLock() {
		slog.Warn("previous scheduler tick still running, skipping")
		return
	}
	defer j.running.Unlock()

	j.RunOnce(context.Background())
}

func (j *PublishJob) RunOnce(ctx context.Context) TickSummary {
	summary := TickSummary{TickID: uuid.NewString()}
	now := j.now()

	clients, err := j.posts.Clients(ctx)
	if err != nil {
		slog.Error("listing clients", "tick_id", summary.TickID, "error", err)
		return summary
	}
	summary.Clients = len(clients)

	for _, client := range clients {
		due, err := j.DuePosts(ctx, client, now)
		if err != nil {
			slog.Error("selecting due posts", "tick_id", summary.TickID, "client", client, "error", err)
			continue
		}
		summary.Due += len(due)

		for _, post := range due {
			outcome, err := j.publish(ctx, post.ID)
			switch {
			case err != nil:
				summary.Errored++
				slog.Error("publishing due post", "tick_id", summary.TickID, "client", client, "post_id", post.ID, "error", err)
			case outcome.Status == service.OutcomeSkipped:
				summary.Skipped++
			default:
				summary.Published++
			}
		}
	}

	slog.Info("scheduler tick",
		"tick_id", summary.TickID,
		"clients", summary.Clients,
		"due", summary.Due,
		"published", summary.Published,
		"skipped", summary.Skipped,
		"errored", summary.Errored,
	)
	return summary
}

// DuePosts returns the scheduled posts of client whose publish_at is not
// after now, oldest first. Posts without a parseable publish_at are never due.
func (j *PublishJob) DuePosts(ctx context.Context, client string, now time.Time) ([]*models.Post, error) {
	posts, err := j.posts.Get(ctx, client)
	if err != nil {
		return nil, err
	}

	type duePost struct {
		post *models.Post
		at   time.Time
	}
	var due []duePost
	for _, p := range posts {
		if p.Status != models.PostStatusScheduled {
			continue
		}
		at, ok := p.PublishAtTime()
		if !ok {
			slog.Warn("scheduled post has no valid publish_at", "client", client, "post_id", p.ID, "publish_at", p.PublishAt, "error", service.ErrInvalidSchedule)
			continue
		}
		if at.After(now) {
			continue
		}
		due = append(due, duePost{post: p, at: at})
	}

	sort.SliceStable(due, func(a, b int) bool {
		if !due[a].at.Equal(due[b].at) {
			return due[a].at.Before(due[b].at)
		}
		return due[a].post.ID < due[b].post.ID
	})

	out := make([]*models.Post, len(due))
	for i, d := range due {
		out[i] = d.post
	}
	return out, nil
}

func (j *PublishJob) publish(ctx context.Context, id string) (outcome *service.PublishOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("publish panicked: %v", r)
		}
	}()
	return j.publisher.Publish(ctx, id, nil)
}
