// Package app wires the post engine for the server and the CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/contentpilot/configs"
	"github.com/maheshrc27/contentpilot/internal/assets"
	job "github.com/maheshrc27/contentpilot/internal/jobs"
	"github.com/maheshrc27/contentpilot/internal/queue"
	"github.com/maheshrc27/contentpilot/internal/repository"
	"github.com/maheshrc27/contentpilot/internal/service"
)

type App struct {
	Config    *config.Config
	Platforms config.Platforms
	Layout    *assets.Layout

	Posts   service.PostService
	Actions service.ActionService
	Publish service.PublishService
	Job     *job.PublishJob

	db          *sql.DB
	asynqClient *asynq.Client
	direct      service.Notifier
}

// New builds every service from cfg. Postgres, Redis and R2 are optional and
// only used when configured.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	platforms, err := config.LoadPlatforms(cfg.PlatformsFile)
	if err != nil {
		return nil, fmt.Errorf("loading platforms: %w", err)
	}

	a := &App{Config: cfg, Platforms: platforms}
	a.Layout = assets.NewLayout(cfg.ClientsDir, cfg.AssetSubdirs, cfg.StaticPrefix)

	var history repository.PostingHistoryRepository
	if cfg.PostgresURI != "" {
		db, err := sql.Open("postgres", cfg.PostgresURI)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("database is unreachable: %w", err)
		}
		a.db = db
		history = repository.NewPostingHistoryRepository(db)
	}

	a.direct = service.NewNotifyService(cfg.SMTP, cfg.WebhookURL)
	notifier := a.direct
	if cfg.RedisURI != "" {
		a.asynqClient = asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisURI})
		notifier = queue.NewNotifier(a.asynqClient)
	}

	var r2 *service.R2Service
	if cfg.R2Enabled() {
		r2 = service.NewR2Service(cfg.R2)
	}
	media := service.NewMediaResolver(a.Layout, r2, cfg.PublicBaseURL)

	locks := service.NewPostLocks()
	repo := repository.NewPostRepository(cfg.StorePath)
	captions := service.NewCaptionService(cfg.ClientsDir)

	a.Posts = service.NewPostService(repo, a.Layout, captions, cfg.DefaultPlatform)
	a.Actions = service.NewActionService(repo, a.Layout, platforms, cfg.ApprovePolicy, cfg.DefaultPlatform, locks)
	a.Publish = service.NewPublishService(repo, history, a.Layout, publishers(ctx, cfg, platforms, media), platforms, notifier, locks, cfg.DefaultPlatform)
	a.Job = job.NewPublishJob(a.Posts, a.Publish)
	return a, nil
}

// publishers registers an adapter only for platforms with credentials; the
// rest are simulated by the orchestrator.
func publishers(ctx context.Context, cfg *config.Config, platforms config.Platforms, media service.MediaResolver) service.Publishers {
	p := service.Publishers{}
	if cfg.Meta.PageToken != "" && cfg.Meta.InstagramBusinessID != "" {
		p["instagram"] = service.NewInstagramService(cfg.Meta, media)
	}
	if cfg.Meta.PageToken != "" && cfg.Meta.PageID != "" {
		p["facebook"] = service.NewFacebookService(cfg.Meta, media)
	}
	if cfg.LinkedIn.AccessToken != "" && cfg.LinkedIn.AuthorURN != "" {
		p["linkedin"] = service.NewLinkedInService(ctx, cfg.LinkedIn, media)
	}

	for _, name := range platforms.Names() {
		if _, ok := p[name]; !ok {
			slog.Info("no adapter, publishing will be simulated", "platform", name, "manual", platforms[name].PostedManually())
		}
	}
	return p
}

// NewWorker returns the asynq server delivering queued notifications, or nil
// when Redis is not configured.
func (a *App) NewWorker() (*asynq.Server, *asynq.ServeMux) {
	if a.Config.RedisURI == "" {
		return nil, nil
	}
	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: a.Config.RedisURI}, asynq.Config{
		Concurrency: 4,
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskTypeNotifyPost, queue.NewQueue(a.direct).HandleNotifyTask)
	return srv, mux
}

func (a *App) Close() {
	if a.asynqClient != nil {
		if err := a.asynqClient.Close(); err != nil {
			slog.Info(err.Error())
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			slog.Info(err.Error())
		}
	}
}
