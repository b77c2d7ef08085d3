package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	config "github.com/maheshrc27/contentpilot/configs"
	"github.com/maheshrc27/contentpilot/internal/models"
)

type facebookService struct {
	cfg    config.Meta
	media  MediaResolver
	client *http.Client
}

// NewFacebookService publishes a photo post on the configured page.
func NewFacebookService(cfg config.Meta, media MediaResolver) Publisher {
	return &facebookService{
		cfg:    cfg,
		media:  media,
		client: &http.Client{Timeout: graphTimeout},
	}
}

func (fb *facebookService) Publish(ctx context.Context, post *models.Post) (*models.PlatformResult, error) {
	if fb.cfg.PageID == "" || fb.cfg.PageToken == "" {
		return nil, errors.New("facebook page credentials are not configured")
	}

	imageURL, err := fb.media.MediaURL(ctx, post, models.PlatformFacebook)
	if err != nil {
		return nil, err
	}

	resp, err := graphPost(ctx, fb.client, graphURL(fb.cfg, fb.cfg.PageID, "photos"), map[string]string{
		"url":          imageURL,
		"caption":      post.Results[models.PlatformFacebook].Caption,
		"access_token": fb.cfg.PageToken,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to publish facebook photo: %w", err)
	}

	externalID := resp.PostID
	if externalID == "" {
		externalID = resp.ID
	}
	slog.Info("published on facebook", "post_id", post.ID, "external_id", externalID)

	now := time.Now().UTC()
	return &models.PlatformResult{ExternalID: externalID, PublishedAt: &now}, nil
}
