package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	config "github.com/maheshrc27/contentpilot/configs"
	"github.com/maheshrc27/contentpilot/internal/models"
	"github.com/maheshrc27/contentpilot/internal/transfer"
	"golang.org/x/oauth2"
)

type linkedinService struct {
	cfg    config.LinkedIn
	media  MediaResolver
	client *http.Client
}

// NewLinkedInService shares the post image as an article on behalf of the
// configured author.
func NewLinkedInService(ctx context.Context, cfg config.LinkedIn, media MediaResolver) Publisher {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken}))
	client.Timeout = graphTimeout
	return &linkedinService{cfg: cfg, media: media, client: client}
}

func (li *linkedinService) Publish(ctx context.Context, post *models.Post) (*models.PlatformResult, error) {
	if li.cfg.AuthorURN == "" {
		return nil, errors.New("linkedin author is not configured")
	}

	imageURL, err := li.media.MediaURL(ctx, post, models.PlatformLinkedIn)
	if err != nil {
		return nil, err
	}

	share := transfer.NewLinkedInShare(li.cfg.AuthorURN, post.Results[models.PlatformLinkedIn].Caption, imageURL)
	body, err := json.Marshal(share)
	if err != nil {
		return nil, fmt.Errorf("error marshalling payload: %w", err)
	}

	url := strings.TrimRight(li.cfg.BaseURL, "/") + "/v2/ugcPosts"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := li.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status code from linkedin: %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	externalID := resp.Header.Get("X-RestLi-Id")
	if externalID == "" {
		var result struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
			externalID = result.ID
		}
	}
	slog.Info("published on linkedin", "post_id", post.ID, "external_id", externalID)

	now := time.Now().UTC()
	return &models.PlatformResult{ExternalID: externalID, PublishedAt: &now}, nil
}
