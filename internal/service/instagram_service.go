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
)

const graphTimeout = 30 * time.Second

type instagramService struct {
	cfg    config.Meta
	media  MediaResolver
	client *http.Client
}

// NewInstagramService publishes single images through the Instagram Graph API
// content publishing flow: create a media container, then publish it.
func NewInstagramService(cfg config.Meta, media MediaResolver) Publisher {
	return &instagramService{
		cfg:    cfg,
		media:  media,
		client: &http.Client{Timeout: graphTimeout},
	}
}

func (ig *instagramService) Publish(ctx context.Context, post *models.Post) (*models.PlatformResult, error) {
	if ig.cfg.InstagramBusinessID == "" || ig.cfg.PageToken == "" {
		return nil, errors.New("instagram credentials are not configured")
	}

	imageURL, err := ig.media.MediaURL(ctx, post, models.PlatformInstagram)
	if err != nil {
		return nil, err
	}

	containerID, err := ig.createContainer(ctx, imageURL, post.Results[models.PlatformInstagram].Caption)
	if err != nil {
		return nil, fmt.Errorf("failed to create instagram media container: %w", err)
	}

	mediaID, err := ig.publishContainer(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("failed to publish instagram media: %w", err)
	}

	slog.Info("published on instagram", "post_id", post.ID, "media_id", mediaID)
	now := time.Now().UTC()
	return &models.PlatformResult{ExternalID: mediaID, PublishedAt: &now}, nil
}

func (ig *instagramService) createContainer(ctx context.Context, imageURL, caption string) (string, error) {
	url := graphURL(ig.cfg, ig.cfg.InstagramBusinessID, "media")
	resp, err := graphPost(ctx, ig.client, url, map[string]string{
		"image_url":    imageURL,
		"caption":      caption,
		"access_token": ig.cfg.PageToken,
	})
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.New("no media ID returned from Instagram")
	}
	return resp.ID, nil
}

func (ig *instagramService) publishContainer(ctx context.Context, containerID string) (string, error) {
	url := graphURL(ig.cfg, ig.cfg.InstagramBusinessID, "media_publish")
	resp, err := graphPost(ctx, ig.client, url, map[string]string{
		"creation_id":  containerID,
		"access_token": ig.cfg.PageToken,
	})
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func graphURL(cfg config.Meta, node, edge string) string {
	return fmt.Sprintf("%s/%s/%s/%s", strings.TrimRight(cfg.BaseURL, "/"), cfg.APIVersion, node, edge)
}

// graphPost sends payload as JSON and decodes the Graph API id response.
func graphPost(ctx context.Context, client *http.Client, url string, payload map[string]string) (*transfer.GraphResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	var result transfer.GraphResponse
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &result); err != nil && resp.StatusCode == http.StatusOK {
			return nil, fmt.Errorf("error parsing response: %w", err)
		}
	}

	if resp.StatusCode != http.StatusOK {
		if result.Error != nil && result.Error.Message != "" {
			return nil, fmt.Errorf("graph api error (status %d): %s", resp.StatusCode, result.Error.Message)
		}
		return nil, fmt.Errorf("unexpected status code from graph api: %d", resp.StatusCode)
	}
	return &result, nil
}
