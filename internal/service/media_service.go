package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/maheshrc27/contentpilot/internal/assets"
	"github.com/maheshrc27/contentpilot/internal/models"
)

// MediaResolver returns a publicly reachable URL for a post's image on one
// platform.
type MediaResolver interface {
	MediaURL(ctx context.Context, post *models.Post, platform string) (string, error)
}

type mediaResolver struct {
	layout        *assets.Layout
	r2            *R2Service
	publicBaseURL string
}

// NewMediaResolver serves files from publicBaseURL, or uploads them to R2
// when r2 is not nil.
func NewMediaResolver(layout *assets.Layout, r2 *R2Service, publicBaseURL string) MediaResolver {
	return &mediaResolver{layout: layout, r2: r2, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

func (m *mediaResolver) MediaURL(ctx context.Context, post *models.Post, platform string) (string, error) {
	v, ok := m.localVariant(post, platform)
	if !ok {
		for _, url := range []string{post.Results[platform].PreviewURL, post.Preview} {
			if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
				return url, nil
			}
		}
		return "", fmt.Errorf("no image for %s on %s", post.ID, platform)
	}

	if m.r2 != nil {
		return m.r2.UploadFile(ctx, path.Join(post.Client, v.Name), v.Path)
	}
	return m.publicBaseURL + m.layout.StaticURL(post.Client, v.Folder, v.Name), nil
}

// localVariant picks the platform's own variant, else the base one, from the
// most advanced folder holding it.
func (m *mediaResolver) localVariant(post *models.Post, platform string) (assets.Variant, bool) {
	var fallback *assets.Variant
	for _, f := range assets.Folders {
		for _, v := range m.layout.FindVariants(post.Client, f, post.ID) {
			if v.Platform == platform {
				return v, true
			}
			if v.Platform == models.PlatformInstagram && fallback == nil {
				vv := v
				fallback = &vv
			}
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return assets.Variant{}, false
}
