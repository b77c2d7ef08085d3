package service

import (
	"context"

	"github.com/maheshrc27/contentpilot/internal/models"
)

// Publisher publishes one post on one platform. Implementations set their own
// request timeouts.
type Publisher interface {
	Publish(ctx context.Context, post *models.Post) (*models.PlatformResult, error)
}

// Publishers maps a platform name to its publisher. A platform without an
// entry is simulated.
type Publishers map[string]Publisher

func (p Publishers) Lookup(platform string) (Publisher, bool) {
	pub, ok := p[platform]
	return pub, ok && pub != nil
}
