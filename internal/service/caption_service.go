package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// CaptionService renders the caption of one platform variant. It never
// fails: any lookup problem yields an empty caption.
type CaptionService interface {
	RenderCaption(ctx context.Context, client, category, platform, postID string) string
}

// captionTable is the content of <client>/captions/<category>.yaml:
//
//	default:
//	  - "Fresh work for {client}"
//	platforms:
//	  linkedin:
//	    - "Project update {post_id}"
type captionTable struct {
	Default   []string            `yaml:"default"`
	Platforms map[string][]string `yaml:"platforms"`
}

type captionService struct {
	clientsDir string
}

func NewCaptionService(clientsDir string) CaptionService {
	return &captionService{clientsDir: clientsDir}
}

func (s *captionService) RenderCaption(ctx context.Context, client, category, platform, postID string) string {
	table, err := s.load(client, category)
	if err != nil {
		slog.Info("caption lookup failed", "client", client, "category", category, "error", err)
		return ""
	}

	options := table.Platforms[platform]
	if len(options) == 0 {
		options = table.Default
	}
	if len(options) == 0 {
		return ""
	}

	h := fnv.New32a()
	h.Write([]byte(postID))
	caption := options[int(h.Sum32()%uint32(len(options)))]

	return strings.NewReplacer("{client}", client, "{post_id}", postID, "{platform}", platform).Replace(caption)
}

func (s *captionService) load(client, category string) (*captionTable, error) {
	path := filepath.Join(s.clientsDir, client, "captions", category+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var table captionTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &table, nil
}
