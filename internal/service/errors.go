package service

import (
	"errors"

	"github.com/maheshrc27/contentpilot/internal/repository"
)

var (
	ErrNotFound        = repository.ErrNotFound
	ErrNoAssets        = errors.New("no assets found for post")
	ErrInvalidSchedule = errors.New("publish_at missing or unparseable")
	ErrInvalidUpload   = errors.New("unsupported upload")
)
