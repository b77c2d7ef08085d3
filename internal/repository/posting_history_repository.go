package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/contentpilot/internal/models"
)

// PostingHistoryRepository audits every per-platform publish outcome.
type PostingHistoryRepository interface {
	Create(ctx context.Context, ph *models.PostingHistory) (int64, error)
	GetByPostID(ctx context.Context, postID string) ([]*models.PostingHistory, error)
}

type postingHistoryRepository struct {
	db *sql.DB
}

func NewPostingHistoryRepository(db *sql.DB) PostingHistoryRepository {
	return &postingHistoryRepository{db: db}
}

func (r *postingHistoryRepository) Create(ctx context.Context, ph *models.PostingHistory) (int64, error) {
	query := `
		INSERT INTO posting_history (client, post_id, platform, status, external_id, error_message)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, ph.Client, ph.PostID, ph.Platform, ph.Status, ph.ExternalID, ph.ErrorMessage).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postingHistoryRepository) GetByPostID(ctx context.Context, postID string) ([]*models.PostingHistory, error) {
	query := `SELECT id, client, post_id, platform, status, external_id, error_message, created_at FROM posting_history WHERE post_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var phs []*models.PostingHistory
	for rows.Next() {
		var ph models.PostingHistory
		err := rows.Scan(&ph.ID, &ph.Client, &ph.PostID, &ph.Platform, &ph.Status, &ph.ExternalID, &ph.ErrorMessage, &ph.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		phs = append(phs, &ph)
	}
	return phs, rows.Err()
}
