package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/crosspost/internal/models"
)

type PostingHistoryRepository interface {
	Create(ctx context.Context, ph *models.PostingHistory) (int64, error)
	// ListByPostID returns attempts oldest first.
	ListByPostID(ctx context.Context, owner, postID string) ([]*models.PostingHistory, error)
}

type postingHistoryRepository struct {
	db *sql.DB
}

func NewPostingHistoryRepository(db *sql.DB) PostingHistoryRepository {
	return &postingHistoryRepository{db: db}
}

func (r *postingHistoryRepository) Create(ctx context.Context, ph *models.PostingHistory) (int64, error) {
	query := `
		INSERT INTO posting_history (owner, post_id, platform, success, remote_post_id, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		ph.Owner,
		ph.PostID,
		ph.Platform,
		ph.Success,
		ph.RemotePostID,
		ph.ErrorMessage,
		ph.CreatedAt,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	ph.ID = id
	return id, nil
}

func (r *postingHistoryRepository) ListByPostID(ctx context.Context, owner, postID string) ([]*models.PostingHistory, error) {
	query := `
		SELECT id, owner, post_id, platform, success, remote_post_id, error_message, created_at
		FROM posting_history
		WHERE owner = $1 AND post_id = $2
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, owner, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var phs []*models.PostingHistory
	for rows.Next() {
		var ph models.PostingHistory
		err := rows.Scan(&ph.ID, &ph.Owner, &ph.PostID, &ph.Platform, &ph.Success, &ph.RemotePostID, &ph.ErrorMessage, &ph.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		phs = append(phs, &ph)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return phs, nil
}
