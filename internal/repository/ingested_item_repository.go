package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/maheshrc27/crosspost/internal/models"
)

type IngestedItemRepository interface {
	Exists(ctx context.Context, owner, externalID string) (bool, error)
	// Create reports false when an item with the same external id already exists
	// for the owner. The existing row is left untouched.
	Create(ctx context.Context, item *models.IngestedItem) (bool, error)
	ListByOwner(ctx context.Context, owner string) ([]*models.IngestedItem, error)
}

type ingestedItemRepository struct {
	db *sql.DB
}

func NewIngestedItemRepository(db *sql.DB) IngestedItemRepository {
	return &ingestedItemRepository{db: db}
}

func (r *ingestedItemRepository) Exists(ctx context.Context, owner, externalID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM ingested_items WHERE owner = $1 AND external_id = $2)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, owner, externalID).Scan(&exists)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return exists, nil
}

func (r *ingestedItemRepository) Create(ctx context.Context, item *models.IngestedItem) (bool, error) {
	query := `
		INSERT INTO ingested_items (owner, external_id, source_name, brand, title, content, link, origin_published_at, media_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (owner, external_id) DO NOTHING
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		item.Owner,
		item.ExternalID,
		item.SourceName,
		item.Brand,
		item.Title,
		item.Content,
		item.Link,
		item.OriginPublishedAt,
		item.MediaURL,
		item.CreatedAt,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	item.ID = id
	return true, nil
}

func (r *ingestedItemRepository) ListByOwner(ctx context.Context, owner string) ([]*models.IngestedItem, error) {
	query := `
		SELECT id, owner, external_id, source_name, brand, title, content, link, origin_published_at, media_url, created_at
		FROM ingested_items
		WHERE owner = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var items []*models.IngestedItem
	for rows.Next() {
		var (
			item        models.IngestedItem
			publishedAt sql.NullTime
		)
		err := rows.Scan(&item.ID, &item.Owner, &item.ExternalID, &item.SourceName, &item.Brand, &item.Title,
			&item.Content, &item.Link, &publishedAt, &item.MediaURL, &item.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		item.OriginPublishedAt = nullTime(publishedAt)
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return items, nil
}
