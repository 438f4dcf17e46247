package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	"github.com/lib/pq"
	"github.com/maheshrc27/crosspost/internal/models"
)

type PostRepository interface {
	// Create stores a new post. A post may be the retry of at most one other
	// post; a second retry of the same post fails with models.ErrRetryExists.
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	GetByID(ctx context.Context, owner, id string) (*models.Post, error)
	ListByStatus(ctx context.Context, status string) ([]*models.Post, error)
	ListByOwner(ctx context.Context, owner string) ([]*models.Post, error)
	Replace(ctx context.Context, post *models.Post) error
	// Claim leases a scheduled post until the given time. It reports false when
	// the post is no longer scheduled or another run holds an unexpired lease.
	Claim(ctx context.Context, owner, id string, now, until time.Time) (bool, error)
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, owner, content, platform_content, platforms, media, platform_media,
	status, scheduled_for, published_at, claimed_until, retry_of, created_at, updated_at`

const uniqueRetryIndex = "idx_posts_retry_of"

func (r *postRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	platformContent, err := json.Marshal(post.PlatformContent)
	if err != nil {
		return nil, err
	}
	platformMedia, err := json.Marshal(post.PlatformMedia)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO posts (id, owner, content, platform_content, platforms, media, platform_media, status, scheduled_for, retry_of, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
	`
	_, err = r.db.ExecContext(ctx, query,
		post.ID,
		post.Owner,
		post.Content,
		platformContent,
		pq.Array(post.Platforms),
		post.Media,
		platformMedia,
		post.Status,
		post.ScheduledFor,
		post.RetryOf,
		post.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == uniqueRetryIndex {
			return nil, models.ErrRetryExists
		}
		slog.Info(err.Error())
		return nil, err
	}

	post.UpdatedAt = post.CreatedAt
	return post, nil
}

func (r *postRepository) GetByID(ctx context.Context, owner, id string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE owner = $1 AND id = $2`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, owner, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) ListByStatus(ctx context.Context, status string) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE status = $1 ORDER BY scheduled_for NULLS LAST, id`
	return r.list(ctx, query, status)
}

func (r *postRepository) ListByOwner(ctx context.Context, owner string) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE owner = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, owner)
}

func (r *postRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) Replace(ctx context.Context, post *models.Post) error {
	platformContent, err := json.Marshal(post.PlatformContent)
	if err != nil {
		return err
	}
	platformMedia, err := json.Marshal(post.PlatformMedia)
	if err != nil {
		return err
	}

	query := `
		UPDATE posts
		SET content = $3,
			platform_content = $4,
			platforms = $5,
			media = $6,
			platform_media = $7,
			status = $8,
			scheduled_for = $9,
			published_at = $10,
			claimed_until = $11,
			updated_at = $12
		WHERE owner = $1 AND id = $2
	`
	now := time.Now()
	result, err := r.db.ExecContext(ctx, query,
		post.Owner,
		post.ID,
		post.Content,
		platformContent,
		pq.Array(post.Platforms),
		post.Media,
		platformMedia,
		post.Status,
		post.ScheduledFor,
		post.PublishedAt,
		post.ClaimedUntil,
		now,
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected == 0 {
		return models.ErrPostNotFound
	}
	post.UpdatedAt = now
	return nil
}

func (r *postRepository) Claim(ctx context.Context, owner, id string, now, until time.Time) (bool, error) {
	query := `
		UPDATE posts
		SET claimed_until = $4,
			updated_at = $3
		WHERE owner = $1 AND id = $2
			AND status = 'scheduled'
			AND (claimed_until IS NULL OR claimed_until < $3)
	`
	result, err := r.db.ExecContext(ctx, query, owner, id, now, until)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var (
		post            models.Post
		platformContent []byte
		platformMedia   []byte
		platforms       pq.StringArray
		scheduledFor    sql.NullTime
		publishedAt     sql.NullTime
		claimedUntil    sql.NullTime
	)

	err := row.Scan(&post.ID, &post.Owner, &post.Content, &platformContent, &platforms, &post.Media, &platformMedia,
		&post.Status, &scheduledFor, &publishedAt, &claimedUntil, &post.RetryOf, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}

	post.Platforms = []string(platforms)
	if len(platformContent) > 0 {
		if err := json.Unmarshal(platformContent, &post.PlatformContent); err != nil {
			return nil, err
		}
	}
	if len(platformMedia) > 0 {
		if err := json.Unmarshal(platformMedia, &post.PlatformMedia); err != nil {
			return nil, err
		}
	}
	post.ScheduledFor = nullTime(scheduledFor)
	post.PublishedAt = nullTime(publishedAt)
	post.ClaimedUntil = nullTime(claimedUntil)
	return &post, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
