package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/pkg/utils"
)

type CredentialRepository interface {
	Get(ctx context.Context, owner, platformKey string) (*models.Credential, error)
	Put(ctx context.Context, cred *models.Credential) error
	Delete(ctx context.Context, owner, platformKey string) error
}

type credentialRepository struct {
	db  *sql.DB
	key []byte
}

// NewCredentialRepository stores tokens encrypted with key (AES-GCM, 16, 24 or 32 bytes).
func NewCredentialRepository(db *sql.DB, key []byte) CredentialRepository {
	return &credentialRepository{db: db, key: key}
}

func (r *credentialRepository) Get(ctx context.Context, owner, platformKey string) (*models.Credential, error) {
	query := `
		SELECT owner, platform_key, access_token, refresh_token, expires_at, account_id,
			organization_id, page_id, page_access_token, linked_account_id, created_at, updated_at
		FROM credentials
		WHERE owner = $1 AND platform_key = $2
	`

	var (
		cred            models.Credential
		accessToken     string
		refreshToken    string
		pageAccessToken string
		expiresAt       sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, owner, platformKey).Scan(
		&cred.Owner,
		&cred.PlatformKey,
		&accessToken,
		&refreshToken,
		&expiresAt,
		&cred.AccountID,
		&cred.OrganizationID,
		&cred.PageID,
		&pageAccessToken,
		&cred.LinkedAccountID,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	if expiresAt.Valid {
		cred.ExpiresAt = expiresAt.Time
	}

	if cred.AccessToken, err = r.open(accessToken); err != nil {
		return nil, err
	}
	if cred.RefreshToken, err = r.open(refreshToken); err != nil {
		return nil, err
	}
	if cred.PageAccessToken, err = r.open(pageAccessToken); err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *credentialRepository) Put(ctx context.Context, cred *models.Credential) error {
	accessToken, err := r.seal(cred.AccessToken)
	if err != nil {
		return err
	}
	refreshToken, err := r.seal(cred.RefreshToken)
	if err != nil {
		return err
	}
	pageAccessToken, err := r.seal(cred.PageAccessToken)
	if err != nil {
		return err
	}

	var expiresAt interface{}
	if !cred.ExpiresAt.IsZero() {
		expiresAt = cred.ExpiresAt
	}

	query := `
		INSERT INTO credentials (
			owner, platform_key, access_token, refresh_token, expires_at, account_id,
			organization_id, page_id, page_access_token, linked_account_id, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (owner, platform_key) DO UPDATE
		SET access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			account_id = EXCLUDED.account_id,
			organization_id = EXCLUDED.organization_id,
			page_id = EXCLUDED.page_id,
			page_access_token = EXCLUDED.page_access_token,
			linked_account_id = EXCLUDED.linked_account_id,
			updated_at = EXCLUDED.updated_at
	`
	now := time.Now()
	_, err = r.db.ExecContext(ctx, query,
		cred.Owner,
		cred.PlatformKey,
		accessToken,
		refreshToken,
		expiresAt,
		cred.AccountID,
		cred.OrganizationID,
		cred.PageID,
		pageAccessToken,
		cred.LinkedAccountID,
		now,
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *credentialRepository) Delete(ctx context.Context, owner, platformKey string) error {
	query := `DELETE FROM credentials WHERE owner = $1 AND platform_key = $2`
	_, err := r.db.ExecContext(ctx, query, owner, platformKey)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *credentialRepository) seal(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	return utils.Encrypt([]byte(token), r.key)
}

func (r *credentialRepository) open(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	return utils.Decrypt(token, r.key)
}
