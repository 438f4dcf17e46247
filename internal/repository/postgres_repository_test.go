package repository

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/maheshrc27/crosspost/internal/database"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to TEST_DATABASE_URL and applies migrations, or skips.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	require.NoError(t, database.RunMigrations(url))
	db, err := database.Open(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPostgresPostLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewPostRepository(db)

	owner := "owner-" + uuid.NewString()
	now := time.Now().UTC().Truncate(time.Second)
	post := &models.Post{
		ID:              uuid.NewString(),
		Owner:           owner,
		Content:         "hello",
		PlatformContent: map[string]string{"twitter": "short"},
		Platforms:       []string{"linkedin", "twitter"},
		Status:          models.PostStatusScheduled,
		ScheduledFor:    &now,
		CreatedAt:       now,
	}
	_, err := repo.Create(ctx, post)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, owner, post.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, post.Platforms, got.Platforms)
	assert.Equal(t, "short", got.TextFor("twitter"))

	ok, err := repo.Claim(ctx, owner, post.ID, now, now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Claim(ctx, owner, post.ID, now, now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)

	got.Status = models.PostStatusPublished
	got.PublishedAt = &now
	got.ClaimedUntil = nil
	require.NoError(t, repo.Replace(ctx, got))

	list, err := repo.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.PostStatusPublished, list[0].Status)

	missing, err := repo.GetByID(ctx, owner, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPostgresPostSingleRetry(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewPostRepository(db)

	owner := "owner-" + uuid.NewString()
	original := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Second)
	retry := func() *models.Post {
		return &models.Post{
			ID:           uuid.NewString(),
			Owner:        owner,
			Content:      "again",
			Platforms:    []string{"facebook"},
			Status:       models.PostStatusScheduled,
			ScheduledFor: &now,
			RetryOf:      original,
			CreatedAt:    now,
		}
	}

	first, err := repo.Create(ctx, retry())
	require.NoError(t, err)

	_, err = repo.Create(ctx, retry())
	assert.ErrorIs(t, err, models.ErrRetryExists)

	got, err := repo.GetByID(ctx, owner, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, original, got.RetryOf)
}

func TestPostgresCredentialsAreEncrypted(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewCredentialRepository(db, utils.DeriveKey("test-secret"))

	owner := "owner-" + uuid.NewString()
	require.NoError(t, repo.Put(ctx, &models.Credential{Owner: owner, PlatformKey: "linkedin-acme", AccessToken: "plain-token", OrganizationID: "42"}))

	var stored string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT access_token FROM credentials WHERE owner = $1`, owner).Scan(&stored))
	assert.NotEqual(t, "plain-token", stored)

	cred, err := repo.Get(ctx, owner, "linkedin-acme")
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "plain-token", cred.AccessToken)
	assert.Equal(t, "42", cred.OrganizationID)

	require.NoError(t, repo.Delete(ctx, owner, "linkedin-acme"))
	cred, err = repo.Get(ctx, owner, "linkedin-acme")
	require.NoError(t, err)
	assert.Nil(t, cred)
}

func TestPostgresIngestedItemsAndHistory(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	items := NewIngestedItemRepository(db)
	history := NewPostingHistoryRepository(db)

	owner := "owner-" + uuid.NewString()
	item := &models.IngestedItem{Owner: owner, ExternalID: "g1", SourceName: "blog", Brand: "acme", Title: "t", CreatedAt: time.Now()}

	inserted, err := items.Create(ctx, item)
	require.NoError(t, err)
	assert.True(t, inserted)
	inserted, err = items.Create(ctx, item)
	require.NoError(t, err)
	assert.False(t, inserted)

	exists, err := items.Exists(ctx, owner, "g1")
	require.NoError(t, err)
	assert.True(t, exists)

	for _, ok := range []bool{false, true} {
		_, err := history.Create(ctx, &models.PostingHistory{Owner: owner, PostID: "p1", Platform: "facebook", Success: ok, CreatedAt: time.Now()})
		require.NoError(t, err)
	}
	entries, err := history.ListByPostID(ctx, owner, "p1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.False(t, entries[0].Success)
	assert.True(t, entries[1].Success)
}
