package repository

import (
	"context"
	"sync"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
)

// In-memory stores back local runs without POSTGRES_URI and the package tests.
// They keep insertion order for scans.

type memoryPostRepository struct {
	mu    sync.Mutex
	order []string
	posts map[string]*models.Post
}

func NewMemoryPostRepository() PostRepository {
	return &memoryPostRepository{posts: make(map[string]*models.Post)}
}

func postKey(owner, id string) string {
	return owner + "\x00" + id
}

func (r *memoryPostRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if post.RetryOf != "" {
		for _, p := range r.posts {
			if p.Owner == post.Owner && p.RetryOf == post.RetryOf && p.ID != post.ID {
				return nil, models.ErrRetryExists
			}
		}
	}

	key := postKey(post.Owner, post.ID)
	if _, ok := r.posts[key]; !ok {
		r.order = append(r.order, key)
	}
	post.UpdatedAt = post.CreatedAt
	r.posts[key] = post.Clone()
	return post, nil
}

func (r *memoryPostRepository) GetByID(ctx context.Context, owner, id string) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[postKey(owner, id)]
	if !ok {
		return nil, nil
	}
	return post.Clone(), nil
}

func (r *memoryPostRepository) ListByStatus(ctx context.Context, status string) ([]*models.Post, error) {
	return r.filter(func(p *models.Post) bool { return p.Status == status }), nil
}

func (r *memoryPostRepository) ListByOwner(ctx context.Context, owner string) ([]*models.Post, error) {
	return r.filter(func(p *models.Post) bool { return p.Owner == owner }), nil
}

func (r *memoryPostRepository) filter(keep func(*models.Post) bool) []*models.Post {
	r.mu.Lock()
	defer r.mu.Unlock()

	var posts []*models.Post
	for _, key := range r.order {
		if p := r.posts[key]; keep(p) {
			posts = append(posts, p.Clone())
		}
	}
	return posts
}

func (r *memoryPostRepository) Replace(ctx context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := postKey(post.Owner, post.ID)
	if _, ok := r.posts[key]; !ok {
		return models.ErrPostNotFound
	}
	post.UpdatedAt = time.Now()
	r.posts[key] = post.Clone()
	return nil
}

func (r *memoryPostRepository) Claim(ctx context.Context, owner, id string, now, until time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[postKey(owner, id)]
	if !ok || post.Status != models.PostStatusScheduled {
		return false, nil
	}
	if post.ClaimedUntil != nil && !post.ClaimedUntil.Before(now) {
		return false, nil
	}
	post.ClaimedUntil = &until
	post.UpdatedAt = now
	return true, nil
}

type memoryCredentialRepository struct {
	mu    sync.RWMutex
	creds map[string]models.Credential
}

func NewMemoryCredentialRepository() CredentialRepository {
	return &memoryCredentialRepository{creds: make(map[string]models.Credential)}
}

func (r *memoryCredentialRepository) Get(ctx context.Context, owner, platformKey string) (*models.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cred, ok := r.creds[postKey(owner, platformKey)]
	if !ok {
		return nil, nil
	}
	return &cred, nil
}

func (r *memoryCredentialRepository) Put(ctx context.Context, cred *models.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	key := postKey(cred.Owner, cred.PlatformKey)
	stored := *cred
	if existing, ok := r.creds[key]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.creds[key] = stored
	return nil
}

func (r *memoryCredentialRepository) Delete(ctx context.Context, owner, platformKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.creds, postKey(owner, platformKey))
	return nil
}

type memoryIngestedItemRepository struct {
	mu     sync.Mutex
	nextID int64
	items  map[string]*models.IngestedItem
	order  []string
}

func NewMemoryIngestedItemRepository() IngestedItemRepository {
	return &memoryIngestedItemRepository{items: make(map[string]*models.IngestedItem)}
}

func (r *memoryIngestedItemRepository) Exists(ctx context.Context, owner, externalID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.items[postKey(owner, externalID)]
	return ok, nil
}

func (r *memoryIngestedItemRepository) Create(ctx context.Context, item *models.IngestedItem) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := postKey(item.Owner, item.ExternalID)
	if _, ok := r.items[key]; ok {
		return false, nil
	}
	r.nextID++
	item.ID = r.nextID
	stored := *item
	r.items[key] = &stored
	r.order = append(r.order, key)
	return true, nil
}

func (r *memoryIngestedItemRepository) ListByOwner(ctx context.Context, owner string) ([]*models.IngestedItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var items []*models.IngestedItem
	for i := len(r.order) - 1; i >= 0; i-- {
		item := r.items[r.order[i]]
		if item.Owner == owner {
			c := *item
			items = append(items, &c)
		}
	}
	return items, nil
}

type memoryPostingHistoryRepository struct {
	mu      sync.Mutex
	nextID  int64
	entries []models.PostingHistory
}

func NewMemoryPostingHistoryRepository() PostingHistoryRepository {
	return &memoryPostingHistoryRepository{}
}

func (r *memoryPostingHistoryRepository) Create(ctx context.Context, ph *models.PostingHistory) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	ph.ID = r.nextID
	r.entries = append(r.entries, *ph)
	return ph.ID, nil
}

func (r *memoryPostingHistoryRepository) ListByPostID(ctx context.Context, owner, postID string) ([]*models.PostingHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var phs []*models.PostingHistory
	for i := range r.entries {
		if r.entries[i].Owner == owner && r.entries[i].PostID == postID {
			ph := r.entries[i]
			phs = append(phs, &ph)
		}
	}
	return phs, nil
}
