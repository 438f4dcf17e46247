package models

import (
	"errors"
	"time"
)

const (
	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
)

var (
	ErrPostNotFound = errors.New("post not found")
	// ErrRetryExists is returned by stores when a post already has a retry.
	ErrRetryExists = errors.New("post already has a retry")
)

type Post struct {
	ID              string            `json:"id"`
	Owner           string            `json:"owner"`
	Content         string            `json:"content"`
	PlatformContent map[string]string `json:"platformContent,omitempty"`
	Platforms       []string          `json:"platforms"`
	Media           string            `json:"media,omitempty"`
	PlatformMedia   map[string]string `json:"platformMedia,omitempty"`
	Status          string            `json:"status"`
	ScheduledFor    *time.Time        `json:"scheduledFor,omitempty"`
	PublishedAt     *time.Time        `json:"publishedAt,omitempty"`
	RetryOf         string            `json:"retryOf,omitempty"`
	ClaimedUntil    *time.Time        `json:"-"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// TextFor returns the platform override when present, the default body otherwise.
func (p *Post) TextFor(platform string) string {
	if text := p.PlatformContent[platform]; text != "" {
		return text
	}
	return p.Content
}

func (p *Post) MediaFor(platform string) string {
	if media := p.PlatformMedia[platform]; media != "" {
		return media
	}
	return p.Media
}

// IsDue reports whether a scheduled post should be published at now.
func (p *Post) IsDue(now time.Time) bool {
	return p.Status == PostStatusScheduled && p.ScheduledFor != nil && !p.ScheduledFor.After(now)
}

// Clone returns a deep copy so stores never share maps or slices with callers.
func (p *Post) Clone() *Post {
	c := *p
	c.Platforms = append([]string(nil), p.Platforms...)
	c.PlatformContent = cloneMap(p.PlatformContent)
	c.PlatformMedia = cloneMap(p.PlatformMedia)
	c.ScheduledFor = cloneTime(p.ScheduledFor)
	c.PublishedAt = cloneTime(p.PublishedAt)
	c.ClaimedUntil = cloneTime(p.ClaimedUntil)
	return &c
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
