package models

import "time"

// PostingHistory records one platform attempt made for a post.
type PostingHistory struct {
	ID           int64     `json:"id"`
	Owner        string    `json:"owner"`
	PostID       string    `json:"post_id"`
	Platform     string    `json:"platform"`
	Success      bool      `json:"success"`
	RemotePostID string    `json:"remote_post_id,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
