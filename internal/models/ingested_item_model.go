package models

import "time"

type IngestedItem struct {
	ID                int64      `json:"id"`
	Owner             string     `json:"owner"`
	ExternalID        string     `json:"external_id"`
	SourceName        string     `json:"source_name"`
	Brand             string     `json:"brand"`
	Title             string     `json:"title"`
	Content           string     `json:"content"`
	Link              string     `json:"link"`
	OriginPublishedAt *time.Time `json:"origin_published_at,omitempty"`
	MediaURL          string     `json:"media_url,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// FeedItem is an unsaved entry read from a feed source.
type FeedItem struct {
	GUID        string
	Title       string
	Content     string
	Link        string
	PublishedAt *time.Time
	MediaURL    string
}

type IngestError struct {
	Source     string `json:"source"`
	ExternalID string `json:"externalId,omitempty"`
	Error      string `json:"error"`
}

type IngestReport struct {
	New       int           `json:"new"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Scheduled int           `json:"scheduled"`
	Errors    []IngestError `json:"errors,omitempty"`
}
