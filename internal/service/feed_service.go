package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
	"github.com/h2non/filetype"
	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

var ErrUnsupportedMedia = errors.New("media is not a supported image")

const maxFeedBytes = 10 << 20

type FeedService interface {
	Fetch(ctx context.Context, source config.FeedSource) ([]models.FeedItem, error)
	// FetchMedia downloads an image and returns its bytes with the sniffed MIME type and extension.
	FetchMedia(ctx context.Context, mediaURL string, maxBytes int64) ([]byte, string, string, error)
}

type feedService struct {
	client *http.Client
	strip  *bluemonday.Policy
}

// NewSafeHTTPClient returns a client that refuses private addresses and
// non-standard ports, for fetching URLs taken from third-party feeds.
func NewSafeHTTPClient(timeout time.Duration) *http.Client {
	cfg := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()
	return safeurl.Client(cfg).Client
}

func NewFeedService(client *http.Client) FeedService {
	return &feedService{client: client, strip: bluemonday.StrictPolicy()}
}

func (s *feedService) Fetch(ctx context.Context, source config.FeedSource) ([]models.FeedItem, error) {
	body, _, err := s.get(ctx, source.URL, maxFeedBytes)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", source.Name, err)
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", source.Name, err)
	}

	items := make([]models.FeedItem, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		items = append(items, s.convert(item))
	}
	return items, nil
}

func (s *feedService) convert(item *gofeed.Item) models.FeedItem {
	out := models.FeedItem{
		GUID:  strings.TrimSpace(item.GUID),
		Title: s.plain(item.Title),
		Link:  strings.TrimSpace(item.Link),
	}

	content := item.Content
	if content == "" {
		content = item.Description
	}
	out.Content = s.plain(content)

	if item.PublishedParsed != nil {
		t := *item.PublishedParsed
		out.PublishedAt = &t
	} else if item.UpdatedParsed != nil {
		t := *item.UpdatedParsed
		out.PublishedAt = &t
	}

	if out.Link == "" && (strings.HasPrefix(out.GUID, "http://") || strings.HasPrefix(out.GUID, "https://")) {
		out.Link = out.GUID
	}

	out.MediaURL = mediaURL(item)
	return out
}

func (s *feedService) plain(raw string) string {
	return strings.TrimSpace(html.UnescapeString(s.strip.Sanitize(raw)))
}

// mediaURL prefers the item image, then an image enclosure.
func mediaURL(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && enc.URL != "" && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}

func (s *feedService) FetchMedia(ctx context.Context, mediaURL string, maxBytes int64) ([]byte, string, string, error) {
	body, _, err := s.get(ctx, mediaURL, maxBytes)
	if err != nil {
		return nil, "", "", err
	}

	kind, err := filetype.Match(body)
	if err != nil || !filetype.IsImage(body) {
		return nil, "", "", ErrUnsupportedMedia
	}
	return body, kind.MIME.Value, kind.Extension, nil
}

func (s *feedService) get(ctx context.Context, rawURL string, maxBytes int64) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", "crosspost-ingest/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	if maxBytes <= 0 {
		maxBytes = maxFeedBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(body)) > maxBytes {
		return nil, "", fmt.Errorf("response exceeds %d bytes", maxBytes)
	}
	return body, resp.Header.Get("Content-Type"), nil
}
