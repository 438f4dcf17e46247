package service

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

const tweetMaxRunes = 280

type twitterPublisher struct {
	baseURL string
	client  *http.Client
}

func NewTwitterPublisher(baseURL string, client *http.Client) Publisher {
	return &twitterPublisher{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (p *twitterPublisher) Platform() string    { return PlatformTwitter }
func (p *twitterPublisher) RequiresMedia() bool { return false }

func (p *twitterPublisher) Publish(ctx context.Context, req PublishRequest) (models.PublishResult, error) {
	if req.Credential == nil || req.Credential.AccessToken == "" {
		return models.Failed(PlatformTwitter, models.KindNotConnected, models.ErrMsgNotConnected), nil
	}
	if req.Media != "" {
		slog.Info("twitter posts are text only, media not attached", "media", req.Media)
	}

	client := bearerClient(ctx, p.client, req.Credential.AccessToken)

	var created transfer.TweetResponse
	body := transfer.TweetRequest{Text: truncateRunes(req.Text, tweetMaxRunes)}
	if err := doJSON(ctx, client, http.MethodPost, p.baseURL+"/2/tweets", body, &created, nil, twitterErrorMessage); err != nil {
		return failedFrom(PlatformTwitter, err), nil
	}
	return models.Published(PlatformTwitter, created.Data.ID), nil
}

func twitterErrorMessage(body []byte) string {
	var apiErr transfer.TwitterErrorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return ""
	}
	switch {
	case apiErr.Detail != "":
		return apiErr.Detail
	case len(apiErr.Errors) > 0:
		return apiErr.Errors[0].Message
	default:
		return apiErr.Title
	}
}
