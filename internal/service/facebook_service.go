package service

import (
	"context"
	"net/http"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

type facebookPublisher struct {
	graph graphClient
}

func NewFacebookPublisher(baseURL string, client *http.Client) Publisher {
	return &facebookPublisher{graph: newGraphClient(baseURL, client)}
}

func (p *facebookPublisher) Platform() string    { return PlatformFacebook }
func (p *facebookPublisher) RequiresMedia() bool { return false }

func (p *facebookPublisher) Publish(ctx context.Context, req PublishRequest) (models.PublishResult, error) {
	if req.Credential == nil || req.Credential.AccessToken == "" {
		return models.Failed(PlatformFacebook, models.KindNotConnected, models.ErrMsgNotConnected), nil
	}

	page, err := p.graph.resolvePage(ctx, req.Credential)
	if err != nil {
		return failedFrom(PlatformFacebook, err), nil
	}

	var created transfer.GraphIDResponse
	if req.Media != "" {
		err = p.graph.post(ctx, "/"+page.id+"/photos", map[string]string{
			"url":          req.Media,
			"caption":      req.Text,
			"access_token": page.token,
		}, &created)
	} else {
		err = p.graph.post(ctx, "/"+page.id+"/feed", map[string]string{
			"message":      req.Text,
			"access_token": page.token,
		}, &created)
	}
	if err != nil {
		return failedFrom(PlatformFacebook, err), nil
	}

	id := created.PostID
	if id == "" {
		id = created.ID
	}
	return models.Published(PlatformFacebook, id), nil
}
