package service

import (
	"context"
	"net/http"
	"net/url"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

const ErrMsgInstagramNotLinked = "instagram business account not linked"

type instagramPublisher struct {
	graph graphClient
}

func NewInstagramPublisher(baseURL string, client *http.Client) Publisher {
	return &instagramPublisher{graph: newGraphClient(baseURL, client)}
}

func (p *instagramPublisher) Platform() string    { return PlatformInstagram }
func (p *instagramPublisher) RequiresMedia() bool { return true }

func (p *instagramPublisher) Publish(ctx context.Context, req PublishRequest) (models.PublishResult, error) {
	if req.Credential == nil || req.Credential.AccessToken == "" {
		return models.Failed(PlatformInstagram, models.KindNotConnected, models.ErrMsgNotConnected), nil
	}
	if req.Media == "" {
		return models.Failed(PlatformInstagram, models.KindPrecondition, models.ErrMsgRequiresMedia), nil
	}

	page, err := p.graph.resolvePage(ctx, req.Credential)
	if err != nil {
		return failedFrom(PlatformInstagram, err), nil
	}

	accountID, err := p.businessAccount(ctx, req.Credential, page)
	if err != nil {
		return failedFrom(PlatformInstagram, err), nil
	}

	var container transfer.GraphIDResponse
	err = p.graph.post(ctx, "/"+accountID+"/media", map[string]string{
		"image_url":    req.Media,
		"caption":      req.Text,
		"access_token": page.token,
	}, &container)
	if err != nil {
		return failedFrom(PlatformInstagram, err), nil
	}
	if container.ID == "" {
		return models.Failed(PlatformInstagram, models.KindRemoteRejected, "no media container returned from instagram"), nil
	}

	var published transfer.GraphIDResponse
	err = p.graph.post(ctx, "/"+accountID+"/media_publish", map[string]string{
		"creation_id":  container.ID,
		"access_token": page.token,
	}, &published)
	if err != nil {
		return failedFrom(PlatformInstagram, err), nil
	}

	return models.Published(PlatformInstagram, published.ID), nil
}

func (p *instagramPublisher) businessAccount(ctx context.Context, cred *models.Credential, page graphPage) (string, error) {
	if cred.LinkedAccountID != "" {
		return cred.LinkedAccountID, nil
	}

	var resp transfer.GraphBusinessAccountResponse
	query := url.Values{"fields": {"instagram_business_account"}, "access_token": {page.token}}
	if err := p.graph.get(ctx, "/"+page.id, query, &resp); err != nil {
		return "", err
	}
	if resp.InstagramBusinessAccount == nil || resp.InstagramBusinessAccount.ID == "" {
		return "", preconditionFailed(ErrMsgInstagramNotLinked)
	}
	return resp.InstagramBusinessAccount.ID, nil
}
