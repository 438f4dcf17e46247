package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

// PlatformService manages connected accounts. The OAuth exchange happens
// elsewhere; this only stores and removes the resulting tokens.
type PlatformService interface {
	Connect(ctx context.Context, owner, platform string, req *transfer.ConnectAccountRequest) (*models.Credential, error)
	Disconnect(ctx context.Context, owner, platform, brand string) error
}

type platformService struct {
	creds    repository.CredentialRepository
	registry *PublisherRegistry
}

func NewPlatformService(creds repository.CredentialRepository, registry *PublisherRegistry) PlatformService {
	return &platformService{creds: creds, registry: registry}
}

func (s *platformService) Connect(ctx context.Context, owner, platform string, req *transfer.ConnectAccountRequest) (*models.Credential, error) {
	if _, ok := s.registry.Get(platform); !ok {
		return nil, fmt.Errorf("%w: %s", ErrValidation, models.ErrMsgUnsupportedPlatform)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: account data is nil", ErrValidation)
	}
	if err := validate.Struct(req); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	cred := &models.Credential{
		Owner:           owner,
		PlatformKey:     models.PlatformKey(platform, req.Brand),
		AccessToken:     req.AccessToken,
		RefreshToken:    req.RefreshToken,
		AccountID:       req.AccountID,
		OrganizationID:  req.OrganizationID,
		PageID:          req.PageID,
		PageAccessToken: req.PageAccessToken,
		LinkedAccountID: req.LinkedAccountID,
	}
	if req.ExpiresAt != nil {
		cred.ExpiresAt = *req.ExpiresAt
	}

	if err := s.creds.Put(ctx, cred); err != nil {
		return nil, fmt.Errorf("error saving account: %w", err)
	}
	return cred, nil
}

func (s *platformService) Disconnect(ctx context.Context, owner, platform, brand string) error {
	return s.creds.Delete(ctx, owner, models.PlatformKey(platform, brand))
}
