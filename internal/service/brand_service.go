package service

import (
	"context"
	"strings"

	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
)

type BrandService interface {
	DetectBrand(text string) string
	// Resolve looks up the brand specific credential first and falls back to the
	// bare platform key. A nil credential means the platform is not connected.
	Resolve(ctx context.Context, owner, platform, brand string) (*models.Credential, error)
}

type brandService struct {
	rules        []config.BrandRule
	defaultBrand string
	creds        repository.CredentialRepository
}

func NewBrandService(rules []config.BrandRule, defaultBrand string, creds repository.CredentialRepository) BrandService {
	lowered := make([]config.BrandRule, 0, len(rules))
	for _, rule := range rules {
		kws := make([]string, 0, len(rule.Keywords))
		for _, kw := range rule.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				kws = append(kws, kw)
			}
		}
		lowered = append(lowered, config.BrandRule{Brand: rule.Brand, Keywords: kws})
	}
	return &brandService{rules: lowered, defaultBrand: defaultBrand, creds: creds}
}

// DetectBrand returns the first rule whose keyword occurs in text, in rule order.
func (s *brandService) DetectBrand(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range s.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Brand
			}
		}
	}
	return s.defaultBrand
}

func (s *brandService) Resolve(ctx context.Context, owner, platform, brand string) (*models.Credential, error) {
	if brand != "" {
		cred, err := s.creds.Get(ctx, owner, models.PlatformKey(platform, brand))
		if err != nil {
			return nil, err
		}
		if cred != nil {
			return cred, nil
		}
	}
	return s.creds.Get(ctx, owner, platform)
}
