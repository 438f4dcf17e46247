package models

import (
	"time"
)

// Credential is an OAuth token connected for one owner and platform key. The
// platform key is either the bare platform name or "platform-brand".
type Credential struct {
	Owner           string    `json:"owner"`
	PlatformKey     string    `json:"platform_key"`
	AccessToken     string    `json:"-"`
	RefreshToken    string    `json:"-"`
	ExpiresAt       time.Time `json:"expires_at"`
	AccountID       string    `json:"account_id,omitempty"`
	OrganizationID  string    `json:"organization_id,omitempty"`
	PageID          string    `json:"page_id,omitempty"`
	PageAccessToken string    `json:"-"`
	LinkedAccountID string    `json:"linked_account_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func PlatformKey(platform, brand string) string {
	if brand == "" {
		return platform
	}
	return platform + "-" + brand
}
