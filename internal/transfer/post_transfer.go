package transfer

import "time"

type CreatePostRequest struct {
	Content         string            `json:"content" validate:"max=10000"`
	PlatformContent map[string]string `json:"platformContent" validate:"dive,keys,oneof=linkedin facebook instagram twitter,endkeys,max=10000"`
	Platforms       []string          `json:"platforms" validate:"dive,oneof=linkedin facebook instagram twitter"`
	Media           string            `json:"media" validate:"omitempty,url"`
	PlatformMedia   map[string]string `json:"platformMedia" validate:"dive,keys,oneof=linkedin facebook instagram twitter,endkeys,omitempty,url"`
	Status          string            `json:"status" validate:"omitempty,oneof=draft scheduled"`
	ScheduledFor    *time.Time        `json:"scheduledFor"`
}

type IngestRequest struct {
	Source string `json:"source" validate:"max=200"`
}

// ConnectAccountRequest stores a token obtained by an external OAuth flow.
type ConnectAccountRequest struct {
	Brand           string     `json:"brand" validate:"omitempty,max=64,excludes=-"`
	AccessToken     string     `json:"accessToken" validate:"required"`
	RefreshToken    string     `json:"refreshToken"`
	ExpiresAt       *time.Time `json:"expiresAt"`
	AccountID       string     `json:"accountId"`
	OrganizationID  string     `json:"organizationId"`
	PageID          string     `json:"pageId"`
	PageAccessToken string     `json:"pageAccessToken"`
	LinkedAccountID string     `json:"linkedAccountId"`
}
