package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

type linkedInPublisher struct {
	baseURL       string
	client        *http.Client
	mediaClient   *http.Client
	maxMediaBytes int64
}

// NewLinkedInPublisher talks to the API through client. Post media is
// user-supplied, so it is downloaded through mediaClient, which defaults to
// the SSRF-guarded client when nil.
func NewLinkedInPublisher(baseURL string, client, mediaClient *http.Client) Publisher {
	if mediaClient == nil {
		mediaClient = NewSafeHTTPClient(client.Timeout)
	}
	return &linkedInPublisher{
		baseURL:       strings.TrimRight(baseURL, "/"),
		client:        client,
		mediaClient:   mediaClient,
		maxMediaBytes: maxPublishMediaBytes,
	}
}

func (p *linkedInPublisher) Platform() string    { return PlatformLinkedIn }
func (p *linkedInPublisher) RequiresMedia() bool { return false }

func (p *linkedInPublisher) Publish(ctx context.Context, req PublishRequest) (models.PublishResult, error) {
	if req.Credential == nil || req.Credential.AccessToken == "" {
		return models.Failed(PlatformLinkedIn, models.KindNotConnected, models.ErrMsgNotConnected), nil
	}

	client := bearerClient(ctx, p.client, req.Credential.AccessToken)

	author, err := p.author(ctx, client, req.Credential)
	if err != nil {
		return failedFrom(PlatformLinkedIn, err), nil
	}

	var asset string
	if req.Media != "" {
		asset, err = p.uploadImage(ctx, client, author, req.Media)
		if err != nil {
			slog.Warn("linkedin media upload failed, posting text only", "author", author, "error", err)
			asset = ""
		}
	}

	id, err := p.createPost(ctx, client, author, req.Text, asset)
	if err != nil {
		return failedFrom(PlatformLinkedIn, err), nil
	}
	return models.Published(PlatformLinkedIn, id), nil
}

// author posts as the organization when one is connected, as the member otherwise.
func (p *linkedInPublisher) author(ctx context.Context, client *http.Client, cred *models.Credential) (string, error) {
	if cred.OrganizationID != "" {
		return "urn:li:organization:" + cred.OrganizationID, nil
	}
	if cred.AccountID != "" {
		return "urn:li:person:" + cred.AccountID, nil
	}

	var info transfer.LinkedInUserInfo
	if err := doJSON(ctx, client, http.MethodGet, p.baseURL+"/v2/userinfo", nil, &info, nil, linkedInErrorMessage); err != nil {
		return "", err
	}
	if info.Sub == "" {
		return "", rejected("linkedin member id not returned")
	}
	return "urn:li:person:" + info.Sub, nil
}

func (p *linkedInPublisher) uploadImage(ctx context.Context, client *http.Client, author, mediaURL string) (string, error) {
	image, contentType, err := fetchMedia(ctx, p.mediaClient, mediaURL, p.maxMediaBytes)
	if err != nil {
		return "", err
	}

	register := transfer.LinkedInRegisterUploadRequest{
		RegisterUploadRequest: transfer.LinkedInUploadRequest{
			Recipes: []string{"urn:li:digitalmediaRecipe:feedshare-image"},
			Owner:   author,
			ServiceRelationships: []transfer.LinkedInServiceRelationship{{
				RelationshipType: "OWNER",
				Identifier:       "urn:li:userGeneratedContent",
			}},
		},
	}

	var registered transfer.LinkedInRegisterUploadResponse
	err = doJSON(ctx, client, http.MethodPost, p.baseURL+"/v2/assets?action=registerUpload", register, &registered, nil, linkedInErrorMessage)
	if err != nil {
		return "", err
	}

	uploadURL := registered.Value.UploadMechanism.MediaUploadHTTPRequest.UploadURL
	if uploadURL == "" || registered.Value.Asset == "" {
		return "", rejected("linkedin upload slot not returned")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(image))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if err := doRequest(client, req, nil, linkedInErrorMessage); err != nil {
		return "", err
	}

	return registered.Value.Asset, nil
}

func (p *linkedInPublisher) createPost(ctx context.Context, client *http.Client, author, text, asset string) (string, error) {
	share := transfer.LinkedInShareContent{
		ShareCommentary:    transfer.LinkedInText{Text: text},
		ShareMediaCategory: "NONE",
	}
	if asset != "" {
		share.ShareMediaCategory = "IMAGE"
		share.Media = []transfer.LinkedInMedia{{Status: "READY", Media: asset}}
	}

	body := transfer.LinkedInUGCPost{
		Author:          author,
		LifecycleState:  "PUBLISHED",
		SpecificContent: transfer.LinkedInSpecificContent{ShareContent: share},
		Visibility:      map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}

	var created struct {
		ID string `json:"id"`
	}
	headers := map[string]string{"X-Restli-Protocol-Version": "2.0.0"}
	if err := doJSON(ctx, client, http.MethodPost, p.baseURL+"/v2/ugcPosts", body, &created, headers, linkedInErrorMessage); err != nil {
		return "", err
	}
	return created.ID, nil
}

func linkedInErrorMessage(body []byte) string {
	var apiErr transfer.LinkedInErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return "linkedin: " + apiErr.Message
	}
	return ""
}

// fetchMedia downloads a media reference. Failures are transport failures so the
// caller can decide whether to degrade.
func fetchMedia(ctx context.Context, client *http.Client, mediaURL string, maxBytes int64) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("error creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", transportFailure(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", rejected("media fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, "", transportFailure(err)
	}
	if int64(len(data)) > maxBytes {
		return nil, "", rejected("media exceeds %d bytes", maxBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return data, contentType, nil
}

const maxPublishMediaBytes = 20 << 20
