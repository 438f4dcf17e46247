package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	json "github.com/goccy/go-json"
	"github.com/maheshrc27/crosspost/internal/models"
	"golang.org/x/oauth2"
)

const (
	PlatformLinkedIn  = "linkedin"
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
	PlatformTwitter   = "twitter"
)

// PublishRequest carries the resolved payload for one platform. Auxiliary ids
// (organization, page, linked account) travel on the credential.
type PublishRequest struct {
	Credential *models.Credential
	Text       string
	Media      string
}

// Publisher posts content to one platform. Remote API failures are reported in
// the returned result; the error return is for programming or configuration faults.
type Publisher interface {
	Platform() string
	RequiresMedia() bool
	Publish(ctx context.Context, req PublishRequest) (models.PublishResult, error)
}

type PublisherRegistry struct {
	publishers map[string]Publisher
}

func NewPublisherRegistry(publishers ...Publisher) *PublisherRegistry {
	r := &PublisherRegistry{publishers: make(map[string]Publisher, len(publishers))}
	for _, p := range publishers {
		r.Register(p)
	}
	return r
}

func (r *PublisherRegistry) Register(p Publisher) {
	r.publishers[p.Platform()] = p
}

func (r *PublisherRegistry) Get(platform string) (Publisher, bool) {
	p, ok := r.publishers[platform]
	return p, ok
}

func (r *PublisherRegistry) Platforms() []string {
	names := make([]string, 0, len(r.publishers))
	for name := range r.publishers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// publishError is a classified failure raised inside a publisher and turned
// into a failed PublishResult at its Publish boundary.
type publishError struct {
	kind models.ErrorKind
	msg  string
}

func (e *publishError) Error() string { return e.msg }

func rejected(format string, args ...interface{}) error {
	return &publishError{kind: models.KindRemoteRejected, msg: fmt.Sprintf(format, args...)}
}

func transportFailure(err error) error {
	return &publishError{kind: models.KindTransport, msg: err.Error()}
}

func preconditionFailed(msg string) error {
	return &publishError{kind: models.KindPrecondition, msg: msg}
}

func failedFrom(platform string, err error) models.PublishResult {
	var pe *publishError
	if errors.As(err, &pe) {
		return models.Failed(platform, pe.kind, pe.msg)
	}
	return models.Failed(platform, models.KindInternal, err.Error())
}

// bearerClient wraps base so every request carries the access token.
func bearerClient(ctx context.Context, base *http.Client, accessToken string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}))
}

// errorMessageFunc extracts the provider message from a non-2xx body.
type errorMessageFunc func(body []byte) string

// doJSON sends an optional JSON body and decodes a 2xx response into out.
// Network errors become transport failures, non-2xx statuses remote rejections.
func doJSON(ctx context.Context, client *http.Client, method, url string, body, out interface{}, headers map[string]string, errMsg errorMessageFunc) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error marshalling payload: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return doRequest(client, req, out, errMsg)
}

func doRequest(client *http.Client, req *http.Request, out interface{}, errMsg errorMessageFunc) error {
	resp, err := client.Do(req)
	if err != nil {
		return transportFailure(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportFailure(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := ""
		if errMsg != nil {
			msg = errMsg(respBody)
		}
		if msg == "" {
			msg = fmt.Sprintf("unexpected status code %d", resp.StatusCode)
		}
		return rejected("%s", msg)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return rejected("error parsing response: %v", err)
	}
	return nil
}
