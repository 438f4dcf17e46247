package service

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

// graphClient holds what Facebook and Instagram share: the Graph API base URL
// and the page lookup performed at publish time.
type graphClient struct {
	baseURL string
	client  *http.Client
}

type graphPage struct {
	id    string
	token string
}

func newGraphClient(baseURL string, client *http.Client) graphClient {
	return graphClient{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// resolvePage returns the page to post as. A credential without a page id gets
// the first page the user token manages.
func (g graphClient) resolvePage(ctx context.Context, cred *models.Credential) (graphPage, error) {
	if cred.PageID != "" {
		token := cred.PageAccessToken
		if token == "" {
			token = cred.AccessToken
		}
		return graphPage{id: cred.PageID, token: token}, nil
	}

	var accounts transfer.GraphAccountsResponse
	endpoint := g.baseURL + "/me/accounts?" + url.Values{"access_token": {cred.AccessToken}}.Encode()
	if err := doJSON(ctx, g.client, http.MethodGet, endpoint, nil, &accounts, nil, graphErrorMessage); err != nil {
		return graphPage{}, err
	}
	if len(accounts.Data) == 0 {
		return graphPage{}, rejected("no facebook page available for this account")
	}

	page := accounts.Data[0]
	token := page.AccessToken
	if token == "" {
		token = cred.AccessToken
	}
	return graphPage{id: page.ID, token: token}, nil
}

func (g graphClient) post(ctx context.Context, path string, body map[string]string, out interface{}) error {
	return doJSON(ctx, g.client, http.MethodPost, g.baseURL+path, body, out, nil, graphErrorMessage)
}

func (g graphClient) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return doJSON(ctx, g.client, http.MethodGet, g.baseURL+path+"?"+query.Encode(), nil, out, nil, graphErrorMessage)
}

func graphErrorMessage(body []byte) string {
	var apiErr transfer.GraphErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		if apiErr.Error.ErrorUserMsg != "" {
			return apiErr.Error.Message + ": " + apiErr.Error.ErrorUserMsg
		}
		return apiErr.Error.Message
	}
	return ""
}
