package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"
	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

var ErrGeneratorNotConfigured = errors.New("content generator is not configured")

const generatorSystemPrompt = "You write social media posts that promote an article. " +
	"Each post must stand on its own, stay under 1200 characters and must not invent facts. " +
	`Reply with a JSON object of the form {"posts": ["..."]}.`

type ContentGenerator interface {
	Generate(ctx context.Context, sourceText string, count int) ([]string, error)
}

type azureOpenAIGenerator struct {
	cfg    config.AzureOpenAI
	client *http.Client
}

func NewContentGenerator(cfg config.AzureOpenAI, client *http.Client) ContentGenerator {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &azureOpenAIGenerator{cfg: cfg, client: client}
}

func (g *azureOpenAIGenerator) Generate(ctx context.Context, sourceText string, count int) ([]string, error) {
	if g.cfg.Endpoint == "" || g.cfg.APIKey == "" || g.cfg.Deployment == "" {
		return nil, ErrGeneratorNotConfigured
	}
	if count <= 0 {
		return nil, nil
	}

	reqBody := transfer.ChatCompletionRequest{
		Messages: []transfer.ChatMessage{
			{Role: "system", Content: generatorSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Write %d distinct posts for this article:\n\n%s", count, sourceText)},
		},
		Temperature:    0.7,
		ResponseFormat: &transfer.ChatCompletionResponseFormat{Type: "json_object"},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("generator: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?%s",
		strings.TrimRight(g.cfg.Endpoint, "/"),
		url.PathEscape(g.cfg.Deployment),
		url.Values{"api-version": {g.cfg.APIVersion}}.Encode(),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("generator: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", g.cfg.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generator: do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("generator: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var apiErr transfer.ChatAPIErrorResponse
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("generator: %s", apiErr.Error.Message)
		}
		return nil, fmt.Errorf("generator: unexpected status %d", resp.StatusCode)
	}

	var completion transfer.ChatCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return nil, fmt.Errorf("generator: decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("generator: empty response")
	}

	var generated transfer.GeneratedPosts
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &generated); err != nil {
		return nil, fmt.Errorf("generator: decode posts: %w", err)
	}

	posts := make([]string, 0, count)
	for _, p := range generated.Posts {
		if p = strings.TrimSpace(p); p != "" {
			posts = append(posts, p)
		}
		if len(posts) == count {
			break
		}
	}
	if len(posts) == 0 {
		return nil, errors.New("generator: no posts returned")
	}
	return posts, nil
}
