package adk

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
)

const (
	anthropicModelsURL = "https://api.anthropic.com/v1/models"
	anthropicVersion   = "2023-06-01"
)

// AnthropicProvider lists Claude models. The triage assistant runs on Gemini only.
type AnthropicProvider struct {
	APIKey  string
	Model   string
	BaseURL string
	client  *http.Client
}

func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	if model == "" {
		model = "claude-sonnet-4-5"
	}
	return &AnthropicProvider{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: anthropicModelsURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *AnthropicProvider) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", p.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "list anthropic models")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("Anthropic API returned status: %s", resp.Status)
	}

	var result struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "decode anthropic models")
	}

	models := make([]string, 0, len(result.Data))
	for _, m := range result.Data {
		models = append(models, m.ID)
	}
	sort.Strings(models)
	return models, nil
}

func (p *AnthropicProvider) GenerateResponse(ctx context.Context, history []Message, tools []Tool) (string, *ToolCall, error) {
	return "", nil, errors.Wrap(ErrChatUnsupported, "anthropic")
}
