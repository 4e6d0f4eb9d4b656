package adk

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
)

var ErrUnknownProvider = errors.New("unknown provider")

type providerFunc func(ctx context.Context, apiKey, model string) (LLMProvider, error)

var registry = map[string]providerFunc{
	"gemini": func(ctx context.Context, apiKey, model string) (LLMProvider, error) {
		return NewGeminiProvider(ctx, apiKey, model)
	},
	"openai": func(_ context.Context, apiKey, model string) (LLMProvider, error) {
		return NewOpenAIProvider(apiKey, model), nil
	},
	"anthropic": func(_ context.Context, apiKey, model string) (LLMProvider, error) {
		return NewAnthropicProvider(apiKey, model), nil
	},
}

// Providers lists the supported provider names in menu order.
var Providers = []string{"gemini", "openai", "anthropic"}

// NewProvider builds the named provider. Names are case-insensitive and an
// empty name selects gemini, the only provider the assistant can chat with.
func NewProvider(ctx context.Context, providerName, apiKey, modelName string) (LLMProvider, error) {
	name := strings.ToLower(strings.TrimSpace(providerName))
	if name == "" {
		name = "gemini"
	}
	newFn, ok := registry[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownProvider, "%q", providerName)
	}
	return newFn(ctx, apiKey, modelName)
}
