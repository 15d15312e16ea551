package vision

import (
	"context"
	"fmt"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// GatewayOptions are the settings shared by every provider.
type GatewayOptions struct {
	APIKey  string
	Model   string
	BaseURL string
}

// NewGateway creates the gateway for the named provider.
func NewGateway(ctx context.Context, provider string, opts GatewayOptions) (Gateway, error) {
	switch provider {
	case ProviderGemini, "":
		gw, err := NewGeminiGateway(ctx, GeminiOptions(opts))
		if err != nil {
			return nil, err
		}
		return gw, nil
	case ProviderOpenAI:
		return NewOpenAIGateway(OpenAIOptions(opts)), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}
