package vision

import "context"

// GenerationConfig controls sampling for a gateway call.
type GenerationConfig struct {
	Temperature     float32
	TopP            float32
	TopK            int32
	MaxOutputTokens int32
}

// DefaultGenerationConfig keeps output close to deterministic.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     0.1,
		TopP:            0.8,
		TopK:            40,
		MaxOutputTokens: 2048,
	}
}

// Request is one prompt plus image submitted to a model service.
type Request struct {
	Prompt string
	Image  *Image
	Config GenerationConfig
}

// Response is the free-form text a model service returned.
type Response struct {
	Text  string
	Model string
	Usage Usage
}

// Gateway sends a request to a hosted multimodal model.
type Gateway interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	// Model returns the model identifier recorded in RawResponse.
	Model() string
}

func calculateCost(inputTokens, outputTokens int64, inputPrice, outputPrice float64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * inputPrice
	outputCost := float64(outputTokens) / 1_000_000 * outputPrice
	return inputCost + outputCost
}
