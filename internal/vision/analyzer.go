package vision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Analyzer runs the whole pipeline: normalize image, send the fixed prompt
// to the gateway, parse the reply. It holds no per-call state and is safe for
// concurrent use when the gateway is.
type Analyzer struct {
	gateway Gateway
	loader  *ImageLoader
	config  GenerationConfig
	timeout time.Duration
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithGenerationConfig overrides DefaultGenerationConfig.
func WithGenerationConfig(cfg GenerationConfig) Option {
	return func(a *Analyzer) { a.config = cfg }
}

// WithImageLoader replaces the default loader.
func WithImageLoader(loader *ImageLoader) Option {
	return func(a *Analyzer) { a.loader = loader }
}

// WithTimeout bounds each gateway call. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(a *Analyzer) { a.timeout = d }
}

// NewAnalyzer creates an Analyzer backed by gateway.
func NewAnalyzer(gateway Gateway, opts ...Option) *Analyzer {
	a := &Analyzer{
		gateway: gateway,
		loader:  NewImageLoader(NewDownloader()),
		config:  DefaultGenerationConfig(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeImage analyzes an image given as a file path, data URL or http(s) URL.
func (a *Analyzer) AnalyzeImage(ctx context.Context, source string) (*AIAnalysis, error) {
	img, err := a.loader.Load(ctx, source)
	if err != nil {
		return nil, analysisError(err)
	}
	return a.AnalyzeDecoded(ctx, img)
}

// AnalyzeBase64 analyzes a base64-encoded image. A data URL is accepted too.
func (a *Analyzer) AnalyzeBase64(ctx context.Context, b64 string) (*AIAnalysis, error) {
	var img *Image
	var err error
	if strings.HasPrefix(b64, "data:") {
		img, err = DecodeDataURL(b64)
	} else {
		img, err = DecodeBase64(b64)
	}
	if err != nil {
		return nil, analysisError(err)
	}
	return a.AnalyzeDecoded(ctx, img)
}

// AnalyzeBytes analyzes raw image file contents.
func (a *Analyzer) AnalyzeBytes(ctx context.Context, data []byte) (*AIAnalysis, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return nil, analysisError(err)
	}
	return a.AnalyzeDecoded(ctx, img)
}

// AnalyzeDecoded analyzes an already normalized image.
func (a *Analyzer) AnalyzeDecoded(ctx context.Context, img *Image) (*AIAnalysis, error) {
	result, err := a.generate(ctx, img)
	if err != nil {
		return nil, analysisError(err)
	}
	return result, nil
}

func (a *Analyzer) generate(ctx context.Context, img *Image) (*AIAnalysis, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	prompt := AnalysisPrompt()
	resp, err := a.gateway.Generate(ctx, Request{
		Prompt: prompt,
		Image:  img,
		Config: a.config,
	})
	if err != nil {
		return nil, fmt.Errorf("AI analysis failed: %w", err)
	}

	result, err := ParseResponse(resp.Text)
	if err != nil {
		log.Warn().Err(err).Str("model", resp.Model).Msg("unusable vision response")
		return nil, err
	}

	result.RawResponse = &RawResponse{
		Prompt:   prompt,
		Response: resp.Text,
		Model:    resp.Model,
		Usage:    resp.Usage,
	}

	// Passed through unchanged; only flagged.
	if result.Confidence < 0 || result.Confidence > 1 {
		log.Warn().Float64("confidence", result.Confidence).Msg("confidence outside [0,1]")
	}
	if !result.EstimatedValue.Ordered() {
		log.Warn().
			Float64("low", result.EstimatedValue.Low).
			Float64("mid", result.EstimatedValue.Mid).
			Float64("high", result.EstimatedValue.High).
			Msg("price estimate is not ordered low <= mid <= high")
	}

	log.Info().
		Str("category", string(result.Category)).
		Str("condition", string(result.Condition)).
		Float64("confidence", result.Confidence).
		Int("width", img.Width).
		Int("height", img.Height).
		Msg("image analyzed")

	return result, nil
}
