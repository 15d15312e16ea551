package vision

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest(t *testing.T) Request {
	img, err := DecodeImage(testPNG(t))
	require.NoError(t, err)
	return Request{Prompt: AnalysisPrompt(), Image: img, Config: DefaultGenerationConfig()}
}

func TestCalculateCost(t *testing.T) {
	assert.InDelta(t, 0.0008, calculateCost(1000, 200, geminiInputPricePerMillion, geminiOutputPricePerMillion), 1e-12)
	assert.InDelta(t, 0.000045, calculateCost(100, 50, openaiInputPricePerMillion, openaiOutputPricePerMillion), 1e-12)
}

func TestGeminiGateway_Generate(t *testing.T) {
	var body map[string]any
	var path string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": validResponse}},
				},
				"finishReason": "STOP",
			}},
			"usageMetadata": map[string]any{
				"promptTokenCount":     1000,
				"candidatesTokenCount": 200,
				"totalTokenCount":      1200,
			},
		})
	}))
	defer ts.Close()

	gw, err := NewGeminiGateway(context.Background(), GeminiOptions{APIKey: "test-key", BaseURL: ts.URL})
	require.NoError(t, err)
	assert.Equal(t, DefaultGeminiModel, gw.Model())

	resp, err := gw.Generate(context.Background(), testRequest(t))
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(path, "models/"+DefaultGeminiModel+":generateContent"), path)
	assert.Equal(t, validResponse, resp.Text)
	assert.Equal(t, DefaultGeminiModel, resp.Model)
	assert.Equal(t, int64(1000), resp.Usage.InputTokens)
	assert.Equal(t, int64(200), resp.Usage.OutputTokens)
	assert.Equal(t, int64(1200), resp.Usage.TotalTokens)
	assert.InDelta(t, 0.0008, resp.Usage.CostUSD, 1e-12)

	genCfg, ok := body["generationConfig"].(map[string]any)
	require.True(t, ok, "generationConfig missing from request")
	assert.InDelta(t, 0.1, genCfg["temperature"], 1e-6)
	assert.InDelta(t, 0.8, genCfg["topP"], 1e-6)
	assert.InDelta(t, 40, genCfg["topK"], 1e-6)
	assert.InDelta(t, 2048, genCfg["maxOutputTokens"], 1e-6)

	raw, _ := json.Marshal(body["contents"])
	assert.Contains(t, string(raw), "image/png")
	assert.Contains(t, string(raw), "Return ONLY valid JSON")
}

func TestGeminiGateway_NoCandidates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer ts.Close()

	gw, err := NewGeminiGateway(context.Background(), GeminiOptions{APIKey: "test-key", BaseURL: ts.URL, Model: "gemini-test"})
	require.NoError(t, err)
	assert.Equal(t, "gemini-test", gw.Model())

	_, err = gw.Generate(context.Background(), testRequest(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no response from Gemini")
}

func TestGeminiGateway_RequiresImage(t *testing.T) {
	gw, err := NewGeminiGateway(context.Background(), GeminiOptions{APIKey: "test-key"})
	require.NoError(t, err)

	_, err = gw.Generate(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
}

func TestOpenAIGateway_Generate(t *testing.T) {
	var body map[string]any

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   DefaultOpenAIModel,
			"choices": []any{map[string]any{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": validResponse},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 100, "completion_tokens": 50, "total_tokens": 150},
		})
	}))
	defer ts.Close()

	gw := NewOpenAIGateway(OpenAIOptions{APIKey: "test-key", BaseURL: ts.URL + "/v1"})
	assert.Equal(t, DefaultOpenAIModel, gw.Model())

	resp, err := gw.Generate(context.Background(), testRequest(t))
	require.NoError(t, err)

	assert.Equal(t, validResponse, resp.Text)
	assert.Equal(t, int64(150), resp.Usage.TotalTokens)
	assert.InDelta(t, 0.000045, resp.Usage.CostUSD, 1e-12)

	assert.Equal(t, DefaultOpenAIModel, body["model"])
	assert.InDelta(t, 0.1, body["temperature"], 1e-6)
	assert.InDelta(t, 0.8, body["top_p"], 1e-6)
	assert.InDelta(t, 2048, body["max_tokens"], 1e-6)
	assert.NotContains(t, body, "top_k")

	raw, _ := json.Marshal(body["messages"])
	assert.Contains(t, string(raw), "data:image/png;base64,")
}

func TestOpenAIGateway_NoChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	defer ts.Close()

	gw := NewOpenAIGateway(OpenAIOptions{APIKey: "test-key", BaseURL: ts.URL})

	_, err := gw.Generate(context.Background(), testRequest(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no response from OpenAI")
}
