package vision

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for x := 0; x < 4; x++ {
		for y := 0; y < 3; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 80), B: 200, A: 255})
		}
	}
	return img
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	return buf.Bytes()
}

func testGIF(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, testImage(), nil))
	return buf.Bytes()
}

const validResponse = `{
  "category": "electronics",
  "brand": "Sony",
  "model": "WH-1000XM4",
  "condition": "good",
  "confidence": 0.85,
  "seo_title": "Sony WH-1000XM4 Wireless Noise Cancelling Headphones - Good Condition",
  "description": "Black over-ear headphones with light wear on the headband.",
  "tags": ["headphones", "sony", "wireless"],
  "estimated_value": {"low": 120, "mid": 150, "high": 180, "currency": "USD", "confidence": 0.7}
}`

type fakeGateway struct {
	text  string
	err   error
	calls int
	got   Request
	ctx   context.Context
}

func (f *fakeGateway) Generate(ctx context.Context, req Request) (*Response, error) {
	f.calls++
	f.got = req
	f.ctx = ctx
	if f.err != nil {
		return nil, f.err
	}
	return &Response{
		Text:  f.text,
		Model: "fake-model",
		Usage: Usage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30},
	}, nil
}

func (f *fakeGateway) Model() string {
	return "fake-model"
}
