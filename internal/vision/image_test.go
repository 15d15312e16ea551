package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSupportedImageFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.jpg", "b.JPEG", "c.png", "d.webp", "e.bmp", "f.gif", "g.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	assert.True(t, IsSupportedImageFile(filepath.Join(dir, "a.jpg")))
	assert.True(t, IsSupportedImageFile(filepath.Join(dir, "b.JPEG")))
	assert.True(t, IsSupportedImageFile(filepath.Join(dir, "c.png")))
	assert.True(t, IsSupportedImageFile(filepath.Join(dir, "d.webp")))
	assert.True(t, IsSupportedImageFile(filepath.Join(dir, "e.bmp")))
	assert.False(t, IsSupportedImageFile(filepath.Join(dir, "f.gif")))
	assert.False(t, IsSupportedImageFile(filepath.Join(dir, "g.txt")))
	assert.False(t, IsSupportedImageFile(filepath.Join(dir, "missing.png")))
	assert.False(t, IsSupportedImageFile(dir))
}

func TestDecodeImage_PNG(t *testing.T) {
	data := testPNG(t)

	img, err := DecodeImage(data)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, "png", img.Format)
	assert.Equal(t, 4, img.Width)
	assert.Equal(t, 3, img.Height)
	assert.Equal(t, data, img.Data)
}

func TestDecodeImage_ConvertsGIFToPNG(t *testing.T) {
	img, err := DecodeImage(testGIF(t))
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, "png", img.Format)
	assert.Equal(t, 4, img.Width)

	decoded, err := png.Decode(bytes.NewReader(img.Data))
	require.NoError(t, err)
	assert.Equal(t, 3, decoded.Bounds().Dy())
}

func TestDecodeImage_Garbage(t *testing.T) {
	_, err := DecodeImage([]byte("definitely not an image"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestDecodeBase64(t *testing.T) {
	data := testPNG(t)

	tests := []struct {
		name  string
		input string
	}{
		{"standard", base64.StdEncoding.EncodeToString(data)},
		{"raw", base64.RawStdEncoding.EncodeToString(data)},
		{"url safe", base64.URLEncoding.EncodeToString(data)},
		{"wrapped lines", wrap(base64.StdEncoding.EncodeToString(data), 16)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := DecodeBase64(tt.input)
			require.NoError(t, err)
			assert.Equal(t, data, img.Data)
		})
	}
}

func TestDecodeBase64_Invalid(t *testing.T) {
	for _, input := range []string{"", "   ", "!!!not base64!!!"} {
		_, err := DecodeBase64(input)
		require.Error(t, err, input)
		assert.True(t, errors.Is(err, ErrInvalidInput))
	}
}

func TestDecodeDataURL(t *testing.T) {
	data := testPNG(t)

	img, err := DecodeDataURL("data:image/png;base64," + base64.StdEncoding.EncodeToString(data))
	require.NoError(t, err)
	assert.Equal(t, data, img.Data)

	_, err = DecodeDataURL("data:image/png;base64")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestImage_DataURL(t *testing.T) {
	img := &Image{Data: []byte{1, 2, 3}, MIMEType: "image/jpeg"}
	assert.Equal(t, "data:image/jpeg;base64,AQID", img.DataURL())
}

func TestImageLoader_Load(t *testing.T) {
	data := testPNG(t)
	path := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
	defer ts.Close()

	loader := NewImageLoader(NewDownloader())
	ctx := context.Background()

	t.Run("file", func(t *testing.T) {
		img, err := loader.Load(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, data, img.Data)
	})

	t.Run("data url", func(t *testing.T) {
		img, err := loader.Load(ctx, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(data))
		require.NoError(t, err)
		assert.Equal(t, data, img.Data)
	})

	t.Run("http url", func(t *testing.T) {
		img, err := loader.Load(ctx, ts.URL+"/photo.png")
		require.NoError(t, err)
		assert.Equal(t, data, img.Data)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loader.Load(ctx, filepath.Join(t.TempDir(), "nope.jpg"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidInput))
		assert.Contains(t, err.Error(), "Invalid image path")
	})

	t.Run("urls disabled", func(t *testing.T) {
		_, err := NewImageLoader(nil).Load(ctx, ts.URL+"/photo.png")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})
}

func wrap(s string, width int) string {
	var buf bytes.Buffer
	for len(s) > width {
		buf.WriteString(s[:width])
		buf.WriteByte('\n')
		s = s[width:]
	}
	buf.WriteString(s)
	return buf.String()
}
