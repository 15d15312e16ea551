package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Image is a decoded image ready to submit to a Gateway.
type Image struct {
	Data     []byte
	MIMEType string
	Format   string
	Width    int
	Height   int
}

// DataURL encodes the image as a data:<mime>;base64 URL.
func (img *Image) DataURL() string {
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

var supportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".bmp":  true,
}

// IsSupportedImageFile reports whether path exists and has a supported
// image extension.
func IsSupportedImageFile(path string) bool {
	st, err := os.Stat(path)
	if err != nil || st.IsDir() {
		return false
	}
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// Formats the model services accept as-is. Anything else is re-encoded to PNG.
var passthroughMIMETypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
}

// ImageLoader turns the supported input forms into an Image.
type ImageLoader struct {
	downloader *Downloader
}

// NewImageLoader creates an ImageLoader. A nil downloader disables URL input.
func NewImageLoader(downloader *Downloader) *ImageLoader {
	return &ImageLoader{downloader: downloader}
}

// Load accepts a data:image URL, an http(s) URL or a path to an existing file.
func (l *ImageLoader) Load(ctx context.Context, source string) (*Image, error) {
	switch {
	case strings.HasPrefix(source, "data:image"):
		return DecodeDataURL(source)
	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		if l.downloader == nil {
			return nil, invalidInput(nil, "Image URLs are not enabled: %s", source)
		}
		data, err := l.downloader.Download(ctx, source)
		if err != nil {
			return nil, invalidInput(err, "Failed to download image %s", source)
		}
		return DecodeImage(data)
	}

	st, err := os.Stat(source)
	if err != nil || st.IsDir() {
		return nil, invalidInput(nil, "Invalid image path: %s", source)
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, invalidInput(err, "Failed to read image %s", source)
	}
	return DecodeImage(data)
}

// DecodeDataURL decodes a data:<mime>;base64,<payload> string.
func DecodeDataURL(dataURL string) (*Image, error) {
	_, payload, found := strings.Cut(dataURL, ",")
	if !found {
		return nil, invalidInput(nil, "Malformed data URL")
	}
	return DecodeBase64(payload)
}

// DecodeBase64 decodes a base64 image blob. Standard, raw and URL-safe
// alphabets are accepted.
func DecodeBase64(b64 string) (*Image, error) {
	b64 = strings.Join(strings.Fields(b64), "")
	if b64 == "" {
		return nil, invalidInput(nil, "Empty base64 image")
	}

	var data []byte
	var err error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		data, err = enc.DecodeString(b64)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, invalidInput(err, "Failed to decode base64 image")
	}
	return DecodeImage(data)
}

// DecodeImage identifies the image format from its header. Formats the model
// services do not accept are converted to PNG.
func DecodeImage(data []byte) (*Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, invalidInput(err, "Failed to decode image")
	}

	if mimeType, ok := passthroughMIMETypes[format]; ok {
		return &Image{
			Data:     data,
			MIMEType: mimeType,
			Format:   format,
			Width:    cfg.Width,
			Height:   cfg.Height,
		}, nil
	}

	converted, err := convertToPNG(data)
	if err != nil {
		return nil, invalidInput(err, "Failed to convert %s image", format)
	}
	return &Image{
		Data:     converted,
		MIMEType: "image/png",
		Format:   "png",
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}

func convertToPNG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
