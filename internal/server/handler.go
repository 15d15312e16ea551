package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loopapp/loop-vision/internal/metrics"
	"github.com/loopapp/loop-vision/internal/storage"
	"github.com/loopapp/loop-vision/internal/vision"
	"github.com/rs/zerolog/log"
)

// ServiceName is reported by the health check.
const ServiceName = "loop-vision"

// DefaultMaxUploadBytes caps request bodies when Options leaves it unset.
const DefaultMaxUploadBytes = vision.DefaultMaxImageSize

// Analyzer is the part of vision.Analyzer the API uses.
type Analyzer interface {
	AnalyzeImage(ctx context.Context, source string) (*vision.AIAnalysis, error)
	AnalyzeBytes(ctx context.Context, data []byte) (*vision.AIAnalysis, error)
	AnalyzeDecoded(ctx context.Context, img *vision.Image) (*vision.AIAnalysis, error)
}

// Options configures a Handler. Store and Metrics are optional.
type Options struct {
	Store          storage.ItemStore
	Metrics        *metrics.Metrics
	MaxUploadBytes int64
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	analyzer       Analyzer
	store          storage.ItemStore
	metrics        *metrics.Metrics
	maxUploadBytes int64
}

// NewHandler creates a new HTTP handler.
func NewHandler(analyzer Analyzer, opts Options) *Handler {
	h := &Handler{
		analyzer:       analyzer,
		store:          opts.Store,
		metrics:        opts.Metrics,
		maxUploadBytes: opts.MaxUploadBytes,
	}
	if h.maxUploadBytes <= 0 {
		h.maxUploadBytes = DefaultMaxUploadBytes
	}
	return h
}

// HealthCheck returns the health status of the API.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": ServiceName,
	})
}

type analyzeRequest struct {
	Image string `json:"image"`
}

// Analyze accepts {"image": "<data URL | base64 | http(s) URL>"} or a
// multipart upload in the "image" field.
func (h *Handler) Analyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	ctx := c.Request.Context()
	start := time.Now()

	var (
		result    *vision.AIAnalysis
		imageHash string
		err       error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		result, imageHash, err = h.analyzeUpload(c)
	} else {
		result, imageHash, err = h.analyzeJSON(c)
	}

	if h.metrics != nil {
		h.metrics.ObserveAnalysis(time.Since(start), result, err)
	}
	if err != nil {
		status := statusFor(err)
		kind := vision.KindOf(err)
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("kind", kind.String()).Msg("analysis failed")
		}
		c.JSON(status, gin.H{"error": err.Error(), "kind": kind.String()})
		return
	}

	resp := gin.H{"analysis": result}
	if h.store != nil {
		item := storage.NewItem(result, imageHash)
		if err := h.store.Record(ctx, item); err != nil {
			log.Error().Err(err).Msg("failed to record item")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record item"})
			return
		}
		if h.metrics != nil {
			h.metrics.ItemsRecorded.Inc()
		}
		resp["item_id"] = item.ID
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) analyzeUpload(c *gin.Context) (*vision.AIAnalysis, string, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		return nil, "", requestError(err, "missing image upload")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", requestError(err, "failed to open upload")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", requestError(err, "failed to read upload")
	}
	result, err := h.analyzer.AnalyzeBytes(c.Request.Context(), data)
	return result, storage.ImageHash(data), err
}

func (h *Handler) analyzeJSON(c *gin.Context) (*vision.AIAnalysis, string, error) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, "", requestError(err, "invalid request body")
	}
	source := strings.TrimSpace(req.Image)
	ctx := c.Request.Context()

	switch {
	case source == "":
		return nil, "", requestError(nil, "image is required")
	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		result, err := h.analyzer.AnalyzeImage(ctx, source)
		return result, "", err
	}

	// Never treat the payload as a local path
	var img *vision.Image
	var err error
	if strings.HasPrefix(source, "data:") {
		img, err = vision.DecodeDataURL(source)
	} else {
		img, err = vision.DecodeBase64(source)
	}
	if err != nil {
		return nil, "", err
	}
	result, err := h.analyzer.AnalyzeDecoded(ctx, img)
	return result, storage.ImageHash(img.Data), err
}

// ListItems returns the most recent ledger items.
func (h *Handler) ListItems(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "item ledger is not configured"})
		return
	}

	limit := storage.DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	items, err := h.store.List(c.Request.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list items")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list items"})
		return
	}
	if items == nil {
		items = []storage.Item{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetItem returns one ledger item.
func (h *Handler) GetItem(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "item ledger is not configured"})
		return
	}

	item, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		log.Error().Err(err).Msg("failed to get item")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get item"})
		return
	}
	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}
	c.JSON(http.StatusOK, item)
}

// requestError marks a problem with the HTTP request itself as invalid input.
func requestError(cause error, msg string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(cause, &tooLarge) {
		msg = "request body too large"
	}
	return &vision.Error{Kind: vision.KindInvalidInput, Message: msg, Cause: cause}
}

func statusFor(err error) int {
	switch vision.KindOf(err) {
	case vision.KindInvalidInput:
		return http.StatusBadRequest
	case vision.KindMalformedResponse, vision.KindMissingField, vision.KindInvalidEnumValue:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
