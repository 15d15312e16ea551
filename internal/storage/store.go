package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/loopapp/loop-vision/internal/vision"
)

// StatusIdentified is the first status of an item: the photo has been analyzed.
const StatusIdentified = "identified"

// DefaultListLimit is used when List is called with a non-positive limit.
const DefaultListLimit = 50

// Item is one analyzed product in the ledger.
type Item struct {
	ID             string                 `json:"id"`
	Title          string                 `json:"title"`
	Category       vision.ProductCategory `json:"category"`
	Brand          string                 `json:"brand,omitempty"`
	Model          string                 `json:"model,omitempty"`
	Condition      vision.ItemCondition   `json:"condition"`
	Status         string                 `json:"status"`
	AIConfidence   float64                `json:"ai_confidence"`
	EstimatedValue float64                `json:"estimated_value"`
	Currency       string                 `json:"currency"`
	ImageHash      string                 `json:"image_hash,omitempty"`
	Analysis       vision.AIAnalysis      `json:"ai_analysis"`
	CreatedAt      time.Time              `json:"created_at"`
}

// ItemStore persists analysis results.
type ItemStore interface {
	Record(ctx context.Context, item *Item) error
	Get(ctx context.Context, id string) (*Item, error)
	List(ctx context.Context, limit int) ([]Item, error)
	Close() error
}

// NewItem builds a ledger item from an analysis. imageHash may be empty.
func NewItem(a *vision.AIAnalysis, imageHash string) *Item {
	item := &Item{
		ID:             uuid.New().String(),
		Title:          a.Title(),
		Category:       a.Category,
		Condition:      a.Condition,
		Status:         StatusIdentified,
		AIConfidence:   a.Confidence,
		EstimatedValue: a.EstimatedValue.Mid,
		Currency:       a.EstimatedValue.Currency,
		ImageHash:      imageHash,
		Analysis:       *a,
		CreatedAt:      time.Now().UTC(),
	}
	item.Analysis.RawResponse = nil
	if a.Brand != nil {
		item.Brand = *a.Brand
	}
	if a.Model != nil {
		item.Model = *a.Model
	}
	return item
}

// ImageHash returns the hex SHA-256 of the image bytes.
func ImageHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Open picks the backend from the DSN: postgres:// and postgresql:// URLs
// use Postgres, anything else is a SQLite file path.
func Open(ctx context.Context, dsn string) (ItemStore, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return NewPostgresStore(ctx, dsn)
	}
	return NewSQLiteStore(dsn)
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

func encodeAnalysis(a *vision.AIAnalysis) ([]byte, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis: %w", err)
	}
	return data, nil
}

func decodeAnalysis(data []byte, item *Item) error {
	if err := json.Unmarshal(data, &item.Analysis); err != nil {
		return fmt.Errorf("failed to decode analysis for item %s: %w", item.ID, err)
	}
	return nil
}
