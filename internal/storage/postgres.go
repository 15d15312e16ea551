package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/loopapp/loop-vision/internal/vision"
	"github.com/rs/zerolog/log"
)

const postgresConnectTimeout = 10 * time.Second

// PostgresStore implements ItemStore on a shared Postgres database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and creates the items table if needed.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "loop-vision"

	connectCtx, cancel := context.WithTimeout(ctx, postgresConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.init(connectCtx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info().Str("host", pc.ConnConfig.Host).Str("database", pc.ConnConfig.Database).Msg("connected to item ledger")
	return store, nil
}

func (s *PostgresStore) init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS items (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		category TEXT NOT NULL,
		brand TEXT,
		model TEXT,
		item_condition TEXT NOT NULL,
		status TEXT NOT NULL,
		ai_confidence DOUBLE PRECISION NOT NULL,
		estimated_value DOUBLE PRECISION NOT NULL,
		currency TEXT NOT NULL,
		image_hash TEXT,
		ai_analysis JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	`)
	if err != nil {
		return fmt.Errorf("failed to create items table: %w", err)
	}

	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_items_created_at ON items(created_at)`)
	if err != nil {
		return fmt.Errorf("failed to create items index: %w", err)
	}
	return nil
}

// Record stores a new item.
func (s *PostgresStore) Record(ctx context.Context, item *Item) error {
	analysis, err := encodeAnalysis(&item.Analysis)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO items (id, title, category, brand, model, item_condition, status,
			ai_confidence, estimated_value, currency, image_hash, ai_analysis, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, item.ID, item.Title, string(item.Category), nullText(item.Brand), nullText(item.Model),
		string(item.Condition), item.Status, item.AIConfidence, item.EstimatedValue, item.Currency,
		nullText(item.ImageHash), string(analysis), item.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record item: %w", err)
	}
	return nil
}

const selectPostgresItemColumns = `SELECT id::text, title, category, brand, model, item_condition, status,
	ai_confidence, estimated_value, currency, image_hash, ai_analysis::text, created_at FROM items`

// Get returns the item with the given id, or nil, nil if there is none.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Item, error) {
	item, err := scanPostgresItem(s.pool.QueryRow(ctx, selectPostgresItemColumns+" WHERE id::text = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query item: %w", err)
	}
	return item, nil
}

// List returns the most recent items first.
func (s *PostgresStore) List(ctx context.Context, limit int) ([]Item, error) {
	rows, err := s.pool.Query(ctx, selectPostgresItemColumns+" ORDER BY created_at DESC, id LIMIT $1", limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanPostgresItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPostgresItem(row pgx.Row) (*Item, error) {
	var item Item
	var category, condition, analysis string
	var brand, model, imageHash *string
	err := row.Scan(&item.ID, &item.Title, &category, &brand, &model, &condition, &item.Status,
		&item.AIConfidence, &item.EstimatedValue, &item.Currency, &imageHash, &analysis, &item.CreatedAt)
	if err != nil {
		return nil, err
	}
	item.Category = vision.ProductCategory(category)
	item.Condition = vision.ItemCondition(condition)
	item.Brand = deref(brand)
	item.Model = deref(model)
	item.ImageHash = deref(imageHash)
	if err := decodeAnalysis([]byte(analysis), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func nullText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
