package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/loopapp/loop-vision/internal/vision"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements ItemStore using a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (and creates if needed) the ledger at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// WAL and busy timeout so the daemon and the items tool can share the file
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	// Only meaningful once the file exists
	_ = os.Chmod(dbPath, 0o600)

	return store, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		category TEXT NOT NULL,
		brand TEXT,
		model TEXT,
		item_condition TEXT NOT NULL,
		status TEXT NOT NULL,
		ai_confidence REAL NOT NULL,
		estimated_value REAL NOT NULL,
		currency TEXT NOT NULL,
		image_hash TEXT,
		ai_analysis TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	`)
	if err != nil {
		return fmt.Errorf("failed to create items table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_items_created_at ON items(created_at)`)
	if err != nil {
		return fmt.Errorf("failed to create items index: %w", err)
	}
	return nil
}

// Record stores a new item.
func (s *SQLiteStore) Record(ctx context.Context, item *Item) error {
	analysis, err := encodeAnalysis(&item.Analysis)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO items (id, title, category, brand, model, item_condition, status,
			ai_confidence, estimated_value, currency, image_hash, ai_analysis, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.Title, string(item.Category), nullString(item.Brand), nullString(item.Model),
		string(item.Condition), item.Status, item.AIConfidence, item.EstimatedValue, item.Currency,
		nullString(item.ImageHash), string(analysis), item.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record item: %w", err)
	}
	return nil
}

const selectItemColumns = `SELECT id, title, category, brand, model, item_condition, status,
	ai_confidence, estimated_value, currency, image_hash, ai_analysis, created_at FROM items`

// Get returns the item with the given id, or nil, nil if there is none.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, err := scanSQLiteItem(s.db.QueryRowContext(ctx, selectItemColumns+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query item: %w", err)
	}
	return item, nil
}

// List returns the most recent items first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectItemColumns+" ORDER BY created_at DESC, id LIMIT ?", limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanSQLiteItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteItem(row rowScanner) (*Item, error) {
	var item Item
	var category, condition, analysis string
	var brand, model, imageHash sql.NullString
	err := row.Scan(&item.ID, &item.Title, &category, &brand, &model, &condition, &item.Status,
		&item.AIConfidence, &item.EstimatedValue, &item.Currency, &imageHash, &analysis, &item.CreatedAt)
	if err != nil {
		return nil, err
	}
	item.Category = vision.ProductCategory(category)
	item.Condition = vision.ItemCondition(condition)
	item.Brand = brand.String
	item.Model = model.String
	item.ImageHash = imageHash.String
	if err := decodeAnalysis([]byte(analysis), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
