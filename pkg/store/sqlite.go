package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"knowthepast/pkg/db"
	"knowthepast/pkg/model"
)

// Store composes all sub-interfaces.
type Store interface {
	PlaceStore
	CacheStore

	// Close closes the store connection.
	Close() error
}

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(d *db.DB) *SQLiteStore {
	return &SQLiteStore{db: d}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Places ---

// SavePlace inserts or replaces p. The full place is kept as JSON next to the indexed columns.
func (s *SQLiteStore) SavePlace(ctx context.Context, p *model.Place) error {
	if p.ID == "" {
		return fmt.Errorf("place %q has no id", p.Name)
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode place: %w", err)
	}
	discovered := p.DiscoveredAt
	if discovered.IsZero() {
		discovered = time.Now()
	}

	query := `INSERT OR REPLACE INTO places
		(id, name, category, lat, lon, location_type, place_id, payload, discovered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Category, p.Latitude, p.Longitude,
		string(p.LocationType), p.PlaceID, string(payload), discovered.UnixNano())
	return err
}

// GetPlace returns the place with id, or nil if it is unknown.
func (s *SQLiteStore) GetPlace(ctx context.Context, id string) (*model.Place, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM places WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p model.Place
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, fmt.Errorf("failed to decode place %s: %w", id, err)
	}
	return &p, nil
}

// RecentPlaces returns up to limit places, newest first. Rows that fail to decode are skipped.
func (s *SQLiteStore) RecentPlaces(ctx context.Context, limit int) ([]model.Place, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, payload FROM places ORDER BY discovered_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Place
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		var p model.Place
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			slog.Warn("Skipping undecodable place", "id", id, "error", err)
			continue
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- Cache ---

func (s *SQLiteStore) GetCache(ctx context.Context, key string) ([]byte, bool) {
	var val []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM cache WHERE key = ?", key).Scan(&val)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Debug("Cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	// Transparent Decompression
	if len(val) > 2 && val[0] == 0x1f && val[1] == 0x8b {
		if decompressed, err := decompress(val); err == nil {
			return decompressed, true
		}
	}
	return val, true
}

// --- Compression Pooling ---

var (
	gzipWriterPool = sync.Pool{
		New: func() any {
			return gzip.NewWriter(io.Discard)
		},
	}
	bufferPool = sync.Pool{
		New: func() any {
			return new(bytes.Buffer)
		},
	}
)

func compress(data []byte) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	w := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(w)
	w.Reset(buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	// Copy: buf goes back to the pool
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (s *SQLiteStore) HasCache(ctx context.Context, key string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM cache WHERE key = ?", key).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) SetCache(ctx context.Context, key string, val []byte) error {
	if compressed, err := compress(val); err == nil {
		val = compressed
	}
	query := `INSERT OR REPLACE INTO cache (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, time.Now().Unix())
	return err
}
