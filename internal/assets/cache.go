/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package assets

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	applog "comicpanel/internal/log"

	_ "modernc.org/sqlite"
)

// DefaultCacheMaxBytes caps the on-disk blob cache.
const DefaultCacheMaxBytes = 256 << 20

// Cache is an on-disk blob cache for fetched image bytes, keyed by reference and
// pruned least-recently-used first.
type Cache struct {
	db       *sql.DB
	maxBytes int64
	mu       sync.Mutex // serializes writers
	clock    int64      // last access stamp handed out, strictly increasing
}

// OpenCache opens or creates the cache database at path.
func OpenCache(ctx context.Context, path string, maxBytes int64) (*Cache, error) {
	l := applog.WithOperation(applog.WithComponent("assets"), "cache_open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("cache path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	uriPath := filepath.ToSlash(path)
	if !strings.HasPrefix(uriPath, "/") {
		uriPath = "/" + uriPath
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", uriPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS blobs (
		key          TEXT PRIMARY KEY,
		ref          TEXT NOT NULL,
		data         BLOB NOT NULL,
		size         INTEGER NOT NULL,
		updated_at   TEXT NOT NULL,
		last_access  INTEGER NOT NULL
	);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure blobs table: %w", err)
	}
	_, _ = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_blobs_access ON blobs(last_access)`)
	if maxBytes <= 0 {
		maxBytes = DefaultCacheMaxBytes
	}
	l.Debug("cache ready")
	return &Cache{db: db, maxBytes: maxBytes}, nil
}

func cacheKey(ref string) string {
	sum := sha256.Sum256([]byte(ref))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) tickLocked() int64 {
	c.clock = max(c.clock+1, time.Now().UnixNano())
	return c.clock
}

// Get returns the cached bytes for ref and marks them as recently used.
func (c *Cache) Get(ctx context.Context, ref string) ([]byte, bool, error) {
	key := cacheKey(ref)
	var blob []byte
	err := c.db.QueryRowContext(ctx, `SELECT data FROM blobs WHERE key=?`, key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query blob: %w", err)
	}
	c.mu.Lock()
	_, _ = c.db.ExecContext(ctx, `UPDATE blobs SET last_access=? WHERE key=?`, c.tickLocked(), key)
	c.mu.Unlock()
	return blob, true, nil
}

// Put stores data for ref and evicts old entries beyond the size cap.
func (c *Cache) Put(ctx context.Context, ref string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.db.ExecContext(ctx, `INSERT INTO blobs(key,ref,data,size,updated_at,last_access)
		VALUES(?,?,?,?,?,?)
		ON CONFLICT(key) DO UPDATE SET data=excluded.data, size=excluded.size, updated_at=excluded.updated_at, last_access=excluded.last_access`,
		cacheKey(ref), ref, data, len(data), time.Now().UTC().Format(time.RFC3339), c.tickLocked())
	if err != nil {
		return fmt.Errorf("upsert blob: %w", err)
	}
	return c.evictLocked(ctx)
}

// TotalBytes returns the summed size of all cached blobs.
func (c *Cache) TotalBytes(ctx context.Context) (int64, error) {
	var total int64
	if err := c.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM blobs`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (c *Cache) evictLocked(ctx context.Context) error {
	total, err := c.TotalBytes(ctx)
	if err != nil {
		return fmt.Errorf("sum blob size: %w", err)
	}
	if total <= c.maxBytes {
		return nil
	}
	rows, err := c.db.QueryContext(ctx, `SELECT key, size FROM blobs ORDER BY last_access ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	var victims []any
	cur := total
	for rows.Next() && cur > c.maxBytes {
		var key string
		var sz int64
		if err := rows.Scan(&key, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, key)
		cur -= sz
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// the cursor must be closed before writing
	if err := rows.Close(); err != nil {
		return err
	}
	if len(victims) == 0 {
		return nil
	}
	q := `DELETE FROM blobs WHERE key IN (?` + strings.Repeat(",?", len(victims)-1) + `)`
	if _, err := c.db.ExecContext(ctx, q, victims...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	return nil
}

// Close releases the database.
func (c *Cache) Close() error { return c.db.Close() }
