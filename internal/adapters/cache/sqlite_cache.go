package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/activity-timeline/internal/core"
	"go.uber.org/zap"
)

// SQLiteCache is a SQLite implementation of the CacheRepository interface
type SQLiteCache struct {
	db          *sql.DB
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewSQLiteCache creates a new SQLite cache
func NewSQLiteCache(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS activity_cache (
			cache_key TEXT PRIMARY KEY,
			label TEXT,
			confidence REAL,
			sentiment TEXT,
			sentiment_score REAL,
			last_seen TIMESTAMP,
			expires_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_activity_cache_expires_at ON activity_cache(expires_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	cache := &SQLiteCache{
		db:          db,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	if cleanupFreq > 0 {
		go cache.startCleanupTask()
	}

	return cache, nil
}

// Get retrieves a cached entry by key
func (c *SQLiteCache) Get(key string) (*core.CacheEntry, bool) {
	var entry core.CacheEntry
	var lastSeen, expiresAt string

	err := c.db.QueryRow(`
		SELECT label, confidence, sentiment, sentiment_score, last_seen, expires_at
		FROM activity_cache
		WHERE cache_key = ? AND expires_at > ?
	`, key, time.Now().Format(time.RFC3339)).Scan(
		&entry.Label, &entry.Confidence, &entry.Sentiment, &entry.SentimentScore,
		&lastSeen, &expiresAt)
	if err != nil {
		if err != sql.ErrNoRows {
			c.logger.Error("Failed to query cache", zap.Error(err), zap.String("key", key))
		}
		return nil, false
	}

	entry.Key = key
	if ts, err := time.Parse(time.RFC3339, lastSeen); err == nil {
		entry.LastSeen = ts
	}
	if ts, err := time.Parse(time.RFC3339, expiresAt); err == nil {
		entry.ExpiresAt = ts
	}

	return &entry, true
}

// Set stores a cache entry
func (c *SQLiteCache) Set(key string, entry *core.CacheEntry, ttl time.Duration) {
	expiresAt := time.Now().Add(ttl)

	_, err := c.db.Exec(`
		INSERT OR REPLACE INTO activity_cache
			(cache_key, label, confidence, sentiment, sentiment_score, last_seen, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, key, entry.Label, entry.Confidence, entry.Sentiment, entry.SentimentScore,
		time.Now().Format(time.RFC3339), expiresAt.Format(time.RFC3339))
	if err != nil {
		c.logger.Error("Failed to insert cache entry", zap.Error(err), zap.String("key", key))
	}
}

// Cleanup removes expired entries
func (c *SQLiteCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `
		DELETE FROM activity_cache WHERE expires_at <= ?
	`, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to clean up cache: %w", err)
	}

	if removed, err := result.RowsAffected(); err == nil {
		c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", removed))
	}
	return nil
}

// startCleanupTask starts a background task to clean up expired entries
func (c *SQLiteCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the database
func (c *SQLiteCache) Stop() {
	close(c.stopCh)
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}
