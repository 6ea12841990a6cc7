// Package store implements the signal store on SQLite: posts, social
// edges, engagement events, spam reports, tags and categories, plus the
// candidate queries the feed engine runs against them.
package store

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"strings"

	"golang.org/x/time/rate"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database holding all ranking signals.
type DB struct {
	sql     *sql.DB
	limiter *rate.Limiter
}

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA foreign_keys=ON;`); err != nil {
		return nil, err
	}
	db := &DB{sql: d, limiter: newDefaultLimiter()}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

// newDefaultLimiter creates a query rate limiter using env overrides if present.
func newDefaultLimiter() *rate.Limiter {
	rps := 200.0
	burst := 400
	if v := os.Getenv("FEEDRANK_DB_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			rps = f
		}
	}
	if v := os.Getenv("FEEDRANK_DB_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			burst = n
		}
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func (d *DB) wait(ctx context.Context) error { return d.limiter.Wait(ctx) }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS users (
	  id TEXT PRIMARY KEY,
	  username TEXT NOT NULL,
	  display_name TEXT NOT NULL DEFAULT '',
	  verified INTEGER NOT NULL DEFAULT 0,
	  reputation REAL
	);
	CREATE TABLE IF NOT EXISTS posts (
	  id TEXT PRIMARY KEY,
	  author_id TEXT NOT NULL,
	  content TEXT NOT NULL DEFAULT '',
	  tweet_type TEXT NOT NULL DEFAULT 'TWEET',
	  parent_id TEXT,
	  reply_control TEXT NOT NULL DEFAULT 'everyone',
	  created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_at);
	CREATE TABLE IF NOT EXISTS follows (
	  follower_id TEXT NOT NULL,
	  followee_id TEXT NOT NULL,
	  status TEXT NOT NULL DEFAULT 'accepted',
	  created_at INTEGER NOT NULL DEFAULT 0,
	  PRIMARY KEY (follower_id, followee_id)
	);
	CREATE INDEX IF NOT EXISTS idx_follows_follower ON follows(follower_id);
	CREATE TABLE IF NOT EXISTS mutes (
	  user_id TEXT NOT NULL,
	  muted_id TEXT NOT NULL,
	  PRIMARY KEY (user_id, muted_id)
	);
	CREATE TABLE IF NOT EXISTS blocks (
	  user_id TEXT NOT NULL,
	  blocked_id TEXT NOT NULL,
	  PRIMARY KEY (user_id, blocked_id)
	);
	CREATE TABLE IF NOT EXISTS dismissals (
	  user_id TEXT NOT NULL,
	  post_id TEXT NOT NULL,
	  PRIMARY KEY (user_id, post_id)
	);
	CREATE TABLE IF NOT EXISTS spam_reports (
	  post_id TEXT NOT NULL,
	  reporter_id TEXT NOT NULL,
	  created_at INTEGER NOT NULL DEFAULT 0,
	  PRIMARY KEY (post_id, reporter_id)
	);
	CREATE TABLE IF NOT EXISTS engagements (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  user_id TEXT NOT NULL,
	  post_id TEXT NOT NULL,
	  kind TEXT NOT NULL,
	  created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_eng_post ON engagements(post_id, kind);
	CREATE INDEX IF NOT EXISTS idx_eng_user ON engagements(user_id, kind, created_at);
	CREATE TABLE IF NOT EXISTS hashtags (
	  post_id TEXT NOT NULL,
	  tag TEXT NOT NULL,
	  PRIMARY KEY (post_id, tag)
	);
	CREATE INDEX IF NOT EXISTS idx_hashtags_tag ON hashtags(tag);
	CREATE TABLE IF NOT EXISTS categories (
	  id TEXT PRIMARY KEY,
	  name TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS post_categories (
	  post_id TEXT NOT NULL,
	  category_id TEXT NOT NULL,
	  PRIMARY KEY (post_id, category_id)
	);
	CREATE INDEX IF NOT EXISTS idx_post_categories_cat ON post_categories(category_id);
	CREATE TABLE IF NOT EXISTS user_categories (
	  user_id TEXT NOT NULL,
	  category_id TEXT NOT NULL,
	  PRIMARY KEY (user_id, category_id)
	);
	CREATE TABLE IF NOT EXISTS media (
	  post_id TEXT NOT NULL,
	  media_id TEXT NOT NULL,
	  PRIMARY KEY (post_id, media_id)
	);
	`)
	return err
}

// placeholders returns "?,?,...,?" with n slots. Callers must short-circuit
// on empty collections before building a query; an empty IN list is a
// correctness trap, never sent to SQLite.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

func toArgs(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
