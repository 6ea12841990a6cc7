package store

import (
	"context"
	"time"

	"feedrank/internal/model"
	"feedrank/internal/util"
)

// Write methods used by the seeder and by tests. The feed engine itself is
// read-only against the store.

func (d *DB) PutUser(ctx context.Context, id, username, displayName string, verified bool, reputation *float64) error {
	v := 0
	if verified {
		v = 1
	}
	_, err := d.sql.ExecContext(ctx, `
		INSERT INTO users(id, username, display_name, verified, reputation) VALUES(?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET username=excluded.username, display_name=excluded.display_name,
		  verified=excluded.verified, reputation=excluded.reputation`,
		id, username, displayName, v, reputation)
	return err
}

func (d *DB) PutPost(ctx context.Context, id, authorID, content string, typ model.TweetType, parentID string, createdAt time.Time) error {
	var parent any
	if parentID != "" {
		parent = parentID
	}
	_, err := d.sql.ExecContext(ctx, `
		INSERT INTO posts(id, author_id, content, tweet_type, parent_id, created_at)
		VALUES(?,?,?,?,?,?)
		ON CONFLICT(id) DO NOTHING`,
		id, authorID, util.NormalizeWhitespace(content), string(typ), parent, createdAt.Unix())
	return err
}

func (d *DB) PutFollow(ctx context.Context, followerID, followeeID string, createdAt time.Time) error {
	_, err := d.sql.ExecContext(ctx, `
		INSERT INTO follows(follower_id, followee_id, status, created_at) VALUES(?,?,'accepted',?)
		ON CONFLICT(follower_id, followee_id) DO NOTHING`,
		followerID, followeeID, createdAt.Unix())
	return err
}

func (d *DB) PutEngagement(ctx context.Context, userID, postID, kind string, createdAt time.Time) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO engagements(user_id, post_id, kind, created_at) VALUES(?,?,?,?)`,
		userID, postID, kind, createdAt.Unix())
	return err
}

func (d *DB) PutMute(ctx context.Context, userID, mutedID string) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO mutes(user_id, muted_id) VALUES(?,?) ON CONFLICT DO NOTHING`, userID, mutedID)
	return err
}

func (d *DB) PutBlock(ctx context.Context, userID, blockedID string) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO blocks(user_id, blocked_id) VALUES(?,?) ON CONFLICT DO NOTHING`, userID, blockedID)
	return err
}

func (d *DB) PutDismissal(ctx context.Context, userID, postID string) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO dismissals(user_id, post_id) VALUES(?,?) ON CONFLICT DO NOTHING`, userID, postID)
	return err
}

func (d *DB) PutSpamReport(ctx context.Context, postID, reporterID string, createdAt time.Time) error {
	_, err := d.sql.ExecContext(ctx, `
		INSERT INTO spam_reports(post_id, reporter_id, created_at) VALUES(?,?,?)
		ON CONFLICT DO NOTHING`, postID, reporterID, createdAt.Unix())
	return err
}

func (d *DB) PutHashtag(ctx context.Context, postID, tag string) error {
	tag = util.NormalizeTag(tag)
	if tag == "" {
		return nil
	}
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO hashtags(post_id, tag) VALUES(?,?) ON CONFLICT DO NOTHING`, postID, tag)
	return err
}

func (d *DB) PutCategory(ctx context.Context, id, name string) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO categories(id, name) VALUES(?,?) ON CONFLICT(id) DO UPDATE SET name=excluded.name`, id, name)
	return err
}

func (d *DB) AssignCategory(ctx context.Context, postID, categoryID string) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO post_categories(post_id, category_id) VALUES(?,?) ON CONFLICT DO NOTHING`, postID, categoryID)
	return err
}

func (d *DB) PutPreferredCategory(ctx context.Context, userID, categoryID string) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO user_categories(user_id, category_id) VALUES(?,?) ON CONFLICT DO NOTHING`, userID, categoryID)
	return err
}

func (d *DB) PutMedia(ctx context.Context, postID, mediaID string) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO media(post_id, media_id) VALUES(?,?) ON CONFLICT DO NOTHING`, postID, mediaID)
	return err
}
