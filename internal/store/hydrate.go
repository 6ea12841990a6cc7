package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"feedrank/internal/model"
)

// Hydrate resolves post ids into full posts with author summaries, the
// viewer's interaction flags, and media ids, in batched queries keyed by
// the id set.
func (d *DB) Hydrate(ctx context.Context, postIDs []string, viewerID string) ([]model.FullPost, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	rows, err := d.sql.QueryContext(ctx, `
		SELECT p.id, p.author_id, p.content, p.tweet_type, COALESCE(p.parent_id, ''),
		       p.reply_control, p.created_at,
		       u.username, u.display_name, u.verified
		FROM posts p JOIN users u ON u.id = p.author_id
		WHERE p.id IN (`+placeholders(len(postIDs))+`)`, toArgs(postIDs)...)
	if err != nil {
		return nil, fmt.Errorf("hydrate posts: %w", err)
	}
	defer rows.Close()
	byID := make(map[string]*model.FullPost, len(postIDs))
	for rows.Next() {
		var p model.FullPost
		var typ string
		var created int64
		var verified int
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.Content, &typ, &p.ParentID,
			&p.ReplyControl, &created, &p.Author.Username, &p.Author.DisplayName, &verified); err != nil {
			return nil, err
		}
		p.TweetType = model.TweetType(typ)
		p.CreatedAt = time.Unix(created, 0).UTC()
		p.Author.ID = p.AuthorID
		p.Author.Verified = verified != 0
		byID[p.ID] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(byID) == 0 {
		return nil, nil
	}

	found := make([]string, 0, len(byID))
	for id := range byID {
		found = append(found, id)
	}

	counts, err := d.sql.QueryContext(ctx, `
		SELECT post_id, kind, COUNT(*)
		FROM engagements WHERE post_id IN (`+placeholders(len(found))+`)
		GROUP BY post_id, kind`, toArgs(found)...)
	if err != nil {
		return nil, fmt.Errorf("hydrate counters: %w", err)
	}
	defer counts.Close()
	for counts.Next() {
		var id, kind string
		var n int
		if err := counts.Scan(&id, &kind, &n); err != nil {
			return nil, err
		}
		p := byID[id]
		switch kind {
		case "like":
			p.Likes = n
		case "retweet":
			p.Retweets = n
		case "reply":
			p.Replies = n
		case "quote":
			p.Quotes = n
		}
	}
	if err := counts.Err(); err != nil {
		return nil, err
	}

	flags, err := d.sql.QueryContext(ctx, `
		SELECT DISTINCT post_id, kind
		FROM engagements
		WHERE user_id = ? AND kind IN ('like','retweet','bookmark')
		AND post_id IN (`+placeholders(len(found))+`)`,
		append([]any{viewerID}, toArgs(found)...)...)
	if err != nil {
		return nil, fmt.Errorf("hydrate viewer flags: %w", err)
	}
	defer flags.Close()
	for flags.Next() {
		var id, kind string
		if err := flags.Scan(&id, &kind); err != nil {
			return nil, err
		}
		p := byID[id]
		switch kind {
		case "like":
			p.Liked = true
		case "retweet":
			p.Retweeted = true
		case "bookmark":
			p.Bookmarked = true
		}
	}
	if err := flags.Err(); err != nil {
		return nil, err
	}

	media, err := d.sql.QueryContext(ctx,
		`SELECT post_id, media_id FROM media WHERE post_id IN (`+placeholders(len(found))+`)`, toArgs(found)...)
	if err != nil {
		return nil, fmt.Errorf("hydrate media: %w", err)
	}
	defer media.Close()
	for media.Next() {
		var id, mid string
		if err := media.Scan(&id, &mid); err != nil {
			return nil, err
		}
		byID[id].MediaIDs = append(byID[id].MediaIDs, mid)
	}
	if err := media.Err(); err != nil {
		return nil, err
	}

	// Preserve the caller's id order; ids missing from the store are
	// silently dropped.
	out := make([]model.FullPost, 0, len(byID))
	for _, id := range postIDs {
		if p, ok := byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

// FetchParent hydrates a single parent post, returning nil when the post
// no longer exists.
func (d *DB) FetchParent(ctx context.Context, postID, viewerID string) (*model.FullPost, error) {
	posts, err := d.Hydrate(ctx, []string{postID}, viewerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if len(posts) == 0 {
		return nil, nil
	}
	return &posts[0], nil
}
