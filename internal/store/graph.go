package store

import (
	"context"
	"fmt"

	"feedrank/internal/model"
)

// LoadFollowGraph returns the viewer's accepted follows and the two-hop
// neighborhood (accounts followed by followed accounts, minus the direct
// follows and the viewer).
func (d *DB) LoadFollowGraph(ctx context.Context, viewerID string) (model.FollowGraph, error) {
	g := model.FollowGraph{Followed: model.IDSet{}, TwoHop: model.IDSet{}}
	if err := d.wait(ctx); err != nil {
		return g, err
	}
	rows, err := d.sql.QueryContext(ctx,
		`SELECT followee_id FROM follows WHERE follower_id=? AND status='accepted'`, viewerID)
	if err != nil {
		return g, fmt.Errorf("load follows: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return g, err
		}
		g.Followed.Add(id)
	}
	if err := rows.Err(); err != nil {
		return g, err
	}

	two, err := d.sql.QueryContext(ctx, `
		SELECT DISTINCT f2.followee_id
		FROM follows f1
		JOIN follows f2 ON f2.follower_id = f1.followee_id AND f2.status='accepted'
		WHERE f1.follower_id=? AND f1.status='accepted'`, viewerID)
	if err != nil {
		return g, fmt.Errorf("load two-hop: %w", err)
	}
	defer two.Close()
	for two.Next() {
		var id string
		if err := two.Scan(&id); err != nil {
			return g, err
		}
		if id == viewerID || g.Followed.Has(id) {
			continue
		}
		g.TwoHop.Add(id)
	}
	return g, two.Err()
}

// LoadNegativeSignals returns mutes, blocks, dismissed posts, and grouped
// spam-report counts for the viewer's request.
func (d *DB) LoadNegativeSignals(ctx context.Context, viewerID string) (model.NegativeSignals, error) {
	ns := model.NegativeSignals{
		Muted:      model.IDSet{},
		Blocked:    model.IDSet{},
		Dismissed:  model.IDSet{},
		SpamCounts: map[string]int{},
	}
	if err := d.wait(ctx); err != nil {
		return ns, err
	}
	if err := d.fillSet(ctx, ns.Muted, `SELECT muted_id FROM mutes WHERE user_id=?`, viewerID); err != nil {
		return ns, fmt.Errorf("load mutes: %w", err)
	}
	if err := d.fillSet(ctx, ns.Blocked, `SELECT blocked_id FROM blocks WHERE user_id=?`, viewerID); err != nil {
		return ns, fmt.Errorf("load blocks: %w", err)
	}
	if err := d.fillSet(ctx, ns.Dismissed, `SELECT post_id FROM dismissals WHERE user_id=?`, viewerID); err != nil {
		return ns, fmt.Errorf("load dismissals: %w", err)
	}
	rows, err := d.sql.QueryContext(ctx, `SELECT post_id, COUNT(*) FROM spam_reports GROUP BY post_id`)
	if err != nil {
		return ns, fmt.Errorf("load spam counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return ns, err
		}
		ns.SpamCounts[id] = n
	}
	return ns, rows.Err()
}

// LoadInterests returns the viewer's top-N historically liked hashtags and
// declared preferred categories.
func (d *DB) LoadInterests(ctx context.Context, viewerID string, topN int) (model.Interests, error) {
	in := model.Interests{Hashtags: model.IDSet{}, CategoryIDs: model.IDSet{}}
	if err := d.wait(ctx); err != nil {
		return in, err
	}
	rows, err := d.sql.QueryContext(ctx, `
		SELECT h.tag
		FROM engagements e
		JOIN hashtags h ON h.post_id = e.post_id
		WHERE e.user_id=? AND e.kind='like'
		GROUP BY h.tag
		ORDER BY COUNT(*) DESC
		LIMIT ?`, viewerID, topN)
	if err != nil {
		return in, fmt.Errorf("load affinity tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return in, err
		}
		in.Hashtags.Add(tag)
	}
	if err := rows.Err(); err != nil {
		return in, err
	}
	if err := d.fillSet(ctx, in.CategoryIDs, `SELECT category_id FROM user_categories WHERE user_id=?`, viewerID); err != nil {
		return in, fmt.Errorf("load preferred categories: %w", err)
	}
	return in, nil
}

func (d *DB) fillSet(ctx context.Context, set model.IDSet, query string, args ...any) error {
	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		set.Add(id)
	}
	return rows.Err()
}
