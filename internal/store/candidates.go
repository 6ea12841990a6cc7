package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"feedrank/internal/model"
)

// candRow is the thin per-source projection before enrichment.
type candRow struct {
	id            string
	boostAuthorID string
	reason        string
}

// QueryFollowingCandidates unions the three Following-feed discovery
// sources, deduplicates by post id, and caps the pool.
//
// Dedup tie-break: the row with the higher static popularity proxy wins;
// on equal popularity the last-gathered source wins. Reason precedence is
// NOT a tie-break.
func (d *DB) QueryFollowingCandidates(ctx context.Context, q model.CandidateQuery) ([]model.Candidate, error) {
	authorIDs := q.Viewer.FollowedAuthorIDs.Slice()
	if len(authorIDs) == 0 {
		return nil, nil
	}
	windowStart := q.Now.Add(-q.Window).Unix()

	var gathered []candRow
	direct, err := d.gatherAuthored(ctx, authorIDs, q.Viewer.MutedAuthorIDs, windowStart, q.PerSourceLimit, model.ReasonFromFollowing, "")
	if err != nil {
		return nil, fmt.Errorf("authored candidates: %w", err)
	}
	gathered = append(gathered, direct...)

	retweeted, err := d.gatherBoostedBy(ctx, authorIDs, q.Viewer.MutedAuthorIDs, windowStart, q.PerSourceLimit, "retweet", model.ReasonRetweetedByFollowed, "")
	if err != nil {
		return nil, fmt.Errorf("retweeted candidates: %w", err)
	}
	gathered = append(gathered, retweeted...)

	quoted, err := d.gatherAuthored(ctx, authorIDs, q.Viewer.MutedAuthorIDs, windowStart, q.PerSourceLimit, model.ReasonQuotedByFollowed, string(model.TypeQuote))
	if err != nil {
		return nil, fmt.Errorf("quoted candidates: %w", err)
	}
	gathered = append(gathered, quoted...)

	return d.finishPool(ctx, gathered, q)
}

// QueryForYouCandidates unions up to seven discovery sources. The viewer's
// own posts never appear; sources whose id/tag list is empty are skipped
// outright instead of being translated into an empty IN clause.
//
// The global fallback is gathered first: under the last-write dedup
// tie-break a post it shares with any other source keeps the more
// specific source's reason.
func (d *DB) QueryForYouCandidates(ctx context.Context, q model.CandidateQuery) ([]model.Candidate, error) {
	v := q.Viewer
	windowStart := q.Now.Add(-q.Window).Unix()
	recentCutoff := q.Now.Add(-q.RecentWindow).Unix()

	var gathered []candRow
	fallback, err := d.gatherGlobalFallback(ctx, v, windowStart, q.PerSourceLimit)
	if err != nil {
		return nil, fmt.Errorf("fallback candidates: %w", err)
	}
	gathered = append(gathered, fallback...)

	if followed := v.FollowedAuthorIDs.Slice(); len(followed) > 0 {
		rows, err := d.gatherAuthored(ctx, followed, v.MutedAuthorIDs, windowStart, q.PerSourceLimit, model.ReasonFromFollowing, "")
		if err != nil {
			return nil, fmt.Errorf("followed candidates: %w", err)
		}
		gathered = append(gathered, rows...)

		liked, err := d.gatherBoostedBy(ctx, followed, v.MutedAuthorIDs, windowStart, q.PerSourceLimit, "like", model.ReasonLikedByFollowed, v.UserID)
		if err != nil {
			return nil, fmt.Errorf("liked-by-followed candidates: %w", err)
		}
		gathered = append(gathered, liked...)

		bookmarked, err := d.gatherBoostedBy(ctx, followed, v.MutedAuthorIDs, windowStart, q.PerSourceLimit, "bookmark", model.ReasonBookmarkedByFollowed, v.UserID)
		if err != nil {
			return nil, fmt.Errorf("bookmarked-by-followed candidates: %w", err)
		}
		gathered = append(gathered, bookmarked...)
	}
	if twoHop := v.TwoHopAuthorIDs.Slice(); len(twoHop) > 0 {
		rows, err := d.gatherAuthored(ctx, twoHop, v.MutedAuthorIDs, windowStart, q.PerSourceLimit, model.ReasonTwoHop, "")
		if err != nil {
			return nil, fmt.Errorf("two-hop candidates: %w", err)
		}
		gathered = append(gathered, rows...)
	}

	trending, err := d.gatherTrending(ctx, v, windowStart, recentCutoff, q.PerSourceLimit)
	if err != nil {
		return nil, fmt.Errorf("trending candidates: %w", err)
	}
	gathered = append(gathered, trending...)

	if tags := v.TopicalAffinity.Slice(); len(tags) > 0 {
		rows, err := d.gatherByHashtags(ctx, v, tags, windowStart, q.PerSourceLimit)
		if err != nil {
			return nil, fmt.Errorf("topic candidates: %w", err)
		}
		gathered = append(gathered, rows...)
	}
	if cats := v.PreferredCategoryIDs.Slice(); len(cats) > 0 {
		rows, err := d.gatherByCategories(ctx, v, cats, windowStart, q.PerSourceLimit)
		if err != nil {
			return nil, fmt.Errorf("category candidates: %w", err)
		}
		gathered = append(gathered, rows...)
	}

	// For-You never recommends the viewer's own posts; the authored sources
	// already exclude the viewer, but trending/topic/fallback do it in SQL
	// and this keeps the contract even if a source slips.
	return d.finishPool(ctx, gathered, q)
}

// gatherAuthored selects posts authored by authorIDs within the window.
// typeFilter narrows to one tweet type when non-empty.
func (d *DB) gatherAuthored(ctx context.Context, authorIDs []string, muted model.IDSet, windowStart int64, limit int, reason, typeFilter string) ([]candRow, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	query := `SELECT p.id, p.author_id FROM posts p
		WHERE p.author_id IN (` + placeholders(len(authorIDs)) + `)
		AND p.created_at >= ?`
	args := toArgs(authorIDs)
	args = append(args, windowStart)
	if typeFilter != "" {
		query += ` AND p.tweet_type = ?`
		args = append(args, typeFilter)
	}
	query += ` ORDER BY p.created_at DESC LIMIT ?`
	args = append(args, limit)
	return d.scanRows(ctx, query, args, muted, reason, false)
}

// gatherBoostedBy selects posts that members of userIDs engaged with
// (retweet/like/bookmark) inside the window. excludeAuthor drops the
// viewer's own posts for For-You sources.
func (d *DB) gatherBoostedBy(ctx context.Context, userIDs []string, muted model.IDSet, windowStart int64, limit int, kind, reason, excludeAuthor string) ([]candRow, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	query := `SELECT p.id, p.author_id, e.user_id FROM engagements e
		JOIN posts p ON p.id = e.post_id
		WHERE e.kind = ? AND e.user_id IN (` + placeholders(len(userIDs)) + `)
		AND e.created_at >= ?`
	args := []any{kind}
	args = append(args, toArgs(userIDs)...)
	args = append(args, windowStart)
	if excludeAuthor != "" {
		query += ` AND p.author_id <> ?`
		args = append(args, excludeAuthor)
	}
	query += ` ORDER BY e.created_at DESC LIMIT ?`
	args = append(args, limit)
	return d.scanRows(ctx, query, args, muted, reason, true)
}

// gatherTrending ranks windowed posts purely by a velocity+engagement
// composite (recent retweets count double).
func (d *DB) gatherTrending(ctx context.Context, v *model.ViewerContext, windowStart, recentCutoff int64, limit int) ([]candRow, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	query := `SELECT p.id, p.author_id FROM posts p
		JOIN engagements e ON e.post_id = p.id AND e.created_at >= ?
		WHERE p.created_at >= ? AND p.author_id <> ?
		GROUP BY p.id, p.author_id
		ORDER BY SUM(CASE e.kind WHEN 'retweet' THEN 2 ELSE 1 END) DESC
		LIMIT ?`
	args := []any{recentCutoff, windowStart, v.UserID, limit}
	return d.scanRows(ctx, query, args, v.MutedAuthorIDs, model.ReasonTrending, false)
}

func (d *DB) gatherByHashtags(ctx context.Context, v *model.ViewerContext, tags []string, windowStart int64, limit int) ([]candRow, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	query := `SELECT DISTINCT p.id, p.author_id FROM posts p
		JOIN hashtags h ON h.post_id = p.id
		WHERE h.tag IN (` + placeholders(len(tags)) + `)
		AND p.created_at >= ? AND p.author_id <> ?
		ORDER BY p.created_at DESC LIMIT ?`
	args := toArgs(tags)
	args = append(args, windowStart, v.UserID, limit)
	return d.scanRows(ctx, query, args, v.MutedAuthorIDs, model.ReasonTopicMatch, false)
}

func (d *DB) gatherByCategories(ctx context.Context, v *model.ViewerContext, catIDs []string, windowStart int64, limit int) ([]candRow, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	query := `SELECT DISTINCT p.id, p.author_id FROM posts p
		JOIN post_categories pc ON pc.post_id = p.id
		WHERE pc.category_id IN (` + placeholders(len(catIDs)) + `)
		AND p.created_at >= ? AND p.author_id <> ?
		ORDER BY p.created_at DESC LIMIT ?`
	args := toArgs(catIDs)
	args = append(args, windowStart, v.UserID, limit)
	return d.scanRows(ctx, query, args, v.MutedAuthorIDs, model.ReasonCategoryMatch, false)
}

// gatherGlobalFallback returns the newest windowed posts for cold-start
// viewers with no graph or interests.
func (d *DB) gatherGlobalFallback(ctx context.Context, v *model.ViewerContext, windowStart int64, limit int) ([]candRow, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	query := `SELECT p.id, p.author_id FROM posts p
		WHERE p.created_at >= ? AND p.author_id <> ?
		ORDER BY p.created_at DESC LIMIT ?`
	args := []any{windowStart, v.UserID, limit}
	return d.scanRows(ctx, query, args, v.MutedAuthorIDs, model.ReasonGlobalFallback, false)
}

func (d *DB) scanRows(ctx context.Context, query string, args []any, muted model.IDSet, reason string, hasBooster bool) ([]candRow, error) {
	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []candRow
	for rows.Next() {
		var id, authorID, booster string
		if hasBooster {
			if err := rows.Scan(&id, &authorID, &booster); err != nil {
				return nil, err
			}
		} else {
			if err := rows.Scan(&id, &authorID); err != nil {
				return nil, err
			}
		}
		if muted.Has(authorID) {
			continue
		}
		out = append(out, candRow{id: id, boostAuthorID: booster, reason: reason})
	}
	return out, rows.Err()
}

// finishPool enriches gathered rows into full candidates, deduplicates by
// post id with the popularity tie-break, and caps the pool.
func (d *DB) finishPool(ctx context.Context, gathered []candRow, q model.CandidateQuery) ([]model.Candidate, error) {
	if len(gathered) == 0 {
		return nil, nil
	}
	uniq := make([]string, 0, len(gathered))
	seen := model.IDSet{}
	for _, r := range gathered {
		if seen.Has(r.id) {
			continue
		}
		seen.Add(r.id)
		uniq = append(uniq, r.id)
	}
	enriched, err := d.enrich(ctx, uniq, q.Now.Add(-q.RecentWindow).Unix())
	if err != nil {
		return nil, fmt.Errorf("enrich candidates: %w", err)
	}

	pool := make(map[string]model.Candidate, len(uniq))
	order := make([]string, 0, len(uniq))
	for _, r := range gathered {
		base, ok := enriched[r.id]
		if !ok {
			continue
		}
		c := base
		c.Reason = r.reason
		c.BoostAuthorID = r.boostAuthorID
		prev, exists := pool[r.id]
		if !exists {
			order = append(order, r.id)
			pool[r.id] = c
			continue
		}
		// Higher popularity wins; equal popularity means the later source
		// wins (last write). Counters are per post so within one request
		// this reduces to last-reason-wins, which is the documented behavior.
		if c.Popularity() >= prev.Popularity() {
			pool[r.id] = c
		}
	}

	out := make([]model.Candidate, 0, len(order))
	for _, id := range order {
		out = append(out, pool[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Popularity() > out[j].Popularity() })
	if q.PoolLimit > 0 && len(out) > q.PoolLimit {
		out = out[:q.PoolLimit]
	}
	return out, nil
}

// enrich loads counters, author metadata, hashtags, and categories for the
// id set in batched queries and assembles typed candidates at the store
// boundary.
func (d *DB) enrich(ctx context.Context, ids []string, recentCutoff int64) (map[string]model.Candidate, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	out := make(map[string]model.Candidate, len(ids))

	rows, err := d.sql.QueryContext(ctx, `
		SELECT p.id, p.author_id, p.tweet_type, COALESCE(p.parent_id, ''), p.created_at,
		       u.verified, u.reputation
		FROM posts p JOIN users u ON u.id = p.author_id
		WHERE p.id IN (`+placeholders(len(ids))+`)`, toArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var c model.Candidate
		var typ string
		var created int64
		var verified int
		var rep sql.NullFloat64
		if err := rows.Scan(&c.ID, &c.AuthorID, &typ, &c.ParentID, &created, &verified, &rep); err != nil {
			return nil, err
		}
		c.TweetType = model.TweetType(typ)
		c.CreatedAt = time.Unix(created, 0).UTC()
		c.AuthorVerified = verified != 0
		c.AuthorReputation = 1.0 // default when absent
		if rep.Valid {
			c.AuthorReputation = rep.Float64
		}
		out[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	counts, err := d.sql.QueryContext(ctx, `
		SELECT post_id, kind, COUNT(*), SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END)
		FROM engagements
		WHERE post_id IN (`+placeholders(len(ids))+`)
		GROUP BY post_id, kind`, append([]any{recentCutoff}, toArgs(ids)...)...)
	if err != nil {
		return nil, err
	}
	defer counts.Close()
	for counts.Next() {
		var id, kind string
		var total, recent int
		if err := counts.Scan(&id, &kind, &total, &recent); err != nil {
			return nil, err
		}
		c, ok := out[id]
		if !ok {
			continue
		}
		switch kind {
		case "like":
			c.Likes = total
			c.LikesRecent = recent
		case "retweet":
			c.Retweets = total
			c.RetweetsRecent = recent
		case "reply":
			c.Replies = total
		case "quote":
			c.Quotes = total
		}
		out[id] = c
	}
	if err := counts.Err(); err != nil {
		return nil, err
	}

	tags, err := d.sql.QueryContext(ctx,
		`SELECT post_id, tag FROM hashtags WHERE post_id IN (`+placeholders(len(ids))+`)`, toArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer tags.Close()
	for tags.Next() {
		var id, tag string
		if err := tags.Scan(&id, &tag); err != nil {
			return nil, err
		}
		if c, ok := out[id]; ok {
			c.Hashtags = append(c.Hashtags, tag)
			out[id] = c
		}
	}
	if err := tags.Err(); err != nil {
		return nil, err
	}

	cats, err := d.sql.QueryContext(ctx,
		`SELECT post_id, category_id FROM post_categories WHERE post_id IN (`+placeholders(len(ids))+`)`, toArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer cats.Close()
	for cats.Next() {
		var id, cat string
		if err := cats.Scan(&id, &cat); err != nil {
			return nil, err
		}
		if c, ok := out[id]; ok {
			c.CategoryIDs = append(c.CategoryIDs, cat)
			out[id] = c
		}
	}
	return out, cats.Err()
}
