package feed

import (
	"context"
	"fmt"

	"feedrank/internal/model"
)

// hydrate resolves surviving candidates into feed items, preserving the
// scores and reasons computed earlier. Replies and quotes whose parent is
// not itself in the surviving set get a one-level embedded parent; the
// embedded parent never carries a parent of its own.
func (e *Engine) hydrate(ctx context.Context, scored []model.ScoredCandidate, viewerID string) ([]model.FeedItem, error) {
	if len(scored) == 0 {
		return []model.FeedItem{}, nil
	}
	ids := make([]string, 0, len(scored))
	surviving := model.IDSet{}
	for _, c := range scored {
		ids = append(ids, c.ID)
		surviving.Add(c.ID)
	}
	posts, err := e.store.Hydrate(ctx, ids, viewerID)
	if err != nil {
		return nil, fmt.Errorf("hydrate: %w", err)
	}
	byID := make(map[string]model.FullPost, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}

	parents := make(map[string]*model.FeedItem)
	items := make([]model.FeedItem, 0, len(scored))
	for _, c := range scored {
		p, ok := byID[c.ID]
		if !ok {
			// Deleted between generation and hydration; drop.
			continue
		}
		item := itemFromPost(p, c.Score, c.Reasons)
		if (p.TweetType == model.TypeReply || p.TweetType == model.TypeQuote) &&
			p.ParentID != "" && !surviving.Has(p.ParentID) {
			parent, ok := parents[p.ParentID]
			if !ok {
				fp, err := e.store.FetchParent(ctx, p.ParentID, viewerID)
				if err != nil {
					return nil, fmt.Errorf("fetch parent %s: %w", p.ParentID, err)
				}
				if fp != nil {
					pi := itemFromPost(*fp, 0, nil)
					pi.EmbeddedParentTweet = nil // one hop only
					parent = &pi
				}
				parents[p.ParentID] = parent
			}
			item.EmbeddedParentTweet = parent
		}
		items = append(items, item)
	}
	return items, nil
}

func itemFromPost(p model.FullPost, score float64, reasons []string) model.FeedItem {
	return model.FeedItem{
		ID:           p.ID,
		Content:      p.Content,
		Likes:        p.Likes,
		Retweets:     p.Retweets,
		Replies:      p.Replies,
		Quotes:       p.Quotes,
		ReplyControl: p.ReplyControl,
		ParentID:     p.ParentID,
		TweetType:    p.TweetType,
		Author:       p.Author,
		MediaIDs:     p.MediaIDs,
		Liked:        p.Liked,
		Retweeted:    p.Retweeted,
		Bookmarked:   p.Bookmarked,
		Score:        score,
		Reasons:      reasons,
		CreatedAt:    p.CreatedAt,
	}
}
