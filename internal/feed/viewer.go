package feed

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"feedrank/internal/model"
)

// loadViewerContext fans out the independent signal reads and assembles
// the immutable per-request viewer context. Any read failure aborts the
// whole request; there is no partial or degraded feed.
func (e *Engine) loadViewerContext(ctx context.Context, viewerID string, feed FeedType) (*model.ViewerContext, error) {
	var (
		graph     model.FollowGraph
		negatives model.NegativeSignals
		interests model.Interests
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		graph, err = e.store.LoadFollowGraph(gctx, viewerID)
		if err != nil {
			return fmt.Errorf("follow graph: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		negatives, err = e.store.LoadNegativeSignals(gctx, viewerID)
		if err != nil {
			return fmt.Errorf("negative signals: %w", err)
		}
		return nil
	})
	if feed == FeedForYou {
		g.Go(func() error {
			var err error
			interests, err = e.store.LoadInterests(gctx, viewerID, e.cfg.ForYou.TopAffinityHashtags)
			if err != nil {
				return fmt.Errorf("interests: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	vc := &model.ViewerContext{
		UserID:               viewerID,
		MutedAuthorIDs:       negatives.Muted,
		BlockedAuthorIDs:     negatives.Blocked,
		DismissedPostIDs:     negatives.Dismissed,
		SpamCounts:           negatives.SpamCounts,
		FollowedAuthorIDs:    graph.Followed,
		TopicalAffinity:      model.IDSet{},
		PreferredCategoryIDs: model.IDSet{},
	}
	switch feed {
	case FeedFollowing:
		// The Following feed is self-inclusive: the viewer always sees
		// their own posts.
		vc.FollowedAuthorIDs.Add(viewerID)
	case FeedForYou:
		// For-You never recommends the viewer's own posts.
		delete(vc.FollowedAuthorIDs, viewerID)
		vc.TwoHopAuthorIDs = graph.TwoHop
		vc.TopicalAffinity = interests.Hashtags
		vc.PreferredCategoryIDs = interests.CategoryIDs
	}
	return vc, nil
}
