package feed

import (
	"context"
	"fmt"
	"math"

	"feedrank/internal/model"
)

// threadParentScore sorts expanded parents ahead of every organic item.
const threadParentScore = math.MaxFloat64

// expandThreads prepends parents that are missing from the result set so
// replies are not orphaned. Parents carry a sentinel maximal score and
// count against their author's diversity quota; fetches stop at capN.
func (e *Engine) expandThreads(ctx context.Context, items []model.FeedItem, viewerID string, authorCounts map[string]int, authorLimit, capN int) ([]model.FeedItem, error) {
	present := model.IDSet{}
	for _, it := range items {
		present.Add(it.ID)
	}
	var missing []string
	for _, it := range items {
		if it.ParentID == "" || present.Has(it.ParentID) {
			continue
		}
		present.Add(it.ParentID) // dedupe shared parents
		missing = append(missing, it.ParentID)
		if capN > 0 && len(missing) >= capN {
			break
		}
	}
	if len(missing) == 0 {
		return items, nil
	}

	var parents []model.FeedItem
	for _, id := range missing {
		fp, err := e.store.FetchParent(ctx, id, viewerID)
		if err != nil {
			return nil, fmt.Errorf("expand thread parent %s: %w", id, err)
		}
		if fp == nil {
			continue
		}
		if authorLimit > 0 && authorCounts[fp.AuthorID] >= authorLimit {
			continue
		}
		authorCounts[fp.AuthorID]++
		item := itemFromPost(*fp, threadParentScore, []string{model.ReasonThreadParent})
		parents = append(parents, item)
	}
	if len(parents) == 0 {
		return items, nil
	}
	return append(parents, items...), nil
}
