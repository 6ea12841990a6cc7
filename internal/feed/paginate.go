package feed

import (
	"sort"

	"feedrank/internal/model"
)

// Paginate stable-sorts items by (score desc, createdAt desc), resumes
// after the cursor post id when one is supplied, and slices to limit.
// A stale or foreign cursor degrades to "start over" rather than erroring.
// nextCursor is the id of the first item past the slice, or nil when the
// result set is exhausted.
func Paginate(items []model.FeedItem, limit int, cursor string) ([]model.FeedItem, *string) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	start := 0
	if cursor != "" {
		for i, it := range items {
			if it.ID == cursor {
				start = i + 1
				break
			}
		}
	}
	if start >= len(items) {
		return []model.FeedItem{}, nil
	}
	end := start + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	page := items[start:end]
	if end < len(items) {
		next := items[end].ID
		return page, &next
	}
	return page, nil
}
