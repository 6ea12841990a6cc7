package feed

import (
	"fmt"
	"testing"
	"time"

	"feedrank/internal/model"
)

func pageFixture(n int) []model.FeedItem {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	items := make([]model.FeedItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, model.FeedItem{
			ID:        fmt.Sprintf("p%d", i),
			Score:     float64(n - i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return items
}

func TestPaginateSlicesAndCursor(t *testing.T) {
	items := pageFixture(10)
	page, next := Paginate(items, 4, "")
	if len(page) != 4 || page[0].ID != "p0" {
		t.Fatalf("first page wrong: %+v", page)
	}
	if next == nil || *next != "p4" {
		t.Fatalf("next cursor = %v, want p4", next)
	}

	page2, next2 := Paginate(pageFixture(10), 4, page[len(page)-1].ID)
	if len(page2) != 4 || page2[0].ID != "p4" {
		t.Fatalf("second page wrong: %+v", page2)
	}
	if next2 == nil || *next2 != "p8" {
		t.Fatalf("next cursor = %v, want p8", next2)
	}

	page3, next3 := Paginate(pageFixture(10), 4, *next2)
	if len(page3) != 2 {
		t.Fatalf("last page wrong: %+v", page3)
	}
	if next3 != nil {
		t.Fatalf("exhausted result must have nil cursor, got %v", *next3)
	}
}

func TestPaginateStaleCursorStartsOver(t *testing.T) {
	page, _ := Paginate(pageFixture(5), 3, "not-a-post")
	if len(page) != 3 || page[0].ID != "p0" {
		t.Fatalf("stale cursor should degrade to start: %+v", page)
	}
}

func TestPaginateTieBreakByRecency(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	items := []model.FeedItem{
		{ID: "old", Score: 5, CreatedAt: base},
		{ID: "new", Score: 5, CreatedAt: base.Add(time.Hour)},
	}
	page, _ := Paginate(items, 2, "")
	if page[0].ID != "new" {
		t.Fatalf("equal scores should order newest first, got %s", page[0].ID)
	}
}

func TestPaginateExactFitHasNoCursor(t *testing.T) {
	page, next := Paginate(pageFixture(4), 4, "")
	if len(page) != 4 || next != nil {
		t.Fatalf("exact fit should exhaust: %d items, cursor %v", len(page), next)
	}
}
