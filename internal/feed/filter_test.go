package feed

import (
	"testing"

	"feedrank/internal/model"
)

func TestFilterDropsBlockedAndDismissed(t *testing.T) {
	v := testViewer()
	v.BlockedAuthorIDs = model.NewIDSet("banned")
	v.DismissedPostIDs = model.NewIDSet("seen")

	cands := []model.Candidate{
		{ID: "p1", AuthorID: "ok"},
		{ID: "p2", AuthorID: "banned"},
		{ID: "p3", AuthorID: "ok", BoostAuthorID: "banned"},
		{ID: "seen", AuthorID: "ok"},
	}
	out := Filter(cands, v)
	if len(out) != 1 || out[0].ID != "p1" {
		t.Fatalf("filter result wrong: %+v", out)
	}
}

func TestFilterKeepsEverythingForCleanViewer(t *testing.T) {
	cands := []model.Candidate{{ID: "p1", AuthorID: "a"}, {ID: "p2", AuthorID: "b"}}
	out := Filter(cands, testViewer())
	if len(out) != 2 {
		t.Fatalf("expected passthrough, got %+v", out)
	}
}
