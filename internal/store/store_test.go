package store

import (
	"context"
	"testing"
	"time"

	"feedrank/internal/model"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func mustUser(t *testing.T, db *DB, id string, verified bool, rep *float64) {
	t.Helper()
	if err := db.PutUser(context.Background(), id, id, id, verified, rep); err != nil {
		t.Fatal(err)
	}
}

func mustPost(t *testing.T, db *DB, id, author string, typ model.TweetType, parent string, age time.Duration) {
	t.Helper()
	if err := db.PutPost(context.Background(), id, author, "content of "+id, typ, parent, testNow.Add(-age)); err != nil {
		t.Fatal(err)
	}
}

func followingQuery(v *model.ViewerContext) model.CandidateQuery {
	return model.CandidateQuery{
		Viewer:         v,
		Now:            testNow,
		Window:         7 * 24 * time.Hour,
		RecentWindow:   48 * time.Hour,
		PerSourceLimit: 50,
		PoolLimit:      100,
	}
}

func TestLoadFollowGraphTwoHop(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	// viewer -> a, viewer -> c; a -> b, a -> c, a -> viewer.
	_ = db.PutFollow(ctx, "viewer", "a", testNow)
	_ = db.PutFollow(ctx, "viewer", "c", testNow)
	_ = db.PutFollow(ctx, "a", "b", testNow)
	_ = db.PutFollow(ctx, "a", "c", testNow)
	_ = db.PutFollow(ctx, "a", "viewer", testNow)

	g, err := db.LoadFollowGraph(ctx, "viewer")
	if err != nil {
		t.Fatal(err)
	}
	if !g.Followed.Has("a") || !g.Followed.Has("c") || len(g.Followed) != 2 {
		t.Fatalf("followed = %v", g.Followed)
	}
	// Two-hop excludes direct follows and the viewer themselves.
	if !g.TwoHop.Has("b") || len(g.TwoHop) != 1 {
		t.Fatalf("two-hop = %v", g.TwoHop)
	}
}

func TestLoadNegativeSignals(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	_ = db.PutMute(ctx, "viewer", "noisy")
	_ = db.PutBlock(ctx, "viewer", "enemy")
	_ = db.PutDismissal(ctx, "viewer", "boring-post")
	_ = db.PutSpamReport(ctx, "spammy", "r1", testNow)
	_ = db.PutSpamReport(ctx, "spammy", "r2", testNow)

	ns, err := db.LoadNegativeSignals(ctx, "viewer")
	if err != nil {
		t.Fatal(err)
	}
	if !ns.Muted.Has("noisy") || !ns.Blocked.Has("enemy") || !ns.Dismissed.Has("boring-post") {
		t.Fatalf("signals = %+v", ns)
	}
	if ns.SpamCounts["spammy"] != 2 {
		t.Fatalf("spam count = %d, want 2", ns.SpamCounts["spammy"])
	}
}

func TestLoadInterestsTopN(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	posts := map[string]string{"p1": "go", "p2": "go", "p3": "go", "p4": "rust", "p5": "rust", "p6": "js"}
	i := 0
	for id, tag := range posts {
		mustUser(t, db, "author", false, nil)
		mustPost(t, db, id, "author", model.TypeTweet, "", time.Duration(i)*time.Hour)
		_ = db.PutHashtag(ctx, id, tag)
		_ = db.PutEngagement(ctx, "viewer", id, "like", testNow)
		i++
	}
	_ = db.PutPreferredCategory(ctx, "viewer", "cat-tech")

	in, err := db.LoadInterests(ctx, "viewer", 2)
	if err != nil {
		t.Fatal(err)
	}
	if !in.Hashtags.Has("go") || !in.Hashtags.Has("rust") || len(in.Hashtags) != 2 {
		t.Fatalf("affinity tags = %v", in.Hashtags)
	}
	if !in.CategoryIDs.Has("cat-tech") {
		t.Fatalf("categories = %v", in.CategoryIDs)
	}
}

func TestFollowingCandidatesWindowAndMute(t *testing.T) {
	db := openTest(t)
	mustUser(t, db, "a", false, nil)
	mustUser(t, db, "m", false, nil)
	mustPost(t, db, "fresh", "a", model.TypeTweet, "", time.Hour)
	mustPost(t, db, "stale", "a", model.TypeTweet, "", 8*24*time.Hour)
	mustPost(t, db, "muted-post", "m", model.TypeTweet, "", time.Hour)

	v := &model.ViewerContext{
		UserID:            "viewer",
		FollowedAuthorIDs: model.NewIDSet("a", "m"),
		MutedAuthorIDs:    model.NewIDSet("m"),
	}
	cands, err := db.QueryFollowingCandidates(context.Background(), followingQuery(v))
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 1 || cands[0].ID != "fresh" {
		t.Fatalf("candidates = %+v", cands)
	}
	if cands[0].Reason != model.ReasonFromFollowing {
		t.Fatalf("reason = %s", cands[0].Reason)
	}
	if cands[0].AuthorReputation != 1.0 {
		t.Fatalf("null reputation should default to 1.0, got %v", cands[0].AuthorReputation)
	}
}

func TestFollowingCandidatesRetweetCarriesBooster(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	mustUser(t, db, "a", false, nil)
	mustUser(t, db, "stranger", false, nil)
	mustPost(t, db, "boosted", "stranger", model.TypeTweet, "", 2*time.Hour)
	_ = db.PutEngagement(ctx, "a", "boosted", "retweet", testNow.Add(-time.Hour))

	v := &model.ViewerContext{UserID: "viewer", FollowedAuthorIDs: model.NewIDSet("a")}
	cands, err := db.QueryFollowingCandidates(ctx, followingQuery(v))
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 1 {
		t.Fatalf("got %d candidates", len(cands))
	}
	c := cands[0]
	if c.ID != "boosted" || c.Reason != model.ReasonRetweetedByFollowed || c.BoostAuthorID != "a" {
		t.Fatalf("candidate = %+v", c)
	}
}

func TestFollowingCandidatesDedupLastReasonWins(t *testing.T) {
	db := openTest(t)
	mustUser(t, db, "a", false, nil)
	// A quote by a followed author is gathered by both the direct and the
	// quote source with equal popularity; the later source's reason sticks.
	mustPost(t, db, "q", "a", model.TypeQuote, "orig", time.Hour)

	v := &model.ViewerContext{UserID: "viewer", FollowedAuthorIDs: model.NewIDSet("a")}
	cands, err := db.QueryFollowingCandidates(context.Background(), followingQuery(v))
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected dedup to one candidate, got %d", len(cands))
	}
	if cands[0].Reason != model.ReasonQuotedByFollowed {
		t.Fatalf("reason = %s, want %s", cands[0].Reason, model.ReasonQuotedByFollowed)
	}
}

func TestForYouCandidatesExcludeViewer(t *testing.T) {
	db := openTest(t)
	mustUser(t, db, "viewer", false, nil)
	mustUser(t, db, "other", false, nil)
	mustPost(t, db, "mine", "viewer", model.TypeTweet, "", time.Hour)
	mustPost(t, db, "theirs", "other", model.TypeTweet, "", time.Hour)

	v := &model.ViewerContext{UserID: "viewer"}
	cands, err := db.QueryForYouCandidates(context.Background(), followingQuery(v))
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range cands {
		if c.ID == "mine" {
			t.Fatalf("viewer's own post surfaced in for-you pool")
		}
	}
	if len(cands) != 1 || cands[0].Reason != model.ReasonGlobalFallback {
		t.Fatalf("candidates = %+v", cands)
	}
}

func TestForYouTopicSourceNeedsAffinity(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	mustUser(t, db, "other", false, nil)
	mustPost(t, db, "tagged", "other", model.TypeTweet, "", time.Hour)
	_ = db.PutHashtag(ctx, "tagged", "golang")

	// Without affinity the hashtag source is skipped entirely.
	cold := &model.ViewerContext{UserID: "viewer"}
	cands, err := db.QueryForYouCandidates(ctx, followingQuery(cold))
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range cands {
		if c.Reason == model.ReasonTopicMatch {
			t.Fatalf("topic_match without any affinity")
		}
	}

	warm := &model.ViewerContext{UserID: "viewer", TopicalAffinity: model.NewIDSet("golang")}
	cands, err = db.QueryForYouCandidates(ctx, followingQuery(warm))
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, c := range cands {
		if c.ID == "tagged" && c.Reason == model.ReasonTopicMatch {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected tagged post via topic source, got %+v", cands)
	}
}

func TestForYouCategorySourceNeedsPreference(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	mustUser(t, db, "other", false, nil)
	mustPost(t, db, "categorized", "other", model.TypeTweet, "", time.Hour)
	_ = db.PutCategory(ctx, "cat-tech", "Technology")
	_ = db.AssignCategory(ctx, "categorized", "cat-tech")

	// Without declared preferences the category source is skipped entirely.
	cold := &model.ViewerContext{UserID: "viewer"}
	cands, err := db.QueryForYouCandidates(ctx, followingQuery(cold))
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range cands {
		if c.Reason == model.ReasonCategoryMatch {
			t.Fatalf("category_match without any preference")
		}
	}

	warm := &model.ViewerContext{UserID: "viewer", PreferredCategoryIDs: model.NewIDSet("cat-tech")}
	cands, err = db.QueryForYouCandidates(ctx, followingQuery(warm))
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, c := range cands {
		if c.ID == "categorized" && c.Reason == model.ReasonCategoryMatch {
			found = true
			if len(c.CategoryIDs) != 1 || c.CategoryIDs[0] != "cat-tech" {
				t.Fatalf("categories = %v", c.CategoryIDs)
			}
		}
	}
	if !found {
		t.Fatalf("expected categorized post via category source, got %+v", cands)
	}
}

func TestForYouLikedAndBookmarkedByFollowed(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	mustUser(t, db, "f", false, nil)
	mustUser(t, db, "stranger", false, nil)
	mustPost(t, db, "liked-post", "stranger", model.TypeTweet, "", 3*time.Hour)
	mustPost(t, db, "marked-post", "stranger", model.TypeTweet, "", 4*time.Hour)
	_ = db.PutEngagement(ctx, "f", "liked-post", "like", testNow.Add(-time.Hour))
	_ = db.PutEngagement(ctx, "f", "marked-post", "bookmark", testNow.Add(-time.Hour))

	v := &model.ViewerContext{UserID: "viewer", FollowedAuthorIDs: model.NewIDSet("f")}
	cands, err := db.QueryForYouCandidates(ctx, followingQuery(v))
	if err != nil {
		t.Fatal(err)
	}
	byID := map[string]model.Candidate{}
	for _, c := range cands {
		byID[c.ID] = c
	}
	liked, ok := byID["liked-post"]
	if !ok || liked.Reason != model.ReasonLikedByFollowed || liked.BoostAuthorID != "f" {
		t.Fatalf("liked candidate = %+v", liked)
	}
	marked, ok := byID["marked-post"]
	if !ok || marked.Reason != model.ReasonBookmarkedByFollowed || marked.BoostAuthorID != "f" {
		t.Fatalf("bookmarked candidate = %+v", marked)
	}
}

func TestForYouTwoHopSource(t *testing.T) {
	db := openTest(t)
	mustUser(t, db, "b2", false, nil)
	mustPost(t, db, "hop", "b2", model.TypeTweet, "", time.Hour)

	v := &model.ViewerContext{UserID: "viewer", TwoHopAuthorIDs: model.NewIDSet("b2")}
	cands, err := db.QueryForYouCandidates(context.Background(), followingQuery(v))
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, c := range cands {
		if c.ID == "hop" && c.Reason == model.ReasonTwoHop {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected hop via two-hop source, got %+v", cands)
	}
}

func TestForYouTrendingSource(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	mustUser(t, db, "h", false, nil)
	mustUser(t, db, "quiet", false, nil)
	mustPost(t, db, "hot", "h", model.TypeTweet, "", 2*time.Hour)
	mustPost(t, db, "cold", "quiet", model.TypeTweet, "", 2*time.Hour)
	for i, u := range []string{"u1", "u2", "u3"} {
		_ = db.PutEngagement(ctx, u, "hot", "like", testNow.Add(-time.Duration(i+1)*time.Hour))
	}

	v := &model.ViewerContext{UserID: "viewer"}
	cands, err := db.QueryForYouCandidates(ctx, followingQuery(v))
	if err != nil {
		t.Fatal(err)
	}
	byID := map[string]model.Candidate{}
	for _, c := range cands {
		byID[c.ID] = c
	}
	hot, ok := byID["hot"]
	if !ok || hot.Reason != model.ReasonTrending {
		t.Fatalf("hot candidate = %+v", hot)
	}
	if hot.Likes != 3 || hot.LikesRecent != 3 {
		t.Fatalf("hot counters = %d/%d", hot.Likes, hot.LikesRecent)
	}
	// No engagement means the trending source never sees it; only the
	// fallback does.
	cold, ok := byID["cold"]
	if !ok || cold.Reason != model.ReasonGlobalFallback {
		t.Fatalf("cold candidate = %+v", cold)
	}
}

func TestHydratePreservesOrderAndFlags(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	mustUser(t, db, "a", true, nil)
	mustPost(t, db, "p1", "a", model.TypeTweet, "", time.Hour)
	mustPost(t, db, "p2", "a", model.TypeTweet, "", 2*time.Hour)
	_ = db.PutEngagement(ctx, "viewer", "p1", "like", testNow)
	_ = db.PutEngagement(ctx, "x", "p1", "like", testNow)
	_ = db.PutEngagement(ctx, "viewer", "p2", "bookmark", testNow)
	_ = db.PutMedia(ctx, "p2", "img-1")

	posts, err := db.Hydrate(ctx, []string{"p2", "gone", "p1"}, "viewer")
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 2 || posts[0].ID != "p2" || posts[1].ID != "p1" {
		t.Fatalf("order not preserved: %+v", posts)
	}
	p2, p1 := posts[0], posts[1]
	if !p2.Bookmarked || p2.Liked {
		t.Fatalf("p2 flags = %+v", p2)
	}
	if len(p2.MediaIDs) != 1 || p2.MediaIDs[0] != "img-1" {
		t.Fatalf("p2 media = %v", p2.MediaIDs)
	}
	if !p1.Liked || p1.Likes != 2 {
		t.Fatalf("p1 liked=%v likes=%d", p1.Liked, p1.Likes)
	}
	if !p1.Author.Verified || p1.Author.Username != "a" {
		t.Fatalf("p1 author = %+v", p1.Author)
	}
}

func TestFetchParentMissing(t *testing.T) {
	db := openTest(t)
	p, err := db.FetchParent(context.Background(), "nope", "viewer")
	if err != nil {
		t.Fatal(err)
	}
	if p != nil {
		t.Fatalf("expected nil for missing parent, got %+v", p)
	}
}
