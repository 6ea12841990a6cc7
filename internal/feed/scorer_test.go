package feed

import (
	"math"
	"testing"
	"time"

	"feedrank/internal/config"
	"feedrank/internal/model"
)

func testViewer() *model.ViewerContext {
	return &model.ViewerContext{
		UserID:               "viewer",
		MutedAuthorIDs:       model.IDSet{},
		BlockedAuthorIDs:     model.IDSet{},
		DismissedPostIDs:     model.IDSet{},
		SpamCounts:           map[string]int{},
		FollowedAuthorIDs:    model.NewIDSet("viewer", "a"),
		TopicalAffinity:      model.IDSet{},
		PreferredCategoryIDs: model.IDSet{},
	}
}

func TestScoreFollowedPostExact(t *testing.T) {
	cfg := config.Default().Following
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := model.Candidate{
		ID: "p1", AuthorID: "a", TweetType: model.TypeTweet,
		CreatedAt: now, // age 0h, recency multiplier 1.0
		Likes:     10, Retweets: 2, Replies: 1,
		AuthorReputation: 1.0,
		Reason:           model.ReasonFromFollowing,
	}
	s := NewScorer(FeedFollowing, cfg, ZeroNoise{})
	got := s.Score(c, testViewer(), now)

	want := 10*cfg.Weights.Like + 2*cfg.Weights.Retweet + 1*cfg.Weights.Reply + 1
	if math.Abs(got.Score-want) > 1e-9 {
		t.Fatalf("score = %v, want %v", got.Score, want)
	}
	if len(got.Reasons) != 1 || got.Reasons[0] != model.ReasonFromFollowing {
		t.Fatalf("reasons = %v", got.Reasons)
	}
}

func TestRecencyHalfLife(t *testing.T) {
	cfg := config.Default().Following
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewScorer(FeedFollowing, cfg, ZeroNoise{})
	v := testViewer()

	fresh := model.Candidate{ID: "p1", AuthorID: "a", CreatedAt: now, AuthorReputation: 1, Reason: model.ReasonFromFollowing}
	aged := fresh
	aged.CreatedAt = now.Add(-time.Duration(cfg.HalfLifeHours * float64(time.Hour)))

	sf := s.Score(fresh, v, now).Score
	sa := s.Score(aged, v, now).Score
	if sa >= sf {
		t.Fatalf("aged score %v should be below fresh %v", sa, sf)
	}
	if math.Abs(sa/sf-0.5) > 1e-9 {
		t.Fatalf("one half-life should halve the score, ratio %v", sa/sf)
	}
}

func TestVelocityMultiplier(t *testing.T) {
	cfg := config.Default().Following
	now := time.Now().UTC()
	s := NewScorer(FeedFollowing, cfg, ZeroNoise{})
	v := testViewer()

	calm := model.Candidate{ID: "p1", AuthorID: "a", CreatedAt: now, AuthorReputation: 1, Reason: model.ReasonFromFollowing}
	hot := calm
	hot.LikesRecent = 5
	hot.RetweetsRecent = 3

	sc := s.Score(calm, v, now).Score
	sh := s.Score(hot, v, now).Score
	wantRatio := 1 + math.Log(1+float64(5+2*3))*cfg.VelocityFactor
	if math.Abs(sh/sc-wantRatio) > 1e-9 {
		t.Fatalf("velocity ratio %v, want %v", sh/sc, wantRatio)
	}
}

func TestTopicalBoostCapped(t *testing.T) {
	cfg := config.Default().ForYou
	now := time.Now().UTC()
	s := NewScorer(FeedForYou, cfg, ZeroNoise{})
	v := testViewer()
	v.TopicalAffinity = model.NewIDSet("golang", "chess", "coffee", "film", "music")

	base := model.Candidate{ID: "p1", AuthorID: "a", CreatedAt: now, Likes: 4, AuthorReputation: 1, Reason: model.ReasonTrending}
	three := base
	three.Hashtags = []string{"golang", "chess", "coffee"}
	five := base
	five.Hashtags = []string{"golang", "chess", "coffee", "film", "music"}

	s3 := s.Score(three, v, now)
	s5 := s.Score(five, v, now)
	if math.Abs(s3.Score-s5.Score) > 1e-9 {
		t.Fatalf("overlap beyond 3 must not raise the score: %v vs %v", s3.Score, s5.Score)
	}
	if s3.Reasons[len(s3.Reasons)-1] != model.ReasonTopicMatch {
		t.Fatalf("expected topic_match reason, got %v", s3.Reasons)
	}
}

func TestSpamPenaltyAndReputationClamp(t *testing.T) {
	cfg := config.Default().ForYou
	now := time.Now().UTC()
	s := NewScorer(FeedForYou, cfg, ZeroNoise{})
	v := testViewer()
	v.SpamCounts["spammy"] = 4

	clean := model.Candidate{ID: "p1", AuthorID: "a", CreatedAt: now, Likes: 8, AuthorReputation: 1, Reason: model.ReasonTrending}
	spammy := clean
	spammy.ID = "spammy"
	sc := s.Score(clean, v, now).Score
	sp := s.Score(spammy, v, now).Score
	want := sc / (1 + 4*cfg.SpamPenaltyPerReport)
	if math.Abs(sp-want) > 1e-9 {
		t.Fatalf("spam-penalized score %v, want %v", sp, want)
	}

	inflated := clean
	inflated.AuthorReputation = 50
	si := s.Score(inflated, v, now).Score
	if math.Abs(si/sc-cfg.ReputationCap) > 1e-9 {
		t.Fatalf("reputation should clamp at %v, ratio %v", cfg.ReputationCap, si/sc)
	}
}

func TestJitterUsesInjectedNoise(t *testing.T) {
	cfg := config.Default().Following
	now := time.Now().UTC()
	v := testViewer()
	c := model.Candidate{ID: "p1", AuthorID: "a", CreatedAt: now, Likes: 2, AuthorReputation: 1, Reason: model.ReasonFromFollowing}

	flat := NewScorer(FeedFollowing, cfg, ZeroNoise{}).Score(c, v, now).Score
	shifted := NewScorer(FeedFollowing, cfg, FixedNoise{V: 2}).Score(c, v, now).Score
	want := flat * (1 + 2*cfg.JitterStddev)
	if math.Abs(shifted-want) > 1e-9 {
		t.Fatalf("jittered score %v, want %v", shifted, want)
	}
}

func TestScoreNeverNegativeOrNaN(t *testing.T) {
	cfg := config.Default().ForYou
	now := time.Now().UTC()
	s := NewScorer(FeedForYou, cfg, FixedNoise{V: -1000})
	c := model.Candidate{ID: "p1", AuthorID: "a", CreatedAt: now, AuthorReputation: 1, Reason: model.ReasonTrending}
	got := s.Score(c, testViewer(), now).Score
	if got < 0 || math.IsNaN(got) {
		t.Fatalf("score %v out of range", got)
	}
}
