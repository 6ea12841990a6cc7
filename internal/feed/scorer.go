package feed

import (
	"math"
	"time"

	"feedrank/internal/config"
	"feedrank/internal/model"
)

// FeedType selects the tunable set and candidate sources.
type FeedType string

const (
	FeedFollowing FeedType = "following"
	FeedForYou    FeedType = "foryou"
)

// Scorer converts candidates into scored candidates with the multiplicative
// model. All constants come from the config; the only non-determinism is
// the injected noise source.
type Scorer struct {
	feed  FeedType
	cfg   config.FeedConfig
	noise Noise
}

func NewScorer(feed FeedType, cfg config.FeedConfig, noise Noise) *Scorer {
	return &Scorer{feed: feed, cfg: cfg, noise: noise}
}

// ScoreAll scores every candidate against the viewer context.
func (s *Scorer) ScoreAll(cands []model.Candidate, v *model.ViewerContext, now time.Time) []model.ScoredCandidate {
	out := make([]model.ScoredCandidate, 0, len(cands))
	for _, c := range cands {
		out = append(out, s.Score(c, v, now))
	}
	return out
}

// Score applies the multipliers in a fixed order:
// base, velocity, recency, relationship, topical, verification, reputation,
// spam penalty, jitter. The order only matters for float rounding but is
// kept stable so golden assertions hold.
func (s *Scorer) Score(c model.Candidate, v *model.ViewerContext, now time.Time) model.ScoredCandidate {
	w := s.cfg.Weights
	reasons := []string{c.Reason}

	base := float64(c.Likes)*w.Like + float64(c.Retweets)*w.Retweet +
		float64(c.Replies)*w.Reply + float64(c.Quotes)*w.Quote
	if s.feed == FeedFollowing {
		// Flat floor so zero-engagement posts from followed authors are
		// still rankable.
		base += 1
	}
	score := base

	velocity := 1 + math.Log(1+float64(c.LikesRecent+2*c.RetweetsRecent))*s.cfg.VelocityFactor
	score *= velocity

	ageHours := now.Sub(c.CreatedAt).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	score *= math.Exp2(-ageHours / s.cfg.HalfLifeHours)

	score *= s.relationshipBoost(c.Reason)

	if overlap := s.topicalOverlap(c, v); overlap > 0 && s.cfg.Boosts.Topic > 0 {
		// Capped exponent so tag-stuffed posts cannot run away.
		score *= math.Pow(s.cfg.Boosts.Topic, math.Min(3, float64(overlap)))
		reasons = append(reasons, model.ReasonTopicMatch)
	}

	if c.AuthorVerified && s.cfg.Boosts.Verified > 0 {
		score *= s.cfg.Boosts.Verified
		reasons = append(reasons, model.ReasonVerifiedAuthor)
	}

	score *= clamp(c.AuthorReputation, s.cfg.ReputationFloor, s.cfg.ReputationCap)

	if n := v.SpamCounts[c.ID]; n > 0 {
		score /= 1 + float64(n)*s.cfg.SpamPenaltyPerReport
	}

	score *= 1 + s.noise.Next()*s.cfg.JitterStddev
	if score < 0 || math.IsNaN(score) {
		score = 0
	}

	return model.ScoredCandidate{Candidate: c, Score: score, Reasons: dedupReasons(reasons)}
}

func (s *Scorer) relationshipBoost(reason string) float64 {
	b := s.cfg.Boosts
	var f float64
	switch reason {
	case model.ReasonFromFollowing:
		f = b.DirectFollow
	case model.ReasonRetweetedByFollowed:
		f = b.RetweetedByFollowed
	case model.ReasonQuotedByFollowed:
		f = b.QuotedByFollowed
	case model.ReasonLikedByFollowed:
		f = b.LikedByFollowed
	case model.ReasonBookmarkedByFollowed:
		f = b.BookmarkedByFollowed
	case model.ReasonTwoHop:
		f = b.TwoHop
	}
	if f <= 0 {
		return 1
	}
	return f
}

func (s *Scorer) topicalOverlap(c model.Candidate, v *model.ViewerContext) int {
	n := 0
	for _, tag := range c.Hashtags {
		if v.TopicalAffinity.Has(tag) {
			n++
		}
	}
	for _, cat := range c.CategoryIDs {
		if v.PreferredCategoryIDs.Has(cat) {
			n++
		}
	}
	return n
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func dedupReasons(reasons []string) []string {
	seen := make(map[string]struct{}, len(reasons))
	out := reasons[:0]
	for _, r := range reasons {
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
