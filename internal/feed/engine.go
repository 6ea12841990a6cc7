// Package feed implements the ranking engine: candidate retrieval,
// multiplicative scoring with time decay, per-author diversification,
// hydration, optional thread expansion, and cursor pagination, wrapped in
// a cache-aside read/write.
package feed

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"feedrank/internal/cache"
	"feedrank/internal/config"
	"feedrank/internal/logging"
	"feedrank/internal/metrics"
	"feedrank/internal/model"
)

// SignalStore is everything the engine reads. The concrete schema belongs
// to the store; the engine only sees typed candidates and posts.
type SignalStore interface {
	LoadFollowGraph(ctx context.Context, viewerID string) (model.FollowGraph, error)
	LoadNegativeSignals(ctx context.Context, viewerID string) (model.NegativeSignals, error)
	LoadInterests(ctx context.Context, viewerID string, topN int) (model.Interests, error)
	QueryFollowingCandidates(ctx context.Context, q model.CandidateQuery) ([]model.Candidate, error)
	QueryForYouCandidates(ctx context.Context, q model.CandidateQuery) ([]model.Candidate, error)
	Hydrate(ctx context.Context, postIDs []string, viewerID string) ([]model.FullPost, error)
	FetchParent(ctx context.Context, postID, viewerID string) (*model.FullPost, error)
}

// Engine builds ranked, paginated feeds. All working data is
// request-local; concurrent identical requests may race to recompute the
// same cache entry and the idempotent overwrite is tolerated.
type Engine struct {
	store SignalStore
	cache cache.Cache
	cfg   config.Config
	noise Noise
	now   func() time.Time
}

func New(store SignalStore, c cache.Cache, cfg config.Config, noise Noise) *Engine {
	return &Engine{store: store, cache: c, cfg: cfg, noise: noise, now: time.Now}
}

// GetFollowingFeed returns one page of the graph-scoped Following feed.
func (e *Engine) GetFollowingFeed(ctx context.Context, viewerID string, limit int, cursor string, expandThreads bool) (*model.FeedResponse, error) {
	label := string(FeedFollowing)
	if expandThreads {
		label = "following_threads"
	}
	return e.build(ctx, FeedFollowing, label, viewerID, limit, cursor, expandThreads)
}

// GetForYouFeed returns one page of the open-world For-You feed.
func (e *Engine) GetForYouFeed(ctx context.Context, viewerID string, limit int, cursor string) (*model.FeedResponse, error) {
	return e.build(ctx, FeedForYou, string(FeedForYou), viewerID, limit, cursor, false)
}

func (e *Engine) build(ctx context.Context, feed FeedType, label, viewerID string, limit int, cursor string, expandThreads bool) (*model.FeedResponse, error) {
	reqID := uuid.NewString()
	start := time.Now()
	key := cache.Key(label, viewerID, limit, cursor)

	// Cache read-through: a hit short-circuits the entire pipeline.
	if b, err := e.cache.Get(ctx, key); err != nil {
		logging.Warn("feed_cache_read_failed", map[string]any{"request": reqID, "error": err.Error()})
	} else if b != nil {
		if resp, err := cache.Decode(b); err == nil {
			metrics.CacheHits.WithLabelValues(label).Inc()
			return resp, nil
		}
		logging.Warn("feed_cache_decode_failed", map[string]any{"request": reqID, "key": key})
	}
	metrics.CacheMisses.WithLabelValues(label).Inc()

	resp, err := e.compute(ctx, feed, viewerID, limit, cursor, expandThreads)
	if err != nil {
		metrics.FeedBuildErrors.WithLabelValues(label).Inc()
		return nil, err
	}

	// Write-through is best-effort: a cache failure never fails the request.
	ttl := time.Duration(e.cfg.Cache.TTLSeconds) * time.Second
	if len(resp.Items) == 0 {
		ttl = time.Duration(e.cfg.Cache.EmptyTTLSeconds) * time.Second
	}
	if b, err := cache.Encode(resp); err != nil {
		logging.Warn("feed_cache_encode_failed", map[string]any{"request": reqID, "error": err.Error()})
	} else if err := e.cache.SetWithTTL(ctx, key, b, ttl); err != nil {
		logging.Warn("feed_cache_write_failed", map[string]any{"request": reqID, "error": err.Error()})
	}

	metrics.FeedBuilds.WithLabelValues(label).Inc()
	metrics.ObserveBuildDuration(label, start)
	logging.Info("feed_built", map[string]any{
		"request": reqID,
		"feed":    label,
		"viewer":  viewerID,
		"items":   len(resp.Items),
	})
	return resp, nil
}

func (e *Engine) compute(ctx context.Context, feed FeedType, viewerID string, limit int, cursor string, expandThreads bool) (*model.FeedResponse, error) {
	fc := e.feedConfig(feed)
	now := e.now().UTC()

	vc, err := e.loadViewerContext(ctx, viewerID, feed)
	if err != nil {
		return nil, err
	}

	q := model.CandidateQuery{
		Viewer:         vc,
		Now:            now,
		Window:         time.Duration(fc.WindowDays) * 24 * time.Hour,
		RecentWindow:   time.Duration(fc.RecentWindowHours) * time.Hour,
		PerSourceLimit: fc.PerSourceLimit,
		PoolLimit:      fc.CandidateLimit,
	}
	var cands []model.Candidate
	switch feed {
	case FeedFollowing:
		if len(vc.FollowedAuthorIDs) == 0 {
			return e.emptyResponse(viewerID, now), nil
		}
		cands, err = e.store.QueryFollowingCandidates(ctx, q)
	case FeedForYou:
		cands, err = e.store.QueryForYouCandidates(ctx, q)
	default:
		return nil, fmt.Errorf("unknown feed type %q", feed)
	}
	if err != nil {
		return nil, fmt.Errorf("candidates: %w", err)
	}
	metrics.CandidatePoolSize.WithLabelValues(string(feed)).Observe(float64(len(cands)))

	cands = Filter(cands, vc)
	scored := NewScorer(feed, fc, e.noise).ScoreAll(cands, vc, now)

	maxSurvivors := int(math.Ceil(float64(limit) * fc.OverfetchFactor))
	survivors, authorCounts := Diversify(scored, fc.DiversityAuthorLimit, fc.ReputationFloor, maxSurvivors)

	items, err := e.hydrate(ctx, survivors, viewerID)
	if err != nil {
		return nil, err
	}
	if feed == FeedFollowing && expandThreads {
		items, err = e.expandThreads(ctx, items, viewerID, authorCounts, fc.DiversityAuthorLimit, fc.ThreadParentLimit)
		if err != nil {
			return nil, err
		}
	}

	page, next := Paginate(items, limit, cursor)
	return &model.FeedResponse{
		ViewerID:    viewerID,
		Items:       page,
		NextCursor:  next,
		GeneratedAt: now,
	}, nil
}

func (e *Engine) feedConfig(feed FeedType) config.FeedConfig {
	if feed == FeedForYou {
		return e.cfg.ForYou
	}
	return e.cfg.Following
}

func (e *Engine) emptyResponse(viewerID string, now time.Time) *model.FeedResponse {
	return &model.FeedResponse{
		ViewerID:    viewerID,
		Items:       []model.FeedItem{},
		NextCursor:  nil,
		GeneratedAt: now,
	}
}
