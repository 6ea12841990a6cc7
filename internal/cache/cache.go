// Package cache holds the short-lived feed response cache. Feed pages are
// encoded as JSON values keyed by (feedType, viewer, limit, cursor).
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"feedrank/internal/model"
)

// Cache is a get/set-with-TTL key-value store. Get returns (nil, nil) on a
// miss; callers treat any error as a miss too.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key builds the cache key for one feed page request.
func Key(feedType, viewerID string, limit int, cursor string) string {
	return fmt.Sprintf("feed:%s:%s:%d:%s", feedType, viewerID, limit, cursor)
}

// Encode serializes a feed response for storage.
func Encode(resp *model.FeedResponse) ([]byte, error) {
	return json.Marshal(resp)
}

// Decode deserializes a cached feed response.
func Decode(b []byte) (*model.FeedResponse, error) {
	var resp model.FeedResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
