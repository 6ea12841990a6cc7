// Package seed fills the signal store with generated users, graph edges,
// posts, and engagement so the CLI feed commands have material to rank.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"feedrank/internal/model"
	"feedrank/internal/store"
)

// Options sizes the generated dataset.
type Options struct {
	Users        int
	PostsPerUser int
	Seed         int64
}

func DefaultOptions() Options {
	return Options{Users: 50, PostsPerUser: 10, Seed: time.Now().UnixNano()}
}

var topics = []string{"golang", "distributed", "databases", "music", "cycling", "coffee", "film", "aviation", "gardening", "chess"}

var categories = []struct{ id, name string }{
	{"cat-tech", "Technology"},
	{"cat-sports", "Sports"},
	{"cat-arts", "Arts"},
	{"cat-science", "Science"},
	{"cat-travel", "Travel"},
}

// Run populates db. Generation is deterministic for a fixed Options.Seed.
func Run(ctx context.Context, db *store.DB, opts Options) error {
	faker := gofakeit.New(opts.Seed)
	rng := rand.New(rand.NewSource(opts.Seed))
	now := time.Now().UTC()

	for _, c := range categories {
		if err := db.PutCategory(ctx, c.id, c.name); err != nil {
			return fmt.Errorf("seed category: %w", err)
		}
	}

	userIDs := make([]string, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		id := uuid.NewString()
		var rep *float64
		if rng.Float64() < 0.8 {
			r := 0.2 + rng.Float64()*1.8
			rep = &r
		}
		verified := rng.Float64() < 0.1
		if err := db.PutUser(ctx, id, faker.Username(), faker.Name(), verified, rep); err != nil {
			return fmt.Errorf("seed user: %w", err)
		}
		userIDs = append(userIDs, id)
	}

	// Follow graph: each user follows a handful of others.
	for _, u := range userIDs {
		n := 3 + rng.Intn(8)
		for i := 0; i < n; i++ {
			v := userIDs[rng.Intn(len(userIDs))]
			if v == u {
				continue
			}
			if err := db.PutFollow(ctx, u, v, now.Add(-time.Duration(rng.Intn(720))*time.Hour)); err != nil {
				return fmt.Errorf("seed follow: %w", err)
			}
		}
		// Sparse negative signals.
		if rng.Float64() < 0.2 {
			_ = db.PutMute(ctx, u, userIDs[rng.Intn(len(userIDs))])
		}
		if rng.Float64() < 0.1 {
			_ = db.PutBlock(ctx, u, userIDs[rng.Intn(len(userIDs))])
		}
		if rng.Float64() < 0.5 {
			_ = db.PutPreferredCategory(ctx, u, categories[rng.Intn(len(categories))].id)
		}
	}

	var postIDs []string
	for _, u := range userIDs {
		for i := 0; i < opts.PostsPerUser; i++ {
			id := uuid.NewString()
			created := now.Add(-time.Duration(rng.Intn(7*24*60)) * time.Minute)
			typ := model.TypeTweet
			parent := ""
			if len(postIDs) > 0 {
				switch {
				case rng.Float64() < 0.15:
					typ = model.TypeReply
					parent = postIDs[rng.Intn(len(postIDs))]
				case rng.Float64() < 0.08:
					typ = model.TypeQuote
					parent = postIDs[rng.Intn(len(postIDs))]
				}
			}
			if err := db.PutPost(ctx, id, u, faker.Sentence(12), typ, parent, created); err != nil {
				return fmt.Errorf("seed post: %w", err)
			}
			if parent != "" {
				kind := "reply"
				if typ == model.TypeQuote {
					kind = "quote"
				}
				_ = db.PutEngagement(ctx, u, parent, kind, created)
			}
			for _, t := range pick(rng, topics, rng.Intn(3)) {
				_ = db.PutHashtag(ctx, id, t)
			}
			if rng.Float64() < 0.4 {
				_ = db.AssignCategory(ctx, id, categories[rng.Intn(len(categories))].id)
			}
			if rng.Float64() < 0.25 {
				_ = db.PutMedia(ctx, id, uuid.NewString())
			}
			postIDs = append(postIDs, id)
		}
	}

	// Engagement: likes, retweets, bookmarks, the odd spam report.
	for _, p := range postIDs {
		n := rng.Intn(12)
		for i := 0; i < n; i++ {
			u := userIDs[rng.Intn(len(userIDs))]
			ts := now.Add(-time.Duration(rng.Intn(72*60)) * time.Minute)
			kind := "like"
			switch {
			case rng.Float64() < 0.2:
				kind = "retweet"
			case rng.Float64() < 0.1:
				kind = "bookmark"
			}
			if err := db.PutEngagement(ctx, u, p, kind, ts); err != nil {
				return fmt.Errorf("seed engagement: %w", err)
			}
		}
		if rng.Float64() < 0.03 {
			_ = db.PutSpamReport(ctx, p, userIDs[rng.Intn(len(userIDs))], now)
		}
	}
	return nil
}

func pick(rng *rand.Rand, from []string, n int) []string {
	if n >= len(from) {
		n = len(from)
	}
	idx := rng.Perm(len(from))[:n]
	out := make([]string, 0, n)
	for _, i := range idx {
		out = append(out, from[i])
	}
	return out
}
