package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"feedrank/internal/cache"
	"feedrank/internal/cmdlog"
	"feedrank/internal/config"
	"feedrank/internal/feed"
	"feedrank/internal/metrics"
	"feedrank/internal/model"
	"feedrank/internal/seed"
	"feedrank/internal/store"
	"feedrank/internal/theme"
)

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "init":
		cmdInit()
	case "seed":
		cmdSeed()
	case "following":
		cmdFeed(feed.FeedFollowing)
	case "foryou":
		cmdFeed(feed.FeedForYou)
	default:
		printHelp()
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: feedrank <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init        Create a config file at ./feedrank.yaml")
	fmt.Println("  seed        Populate the store with generated data")
	fmt.Println("  following   Print a page of the Following feed")
	fmt.Println("  foryou      Print a page of the For-You feed")
}

func cmdInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", "./feedrank.yaml", "path to write config")
	_ = fs.Parse(os.Args[2:])
	cfg := config.Default()
	if err := config.Save(*path, cfg); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	abs, _ := filepath.Abs(*path)
	theme.PrintBanner()
	fmt.Println("Config written to:", abs)
}

func cmdSeed() {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	cfgPath := fs.String("config", "./feedrank.yaml", "config path")
	users := fs.Int("users", 50, "users to generate")
	posts := fs.Int("posts", 10, "posts per user")
	rngSeed := fs.Int64("seed", 0, "deterministic seed (0 = time-based)")
	_ = fs.Parse(os.Args[2:])
	err := cmdlog.Run("seed", func() error {
		cfg, err := config.Load(*cfgPath)
		if err != nil {
			return err
		}
		db, err := store.Open(cfg.Storage.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		opts := seed.DefaultOptions()
		opts.Users = *users
		opts.PostsPerUser = *posts
		if *rngSeed != 0 {
			opts.Seed = *rngSeed
		}
		return seed.Run(context.Background(), db, opts)
	})
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	fmt.Println("Store seeded.")
}

func cmdFeed(ft feed.FeedType) {
	fs := flag.NewFlagSet(string(ft), flag.ExitOnError)
	cfgPath := fs.String("config", "./feedrank.yaml", "config path")
	viewer := fs.String("viewer", "", "viewer user id")
	limit := fs.Int("limit", 20, "page size")
	cursor := fs.String("cursor", "", "resume after this post id")
	threads := fs.Bool("threads", false, "expand missing thread parents (following only)")
	timeout := fs.Duration("timeout", 10*time.Second, "request timeout")
	_ = fs.Parse(os.Args[2:])
	if *viewer == "" {
		fmt.Println("error: -viewer is required")
		os.Exit(1)
	}
	err := cmdlog.Run(string(ft), func() error {
		cfg, err := config.Load(*cfgPath)
		if err != nil {
			return err
		}
		metrics.StartServer(cfg.Metrics.Addr)
		db, err := store.Open(cfg.Storage.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		var c cache.Cache = cache.NewMemory()
		if cfg.Cache.RedisAddr != "" {
			c = cache.NewRedis(cfg.Cache.RedisAddr, cfg.Cache.RedisPass)
		}
		engine := feed.New(db, c, cfg, feed.NewGaussianNoise(time.Now().UnixNano()))

		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()
		var resp *model.FeedResponse
		if ft == feed.FeedForYou {
			resp, err = engine.GetForYouFeed(ctx, *viewer, *limit, *cursor)
		} else {
			resp, err = engine.GetFollowingFeed(ctx, *viewer, *limit, *cursor, *threads)
		}
		if err != nil {
			return err
		}
		for _, it := range resp.Items {
			fmt.Printf("%.3f @%s [%s] %s\n", it.Score, it.Author.Username, it.TweetType, it.Content)
			if it.EmbeddedParentTweet != nil {
				fmt.Printf("      ↳ @%s %s\n", it.EmbeddedParentTweet.Author.Username, it.EmbeddedParentTweet.Content)
			}
		}
		if resp.NextCursor != nil {
			fmt.Println("next:", *resp.NextCursor)
		}
		return nil
	})
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}
