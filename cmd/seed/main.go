// Command main fills the configured store with demo users and posts.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"zeroai/internal/bootstrap"
	"zeroai/internal/config"
	"zeroai/internal/middleware"
	"zeroai/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 100, "Number of posts to create")
	likeRatio := flag.Float64("likes", 0.1, "Probability that a user likes a post")
	randSeed := flag.Int64("seed", 0, "Random seed (0 = time based)")
	flag.Parse()

	err := run(context.Background(), seed.Options{
		Users:     *numUsers,
		Posts:     *numPosts,
		LikeRatio: *likeRatio,
		Seed:      *randSeed,
	})
	if err != nil {
		slog.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, opts seed.Options) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	middleware.ConfigureLogger(cfg.Env, cfg.LogLevel)

	if cfg.IsProduction() {
		return errors.New("refusing to seed a production store")
	}

	rt, err := bootstrap.InitRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(ctx) }()

	if _, err := seed.NewSeeder(rt.Users, rt.Posts, opts).Run(ctx); err != nil {
		return err
	}

	middleware.Logger.Info("all seeded users share one password", slog.String("password", seed.DefaultPassword))
	return nil
}
