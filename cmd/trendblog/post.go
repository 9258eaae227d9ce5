package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/trendblog/internal/config"
	"github.com/jonathan/trendblog/internal/db"
	"github.com/jonathan/trendblog/internal/observability"
	"github.com/jonathan/trendblog/internal/publish"
	"github.com/jonathan/trendblog/internal/scheduler"
)

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Publish pending articles to the blog API",
	Long:  "Selects pending articles oldest-first and dispatches each to the blog API, up to the daily limit. With --bulk the entire backlog is drained in one run.",
	RunE:  runPost,
}

var (
	postLimit   int
	postBulk    bool
	postVerbose bool
)

func init() {
	postCmd.Flags().IntVarP(&postLimit, "limit", "l", 0, "Maximum articles to publish this run (default: DAILY_POST_LIMIT or 2)")
	postCmd.Flags().BoolVar(&postBulk, "bulk", false, "Publish every pending article instead of honoring the daily limit")
	postCmd.Flags().BoolVarP(&postVerbose, "verbose", "v", false, "Print the post summary")

	rootCmd.AddCommand(postCmd)
}

func runPost(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}
	if err := cfg.RequireBlog(); err != nil {
		return err
	}

	batchSize := cfg.DailyLimit
	if postLimit > 0 {
		batchSize = postLimit
	}

	ctx := context.Background()

	store, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer store.Close()

	publisher := publish.NewClient(publish.Options{
		Endpoint:       cfg.BlogAPIURL,
		APIKey:         cfg.BlogAPIKey,
		HeaderImageURL: cfg.HeaderImageURL,
		Timeout:        cfg.HTTPTimeout,
		MaxAttempts:    cfg.MaxRetries,
	})

	s := scheduler.New(store, publisher, scheduler.Options{BatchSize: batchSize})

	mode := scheduler.ModeLimited
	if postBulk {
		mode = scheduler.ModeBulk
	}

	summary, err := s.Run(ctx, mode)
	if err != nil {
		return fmt.Errorf("post run failed: %w", err)
	}

	if postVerbose {
		observability.NewPrinter(os.Stdout).PrintPostSummary(mode, summary)
	}
	_, _ = fmt.Fprintf(os.Stdout, "Posted %d of %d articles (%d failed)\n",
		summary.Succeeded, summary.Attempted, summary.Failed)

	return nil
}
