package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/trendblog/internal/config"
	"github.com/jonathan/trendblog/internal/db"
	"github.com/jonathan/trendblog/internal/generation"
	"github.com/jonathan/trendblog/internal/ghapi"
	"github.com/jonathan/trendblog/internal/llm"
	"github.com/jonathan/trendblog/internal/observability"
	"github.com/jonathan/trendblog/internal/trending"
	"github.com/jonathan/trendblog/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the weekly pipeline end-to-end",
	Long: `Orchestrates the weekly article generation process: scrape trending -> fetch README and metadata -> generate articles.

Intermediate artifacts are still written to the data directory so individual stages can be re-run afterwards. Publishing stays separate; use the post command for that.`,
	RunE: runPipelineCmd,
}

var (
	runWeek    string
	runAPIKey  string
	runVerbose bool
)

func init() {
	runCommand.Flags().StringVarP(&runWeek, "week", "w", "", "Week key, e.g. 2025-W41 (default: current ISO week)")
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Gemini API key (optional, defaults to GEMINI_API_KEY env var)")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed stage output")

	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	apiKey := runAPIKey
	if apiKey == "" {
		apiKey = cfg.GeminiAPIKey
	}
	if apiKey == "" {
		return fmt.Errorf("API key is required (set GEMINI_API_KEY environment variable or use --api-key flag)")
	}

	ctx := context.Background()
	printer := observability.NewPrinter(os.Stdout)

	// Stage 1: scrape the trending page.
	scraper := trending.NewScraper(trending.Options{
		Limit:       cfg.TrendingLimit,
		Timeout:     cfg.HTTPTimeout,
		MaxAttempts: cfg.MaxRetries,
	})
	repos, err := scraper.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch trending page: %w", err)
	}
	if err := writeJSONArtifact(filepath.Join(cfg.DataDir, "trending.json"), repos); err != nil {
		return err
	}
	if runVerbose {
		printer.PrintTrendingRepos(repos)
	}
	_, _ = fmt.Fprintf(os.Stdout, "Fetched %d trending repositories\n", len(repos))

	// Stage 2: fetch README and metadata.
	ghClient := ghapi.NewClient(ghapi.Options{
		Token:       cfg.GitHubToken,
		Timeout:     cfg.HTTPTimeout,
		Concurrency: cfg.FetchConcurrency,
		MaxAttempts: cfg.MaxRetries,
	})
	candidates, err := ghClient.FetchCandidates(ctx, repos)
	if err != nil {
		return fmt.Errorf("failed to fetch repository data: %w", err)
	}
	if err := writeJSONArtifact(filepath.Join(cfg.DataDir, "candidates.json"), candidates); err != nil {
		return err
	}
	if runVerbose {
		printer.PrintCandidates(candidates)
	}
	_, _ = fmt.Fprintf(os.Stdout, "Fetched %d candidates\n", len(candidates))

	// Stage 3: generate and store articles.
	weekKey := runWeek
	if weekKey == "" {
		weekKey = types.WeekKey(time.Now())
	}

	store, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer store.Close()

	llmClient, err := llm.NewClient(ctx, llm.DefaultConfig(), apiKey)
	if err != nil {
		return fmt.Errorf("failed to create generation client: %w", err)
	}
	defer func() { _ = llmClient.Close() }()

	pipeline := generation.NewPipeline(store, llmClient, generation.Options{
		MaxReadmeLength: cfg.MaxReadmeLength,
		CallTimeout:     cfg.HTTPTimeout,
		Policy: generation.Policy{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   time.Second,
		},
	})

	summary, err := pipeline.Run(ctx, weekKey, candidates)
	if err != nil {
		return fmt.Errorf("generation run failed: %w", err)
	}

	if runVerbose {
		printer.PrintGenerationSummary(weekKey, summary)
	}
	_, _ = fmt.Fprintf(os.Stdout, "Week %s: %d processed, %d generated, %d skipped, %d failed\n",
		weekKey, summary.Processed, summary.Generated, summary.Skipped, summary.Failed)

	return nil
}
