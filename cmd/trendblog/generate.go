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
	"github.com/jonathan/trendblog/internal/llm"
	"github.com/jonathan/trendblog/internal/observability"
	"github.com/jonathan/trendblog/internal/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate explainer articles for fetched candidates",
	Long:  "Reads a candidates JSON artifact, generates an explainer article for each repository not yet covered, and stores the results as pending articles.",
	RunE:  runGenerate,
}

var (
	generateIn      string
	generateWeek    string
	generateAPIKey  string
	generateVerbose bool
)

func init() {
	generateCmd.Flags().StringVarP(&generateIn, "in", "i", "", "Path to input candidates JSON file (default: <data-dir>/candidates.json)")
	generateCmd.Flags().StringVarP(&generateWeek, "week", "w", "", "Week key, e.g. 2025-W41 (default: current ISO week)")
	generateCmd.Flags().StringVar(&generateAPIKey, "api-key", "", "Gemini API key (overrides GEMINI_API_KEY env var)")
	generateCmd.Flags().BoolVarP(&generateVerbose, "verbose", "v", false, "Print the generation summary")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	apiKey := generateAPIKey
	if apiKey == "" {
		apiKey = cfg.GeminiAPIKey
	}
	if apiKey == "" {
		return fmt.Errorf("API key is required (set GEMINI_API_KEY environment variable or use --api-key flag)")
	}

	inPath := generateIn
	if inPath == "" {
		inPath = filepath.Join(cfg.DataDir, "candidates.json")
	}

	var candidates []types.Candidate
	if err := readJSONArtifact(inPath, &candidates); err != nil {
		return err
	}
	if len(candidates) == 0 {
		return fmt.Errorf("no candidates in %s; run fetch-readme first", inPath)
	}

	weekKey := generateWeek
	if weekKey == "" {
		weekKey = types.WeekKey(time.Now())
	}

	ctx := context.Background()

	store, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer store.Close()

	client, err := llm.NewClient(ctx, llm.DefaultConfig(), apiKey)
	if err != nil {
		return fmt.Errorf("failed to create generation client: %w", err)
	}
	defer func() { _ = client.Close() }()

	pipeline := generation.NewPipeline(store, client, generation.Options{
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

	if generateVerbose {
		observability.NewPrinter(os.Stdout).PrintGenerationSummary(weekKey, summary)
	}
	_, _ = fmt.Fprintf(os.Stdout, "Week %s: %d processed, %d generated, %d skipped, %d failed\n",
		weekKey, summary.Processed, summary.Generated, summary.Skipped, summary.Failed)

	return nil
}
