package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/trendblog/internal/config"
	"github.com/jonathan/trendblog/internal/observability"
	"github.com/jonathan/trendblog/internal/trending"
)

var fetchTrendingCmd = &cobra.Command{
	Use:   "fetch-trending",
	Short: "Scrape the weekly GitHub trending page",
	Long:  "Scrapes the GitHub trending page and writes the ranked repository list as a JSON artifact for later pipeline stages.",
	RunE:  runFetchTrending,
}

var (
	fetchTrendingOut      string
	fetchTrendingPeriod   string
	fetchTrendingLanguage string
	fetchTrendingLimit    int
	fetchTrendingVerbose  bool
)

func init() {
	fetchTrendingCmd.Flags().StringVarP(&fetchTrendingOut, "out", "o", "", "Path to output trending JSON file (default: <data-dir>/trending.json)")
	fetchTrendingCmd.Flags().StringVar(&fetchTrendingPeriod, "period", string(trending.PeriodWeekly), "Trending window: daily, weekly, or monthly")
	fetchTrendingCmd.Flags().StringVar(&fetchTrendingLanguage, "language", "", "Filter by programming language (default: all)")
	fetchTrendingCmd.Flags().IntVar(&fetchTrendingLimit, "limit", 0, "Maximum repositories to keep (default: TRENDING_LIMIT or 18)")
	fetchTrendingCmd.Flags().BoolVarP(&fetchTrendingVerbose, "verbose", "v", false, "Print the scraped repository list")

	rootCmd.AddCommand(fetchTrendingCmd)
}

func runFetchTrending(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	limit := cfg.TrendingLimit
	if fetchTrendingLimit > 0 {
		limit = fetchTrendingLimit
	}

	scraper := trending.NewScraper(trending.Options{
		Period:      trending.Period(fetchTrendingPeriod),
		Language:    fetchTrendingLanguage,
		Limit:       limit,
		Timeout:     cfg.HTTPTimeout,
		MaxAttempts: cfg.MaxRetries,
	})

	repos, err := scraper.Fetch(context.Background())
	if err != nil {
		return fmt.Errorf("failed to fetch trending page: %w", err)
	}

	outPath := fetchTrendingOut
	if outPath == "" {
		outPath = filepath.Join(cfg.DataDir, "trending.json")
	}
	if err := writeJSONArtifact(outPath, repos); err != nil {
		return err
	}

	if fetchTrendingVerbose {
		observability.NewPrinter(os.Stdout).PrintTrendingRepos(repos)
	}
	_, _ = fmt.Fprintf(os.Stdout, "Fetched %d trending repositories\n", len(repos))
	_, _ = fmt.Fprintf(os.Stdout, "Output: %s\n", outPath)

	return nil
}

// writeJSONArtifact marshals v with indentation and writes it to path,
// creating parent directories as needed.
func writeJSONArtifact(path string, v any) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if err := os.WriteFile(path, jsonBytes, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// readJSONArtifact reads path and unmarshals it into v.
func readJSONArtifact(path string, v any) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(content, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	return nil
}
