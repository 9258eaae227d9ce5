package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/trendblog/internal/config"
	"github.com/jonathan/trendblog/internal/ghapi"
	"github.com/jonathan/trendblog/internal/observability"
	"github.com/jonathan/trendblog/internal/types"
)

var fetchReadmeCmd = &cobra.Command{
	Use:   "fetch-readme",
	Short: "Fetch README and metadata for trending repositories",
	Long:  "Reads a trending JSON artifact, fetches each repository's README and metadata from the GitHub API concurrently, and writes the resulting candidates as a JSON artifact.",
	RunE:  runFetchReadme,
}

var (
	fetchReadmeIn      string
	fetchReadmeOut     string
	fetchReadmeVerbose bool
)

func init() {
	fetchReadmeCmd.Flags().StringVarP(&fetchReadmeIn, "in", "i", "", "Path to input trending JSON file (default: <data-dir>/trending.json)")
	fetchReadmeCmd.Flags().StringVarP(&fetchReadmeOut, "out", "o", "", "Path to output candidates JSON file (default: <data-dir>/candidates.json)")
	fetchReadmeCmd.Flags().BoolVarP(&fetchReadmeVerbose, "verbose", "v", false, "Print the fetched candidates")

	rootCmd.AddCommand(fetchReadmeCmd)
}

func runFetchReadme(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	inPath := fetchReadmeIn
	if inPath == "" {
		inPath = filepath.Join(cfg.DataDir, "trending.json")
	}

	var repos []types.TrendingRepo
	if err := readJSONArtifact(inPath, &repos); err != nil {
		return err
	}
	if len(repos) == 0 {
		return fmt.Errorf("no repositories in %s; run fetch-trending first", inPath)
	}

	client := ghapi.NewClient(ghapi.Options{
		Token:       cfg.GitHubToken,
		Timeout:     cfg.HTTPTimeout,
		Concurrency: cfg.FetchConcurrency,
		MaxAttempts: cfg.MaxRetries,
	})

	candidates, err := client.FetchCandidates(context.Background(), repos)
	if err != nil {
		return fmt.Errorf("failed to fetch repository data: %w", err)
	}

	outPath := fetchReadmeOut
	if outPath == "" {
		outPath = filepath.Join(cfg.DataDir, "candidates.json")
	}
	if err := writeJSONArtifact(outPath, candidates); err != nil {
		return err
	}

	if fetchReadmeVerbose {
		observability.NewPrinter(os.Stdout).PrintCandidates(candidates)
	}
	_, _ = fmt.Fprintf(os.Stdout, "Fetched %d candidates (%d skipped)\n", len(candidates), len(repos)-len(candidates))
	_, _ = fmt.Fprintf(os.Stdout, "Output: %s\n", outPath)

	return nil
}
