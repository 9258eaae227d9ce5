package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/trendblog/internal/config"
	"github.com/jonathan/trendblog/internal/db"
	"github.com/jonathan/trendblog/internal/observability"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the article backlog by status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	ctx := context.Background()

	store, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer store.Close()

	counts, err := store.StatusCounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to query article counts: %w", err)
	}

	observability.NewPrinter(os.Stdout).PrintStatusCounts(counts)
	return nil
}
