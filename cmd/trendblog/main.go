// Package main provides the trendblog CLI: it turns the weekly GitHub
// trending list into explainer articles and drip-feeds them to a blog API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "trendblog",
	Short: "GitHub trending explainer article pipeline",
	Long:  "trendblog scrapes the weekly GitHub trending page, generates explainer articles for new repositories, and publishes them to a blog API a few at a time.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
