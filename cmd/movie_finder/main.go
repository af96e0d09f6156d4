// Package main provides the entry point for the movie finder CLI and
// dashboard server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "movie_finder",
	Short: "NYC movie listings with Letterboxd ratings",
	Long:  "Movie Finder scrapes what's playing at NYC theaters, resolves every title against Letterboxd, and surfaces the ratings as a ranked list, a newsletter, or a live dashboard.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
