package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/movie-finder/internal/cache"
	"github.com/jonathan/movie-finder/internal/config"
	"github.com/jonathan/movie-finder/internal/fetch"
	"github.com/jonathan/movie-finder/internal/ratings"
	"github.com/jonathan/movie-finder/internal/slug"
)

var (
	resolveConfigPath string
	resolveNoCache    bool
	resolveVerbose    bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <title>...",
	Short: "Resolve one or more titles against Letterboxd",
	Long: `Resolves each title through the full fallback chain and prints the
canonical URL and rating. Useful for checking how a noisy marquee title
normalizes.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveConfigPath, "config", "", "Path to config.json file")
	resolveCmd.Flags().BoolVar(&resolveNoCache, "no-cache", false, "Skip the persisted ratings cache")
	resolveCmd.Flags().BoolVarP(&resolveVerbose, "verbose", "v", false, "Print each fallback attempt")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(_ *cobra.Command, args []string) error {
	cfg, err := config.Load(resolveConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var store *cache.Store
	if !resolveNoCache {
		store, err = cache.Open(cfg.CachePath)
		if err != nil {
			fmt.Printf("Warning: ratings cache unavailable (%v), continuing without it\n", err)
		}
	}

	client := fetch.NewClient(&fetch.Options{Timeout: cfg.FetchTimeout, UserAgent: fetch.DefaultUserAgent})
	renderer := fetch.NewRenderer(0, resolveVerbose)
	resolver := ratings.NewResolver(ratings.NewFetcher(client, renderer, resolveVerbose), store, resolveVerbose)

	ctx := context.Background()
	for _, title := range args {
		fmt.Printf("%s\n", title)
		fmt.Printf("  slug: %s\n", slug.Canonical(title))

		rec := resolver.Resolve(ctx, title)
		if !rec.Found() {
			fmt.Printf("  not found on Letterboxd\n")
			continue
		}
		fmt.Printf("  url: %s\n", rec.URL)
		if rec.Rating != nil {
			marker := ""
			if rec.Computed {
				marker = " (computed)"
			}
			count := 0
			if rec.RatingCount != nil {
				count = *rec.RatingCount
			}
			fmt.Printf("  rating: %.2f from %d votes%s\n", *rec.Rating, count, marker)
		} else {
			fmt.Printf("  found but unrated\n")
		}
		if rec.Year != "" {
			fmt.Printf("  year: %s\n", rec.Year)
		}
	}
	return nil
}
