package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonathan/movie-finder/internal/cache"
	"github.com/jonathan/movie-finder/internal/config"
)

var cacheConfigPath string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the persisted ratings cache",
	RunE:  runCacheStats,
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached ratings, most recent first",
	RunE:  runCacheList,
}

func init() {
	cacheCmd.PersistentFlags().StringVar(&cacheConfigPath, "config", "", "Path to config.json file")
	cacheCmd.AddCommand(cacheListCmd)
	rootCmd.AddCommand(cacheCmd)
}

func openCacheStore() (*cache.Store, error) {
	cfg, err := config.Load(cacheConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	store, err := cache.Open(cfg.CachePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ratings cache: %w", err)
	}
	return store, nil
}

func runCacheStats(_ *cobra.Command, _ []string) error {
	store, err := openCacheStore()
	if err != nil {
		return err
	}

	stats := store.Stats()
	fmt.Printf("Cache file:    %s\n", stats.Path)
	fmt.Printf("Entries:       %d\n", stats.Entries)
	fmt.Printf("Fresh (<24h):  %d\n", stats.Fresh)
	fmt.Printf("Stale:         %d\n", stats.Entries-stats.Fresh)
	return nil
}

func runCacheList(_ *cobra.Command, _ []string) error {
	store, err := openCacheStore()
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Title", "Rating", "Votes", "Year", "Updated"})
	for _, e := range store.Entries() {
		votes := ""
		if e.RatingCount != nil {
			votes = fmt.Sprintf("%d", *e.RatingCount)
			if e.Computed {
				votes += "*"
			}
		}
		t.AppendRow(table.Row{e.Title, fmt.Sprintf("%.2f", e.Rating), votes, e.Year, e.UpdatedAt.Format("2006-01-02 15:04")})
	}
	t.Render()
	return nil
}
