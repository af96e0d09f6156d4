package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonathan/movie-finder/internal/config"
	"github.com/jonathan/movie-finder/internal/newsletter"
	"github.com/jonathan/movie-finder/internal/observability"
	"github.com/jonathan/movie-finder/internal/pipeline"
	"github.com/jonathan/movie-finder/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Scrape all venues, resolve ratings, and print the ranked list",
	Long: `Runs one full pass: scrape the configured NYC theaters, resolve every
title against Letterboxd (using the local ratings cache), merge duplicates,
and print the result ranked by rating. Optionally renders the newsletter.`,
	RunE: runCmd,
}

var (
	runConfigPath    string
	runVenues        []string
	runNoCache       bool
	runConcurrency   int
	runThreshold     float64
	runNewsletter    bool
	runNewsletterDir string
	runSendEmail     bool
	runVerbose       bool
)

func init() {
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file")
	runCommand.Flags().StringSliceVar(&runVenues, "venues", nil, "Venue source tags to scrape (default: all)")
	runCommand.Flags().BoolVar(&runNoCache, "no-cache", false, "Skip the persisted ratings cache")
	runCommand.Flags().IntVar(&runConcurrency, "concurrency", 0, "Concurrent rating lookups (default from config)")
	runCommand.Flags().Float64Var(&runThreshold, "threshold", 0, "Minimum rating for the newsletter picks section")
	runCommand.Flags().BoolVar(&runNewsletter, "newsletter", false, "Render the HTML newsletter to disk")
	runCommand.Flags().StringVar(&runNewsletterDir, "newsletter-dir", "newsletters", "Directory for rendered newsletters")
	runCommand.Flags().BoolVar(&runSendEmail, "send-email", false, "Deliver the newsletter over SMTP (requires SMTP config)")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed progress")

	rootCmd.AddCommand(runCommand)
}

func runCmd(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(runConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if runThreshold > 0 {
		cfg.RatingThreshold = runThreshold
	}
	cfg.Verbose = cfg.Verbose || runVerbose

	runner := pipeline.NewRunner(cfg)
	status := observability.NewStatusLog(true)

	result := runner.Run(context.Background(), pipeline.RunOptions{
		Venues:       runVenues,
		DisableCache: runNoCache,
		Concurrency:  runConcurrency,
		Verbose:      cfg.Verbose,
		Status:       status,
	})

	printMovieTable(result)
	fmt.Println(result.Describe())

	if runNewsletter || runSendEmail {
		gen := newsletter.New(cfg.RatingThreshold, cfg.SMTP)
		html, err := gen.GenerateHTML(result.Movies)
		if err != nil {
			return err
		}
		path, err := gen.SaveToFile(runNewsletterDir, html)
		if err != nil {
			return err
		}
		fmt.Printf("Newsletter saved to %s\n", path)

		if runSendEmail {
			sent, err := gen.Send(html)
			if err != nil {
				return err
			}
			if sent {
				fmt.Println("Newsletter sent")
			} else {
				fmt.Println("SMTP not configured, skipping email")
			}
		}
	}

	return nil
}

// sortedByRating orders movies rating-descending, unrated and unmatched
// last, without mutating the input.
func sortedByRating(movies []types.MergedMovie) []types.MergedMovie {
	out := make([]types.MergedMovie, len(movies))
	copy(out, movies)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := -1.0, -1.0
		if out[i].Rating != nil {
			ri = *out[i].Rating
		}
		if out[j].Rating != nil {
			rj = *out[j].Rating
		}
		return ri > rj
	})
	return out
}

func printMovieTable(result pipeline.RunResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Title", "Rating", "Votes", "Year", "Venues"})

	rank := 0
	for _, m := range sortedByRating(result.Movies) {
		rank++
		rating := "—"
		if m.Rating != nil {
			rating = fmt.Sprintf("%.2f", *m.Rating)
		}
		votes := ""
		if m.RatingCount != nil {
			votes = fmt.Sprintf("%d", *m.RatingCount)
			if m.RatingComputed {
				votes += "*"
			}
		}
		t.AppendRow(table.Row{rank, m.Title, rating, votes, m.Year, m.Venue})
	}
	t.Render()

	if len(result.NotFound) > 0 {
		var titles []string
		for _, l := range result.NotFound {
			titles = append(titles, l.Title)
		}
		fmt.Printf("Not found on Letterboxd: %s\n", strings.Join(titles, "; "))
	}
}
