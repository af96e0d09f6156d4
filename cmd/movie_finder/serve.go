package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/movie-finder/internal/config"
	"github.com/jonathan/movie-finder/internal/pipeline"
	"github.com/jonathan/movie-finder/internal/server"
)

var (
	serveConfigPath string
	servePort       int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard HTTP server",
	Long:  `Starts the dashboard server: scrapes on startup, then serves the movie list, status, and a live status stream, with refresh on demand.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config.json file")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if servePort > 0 {
		cfg.Port = servePort
	}

	srv := server.New(cfg, pipeline.NewRunner(cfg))
	return srv.Start()
}
