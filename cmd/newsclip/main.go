// Package main is the entry point for the newsclip CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adda-Baaj/newsclip/internal/app"
	"github.com/Adda-Baaj/newsclip/internal/config"
	"github.com/Adda-Baaj/newsclip/internal/logger"
)

var (
	cfg *config.Config
	log logger.Logger = logger.NopLogger{}
)

var rootCmd = &cobra.Command{
	Use:   "newsclip",
	Short: "Keyword-driven news clipping harvester",
	Long: `newsclip collects news for every registered client from paid news APIs,
Google News search, registered RSS feeds, news sitemaps and scraped listing
pages, deduplicates articles by URL and stores them with a summary and topic.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded

		l, err := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		log = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync(log)
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./newsclip.yaml)")
}

// openApp builds the application for commands that touch the store.
func openApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, cfg, log)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
