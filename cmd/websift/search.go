package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/websift/websift/internal/config"
	"github.com/websift/websift/internal/log"
	"github.com/websift/websift/internal/model"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [keyword...]",
		Short: "Discover and scrape pages that match keywords",
		Long: `Search expands seed pages into scrape targets and keeps the records whose
pages match the given keywords.

Each seed page is fetched and its links become targets, capped by
--max-pages. Every target is then scraped with the run's selector rules,
and a record enters the result only when its page text contains at least
one keyword (case-insensitive). Matching records are annotated with the
keywords that matched.

Examples:
  # Find mentions across a news site
  websift search climate --seed https://news.example.com

  # Multiple keywords and seeds
  websift search gpu shortage --seed https://news.example.com --seed https://tech.example.com

  # Cap the search at 10 pages and save matches as JSON
  websift search sale --seed https://shop.example.com --max-pages 10 -j -o matches.json`,
		Args: cobra.ArbitraryArgs,
		RunE: runSearchCmd,
	}

	// Search expansion flags
	cmd.Flags().StringSliceP("seed", "s", nil,
		"Seed page whose links become targets (repeatable)")
	cmd.Flags().IntP("max-pages", "p", model.DefaultMaxSearchPages,
		"Maximum number of pages fetched during the search")

	addRunFlags(cmd)

	return cmd
}

// runSearchCmd executes the search command.
func runSearchCmd(cmd *cobra.Command, args []string) error {
	// Build config from profile and flags; positional arguments are
	// keywords here, not target URLs
	cfg, err := buildConfig(cmd, nil)
	if err != nil {
		return err
	}
	cfg.Keywords = args

	cfg.Seeds, err = cmd.Flags().GetStringSlice("seed")
	if err != nil {
		return err
	}

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging
	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runSearch(ctx, cfg, logger)
}

// runSearch executes the keyword search.
func runSearch(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	query, err := cfg.BuildQuery()
	if err != nil {
		return err
	}

	logger.Info("starting search",
		"keywords", query.Keywords,
		"seeds", len(query.Seeds),
		"maxPages", query.MaxPages,
		"saveHistory", cfg.SaveHistory,
	)

	// The expanded target count is only known mid-run; the seed count is
	// recorded first and corrected by the final stats.
	coord, store, runID, err := newCoordinator(ctx, cfg, logger, "search", len(query.Seeds))
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	fmt.Fprintf(os.Stderr, "Searching %d seed(s) for %d keyword(s)...\n",
		len(query.Seeds), len(query.Keywords))
	startTime := time.Now()

	result, runErr := coord.Search(ctx, query)

	if result != nil {
		elapsed := time.Since(startTime).Round(time.Millisecond)
		if runErr != nil {
			fmt.Fprintf(os.Stderr, "Search interrupted after %s; writing partial results\n\n", elapsed)
		} else {
			fmt.Fprintf(os.Stderr, "Search completed in %s\n\n", elapsed)
		}

		saveRunResult(store, runID, result, logger)

		if err := outputResult(cfg, result); err != nil {
			return err
		}
	}

	return runErr
}
