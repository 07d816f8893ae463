package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/websift/websift/internal/config"
	"github.com/websift/websift/internal/crawler"
	"github.com/websift/websift/internal/export"
	"github.com/websift/websift/internal/extractor"
	"github.com/websift/websift/internal/fetcher"
	"github.com/websift/websift/internal/history"
	"github.com/websift/websift/internal/log"
	"github.com/websift/websift/internal/model"
)

// saveTimeout bounds the history write after a run, so a slow disk cannot
// keep a finished run from exiting.
const saveTimeout = 30 * time.Second

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [url...]",
		Short: "Scrape structured records from web pages",
		Long: `Scrape fetches the given pages and extracts structured records from them
using CSS selector rules.

The scrape type picks the rule set: news (title, headlines, links), product
(names, prices), social (posts, authors), or generic (title, text). A
.websift.yaml profile can replace these rules per type or per target, and
can provide the target list itself so a recurring job is a bare
"websift scrape".

Fetching is polite: requests to the same host are spaced out, robots.txt
rules are honored, and transient failures are retried with backoff.

Examples:
  # Scrape one page with the generic rules
  websift scrape https://example.com

  # Scrape a news site
  websift scrape -t news https://news.example.com

  # Scrape several product pages concurrently
  websift scrape -t product https://shop.example.com/a https://shop.example.com/b

  # Write records to a CSV file
  websift scrape -t product --csv -o records.csv https://shop.example.com

  # Scrape the targets listed in .websift.yaml
  websift scrape`,
		Args: cobra.ArbitraryArgs,
		RunE: runScrapeCmd,
	}

	addRunFlags(cmd)

	return cmd
}

// addRunFlags registers the flags shared by the scrape and search commands.
func addRunFlags(cmd *cobra.Command) {
	// Extraction flags
	cmd.Flags().StringP("type", "t", model.TypeGeneric.String(),
		"Scrape type: news, product, social, or generic")

	// Fetch policy flags
	cmd.Flags().Duration("delay", model.DefaultDelay,
		"Delay between requests to the same host")
	cmd.Flags().Int("max-retries", model.DefaultMaxRetries,
		"Retries for transient fetch failures (timeouts, 429, 5xx)")
	cmd.Flags().Int("concurrency", model.DefaultMaxConcurrency,
		"Number of targets fetched concurrently")
	cmd.Flags().Duration("timeout", model.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Int64("max-body-bytes", model.DefaultMaxBodyBytes,
		"Maximum response body size in bytes")
	cmd.Flags().String("user-agent", model.DefaultUserAgent,
		"User-Agent header sent with each request")
	cmd.Flags().Bool("no-robots", false,
		"Ignore robots.txt rules")
	cmd.Flags().Int("max-items", 0,
		"Stop after collecting this many records (0 = unlimited)")

	// Profile file
	cmd.Flags().StringP("profile", "c", "",
		"Profile file path (default: .websift.yaml in current or home directory)")

	// Output flags
	cmd.Flags().BoolP("json", "j", false,
		"Output results as JSON (mutually exclusive with --csv and --markdown)")
	cmd.Flags().Bool("csv", false,
		"Output records as CSV (mutually exclusive with --json and --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output run summary as Markdown (mutually exclusive with --json and --csv)")
	cmd.Flags().StringP("output", "o", "",
		"Write results to specified file path (creates directories if needed)")

	// History flags
	cmd.Flags().Bool("no-history", false,
		"Do not record the run in the history database")
}

// runScrapeCmd executes the scrape command.
func runScrapeCmd(cmd *cobra.Command, args []string) error {
	// Build config from profile and flags
	cfg, err := buildConfig(cmd, args)
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

	return runScrape(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from the profile file and cobra command
// flags. Precedence is defaults, then profile, then explicitly set flags,
// so a profile value survives unless the user overrides it on the command
// line.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	// Get flag values
	var err error

	cfg.ProfilePath, err = cmd.Flags().GetString("profile")
	if err != nil {
		return nil, err
	}

	// If user explicitly specified a profile path, error if not found.
	// If no path specified, silently skip when no profile file exists.
	explicitProfile := cfg.ProfilePath != ""
	profilePath := config.FindProfile(cfg.ProfilePath)

	if profilePath != "" {
		profile, err := config.LoadProfile(profilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load profile %s: %w", profilePath, err)
		}
		profile.Apply(cfg)
	} else if explicitProfile {
		// User explicitly specified a profile file that doesn't exist
		return nil, fmt.Errorf("profile file not found: %s", cfg.ProfilePath)
	}

	cfg.ScrapeType, err = cmd.Flags().GetString("type")
	if err != nil {
		return nil, err
	}

	// Policy flags override the profile only when set on the command line
	if cmd.Flags().Changed("delay") {
		cfg.Delay, err = cmd.Flags().GetDuration("delay")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("max-retries") {
		cfg.MaxRetries, err = cmd.Flags().GetInt("max-retries")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("concurrency") {
		cfg.MaxConcurrency, err = cmd.Flags().GetInt("concurrency")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("timeout") {
		cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("max-body-bytes") {
		cfg.MaxBodyBytes, err = cmd.Flags().GetInt64("max-body-bytes")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("user-agent") {
		cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("no-robots") {
		noRobots, err := cmd.Flags().GetBool("no-robots")
		if err != nil {
			return nil, err
		}
		cfg.RespectRobots = !noRobots
	}

	if cmd.Flags().Changed("max-items") {
		cfg.MaxItems, err = cmd.Flags().GetInt("max-items")
		if err != nil {
			return nil, err
		}
	}

	cfg.JSONOutput, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.CSVOutput, err = cmd.Flags().GetBool("csv")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownOutput, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.OutputFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveHistory = !noHistory

	cfg.Verbose = getVerboseFlag(cmd)

	// Get positional arguments (target URLs)
	cfg.Targets = args

	return cfg, nil
}

// runScrape executes the scrape.
func runScrape(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	targets, err := cfg.BuildTargets()
	if err != nil {
		return err
	}

	logger.Info("starting scrape",
		"targets", len(targets),
		"type", cfg.ScrapeType,
		"concurrency", cfg.MaxConcurrency,
		"saveHistory", cfg.SaveHistory,
	)

	coord, store, runID, err := newCoordinator(ctx, cfg, logger, "scrape", len(targets))
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	fmt.Fprintf(os.Stderr, "Scraping %d target(s)...\n", len(targets))
	startTime := time.Now()

	result, runErr := coord.Run(ctx, targets)

	if result != nil {
		elapsed := time.Since(startTime).Round(time.Millisecond)
		if runErr != nil {
			fmt.Fprintf(os.Stderr, "Run interrupted after %s; writing partial results\n\n", elapsed)
		} else {
			fmt.Fprintf(os.Stderr, "Run completed in %s\n\n", elapsed)
		}

		saveRunResult(store, runID, result, logger)

		if err := outputResult(cfg, result); err != nil {
			return err
		}
	}

	return runErr
}

// newCoordinator wires the fetcher, extractor, and event sinks into a run
// coordinator. When history is enabled the returned store is open and the
// run is registered in it; the caller owns closing the store.
func newCoordinator(ctx context.Context, cfg *config.Config, logger *slog.Logger, mode string, targets int) (*crawler.Coordinator, *history.Store, int64, error) {
	policy := cfg.Policy()

	f, err := fetcher.New(policy, fetcher.WithLogger(logger))
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to create fetcher: %w", err)
	}
	e := extractor.New(extractor.WithLogger(logger))

	opts := []crawler.Option{
		crawler.WithLogger(logger),
		crawler.WithEventSink(log.NewEventLogger(logger)),
	}

	var store *history.Store
	var runID int64
	if cfg.SaveHistory {
		store, err = history.Open(cfg.DBDir, history.DefaultOptions())
		if err != nil {
			return nil, nil, 0, fmt.Errorf("failed to open history database: %w", err)
		}

		runID, err = store.BeginRun(ctx, mode, targets)
		if err != nil {
			_ = store.Close() //nolint:errcheck // Best effort cleanup
			return nil, nil, 0, fmt.Errorf("failed to begin history run: %w", err)
		}

		opts = append(opts, crawler.WithEventSink(history.NewRunSink(store, runID, logger)))
		logger.Info("history database opened", "dir", cfg.DBDir, "run_id", runID)
	}

	coord, err := crawler.New(f, e, policy, opts...)
	if err != nil {
		if store != nil {
			_ = store.Close() //nolint:errcheck // Best effort cleanup
		}
		return nil, nil, 0, err
	}

	return coord, store, runID, nil
}

// saveRunResult persists the run outcome to the history database. It uses
// a fresh context so a cancelled run still lands in history. If store is
// nil, this function is a no-op.
func saveRunResult(store *history.Store, runID int64, result *model.CrawlResult, logger *slog.Logger) {
	if store == nil || result == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := store.SaveResult(ctx, runID, result); err != nil {
		logger.Error("failed to save run to history", "run_id", runID, "error", err)
		return
	}
	logger.Info("run saved to history", "run_id", runID, "records", len(result.Records))
}

// outputResult writes the run result in the requested format.
func outputResult(cfg *config.Config, result *model.CrawlResult) error {
	// Determine output destination
	var output *os.File
	if cfg.OutputFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.OutputFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Create/overwrite the output file with owner-only permissions;
		// scraped content is the user's data until they decide otherwise
		f, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer export.Writer
	switch {
	case cfg.JSONOutput:
		writer = export.NewJSONWriter(output, export.WithPrettyPrint())
	case cfg.CSVOutput:
		writer = export.NewCSVWriter(output)
	case cfg.MarkdownOutput:
		writer = export.NewMarkdownWriter(output)
	default:
		// Human-readable summary (default)
		writer = export.NewSummaryWriter(output, export.WithVerbose(cfg.Verbose))
	}

	_, err := writer.Write(result)
	return err
}
