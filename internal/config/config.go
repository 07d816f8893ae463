package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/websift/websift/internal/model"
)

// AppName is the application name used for XDG directory paths.
const AppName = "websift"

// Config holds all configuration options for websift.
// This struct is populated from CLI flags and the optional YAML profile and
// passed through the application via dependency injection rather than
// global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., PolicyConfig, OutputConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant
// benefit. The engine-facing subset is projected out through Policy().
type Config struct {
	// Targets is the list of URLs to scrape, from positional arguments.
	// When empty, the profile's targets are used instead.
	Targets []string

	// ScrapeType selects the default selector rule set ("news", "product",
	// "social", "generic"). Empty means generic.
	ScrapeType string

	// Keywords are the search terms for keyword mode. Keyword mode and
	// direct targets are separate commands; only one is set per run.
	Keywords []string

	// Seeds are the pages whose links are expanded in keyword mode.
	Seeds []string

	// MaxPages caps how many targets a keyword search may expand into.
	// Zero means the engine default.
	MaxPages int

	// Delay is the politeness spacing between same-host requests and the
	// starting retry backoff.
	Delay time.Duration

	// MaxRetries is the number of retries after the first attempt on
	// transient fetch failures.
	MaxRetries int

	// MaxConcurrency is the number of targets processed simultaneously.
	MaxConcurrency int

	// Timeout is the per-request timeout. This applies to individual
	// requests, not the overall run duration.
	Timeout time.Duration

	// MaxBodyBytes is the maximum response body size in bytes to read.
	// Responses larger than this are truncated. 0 means the default.
	MaxBodyBytes int64

	// UserAgent is the User-Agent header sent with HTTP requests.
	// A descriptive User-Agent helps site operators identify scraper
	// traffic in their logs.
	UserAgent string

	// RespectRobots makes the fetcher honor robots.txt Disallow rules.
	RespectRobots bool

	// MaxItems caps the number of records collected in a run. Reaching
	// the cap stops the run early. 0 means no cap.
	MaxItems int

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// JSONOutput writes the run result as JSON instead of the
	// human-readable summary. Mutually exclusive with CSVOutput and
	// MarkdownOutput.
	JSONOutput bool

	// CSVOutput writes the run's records as CSV. Mutually exclusive with
	// JSONOutput and MarkdownOutput.
	CSVOutput bool

	// MarkdownOutput writes the run summary as Markdown. Mutually
	// exclusive with JSONOutput and CSVOutput.
	MarkdownOutput bool

	// OutputFile is the destination path for the result. When empty, the
	// result is written to stdout. Parent directories are created
	// automatically.
	OutputFile string

	// ProfilePath is the path to the YAML profile. If empty, the tool
	// searches for .websift.yaml in the current directory and then in the
	// user's home directory.
	ProfilePath string

	// Profile holds the settings loaded from the profile file.
	// Populated by LoadProfile and nil when no profile is in use.
	Profile *Profile

	// DBDir is the directory path for the SQLite history database.
	// When set, run results are saved for later inspection with the
	// history command. Defaults to the XDG data directory.
	DBDir string

	// SaveHistory indicates whether to save the run to the history
	// database. On by default; the --no-history flag turns it off.
	SaveHistory bool
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use
// cases. Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout,
// concurrency). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	policy := model.DefaultPolicy()
	return &Config{
		ScrapeType:     model.TypeGeneric.String(),
		Delay:          policy.Delay,
		MaxRetries:     policy.MaxRetries,
		MaxConcurrency: policy.MaxConcurrency,
		Timeout:        policy.Timeout,
		MaxBodyBytes:   policy.MaxBodyBytes,
		UserAgent:      policy.UserAgent,
		RespectRobots:  true,
		SaveHistory:    true,
		DBDir:          XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for websift.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/websift
// On macOS: ~/Library/Application Support/websift
// On Windows: %LOCALAPPDATA%\websift
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for websift.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/websift
// On macOS: ~/Library/Application Support/websift
// On Windows: %APPDATA%\websift
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Policy projects the fetch-related settings into the engine's policy
// type, with zero-valued optional fields normalized to defaults.
func (c *Config) Policy() model.FetchPolicy {
	return model.FetchPolicy{
		Delay:          c.Delay,
		MaxRetries:     c.MaxRetries,
		MaxConcurrency: c.MaxConcurrency,
		Timeout:        c.Timeout,
		MaxBodyBytes:   c.MaxBodyBytes,
		UserAgent:      c.UserAgent,
		RespectRobots:  c.RespectRobots,
		MaxItems:       c.MaxItems,
	}.Normalized()
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any scraping begins.
//
// We chose to return the first error found rather than collecting all
// errors because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// We must have something to scrape: URLs, keywords, or profile targets
	if len(c.Targets) == 0 && len(c.Keywords) == 0 && !c.hasProfileTargets() {
		return ErrNoTarget
	}

	// Output formats are mutually exclusive
	formats := 0
	for _, enabled := range []bool{c.JSONOutput, c.CSVOutput, c.MarkdownOutput} {
		if enabled {
			formats++
		}
	}
	if formats > 1 {
		return ErrConflictingOutputFormats
	}

	// Timeout must be positive; zero timeout would cause immediate failures
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	// Policy-level constraints reuse the engine's own validation
	return c.Policy().Validate()
}

func (c *Config) hasProfileTargets() bool {
	return c.Profile != nil && len(c.Profile.Targets) > 0
}

// BuildTargets assembles the run's targets from the command line and the
// profile. Positional URLs win over profile targets: when both exist, the
// profile contributes only rules and policy, not extra targets.
func (c *Config) BuildTargets() ([]model.Target, error) {
	scrapeType, err := model.ParseScrapeType(c.ScrapeType)
	if err != nil {
		return nil, err
	}

	if len(c.Targets) > 0 {
		targets := make([]model.Target, 0, len(c.Targets))
		for _, raw := range c.Targets {
			target, err := model.NewTarget(raw, scrapeType, c.rulesFor(scrapeType))
			if err != nil {
				return nil, err
			}
			targets = append(targets, target)
		}
		return targets, nil
	}

	if c.Profile == nil {
		return nil, ErrNoTarget
	}
	targets := make([]model.Target, 0, len(c.Profile.Targets))
	for _, pt := range c.Profile.Targets {
		ptype := scrapeType
		if pt.Type != "" {
			ptype, err = model.ParseScrapeType(pt.Type)
			if err != nil {
				return nil, err
			}
		}
		rules := pt.Rules
		if len(rules) == 0 {
			rules = c.rulesFor(ptype)
		}
		target, err := model.NewTarget(pt.URL, ptype, rules)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// BuildQuery assembles the keyword query for search mode.
func (c *Config) BuildQuery() (model.KeywordQuery, error) {
	scrapeType, err := model.ParseScrapeType(c.ScrapeType)
	if err != nil {
		return model.KeywordQuery{}, err
	}
	query := model.KeywordQuery{
		Keywords: c.Keywords,
		Seeds:    c.Seeds,
		MaxPages: c.MaxPages,
		Type:     scrapeType,
		Rules:    c.rulesFor(scrapeType),
	}
	return query, query.Validate()
}

// rulesFor returns the profile's rule override for a scrape type, or nil
// when the engine defaults should apply.
func (c *Config) rulesFor(t model.ScrapeType) []model.SelectorRule {
	if c.Profile == nil {
		return nil
	}
	return c.Profile.Rules[t.String()]
}
