package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Policy-level problems (concurrency, delay,
// retries) reuse the model package's sentinels so the CLI and the engine
// report the same error for the same mistake.
var (
	// ErrNoTarget is returned when a run has nothing to scrape: no URLs on
	// the command line, no keywords for a search, and no targets in the
	// profile.
	ErrNoTarget = errors.New("no target specified: provide URLs, keywords, or profile targets")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	// A timeout of zero or negative would cause immediate request failures.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrConflictingOutputFormats is returned when more than one of --json,
	// --csv, and --markdown is specified. Only one output format can be
	// used at a time.
	ErrConflictingOutputFormats = errors.New("conflicting output formats: --json, --csv, and --markdown cannot be combined")

	// ErrUnknownProfileType is returned when a profile target or rule set
	// names a scrape type the engine does not know.
	ErrUnknownProfileType = errors.New("unknown scrape type in profile")
)
