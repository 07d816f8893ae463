package model

import "errors"

// Validation errors returned when constructing Targets, SelectorRules, and
// FetchPolicies. Construction is the only place this package reports errors;
// everything after construction is plain immutable data.
//
// Design decision: We use package-level sentinel errors rather than creating
// new error instances at each call site. This allows callers to use
// errors.Is() for programmatic handling while still providing human-readable
// messages. Dynamic context (the offending URL or field name) is added by
// wrapping these sentinels with fmt.Errorf and %w.
var (
	// ErrUnsupportedScheme is returned when a target URL is not http or https.
	// The engine speaks plain HTTP only; other schemes cannot be fetched.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme: only http and https are allowed")

	// ErrMissingHost is returned when a target URL has no host component.
	ErrMissingHost = errors.New("invalid target URL: missing host")

	// ErrUnknownScrapeType is returned when a scrape type is not one of
	// news, product, social, or generic.
	ErrUnknownScrapeType = errors.New("unknown scrape type: must be news, product, social, or generic")

	// ErrEmptyFieldName is returned when a selector rule has a blank field name.
	ErrEmptyFieldName = errors.New("selector rule has empty field name")

	// ErrEmptySelector is returned when a selector rule has a blank path.
	ErrEmptySelector = errors.New("selector rule has empty path")

	// ErrDuplicateField is returned when two rules in the same set share a
	// field name. Field names key the extracted record, so they must be unique.
	ErrDuplicateField = errors.New("duplicate field name in selector rule set")

	// ErrUnknownTransform is returned when a rule names a transform that is
	// not text, attribute, or number.
	ErrUnknownTransform = errors.New("unknown transform: must be text, attribute, or number")

	// ErrMissingAttribute is returned when a rule uses the attribute transform
	// without naming which attribute to read.
	ErrMissingAttribute = errors.New("attribute transform requires an attribute name")

	// ErrNegativeRuneBound is returned when a rule's min or max rune bound is
	// negative. Use 0 to disable a bound.
	ErrNegativeRuneBound = errors.New("selector rule rune bounds must be non-negative")

	// ErrInvalidConcurrency is returned when a fetch policy's concurrency
	// limit is zero or negative. At least one worker is required to make
	// progress.
	ErrInvalidConcurrency = errors.New("invalid max concurrency: must be positive")

	// ErrNegativeDelay is returned when a fetch policy's delay is negative.
	// Use 0 for no politeness spacing.
	ErrNegativeDelay = errors.New("invalid delay: must be non-negative")

	// ErrNegativeRetries is returned when a fetch policy's retry budget is
	// negative. Use 0 to disable retries.
	ErrNegativeRetries = errors.New("invalid max retries: must be non-negative")

	// ErrNegativeMaxItems is returned when a fetch policy's record cap is
	// negative. Use 0 for no cap.
	ErrNegativeMaxItems = errors.New("invalid max items: must be non-negative")

	// ErrNoKeywords is returned when a keyword query has no keywords.
	ErrNoKeywords = errors.New("keyword query has no keywords")

	// ErrNoSeeds is returned when a keyword query has no seed URLs to expand
	// from.
	ErrNoSeeds = errors.New("keyword query has no seed URLs")
)
