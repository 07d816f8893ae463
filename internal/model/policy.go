package model

import "time"

// Default policy values. These are engine-level fallbacks; the config
// package layers CLI and profile settings on top of them.
const (
	// DefaultDelay is the politeness spacing between same-host requests and
	// the starting retry backoff. One second is conservative enough not to
	// bother small sites while keeping runs reasonably fast.
	DefaultDelay = 1 * time.Second

	// DefaultMaxRetries allows two retries after the initial attempt, so a
	// transiently failing target is tried at most three times.
	DefaultMaxRetries = 2

	// DefaultMaxConcurrency bounds the worker pool. Five concurrent targets
	// keeps throughput useful without hammering any single site, since
	// same-host requests are additionally serialized by the delay.
	DefaultMaxConcurrency = 5

	// DefaultTimeout is the per-request timeout. Thirty seconds is generous
	// for slow origins while still letting a stuck run drain quickly.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodyBytes caps response bodies at 5MB. Larger documents are
	// truncated; selector extraction rarely needs more than the first few
	// hundred kilobytes of markup.
	DefaultMaxBodyBytes = 5 * 1024 * 1024

	// DefaultMaxSearchPages caps how many targets a keyword search may
	// expand into when the query does not say.
	DefaultMaxSearchPages = 30

	// DefaultUserAgent identifies websift in HTTP requests so operators can
	// recognize scraper traffic in their logs.
	DefaultUserAgent = "websift/1.0 (+https://github.com/websift/websift)"
)

// FetchPolicy carries the rate-limiting, retry, and concurrency settings for
// a crawl run. The policy is shared by every worker and read-only during the
// run.
type FetchPolicy struct {
	// Delay is the minimum spacing between consecutive requests to the
	// same host, regardless of which targets produced them, and the
	// starting wait between retry attempts (doubled after each failure).
	Delay time.Duration `json:"delay"`

	// MaxRetries is the number of retries after the first attempt on
	// transient failures. Total attempts are therefore MaxRetries+1.
	MaxRetries int `json:"max_retries"`

	// MaxConcurrency is the number of targets that may be in flight
	// (fetching or extracting) simultaneously.
	MaxConcurrency int `json:"max_concurrency"`

	// Timeout bounds each HTTP request, including retries individually.
	Timeout time.Duration `json:"timeout"`

	// MaxBodyBytes caps how much of a response body is read.
	MaxBodyBytes int64 `json:"max_body_bytes"`

	// UserAgent is sent with every request. Empty means DefaultUserAgent.
	UserAgent string `json:"user_agent"`

	// RespectRobots makes the fetcher honor each host's robots.txt
	// Disallow rules. Disallowed URLs fail permanently without a request.
	RespectRobots bool `json:"respect_robots"`

	// MaxItems caps the number of records collected in a run. Reaching the
	// cap stops the run early without error. 0 means no cap.
	MaxItems int `json:"max_items"`
}

// DefaultPolicy returns a FetchPolicy populated with the package defaults.
func DefaultPolicy() FetchPolicy {
	return FetchPolicy{
		Delay:          DefaultDelay,
		MaxRetries:     DefaultMaxRetries,
		MaxConcurrency: DefaultMaxConcurrency,
		Timeout:        DefaultTimeout,
		MaxBodyBytes:   DefaultMaxBodyBytes,
		UserAgent:      DefaultUserAgent,
	}
}

// Normalized returns a copy of the policy with zero-valued optional fields
// replaced by defaults. Validation is separate: Normalized never rejects.
func (p FetchPolicy) Normalized() FetchPolicy {
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	if p.MaxBodyBytes <= 0 {
		p.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if p.UserAgent == "" {
		p.UserAgent = DefaultUserAgent
	}
	return p
}

// Validate checks the policy for values that would make a run impossible or
// meaningless. These are the only configuration errors the engine reports
// synchronously; everything else surfaces per-target during the run.
func (p FetchPolicy) Validate() error {
	if p.MaxConcurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if p.Delay < 0 {
		return ErrNegativeDelay
	}
	if p.MaxRetries < 0 {
		return ErrNegativeRetries
	}
	if p.MaxItems < 0 {
		return ErrNegativeMaxItems
	}
	return nil
}
