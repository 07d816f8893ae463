package crawler

import "errors"

// Errors reported by the coordinator. Construction errors surface before a
// run starts; ErrQueueExhaustedWithoutProgress is the one error a finished
// run can report.
var (
	// ErrNilFetcher is returned by New when no fetcher is supplied.
	ErrNilFetcher = errors.New("fetcher must not be nil")

	// ErrNilExtractor is returned by New when no extractor is supplied.
	ErrNilExtractor = errors.New("extractor must not be nil")

	// ErrNoTargets is returned when a run has nothing to do: no targets
	// remain after deduplication, or a keyword query expanded to zero
	// pages.
	ErrNoTargets = errors.New("no targets to process")

	// ErrQueueExhaustedWithoutProgress means the queue drained but not a
	// single target reached done or failed. A run that ends this way has
	// a bug upstream: every settled target lands in exactly one of the
	// two buckets, so the counts cannot all be zero while targets exist.
	ErrQueueExhaustedWithoutProgress = errors.New("queue exhausted without progress")
)
