package model

import "time"

// Failure is one failure-log entry in a CrawlResult: a target that reached
// the failed state, with the error classification and how many fetch
// attempts it consumed.
type Failure struct {
	// URL is the target that failed.
	URL string `json:"url"`

	// ErrorKind classifies the failure: "permanent_failure", "timeout",
	// "parse_failure", and so on. Kinds come from the fetcher and
	// extractor error types.
	ErrorKind string `json:"error_kind"`

	// Attempts is the total number of fetch attempts made for the target.
	Attempts int `json:"attempt_count"`
}

// Stats summarizes a finished run.
type Stats struct {
	// Targets is how many unique targets entered the run after
	// deduplication.
	Targets int `json:"targets"`

	// Done is how many targets completed successfully.
	Done int `json:"done"`

	// Failed is how many targets reached the failed state.
	Failed int `json:"failed"`

	// Records is how many records were collected. Usually equals Done;
	// keyword-gated runs can drop records for targets that still count
	// as done.
	Records int `json:"records"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration returns the wall-clock length of the run.
func (s Stats) Duration() time.Duration {
	if s.FinishedAt.IsZero() || s.StartedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// CrawlResult aggregates everything a run produced: records in completion
// order, the failure log, and summary stats. The coordinator owns the result
// while the run is live and synchronizes appends; once Run returns, the
// result is immutable shared data.
//
// Completion order is the only ordering guarantee: records appear in the
// order their targets finished, which is unrelated to enqueue order.
type CrawlResult struct {
	// Records holds the extracted records in completion order.
	Records []*Record `json:"records"`

	// Failures holds the failure log in completion order.
	Failures []Failure `json:"failures"`

	// Stats summarizes the run.
	Stats Stats `json:"stats"`
}

// NewCrawlResult returns an empty result ready to grow.
// Slices are allocated up front so JSON output shows empty arrays rather
// than null.
func NewCrawlResult() *CrawlResult {
	return &CrawlResult{
		Records:  make([]*Record, 0),
		Failures: make([]Failure, 0),
	}
}

// AddRecord appends a record. Callers synchronize; the coordinator holds its
// result lock around this during a run.
func (r *CrawlResult) AddRecord(rec *Record) {
	r.Records = append(r.Records, rec)
}

// AddFailure appends a failure-log entry. Callers synchronize.
func (r *CrawlResult) AddFailure(f Failure) {
	r.Failures = append(r.Failures, f)
}

// RecordsByType counts records per scrape type. Used by summary output.
func (r *CrawlResult) RecordsByType() map[ScrapeType]int {
	counts := make(map[ScrapeType]int)
	for _, rec := range r.Records {
		counts[rec.Type]++
	}
	return counts
}
