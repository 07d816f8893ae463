package model

import (
	"time"
)

// Document is one fetched page as handed to the extractor. The fetcher owns
// construction; after that the document is never mutated, so it can be shared
// freely between the coordinator, the extractor, and event sinks.
type Document struct {
	// URL is the address that was fetched, after any redirects the HTTP
	// client followed.
	URL string `json:"url"`

	// StatusCode is the final HTTP response status.
	StatusCode int `json:"status_code"`

	// Body is the response body decoded to UTF-8 and capped at the
	// policy's MaxBodyBytes. Excluded from JSON to keep exports small.
	Body string `json:"-"`

	// ContentType is the MIME type from the Content-Type header.
	ContentType string `json:"content_type,omitempty"`

	// ContentHash is the SHA3-256 hex digest of the raw (pre-decode)
	// body bytes. Used by the history store for change detection across
	// runs.
	ContentHash string `json:"content_hash,omitempty"`

	// FetchedAt is when the successful response was received.
	FetchedAt time.Time `json:"fetched_at"`

	// Attempts is how many requests it took to obtain this document,
	// including the successful one.
	Attempts int `json:"attempts"`
}
