package fetcher

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/sha3"
	"golang.org/x/net/html/charset"

	"github.com/websift/websift/internal/model"
)

// maxBackoff caps the doubling retry wait. Without a cap a handful of
// retries against a long politeness delay could stall a worker for minutes.
const maxBackoff = 30 * time.Second

// hostState tracks the last request time for one host. The mutex is held
// across the politeness wait, which is what serializes same-host requests.
type hostState struct {
	mu   sync.Mutex
	last time.Time
}

// Fetcher retrieves documents over HTTP according to a FetchPolicy. It is
// safe for concurrent use; the politeness guarantee holds across all
// goroutines sharing one Fetcher.
type Fetcher struct {
	client *http.Client
	policy model.FetchPolicy
	logger *slog.Logger

	hostsMu sync.Mutex
	hosts   map[string]*hostState

	robotsMu sync.Mutex
	robots   map[string]*robotsRules
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient replaces the HTTP client. The caller owns the client's
// timeout; the policy timeout is not applied on top.
func WithClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithLogger sets the logger for retry and robots.txt diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New creates a Fetcher. The policy is normalized first, then validated;
// an invalid policy is the only synchronous failure this package reports.
func New(policy model.FetchPolicy, opts ...Option) (*Fetcher, error) {
	policy = policy.Normalized()
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	f := &Fetcher{
		policy: policy,
		hosts:  make(map[string]*hostState),
		robots: make(map[string]*robotsRules),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: policy.Timeout}
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f, nil
}

// Fetch retrieves one document. Transient failures (network errors, 5xx,
// 429) are retried up to MaxRetries times with a doubling wait starting at
// the policy delay; permanent failures (other 4xx, robots denial, non-HTML
// content) are returned immediately. The politeness wait runs before every
// attempt, including retries.
//
// Context cancellation surfaces as the context's error, not a FetchError,
// so callers can tell an aborted run from a failed target.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*model.Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &FetchError{Kind: KindPermanentFailure, URL: rawURL, Err: fmt.Errorf("invalid url: %w", err)}
	}
	if u.Host == "" {
		return nil, &FetchError{Kind: KindPermanentFailure, URL: rawURL, Err: errors.New("invalid url: missing host")}
	}

	if f.policy.RespectRobots {
		if rules := f.robotsFor(ctx, u); !rules.allowed(u.Path) {
			return nil, &FetchError{Kind: KindPermanentFailure, URL: rawURL, Err: ErrRobotsDisallowed}
		}
	}

	delay := f.policy.Delay
	var attempts int
	for {
		if err := f.waitTurn(ctx, u.Host); err != nil {
			return nil, err
		}

		doc, err := f.attempt(ctx, rawURL)
		attempts++
		if err == nil {
			doc.Attempts = attempts
			return doc, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			return nil, err
		}
		fetchErr.Attempts = attempts
		if !fetchErr.Temporary() {
			return nil, fetchErr
		}
		if attempts > f.policy.MaxRetries {
			return nil, &FetchError{
				Kind:       KindPermanentFailure,
				URL:        rawURL,
				StatusCode: fetchErr.StatusCode,
				Attempts:   attempts,
				Err:        fmt.Errorf("%w: %w", ErrRetriesExhausted, fetchErr.Err),
			}
		}

		f.logger.Debug("retrying fetch",
			"url", rawURL,
			"attempt", attempts,
			"wait", delay,
			"error", fetchErr.Err,
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
		if delay > maxBackoff {
			delay = maxBackoff
		}
	}
}

// attempt sends one request and builds the document. Errors are classified
// for the retry loop: network problems as timeouts, 5xx and 429 as
// retryable statuses, everything else as permanent.
func (f *Fetcher) attempt(ctx context.Context, rawURL string) (*model.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindPermanentFailure, URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.policy.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &FetchError{Kind: KindTimeout, URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &FetchError{
			Kind:       KindHTTPStatus,
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("server returned %s", resp.Status),
		}
	default:
		return nil, &FetchError{
			Kind:       KindPermanentFailure,
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("server returned %s", resp.Status),
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if !acceptableContentType(contentType) {
		return nil, &FetchError{
			Kind:       KindPermanentFailure,
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %s", ErrBodyNotHTML, contentType),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.policy.MaxBodyBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &FetchError{Kind: KindTimeout, URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}

	sum := sha3.Sum256(data)
	return &model.Document{
		URL:         rawURL,
		StatusCode:  resp.StatusCode,
		Body:        decodeBody(data, contentType),
		ContentType: contentType,
		ContentHash: hex.EncodeToString(sum[:]),
		FetchedAt:   time.Now().UTC(),
	}, nil
}

// waitTurn blocks until at least the policy delay has passed since the last
// request to host. Holding the host mutex across the wait is what spaces
// concurrent callers; the wait is context-aware so cancellation does not
// leave goroutines parked.
func (f *Fetcher) waitTurn(ctx context.Context, host string) error {
	h := f.host(host)
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.last.IsZero() {
		if wait := f.policy.Delay - time.Since(h.last); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	h.last = time.Now()
	return nil
}

// host returns the state for a host, creating it on first sight. Host names
// are folded to lowercase so politeness is not defeated by case variants.
func (f *Fetcher) host(name string) *hostState {
	name = strings.ToLower(name)

	f.hostsMu.Lock()
	defer f.hostsMu.Unlock()
	h, ok := f.hosts[name]
	if !ok {
		h = &hostState{}
		f.hosts[name] = h
	}
	return h
}

// acceptableContentType reports whether a response can be treated as
// markup. Missing or malformed headers are accepted; selector extraction
// on a mislabeled page degrades gracefully, but feeding image bytes to the
// parser helps nobody.
func acceptableContentType(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return true
	}
	switch {
	case strings.HasPrefix(mediaType, "text/"):
		return true
	case mediaType == "application/xhtml+xml" || mediaType == "application/xml":
		return true
	default:
		return false
	}
}

// decodeBody converts the raw response bytes to UTF-8 using the charset
// declared in the header or sniffed from the content. Decode failures fall
// back to the raw bytes.
func decodeBody(data []byte, contentType string) string {
	enc, _, _ := charset.DetermineEncoding(data, contentType)
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil || !utf8.Valid(decoded) {
		return string(data)
	}
	return string(decoded)
}
