package crawler

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/websift/websift/internal/extractor"
	"github.com/websift/websift/internal/fetcher"
	"github.com/websift/websift/internal/model"
)

// Fetcher retrieves one document. Implementations own retry, politeness,
// and robots handling; the coordinator only sees the final outcome.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*model.Document, error)
}

// Extractor turns a document into a record and exposes the document's
// visible text for keyword matching.
type Extractor interface {
	Extract(doc *model.Document, rules []model.SelectorRule) (*model.Record, error)
	Text(doc *model.Document) string
}

// EventSink receives state-transition events during a run. Sinks are called
// synchronously from worker goroutines and must be safe for concurrent use.
type EventSink interface {
	OnEvent(event model.Event)
}

// gateFunc decides whether an extracted record enters the result. It may
// annotate the record before admitting it. A nil gate admits everything.
type gateFunc func(doc *model.Document, rec *model.Record) bool

// Coordinator drives scraping runs. Construct once with New and reuse; a
// Coordinator carries no per-run state.
type Coordinator struct {
	fetcher   Fetcher
	extractor Extractor
	policy    model.FetchPolicy
	logger    *slog.Logger
	sinks     []EventSink
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger for run progress and failure diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithEventSink registers a sink for target state transitions. May be given
// more than once; sinks are invoked in registration order.
func WithEventSink(sink EventSink) Option {
	return func(c *Coordinator) {
		if sink != nil {
			c.sinks = append(c.sinks, sink)
		}
	}
}

// New creates a Coordinator. An invalid policy is reported here, before any
// run starts; everything that can go wrong later is per-target and lands in
// the run's failure log instead.
func New(f Fetcher, e Extractor, policy model.FetchPolicy, opts ...Option) (*Coordinator, error) {
	if f == nil {
		return nil, ErrNilFetcher
	}
	if e == nil {
		return nil, ErrNilExtractor
	}
	policy = policy.Normalized()
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	c := &Coordinator{
		fetcher:   f,
		extractor: e,
		policy:    policy,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// Run processes the targets and returns the collected records, the failure
// log, and run stats. Targets whose URLs normalize to the same form are
// processed once.
//
// Once a run starts it always returns a usable result, even alongside an
// error: on context cancellation the partial result contains everything
// settled before the cancel. Per-target failures never surface as Run
// errors. The one pre-run error is ErrNoTargets for an empty queue.
func (c *Coordinator) Run(ctx context.Context, targets []model.Target) (*model.CrawlResult, error) {
	return c.run(ctx, targets, nil)
}

func (c *Coordinator) run(ctx context.Context, targets []model.Target, gate gateFunc) (*model.CrawlResult, error) {
	queue := dedupe(targets)
	if len(queue) == 0 {
		return nil, ErrNoTargets
	}

	// The item cap stops the run by canceling this context. The parent
	// context stays untouched, which is how cap stops and user cancels
	// are told apart afterwards.
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	st := &runState{
		result:   model.NewCrawlResult(),
		maxItems: c.policy.MaxItems,
		stop:     stop,
	}
	st.result.Stats.StartedAt = time.Now().UTC()
	st.result.Stats.Targets = len(queue)

	c.logger.Info("run started",
		"targets", len(queue),
		"deduplicated", len(targets)-len(queue),
		"max_concurrency", c.policy.MaxConcurrency,
	)
	for _, target := range queue {
		c.emit(model.Event{Time: time.Now().UTC(), URL: target.URL, State: model.StatePending})
	}

	g, groupCtx := errgroup.WithContext(runCtx)
	g.SetLimit(c.policy.MaxConcurrency)

	for _, target := range queue {
		if groupCtx.Err() != nil {
			break
		}
		target := target
		g.Go(func() error {
			return c.process(groupCtx, target, st, gate)
		})
	}

	err := g.Wait()
	st.result.Stats.FinishedAt = time.Now().UTC()
	st.result.Stats.Records = len(st.result.Records)

	c.logger.Info("run finished",
		"done", st.result.Stats.Done,
		"failed", st.result.Stats.Failed,
		"records", st.result.Stats.Records,
		"duration", st.result.Stats.Duration(),
	)

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled) && ctx.Err() == nil:
		// Stopped by the item cap, not the caller. Not an error.
		err = nil
	default:
		return st.result, err
	}

	// A caller cancel that landed before any worker started leaves g.Wait
	// with nothing to report; the run is still a cancellation.
	if ctx.Err() != nil {
		return st.result, ctx.Err()
	}

	if st.result.Stats.Targets > 0 && st.result.Stats.Done == 0 && st.result.Stats.Failed == 0 {
		return st.result, ErrQueueExhaustedWithoutProgress
	}
	return st.result, nil
}

// process moves one target through fetch and extract. Failures are recorded
// in the run state and absorbed; the only error a worker propagates is the
// context's, so one bad target can never cancel the group.
func (c *Coordinator) process(ctx context.Context, target model.Target, st *runState, gate gateFunc) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	c.emit(model.Event{Time: time.Now().UTC(), URL: target.URL, State: model.StateFetching})
	doc, err := c.fetcher.Fetch(ctx, target.URL)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.fail(st, target.URL, err, 0)
		return nil
	}

	c.emit(model.Event{Time: time.Now().UTC(), URL: target.URL, State: model.StateExtracting, Attempts: doc.Attempts})
	rec, err := c.extractor.Extract(doc, target.Rules)
	if err != nil {
		c.fail(st, target.URL, err, doc.Attempts)
		return nil
	}
	rec.Type = target.Type

	if gate != nil && !gate(doc, rec) {
		c.logger.Debug("record dropped by keyword gate", "url", target.URL)
		rec = nil
	}

	st.done(rec)
	c.emit(model.Event{Time: time.Now().UTC(), URL: target.URL, State: model.StateDone, Attempts: doc.Attempts})
	return nil
}

// fail records a target in the failure log and emits the failed event.
// attempts is used when the error carries no attempt count of its own,
// which is the case for extraction errors.
func (c *Coordinator) fail(st *runState, targetURL string, err error, attempts int) {
	kind, errAttempts := classifyError(err)
	if errAttempts > 0 {
		attempts = errAttempts
	}

	c.logger.Warn("target failed",
		"url", targetURL,
		"error_kind", kind,
		"attempts", attempts,
		"error", err,
	)
	st.fail(model.Failure{URL: targetURL, ErrorKind: kind, Attempts: attempts})
	c.emit(model.Event{
		Time:     time.Now().UTC(),
		URL:      targetURL,
		State:    model.StateFailed,
		Detail:   err.Error(),
		Attempts: attempts,
	})
}

// classifyError maps an error to the failure-log kind and, for fetch
// errors, the attempt count it carries.
func classifyError(err error) (string, int) {
	var fetchErr *fetcher.FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind.String(), fetchErr.Attempts
	}
	var extractErr *extractor.ExtractError
	if errors.As(err, &extractErr) {
		return extractErr.Kind.String(), 0
	}
	return "error", 0
}

// emit delivers an event to every sink in order.
func (c *Coordinator) emit(event model.Event) {
	for _, sink := range c.sinks {
		sink.OnEvent(event)
	}
}

// runState is the mutable part of a live run: the growing result and the
// item cap. All access goes through its methods, which hold the mutex.
type runState struct {
	mu       sync.Mutex
	result   *model.CrawlResult
	maxItems int
	stop     context.CancelFunc
}

// done settles a target as completed. rec is nil when the keyword gate
// dropped the record; the target still counts as done. Reaching the item
// cap stops the run; records finishing after the cap are dropped.
func (st *runState) done(rec *model.Record) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.result.Stats.Done++
	if rec == nil {
		return
	}
	if st.maxItems > 0 && len(st.result.Records) >= st.maxItems {
		return
	}
	st.result.AddRecord(rec)
	if st.maxItems > 0 && len(st.result.Records) >= st.maxItems {
		st.stop()
	}
}

// fail settles a target as failed.
func (st *runState) fail(f model.Failure) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.result.Stats.Failed++
	st.result.AddFailure(f)
}

// dedupe drops targets whose URLs normalize to a form already seen,
// preserving first-seen order.
func dedupe(targets []model.Target) []model.Target {
	seen := make(map[string]struct{}, len(targets))
	queue := make([]model.Target, 0, len(targets))
	for _, t := range targets {
		key := normalizeURL(t.URL)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		queue = append(queue, t)
	}
	return queue
}

// normalizeURL reduces a URL to its identity form: lowercase scheme and
// host, no fragment, "/" for an empty path, and query parameters in sorted
// order. Two URLs with the same normalized form are the same target.
func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}
	if u.RawQuery != "" {
		u.RawQuery = u.Query().Encode()
	}
	return u.String()
}
