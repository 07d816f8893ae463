package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/websift/websift/internal/model"
)

// eventWriteTimeout bounds each event insert. The coordinator delivers
// events synchronously and without a context, so a stuck write must not
// stall the crawl workers.
const eventWriteTimeout = 2 * time.Second

// RunSink adapts a Store to the coordinator's event stream, appending every
// lifecycle event to one run. Write errors are logged and dropped so a
// persistence problem never interferes with a live run.
type RunSink struct {
	store  *Store
	runID  int64
	logger *slog.Logger
}

// NewRunSink returns a sink that appends events to the given run.
// A nil logger falls back to slog.Default().
func NewRunSink(store *Store, runID int64, logger *slog.Logger) *RunSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunSink{
		store:  store,
		runID:  runID,
		logger: logger,
	}
}

// OnEvent writes the event to the store. Safe for concurrent use; the
// store serializes writes on its single SQLite connection.
func (s *RunSink) OnEvent(event model.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), eventWriteTimeout)
	defer cancel()

	if err := s.store.AppendEvent(ctx, s.runID, event); err != nil {
		s.logger.Warn("history event write failed",
			"run_id", s.runID,
			"url", event.URL,
			"state", event.State.String(),
			"error", err,
		)
	}
}
