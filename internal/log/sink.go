package log

import (
	"log/slog"

	"github.com/websift/websift/internal/model"
)

// EventLogger logs coordinator lifecycle events through a slog.Logger.
// It is the display-side event sink: useful for tracing a run in verbose
// mode while the history store keeps the durable copy.
type EventLogger struct {
	logger *slog.Logger
}

// NewEventLogger returns a sink that logs every event at debug level.
// A nil logger falls back to slog.Default().
func NewEventLogger(logger *slog.Logger) *EventLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventLogger{logger: logger}
}

// OnEvent logs one lifecycle transition. The coordinator already reports
// failures at warn level, so the sink stays at debug to avoid duplicate
// warnings.
func (l *EventLogger) OnEvent(event model.Event) {
	if event.Detail != "" {
		l.logger.Debug("target state",
			"url", event.URL,
			"state", event.State.String(),
			"attempts", event.Attempts,
			"detail", event.Detail,
		)
		return
	}

	l.logger.Debug("target state",
		"url", event.URL,
		"state", event.State.String(),
		"attempts", event.Attempts,
	)
}
