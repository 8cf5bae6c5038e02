package wallet

import (
	"context"

	"github.com/tidewallet/tidewallet/internal/logger"
)

// Event kinds emitted by the lifecycle manager and signing coordinator.
const (
	EventSessionAdded         = "session_added"
	EventSessionRemoved       = "session_removed"
	EventSessionRefreshed     = "session_refreshed"
	EventSessionRestoreFailed = "session_restore_failed"
	EventSignCompleted        = "sign_completed"
	EventSignFailed           = "sign_failed"
	EventDeauthorizeFailed    = "deauthorize_failed"
	EventDisconnectAll        = "disconnect_all"
)

// EventSink receives structured lifecycle events. Callers attach tracing or
// metrics here instead of parsing log text.
type EventSink interface {
	OnEvent(kind string, payload map[string]any)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) OnEvent(string, map[string]any) {}

// LogSink forwards events to the structured logger.
type LogSink struct{}

func (LogSink) OnEvent(kind string, payload map[string]any) {
	args := make([]any, 0, len(payload)*2+2)
	args = append(args, "event", kind)
	for k, v := range payload {
		args = append(args, k, v)
	}
	logger.Info(context.Background(), "wallet event", args...)
}
