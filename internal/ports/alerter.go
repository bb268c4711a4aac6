// Package ports defines the interfaces between the watch pipeline and its
// adapters.
//
// Inputs (file readers, parsers, selectors) and outputs (notification sinks,
// metrics) are implemented in internal/adapters; the pipeline in internal/app
// only depends on the contracts below.
package ports

import (
	"context"
	"time"

	"github.com/xoelrdgz/roomwatch/internal/domain"
)

// NotificationSink delivers a finished notification.
//
// Implementations:
//   - XSOverlaySink: one UDP datagram per notification
//   - JSONSink: newline-delimited JSON to a writer (dry run)
//   - MemorySink: in-memory ring buffer
//   - FanOutSink: several sinks at once
//
// Delivery is best effort. Send must honor ctx and return promptly so a
// stalled endpoint cannot hold up ingestion.
type NotificationSink interface {
	// Send makes a single delivery attempt. There are no retries.
	Send(ctx context.Context, n *domain.Notification) error

	// Close releases sockets and files held by the sink.
	Close() error
}

// Clock is the real-time source the notifier measures suppression windows
// against.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// MetricsCollector receives pipeline events for export to monitoring.
//
// Thread Safety: all methods MUST be safe for concurrent calls.
type MetricsCollector interface {
	// IncrementNotifications counts one notifier decision by reason.
	IncrementNotifications(decision string)

	// IncrementSinkErrors counts a failed send by failure kind
	// ("encode", "transport", ...).
	IncrementSinkErrors(kind string)

	IncrementRotations()

	// ObserveCycle records the duration of one polling cycle and whether it
	// succeeded.
	ObserveCycle(seconds float64, ok bool)
}

// SinkError is implemented by sink failures that know their kind. Callers
// match it with errors.As; anything else is counted as "other".
type SinkError interface {
	error
	ErrorKind() string
}
