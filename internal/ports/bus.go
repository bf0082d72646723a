// Package ports defines the system boundaries the bridge core depends on:
// the message bus, the archive store, the ERP REST API, and telemetry.
// Implementations live in internal/adapters.
package ports

import "context"

// InboundMessage is a unit of work received from the bus together with a
// mechanism to commit it once processing has completed. A message left
// uncommitted is redelivered by the bus, which is the intended behaviour for
// failures during archival or parsing.
type InboundMessage struct {
	// Body is the raw payload (XML for MES-origin events, JSON for
	// ERP-origin events).
	Body []byte

	// MessageID identifies the delivery; it keys the archive path for all
	// artifacts of this invocation.
	MessageID string

	// CorrelationID propagates end-to-end tracing across systems. Empty when
	// the originating system did not provide one.
	CorrelationID string

	// Commit acknowledges the message after successful processing.
	Commit func(ctx context.Context) error
}

// OutboundMessage is a payload to publish on the bus.
type OutboundMessage struct {
	Topic         string
	Body          []byte
	ContentType   string
	CorrelationID string

	// SessionKey pins related messages to sequential processing on the
	// consumer side (order number, batch number, or tracking token).
	SessionKey string
}

// BusConsumer exposes a streaming interface for consuming bus messages.
// Implementations must be goroutine-safe and compatible with select loops.
type BusConsumer interface {
	// Consume returns a read-only channel of messages and a channel for
	// terminal consumer errors. Both channels are closed when the context is
	// cancelled or the consumer shuts down.
	Consume(ctx context.Context) (<-chan InboundMessage, <-chan error)
}

// BusSender publishes messages to named topics.
type BusSender interface {
	Send(ctx context.Context, msg OutboundMessage) error
}
