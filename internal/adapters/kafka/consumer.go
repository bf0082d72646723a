// Package kafka implements the bus ports using segmentio/kafka-go. Session
// ordering maps to the Kafka message key, so related messages land on the
// same partition and are processed sequentially.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/factorybridge/erp-mes-bridge/internal/ports"
)

const (
	headerCorrelationID = "correlationId"
	headerContentType   = "contentType"
)

// Consumer implements ports.BusConsumer for one topic.
type Consumer struct {
	reader *kafkago.Reader
}

// NewConsumer constructs a new Consumer configured for manual offset commits:
// a message is only acknowledged once the handler committed it, so archival
// or parse failures lead to redelivery.
func NewConsumer(brokers []string, topic, groupID string) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("brokers must not be empty")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic must not be empty")
	}
	if groupID == "" {
		return nil, fmt.Errorf("groupID must not be empty")
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		CommitInterval: 0, // manual commits only
	})

	return &Consumer{reader: reader}, nil
}

// Consume starts a goroutine that continuously reads from Kafka and pushes
// messages onto a channel until the context is cancelled.
func (c *Consumer) Consume(ctx context.Context) (<-chan ports.InboundMessage, <-chan error) {
	msgCh := make(chan ports.InboundMessage)
	errCh := make(chan error, 1)

	go func() {
		defer close(msgCh)
		defer close(errCh)

		for {
			m, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
					return
				}
				errCh <- err
				return
			}

			msg := ports.InboundMessage{
				Body:          m.Value,
				MessageID:     fmt.Sprintf("%s-%d-%d", m.Topic, m.Partition, m.Offset),
				CorrelationID: headerValue(m.Headers, headerCorrelationID),
				Commit: func(commitCtx context.Context) error {
					return c.reader.CommitMessages(commitCtx, m)
				},
			}

			select {
			case <-ctx.Done():
				return
			case msgCh <- msg:
			}
		}
	}()

	return msgCh, errCh
}

// Close releases the underlying reader resources.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

func headerValue(headers []kafkago.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
