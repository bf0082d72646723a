package kafka

import (
	"context"
	"fmt"
	"sync"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/factorybridge/erp-mes-bridge/internal/ports"
)

// Sender implements ports.BusSender with one cached writer per topic to keep
// the number of active connections down.
type Sender struct {
	brokers []string

	mu      sync.Mutex
	writers map[string]*kafkago.Writer
}

// NewSender constructs a new Sender.
func NewSender(brokers []string) (*Sender, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("brokers must not be empty")
	}
	return &Sender{
		brokers: brokers,
		writers: make(map[string]*kafkago.Writer),
	}, nil
}

// Send publishes the message on its topic. The session key becomes the Kafka
// message key so that related messages share a partition and arrive in order.
func (s *Sender) Send(ctx context.Context, msg ports.OutboundMessage) error {
	if msg.Topic == "" {
		return fmt.Errorf("topic must not be empty")
	}

	headers := []kafkago.Header{
		{Key: headerContentType, Value: []byte(msg.ContentType)},
	}
	if msg.CorrelationID != "" {
		headers = append(headers, kafkago.Header{
			Key: headerCorrelationID, Value: []byte(msg.CorrelationID),
		})
	}

	kmsg := kafkago.Message{
		Value:   msg.Body,
		Headers: headers,
	}
	if msg.SessionKey != "" {
		kmsg.Key = []byte(msg.SessionKey)
	}

	if err := s.writer(msg.Topic).WriteMessages(ctx, kmsg); err != nil {
		return fmt.Errorf("write to topic %s: %w", msg.Topic, err)
	}
	return nil
}

func (s *Sender) writer(topic string) *kafkago.Writer {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.writers[topic]; ok {
		return w
	}
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(s.brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{}, // key-based partitioning for session ordering
		RequiredAcks: kafkago.RequireAll,
	}
	s.writers[topic] = w
	return w
}

// Close closes all cached writers.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, w := range s.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
