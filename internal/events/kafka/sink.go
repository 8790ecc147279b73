// Package kafka publishes ledger events to a Kafka topic. The sink is
// best-effort: a circuit breaker sheds load while the broker is unhealthy so
// an outage never backs up into the ledger's mutation path.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"almoner/internal/events"
	"almoner/pkg/platform/circuit"
)

// Sink produces events to a single topic, keyed by event kind so consumers
// see per-kind ordering.
type Sink struct {
	client  *kgo.Client
	topic   string
	breaker *circuit.Breaker
}

// New connects a Kafka producer for the given brokers and topic.
func New(brokers []string, topic string) (*Sink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Sink{
		client:  client,
		topic:   topic,
		breaker: circuit.NewBreaker(5, 30*time.Second),
	}, nil
}

// Publish sends one event synchronously. While the breaker is open the event
// is dropped without touching the broker.
func (s *Sink) Publish(ctx context.Context, event events.Event) error {
	if !s.breaker.Allow() {
		return fmt.Errorf("kafka circuit open, dropping event %s", event.ID)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.Kind),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		s.breaker.RecordFailure()
		return fmt.Errorf("produce event: %w", err)
	}
	s.breaker.RecordSuccess()
	return nil
}

// Close flushes and tears down the producer.
func (s *Sink) Close() {
	s.client.Close()
}
