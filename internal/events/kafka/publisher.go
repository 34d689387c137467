// Package kafka publishes ledger events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stase/internal/events"
	"stase/internal/models"

	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "transaction_completed"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	writer messageWriter
}

func NewPublisher(brokers []string, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// PublishCompleted writes one message per entry, keyed by reference so
// a unit's rows land on a stable partition.
func (p *Publisher) PublishCompleted(ctx context.Context, entries ...*models.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(events.NewTransactionCompleted(e))
		if err != nil {
			return fmt.Errorf("encode event %s: %w", e.Reference, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.Reference),
			Value: data,
			Headers: []kafka.Header{
				{Key: "type", Value: []byte(events.TypeTransactionCompleted)},
			},
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d events: %w", len(msgs), err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
