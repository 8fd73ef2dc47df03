// Package sink provides external destinations for ledger entries.
package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"avatar-gateway/internal/audit"
)

// Kafka publishes ledger entries to a topic for long-term audit retention.
// Entries are keyed by request ID so all records for one upload attempt land
// in the same partition.
type Kafka struct {
	client *kgo.Client
	topic  string
}

// NewKafka connects to the given brokers.
func NewKafka(brokers []string, topic string) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("connect audit brokers: %w", err)
	}
	return &Kafka{client: client, topic: topic}, nil
}

// Emit publishes one entry synchronously. The caller (the audit worker) is
// already off the request path, so waiting for the broker ack is fine.
func (k *Kafka) Emit(ctx context.Context, e audit.Entry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(e.RequestID),
		Value: payload,
	}
	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit entry: %w", err)
	}
	return nil
}

// Close flushes and releases the broker connection.
func (k *Kafka) Close() {
	k.client.Close()
}
