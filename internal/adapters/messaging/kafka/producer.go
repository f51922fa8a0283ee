package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"bundle-storefront/internal/core/domain"
)

// Broker is an implementation of the MessageBroker port for Kafka.
type Broker struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewBroker creates a new Kafka broker instance.
func NewBroker(ctx context.Context, bootstrapServers []string, topic string, logger *slog.Logger) (*Broker, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(bootstrapServers...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.RecordDeliveryTimeout(10 * time.Second),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	// Checking the connection
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to kafka: %w", err)
	}

	return &Broker{
		client: client,
		topic:  topic,
		logger: logger,
	}, nil
}

// EncodeOrderCreated builds the record published for a stored order.
// The key is the transaction id so events for one order land on one partition.
func EncodeOrderCreated(o domain.Order) (*kgo.Record, error) {
	payload, err := json.Marshal(o.CreatedEvent())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order event: %w", err)
	}
	return &kgo.Record{
		Key:   []byte(o.TransactionID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "event-type", Value: []byte("order.created")},
		},
	}, nil
}

// PublishOrderCreated publishes an event about a stored order.
func (b *Broker) PublishOrderCreated(ctx context.Context, o domain.Order) error {
	record, err := EncodeOrderCreated(o)
	if err != nil {
		return err
	}

	b.wg.Add(1)
	// Produce sends a record asynchronously; the request context must not cancel delivery.
	b.client.Produce(context.WithoutCancel(ctx), record, func(r *kgo.Record, err error) {
		defer b.wg.Done()
		if err != nil {
			b.logger.Error("failed to deliver message to kafka", "topic", r.Topic, "transaction_id", o.TransactionID, "error", err)
		} else {
			b.logger.Debug("message delivered to kafka", "topic", r.Topic, "partition", r.Partition, "offset", r.Offset)
		}
	})

	return nil
}

// Close gracefully stops the producer.
func (b *Broker) Close() {
	b.logger.Info("waiting for pending kafka deliveries...")
	b.wg.Wait()
	b.client.Close()
	b.logger.Info("kafka client stopped")
}
