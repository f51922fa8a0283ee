package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Handler processes one record value. Errors matching Consumer.poison are dead-lettered.
type Handler func(ctx context.Context, value []byte) error

// Consumer reads a topic in a consumer group and commits offsets after each batch.
type Consumer struct {
	client   *kgo.Client
	dlq      *kgo.Client
	dlqTopic string
	poison   error
	logger   *slog.Logger
}

type ConsumerConfig struct {
	Brokers  []string
	Group    string
	Topic    string
	DLQTopic string
	// Poison is the error class sent to the DLQ instead of being retried.
	Poison error
}

func NewConsumer(cfg ConsumerConfig, logger *slog.Logger) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.AutoCommitMarks(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	dlq, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create kafka producer for DLQ: %w", err)
	}

	return &Consumer{
		client:   client,
		dlq:      dlq,
		dlqTopic: cfg.DLQTopic,
		poison:   cfg.Poison,
		logger:   logger,
	}, nil
}

// Run polls until ctx is cancelled. A retryable failure stops the batch without committing,
// so the record is read again after a short pause.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return nil
		}
		fetches.EachError(func(t string, p int32, err error) {
			c.logger.Error("kafka fetch error", "topic", t, "partition", p, "error", err)
		})

		failed := false
		iter := fetches.RecordIter()
		for !iter.Done() {
			record := iter.Next()
			err := handle(ctx, record.Value)
			if err == nil {
				c.client.MarkCommitRecords(record)
				continue
			}
			if c.poison != nil && errors.Is(err, c.poison) {
				c.logger.Error("unprocessable record, sending to DLQ", "offset", record.Offset, "error", err)
				if dlqErr := c.dlq.ProduceSync(ctx, DeadLetter(record, c.dlqTopic, "unmarshal_error", err.Error())).FirstErr(); dlqErr != nil {
					c.logger.Error("failed to send record to DLQ", "error", dlqErr)
					failed = true
					break
				}
				c.client.MarkCommitRecords(record)
				continue
			}
			c.logger.Warn("record processing failed, will retry", "offset", record.Offset, "error", err)
			failed = true
			break
		}

		if err := c.client.CommitMarkedOffsets(ctx); err != nil && ctx.Err() == nil {
			c.logger.Error("error committing offsets", "error", err)
		}
		if failed {
			// Rewind uncommitted records by restarting from committed offsets.
			c.client.SetOffsets(c.client.CommittedOffsets())
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(2 * time.Second):
			}
		}
	}
}

func (c *Consumer) Close() {
	c.dlq.Close()
	c.client.Close()
}

// DeadLetter copies a record for the DLQ with headers describing the failure.
func DeadLetter(original *kgo.Record, dlqTopic, errorType, errorString string) *kgo.Record {
	return &kgo.Record{
		Topic: dlqTopic,
		Value: original.Value,
		Key:   original.Key,
		Headers: []kgo.RecordHeader{
			{Key: "error_type", Value: []byte(errorType)},
			{Key: "error_string", Value: []byte(errorString)},
			{Key: "original_topic", Value: []byte(original.Topic)},
		},
	}
}

// ErrorHeaders extracts error_type and error_string from a DLQ record.
func ErrorHeaders(headers []kgo.RecordHeader) (string, string) {
	errorType, errorString := "N/A", "N/A"
	for _, h := range headers {
		switch h.Key {
		case "error_type":
			errorType = string(h.Value)
		case "error_string":
			errorString = string(h.Value)
		}
	}
	return errorType, errorString
}
