package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConnector drains activity events from a Kafka topic. Each message
// value is one JSON-encoded Activity. Fetch reads until limit records match
// or the topic stalls past the poll timeout.
type KafkaConnector struct {
	brokers       []string
	topic         string
	consumerGroup string
	pollTimeout   time.Duration

	newReader func() messageReader
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// NewKafkaConnector builds a connector for the given brokers (comma
// separated) and activity topic.
func NewKafkaConnector(brokers, topic, consumerGroup string) *KafkaConnector {
	c := &KafkaConnector{
		brokers:       strings.Split(brokers, ","),
		topic:         topic,
		consumerGroup: consumerGroup,
		pollTimeout:   5 * time.Second,
	}
	c.newReader = func() messageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.brokers,
			Topic:    c.topic,
			GroupID:  c.consumerGroup,
			MinBytes: 1,
			MaxBytes: 10e6,
		})
	}
	return c
}

// Fetch implements Connector.
func (c *KafkaConnector) Fetch(ctx context.Context, chatIDs []string, since time.Time, limit int) ([]Activity, error) {
	reader := c.newReader()
	defer reader.Close()

	wanted := make(map[string]bool, len(chatIDs))
	for _, id := range chatIDs {
		wanted[id] = true
	}

	var out []Activity
	for limit <= 0 || len(out) < limit {
		pollCtx, cancel := context.WithTimeout(ctx, c.pollTimeout)
		msg, err := reader.ReadMessage(pollCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				// Topic drained for now.
				break
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if len(out) == 0 {
				return nil, fmt.Errorf("%w: kafka read: %v", ErrUnavailable, err)
			}
			slog.Warn("kafka fetch interrupted, returning partial batch", "topic", c.topic, "count", len(out), "error", err)
			break
		}

		var a Activity
		if err := json.Unmarshal(msg.Value, &a); err != nil {
			slog.Warn("skipping malformed activity event", "topic", c.topic, "offset", msg.Offset, "error", err)
			continue
		}
		if len(wanted) > 0 && !wanted[a.ChatID] {
			continue
		}
		if !since.IsZero() && a.SentAt.Before(since) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
