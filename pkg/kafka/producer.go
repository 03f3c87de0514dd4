package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

type ProducerConfig struct {
	Brokers     string
	Acks        string
	LingerMs    int
	Compression string
}

type Producer struct {
	p      *kafka.Producer
	logger *slog.Logger
}

func NewProducer(cfg *ProducerConfig, log *slog.Logger) (*Producer, error) {
	config := &kafka.ConfigMap{
		"bootstrap.servers":            cfg.Brokers,
		"acks":                         cfg.Acks,
		"enable.idempotence":           true,
		"linger.ms":                    cfg.LingerMs,
		"compression.type":             cfg.Compression,
		"message.send.max.retries":     3,
		"delivery.timeout.ms":          30000,
		"queue.buffering.max.messages": 100000,
	}
	p, err := kafka.NewProducer(config)
	if err != nil {
		return nil, fmt.Errorf("kafka.NewProducer: %w", err)
	}

	return &Producer{
		p:      p,
		logger: log,
	}, nil
}

// Publish enqueues one message and waits for its delivery report.
func (p *Producer) Publish(ctx context.Context, topic, key string, val []byte, headers map[string]string) error {
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Key:     []byte(key),
		Value:   val,
		Headers: toHeaders(headers),
	}

	ch := make(chan kafka.Event, 1)

	if err := p.p.Produce(msg, ch); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	select {
	case ev := <-ch:
		m, ok := ev.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected event type: %T", ev)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("delivery: %w", m.TopicPartition.Error)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Producer) Close() {
	remaining := p.p.Flush(10_000)
	if remaining > 0 {
		p.logger.Warn("unflushed message on close",
			slog.Int("remaining", remaining))
	}
	p.p.Close()
}

func toHeaders(m map[string]string) []kafka.Header {
	headers := make([]kafka.Header, 0, len(m))
	for k, v := range m {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return headers
}
