package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type PublisherConfig struct {
	URL      string
	Exchange string
}

// Publisher sends messages to a durable topic exchange with publisher
// confirms enabled. The outbox topic is used as the routing key.
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	logger   *slog.Logger

	mu sync.Mutex
}

func NewPublisher(cfg *PublisherConfig, log *slog.Logger) (*Publisher, error) {
	if cfg.Exchange == "" {
		return nil, errors.New("exchange name cannot be empty")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}

	if err = ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}

	log.Info("rabbitmq publisher ready", slog.String("exchange", cfg.Exchange))

	return &Publisher{
		conn:     conn,
		ch:       ch,
		exchange: cfg.Exchange,
		logger:   log,
	}, nil
}

// Publish sends one message and waits for the broker to confirm it.
func (p *Publisher) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	table := amqp.Table{"key": key}
	for k, v := range headers {
		table[k] = v
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	dc, err := p.ch.PublishWithDeferredConfirmWithContext(
		ctx,
		p.exchange,
		topic, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Headers:      table,
			Body:         payload,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s/%s: %w", p.exchange, topic, err)
	}

	acked, err := dc.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await confirm: %w", err)
	}
	if !acked {
		return fmt.Errorf("broker nacked message for %s/%s", p.exchange, topic)
	}
	return nil
}

func (p *Publisher) Close() {
	if err := p.ch.Close(); err != nil {
		p.logger.Warn("close channel", slog.Any("error", err))
	}
	if err := p.conn.Close(); err != nil {
		p.logger.Warn("close connection", slog.Any("error", err))
	}
}
