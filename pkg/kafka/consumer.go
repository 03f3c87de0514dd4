package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

const defaultChannelBuf = 256

type ConsumerConfig struct {
	Topics            []string
	Brokers           string
	ConsumerGroup     string
	OffsetReset       string
	SessionTimeoutMs  int
	MaxPollInterval   int
	PartitionStrategy string
	ChannelBufferSize int
	// DLQTopic receives every message the handler fails on. Empty disables
	// forwarding; failures are then only logged.
	DLQTopic string
}

type Handler func(ctx context.Context, msg *kafka.Message) error

// DeadLetterPublisher is satisfied by *Producer.
type DeadLetterPublisher interface {
	Publish(ctx context.Context, topic, key string, val []byte, headers map[string]string) error
}

type partitionWorker struct {
	ch   chan *kafka.Message
	done chan struct{}
}

type topicPartition struct {
	topic     string
	partition int32
}

// Consumer runs one worker goroutine per assigned partition so ordering is
// kept per partition, and commits offsets only from the poll goroutine.
type Consumer struct {
	c        *kafka.Consumer
	h        Handler
	dlq      DeadLetterPublisher
	dlqTopic string
	logger   *slog.Logger
	group    string
	bufSize  int

	mu      sync.Mutex
	workers map[topicPartition]*partitionWorker
	wg      sync.WaitGroup

	commitCh chan kafka.TopicPartition
}

func NewConsumer(cfg *ConsumerConfig, h Handler, dlq DeadLetterPublisher, log *slog.Logger) (*Consumer, error) {
	bufSize := cfg.ChannelBufferSize
	if bufSize <= 0 {
		bufSize = defaultChannelBuf
	}

	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":             cfg.Brokers,
		"group.id":                      cfg.ConsumerGroup,
		"enable.auto.commit":            false,
		"auto.offset.reset":             cfg.OffsetReset,
		"session.timeout.ms":            cfg.SessionTimeoutMs,
		"heartbeat.interval.ms":         cfg.SessionTimeoutMs / 3,
		"max.poll.interval.ms":          cfg.MaxPollInterval,
		"partition.assignment.strategy": cfg.PartitionStrategy,
	})
	if err != nil {
		return nil, fmt.Errorf("kafka.newConsumer: %w", err)
	}

	if err = c.SubscribeTopics(cfg.Topics, nil); err != nil {
		if closeErr := c.Close(); closeErr != nil {
			log.Error("failed to close consumer", slog.Any("error", closeErr))
		}
		return nil, fmt.Errorf("subscribe topics: %w", err)
	}

	return &Consumer{
		c:        c,
		h:        h,
		dlq:      dlq,
		dlqTopic: cfg.DLQTopic,
		logger:   log,
		group:    cfg.ConsumerGroup,
		bufSize:  bufSize,
		workers:  make(map[topicPartition]*partitionWorker),
		commitCh: make(chan kafka.TopicPartition, bufSize*16),
	}, nil
}

// Run blocks until ctx is canceled, then shuts down gracefully.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer started", slog.String("group", c.group))

	for {
		select {
		case <-ctx.Done():
			return c.shutdown()
		default:
		}

		ev := c.c.Poll(100)

		c.drainCommits()

		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			c.dispatch(ctx, e)

		case kafka.Error:
			if e.IsFatal() {
				c.logger.Error("fatal consumer error", slog.Any("error", e))
				if shutdownErr := c.shutdown(); shutdownErr != nil {
					c.logger.Error("shutdown after fatal error", slog.Any("error", shutdownErr))
				}
				return fmt.Errorf("fatal: %w", e)
			}
			c.logger.Warn("consumer error (non-fatal)",
				slog.Any("error", e), slog.Int("code", int(e.Code())))

		case kafka.AssignedPartitions:
			c.logger.Info("partitions assigned",
				slog.Int("count", len(e.Partitions)))

		case kafka.RevokedPartitions:
			c.logger.Info("partitions revoked",
				slog.Int("count", len(e.Partitions)))
			c.stopWorkers(e.Partitions)

		case kafka.OffsetsCommitted:
			if e.Error != nil {
				c.logger.Warn("offset commit error", slog.Any("error", e.Error))
			}
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, msg *kafka.Message) {
	key := topicPartition{
		topic:     *msg.TopicPartition.Topic,
		partition: msg.TopicPartition.Partition,
	}

	c.mu.Lock()
	pw, ok := c.workers[key]
	if !ok {
		pw = &partitionWorker{
			ch:   make(chan *kafka.Message, c.bufSize),
			done: make(chan struct{}),
		}
		c.workers[key] = pw
		c.wg.Add(1)
		go c.worker(ctx, key, pw)
	}
	c.mu.Unlock()

	// Blocks when the worker falls behind, which pauses Poll.
	pw.ch <- msg
}

func (c *Consumer) worker(ctx context.Context, key topicPartition, pw *partitionWorker) {
	defer c.wg.Done()
	defer close(pw.done)

	log := c.logger.With(
		slog.String("topic", key.topic),
		slog.Int("partition", int(key.partition)))
	log.Debug("partition worker started")

	for msg := range pw.ch {
		if err := c.h(ctx, msg); err != nil {
			log.Error("handler error",
				slog.Int64("offset", int64(msg.TopicPartition.Offset)),
				slog.Any("error", err))
			c.deadLetter(ctx, msg, err)
		}

		c.commitCh <- kafka.TopicPartition{
			Topic:     msg.TopicPartition.Topic,
			Partition: msg.TopicPartition.Partition,
			Offset:    msg.TopicPartition.Offset + 1,
		}
	}

	log.Debug("partition worker stopped")
}

func (c *Consumer) deadLetter(ctx context.Context, msg *kafka.Message, cause error) {
	if c.dlq == nil || c.dlqTopic == "" {
		return
	}

	headers := make(map[string]string, len(msg.Headers)+3)
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	headers["error"] = cause.Error()
	headers["source-topic"] = *msg.TopicPartition.Topic
	headers["source-offset"] = msg.TopicPartition.Offset.String()

	if err := c.dlq.Publish(ctx, c.dlqTopic, string(msg.Key), msg.Value, headers); err != nil {
		c.logger.Error("dead letter publish failed",
			slog.String("dlq_topic", c.dlqTopic),
			slog.Any("error", err))
	}
}

// collect keeps the highest offset seen per partition.
func collect(pending map[topicPartition]kafka.TopicPartition, tp kafka.TopicPartition) {
	key := topicPartition{topic: *tp.Topic, partition: tp.Partition}
	if prev, ok := pending[key]; !ok || tp.Offset > prev.Offset {
		pending[key] = tp
	}
}

// drainCommits commits whatever workers have reported since the last poll.
func (c *Consumer) drainCommits() {
	pending := make(map[topicPartition]kafka.TopicPartition)

	for {
		select {
		case tp := <-c.commitCh:
			collect(pending, tp)
		default:
			c.commitOffsets(pending)
			return
		}
	}
}

// awaitWorkers keeps reading commitCh while workers finish so a full buffer
// cannot deadlock them.
func (c *Consumer) awaitWorkers(done <-chan struct{}) {
	pending := make(map[topicPartition]kafka.TopicPartition)

	for {
		select {
		case <-done:
			for {
				select {
				case tp := <-c.commitCh:
					collect(pending, tp)
				default:
					c.commitOffsets(pending)
					return
				}
			}
		case tp := <-c.commitCh:
			collect(pending, tp)
		}
	}
}

func (c *Consumer) commitOffsets(pending map[topicPartition]kafka.TopicPartition) {
	if len(pending) == 0 {
		return
	}

	offsets := make([]kafka.TopicPartition, 0, len(pending))
	for _, tp := range pending {
		offsets = append(offsets, tp)
	}

	if _, err := c.c.CommitOffsets(offsets); err != nil {
		c.logger.Error("commit offsets", slog.Any("error", err))
	}
}

func (c *Consumer) stopWorkers(partitions []kafka.TopicPartition) {
	c.mu.Lock()
	var toWait []chan struct{}
	for _, tp := range partitions {
		key := topicPartition{topic: *tp.Topic, partition: tp.Partition}
		if pw, ok := c.workers[key]; ok {
			close(pw.ch)
			toWait = append(toWait, pw.done)
			delete(c.workers, key)
		}
	}
	c.mu.Unlock()

	if len(toWait) == 0 {
		return
	}

	done := make(chan struct{})
	go func() {
		for _, d := range toWait {
			<-d
		}
		close(done)
	}()

	c.awaitWorkers(done)
}

func (c *Consumer) shutdown() error {
	c.logger.Info("consumer shutting down")

	c.mu.Lock()
	for p, pw := range c.workers {
		close(pw.ch)
		delete(c.workers, p)
	}
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	c.awaitWorkers(done)

	if err := c.c.Close(); err != nil {
		return fmt.Errorf("closing: %w", err)
	}

	c.logger.Info("consumer stopped")
	return nil
}
