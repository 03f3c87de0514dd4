package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/sanchey92/order-service/internal/domain/model"
)

type RelayRepo interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetBatch(ctx context.Context, batchSize, maxRetries int) ([]*model.OutboxMessage, error)
	UpdateRetryCount(ctx context.Context, id int64, errMsg string) error
	MarkPublished(ctx context.Context, id int64) error
}

// Publisher delivers one message to a broker and returns once the broker has
// acknowledged it.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error
}

type Config struct {
	BatchSize    int
	PollInterval time.Duration
	MaxRetries   int
}

type Relay struct {
	repo         RelayRepo
	publisher    Publisher
	logger       *slog.Logger
	batchSize    int
	pollInterval time.Duration
	maxRetries   int
}

func NewRelay(r RelayRepo, p Publisher, l *slog.Logger, cfg Config) *Relay {
	return &Relay{
		repo:         r,
		publisher:    p,
		logger:       l,
		batchSize:    cfg.BatchSize,
		pollInterval: cfg.PollInterval,
		maxRetries:   cfg.MaxRetries,
	}
}

func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info("outbox relay started",
		slog.Int("batch_size", r.batchSize),
		slog.Int("max_retries", r.maxRetries),
		slog.Duration("poll_interval", r.pollInterval))

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopping")
			return nil
		case <-ticker.C:
			r.Drain(ctx)
		}
	}
}

// Drain publishes batches until a short batch signals the backlog is empty.
func (r *Relay) Drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		processed, err := r.processBatch(ctx)
		if err != nil {
			r.logger.Error("outbox batch failed", slog.Any("error", err))
			return
		}
		if processed < r.batchSize {
			return
		}
	}
}

func (r *Relay) processBatch(ctx context.Context) (int, error) {
	var msgs []*model.OutboxMessage
	failed := 0

	err := r.repo.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		msgs, err = r.repo.GetBatch(ctx, r.batchSize, r.maxRetries)
		if err != nil {
			return err
		}

		for _, msg := range msgs {
			if pubErr := r.publisher.Publish(ctx, msg.Topic, msg.Key, msg.Payload, r.buildHeaders(msg)); pubErr != nil {
				r.logger.Error("publish failed",
					slog.Int64("id", msg.ID),
					slog.String("event_type", msg.EventType),
					slog.Any("error", pubErr))
				if retryErr := r.repo.UpdateRetryCount(ctx, msg.ID, pubErr.Error()); retryErr != nil {
					return retryErr
				}
				failed++
				continue
			}
			if err = r.repo.MarkPublished(ctx, msg.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	// A batch where everything failed is not drained further this tick;
	// retrying it immediately would only burn the retry budget.
	if failed == len(msgs) {
		return 0, nil
	}
	return len(msgs), nil
}

func (r *Relay) buildHeaders(msg *model.OutboxMessage) map[string]string {
	headers := make(map[string]string, len(msg.Headers)+1)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["event-type"] = msg.EventType
	return headers
}
