package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sanchey92/order-service/internal/domain/model"
)

// GetBatch returns up to batchSize unpublished messages that have failed
// fewer than maxRetries times. SQLite has no row locks; the single pooled
// connection keeps relays from interleaving.
func (s *Storage) GetBatch(ctx context.Context, batchSize, maxRetries int) ([]*model.OutboxMessage, error) {
	const q = `
		SELECT id, topic, key, event_type, payload, headers
		FROM   outbox
		WHERE  published_at IS NULL AND retry_count < ?
		ORDER  BY created_at, id
		LIMIT  ?`

	rows, err := s.conn(ctx).QueryContext(ctx, q, maxRetries, batchSize)
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	defer rows.Close()

	var msgs []*model.OutboxMessage
	for rows.Next() {
		msg := &model.OutboxMessage{}
		var headers string
		if err = rows.Scan(&msg.ID, &msg.Topic, &msg.Key, &msg.EventType, &msg.Payload, &headers); err != nil {
			return nil, fmt.Errorf("scan outbox message: %w", err)
		}
		if err = json.Unmarshal([]byte(headers), &msg.Headers); err != nil {
			return nil, fmt.Errorf("unmarshal headers: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox rows: %w", err)
	}

	return msgs, nil
}

func (s *Storage) UpdateRetryCount(ctx context.Context, id int64, errMsg string) error {
	const q = `UPDATE outbox SET retry_count = retry_count + 1, last_error = ? WHERE id = ?`

	if _, err := s.conn(ctx).ExecContext(ctx, q, errMsg, id); err != nil {
		return fmt.Errorf("update retry count: %w", err)
	}
	return nil
}

func (s *Storage) MarkPublished(ctx context.Context, id int64) error {
	const q = `UPDATE outbox SET published_at = ? WHERE id = ?`

	if _, err := s.conn(ctx).ExecContext(ctx, q, formatTime(time.Now()), id); err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	return nil
}
