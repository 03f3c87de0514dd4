package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanchey92/order-service/internal/domain/model"
)

type fakeRepo struct {
	pending   []*model.OutboxMessage
	published []int64
	retries   map[int64]int
	getErr    error
}

func (f *fakeRepo) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeRepo) GetBatch(_ context.Context, batchSize, maxRetries int) ([]*model.OutboxMessage, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	var out []*model.OutboxMessage
	for _, m := range f.pending {
		if f.retries[m.ID] >= maxRetries {
			continue
		}
		out = append(out, m)
		if len(out) == batchSize {
			break
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateRetryCount(_ context.Context, id int64, _ string) error {
	f.retries[id]++
	return nil
}

func (f *fakeRepo) MarkPublished(_ context.Context, id int64) error {
	f.published = append(f.published, id)
	for i, m := range f.pending {
		if m.ID == id {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			break
		}
	}
	return nil
}

type sent struct {
	topic   string
	key     string
	headers map[string]string
}

type fakePublisher struct {
	sent   []sent
	failOn map[string]bool
}

func (f *fakePublisher) Publish(_ context.Context, topic, key string, _ []byte, headers map[string]string) error {
	if f.failOn[key] {
		return errors.New("broker unavailable")
	}
	f.sent = append(f.sent, sent{topic: topic, key: key, headers: headers})
	return nil
}

func newMessages(n int) []*model.OutboxMessage {
	msgs := make([]*model.OutboxMessage, n)
	for i := range msgs {
		msgs[i] = &model.OutboxMessage{
			ID:        int64(i + 1),
			Topic:     "order-events",
			Key:       string(rune('a' + i)),
			EventType: model.EventOrderPlaced,
			Payload:   []byte(`{}`),
			Headers:   map[string]string{"order-id": "o"},
		}
	}
	return msgs
}

func newTestRelay(repo RelayRepo, pub Publisher, batch int) *Relay {
	return NewRelay(repo, pub, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{
		BatchSize:    batch,
		PollInterval: 10 * time.Millisecond,
		MaxRetries:   3,
	})
}

func TestDrain_PublishesEverything(t *testing.T) {
	repo := &fakeRepo{pending: newMessages(5), retries: map[int64]int{}}
	pub := &fakePublisher{}

	newTestRelay(repo, pub, 2).Drain(context.Background())

	assert.Equal(t, []int64{1, 2, 3, 4, 5}, repo.published)
	require.Len(t, pub.sent, 5)
	assert.Equal(t, "order-events", pub.sent[0].topic)
	assert.Equal(t, "a", pub.sent[0].key)
	assert.Equal(t, model.EventOrderPlaced, pub.sent[0].headers["event-type"])
	assert.Equal(t, "o", pub.sent[0].headers["order-id"])
}

func TestDrain_FailedMessagesAreRetried(t *testing.T) {
	repo := &fakeRepo{pending: newMessages(3), retries: map[int64]int{}}
	pub := &fakePublisher{failOn: map[string]bool{"b": true}}
	relay := newTestRelay(repo, pub, 10)

	relay.Drain(context.Background())
	assert.Equal(t, []int64{1, 3}, repo.published)
	assert.Equal(t, 1, repo.retries[2])

	relay.Drain(context.Background())
	relay.Drain(context.Background())
	relay.Drain(context.Background())
	assert.Equal(t, 3, repo.retries[2], "retries stop at the limit")
}

func TestDrain_StopsWhenWholeBatchFails(t *testing.T) {
	repo := &fakeRepo{pending: newMessages(2), retries: map[int64]int{}}
	pub := &fakePublisher{failOn: map[string]bool{"a": true, "b": true}}

	newTestRelay(repo, pub, 2).Drain(context.Background())

	assert.Empty(t, repo.published)
	assert.Equal(t, 1, repo.retries[1])
	assert.Equal(t, 1, repo.retries[2])
}

func TestDrain_RepoError(t *testing.T) {
	repo := &fakeRepo{getErr: errors.New("db down"), retries: map[int64]int{}}
	pub := &fakePublisher{}

	newTestRelay(repo, pub, 2).Drain(context.Background())

	assert.Empty(t, pub.sent)
}

func TestRun_StopsOnCancel(t *testing.T) {
	repo := &fakeRepo{pending: newMessages(1), retries: map[int64]int{}}
	pub := &fakePublisher{}
	relay := newTestRelay(repo, pub, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	time.AfterFunc(50*time.Millisecond, cancel)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
