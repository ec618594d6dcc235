package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"helperhub/internal/infra"
	"helperhub/internal/infra/infratest"
)

type fakeRepo struct {
	pending  []Message
	sent     []int64
	failures map[int64]int
	claimErr error
}

func (f *fakeRepo) ClaimPending(ctx context.Context, q infra.DBTX, limit int) ([]Message, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeRepo) MarkSent(ctx context.Context, q infra.DBTX, id int64) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeRepo) RecordFailure(ctx context.Context, q infra.DBTX, id int64, maxAttempts int) error {
	if f.failures == nil {
		f.failures = map[int64]int{}
	}
	f.failures[id]++
	return nil
}

type fakePublisher struct {
	failKeys map[string]bool
	topics   []string
}

func (p *fakePublisher) Publish(ctx context.Context, topic string, key, value []byte) error {
	p.topics = append(p.topics, topic)
	if p.failKeys[string(key)] {
		return errors.New("broker unavailable")
	}
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRelay_RunOnce_SendsAndRecordsFailures(t *testing.T) {
	repo := &fakeRepo{pending: []Message{
		{ID: 1, AggregateID: "order-a", EventType: "order.status_changed", Payload: []byte(`{}`)},
		{ID: 2, AggregateID: "order-b", EventType: "order.status_changed", Payload: []byte(`{}`)},
		{ID: 3, AggregateID: "order-c", EventType: "order.status_changed", Payload: []byte(`{}`)},
	}}
	pub := &fakePublisher{failKeys: map[string]bool{"order-b": true}}
	pool := &infratest.Pool{}
	r := NewRelay(pool, repo, pub, RelayConfig{Topic: "helperhub.events", BatchSize: 10, MaxAttempts: 3}, quietLogger())

	sent, failed, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, sent)
	require.Equal(t, 1, failed)
	require.Equal(t, []int64{1, 3}, repo.sent)
	require.Equal(t, 1, repo.failures[2])
	require.Equal(t, []string{"helperhub.events", "helperhub.events", "helperhub.events"}, pub.topics)

	_, commits, _ := pool.Counts()
	require.Equal(t, 1, commits)
}

func TestRelay_RunOnce_RespectsBatchSize(t *testing.T) {
	repo := &fakeRepo{pending: []Message{{ID: 1}, {ID: 2}, {ID: 3}}}
	r := NewRelay(&infratest.Pool{}, repo, &fakePublisher{}, RelayConfig{BatchSize: 2}, quietLogger())

	sent, _, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, sent)
}

func TestRelay_RunOnce_ClaimErrorRollsBack(t *testing.T) {
	repo := &fakeRepo{claimErr: errors.New("db gone")}
	pool := &infratest.Pool{}
	r := NewRelay(pool, repo, &fakePublisher{}, RelayConfig{}, quietLogger())

	_, _, err := r.RunOnce(context.Background())
	require.Error(t, err)
	_, commits, rollbacks := pool.Counts()
	require.Equal(t, 0, commits)
	require.Equal(t, 1, rollbacks)
}
