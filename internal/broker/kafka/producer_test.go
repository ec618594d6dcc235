package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	last   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.last = append([]kafka.Message{}, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducer_Publish(t *testing.T) {
	fw := &fakeWriter{}
	p := newProducerWithWriter(fw)

	require.NoError(t, p.Publish(context.Background(), "helperhub.events", []byte("order-1"), []byte(`{"to":"in_progress"}`)))
	require.Len(t, fw.last, 1)
	require.Equal(t, "helperhub.events", fw.last[0].Topic)
	require.Equal(t, []byte("order-1"), fw.last[0].Key)
	require.Equal(t, []byte(`{"to":"in_progress"}`), fw.last[0].Value)
}

func TestProducer_PublishWrapsError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker down")}
	p := newProducerWithWriter(fw)

	err := p.Publish(context.Background(), "t", nil, []byte("v"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "kafka publish")
	require.Contains(t, err.Error(), "broker down")
}

func TestProducer_Close(t *testing.T) {
	fw := &fakeWriter{}
	p := newProducerWithWriter(fw)
	require.NoError(t, p.Close())
	require.True(t, fw.closed)
}

func TestNewProducer(t *testing.T) {
	p := NewProducer([]string{"localhost:0"})
	require.NotNil(t, p)
}
