package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-gateway/internal/models"
	"github.com/scan-gateway/internal/qr"
)

type captureSink struct {
	mu     sync.Mutex
	events []*models.ScanEvent
	block  chan struct{}
}

func (c *captureSink) Create(ctx context.Context, event *models.ScanEvent) error {
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestNewEventWriter_RequiresSink(t *testing.T) {
	_, err := NewEventWriter(nil)
	assert.Error(t, err)

	_, err = NewEventWriter(&EventWriterConfig{})
	assert.Error(t, err)
}

func TestEventWriter_PersistsEvents(t *testing.T) {
	sink := &captureSink{}
	writer, err := NewEventWriter(&EventWriterConfig{Sink: sink, Workers: 1})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, writer.Create(context.Background(), &models.ScanEvent{
			SessionID: "s1",
			Type:      qr.TypeEthereumAddress,
		}))
	}

	writer.Stop()
	assert.Equal(t, 5, sink.count())
	assert.Zero(t, writer.Dropped())
}

func TestEventWriter_StopDrainsQueue(t *testing.T) {
	sink := &captureSink{}
	writer, err := NewEventWriter(&EventWriterConfig{Sink: sink, Workers: 2, QueueSize: 100})
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		require.NoError(t, writer.Create(context.Background(), &models.ScanEvent{SessionID: "s1"}))
	}

	writer.Stop()
	assert.Equal(t, 50, sink.count())
}

func TestEventWriter_FullQueueDropsInsteadOfBlocking(t *testing.T) {
	block := make(chan struct{})
	sink := &captureSink{block: block}
	writer, err := NewEventWriter(&EventWriterConfig{
		Sink:         sink,
		Workers:      1,
		QueueSize:    1,
		WriteTimeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			_ = writer.Create(context.Background(), &models.ScanEvent{SessionID: "s1"})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Create blocked on a full queue")
	}

	close(block)
	writer.Stop()
	assert.Greater(t, writer.Dropped(), int64(0))
}

func TestEventWriter_StopIsIdempotent(t *testing.T) {
	writer, err := NewEventWriter(&EventWriterConfig{Sink: &captureSink{}})
	require.NoError(t, err)

	writer.Stop()
	writer.Stop()
}

func TestEventWriter_CreateAfterStopDropsInsteadOfPanicking(t *testing.T) {
	sink := &captureSink{}
	writer, err := NewEventWriter(&EventWriterConfig{Sink: sink, Workers: 1})
	require.NoError(t, err)

	writer.Stop()

	err = writer.Create(context.Background(), &models.ScanEvent{
		SessionID: "s1",
		Type:      qr.TypeEthereumAddress,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), writer.Dropped())
	assert.Equal(t, 0, sink.count())
}
