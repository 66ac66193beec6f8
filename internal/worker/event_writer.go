// Package worker runs the background persistence of scan events. Writes
// happen off the request path so history never adds latency to a scan.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/scan-gateway/internal/circuitbreaker"
	"github.com/scan-gateway/internal/logging"
	"github.com/scan-gateway/internal/models"
	"github.com/scan-gateway/internal/retry"
)

// EventSink is the downstream store the writer drains into
type EventSink interface {
	Create(ctx context.Context, event *models.ScanEvent) error
}

// EventWriter batches no state; it fans scan events out to worker goroutines
// that write them to the sink with retry and circuit breaking. Enqueueing
// never blocks: when the queue is full the event is dropped and counted.
type EventWriter struct {
	sink         EventSink
	queue        chan *models.ScanEvent
	breaker      *circuitbreaker.CircuitBreaker
	writeTimeout time.Duration
	logger       *logging.Logger

	mu      sync.Mutex
	running bool
	dropped int64
	wg      sync.WaitGroup
}

// EventWriterConfig holds configuration for an event writer
type EventWriterConfig struct {
	Sink EventSink
	// QueueSize bounds the number of pending events. Default 1024.
	QueueSize int
	// Workers is the number of drain goroutines. Default 2.
	Workers int
	// WriteTimeout bounds a single sink write. Default 5s.
	WriteTimeout time.Duration
	Logger       *logging.Logger
}

// NewEventWriter creates an event writer with its drain workers running
func NewEventWriter(cfg *EventWriterConfig) (*EventWriter, error) {
	if cfg == nil || cfg.Sink == nil {
		return nil, fmt.Errorf("event sink cannot be nil")
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1024
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	w := &EventWriter{
		sink:         cfg.Sink,
		queue:        make(chan *models.ScanEvent, queueSize),
		breaker:      circuitbreaker.New(circuitbreaker.DefaultConfig("scan-events")),
		writeTimeout: writeTimeout,
		logger:       logger,
	}
	w.start(cfg.Workers)
	return w, nil
}

// Create enqueues an event for background persistence. It satisfies the scan
// service's recorder interface and never returns an error; history is
// best-effort by contract. A full queue or a stopped writer counts a drop.
func (w *EventWriter) Create(_ context.Context, event *models.ScanEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		w.dropped++
		w.logger.WithField("droppedTotal", w.dropped).Warn("Scan event writer stopped, dropping event")
		return nil
	}

	select {
	case w.queue <- event:
		return nil
	default:
		w.dropped++
		w.logger.WithField("droppedTotal", w.dropped).Warn("Scan event queue full, dropping event")
		return nil
	}
}

// Dropped returns how many events were discarded because the queue was full
func (w *EventWriter) Dropped() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

// Stop drains remaining events and waits for the workers to finish
func (w *EventWriter) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	// Closed under the lock so Create can never send on a closed queue.
	close(w.queue)
	w.mu.Unlock()

	w.wg.Wait()
}

func (w *EventWriter) start(workers int) {
	if workers <= 0 {
		workers = 2
	}

	w.mu.Lock()
	w.running = true
	w.mu.Unlock()

	for i := 0; i < workers; i++ {
		w.wg.Add(1)
		go w.drain()
	}
}

func (w *EventWriter) drain() {
	defer w.wg.Done()

	for event := range w.queue {
		w.write(event)
	}
}

func (w *EventWriter) write(event *models.ScanEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), w.writeTimeout)
	defer cancel()

	err := w.breaker.Execute(ctx, func(ctx context.Context) error {
		return retry.Do(ctx, func(ctx context.Context, attempt int) error {
			return w.sink.Create(ctx, event)
		})
	})
	if err != nil {
		w.logger.WithError(err).WithField("sessionId", event.SessionID).Warn("Failed to persist scan event")
	}
}
