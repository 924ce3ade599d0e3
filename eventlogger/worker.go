package eventlogger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// saveTimeout bounds a single write to the activity sink.
const saveTimeout = 5 * time.Second

// Worker persists activity events off the request path. Producers never
// block; a full buffer drops the event and counts it.
type Worker struct {
	events  chan Event
	sink    EventLogger
	dropped atomic.Int64
	wg      sync.WaitGroup
	stop    chan struct{}
	once    sync.Once
}

func NewWorker(sink EventLogger, bufferSize int) *Worker {
	return &Worker{
		events: make(chan Event, bufferSize),
		sink:   sink,
		stop:   make(chan struct{}),
	}
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.stop:
				return
			case e := <-w.events:
				w.save(context.Background(), e)
			}
		}
	}()
}

func (w *Worker) save(ctx context.Context, e Event) {
	ctx, cancel := context.WithTimeout(ctx, saveTimeout)
	defer cancel()
	if err := w.sink.Save(ctx, e); err != nil {
		slog.Error("failed to save activity event", "error", err, "category", e.Category, "event_id", e.ID)
	}
}

// Log enqueues without blocking. It reports false when the buffer is full
// and the event was dropped.
func (w *Worker) Log(e Event) bool {
	select {
	case w.events <- e:
		return true
	default:
		n := w.dropped.Add(1)
		slog.Warn("activity buffer full, dropping event", "category", e.Category, "dropped_total", n)
		return false
	}
}

func (w *Worker) Dropped() int64 {
	return w.dropped.Load()
}

// Shutdown stops the consumer and then flushes what is still buffered until
// ctx expires. Events left after that are counted as dropped.
func (w *Worker) Shutdown(ctx context.Context) {
	w.once.Do(func() { close(w.stop) })
	w.wg.Wait()

	slog.Info("draining activity events before shutdown", "remaining_events", len(w.events))
	for {
		select {
		case e := <-w.events:
			if ctx.Err() != nil {
				w.dropped.Add(1)
				continue
			}
			w.save(ctx, e)
		default:
			if left := w.dropped.Load(); left > 0 {
				slog.Warn("activity events lost", "dropped_total", left)
			}
			return
		}
	}
}
