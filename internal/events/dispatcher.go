package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/cheildo/nexus-checkers/internal/gamemaster"
)

// Sink consumes match lifecycle events. Handle may block on I/O; it runs on the dispatcher goroutine.
type Sink interface {
	Name() string
	Handle(ctx context.Context, ev gamemaster.Event) error
}

// Dispatcher buffers events published by the game master and fans them out to sinks,
// so that storage and brokers never sit on the game master's request path.
type Dispatcher struct {
	queue   chan gamemaster.Event
	sinks   []Sink
	timeout time.Duration
}

func NewDispatcher(bufferSize int, timeout time.Duration, sinks ...Sink) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		queue:   make(chan gamemaster.Event, bufferSize),
		sinks:   sinks,
		timeout: timeout,
	}
}

// Publish implements gamemaster.EventSink. It never blocks; events are dropped when the buffer is full.
func (d *Dispatcher) Publish(ev gamemaster.Event) {
	select {
	case d.queue <- ev:
	default:
		slog.Warn("Event queue full, dropping match event", "type", ev.Type, "matchID", ev.MatchID)
	}
}

// Run delivers events until ctx is cancelled. It should be run in a goroutine.
func (d *Dispatcher) Run(ctx context.Context) {
	slog.Info("Event dispatcher started", "sinks", len(d.sinks))
	for {
		select {
		case <-ctx.Done():
			slog.Info("Event dispatcher stopped.")
			return
		case ev := <-d.queue:
			d.dispatch(ctx, ev)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, ev gamemaster.Event) {
	for _, sink := range d.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, d.timeout)
		if err := sink.Handle(sinkCtx, ev); err != nil {
			slog.Error("Sink failed to handle match event", "sink", sink.Name(), "type", ev.Type, "matchID", ev.MatchID, "error", err)
		}
		cancel()
	}
}
