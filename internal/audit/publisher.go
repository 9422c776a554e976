package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Publisher fans events out to every sink; a failing sink does not stop the
// others. It is append-only; with an async
// buffer events are delivered from a background goroutine and dropped when
// the buffer is full.
type Publisher struct {
	sinks  []Sink
	events chan Event
	wg     sync.WaitGroup
	logger *slog.Logger
	async  bool
}

// PublisherOption configures the Publisher.
type PublisherOption func(*Publisher)

// WithAsyncBuffer enables async delivery with the given buffer size.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan Event, size)
			p.async = true
		}
	}
}

// WithPublisherLogger sets a logger for async error reporting.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithSink adds a sink.
func WithSink(sink Sink) PublisherOption {
	return func(p *Publisher) {
		if sink != nil {
			p.sinks = append(p.sinks, sink)
		}
	}
}

func NewPublisher(opts ...PublisherOption) *Publisher {
	p := &Publisher{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.processEvents()
	}
	return p
}

func (p *Publisher) processEvents() {
	defer p.wg.Done()
	for event := range p.events {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := p.deliver(ctx, event); err != nil {
			p.logger.Error("failed to deliver consent audit event",
				"error", err,
				"action", event.Action,
				"event_id", event.ID,
			)
		}
		cancel()
	}
}

// Close stops the async worker after draining queued events.
func (p *Publisher) Close() {
	if p.async && p.events != nil {
		close(p.events)
		p.wg.Wait()
	}
}

// Emit publishes event. Async publishers never block the caller.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if p == nil {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if p.async {
		select {
		case p.events <- event:
		default:
			p.logger.WarnContext(ctx, "audit buffer full, event dropped",
				"action", event.Action,
				"event_id", event.ID,
			)
		}
		return nil
	}
	return p.deliver(ctx, event)
}

func (p *Publisher) deliver(ctx context.Context, event Event) error {
	var g errgroup.Group
	for _, sink := range p.sinks {
		g.Go(func() error {
			return sink.Append(ctx, event)
		})
	}
	return g.Wait()
}
