// Package memory is an in-process message broker implementing the bus
// contract for unit tests: at-least-once delivery, visibility timeout,
// bounded attempts, and dead-letter diversion.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"orgdesk/internal/bus"
)

// Broker is a channel-free, goroutine-per-message broker. Messages
// published to a topic with no subscriber are buffered and delivered when a
// subscriber registers.
type Broker struct {
	mu          sync.Mutex
	maxAttempts int
	visibility  time.Duration
	logger      *slog.Logger

	handlers map[string]bus.Handler
	pending  map[string][]*bus.Message
	dead     map[string][]*bus.Message

	inflight sync.WaitGroup
}

// Option configures the Broker.
type Option func(*Broker)

// WithMaxAttempts bounds deliveries of one message before DLQ diversion.
func WithMaxAttempts(n int) Option {
	return func(b *Broker) {
		if n > 0 {
			b.maxAttempts = n
		}
	}
}

// WithVisibilityTimeout sets the lease: a handler still running past it is
// treated as stalled and the message is redelivered, so the same message
// can genuinely execute twice.
func WithVisibilityTimeout(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.visibility = d
		}
	}
}

// WithLogger sets a logger for delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Broker) {
		b.logger = logger
	}
}

// New creates a broker with a default retry budget of 3 attempts and a
// 30 second visibility timeout.
func New(opts ...Option) *Broker {
	b := &Broker{
		maxAttempts: 3,
		visibility:  30 * time.Second,
		logger:      slog.Default(),
		handlers:    make(map[string]bus.Handler),
		pending:     make(map[string][]*bus.Message),
		dead:        make(map[string][]*bus.Message),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish implements bus.Publisher. Delivery happens asynchronously; call
// Wait to block until every published message reached a final outcome.
func (b *Broker) Publish(_ context.Context, msg *bus.Message) error {
	b.mu.Lock()
	handler, ok := b.handlers[msg.Topic]
	if !ok {
		b.pending[msg.Topic] = append(b.pending[msg.Topic], msg)
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	b.inflight.Add(1)
	go b.deliver(handler, msg)
	return nil
}

// Subscribe implements bus.Subscriber. Only one handler per topic is
// supported; buffered messages are delivered immediately.
func (b *Broker) Subscribe(_ context.Context, topic string, handler bus.Handler) error {
	b.mu.Lock()
	b.handlers[topic] = handler
	backlog := b.pending[topic]
	delete(b.pending, topic)
	b.mu.Unlock()

	for _, msg := range backlog {
		b.inflight.Add(1)
		go b.deliver(handler, msg)
	}
	return nil
}

// deliver drives one message to a final outcome: ack, or dead-letter after
// the attempt budget or a permanent failure.
func (b *Broker) deliver(handler bus.Handler, msg *bus.Message) {
	defer b.inflight.Done()

	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		delivery := *msg
		delivery.Attempts = attempt

		err := b.attempt(handler, &delivery)
		if err == nil {
			return
		}
		if bus.IsPermanent(err) {
			b.logger.Warn("permanent failure, dead-lettering message",
				"topic", msg.Topic,
				"key", string(msg.Key),
				"attempt", attempt,
				"error", err,
			)
			b.deadLetter(msg)
			return
		}
		b.logger.Warn("delivery attempt failed",
			"topic", msg.Topic,
			"key", string(msg.Key),
			"attempt", attempt,
			"error", err,
		)
	}

	b.deadLetter(msg)
}

// attempt runs the handler under the visibility timeout. A handler that
// outlives the lease counts as a failed attempt even if it later succeeds,
// mirroring broker redelivery of in-flight messages.
func (b *Broker) attempt(handler bus.Handler, msg *bus.Message) error {
	done := make(chan error, 1)
	go func() {
		done <- handler(context.Background(), msg)
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(b.visibility):
		return context.DeadlineExceeded
	}
}

func (b *Broker) deadLetter(msg *bus.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dead[msg.Topic] = append(b.dead[msg.Topic], msg)
}

// Wait blocks until all published messages reached a final outcome.
func (b *Broker) Wait() {
	b.inflight.Wait()
}

// DLQ returns the dead-lettered messages for a topic.
func (b *Broker) DLQ(topic string) []*bus.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*bus.Message{}, b.dead[topic]...)
}

// DLQDepth returns the number of dead-lettered messages for a topic.
func (b *Broker) DLQDepth(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.dead[topic])
}
