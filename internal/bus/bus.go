// Package bus defines the message-bus abstraction for the ticket pipeline.
//
// Delivery is at least once: a message may reach a handler more than once
// and handlers must be idempotent. Ordering across distinct tickets is not
// guaranteed. A message whose handler keeps failing is redelivered up to a
// bounded attempt count and then diverted to the dead-letter topic.
//
// The in-process implementation (bus/memory) backs unit tests; the Kafka
// implementation (bus/kafka) backs production.
package bus

import (
	"context"
	"errors"
	"fmt"
)

// Message is the delivery envelope. Key is the idempotency key of the
// logical event (the ticket code); Attempts counts deliveries of this
// message including the current one.
type Message struct {
	Topic    string
	Key      []byte
	Value    []byte
	Attempts int
	Headers  map[string]string
}

// Handler processes one delivered message. A nil return acknowledges the
// message. A plain error requests redelivery (transient failure). An error
// wrapped with Permanent diverts the message to the DLQ immediately.
type Handler func(ctx context.Context, msg *Message) error

// Publisher publishes messages to a topic.
type Publisher interface {
	Publish(ctx context.Context, msg *Message) error
}

// Subscriber delivers messages from a topic to a handler until ctx ends.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handler Handler) error
}

// PermanentError marks a failure that cannot succeed on redelivery, such as
// a payload that will never decode. The bus routes these straight to the
// DLQ instead of burning the retry budget.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent: %v", e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so the bus diverts the message to the DLQ without
// further attempts. A nil err returns nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err carries a PermanentError anywhere in its
// chain.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
