package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"orgdesk/internal/bus"
)

// attemptsHeader carries the delivery count across redeliveries. Kafka has
// no native attempt counter, so the subscriber republishes failed records
// with the header incremented and commits the original offset.
const attemptsHeader = "orgdesk-attempts"

// errorHeader records the final failure on dead-lettered records for manual
// inspection.
const errorHeader = "orgdesk-error"

// SubscriberConfig configures a consumer-group subscriber.
type SubscriberConfig struct {
	Brokers        []string
	Group          string
	DLQTopic       string
	MaxAttempts    int
	HandlerTimeout time.Duration
	Logger         *slog.Logger
}

// Subscriber consumes a topic within a consumer group, enforcing the retry
// budget and dead-letter diversion around the caller's handler.
type Subscriber struct {
	cfg SubscriberConfig
}

// NewSubscriber creates a subscriber. Defaults: 3 attempts, 30s handler
// timeout.
func NewSubscriber(cfg SubscriberConfig) *Subscriber {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Subscriber{cfg: cfg}
}

// Subscribe implements bus.Subscriber. It blocks until ctx is cancelled.
// Offsets are committed only after a record reached a final outcome, so a
// crashed worker leaves its in-flight records uncommitted for redelivery.
func (s *Subscriber) Subscribe(ctx context.Context, topic string, handler bus.Handler) error {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(s.cfg.Brokers...),
		kgo.ConsumerGroup(s.cfg.Group),
		kgo.ConsumeTopics(topic),
		kgo.DisableAutoCommit(),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return fmt.Errorf("create kafka consumer: %w", err)
	}
	defer client.Close()

	for {
		fetches := client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(t string, p int32, err error) {
			s.cfg.Logger.Error("fetch error", "topic", t, "partition", p, "error", err)
		})

		var processed []*kgo.Record
		for _, record := range fetches.Records() {
			if err := s.handle(ctx, client, record, handler); err != nil {
				// Redrive publish failed; leave the offset uncommitted so
				// the record is redelivered.
				s.cfg.Logger.Error("redrive failed, leaving offset uncommitted",
					"topic", record.Topic,
					"key", string(record.Key),
					"error", err,
				)
				continue
			}
			processed = append(processed, record)
		}
		if len(processed) > 0 {
			if err := client.CommitRecords(ctx, processed...); err != nil {
				s.cfg.Logger.Error("commit failed", "error", err)
			}
		}
	}
}

// handle drives one record to a final outcome. A nil return means the
// record's offset may be committed: it was acknowledged, requeued with an
// incremented attempt count, or dead-lettered.
func (s *Subscriber) handle(ctx context.Context, client *kgo.Client, record *kgo.Record, handler bus.Handler) error {
	attempt := attemptFrom(record)

	msg := &bus.Message{
		Topic:    record.Topic,
		Key:      record.Key,
		Value:    record.Value,
		Attempts: attempt,
		Headers:  fromRecordHeaders(record.Headers),
	}

	handleCtx, cancel := context.WithTimeout(ctx, s.cfg.HandlerTimeout)
	err := handler(handleCtx, msg)
	cancel()

	if err == nil {
		return nil
	}

	if bus.IsPermanent(err) || attempt >= s.cfg.MaxAttempts {
		s.cfg.Logger.Warn("dead-lettering message",
			"topic", record.Topic,
			"key", string(record.Key),
			"attempt", attempt,
			"permanent", bus.IsPermanent(err),
			"error", err,
		)
		return s.redrive(ctx, client, record, s.cfg.DLQTopic, attempt, err)
	}

	s.cfg.Logger.Warn("requeueing message after transient failure",
		"topic", record.Topic,
		"key", string(record.Key),
		"attempt", attempt,
		"error", err,
	)
	return s.redrive(ctx, client, record, record.Topic, attempt+1, nil)
}

// redrive republishes a record to the given topic carrying its attempt
// count, preserving key and payload.
func (s *Subscriber) redrive(ctx context.Context, client *kgo.Client, record *kgo.Record, topic string, attempt int, cause error) error {
	headers := []kgo.RecordHeader{
		{Key: attemptsHeader, Value: []byte(strconv.Itoa(attempt))},
	}
	if cause != nil {
		headers = append(headers, kgo.RecordHeader{Key: errorHeader, Value: []byte(cause.Error())})
	}
	out := &kgo.Record{
		Topic:   topic,
		Key:     record.Key,
		Value:   record.Value,
		Headers: headers,
	}
	if err := client.ProduceSync(ctx, out).FirstErr(); err != nil {
		return fmt.Errorf("redrive to %s: %w", topic, err)
	}
	return nil
}

// attemptFrom reads the delivery count header; a record without one is on
// its first delivery.
func attemptFrom(record *kgo.Record) int {
	for _, h := range record.Headers {
		if h.Key == attemptsHeader {
			if n, err := strconv.Atoi(string(h.Value)); err == nil && n > 0 {
				return n
			}
			return 1
		}
	}
	return 1
}
