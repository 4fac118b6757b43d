// Package dlq watches the dead-letter topic. A non-empty DLQ is the
// pipeline's only externally observable failure signal besides logs, so the
// monitor exports its depth as a gauge and logs a warning while it stays
// non-empty.
package dlq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Monitor polls the DLQ topic's offset range.
type Monitor struct {
	topic    string
	interval time.Duration
	gauge    prometheus.Gauge
	logger   *slog.Logger
	admin    *kadm.Client
	client   *kgo.Client
}

// New creates a monitor polling every interval (default 30s).
func New(brokers []string, topic string, gauge prometheus.Gauge, logger *slog.Logger, interval time.Duration) (*Monitor, error) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	client, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return nil, fmt.Errorf("create kafka admin client: %w", err)
	}
	return &Monitor{
		topic:    topic,
		interval: interval,
		gauge:    gauge,
		logger:   logger,
		admin:    kadm.NewClient(client),
		client:   client,
	}, nil
}

// Run polls until ctx ends.
func (m *Monitor) Run(ctx context.Context) error {
	defer m.client.Close()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			depth, err := m.depth(ctx)
			if err != nil {
				m.logger.Error("dlq depth check failed", "topic", m.topic, "error", err)
				continue
			}
			m.gauge.Set(float64(depth))
			if depth > 0 {
				m.logger.Warn("dead-letter queue is not empty",
					"topic", m.topic,
					"depth", depth,
				)
			}
		}
	}
}

// depth is the sum over partitions of end offset minus start offset. DLQ
// messages are never consumed by the application, so the range is the
// number of parked messages within the topic's retention window.
func (m *Monitor) depth(ctx context.Context) (int64, error) {
	start, err := m.admin.ListStartOffsets(ctx, m.topic)
	if err != nil {
		return 0, fmt.Errorf("list start offsets: %w", err)
	}
	end, err := m.admin.ListEndOffsets(ctx, m.topic)
	if err != nil {
		return 0, fmt.Errorf("list end offsets: %w", err)
	}

	starts := make(map[int32]int64)
	start.Each(func(o kadm.ListedOffset) {
		starts[o.Partition] = o.Offset
	})

	var depth int64
	end.Each(func(o kadm.ListedOffset) {
		depth += o.Offset - starts[o.Partition]
	})
	return depth, nil
}
