package memory

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"orgdesk/internal/bus"
)

type BrokerSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *BrokerSuite) SetupTest() {
	s.ctx = context.Background()
}

func TestBrokerSuite(t *testing.T) {
	suite.Run(t, new(BrokerSuite))
}

func (s *BrokerSuite) TestDeliversToSubscriber() {
	broker := New()

	var got atomic.Pointer[bus.Message]
	s.Require().NoError(broker.Subscribe(s.ctx, "tickets", func(_ context.Context, msg *bus.Message) error {
		got.Store(msg)
		return nil
	}))

	s.Require().NoError(broker.Publish(s.ctx, &bus.Message{Topic: "tickets", Key: []byte("A00001"), Value: []byte("{}")}))
	broker.Wait()

	delivered := got.Load()
	s.Require().NotNil(delivered)
	s.Equal("A00001", string(delivered.Key))
	s.Equal(1, delivered.Attempts)
	s.Zero(broker.DLQDepth("tickets"))
}

func (s *BrokerSuite) TestBuffersUntilSubscribe() {
	broker := New()

	s.Require().NoError(broker.Publish(s.ctx, &bus.Message{Topic: "tickets", Key: []byte("A00001")}))

	var count atomic.Int32
	s.Require().NoError(broker.Subscribe(s.ctx, "tickets", func(_ context.Context, _ *bus.Message) error {
		count.Add(1)
		return nil
	}))
	broker.Wait()

	s.Equal(int32(1), count.Load())
}

func (s *BrokerSuite) TestRetriesTransientFailure() {
	broker := New(WithMaxAttempts(3))

	var attempts atomic.Int32
	s.Require().NoError(broker.Subscribe(s.ctx, "tickets", func(_ context.Context, msg *bus.Message) error {
		if attempts.Add(1) < 3 {
			return errors.New("database unavailable")
		}
		return nil
	}))

	s.Require().NoError(broker.Publish(s.ctx, &bus.Message{Topic: "tickets", Key: []byte("A00001")}))
	broker.Wait()

	s.Equal(int32(3), attempts.Load())
	s.Zero(broker.DLQDepth("tickets"))
}

func (s *BrokerSuite) TestDeadLettersAfterExhaustedAttempts() {
	broker := New(WithMaxAttempts(3))

	var attempts atomic.Int32
	s.Require().NoError(broker.Subscribe(s.ctx, "tickets", func(_ context.Context, _ *bus.Message) error {
		attempts.Add(1)
		return errors.New("still failing")
	}))

	s.Require().NoError(broker.Publish(s.ctx, &bus.Message{Topic: "tickets", Key: []byte("A00001")}))
	broker.Wait()

	s.Equal(int32(3), attempts.Load())
	s.Require().Equal(1, broker.DLQDepth("tickets"))
	s.Equal("A00001", string(broker.DLQ("tickets")[0].Key))
}

func (s *BrokerSuite) TestDeadLettersPermanentFailureWithoutRetry() {
	broker := New(WithMaxAttempts(5))

	var attempts atomic.Int32
	s.Require().NoError(broker.Subscribe(s.ctx, "tickets", func(_ context.Context, _ *bus.Message) error {
		attempts.Add(1)
		return bus.Permanent(fmt.Errorf("malformed payload"))
	}))

	s.Require().NoError(broker.Publish(s.ctx, &bus.Message{Topic: "tickets", Key: []byte("A00001")}))
	broker.Wait()

	s.Equal(int32(1), attempts.Load(), "permanent failures must not burn retries")
	s.Equal(1, broker.DLQDepth("tickets"))
}

func (s *BrokerSuite) TestVisibilityTimeoutRedelivers() {
	broker := New(WithMaxAttempts(2), WithVisibilityTimeout(20*time.Millisecond))

	var attempts atomic.Int32
	s.Require().NoError(broker.Subscribe(s.ctx, "tickets", func(_ context.Context, msg *bus.Message) error {
		if attempts.Add(1) == 1 {
			// Outlive the lease; the broker must count this attempt as
			// failed and deliver again.
			time.Sleep(200 * time.Millisecond)
		}
		return nil
	}))

	s.Require().NoError(broker.Publish(s.ctx, &bus.Message{Topic: "tickets", Key: []byte("A00001")}))
	broker.Wait()

	s.Equal(int32(2), attempts.Load())
	s.Zero(broker.DLQDepth("tickets"))
}
