// The worker binary runs the ticket pipeline consumers: it subscribes to the
// ticket topic in a consumer group, stores submissions with their audit
// records, and watches the dead-letter topic. Scaling out means running more
// worker processes in the same group.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"orgdesk/internal/audit"
	auditpg "orgdesk/internal/audit/store/postgres"
	"orgdesk/internal/bus/dlq"
	kafkabus "orgdesk/internal/bus/kafka"
	"orgdesk/internal/platform/config"
	"orgdesk/internal/platform/logger"
	"orgdesk/internal/platform/metrics"
	"orgdesk/internal/platform/postgres"
	"orgdesk/internal/platform/redis"
	"orgdesk/internal/ticket/models"
	"orgdesk/internal/ticket/notify"
	"orgdesk/internal/ticket/processor"
	"orgdesk/internal/ticket/status"
	"orgdesk/internal/ticket/store"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	db, err := postgres.Open(cfg.Postgres)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.Migrate(context.Background(), db); err != nil {
		log.Error("schema migration failed", "error", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.New()
	tickets := store.NewPostgres(db)
	uow := audit.NewSQLUnitOfWork(db)
	recorder := audit.NewRecorder(auditpg.New(db), cfg.Audit.Tables, m, log)
	cache := status.NewCache(redisClient)
	notifier := notify.New(&notify.LogSender{Logger: log}, log)

	proc := processor.New(m, log)
	for _, t := range models.AllTypes() {
		proc.Register(t.EventType(), processor.NewSubmittedHandler(
			t, tickets, uow, recorder, cache, notifier, m, log,
		))
	}

	monitor, err := dlq.New(cfg.Kafka.Brokers, cfg.Kafka.DLQTopic, m.DLQDepth, log, 0)
	if err != nil {
		log.Error("dlq monitor setup failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Pipeline.Workers; i++ {
		sub := kafkabus.NewSubscriber(kafkabus.SubscriberConfig{
			Brokers:        cfg.Kafka.Brokers,
			Group:          cfg.Kafka.ConsumerGroup,
			DLQTopic:       cfg.Kafka.DLQTopic,
			MaxAttempts:    cfg.Pipeline.MaxAttempts,
			HandlerTimeout: cfg.Pipeline.HandlerTimeout,
			Logger:         log,
		})
		g.Go(func() error {
			return sub.Subscribe(ctx, cfg.Kafka.TicketTopic, proc.HandleMessage)
		})
	}
	g.Go(func() error {
		return monitor.Run(ctx)
	})

	log.Info("worker started",
		"workers", cfg.Pipeline.Workers,
		"topic", cfg.Kafka.TicketTopic,
		"group", cfg.Kafka.ConsumerGroup,
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("worker stopped", "error", err)
		os.Exit(1)
	}
	log.Info("worker shut down")
}
