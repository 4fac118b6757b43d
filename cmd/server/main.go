// The server binary exposes the HTTP API: ticket submission, ticket status,
// admin review, organization management, and the audit read surface. Ticket
// processing itself runs in the worker binary.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orgdesk/pkg/platform/middleware/auth"

	"orgdesk/internal/audit"
	"orgdesk/internal/audit/query"
	auditpg "orgdesk/internal/audit/store/postgres"
	kafkabus "orgdesk/internal/bus/kafka"
	"orgdesk/internal/org"
	"orgdesk/internal/platform/config"
	"orgdesk/internal/platform/httpserver"
	"orgdesk/internal/platform/logger"
	"orgdesk/internal/platform/metrics"
	"orgdesk/internal/platform/postgres"
	"orgdesk/internal/platform/redis"
	"orgdesk/internal/ticket/gateway"
	"orgdesk/internal/ticket/notify"
	"orgdesk/internal/ticket/review"
	"orgdesk/internal/ticket/sequence"
	"orgdesk/internal/ticket/status"
	"orgdesk/internal/ticket/store"
	httptransport "orgdesk/internal/transport/http"
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
	} else {
		log.Info("redis not configured, status cache disabled")
	}

	producer, err := kafkabus.NewProducer(cfg.Kafka.Brokers)
	if err != nil {
		log.Error("kafka producer connection failed", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	m := metrics.New()
	cache := status.NewCache(redisClient)

	gatewaySvc := gateway.New(
		sequence.NewPostgres(db),
		producer,
		cfg.Kafka.TicketTopic,
		cache,
		m,
		log,
	)

	uow := audit.NewSQLUnitOfWork(db)
	recorder := audit.NewRecorder(auditpg.New(db), cfg.Audit.Tables, m, log)
	notifier := notify.New(&notify.LogSender{Logger: log}, log)

	reviewSvc := review.New(store.NewPostgres(db), uow, recorder, cache, notifier, m, log)
	orgSvc := org.NewService(org.NewPostgres(db), uow, recorder, log)
	auditSvc := query.New(auditpg.New(db), cfg.Audit.RedactKeys)

	handler := httptransport.NewHandler(gatewaySvc, reviewSvc, orgSvc, auditSvc, log)
	router := httptransport.NewRouter(handler, auth.NewHMACVerifier(cfg.Server.JWTSigningKey))

	srv := httpserver.New(cfg.Server.Addr, router)

	go func() {
		log.Info("server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
