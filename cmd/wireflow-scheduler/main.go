// Wireflow Scheduler — запускает schedule-триггеры сохранённых flow.
//
// Scheduler:
//   - Периодически читает сохранённые flow
//   - Вычисляет следующий запуск каждого schedule-trigger
//   - Публикует наступившие запуски в schedules.fired
//
// С PostgreSQL активен только лидер (pg_try_advisory_lock),
// с SQLite запускается один экземпляр.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Wireflow/internal/config"
	"github.com/shaiso/Wireflow/internal/mq"
	"github.com/shaiso/Wireflow/internal/repo"
	"github.com/shaiso/Wireflow/internal/scheduler"
	"github.com/shaiso/Wireflow/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger("wireflow-scheduler")
	logger.Info("starting wireflow-scheduler")

	if err := run(logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("wireflow-scheduler failed", "error", err)
		os.Exit(1)
	}
	logger.Info("wireflow-scheduler stopped")
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.RabbitMQURL == "" {
		return errors.New("RABBITMQ_URL is required for the scheduler")
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	flowRepo, closeRepo, err := repo.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	defer closeRepo()

	conn, err := mq.NewConnection(mq.ConnectionConfig{
		URL:         cfg.RabbitMQURL,
		Name:        "wireflow-scheduler",
		OnReconnect: mq.DeclareTopology,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	defer conn.Close()

	if err := mq.SetupTopology(ctx, conn); err != nil {
		return fmt.Errorf("setup topology: %w", err)
	}

	schedCfg := scheduler.Config{
		Flows:  flowRepo,
		Queue:  mq.NewPublisher(conn, logger),
		Logger: logger,
	}
	if pg, ok := flowRepo.(*repo.PostgresFlowRepo); ok {
		leader := pg.Leader(repo.SchedulerLockKey)
		defer leader.Release(context.Background())
		schedCfg.Leader = leader
	}
	sched := scheduler.New(schedCfg)

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              ":" + cfg.SchedulerPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("scheduler loop started", "tick", cfg.SchedulerTick())
		return sched.Run(gctx, cfg.SchedulerTick())
	})
	g.Go(func() error {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
