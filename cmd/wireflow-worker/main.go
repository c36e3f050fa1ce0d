// Wireflow Worker — выполняет flow по внешним вызовам webhook'ов.
//
// Worker:
//   - Получает доставки из очереди webhooks.received
//   - Загружает flow из хранилища и выполняет webhook-trigger
//     и достижимые из него узлы
//   - Сохраняет результаты выполнения и публикует node.executed
//
// Workers масштабируются горизонтально.
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
	"github.com/shaiso/Wireflow/internal/credential"
	"github.com/shaiso/Wireflow/internal/executor"
	"github.com/shaiso/Wireflow/internal/mq"
	"github.com/shaiso/Wireflow/internal/repo"
	"github.com/shaiso/Wireflow/internal/telemetry"
	"github.com/shaiso/Wireflow/internal/worker"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger("wireflow-worker")
	logger.Info("starting wireflow-worker")

	if err := run(logger); err != nil {
		logger.Error("wireflow-worker failed", "error", err)
		os.Exit(1)
	}
	logger.Info("wireflow-worker stopped")
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.RabbitMQURL == "" {
		return errors.New("RABBITMQ_URL is required for the worker")
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	flowRepo, closeRepo, err := repo.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	defer closeRepo()
	logger.Info("repository ready", "driver", cfg.DBDriver)

	// RabbitMQ
	conn, err := mq.NewConnection(mq.ConnectionConfig{
		URL:         cfg.RabbitMQURL,
		Name:        "wireflow-worker",
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
	logger.Info("RabbitMQ connected")
	logger.Debug("RabbitMQ topology", "topology", mq.TopologyInfo())

	w := worker.New(worker.Config{
		Flows: flowRepo,
		Dispatcher: executor.NewDispatcher(executor.DispatcherConfig{
			HTTPClient:  &http.Client{Timeout: cfg.HTTPTimeout()},
			Credentials: credential.NewClient(cfg.CredentialAPIURL, cfg.HTTPTimeout()),
		}),
		Notifier: executor.MultiNotifier{
			&executor.LogNotifier{Logger: logger},
			mq.NewPublisher(conn, logger),
		},
		Conn:     conn,
		Logger:   logger,
	})

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	defer w.Stop()

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		if !conn.IsConnected() {
			rw.WriteHeader(http.StatusServiceUnavailable)
			rw.Write([]byte("rabbitmq disconnected"))
			return
		}
		rw.WriteHeader(http.StatusOK)
		rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              ":" + cfg.WorkerPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
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
