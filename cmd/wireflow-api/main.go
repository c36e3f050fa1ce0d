// Wireflow API — HTTP сервис редактора flow.
//
// Сервис:
//   - Держит сессию редактирования (workspace, canvas, журнал undo/redo)
//   - Выполняет узлы и flow по запросу пользователя
//   - Сохраняет проекты в PostgreSQL или SQLite
//   - Публикует события и принимает webhook'и через RabbitMQ (опционально)
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Wireflow/internal/api"
	"github.com/shaiso/Wireflow/internal/config"
	"github.com/shaiso/Wireflow/internal/credential"
	"github.com/shaiso/Wireflow/internal/editor"
	"github.com/shaiso/Wireflow/internal/executor"
	"github.com/shaiso/Wireflow/internal/mq"
	"github.com/shaiso/Wireflow/internal/repo"
	"github.com/shaiso/Wireflow/internal/telemetry"
)

var (
	startTime = time.Now()
	reqTotal  = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wireflow_api_healthz_requests_total",
		Help: "Total /healthz requests handled by wireflow-api",
	})
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger("wireflow-api")
	logger.Info("starting wireflow-api")

	if err := run(logger); err != nil {
		logger.Error("wireflow-api failed", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Хранилище
	flowRepo, closeRepo, err := repo.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	defer closeRepo()
	logger.Info("repository ready", "driver", cfg.DBDriver)

	// RabbitMQ
	var publisher *mq.Publisher
	if cfg.RabbitMQURL != "" {
		conn, err := mq.NewConnection(mq.ConnectionConfig{
			URL:         cfg.RabbitMQURL,
			Name:        "wireflow-api",
			OnReconnect: mq.DeclareTopology,
			Logger:      logger,
		})
		if err != nil {
			logger.Warn("RabbitMQ not available, events and webhooks disabled", "error", err)
		} else {
			defer conn.Close()
			if err := mq.SetupTopology(ctx, conn); err != nil {
				logger.Warn("failed to setup topology", "error", err)
			}
			publisher = mq.NewPublisher(conn, logger)
			logger.Info("RabbitMQ connected")
		}
	}

	dispatcher := executor.NewDispatcher(executor.DispatcherConfig{
		HTTPClient:  &http.Client{Timeout: cfg.HTTPTimeout()},
		Credentials: credential.NewClient(cfg.CredentialAPIURL, cfg.HTTPTimeout()),
	})

	notifier := executor.MultiNotifier{&executor.LogNotifier{Logger: logger}}
	sessionCfg := editor.Config{
		Repository: flowRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	}
	handlerCfg := api.Config{Logger: logger}
	// Интерфейсы получают publisher только если он есть: nil *Publisher
	// в интерфейсе не равен nil.
	if publisher != nil {
		sessionCfg.Events = publisher
		notifier = append(notifier, publisher)
		handlerCfg.Webhooks = publisher
	}
	sessionCfg.Notifier = notifier

	session := editor.New(sessionCfg)
	if err := session.Load(ctx); err != nil {
		return fmt.Errorf("load workspace: %w", err)
	}
	handlerCfg.Session = session

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		reqTotal.Inc()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	api.NewHandler(handlerCfg).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
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
		logger.Info("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
