// Conveyor API — HTTP-сервер для управления workflows.
//
// API:
//   - CRUD workflows с валидацией графа при сохранении
//   - Запуск и отмена executions
//   - Управление credentials и schedules
//
// Без RabbitMQ (RABBITMQ_URL пуст) работает во встроенном режиме:
// executions выполняются внутри этого процесса.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Conveyor/internal/api"
	"github.com/shaiso/Conveyor/internal/config"
	"github.com/shaiso/Conveyor/internal/engine"
	"github.com/shaiso/Conveyor/internal/mq"
	"github.com/shaiso/Conveyor/internal/nodes"
	"github.com/shaiso/Conveyor/internal/recorder"
	"github.com/shaiso/Conveyor/internal/repo"
	"github.com/shaiso/Conveyor/internal/secrets"
	"github.com/shaiso/Conveyor/internal/telemetry"
)

var (
	startTime = time.Now()
	reqTotal  = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conveyor_api_http_requests_total",
		Help: "Total HTTP requests handled by conveyor_api",
	})
)

// newPool подключается по DSN из конфига, с dev-дефолтом при пустом.
func newPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL != "" {
		return repo.NewPoolWithDSN(ctx, cfg.DatabaseURL)
	}
	return repo.NewPool(ctx)
}

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting conveyor-api")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Подключаемся к базе данных
	pool, err := newPool(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	// Создаём репозитории
	workflowRepo := repo.NewWorkflowRepo(pool)
	executionRepo := repo.NewExecutionRepo(pool)
	credentialRepo := repo.NewCredentialRepo(pool)
	scheduleRepo := repo.NewScheduleRepo(pool)

	rec := recorder.New(executionRepo, logger)

	// RabbitMQ: без него executions выполняются в этом процессе
	var publisher *mq.Publisher
	if cfg.RabbitMQURL != "" {
		mqConn, err := mq.NewConnection(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Warn("RabbitMQ not available, running in embedded mode", "error", err)
		} else {
			defer mqConn.Close()
			logger.Info("RabbitMQ connected")

			if err := mq.SetupTopology(context.Background(), mqConn); err != nil {
				logger.Warn("failed to setup topology", "error", err)
			}
			publisher = mq.NewPublisher(mqConn, logger)
		}
	} else {
		logger.Info("RABBITMQ_URL is empty, running in embedded mode")
	}

	// Встроенный движок: fallback при недоступном MQ и единственный
	// исполнитель во встроенном режиме
	registry := nodes.DefaultRegistry(nodes.Deps{
		Credentials: secrets.NewStore(credentialRepo),
		Providers: nodes.ProviderSettings{
			OpenRouterBaseURL:  cfg.Providers.OpenRouterBaseURL,
			NvidiaBaseURL:      cfg.Providers.NvidiaBaseURL,
			HuggingFaceBaseURL: cfg.Providers.HuggingFaceBaseURL,
			ChatTimeout:        cfg.Providers.ChatTimeout(),
			ImageTimeout:       cfg.Providers.ImageTimeout(),
		},
		ExportDir: cfg.ExportDir,
		Logger:    logger,
	})
	runner := engine.New(engine.Config{
		Store:    workflowRepo,
		Recorder: rec,
		Registry: registry,
		Logger:   logger,
	})

	// Создаём API handler
	handler := api.NewHandler(api.Config{
		Workflows:   workflowRepo,
		Executions:  executionRepo,
		Credentials: credentialRepo,
		Schedules:   scheduleRepo,
		Recorder:    rec,
		Publisher:   publisher,
		Runner:      runner,
		Logger:      logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		reqTotal.Inc()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	// Создаём HTTP сервер с возможностью graceful shutdown
	server := &http.Server{
		Addr:    cfg.APIAddr,
		Handler: mux,
	}

	// Запускаем сервер в горутине
	go func() {
		logger.Info("listening", "addr", cfg.APIAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Ожидаем сигнал завершения
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
