// Conveyor Engine — выполняет executions.
//
// Engine:
//   - Получает executions из RabbitMQ (executions.pending)
//   - Строит граф workflow и выполняет узлы в топологическом порядке
//   - Записывает прогресс в PostgreSQL
//   - Слушает fanout-очередь отмен: отмену должен увидеть каждый
//     экземпляр, execution может жить в любом из них
//
// Engines масштабируются горизонтально.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

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
	execStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conveyor_engine_executions_started_total",
		Help: "Total executions picked up by this engine instance",
	})
	execFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conveyor_engine_executions_failed_total",
		Help: "Total executions finished with an error",
	})
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting conveyor-engine")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// DB pool
	pool, err := newPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	workflowRepo := repo.NewWorkflowRepo(pool)
	executionRepo := repo.NewExecutionRepo(pool)
	credentialRepo := repo.NewCredentialRepo(pool)

	rec := recorder.New(executionRepo, logger)

	// RabbitMQ обязателен: engine без очереди бесполезен
	mqURL := cfg.RabbitMQURL
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}
	mqConn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()
	logger.Info("RabbitMQ connected")

	if err := mq.SetupTopology(ctx, mqConn); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}

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

	// Consumer executions.pending
	pendingConsumer := mq.NewConsumer(mqConn, logger, mq.ConsumerConfig{
		Queue:    string(mq.QueueExecutionsPending),
		Prefetch: 4,
		Handler: func(ctx context.Context, msg *mq.Delivery) error {
			payload, err := mq.ParsePayload[mq.ExecutionPendingPayload](&msg.Message)
			if err != nil {
				return fmt.Errorf("%w: execution.pending payload: %v", mq.ErrDeadLetter, err)
			}

			execStarted.Inc()
			// Результат записан в executions; requeue породил бы
			// второй запуск того же execution.
			if runErr := runner.Run(ctx, payload.ExecutionID, payload.WorkflowID, payload.Principal, payload.Seed); runErr != nil {
				if !errors.Is(runErr, engine.ErrExecutionActive) {
					execFailed.Inc()
				}
			}
			return nil
		},
	})

	// Fanout-очередь отмен этого экземпляра. Очередь эксклюзивная и
	// исчезает вместе с соединением, поэтому объявляется заново при
	// каждой (пере)подписке consumer-а.
	cancelConsumer := mq.NewConsumer(mqConn, logger, mq.ConsumerConfig{
		Setup: func(ctx context.Context) (string, error) {
			return mq.DeclareCancelQueue(ctx, mqConn)
		},
		Handler: func(_ context.Context, msg *mq.Delivery) error {
			payload, err := mq.ParsePayload[mq.ExecutionCancelPayload](&msg.Message)
			if err != nil {
				return fmt.Errorf("%w: execution.cancel payload: %v", mq.ErrDeadLetter, err)
			}

			// false — execution живёт в другом экземпляре, это норма.
			if runner.Cancel(payload.ExecutionID) {
				logger.Info("execution cancel delivered", "execution_id", payload.ExecutionID)
			}
			return nil
		},
	})

	go func() {
		if err := pendingConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("pending consumer stopped", "error", err)
			cancel()
		}
	}()
	go func() {
		if err := cancelConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("cancel consumer stopped", "error", err)
			cancel()
		}
	}()

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		logger.Info("listening", "addr", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	pendingConsumer.Stop()
	cancelConsumer.Stop()
	logger.Info("conveyor-engine stopped")
}

// newPool подключается по DSN из конфига, с dev-дефолтом при пустом.
func newPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL != "" {
		return repo.NewPoolWithDSN(ctx, cfg.DatabaseURL)
	}
	return repo.NewPool(ctx)
}
