// Conveyor Scheduler — запускает workflows по расписанию.
//
// Scheduler:
//   - Выбирает due schedules из PostgreSQL
//   - Создаёт executions с trigger="schedule"
//   - Обновляет next_due_at и публикует execution.pending
//
// Лидерство между экземплярами — через pg_try_advisory_lock:
// тикает только лидер, остальные ждут освобождения блокировки.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Conveyor/internal/config"
	"github.com/shaiso/Conveyor/internal/mq"
	"github.com/shaiso/Conveyor/internal/recorder"
	"github.com/shaiso/Conveyor/internal/repo"
	"github.com/shaiso/Conveyor/internal/scheduler"
	"github.com/shaiso/Conveyor/internal/telemetry"
)

const schedLockKey int64 = 727272

var tickTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "conveyor_scheduler_ticks_total",
	Help: "Total scheduler ticks performed as leader",
})

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting conveyor-scheduler")

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

	scheduleRepo := repo.NewScheduleRepo(pool)
	workflowRepo := repo.NewWorkflowRepo(pool)
	executionRepo := repo.NewExecutionRepo(pool)
	rec := recorder.New(executionRepo, logger)

	// RabbitMQ: без него созданные executions ждут встроенный движок API
	var publisher *mq.Publisher
	mqURL := cfg.RabbitMQURL
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}
	mqConn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, executions will not be dispatched", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		publisher = mq.NewPublisher(mqConn, logger)
	}

	sched := scheduler.New(scheduler.Config{
		Schedules: scheduleRepo,
		Workflows: workflowRepo,
		Recorder:  rec,
		Publisher: publisher,
		Logger:    logger,
	})

	// scheduler loop
	go func() {
		tk := time.NewTicker(cfg.SchedulerInterval())
		defer tk.Stop()

		// Advisory lock живёт на сессии PostgreSQL, поэтому блокировку
		// нужно держать на выделенном соединении: запрос через pool
		// ушёл бы на произвольное соединение, и pool мог бы закрыть
		// его вместе с лидерством.
		var (
			lockConn *pgxpool.Conn
			hasLock  bool
		)
		resign := func() {
			if lockConn == nil {
				return
			}
			if hasLock {
				_, _ = lockConn.Exec(context.Background(), "select pg_advisory_unlock($1)", schedLockKey)
			}
			lockConn.Release()
			lockConn = nil
			hasLock = false
		}
		defer resign()

		for {
			select {
			case <-tk.C:
				if lockConn == nil {
					conn, err := pool.Acquire(ctx)
					if err != nil {
						logger.Error("failed to acquire lock connection", "error", err)
						continue
					}
					lockConn = conn
				}

				if hasLock {
					// Сессия умерла — вместе с ней и блокировка.
					if err := lockConn.Ping(ctx); err != nil {
						logger.Warn("lock connection lost, resigning leadership", "error", err)
						lockConn.Release()
						lockConn = nil
						hasLock = false
						continue
					}
				} else {
					// пытаемся стать лидером
					if err := lockConn.QueryRow(ctx, "select pg_try_advisory_lock($1)", schedLockKey).Scan(&hasLock); err != nil {
						logger.Error("advisory lock error", "error", err)
						lockConn.Release()
						lockConn = nil
						continue
					}
				}

				if !hasLock {
					// не лидер — пропускаем тик
					continue
				}

				tickTotal.Inc()
				if err := sched.Tick(ctx); err != nil {
					logger.Error("tick failed", "error", err)
				}

			case <-ctx.Done():
				return
			}
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

	<-ctx.Done()
	logger.Info("conveyor-scheduler stopped")
}

// newPool подключается по DSN из конфига, с dev-дефолтом при пустом.
func newPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL != "" {
		return repo.NewPoolWithDSN(ctx, cfg.DatabaseURL)
	}
	return repo.NewPool(ctx)
}
