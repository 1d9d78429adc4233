package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/mq"
	"github.com/shaiso/Conveyor/internal/recorder"
	"github.com/shaiso/Conveyor/internal/repo"
)

// Scheduler — планировщик, запускающий workflows по расписанию.
type Scheduler struct {
	schedules *repo.ScheduleRepo
	workflows *repo.WorkflowRepo
	recorder  *recorder.Recorder
	publisher *mq.Publisher
	logger    *slog.Logger
	batchSize int
}

// Config — конфигурация Scheduler.
type Config struct {
	Schedules *repo.ScheduleRepo
	Workflows *repo.WorkflowRepo
	Recorder  *recorder.Recorder
	Publisher *mq.Publisher
	Logger    *slog.Logger
	BatchSize int // количество schedules за один тик (default: 100)
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		schedules: cfg.Schedules,
		workflows: cfg.Workflows,
		recorder:  cfg.Recorder,
		publisher: cfg.Publisher,
		logger:    logger,
		batchSize: batchSize,
	}
}

// Tick выполняет один тик планировщика.
//
// Находит due schedules, создаёт для каждого execution со статусом
// running и trigger="schedule", обновляет next_due_at и публикует
// execution.pending. Ошибки одного schedule не блокируют остальные.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := time.Now()

	schedules, err := s.schedules.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due schedules: %w", err)
	}
	if len(schedules) == 0 {
		return nil
	}

	s.logger.Debug("found due schedules", "count", len(schedules))

	var fired int
	for i := range schedules {
		sched := &schedules[i]

		if err := s.fire(ctx, sched, now); err != nil {
			s.logger.Error("failed to fire schedule",
				"schedule_id", sched.ID,
				"schedule_name", sched.Name,
				"error", err,
			)
			continue
		}
		fired++
	}

	s.logger.Info("scheduler tick completed",
		"due", len(schedules),
		"fired", fired,
	)
	return nil
}

// fire запускает один schedule.
func (s *Scheduler) fire(ctx context.Context, sched *domain.Schedule, now time.Time) error {
	wf, err := s.workflows.GetByID(ctx, sched.WorkflowID)
	if errors.Is(err, repo.ErrNotFound) {
		// Workflow удалён — выключаем schedule, чтобы не дёргать его
		// каждый тик.
		s.logger.Warn("workflow not found for schedule, disabling",
			"schedule_id", sched.ID,
			"workflow_id", sched.WorkflowID,
		)
		return s.schedules.SetEnabled(ctx, sched.ID, false)
	}
	if err != nil {
		return fmt.Errorf("get workflow: %w", err)
	}

	// Принципал запуска по расписанию — владелец workflow.
	exec, err := s.recorder.BeginExecution(ctx, wf.ID, "schedule", wf.CreatedBy)
	if err != nil {
		return fmt.Errorf("begin execution: %w", err)
	}

	s.logger.Info("created execution from schedule",
		"execution_id", exec.ID,
		"schedule_id", sched.ID,
		"schedule_name", sched.Name,
		"workflow_id", wf.ID,
	)

	var nextDue *time.Time
	next, err := CalculateNextDue(sched, now)
	if err != nil {
		// Некорректный schedule: next_due_at сбрасывается, schedule
		// больше не попадёт в выборку due.
		s.logger.Error("failed to calculate next due",
			"schedule_id", sched.ID,
			"error", err,
		)
	} else {
		nextDue = &next
	}

	if err := s.schedules.MarkFired(ctx, sched.ID, exec.ID, now, nextDue); err != nil {
		return fmt.Errorf("mark schedule fired: %w", err)
	}

	if s.publisher != nil {
		err := s.publisher.PublishExecutionPending(ctx, mq.ExecutionPendingPayload{
			ExecutionID: exec.ID,
			WorkflowID:  wf.ID,
			Principal:   exec.Principal,
		})
		if err != nil {
			// Execution уже создан в БД; зависшую строку можно добить
			// вручную, но тик не фейлим.
			s.logger.Warn("failed to publish execution.pending",
				"execution_id", exec.ID,
				"error", err,
			)
		}
	}

	return nil
}
