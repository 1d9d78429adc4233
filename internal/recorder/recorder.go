package recorder

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/repo"
)

// Recorder — единственный писатель записей Execution и NodeExecution.
//
// Движок сообщает recorder'у о каждом событии обхода: запуск узла,
// его терминальное состояние и финализация execution. Остальные
// компоненты (API, CLI) читают историю, но не пишут её.
type Recorder struct {
	executions *repo.ExecutionRepo
	logger     *slog.Logger
}

// New создаёт Recorder поверх репозитория executions.
func New(executions *repo.ExecutionRepo, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{executions: executions, logger: logger}
}

// BeginExecution создаёт execution в статусе running.
func (r *Recorder) BeginExecution(ctx context.Context, workflowID uuid.UUID, trigger, principal string) (*domain.Execution, error) {
	now := time.Now()
	exec := &domain.Execution{
		ID:         uuid.New(),
		WorkflowID: workflowID,
		Status:     domain.ExecutionStatusRunning,
		Trigger:    trigger,
		Principal:  principal,
		StartedAt:  now,
		CreatedAt:  now,
	}
	if err := r.executions.Create(ctx, exec); err != nil {
		return nil, err
	}
	return exec, nil
}

// BeginNode создаёт запись о запуске узла с его входным батчем.
func (r *Recorder) BeginNode(ctx context.Context, executionID uuid.UUID, nodeID string, inputs []domain.Item) (*domain.NodeExecution, error) {
	rec := &domain.NodeExecution{
		ID:          uuid.New(),
		ExecutionID: executionID,
		NodeID:      nodeID,
		Status:      domain.NodeExecutionStatusRunning,
		InputItems:  inputs,
		StartedAt:   time.Now(),
	}
	if err := r.executions.CreateNode(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// CompleteNode фиксирует успешное завершение узла.
func (r *Recorder) CompleteNode(ctx context.Context, rec *domain.NodeExecution, outputs []domain.Item) error {
	rec.MarkSuccess(outputs)
	return r.executions.FinishNode(ctx, rec)
}

// FailNode фиксирует ошибку узла.
func (r *Recorder) FailNode(ctx context.Context, rec *domain.NodeExecution, nodeErr error) error {
	rec.MarkError(nodeErr.Error())
	return r.executions.FinishNode(ctx, rec)
}

// CompleteExecution переводит execution в терминальный статус.
// Повторная финализация невозможна на уровне БД, поэтому гонка
// между отменой и естественным завершением безопасна.
func (r *Recorder) CompleteExecution(ctx context.Context, executionID uuid.UUID, status domain.ExecutionStatus, errMsg string) error {
	err := r.executions.Finish(ctx, executionID, status, errMsg)
	if err != nil {
		r.logger.Warn("execution already finalized",
			"execution_id", executionID, "status", status, "error", err)
	}
	return err
}
