package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Conveyor/internal/domain"
)

// ExecutionRepo — репозиторий для работы с executions и node_executions.
//
// Батчи items узлов хранятся как JSONB рядом с записью узла:
// история выполнения читается целиком одним запросом на execution.
type ExecutionRepo struct {
	pool *pgxpool.Pool
}

// NewExecutionRepo создаёт новый ExecutionRepo.
func NewExecutionRepo(pool *pgxpool.Pool) *ExecutionRepo {
	return &ExecutionRepo{pool: pool}
}

// --- Executions ---

// Create создаёт новый execution.
func (r *ExecutionRepo) Create(ctx context.Context, exec *domain.Execution) error {
	query := `
		INSERT INTO executions (id, workflow_id, status, trigger, principal, error, started_at, finished_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		exec.ID,
		exec.WorkflowID,
		exec.Status,
		exec.Trigger,
		exec.Principal,
		exec.Error,
		exec.StartedAt,
		exec.FinishedAt,
		exec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// GetByID возвращает execution по ID.
func (r *ExecutionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	query := `
		SELECT id, workflow_id, status, trigger, principal, error, started_at, finished_at, created_at
		FROM executions
		WHERE id = $1
	`
	var exec domain.Execution
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&exec.ID,
		&exec.WorkflowID,
		&exec.Status,
		&exec.Trigger,
		&exec.Principal,
		&exec.Error,
		&exec.StartedAt,
		&exec.FinishedAt,
		&exec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get execution by id: %w", err)
	}
	return &exec, nil
}

// ListByWorkflow возвращает executions одного workflow, новые первыми.
func (r *ExecutionRepo) ListByWorkflow(ctx context.Context, workflowID uuid.UUID, limit int) ([]domain.Execution, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, workflow_id, status, trigger, principal, error, started_at, finished_at, created_at
		FROM executions
		WHERE workflow_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, workflowID, limit)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	return scanExecutions(rows)
}

// ListActive возвращает executions в статусе running.
func (r *ExecutionRepo) ListActive(ctx context.Context) ([]domain.Execution, error) {
	query := `
		SELECT id, workflow_id, status, trigger, principal, error, started_at, finished_at, created_at
		FROM executions
		WHERE status = $1
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, domain.ExecutionStatusRunning)
	if err != nil {
		return nil, fmt.Errorf("list active executions: %w", err)
	}
	defer rows.Close()

	return scanExecutions(rows)
}

// Finish переводит execution в терминальный статус.
// Уже финализированный execution не перезаписывается: условие на
// status гарантирует ровно один терминальный переход.
func (r *ExecutionRepo) Finish(ctx context.Context, id uuid.UUID, status domain.ExecutionStatus, errMsg string) error {
	query := `
		UPDATE executions
		SET status = $2, error = $3, finished_at = now()
		WHERE id = $1 AND status = $4
	`
	result, err := r.pool.Exec(ctx, query, id, status, errMsg, domain.ExecutionStatusRunning)
	if err != nil {
		return fmt.Errorf("finish execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

// Delete удаляет execution вместе с записями узлов (ON DELETE CASCADE).
// Активный execution удалить нельзя.
func (r *ExecutionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM executions
		WHERE id = $1 AND status <> $2
	`
	result, err := r.pool.Exec(ctx, query, id, domain.ExecutionStatusRunning)
	if err != nil {
		return fmt.Errorf("delete execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		// Либо нет строки, либо она ещё running.
		if _, getErr := r.GetByID(ctx, id); getErr == nil {
			return ErrInvalidState
		}
		return ErrNotFound
	}
	return nil
}

// --- Node executions ---

// CreateNode создаёт запись о запуске узла.
func (r *ExecutionRepo) CreateNode(ctx context.Context, rec *domain.NodeExecution) error {
	inputs, err := json.Marshal(rec.InputItems)
	if err != nil {
		return fmt.Errorf("marshal input items: %w", err)
	}

	query := `
		INSERT INTO node_executions (id, execution_id, node_id, status, input_items, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.pool.Exec(ctx, query,
		rec.ID,
		rec.ExecutionID,
		rec.NodeID,
		rec.Status,
		inputs,
		rec.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert node execution: %w", err)
	}
	return nil
}

// FinishNode записывает терминальное состояние узла.
func (r *ExecutionRepo) FinishNode(ctx context.Context, rec *domain.NodeExecution) error {
	outputs, err := json.Marshal(rec.OutputItems)
	if err != nil {
		return fmt.Errorf("marshal output items: %w", err)
	}

	query := `
		UPDATE node_executions
		SET status = $2, output_items = $3, error = $4, finished_at = $5
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.Status,
		outputs,
		rec.Error,
		rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("finish node execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListNodes возвращает записи узлов execution в порядке запуска.
func (r *ExecutionRepo) ListNodes(ctx context.Context, executionID uuid.UUID) ([]domain.NodeExecution, error) {
	query := `
		SELECT id, execution_id, node_id, status, input_items, output_items, error, started_at, finished_at
		FROM node_executions
		WHERE execution_id = $1
		ORDER BY started_at
	`
	rows, err := r.pool.Query(ctx, query, executionID)
	if err != nil {
		return nil, fmt.Errorf("list node executions: %w", err)
	}
	defer rows.Close()

	var records []domain.NodeExecution
	for rows.Next() {
		var rec domain.NodeExecution
		var inputs, outputs []byte
		if err := rows.Scan(
			&rec.ID,
			&rec.ExecutionID,
			&rec.NodeID,
			&rec.Status,
			&inputs,
			&outputs,
			&rec.Error,
			&rec.StartedAt,
			&rec.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan node execution: %w", err)
		}
		if err := json.Unmarshal(inputs, &rec.InputItems); err != nil {
			return nil, fmt.Errorf("unmarshal input items: %w", err)
		}
		if len(outputs) > 0 {
			if err := json.Unmarshal(outputs, &rec.OutputItems); err != nil {
				return nil, fmt.Errorf("unmarshal output items: %w", err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// scanExecutions читает строки executions в доменные модели.
func scanExecutions(rows pgx.Rows) ([]domain.Execution, error) {
	var executions []domain.Execution
	for rows.Next() {
		var exec domain.Execution
		if err := rows.Scan(
			&exec.ID,
			&exec.WorkflowID,
			&exec.Status,
			&exec.Trigger,
			&exec.Principal,
			&exec.Error,
			&exec.StartedAt,
			&exec.FinishedAt,
			&exec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		executions = append(executions, exec)
	}
	return executions, rows.Err()
}
