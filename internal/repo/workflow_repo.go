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

// WorkflowRepo — репозиторий для работы с workflows.
//
// Узлы и связи хранятся как JSONB: workflow читается и пишется
// целиком, построчная модель графа не нужна.
type WorkflowRepo struct {
	pool *pgxpool.Pool
}

// NewWorkflowRepo создаёт новый WorkflowRepo.
func NewWorkflowRepo(pool *pgxpool.Pool) *WorkflowRepo {
	return &WorkflowRepo{pool: pool}
}

// Create создаёт новый workflow.
func (r *WorkflowRepo) Create(ctx context.Context, wf *domain.Workflow) error {
	nodes, connections, err := marshalGraph(wf)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflows (id, name, description, created_by, version, nodes, connections, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.pool.Exec(ctx, query,
		wf.ID,
		wf.Name,
		wf.Description,
		wf.CreatedBy,
		wf.Version,
		nodes,
		connections,
		wf.CreatedAt,
		wf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}
	return nil
}

// GetByID возвращает workflow по ID.
func (r *WorkflowRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	query := `
		SELECT id, name, description, created_by, version, nodes, connections, created_at, updated_at
		FROM workflows
		WHERE id = $1
	`
	wf, err := scanWorkflow(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow by id: %w", err)
	}
	return wf, nil
}

// List возвращает все workflows, новые первыми.
func (r *WorkflowRepo) List(ctx context.Context) ([]domain.Workflow, error) {
	query := `
		SELECT id, name, description, created_by, version, nodes, connections, created_at, updated_at
		FROM workflows
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var workflows []domain.Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		workflows = append(workflows, *wf)
	}
	return workflows, rows.Err()
}

// Update обновляет workflow и инкрементирует его версию.
func (r *WorkflowRepo) Update(ctx context.Context, wf *domain.Workflow) error {
	nodes, connections, err := marshalGraph(wf)
	if err != nil {
		return err
	}

	query := `
		UPDATE workflows
		SET name = $2, description = $3, version = version + 1,
		    nodes = $4, connections = $5, updated_at = now()
		WHERE id = $1
		RETURNING version, updated_at
	`
	err = r.pool.QueryRow(ctx, query,
		wf.ID,
		wf.Name,
		wf.Description,
		nodes,
		connections,
	).Scan(&wf.Version, &wf.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	return nil
}

// Delete удаляет workflow вместе с его executions (ON DELETE CASCADE).
func (r *WorkflowRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// marshalGraph сериализует узлы и связи workflow в JSONB.
func marshalGraph(wf *domain.Workflow) (nodes, connections []byte, err error) {
	nodes, err = json.Marshal(wf.Nodes)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal nodes: %w", err)
	}
	connections, err = json.Marshal(wf.Connections)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal connections: %w", err)
	}
	return nodes, connections, nil
}

// scanWorkflow читает строку workflows в доменную модель.
func scanWorkflow(row pgx.Row) (*domain.Workflow, error) {
	var wf domain.Workflow
	var nodes, connections []byte
	err := row.Scan(
		&wf.ID,
		&wf.Name,
		&wf.Description,
		&wf.CreatedBy,
		&wf.Version,
		&nodes,
		&connections,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(nodes, &wf.Nodes); err != nil {
		return nil, fmt.Errorf("unmarshal nodes: %w", err)
	}
	if err := json.Unmarshal(connections, &wf.Connections); err != nil {
		return nil, fmt.Errorf("unmarshal connections: %w", err)
	}
	return &wf, nil
}
