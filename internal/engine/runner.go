package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/repo"
	"github.com/shaiso/Conveyor/internal/telemetry"
)

// Executor выполняет узел конкретного типа.
//
// Executor — чистая функция от входного батча и конфигурации узла
// к выходному батчу; побочные эффекты (сеть, инференс, запись файла)
// обязаны уважать ctx и иметь явный таймаут.
type Executor interface {
	Execute(ctx context.Context, req *Request) ([]domain.Item, error)
}

// Request — входные данные для выполнения узла.
type Request struct {
	// Node — выполняемый узел (тип + конфигурация).
	Node *domain.Node

	// Items — входной батч.
	Items []domain.Item

	// Principal — владелец credentials для этого выполнения.
	Principal string
}

// Registry отдаёт executor по типу узла.
// Для неизвестного типа возвращает ok=false — движок пропустит
// такой узел насквозь с предупреждением.
type Registry interface {
	Get(nodeType string) (Executor, bool)
}

// Recorder фиксирует прогресс выполнения.
//
// Каждый запуск узла получает ровно один BeginNode и ровно одно
// терминальное обновление (CompleteNode или FailNode), даже при
// аварийном выходе. Recorder — единственный писатель строк
// Execution/NodeExecution.
type Recorder interface {
	BeginNode(ctx context.Context, executionID uuid.UUID, nodeID string, inputs []domain.Item) (*domain.NodeExecution, error)
	CompleteNode(ctx context.Context, rec *domain.NodeExecution, outputs []domain.Item) error
	FailNode(ctx context.Context, rec *domain.NodeExecution, nodeErr error) error
	CompleteExecution(ctx context.Context, executionID uuid.UUID, status domain.ExecutionStatus, errMsg string) error
}

// WorkflowStore отдаёт материализованный снимок workflow.
// Отсутствующий workflow — ошибка, оборачивающая repo.ErrNotFound.
type WorkflowStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)
}

// Runner — планировщик обхода графа.
//
// Runner загружает workflow, строит граф и выполняет достижимые от
// первого триггера узлы в топологическом порядке. Входные батчи
// буферизуются по узлам: узел с несколькими входящими рёбрами
// выполняется один раз с объединённым батчем, когда все его
// предшественники завершены.
//
// Каждый Run регистрирует cancel-функцию: Cancel(executionID)
// кооперативно останавливает обход между узлами и прерывает
// внешние вызовы внутри текущего узла через контекст.
type Runner struct {
	store    WorkflowStore
	recorder Recorder
	registry Registry
	logger   *slog.Logger

	mu     sync.Mutex
	active map[uuid.UUID]context.CancelCauseFunc
}

// Config — конфигурация Runner.
type Config struct {
	Store    WorkflowStore
	Recorder Recorder
	Registry Registry
	Logger   *slog.Logger
}

// New создаёт новый Runner.
func New(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		store:    cfg.Store,
		recorder: cfg.Recorder,
		registry: cfg.Registry,
		logger:   logger,
		active:   make(map[uuid.UUID]context.CancelCauseFunc),
	}
}

// Run выполняет execution от начала до терминального статуса.
//
// Execution уже создан вызывающей стороной (API или scheduler) в
// статусе running; Run всегда финализирует его — success, error или
// cancelled — и возвращает записанную ошибку для логирования.
// Ошибки никогда не поднимаются выше: паник здесь нет, а любой
// отказ (workflow не найден, цикл, упавший узел) становится
// терминальной записью execution.
func (r *Runner) Run(ctx context.Context, executionID, workflowID uuid.UUID, principal string, seed []domain.Item) error {
	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	if err := r.register(executionID, cancel); err != nil {
		return err
	}
	defer r.unregister(executionID)

	log := telemetry.WithExecutionID(r.logger, executionID.String())

	err := r.traverse(runCtx, log, executionID, workflowID, principal, seed)

	// Финализация идёт на не-отменяемом контексте: терминальная
	// запись обязана состояться даже после cancel.
	finalCtx := context.WithoutCancel(ctx)

	switch {
	case err == nil:
		if recErr := r.recorder.CompleteExecution(finalCtx, executionID, domain.ExecutionStatusSuccess, ""); recErr != nil {
			log.Error("failed to finalize execution", "error", recErr)
		}
		log.Info("execution completed")

	case errors.Is(err, ErrExecutionCancelled):
		if recErr := r.recorder.CompleteExecution(finalCtx, executionID, domain.ExecutionStatusCancelled, ""); recErr != nil {
			log.Error("failed to finalize execution", "error", recErr)
		}
		log.Info("execution cancelled")

	default:
		if recErr := r.recorder.CompleteExecution(finalCtx, executionID, domain.ExecutionStatusError, err.Error()); recErr != nil {
			log.Error("failed to finalize execution", "error", recErr)
		}
		log.Error("execution failed", "error", err)
	}

	return err
}

// Cancel запрашивает кооперативную отмену активного execution.
// Возвращает true, если execution выполнялся этим Runner'ом.
// Отмена уже завершённого execution — no-op.
func (r *Runner) Cancel(executionID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cancel, ok := r.active[executionID]
	if ok {
		cancel(ErrExecutionCancelled)
	}
	return ok
}

// ActiveCount возвращает количество выполняющихся executions.
func (r *Runner) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// register добавляет execution в активные.
func (r *Runner) register(executionID uuid.UUID, cancel context.CancelCauseFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.active[executionID]; exists {
		return ErrExecutionActive
	}
	r.active[executionID] = cancel
	return nil
}

// unregister удаляет execution из активных.
func (r *Runner) unregister(executionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, executionID)
}

// traverse выполняет обход графа. Возвращает nil при полном
// прохождении, ErrExecutionCancelled при отмене, иначе причину
// остановки (для записи в execution.error).
func (r *Runner) traverse(ctx context.Context, log *slog.Logger, executionID, workflowID uuid.UUID, principal string, seed []domain.Item) error {
	wf, err := r.store.GetByID(ctx, workflowID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrWorkflowNotFound, workflowID)
		}
		return fmt.Errorf("load workflow: %w", err)
	}

	graph, err := BuildGraph(wf)
	if err != nil {
		return err
	}

	triggers := wf.TriggerNodes()
	if len(triggers) == 0 {
		return ErrNoTriggerNode
	}
	// Выполняется только первый триггер — известное ограничение.
	trigger := triggers[0]
	if len(triggers) > 1 {
		log.Warn("workflow has multiple trigger nodes, invoking only the first",
			"trigger_id", trigger.ID,
			"trigger_count", len(triggers),
		)
	}

	if len(seed) == 0 {
		seed = []domain.Item{domain.NewItem()}
	}

	owner := principal
	if owner == "" {
		owner = wf.CreatedBy
	}

	// Буфер входных батчей: батчи от всех входящих рёбер узла
	// накапливаются и объединяются перед его единственным запуском.
	inputs := map[string][]domain.Item{trigger.ID: seed}

	for _, nodeID := range graph.OrderFrom(trigger.ID) {
		// Точка кооперативной отмены между узлами.
		if ctx.Err() != nil {
			if errors.Is(context.Cause(ctx), ErrExecutionCancelled) {
				return ErrExecutionCancelled
			}
			return ctx.Err()
		}

		node := graph.Node(nodeID)
		batch := inputs[nodeID]
		delete(inputs, nodeID)

		rec, err := r.recorder.BeginNode(ctx, executionID, nodeID, batch)
		if err != nil {
			return fmt.Errorf("begin node %s: %w", nodeID, err)
		}

		outputs, execErr := r.executeNode(ctx, log, node, batch, owner)
		if execErr != nil {
			if recErr := r.recorder.FailNode(context.WithoutCancel(ctx), rec, execErr); recErr != nil {
				log.Error("failed to record node failure", "node_id", nodeID, "error", recErr)
			}
			// Узел, прерванный отменой, не считается ошибкой графа.
			if errors.Is(context.Cause(ctx), ErrExecutionCancelled) {
				return ErrExecutionCancelled
			}
			return &NodeError{NodeID: node.ID, NodeType: node.Type, Err: execErr}
		}

		if recErr := r.recorder.CompleteNode(ctx, rec, outputs); recErr != nil {
			return fmt.Errorf("record node %s: %w", nodeID, recErr)
		}

		log.Debug("node completed",
			"node_id", nodeID,
			"node_type", node.Type,
			"input_items", len(batch),
			"output_items", len(outputs),
		)

		// Fan-out: полный выходной батч уходит в каждое исходящее
		// ребро, без маршрутизации по имени порта.
		for _, target := range graph.Outgoing(nodeID) {
			inputs[target] = append(inputs[target], outputs...)
		}
	}

	return nil
}

// executeNode запускает executor узла. Неизвестный тип — passthrough
// с предупреждением, не ошибка: движок остаётся совместимым с узлами,
// добавленными более новым редактором.
func (r *Runner) executeNode(ctx context.Context, log *slog.Logger, node *domain.Node, items []domain.Item, owner string) ([]domain.Item, error) {
	executor, ok := r.registry.Get(node.Type)
	if !ok {
		log.Warn("unknown node type, passing items through",
			"node_id", node.ID,
			"node_type", node.Type,
		)
		return items, nil
	}

	return executor.Execute(ctx, &Request{
		Node:      node,
		Items:     items,
		Principal: owner,
	})
}
