package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/mq"
)

// CreateExecution запускает workflow.
// POST /api/v1/workflows/{id}/executions
//
// Возвращает 202 сразу после создания execution: выполнение идёт
// асинхронно, прогресс доступен через GET /executions/{id}.
func (h *Handler) CreateExecution(w http.ResponseWriter, r *http.Request) {
	workflowID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var req CreateExecutionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			BadRequest(w, "invalid request body")
			return
		}
	}

	wf, err := h.workflows.GetByID(r.Context(), workflowID)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	principal := principalFrom(r)
	if principal == "" {
		principal = wf.CreatedBy
	}

	var seed []domain.Item
	if req.Payload != nil {
		seed = []domain.Item{domain.WithFields(req.Payload)}
	}

	exec, err := h.recorder.BeginExecution(r.Context(), wf.ID, "manual", principal)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	h.dispatch(r.Context(), exec.ID, wf.ID, principal, seed)

	h.logger.Info("execution created",
		"execution_id", exec.ID,
		"workflow_id", wf.ID,
		"trigger", exec.Trigger,
	)
	Accepted(w, ExecutionFromDomain(*exec))
}

// dispatch передаёт execution движку: через RabbitMQ или,
// во встроенном режиме, горутиной в этом же процессе.
func (h *Handler) dispatch(ctx context.Context, executionID, workflowID uuid.UUID, principal string, seed []domain.Item) {
	if h.publisher != nil {
		err := h.publisher.PublishExecutionPending(ctx, mq.ExecutionPendingPayload{
			ExecutionID: executionID,
			WorkflowID:  workflowID,
			Principal:   principal,
			Seed:        seed,
		})
		if err == nil {
			return
		}
		h.logger.Error("failed to publish execution.pending, falling back to embedded run",
			"execution_id", executionID, "error", err)
	}

	if h.runner == nil {
		h.logger.Error("no runner available, execution stuck in running",
			"execution_id", executionID)
		return
	}

	go func() {
		// Запрос уже отвечен, выполнение живёт своим контекстом.
		if err := h.runner.Run(context.Background(), executionID, workflowID, principal, seed); err != nil {
			h.logger.Error("embedded execution failed",
				"execution_id", executionID, "error", err)
		}
	}()
}

// ListExecutions возвращает executions workflow, новые первыми.
// GET /api/v1/workflows/{id}/executions?limit=...
func (h *Handler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	workflowID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}

	executions, err := h.executions.ListByWorkflow(r.Context(), workflowID, limit)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ExecutionResponse, len(executions))
	for i, exec := range executions {
		result[i] = ExecutionFromDomain(exec)
	}
	List(w, result, len(result))
}

// GetExecution возвращает execution вместе с историей узлов.
// GET /api/v1/executions/{id}
func (h *Handler) GetExecution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return
	}

	exec, err := h.executions.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}

	nodes, err := h.executions.ListNodes(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	detail := ExecutionDetailResponse{
		ExecutionResponse: ExecutionFromDomain(*exec),
		Nodes:             make([]NodeExecutionResponse, len(nodes)),
	}
	for i, n := range nodes {
		detail.Nodes[i] = NodeExecutionFromDomain(n)
	}
	Success(w, detail)
}

// CancelExecution запрашивает отмену выполняющегося execution.
// POST /api/v1/executions/{id}/cancel
//
// Отмена кооперативная: текущий узел дорабатывает, следующий
// не запускается. Ответ 202 — запрос принят, не гарантия отмены.
// Отмена уже завершённого execution — no-op с тем же 202:
// повторный cancel идемпотентен.
func (h *Handler) CancelExecution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return
	}

	exec, err := h.executions.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}
	if exec.IsFinished() {
		// Статус уже терминальный, отменять нечего.
		Accepted(w, ExecutionFromDomain(*exec))
		return
	}

	// Встроенный режим: execution может жить в этом процессе.
	cancelled := h.runner != nil && h.runner.Cancel(id)

	// Рассылаем отмену остальным экземплярам движка.
	if h.publisher != nil {
		if err := h.publisher.PublishExecutionCancel(r.Context(), id); err != nil {
			if !cancelled {
				InternalError(w, h.logger, err)
				return
			}
			h.logger.Warn("failed to broadcast cancel", "execution_id", id, "error", err)
		}
	}

	Accepted(w, ExecutionFromDomain(*exec))
}

// DeleteExecution удаляет запись execution из истории.
// DELETE /api/v1/executions/{id}
//
// Активный execution удалить нельзя: сначала cancel.
func (h *Handler) DeleteExecution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return
	}

	if err := h.executions.Delete(r.Context(), id); HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}
	NoContent(w)
}
