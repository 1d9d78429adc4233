package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/engine"
)

// ListWorkflows возвращает список workflows.
// GET /api/v1/workflows
func (h *Handler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := h.workflows.List(r.Context())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]WorkflowResponse, len(workflows))
	for i := range workflows {
		result[i] = WorkflowFromDomain(&workflows[i])
	}
	List(w, result, len(result))
}

// CreateWorkflow создаёт новый workflow.
// POST /api/v1/workflows
func (h *Handler) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}

	now := time.Now()
	wf := &domain.Workflow{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   principalFrom(r),
		Version:     1,
		Nodes:       req.Nodes,
		Connections: req.Connections,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if msg, ok := validateGraph(wf); !ok {
		BadRequest(w, msg)
		return
	}

	if err := h.workflows.Create(r.Context(), wf); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	h.logger.Info("workflow created", "workflow_id", wf.ID, "name", wf.Name)
	Created(w, WorkflowFromDomain(wf))
}

// GetWorkflow возвращает workflow по ID.
// GET /api/v1/workflows/{id}
func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	wf, err := h.workflows.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}
	Success(w, WorkflowFromDomain(wf))
}

// UpdateWorkflow обновляет workflow.
// PUT /api/v1/workflows/{id}
func (h *Handler) UpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var req UpdateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	wf, err := h.workflows.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	if req.Name != nil {
		wf.Name = *req.Name
	}
	if req.Description != nil {
		wf.Description = *req.Description
	}
	if req.Nodes != nil {
		wf.Nodes = *req.Nodes
	}
	if req.Connections != nil {
		wf.Connections = *req.Connections
	}

	if msg, ok := validateGraph(wf); !ok {
		BadRequest(w, msg)
		return
	}

	if err := h.workflows.Update(r.Context(), wf); HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}
	Success(w, WorkflowFromDomain(wf))
}

// DeleteWorkflow удаляет workflow.
// DELETE /api/v1/workflows/{id}
func (h *Handler) DeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	if err := h.workflows.Delete(r.Context(), id); HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}
	NoContent(w)
}

// validateGraph проверяет граф workflow при сохранении:
// наличие триггера и отсутствие циклов. Битый граф не должен
// дожить до запуска.
func validateGraph(wf *domain.Workflow) (string, bool) {
	if len(wf.Nodes) == 0 {
		return "workflow must have at least one node", false
	}
	if len(wf.TriggerNodes()) == 0 {
		return "workflow must have a trigger node", false
	}
	if _, err := engine.BuildGraph(wf); err != nil {
		if errors.Is(err, engine.ErrGraphCycle) {
			return "workflow graph contains a cycle", false
		}
		return err.Error(), false
	}
	return "", true
}
