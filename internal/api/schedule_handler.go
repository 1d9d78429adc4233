package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/scheduler"
)

// ListSchedules возвращает расписания, опционально по workflow.
// GET /api/v1/schedules?workflow_id=...
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	var workflowID *uuid.UUID
	if raw := r.URL.Query().Get("workflow_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			BadRequest(w, "invalid workflow_id")
			return
		}
		workflowID = &id
	}

	schedules, err := h.schedules.List(r.Context(), workflowID)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ScheduleResponse, len(schedules))
	for i := range schedules {
		result[i] = ScheduleFromDomain(&schedules[i])
	}
	List(w, result, len(result))
}

// CreateSchedule создаёт расписание для workflow.
// POST /api/v1/workflows/{id}/schedules
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	workflowID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var req CreateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.CronExpr == "" && req.IntervalSec <= 0 {
		BadRequest(w, "either cron_expr or interval_sec is required")
		return
	}
	if req.CronExpr != "" {
		if err := scheduler.ValidateCronExpr(req.CronExpr); err != nil {
			BadRequest(w, "invalid cron_expr: "+err.Error())
			return
		}
	}

	// Workflow должен существовать до создания расписания.
	if _, err := h.workflows.GetByID(r.Context(), workflowID); HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	schedule := &domain.Schedule{
		WorkflowID:  workflowID,
		Name:        req.Name,
		CronExpr:    req.CronExpr,
		IntervalSec: req.IntervalSec,
		Timezone:    req.Timezone,
		Enabled:     req.Enabled,
	}
	if schedule.Timezone == "" {
		schedule.Timezone = "UTC"
	}

	nextDue, err := scheduler.CalculateInitialNextDue(schedule)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	schedule.NextDueAt = &nextDue

	if err := h.schedules.Create(r.Context(), schedule); HandleRepoError(w, h.logger, err, "") {
		return
	}

	h.logger.Info("schedule created",
		"schedule_id", schedule.ID,
		"workflow_id", workflowID,
		"next_due_at", nextDue,
	)
	Created(w, ScheduleFromDomain(schedule))
}

// GetSchedule возвращает расписание по ID.
// GET /api/v1/schedules/{id}
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	schedule, err := h.schedules.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}
	Success(w, ScheduleFromDomain(schedule))
}

// SetScheduleEnabled включает или выключает расписание.
// PUT /api/v1/schedules/{id}/enabled
func (h *Handler) SetScheduleEnabled(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	var req SetEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if err := h.schedules.SetEnabled(r.Context(), id, req.Enabled); HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	// Включение пересчитывает next_due_at: выключенное расписание
	// не должно стрелять задним числом сразу после включения.
	if req.Enabled {
		schedule, err := h.schedules.GetByID(r.Context(), id)
		if HandleRepoError(w, h.logger, err, "schedule not found") {
			return
		}
		if nextDue, err := scheduler.CalculateInitialNextDue(schedule); err == nil {
			schedule.NextDueAt = &nextDue
			if err := h.schedules.Update(r.Context(), schedule); HandleRepoError(w, h.logger, err, "schedule not found") {
				return
			}
		}
	}

	schedule, err := h.schedules.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}
	Success(w, ScheduleFromDomain(schedule))
}

// DeleteSchedule удаляет расписание.
// DELETE /api/v1/schedules/{id}
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	if err := h.schedules.Delete(r.Context(), id); HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}
	NoContent(w)
}
