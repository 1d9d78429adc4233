package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Conveyor/internal/domain"
)

// Workflow DTOs

// CreateWorkflowRequest — запрос на создание workflow.
type CreateWorkflowRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Nodes       []domain.Node       `json:"nodes"`
	Connections []domain.Connection `json:"connections"`
}

// UpdateWorkflowRequest — запрос на обновление workflow.
type UpdateWorkflowRequest struct {
	Name        *string              `json:"name,omitempty"`
	Description *string              `json:"description,omitempty"`
	Nodes       *[]domain.Node       `json:"nodes,omitempty"`
	Connections *[]domain.Connection `json:"connections,omitempty"`
}

// WorkflowResponse — ответ с workflow.
type WorkflowResponse struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	CreatedBy   string              `json:"created_by,omitempty"`
	Version     int                 `json:"version"`
	Nodes       []domain.Node       `json:"nodes"`
	Connections []domain.Connection `json:"connections"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// WorkflowFromDomain конвертирует domain.Workflow в WorkflowResponse.
func WorkflowFromDomain(wf *domain.Workflow) WorkflowResponse {
	return WorkflowResponse{
		ID:          wf.ID,
		Name:        wf.Name,
		Description: wf.Description,
		CreatedBy:   wf.CreatedBy,
		Version:     wf.Version,
		Nodes:       wf.Nodes,
		Connections: wf.Connections,
		CreatedAt:   wf.CreatedAt,
		UpdatedAt:   wf.UpdatedAt,
	}
}

// Execution DTOs

// CreateExecutionRequest — запрос на запуск workflow.
// Payload становится полями единственного item стартового батча.
type CreateExecutionRequest struct {
	Payload map[string]any `json:"payload,omitempty"`
}

// ExecutionResponse — ответ с execution.
type ExecutionResponse struct {
	ID         uuid.UUID  `json:"id"`
	WorkflowID uuid.UUID  `json:"workflow_id"`
	Status     string     `json:"status"`
	Trigger    string     `json:"trigger"`
	Principal  string     `json:"principal,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ExecutionFromDomain конвертирует domain.Execution в ExecutionResponse.
func ExecutionFromDomain(e domain.Execution) ExecutionResponse {
	return ExecutionResponse{
		ID:         e.ID,
		WorkflowID: e.WorkflowID,
		Status:     string(e.Status),
		Trigger:    e.Trigger,
		Principal:  e.Principal,
		Error:      e.Error,
		StartedAt:  e.StartedAt,
		FinishedAt: e.FinishedAt,
		CreatedAt:  e.CreatedAt,
	}
}

// NodeExecutionResponse — запись о выполнении узла.
type NodeExecutionResponse struct {
	ID          uuid.UUID     `json:"id"`
	NodeID      string        `json:"node_id"`
	Status      string        `json:"status"`
	InputItems  []domain.Item `json:"input_items"`
	OutputItems []domain.Item `json:"output_items,omitempty"`
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  *time.Time    `json:"finished_at,omitempty"`
}

// NodeExecutionFromDomain конвертирует domain.NodeExecution.
func NodeExecutionFromDomain(n domain.NodeExecution) NodeExecutionResponse {
	return NodeExecutionResponse{
		ID:          n.ID,
		NodeID:      n.NodeID,
		Status:      string(n.Status),
		InputItems:  n.InputItems,
		OutputItems: n.OutputItems,
		Error:       n.Error,
		StartedAt:   n.StartedAt,
		FinishedAt:  n.FinishedAt,
	}
}

// ExecutionDetailResponse — execution вместе с историей узлов.
type ExecutionDetailResponse struct {
	ExecutionResponse
	Nodes []NodeExecutionResponse `json:"nodes"`
}

// Credential DTOs

// CreateCredentialRequest — запрос на создание credential.
type CreateCredentialRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// UpdateCredentialRequest — запрос на обновление credential.
type UpdateCredentialRequest struct {
	Value    *string `json:"value,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// CredentialResponse — ответ с credential.
// Значение всегда замаскировано: полный секрет наружу не отдаётся.
type CredentialResponse struct {
	ID          uuid.UUID `json:"id"`
	Owner       string    `json:"owner"`
	Key         string    `json:"key"`
	MaskedValue string    `json:"masked_value"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CredentialFromDomain конвертирует domain.Credential в CredentialResponse.
func CredentialFromDomain(c domain.Credential) CredentialResponse {
	return CredentialResponse{
		ID:          c.ID,
		Owner:       c.Owner,
		Key:         c.Key,
		MaskedValue: c.MaskedValue(),
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// Schedule DTOs

// CreateScheduleRequest — запрос на создание schedule.
type CreateScheduleRequest struct {
	Name        string `json:"name"`
	CronExpr    string `json:"cron_expr,omitempty"`
	IntervalSec int    `json:"interval_sec,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// SetEnabledRequest — запрос на включение/выключение.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// ScheduleResponse — ответ с schedule.
type ScheduleResponse struct {
	ID              uuid.UUID  `json:"id"`
	WorkflowID      uuid.UUID  `json:"workflow_id"`
	Name            string     `json:"name"`
	CronExpr        string     `json:"cron_expr,omitempty"`
	IntervalSec     int        `json:"interval_sec,omitempty"`
	Timezone        string     `json:"timezone"`
	Enabled         bool       `json:"enabled"`
	NextDueAt       *time.Time `json:"next_due_at,omitempty"`
	LastRunAt       *time.Time `json:"last_run_at,omitempty"`
	LastExecutionID *uuid.UUID `json:"last_execution_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ScheduleFromDomain конвертирует domain.Schedule в ScheduleResponse.
func ScheduleFromDomain(s *domain.Schedule) ScheduleResponse {
	if s == nil {
		return ScheduleResponse{}
	}
	return ScheduleResponse{
		ID:              s.ID,
		WorkflowID:      s.WorkflowID,
		Name:            s.Name,
		CronExpr:        s.CronExpr,
		IntervalSec:     s.IntervalSec,
		Timezone:        s.Timezone,
		Enabled:         s.Enabled,
		NextDueAt:       s.NextDueAt,
		LastRunAt:       s.LastRunAt,
		LastExecutionID: s.LastExecutionID,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}
