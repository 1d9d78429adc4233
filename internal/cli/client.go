package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// WorkflowResponse — workflow из API.
type WorkflowResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	CreatedBy   string           `json:"created_by"`
	Version     int              `json:"version"`
	Nodes       []map[string]any `json:"nodes"`
	Connections []map[string]any `json:"connections"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at"`
}

// ExecutionResponse — execution из API.
type ExecutionResponse struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflow_id"`
	Status     string `json:"status"`
	Trigger    string `json:"trigger"`
	Principal  string `json:"principal,omitempty"`
	Error      string `json:"error,omitempty"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// NodeExecutionResponse — запись о выполнении узла из API.
type NodeExecutionResponse struct {
	ID          string           `json:"id"`
	NodeID      string           `json:"node_id"`
	Status      string           `json:"status"`
	InputItems  []map[string]any `json:"input_items"`
	OutputItems []map[string]any `json:"output_items,omitempty"`
	Error       string           `json:"error,omitempty"`
	StartedAt   string           `json:"started_at"`
	FinishedAt  string           `json:"finished_at,omitempty"`
}

// ExecutionDetailResponse — execution вместе с историей узлов.
type ExecutionDetailResponse struct {
	ExecutionResponse
	Nodes []NodeExecutionResponse `json:"nodes"`
}

// CredentialResponse — credential из API (значение замаскировано).
type CredentialResponse struct {
	ID          string `json:"id"`
	Owner       string `json:"owner"`
	Key         string `json:"key"`
	MaskedValue string `json:"masked_value"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// ScheduleResponse — schedule из API.
type ScheduleResponse struct {
	ID              string `json:"id"`
	WorkflowID      string `json:"workflow_id"`
	Name            string `json:"name"`
	CronExpr        string `json:"cron_expr,omitempty"`
	IntervalSec     int    `json:"interval_sec,omitempty"`
	Timezone        string `json:"timezone"`
	Enabled         bool   `json:"enabled"`
	NextDueAt       string `json:"next_due_at,omitempty"`
	LastRunAt       string `json:"last_run_at,omitempty"`
	LastExecutionID string `json:"last_execution_id,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

// --- Request types ---

// CreateWorkflowRequest — создание workflow из JSON-файла графа.
type CreateWorkflowRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Nodes       json.RawMessage `json:"nodes"`
	Connections json.RawMessage `json:"connections,omitempty"`
}

// CreateExecutionRequest — запуск workflow.
type CreateExecutionRequest struct {
	Payload map[string]any `json:"payload,omitempty"`
}

// CreateCredentialRequest — сохранение секрета.
type CreateCredentialRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// CreateScheduleRequest — создание schedule.
type CreateScheduleRequest struct {
	Name        string `json:"name"`
	CronExpr    string `json:"cron_expr,omitempty"`
	IntervalSec int    `json:"interval_sec,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Conveyor API.
//
// Principal уходит в каждый запрос заголовком X-Principal:
// API использует его как владельца credentials и executions.
type Client struct {
	baseURL    string
	principal  string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL, principal string) *Client {
	return &Client{
		baseURL:   baseURL,
		principal: principal,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Workflows ---

// ListWorkflows возвращает все workflows.
func (c *Client) ListWorkflows() ([]WorkflowResponse, error) {
	var workflows []WorkflowResponse
	err := c.list("/api/v1/workflows", nil, &workflows)
	return workflows, err
}

// CreateWorkflow создаёт workflow.
func (c *Client) CreateWorkflow(req CreateWorkflowRequest) (*WorkflowResponse, error) {
	var wf WorkflowResponse
	err := c.post("/api/v1/workflows", req, &wf)
	return &wf, err
}

// GetWorkflow возвращает workflow по ID.
func (c *Client) GetWorkflow(id string) (*WorkflowResponse, error) {
	var wf WorkflowResponse
	err := c.get("/api/v1/workflows/"+id, &wf)
	return &wf, err
}

// UpdateWorkflow обновляет workflow целиком.
func (c *Client) UpdateWorkflow(id string, req CreateWorkflowRequest) (*WorkflowResponse, error) {
	var wf WorkflowResponse
	err := c.put("/api/v1/workflows/"+id, req, &wf)
	return &wf, err
}

// DeleteWorkflow удаляет workflow.
func (c *Client) DeleteWorkflow(id string) error {
	return c.delete("/api/v1/workflows/" + id)
}

// --- Executions ---

// StartExecution запускает workflow с опциональным payload.
func (c *Client) StartExecution(workflowID string, req CreateExecutionRequest) (*ExecutionResponse, error) {
	var exec ExecutionResponse
	err := c.post("/api/v1/workflows/"+workflowID+"/executions", req, &exec)
	return &exec, err
}

// ListExecutions возвращает executions workflow.
func (c *Client) ListExecutions(workflowID string, limit int) ([]ExecutionResponse, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}

	var executions []ExecutionResponse
	err := c.list("/api/v1/workflows/"+workflowID+"/executions", params, &executions)
	return executions, err
}

// GetExecution возвращает execution с историей узлов.
func (c *Client) GetExecution(id string) (*ExecutionDetailResponse, error) {
	var detail ExecutionDetailResponse
	err := c.get("/api/v1/executions/"+id, &detail)
	return &detail, err
}

// CancelExecution отменяет execution.
func (c *Client) CancelExecution(id string) (*ExecutionResponse, error) {
	var exec ExecutionResponse
	err := c.post("/api/v1/executions/"+id+"/cancel", nil, &exec)
	return &exec, err
}

// DeleteExecution удаляет запись execution.
func (c *Client) DeleteExecution(id string) error {
	return c.delete("/api/v1/executions/" + id)
}

// --- Credentials ---

// ListCredentials возвращает credentials принципала.
func (c *Client) ListCredentials() ([]CredentialResponse, error) {
	var credentials []CredentialResponse
	err := c.list("/api/v1/credentials", nil, &credentials)
	return credentials, err
}

// CreateCredential сохраняет секрет.
func (c *Client) CreateCredential(key, value string) (*CredentialResponse, error) {
	var cred CredentialResponse
	err := c.post("/api/v1/credentials", CreateCredentialRequest{Key: key, Value: value}, &cred)
	return &cred, err
}

// UpdateCredentialValue меняет значение секрета.
func (c *Client) UpdateCredentialValue(id, value string) (*CredentialResponse, error) {
	var cred CredentialResponse
	body := map[string]string{"value": value}
	err := c.put("/api/v1/credentials/"+id, body, &cred)
	return &cred, err
}

// DeleteCredential удаляет секрет.
func (c *Client) DeleteCredential(id string) error {
	return c.delete("/api/v1/credentials/" + id)
}

// --- Schedules ---

// ListSchedules возвращает schedules. Если workflowID не пустой — фильтрует.
func (c *Client) ListSchedules(workflowID string) ([]ScheduleResponse, error) {
	params := url.Values{}
	if workflowID != "" {
		params.Set("workflow_id", workflowID)
	}

	var schedules []ScheduleResponse
	err := c.list("/api/v1/schedules", params, &schedules)
	return schedules, err
}

// CreateSchedule создаёт schedule для workflow.
func (c *Client) CreateSchedule(workflowID string, req CreateScheduleRequest) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.post("/api/v1/workflows/"+workflowID+"/schedules", req, &schedule)
	return &schedule, err
}

// GetSchedule возвращает schedule по ID.
func (c *Client) GetSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.get("/api/v1/schedules/"+id, &schedule)
	return &schedule, err
}

// SetScheduleEnabled включает или выключает schedule.
func (c *Client) SetScheduleEnabled(id string, enabled bool) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	body := map[string]bool{"enabled": enabled}
	err := c.put("/api/v1/schedules/"+id+"/enabled", body, &schedule)
	return &schedule, err
}

// DeleteSchedule удаляет schedule.
func (c *Client) DeleteSchedule(id string) error {
	return c.delete("/api/v1/schedules/" + id)
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.principal != "" {
		req.Header.Set("X-Principal", c.principal)
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
