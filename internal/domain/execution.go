package domain

import (
	"time"

	"github.com/google/uuid"
)

// Execution — один запуск workflow.
//
// Создаётся API (или scheduler'ом) до передачи управления движку
// и финализируется движком ровно один раз. После терминального
// перехода строка не мутируется и хранится для истории.
type Execution struct {
	// ID — уникальный идентификатор execution.
	ID uuid.UUID `json:"id"`

	// WorkflowID — ссылка на выполняемый workflow.
	WorkflowID uuid.UUID `json:"workflow_id"`

	// Status — текущий статус (см. ExecutionStatus).
	Status ExecutionStatus `json:"status"`

	// Trigger — источник запуска: "manual" или "schedule".
	Trigger string `json:"trigger"`

	// Principal — принципал, от имени которого идёт выполнение.
	// Определяет владельца credentials для AI/image узлов.
	Principal string `json:"principal,omitempty"`

	// Error — сообщение об ошибке при статусе error.
	Error string `json:"error,omitempty"`

	// StartedAt — время начала выполнения.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt — время терминального перехода.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt — время создания строки.
	CreatedAt time.Time `json:"created_at"`
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если execution ещё не завершён.
func (e *Execution) Duration() time.Duration {
	if e.FinishedAt == nil {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// IsFinished возвращает true, если execution в терминальном статусе.
func (e *Execution) IsFinished() bool {
	return e.Status.IsTerminal()
}

// MarkSuccess переводит execution в статус success.
func (e *Execution) MarkSuccess() {
	now := time.Now()
	e.Status = ExecutionStatusSuccess
	e.FinishedAt = &now
}

// MarkError переводит execution в статус error с сообщением.
func (e *Execution) MarkError(msg string) {
	now := time.Now()
	e.Status = ExecutionStatusError
	e.Error = msg
	e.FinishedAt = &now
}

// MarkCancelled переводит execution в статус cancelled.
func (e *Execution) MarkCancelled() {
	now := time.Now()
	e.Status = ExecutionStatusCancelled
	e.FinishedAt = &now
}

// NodeExecution — запись о выполнении одного узла внутри execution.
//
// Создаётся непосредственно перед запуском executor'а и обновляется
// ровно один раз — при успехе или при ошибке. Узел, достижимый по
// нескольким путям, выполняется один раз с объединённым входным
// батчем, поэтому на узел приходится не более одной записи.
type NodeExecution struct {
	// ID — уникальный идентификатор записи.
	ID uuid.UUID `json:"id"`

	// ExecutionID — ссылка на родительский execution.
	ExecutionID uuid.UUID `json:"execution_id"`

	// NodeID — ID узла из Workflow.Nodes.
	NodeID string `json:"node_id"`

	// Status — текущий статус (см. NodeExecutionStatus).
	Status NodeExecutionStatus `json:"status"`

	// InputItems — входной батч узла.
	InputItems []Item `json:"input_items"`

	// OutputItems — выходной батч (заполняется при успехе).
	OutputItems []Item `json:"output_items,omitempty"`

	// Error — сообщение об ошибке при статусе error.
	Error string `json:"error,omitempty"`

	// StartedAt — время начала выполнения узла.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// MarkSuccess завершает запись с выходным батчем.
func (n *NodeExecution) MarkSuccess(outputs []Item) {
	now := time.Now()
	n.Status = NodeExecutionStatusSuccess
	n.OutputItems = outputs
	n.FinishedAt = &now
}

// MarkError завершает запись с ошибкой.
func (n *NodeExecution) MarkError(msg string) {
	now := time.Now()
	n.Status = NodeExecutionStatusError
	n.Error = msg
	n.FinishedAt = &now
}
