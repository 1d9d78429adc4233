package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/engine"
	"github.com/shaiso/Conveyor/internal/mq"
)

// Хранилища, которые использует API. Интерфейсы реализуются
// pgx-репозиториями из internal/repo; перечислены ровно те методы,
// что нужны обработчикам.

// WorkflowStore — операции над workflows.
type WorkflowStore interface {
	Create(ctx context.Context, wf *domain.Workflow) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)
	List(ctx context.Context) ([]domain.Workflow, error)
	Update(ctx context.Context, wf *domain.Workflow) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ExecutionStore — чтение и удаление истории executions.
type ExecutionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error)
	ListByWorkflow(ctx context.Context, workflowID uuid.UUID, limit int) ([]domain.Execution, error)
	ListNodes(ctx context.Context, executionID uuid.UUID) ([]domain.NodeExecution, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CredentialStore — операции над credentials.
type CredentialStore interface {
	Create(ctx context.Context, cred *domain.Credential) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Credential, error)
	ListByOwner(ctx context.Context, owner string) ([]domain.Credential, error)
	Update(ctx context.Context, cred *domain.Credential) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ScheduleStore — операции над расписаниями.
type ScheduleStore interface {
	Create(ctx context.Context, schedule *domain.Schedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error)
	List(ctx context.Context, workflowID *uuid.UUID) ([]domain.Schedule, error)
	Update(ctx context.Context, schedule *domain.Schedule) error
	SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ExecutionRecorder создаёт записи executions.
type ExecutionRecorder interface {
	BeginExecution(ctx context.Context, workflowID uuid.UUID, trigger, principal string) (*domain.Execution, error)
}

// Handler — главный обработчик API с зависимостями.
//
// Publisher и Runner взаимоисключаемы по смыслу: с RabbitMQ запуск
// уходит движку через очередь, без него Runner выполняет executions
// в этом же процессе (встроенный режим).
type Handler struct {
	workflows   WorkflowStore
	executions  ExecutionStore
	credentials CredentialStore
	schedules   ScheduleStore
	recorder    ExecutionRecorder
	publisher   *mq.Publisher
	runner      *engine.Runner
	logger      *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Workflows   WorkflowStore
	Executions  ExecutionStore
	Credentials CredentialStore
	Schedules   ScheduleStore
	Recorder    ExecutionRecorder
	Publisher   *mq.Publisher // nil во встроенном режиме
	Runner      *engine.Runner
	Logger      *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		workflows:   cfg.Workflows,
		executions:  cfg.Executions,
		credentials: cfg.Credentials,
		schedules:   cfg.Schedules,
		recorder:    cfg.Recorder,
		publisher:   cfg.Publisher,
		runner:      cfg.Runner,
		logger:      cfg.Logger,
	}
}
