package domain

import (
	"time"

	"github.com/google/uuid"
)

// Schedule — расписание автоматического запуска workflow.
//
// Поддерживаются два режима:
//   - cron-выражение: "0 9 * * *" (каждый день в 9:00)
//   - интервал: каждые N секунд
//
// Scheduler проверяет next_due_at и создаёт execution, когда время
// подошло. Execution, созданный по расписанию, получает trigger="schedule".
type Schedule struct {
	// ID — уникальный идентификатор schedule.
	ID uuid.UUID `json:"id"`

	// WorkflowID — ссылка на запускаемый workflow.
	WorkflowID uuid.UUID `json:"workflow_id"`

	// Name — имя расписания.
	Name string `json:"name,omitempty"`

	// CronExpr — cron-выражение ("минуты часы дни месяцы дни_недели").
	// Если задан, IntervalSec игнорируется.
	CronExpr string `json:"cron_expr,omitempty"`

	// IntervalSec — интервал в секундах между запусками.
	IntervalSec int `json:"interval_sec,omitempty"`

	// Timezone — часовой пояс для вычисления времени. Default: "UTC".
	Timezone string `json:"timezone"`

	// Enabled — выключенные расписания scheduler игнорирует.
	Enabled bool `json:"enabled"`

	// NextDueAt — время следующего запуска.
	NextDueAt *time.Time `json:"next_due_at,omitempty"`

	// LastRunAt — время последнего запуска.
	LastRunAt *time.Time `json:"last_run_at,omitempty"`

	// LastExecutionID — ID последнего созданного execution.
	LastExecutionID *uuid.UUID `json:"last_execution_id,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего изменения.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsCron возвращает true, если расписание задано cron-выражением.
func (s *Schedule) IsCron() bool {
	return s.CronExpr != ""
}

// IsInterval возвращает true, если расписание задано интервалом.
func (s *Schedule) IsInterval() bool {
	return s.CronExpr == "" && s.IntervalSec > 0
}
