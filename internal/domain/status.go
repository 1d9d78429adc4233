package domain

// ExecutionStatus — статус выполнения execution.
//
// Жизненный цикл монотонный:
//
//	RUNNING → SUCCESS
//	        ↘ ERROR
//	        ↘ CANCELLED
//
// После терминального перехода статус не меняется.
type ExecutionStatus string

const (
	// ExecutionStatusRunning — execution выполняется.
	ExecutionStatusRunning ExecutionStatus = "running"

	// ExecutionStatusSuccess — граф пройден без ошибок.
	ExecutionStatusSuccess ExecutionStatus = "success"

	// ExecutionStatusError — выполнение остановлено ошибкой узла
	// или на старте (workflow не найден, нет триггера, цикл).
	ExecutionStatusError ExecutionStatus = "error"

	// ExecutionStatusCancelled — выполнение отменено пользователем.
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// IsTerminal возвращает true для финальных статусов.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusSuccess, ExecutionStatusError, ExecutionStatusCancelled:
		return true
	default:
		return false
	}
}

// NodeExecutionStatus — статус выполнения одного узла.
//
//	running → success
//	        ↘ error
type NodeExecutionStatus string

const (
	// NodeExecutionStatusRunning — узел выполняется.
	NodeExecutionStatusRunning NodeExecutionStatus = "running"

	// NodeExecutionStatusSuccess — узел завершён, outputs записаны.
	NodeExecutionStatusSuccess NodeExecutionStatus = "success"

	// NodeExecutionStatusError — узел упал; обход графа дальше этого
	// узла прерывается.
	NodeExecutionStatusError NodeExecutionStatus = "error"
)

// IsTerminal возвращает true для финальных статусов.
func (s NodeExecutionStatus) IsTerminal() bool {
	return s == NodeExecutionStatusSuccess || s == NodeExecutionStatusError
}
