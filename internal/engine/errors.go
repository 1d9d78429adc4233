package engine

import "errors"

// Ошибки движка.
var (
	// ErrWorkflowNotFound — workflow отсутствует в хранилище.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrNoTriggerNode — в графе нет ни одного trigger-узла.
	ErrNoTriggerNode = errors.New("workflow has no trigger node")

	// ErrGraphCycle — в графе обнаружен цикл.
	// Циклический граф отклоняется до запуска первого узла.
	ErrGraphCycle = errors.New("workflow graph contains a cycle")

	// ErrExecutionCancelled — выполнение отменено пользователем.
	// Используется как cancel cause при кооперативной отмене.
	ErrExecutionCancelled = errors.New("execution cancelled")

	// ErrExecutionActive — execution уже выполняется этим Runner'ом.
	ErrExecutionActive = errors.New("execution already running")
)

// NodeError — ошибка выполнения конкретного узла.
//
// Оборачивает ошибку executor'а, сохраняя ID узла для записи
// в NodeExecution и в сообщение execution.
type NodeError struct {
	// NodeID — узел, на котором остановился обход.
	NodeID string

	// NodeType — тип узла.
	NodeType string

	// Err — ошибка executor'а.
	Err error
}

// Error реализует интерфейс error.
func (e *NodeError) Error() string {
	return "node " + e.NodeID + " (" + e.NodeType + "): " + e.Err.Error()
}

// Unwrap возвращает базовую ошибку.
func (e *NodeError) Unwrap() error {
	return e.Err
}
