package nodes

import "errors"

// Ошибки выполнения узлов.
var (
	// ErrInvalidConfig — невалидная конфигурация узла.
	ErrInvalidConfig = errors.New("invalid node config")

	// ErrCredentialMissing — у владельца workflow нет активного
	// ключа для запрошенного провайдера. Проверяется до сетевого вызова.
	ErrCredentialMissing = errors.New("credential missing")

	// ErrTransport — сетевая ошибка исходящего HTTP-запроса.
	ErrTransport = errors.New("transport error")

	// ErrEvaluation — ошибка компиляции или выполнения expr-выражения.
	ErrEvaluation = errors.New("expression evaluation failed")

	// ErrExport — ошибка записи экспортируемого документа.
	ErrExport = errors.New("document export failed")
)
