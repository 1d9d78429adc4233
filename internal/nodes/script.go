package nodes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/engine"
)

// Code — узел пользовательской трансформации item.
//
// Конфигурация:
//
//	{"code": "{total: price * count, name: name}"}
//
// Выражение вычисляется в песочнице expr для каждого item с его
// полями в качестве окружения, так что поля перекрывают одноимённые
// builtin-функции. Результат-объект становится новыми
// полями item, скалярный результат кладётся в поле "value",
// nil оставляет item без изменений.
//
// Ошибка вычисления не фейлит узел: item проходит дальше
// нетронутым, а ошибка логируется.
type Code struct {
	logger *slog.Logger
}

// NewCode создаёт узел трансформации.
func NewCode(logger *slog.Logger) *Code {
	if logger == nil {
		logger = slog.Default()
	}
	return &Code{logger: logger}
}

// Type возвращает тип узла.
func (e *Code) Type() string {
	return domain.NodeTypeCode
}

// Execute применяет выражение к каждому входному item.
func (e *Code) Execute(ctx context.Context, req *engine.Request) ([]domain.Item, error) {
	code := getString(req.Node.Config, "code", "")
	if code == "" {
		return nil, fmt.Errorf("%w: code is required", ErrInvalidConfig)
	}

	results := make([]domain.Item, 0, len(req.Items))
	for _, item := range req.Items {
		out, err := evaluate(code, item.Fields)
		if err != nil {
			e.logger.Debug("code evaluation failed, passing item through",
				"node_id", req.Node.ID, "error", err)
			results = append(results, item)
			continue
		}

		switch v := out.(type) {
		case nil:
			results = append(results, item)
		case map[string]any:
			results = append(results, domain.WithFields(v))
		default:
			results = append(results, domain.WithFields(map[string]any{"value": v}))
		}
	}
	return results, nil
}
