package nodes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/engine"
)

// If — узел фильтрации items по условию.
//
// Конфигурация:
//
//	{"expression": "statusCode == 200 && count > 3"}
//
// Выражение вычисляется в песочнице expr с полями item в качестве
// окружения, так что поля перекрывают одноимённые builtin-функции.
// Item проходит дальше, только если результат — true.
// Ошибка вычисления трактуется как false: item отбрасывается,
// узел не фейлится.
type If struct {
	logger *slog.Logger
}

// NewIf создаёт узел условия.
func NewIf(logger *slog.Logger) *If {
	if logger == nil {
		logger = slog.Default()
	}
	return &If{logger: logger}
}

// Type возвращает тип узла.
func (e *If) Type() string {
	return domain.NodeTypeIf
}

// Execute фильтрует входной батч по условию.
func (e *If) Execute(ctx context.Context, req *engine.Request) ([]domain.Item, error) {
	expression := getString(req.Node.Config, "expression", "")
	if expression == "" {
		return nil, fmt.Errorf("%w: expression is required", ErrInvalidConfig)
	}

	results := make([]domain.Item, 0, len(req.Items))
	for _, item := range req.Items {
		out, err := evaluate(expression, item.Fields)
		if err != nil {
			e.logger.Debug("condition evaluation failed, excluding item",
				"node_id", req.Node.ID, "error", err)
			continue
		}
		if pass, ok := out.(bool); ok && pass {
			results = append(results, item)
		}
	}
	return results, nil
}
