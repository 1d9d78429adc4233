package nodes

import (
	"context"
	"fmt"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/engine"
)

// ForEach — узел разворачивания массива в отдельные items.
//
// Конфигурация:
//
//	{"arrayPath": "response.data.items"}
//
// Путь — точечный, относительно полей входного item. Каждый элемент
// массива становится отдельным выходным item: элементы-объекты —
// целиком его полями, скалярные элементы — полем "value".
// Отсутствующий путь или не-массив дают ноль items для этого входа.
type ForEach struct{}

// NewForEach создаёт узел разворачивания массива.
func NewForEach() *ForEach {
	return &ForEach{}
}

// Type возвращает тип узла.
func (e *ForEach) Type() string {
	return domain.NodeTypeForEach
}

// Execute разворачивает массив каждого входного item.
func (e *ForEach) Execute(ctx context.Context, req *engine.Request) ([]domain.Item, error) {
	path := getString(req.Node.Config, "arrayPath", "")
	if path == "" {
		return nil, fmt.Errorf("%w: arrayPath is required", ErrInvalidConfig)
	}

	var results []domain.Item
	for _, item := range req.Items {
		value, ok := Lookup(item.Fields, path)
		if !ok {
			continue
		}
		elements, ok := value.([]any)
		if !ok {
			continue
		}

		for _, element := range elements {
			if obj, ok := element.(map[string]any); ok {
				results = append(results, domain.WithFields(obj))
				continue
			}
			results = append(results, domain.WithFields(map[string]any{"value": element}))
		}
	}
	return results, nil
}
