package nodes

import (
	"context"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/engine"
)

// ManualTrigger — узел ручного запуска.
//
// Точка входа workflow: пропускает входные items без изменений.
// Данные запуска (payload из API) приходят именно через него.
type ManualTrigger struct{}

// NewManualTrigger создаёт узел ручного запуска.
func NewManualTrigger() *ManualTrigger {
	return &ManualTrigger{}
}

// Type возвращает тип узла.
func (e *ManualTrigger) Type() string {
	return domain.NodeTypeManualTrigger
}

// Execute пропускает входные items как есть.
func (e *ManualTrigger) Execute(ctx context.Context, req *engine.Request) ([]domain.Item, error) {
	return req.Items, nil
}
