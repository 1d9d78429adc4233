package domain

import (
	"time"

	"github.com/google/uuid"
)

// NodeKind — роль узла в графе.
type NodeKind string

const (
	// NodeKindTrigger — точка входа workflow.
	NodeKindTrigger NodeKind = "trigger"

	// NodeKindAction — узел с побочным эффектом (HTTP, AI, экспорт).
	NodeKindAction NodeKind = "action"

	// NodeKindControl — управляющий узел (if, forEach).
	NodeKindControl NodeKind = "control"
)

// Типы узлов, известные движку.
//
// Неизвестный тип не является ошибкой: движок пропускает такой узел
// насквозь с предупреждением в логе (forward compatibility).
const (
	NodeTypeManualTrigger   = "manualTrigger"
	NodeTypeHTTPRequest     = "httpRequest"
	NodeTypeHTMLExtract     = "htmlExtract"
	NodeTypeAIText          = "aiText"
	NodeTypeImageGeneration = "imageGeneration"
	NodeTypeExportDocument  = "exportDocument"
	NodeTypeForEach         = "forEach"
	NodeTypeIf              = "if"
	NodeTypeCode            = "code"
)

// Workflow — определение рабочего процесса: граф типизированных узлов.
//
// Workflow создаётся и изменяется только через API (редактор).
// Движок читает полностью материализованный снимок один раз на старте
// execution; изменения графа во время выполнения не подхватываются.
type Workflow struct {
	// ID — уникальный идентификатор workflow.
	ID uuid.UUID `json:"id"`

	// Name — имя workflow.
	Name string `json:"name"`

	// Description — описание назначения.
	Description string `json:"description,omitempty"`

	// CreatedBy — принципал-владелец. Используется движком для
	// разрешения credentials при выполнении AI/image узлов.
	CreatedBy string `json:"created_by"`

	// Version — номер версии, инкрементируется при каждом обновлении.
	Version int `json:"version"`

	// Nodes — узлы графа.
	Nodes []Node `json:"nodes"`

	// Connections — направленные рёбра между узлами.
	Connections []Connection `json:"connections"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего изменения.
	UpdatedAt time.Time `json:"updated_at"`
}

// TriggerNodes возвращает узлы с kind=trigger в порядке объявления.
func (w *Workflow) TriggerNodes() []*Node {
	var triggers []*Node
	for i := range w.Nodes {
		if w.Nodes[i].Kind == NodeKindTrigger {
			triggers = append(triggers, &w.Nodes[i])
		}
	}
	return triggers
}

// NodeByID возвращает узел по ID или nil.
func (w *Workflow) NodeByID(id string) *Node {
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			return &w.Nodes[i]
		}
	}
	return nil
}

// Node — типизированный шаг обработки в графе workflow.
type Node struct {
	// ID — идентификатор узла, уникальный в рамках workflow.
	ID string `json:"id"`

	// Type — тип узла, выбирает executor (см. NodeType* константы).
	Type string `json:"type"`

	// Kind — роль узла: trigger, action или control.
	Kind NodeKind `json:"kind"`

	// Name — человекочитаемое имя узла.
	Name string `json:"name"`

	// Position — координаты узла в визуальном редакторе.
	// Движком не используется, хранится для UI.
	Position Position `json:"position"`

	// Config — конфигурация узла (зависит от типа).
	Config map[string]any `json:"config,omitempty"`
}

// Position — координаты узла на холсте редактора.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Connection — направленное ребро: выходной батч source-узла
// становится входным батчем target-узла.
//
// Порты хранятся для совместимости с редактором; движок не
// маршрутизирует по имени порта — весь выходной батч уходит
// в каждый подключённый target.
type Connection struct {
	// SourceNodeID — узел-источник.
	SourceNodeID string `json:"source_node_id"`

	// SourceOutput — имя выходного порта источника.
	SourceOutput string `json:"source_output,omitempty"`

	// TargetNodeID — узел-приёмник.
	TargetNodeID string `json:"target_node_id"`

	// TargetInput — имя входного порта приёмника.
	TargetInput string `json:"target_input,omitempty"`
}
