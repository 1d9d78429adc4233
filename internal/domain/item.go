package domain

// Item — единица данных, проходящая через граф workflow.
//
// Items передаются между узлами батчами ([]Item). Каждый executor
// читает входные items и создаёт новые выходные — items неизменяемы
// после передачи дальше по графу, общее состояние между ветками
// отсутствует.
type Item struct {
	// Fields — поля данных item (произвольный JSON-объект).
	Fields map[string]any `json:"fields"`

	// Binary — опциональные бинарные payload'ы (имя → содержимое).
	Binary map[string][]byte `json:"binary,omitempty"`
}

// NewItem создаёт item с пустым набором полей.
func NewItem() Item {
	return Item{Fields: make(map[string]any)}
}

// WithFields создаёт item с указанными полями.
func WithFields(fields map[string]any) Item {
	if fields == nil {
		fields = make(map[string]any)
	}
	return Item{Fields: fields}
}

// CloneFields возвращает shallow-копию полей item.
// Executors используют её, чтобы дополнить поля, не трогая вход.
func (i Item) CloneFields() map[string]any {
	fields := make(map[string]any, len(i.Fields))
	for k, v := range i.Fields {
		fields[k] = v
	}
	return fields
}
