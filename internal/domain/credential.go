package domain

import (
	"time"

	"github.com/google/uuid"
)

// Имена credentials для поддерживаемых провайдеров.
const (
	CredentialOpenRouter  = "OPENROUTER_API_KEY"
	CredentialNvidia      = "NVIDIA_API_KEY"
	CredentialHuggingFace = "HUGGINGFACE_API_KEY"
)

// Credential — секрет провайдера, принадлежащий принципалу.
//
// Пара (owner, key) уникальна. Значение хранится как есть:
// схема шифрования at-rest — ответственность внешнего слоя
// и в объём движка не входит.
type Credential struct {
	// ID — уникальный идентификатор.
	ID uuid.UUID `json:"id"`

	// Owner — принципал-владелец секрета.
	Owner string `json:"owner"`

	// Key — фиксированное имя секрета (см. Credential* константы).
	Key string `json:"key"`

	// Value — значение секрета. Наружу через API не отдаётся.
	Value string `json:"-"`

	// IsActive — неактивные credentials считаются отсутствующими.
	IsActive bool `json:"is_active"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего изменения.
	UpdatedAt time.Time `json:"updated_at"`
}

// MaskedValue возвращает замаскированное значение для отображения.
func (c *Credential) MaskedValue() string {
	if len(c.Value) <= 4 {
		return "****"
	}
	return "****" + c.Value[len(c.Value)-4:]
}
