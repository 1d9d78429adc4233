package nodes

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/shaiso/Conveyor/internal/engine"
)

// CredentialStore — доступ к ключам API владельца workflow.
type CredentialStore interface {
	// GetSecret возвращает значение активного ключа.
	// Отсутствующий или деактивированный ключ — ошибка.
	GetSecret(ctx context.Context, owner, key string) (string, error)

	// HasSecret проверяет наличие активного ключа без чтения значения.
	HasSecret(ctx context.Context, owner, key string) (bool, error)
}

// ProviderSettings — переопределения адресов и таймаутов AI-провайдеров.
// Нулевые значения означают публичные адреса и дефолтные таймауты.
type ProviderSettings struct {
	OpenRouterBaseURL  string
	NvidiaBaseURL      string
	HuggingFaceBaseURL string

	ChatTimeout  time.Duration
	ImageTimeout time.Duration
}

// Deps — зависимости стандартного набора узлов.
type Deps struct {
	// Credentials — хранилище ключей API (обязательно для AI-узлов).
	Credentials CredentialStore

	// HTTPClient — общий HTTP-клиент исходящих запросов.
	HTTPClient *http.Client

	// HTTPTimeout — таймаут узла httpRequest.
	HTTPTimeout time.Duration

	// Providers — настройки AI-провайдеров.
	Providers ProviderSettings

	// ExportDir — каталог для экспортируемых документов.
	ExportDir string

	// Logger — логгер узлов.
	Logger *slog.Logger
}

// Executor — общий интерфейс узла: исполнение плюс собственный тип.
type Executor interface {
	engine.Executor

	// Type возвращает тип узла, под которым он регистрируется.
	Type() string
}

// Registry — реестр executors по типу узла.
//
// Реализует engine.Registry. Потокобезопасен.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]engine.Executor
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[string]engine.Executor),
	}
}

// DefaultRegistry создаёт реестр со стандартным набором узлов.
func DefaultRegistry(deps Deps) *Registry {
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := NewRegistry()
	r.Register(NewManualTrigger())
	r.Register(NewHTTPRequest(deps.HTTPClient, deps.HTTPTimeout))
	r.Register(NewHTMLExtract())
	r.Register(NewAIText(deps.Credentials, deps.Providers, deps.HTTPClient))
	r.Register(NewImageGeneration(deps.Credentials, deps.Providers, deps.HTTPClient))
	r.Register(NewExportDocument(deps.ExportDir))
	r.Register(NewForEach())
	r.Register(NewIf(deps.Logger))
	r.Register(NewCode(deps.Logger))
	return r
}

// Register регистрирует executor. Повторная регистрация типа
// перезаписывает предыдущий executor.
func (r *Registry) Register(e Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[e.Type()] = e
}

// Get возвращает executor по типу узла.
func (r *Registry) Get(nodeType string) (engine.Executor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.executors[nodeType]
	return e, ok
}

// Has проверяет, зарегистрирован ли тип узла.
func (r *Registry) Has(nodeType string) bool {
	_, ok := r.Get(nodeType)
	return ok
}

// Types возвращает отсортированный список зарегистрированных типов.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.executors))
	for t := range r.executors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
