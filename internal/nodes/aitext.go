package nodes

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/engine"
	"github.com/shaiso/Conveyor/internal/providers"
)

// Провайдеры текстовой генерации.
const (
	ProviderOpenRouter = "openrouter"
	ProviderNvidia     = "nvidia"
)

// AIText — узел текстовой генерации через LLM.
//
// Конфигурация:
//
//	{
//	    "provider": "openrouter",       // "openrouter" | "nvidia"
//	    "model": "openai/gpt-4o-mini",
//	    "systemPrompt": "You are ...",
//	    "userPromptTemplate": "Summarize: {{extracted}}",
//	    "outputField": "aiResult"
//	}
//
// Ключ API берётся из хранилища credentials владельца workflow.
// Отсутствие ключа обнаруживается до первого сетевого вызова.
type AIText struct {
	creds    CredentialStore
	settings ProviderSettings
	client   *http.Client
}

// NewAIText создаёт узел текстовой генерации.
func NewAIText(creds CredentialStore, settings ProviderSettings, client *http.Client) *AIText {
	if client == nil {
		client = &http.Client{}
	}
	return &AIText{creds: creds, settings: settings, client: client}
}

// Type возвращает тип узла.
func (e *AIText) Type() string {
	return domain.NodeTypeAIText
}

// Execute выполняет генерацию для каждого входного item.
func (e *AIText) Execute(ctx context.Context, req *engine.Request) ([]domain.Item, error) {
	provider := getString(req.Node.Config, "provider", ProviderOpenRouter)
	model := getString(req.Node.Config, "model", "")
	if model == "" {
		return nil, fmt.Errorf("%w: model is required", ErrInvalidConfig)
	}
	systemPrompt := getString(req.Node.Config, "systemPrompt", "")
	promptTemplate := getString(req.Node.Config, "userPromptTemplate", "")
	outputField := getString(req.Node.Config, "outputField", "aiResult")

	apiKey, err := e.resolveKey(ctx, provider, req.Principal)
	if err != nil {
		return nil, err
	}

	results := make([]domain.Item, 0, len(req.Items))
	for _, item := range req.Items {
		prompt := Interpolate(promptTemplate, item.Fields)

		text, err := e.generate(ctx, provider, apiKey, model, systemPrompt, prompt)
		if err != nil {
			return nil, err
		}

		fields := item.CloneFields()
		fields[outputField] = text
		results = append(results, domain.WithFields(fields))
	}
	return results, nil
}

// resolveKey находит ключ API провайдера для владельца workflow.
func (e *AIText) resolveKey(ctx context.Context, provider, owner string) (string, error) {
	var credKey string
	switch provider {
	case ProviderOpenRouter:
		credKey = domain.CredentialOpenRouter
	case ProviderNvidia:
		credKey = domain.CredentialNvidia
	default:
		return "", fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, provider)
	}

	apiKey, err := e.creds.GetSecret(ctx, owner, credKey)
	if err != nil {
		return "", fmt.Errorf("%w: %s for provider %s", ErrCredentialMissing, credKey, provider)
	}
	return apiKey, nil
}

// generate выполняет один вызов выбранного провайдера.
func (e *AIText) generate(ctx context.Context, provider, apiKey, model, systemPrompt, userPrompt string) (string, error) {
	switch provider {
	case ProviderNvidia:
		client := providers.NewNvidia(providers.NvidiaConfig{
			APIKey:     apiKey,
			BaseURL:    e.settings.NvidiaBaseURL,
			Timeout:    e.settings.ChatTimeout,
			HTTPClient: e.client,
		})
		return client.ChatWithReasoning(ctx, model, systemPrompt, userPrompt, nil)
	default:
		client := providers.NewOpenRouter(providers.OpenRouterConfig{
			APIKey:     apiKey,
			BaseURL:    e.settings.OpenRouterBaseURL,
			Timeout:    e.settings.ChatTimeout,
			HTTPClient: e.client,
		})
		return client.Chat(ctx, model, []providers.Message{
			{Role: providers.RoleSystem, Content: systemPrompt},
			{Role: providers.RoleUser, Content: userPrompt},
		}, nil)
	}
}
