package providers

import (
	"context"
	"net/http"
	"time"
)

// Дефолты OpenRouter.
const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"

	openRouterDefaultTemperature = 0.7
	openRouterDefaultMaxTokens   = 2048
	openRouterDefaultTopP        = 1.0

	// openRouterReasoningTemperature — температура первого прохода
	// в режиме reasoning: модель рассуждает свободнее.
	openRouterReasoningTemperature = 1.0
)

// OpenRouter — клиент OpenRouter chat-completion API.
type OpenRouter struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// OpenRouterConfig — настройки клиента OpenRouter.
type OpenRouterConfig struct {
	// APIKey — ключ API (обязательно).
	APIKey string

	// BaseURL — адрес API. Пустое значение означает публичный OpenRouter.
	BaseURL string

	// Timeout — таймаут одного вызова. Ноль означает DefaultChatTimeout.
	Timeout time.Duration

	// HTTPClient — опциональный HTTP-клиент.
	HTTPClient *http.Client
}

// NewOpenRouter создаёт клиент OpenRouter.
func NewOpenRouter(cfg OpenRouterConfig) *OpenRouter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openRouterBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultChatTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &OpenRouter{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		timeout: timeout,
		client:  client,
	}
}

// Chat выполняет chat-completion вызов и возвращает текст ответа модели.
func (c *OpenRouter) Chat(ctx context.Context, model string, messages []Message, opts *ChatOptions) (string, error) {
	if opts == nil {
		opts = &ChatOptions{}
	}

	payload := map[string]any{
		"model":       model,
		"messages":    messages,
		"temperature": floatOrDefault(opts.Temperature, openRouterDefaultTemperature),
		"max_tokens":  intOrDefault(opts.MaxTokens, openRouterDefaultMaxTokens),
		"top_p":       floatOrDefault(opts.TopP, openRouterDefaultTopP),
	}

	return c.complete(ctx, payload)
}

// ChatWithReasoning выполняет двухпроходный вызов: первый проход
// с высокой температурой даёт модели порассуждать, второй проход
// с ответом первого в контексте формирует итоговый текст.
// При пустом followUpPrompt возвращается результат первого прохода.
func (c *OpenRouter) ChatWithReasoning(ctx context.Context, model, systemPrompt, userPrompt, followUpPrompt string) (string, error) {
	reasoningTemp := openRouterReasoningTemperature
	first, err := c.Chat(ctx, model, []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: userPrompt},
	}, &ChatOptions{Temperature: &reasoningTemp})
	if err != nil {
		return "", err
	}

	if followUpPrompt == "" {
		return first, nil
	}

	return c.Chat(ctx, model, []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: userPrompt},
		{Role: RoleAssistant, Content: first},
		{Role: RoleUser, Content: followUpPrompt},
	}, nil)
}

// complete выполняет запрос к /chat/completions.
func (c *OpenRouter) complete(ctx context.Context, payload map[string]any) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	headers := map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}

	body, status, err := postJSON(ctx, c.client, c.baseURL+"/chat/completions", headers, payload)
	if err != nil {
		return "", newError("openrouter", err.Error(), 0)
	}
	if status != http.StatusOK {
		return "", newError("openrouter", extractError(body), status)
	}

	return extractContent("openrouter", body)
}
