package providers

import (
	"context"
	"net/http"
	"time"
)

// Дефолты NVIDIA NIM: reasoning-модели лучше работают
// с высокой температурой и большим лимитом токенов.
const (
	nvidiaBaseURL = "https://integrate.api.nvidia.com/v1"

	nvidiaDefaultTemperature = 1.1
	nvidiaDefaultMaxTokens   = 4096
	nvidiaDefaultTopP        = 0.95
)

// Nvidia — клиент NVIDIA NIM chat-completion API.
// API совместимо с форматом OpenAI.
type Nvidia struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// NvidiaConfig — настройки клиента NVIDIA NIM.
type NvidiaConfig struct {
	// APIKey — ключ API (обязательно).
	APIKey string

	// BaseURL — адрес API. Пустое значение означает публичный NIM.
	BaseURL string

	// Timeout — таймаут одного вызова. Ноль означает DefaultChatTimeout.
	Timeout time.Duration

	// HTTPClient — опциональный HTTP-клиент.
	HTTPClient *http.Client
}

// NewNvidia создаёт клиент NVIDIA NIM.
func NewNvidia(cfg NvidiaConfig) *Nvidia {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = nvidiaBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultChatTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Nvidia{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		timeout: timeout,
		client:  client,
	}
}

// ChatWithReasoning выполняет chat-completion вызов reasoning-модели.
func (c *Nvidia) ChatWithReasoning(ctx context.Context, model, systemPrompt, userPrompt string, opts *ChatOptions) (string, error) {
	if opts == nil {
		opts = &ChatOptions{}
	}

	payload := map[string]any{
		"model": model,
		"messages": []Message{
			{Role: RoleSystem, Content: systemPrompt},
			{Role: RoleUser, Content: userPrompt},
		},
		"temperature": floatOrDefault(opts.Temperature, nvidiaDefaultTemperature),
		"max_tokens":  intOrDefault(opts.MaxTokens, nvidiaDefaultMaxTokens),
		"top_p":       floatOrDefault(opts.TopP, nvidiaDefaultTopP),
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	headers := map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}

	body, status, err := postJSON(ctx, c.client, c.baseURL+"/chat/completions", headers, payload)
	if err != nil {
		return "", newError("nvidia", err.Error(), 0)
	}
	if status != http.StatusOK {
		return "", newError("nvidia", extractError(body), status)
	}

	return extractContent("nvidia", body)
}
