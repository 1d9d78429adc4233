package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Таймауты внешних вызовов по умолчанию.
//
// У всех вызовов провайдеров есть явная граница: инференс не может
// блокировать обход графа неограниченно.
const (
	// DefaultChatTimeout — таймаут chat-completion вызова.
	DefaultChatTimeout = 60 * time.Second

	// DefaultImageTimeout — таймаут генерации изображения.
	DefaultImageTimeout = 120 * time.Second
)

// Role — роль сообщения в chat-completion диалоге.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message — одно сообщение chat-completion диалога.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions — настройки chat-completion вызова.
// Нулевые значения заменяются дефолтами конкретного провайдера.
type ChatOptions struct {
	// Temperature — температура сэмплирования.
	Temperature *float64

	// MaxTokens — максимальное количество токенов ответа.
	MaxTokens int

	// TopP — nucleus sampling.
	TopP *float64
}

// Error — единообразная ошибка провайдера.
// Message содержит сообщение upstream-сервиса, если его удалось извлечь.
type Error struct {
	// Provider — имя провайдера ("openrouter", "nvidia", "huggingface").
	Provider string

	// Message — сообщение об ошибке от провайдера.
	Message string

	// Status — HTTP-статус ответа (0 при транспортной ошибке).
	Status int
}

// Error реализует интерфейс error.
func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Message)
}

// newError создаёт Error провайдера.
func newError(provider, message string, status int) *Error {
	return &Error{Provider: provider, Message: message, Status: status}
}

// floatOrDefault возвращает значение указателя или default.
func floatOrDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// intOrDefault возвращает значение или default для нуля.
func intOrDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// postJSON выполняет POST с JSON-телом и возвращает тело ответа
// вместе с HTTP-статусом. Транспортные ошибки возвращаются как error.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload any) ([]byte, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for key, val := range headers {
		req.Header.Set(key, val)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	return respBody, resp.StatusCode, nil
}

// chatResponse — общий формат ответа OpenAI-совместимых провайдеров.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// errorResponse — формат ошибки OpenAI-совместимых провайдеров.
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// extractContent достаёт текст первого choice из ответа.
func extractContent(provider string, body []byte) (string, error) {
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", newError(provider, "malformed response: "+err.Error(), 0)
	}
	if len(parsed.Choices) == 0 {
		return "", newError(provider, "response has no choices", 0)
	}
	return parsed.Choices[0].Message.Content, nil
}

// extractError достаёт сообщение об ошибке из тела ответа.
// Если тело не парсится, возвращает его усечённым как есть.
func extractError(body []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	msg := string(body)
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}
