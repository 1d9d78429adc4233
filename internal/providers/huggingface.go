package providers

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"
)

// Дефолты HuggingFace Inference API.
const (
	huggingFaceBaseURL = "https://api-inference.huggingface.co"

	// huggingFaceDefaultModel — модель генерации изображений по умолчанию.
	huggingFaceDefaultModel = "stabilityai/stable-diffusion-3-medium"

	huggingFaceDefaultSteps    = 28
	huggingFaceDefaultGuidance = 7.5
)

// HuggingFace — клиент HuggingFace Inference API для генерации изображений.
type HuggingFace struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// HuggingFaceConfig — настройки клиента HuggingFace.
type HuggingFaceConfig struct {
	// APIKey — ключ API (обязательно).
	APIKey string

	// BaseURL — адрес API. Пустое значение означает публичный Inference API.
	BaseURL string

	// Timeout — таймаут одного вызова. Ноль означает DefaultImageTimeout.
	Timeout time.Duration

	// HTTPClient — опциональный HTTP-клиент.
	HTTPClient *http.Client
}

// ImageOptions — настройки генерации изображения.
// Нулевые значения заменяются дефолтами.
type ImageOptions struct {
	// Model — имя модели в формате "owner/name".
	Model string

	// NegativePrompt — чего на изображении быть не должно.
	NegativePrompt string

	// Steps — количество шагов диффузии.
	Steps int

	// Guidance — guidance scale.
	Guidance float64
}

// NewHuggingFace создаёт клиент HuggingFace.
func NewHuggingFace(cfg HuggingFaceConfig) *HuggingFace {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = huggingFaceBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultImageTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &HuggingFace{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		timeout: timeout,
		client:  client,
	}
}

// GenerateImages генерирует изображения по текстовому описанию.
// Результат — изображения в base64 (без data-URI префикса).
func (c *HuggingFace) GenerateImages(ctx context.Context, prompt string, opts *ImageOptions) ([]string, error) {
	if opts == nil {
		opts = &ImageOptions{}
	}
	model := opts.Model
	if model == "" {
		model = huggingFaceDefaultModel
	}

	parameters := map[string]any{
		"num_inference_steps": intOrDefault(opts.Steps, huggingFaceDefaultSteps),
		"guidance_scale":      opts.Guidance,
	}
	if opts.Guidance <= 0 {
		parameters["guidance_scale"] = huggingFaceDefaultGuidance
	}
	if opts.NegativePrompt != "" {
		parameters["negative_prompt"] = opts.NegativePrompt
	}

	payload := map[string]any{
		"inputs":     prompt,
		"parameters": parameters,
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	headers := map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}

	// Inference API отвечает бинарным изображением, а не JSON.
	body, status, err := postJSON(ctx, c.client, fmt.Sprintf("%s/models/%s", c.baseURL, model), headers, payload)
	if err != nil {
		return nil, newError("huggingface", err.Error(), 0)
	}
	if status != http.StatusOK {
		return nil, newError("huggingface", extractError(body), status)
	}

	return []string{base64.StdEncoding.EncodeToString(body)}, nil
}
