package nodes

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/engine"
	"github.com/shaiso/Conveyor/internal/providers"
)

// ImageGeneration — узел генерации изображений через HuggingFace.
//
// Конфигурация:
//
//	{
//	    "promptTemplate": "a watercolor of {{subject}}",
//	    "negativePrompt": "blurry",
//	    "model": "stabilityai/stable-diffusion-3-medium",
//	    "outputField": "generatedImages"
//	}
//
// Результат — массив изображений в base64 в выходном поле item.
type ImageGeneration struct {
	creds    CredentialStore
	settings ProviderSettings
	client   *http.Client
}

// NewImageGeneration создаёт узел генерации изображений.
func NewImageGeneration(creds CredentialStore, settings ProviderSettings, client *http.Client) *ImageGeneration {
	if client == nil {
		client = &http.Client{}
	}
	return &ImageGeneration{creds: creds, settings: settings, client: client}
}

// Type возвращает тип узла.
func (e *ImageGeneration) Type() string {
	return domain.NodeTypeImageGeneration
}

// Execute генерирует изображение для каждого входного item.
func (e *ImageGeneration) Execute(ctx context.Context, req *engine.Request) ([]domain.Item, error) {
	promptTemplate := getString(req.Node.Config, "promptTemplate", "")
	if promptTemplate == "" {
		return nil, fmt.Errorf("%w: promptTemplate is required", ErrInvalidConfig)
	}
	outputField := getString(req.Node.Config, "outputField", "generatedImages")

	apiKey, err := e.creds.GetSecret(ctx, req.Principal, domain.CredentialHuggingFace)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCredentialMissing, domain.CredentialHuggingFace)
	}

	client := providers.NewHuggingFace(providers.HuggingFaceConfig{
		APIKey:     apiKey,
		BaseURL:    e.settings.HuggingFaceBaseURL,
		Timeout:    e.settings.ImageTimeout,
		HTTPClient: e.client,
	})

	opts := &providers.ImageOptions{
		Model:          getString(req.Node.Config, "model", ""),
		NegativePrompt: getString(req.Node.Config, "negativePrompt", ""),
		Steps:          getInt(req.Node.Config, "steps", 0),
		Guidance:       getFloat(req.Node.Config, "guidance", 0),
	}

	results := make([]domain.Item, 0, len(req.Items))
	for _, item := range req.Items {
		prompt := Interpolate(promptTemplate, item.Fields)

		images, err := client.GenerateImages(ctx, prompt, opts)
		if err != nil {
			return nil, err
		}

		fields := item.CloneFields()
		fields[outputField] = images
		results = append(results, domain.WithFields(fields))
	}
	return results, nil
}
