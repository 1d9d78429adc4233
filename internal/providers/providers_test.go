package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// chatServer возвращает сервер, отвечающий фиксированным текстом
// и записывающий тела входящих запросов.
func chatServer(t *testing.T, content string, requests *[]map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		*requests = append(*requests, payload)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		})
	}))
}

func TestOpenRouter_Chat_Defaults(t *testing.T) {
	var requests []map[string]any
	srv := chatServer(t, "hello", &requests)
	defer srv.Close()

	client := NewOpenRouter(OpenRouterConfig{APIKey: "key", BaseURL: srv.URL})

	result, err := client.Chat(context.Background(), "test-model", []Message{
		{Role: RoleUser, Content: "hi"},
	}, nil)

	require.NoError(t, err)
	require.Equal(t, "hello", result)
	require.Len(t, requests, 1)

	payload := requests[0]
	require.Equal(t, "test-model", payload["model"])
	require.Equal(t, 0.7, payload["temperature"])
	require.Equal(t, float64(2048), payload["max_tokens"])
	require.Equal(t, 1.0, payload["top_p"])
}

func TestOpenRouter_Chat_CustomOptions(t *testing.T) {
	var requests []map[string]any
	srv := chatServer(t, "ok", &requests)
	defer srv.Close()

	client := NewOpenRouter(OpenRouterConfig{APIKey: "key", BaseURL: srv.URL})

	temp := 0.2
	_, err := client.Chat(context.Background(), "m", nil, &ChatOptions{
		Temperature: &temp,
		MaxTokens:   100,
	})

	require.NoError(t, err)
	require.Equal(t, 0.2, requests[0]["temperature"])
	require.Equal(t, float64(100), requests[0]["max_tokens"])
}

func TestOpenRouter_Chat_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "insufficient credits"},
		})
	}))
	defer srv.Close()

	client := NewOpenRouter(OpenRouterConfig{APIKey: "key", BaseURL: srv.URL})

	_, err := client.Chat(context.Background(), "m", nil, nil)

	var provErr *Error
	require.ErrorAs(t, err, &provErr)
	require.Equal(t, "openrouter", provErr.Provider)
	require.Equal(t, "insufficient credits", provErr.Message)
	require.Equal(t, http.StatusPaymentRequired, provErr.Status)
}

func TestOpenRouter_ChatWithReasoning_TwoPasses(t *testing.T) {
	var requests []map[string]any
	srv := chatServer(t, "answer", &requests)
	defer srv.Close()

	client := NewOpenRouter(OpenRouterConfig{APIKey: "key", BaseURL: srv.URL})

	result, err := client.ChatWithReasoning(context.Background(), "m", "sys", "user", "refine")

	require.NoError(t, err)
	require.Equal(t, "answer", result)
	require.Len(t, requests, 2)

	// Первый проход с повышенной температурой.
	require.Equal(t, 1.0, requests[0]["temperature"])
	// Второй проход включает ответ первого как assistant-сообщение.
	require.Equal(t, 0.7, requests[1]["temperature"])
	messages := requests[1]["messages"].([]any)
	require.Len(t, messages, 4)
	third := messages[2].(map[string]any)
	require.Equal(t, RoleAssistant, third["role"])
	require.Equal(t, "answer", third["content"])
}

func TestOpenRouter_ChatWithReasoning_NoFollowUp(t *testing.T) {
	var requests []map[string]any
	srv := chatServer(t, "draft", &requests)
	defer srv.Close()

	client := NewOpenRouter(OpenRouterConfig{APIKey: "key", BaseURL: srv.URL})

	result, err := client.ChatWithReasoning(context.Background(), "m", "sys", "user", "")

	require.NoError(t, err)
	require.Equal(t, "draft", result)
	require.Len(t, requests, 1)
}

func TestNvidia_ChatWithReasoning_Defaults(t *testing.T) {
	var requests []map[string]any
	srv := chatServer(t, "reasoned", &requests)
	defer srv.Close()

	client := NewNvidia(NvidiaConfig{APIKey: "key", BaseURL: srv.URL})

	result, err := client.ChatWithReasoning(context.Background(), "m", "sys", "user", nil)

	require.NoError(t, err)
	require.Equal(t, "reasoned", result)
	require.Equal(t, 1.1, requests[0]["temperature"])
	require.Equal(t, float64(4096), requests[0]["max_tokens"])
	require.Equal(t, 0.95, requests[0]["top_p"])
}

func TestHuggingFace_GenerateImages(t *testing.T) {
	imageBytes := []byte{0x89, 0x50, 0x4e, 0x47}
	var gotPath string
	var gotPayload map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotPayload)
		w.Write(imageBytes)
	}))
	defer srv.Close()

	client := NewHuggingFace(HuggingFaceConfig{APIKey: "key", BaseURL: srv.URL})

	images, err := client.GenerateImages(context.Background(), "a red cube", nil)

	require.NoError(t, err)
	require.Len(t, images, 1)
	require.Equal(t, base64.StdEncoding.EncodeToString(imageBytes), images[0])

	require.Equal(t, "/models/stabilityai/stable-diffusion-3-medium", gotPath)
	require.Equal(t, "a red cube", gotPayload["inputs"])
	params := gotPayload["parameters"].(map[string]any)
	require.Equal(t, float64(28), params["num_inference_steps"])
	require.Equal(t, 7.5, params["guidance_scale"])
}

func TestHuggingFace_GenerateImages_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "model is loading"},
		})
	}))
	defer srv.Close()

	client := NewHuggingFace(HuggingFaceConfig{APIKey: "key", BaseURL: srv.URL})

	_, err := client.GenerateImages(context.Background(), "x", nil)

	var provErr *Error
	require.ErrorAs(t, err, &provErr)
	require.Equal(t, "huggingface", provErr.Provider)
	require.Equal(t, "model is loading", provErr.Message)
}
