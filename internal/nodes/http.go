package nodes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/engine"
)

const (
	// defaultHTTPTimeout — таймаут одного исходящего запроса.
	defaultHTTPTimeout = 30 * time.Second

	// maxResponseBody — лимит на размер тела ответа.
	maxResponseBody = 10 * 1024 * 1024 // 10 MB
)

// HTTPRequest — узел исходящего HTTP-запроса.
//
// Конфигурация:
//
//	{
//	    "url": "https://example.com/{{slug}}",
//	    "method": "GET",
//	    "headers": {"Accept": "text/html"}
//	}
//
// URL поддерживает плейсхолдеры {{field}} из полей входного item.
// Запрос выполняется для каждого item, ответ вливается в его поля:
// statusCode, html (тело как строка), headers.
type HTTPRequest struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTPRequest создаёт узел HTTP-запроса.
func NewHTTPRequest(client *http.Client, timeout time.Duration) *HTTPRequest {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTPRequest{client: client, timeout: timeout}
}

// Type возвращает тип узла.
func (e *HTTPRequest) Type() string {
	return domain.NodeTypeHTTPRequest
}

// Execute выполняет HTTP-запрос для каждого входного item.
// Транспортная ошибка или таймаут любого запроса фейлит весь узел:
// частично выполненный батч не возвращается.
func (e *HTTPRequest) Execute(ctx context.Context, req *engine.Request) ([]domain.Item, error) {
	urlTemplate := getString(req.Node.Config, "url", "")
	if urlTemplate == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidConfig)
	}
	method := strings.ToUpper(getString(req.Node.Config, "method", http.MethodGet))
	headers := getStringMap(req.Node.Config, "headers")

	results := make([]domain.Item, 0, len(req.Items))
	for _, item := range req.Items {
		url := Interpolate(urlTemplate, item.Fields)

		fields, err := e.fetch(ctx, method, url, headers)
		if err != nil {
			return nil, err
		}

		merged := item.CloneFields()
		for k, v := range fields {
			merged[k] = v
		}
		results = append(results, domain.WithFields(merged))
	}
	return results, nil
}

// fetch выполняет один запрос и возвращает поля ответа.
func (e *HTTPRequest) fetch(ctx context.Context, method, url string, headers map[string]string) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrInvalidConfig, method, url, err)
	}
	for key, val := range headers {
		httpReq.Header.Set(key, val)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, method, url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}

	respHeaders := make(map[string]string, len(resp.Header))
	for key := range resp.Header {
		respHeaders[key] = resp.Header.Get(key)
	}

	return map[string]any{
		"statusCode": resp.StatusCode,
		"html":       string(body),
		"headers":    respHeaders,
	}, nil
}
