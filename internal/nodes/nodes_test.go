package nodes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/engine"
)

// fakeCredentials — хранилище ключей в памяти для тестов.
type fakeCredentials struct {
	secrets map[string]string // owner + "/" + key → value
}

func (f *fakeCredentials) GetSecret(_ context.Context, owner, key string) (string, error) {
	if v, ok := f.secrets[owner+"/"+key]; ok {
		return v, nil
	}
	return "", errors.New("not found")
}

func (f *fakeCredentials) HasSecret(_ context.Context, owner, key string) (bool, error) {
	_, ok := f.secrets[owner+"/"+key]
	return ok, nil
}

func nodeRequest(nodeType string, config map[string]any, items []domain.Item) *engine.Request {
	return &engine.Request{
		Node: &domain.Node{
			ID:     "n1",
			Type:   nodeType,
			Config: config,
		},
		Items:     items,
		Principal: "alice",
	}
}

func itemsWith(fields ...map[string]any) []domain.Item {
	items := make([]domain.Item, 0, len(fields))
	for _, f := range fields {
		items = append(items, domain.WithFields(f))
	}
	return items
}

// --- ManualTrigger ---

func TestManualTrigger_PassesItemsThrough(t *testing.T) {
	e := NewManualTrigger()
	in := itemsWith(map[string]any{"payload": "x"})

	out, err := e.Execute(context.Background(), nodeRequest(e.Type(), nil, in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Fields["payload"] != "x" {
		t.Errorf("trigger should pass items through unchanged, got %v", out)
	}
}

// --- HTTPRequest ---

func TestHTTPRequest_MergesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pages/go" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("X-Test", "yes")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("<html>body</html>"))
	}))
	defer srv.Close()

	e := NewHTTPRequest(srv.Client(), 0)
	cfg := map[string]any{"url": srv.URL + "/pages/{{slug}}"}
	in := itemsWith(map[string]any{"slug": "go", "kept": "old"})

	out, err := e.Execute(context.Background(), nodeRequest(e.Type(), cfg, in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 item, got %d", len(out))
	}

	fields := out[0].Fields
	if fields["statusCode"] != http.StatusCreated {
		t.Errorf("statusCode = %v", fields["statusCode"])
	}
	if fields["html"] != "<html>body</html>" {
		t.Errorf("html = %v", fields["html"])
	}
	if fields["kept"] != "old" {
		t.Error("existing fields should be preserved")
	}
	headers, ok := fields["headers"].(map[string]string)
	if !ok || headers["X-Test"] != "yes" {
		t.Errorf("headers = %v", fields["headers"])
	}
}

func TestHTTPRequest_TransportErrorFailsNode(t *testing.T) {
	e := NewHTTPRequest(&http.Client{}, 0)
	cfg := map[string]any{"url": "http://127.0.0.1:1/unreachable"}

	_, err := e.Execute(context.Background(), nodeRequest(e.Type(), cfg, itemsWith(map[string]any{})))
	if !errors.Is(err, ErrTransport) {
		t.Errorf("expected ErrTransport, got %v", err)
	}
}

func TestHTTPRequest_MissingURL(t *testing.T) {
	e := NewHTTPRequest(nil, 0)

	_, err := e.Execute(context.Background(), nodeRequest(e.Type(), map[string]any{}, nil))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

// --- HTMLExtract ---

func TestHTMLExtract(t *testing.T) {
	html := `<html><body><h1 class="t">Title</h1><a href="/next">link</a></body></html>`

	tests := []struct {
		name     string
		config   map[string]any
		expected string
		field    string
	}{
		{
			name:     "text extraction",
			config:   map[string]any{"selector": "h1.t"},
			expected: "Title",
			field:    "extracted",
		},
		{
			name:     "attribute extraction",
			config:   map[string]any{"selector": "a", "attribute": "href", "extractProperty": "link"},
			expected: "/next",
			field:    "link",
		},
		{
			name:     "no match yields empty string",
			config:   map[string]any{"selector": ".missing"},
			expected: "",
			field:    "extracted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewHTMLExtract()
			in := itemsWith(map[string]any{"html": html})

			out, err := e.Execute(context.Background(), nodeRequest(e.Type(), tt.config, in))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out[0].Fields[tt.field] != tt.expected {
				t.Errorf("got %q, want %q", out[0].Fields[tt.field], tt.expected)
			}
		})
	}
}

func TestHTMLExtract_EmptyHTML(t *testing.T) {
	e := NewHTMLExtract()
	cfg := map[string]any{"selector": "h1"}
	in := itemsWith(map[string]any{"other": 1})

	out, err := e.Execute(context.Background(), nodeRequest(e.Type(), cfg, in))
	if err != nil {
		t.Fatalf("missing html field should not fail the node: %v", err)
	}
	if out[0].Fields["extracted"] != "" {
		t.Errorf("expected empty extraction, got %v", out[0].Fields["extracted"])
	}
}

// --- AIText ---

func TestAIText_CredentialCheckedBeforeNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	e := NewAIText(&fakeCredentials{}, ProviderSettings{OpenRouterBaseURL: srv.URL}, srv.Client())
	cfg := map[string]any{"provider": "openrouter", "model": "m"}

	_, err := e.Execute(context.Background(), nodeRequest(e.Type(), cfg, itemsWith(map[string]any{})))
	if !errors.Is(err, ErrCredentialMissing) {
		t.Fatalf("expected ErrCredentialMissing, got %v", err)
	}
	if called {
		t.Error("provider must not be called when credential is missing")
	}
}

func TestAIText_InterpolatesPrompt(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Write([]byte(`{"choices":[{"message":{"content":"summary"}}]}`))
	}))
	defer srv.Close()

	creds := &fakeCredentials{secrets: map[string]string{
		"alice/" + domain.CredentialOpenRouter: "sk-test",
	}}
	e := NewAIText(creds, ProviderSettings{OpenRouterBaseURL: srv.URL}, srv.Client())
	cfg := map[string]any{
		"provider":           "openrouter",
		"model":              "m",
		"userPromptTemplate": "Summarize: {{extracted}}",
		"outputField":        "summary",
	}
	in := itemsWith(map[string]any{"extracted": "some text"})

	out, err := e.Execute(context.Background(), nodeRequest(e.Type(), cfg, in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0].Fields["summary"] != "summary" {
		t.Errorf("summary = %v", out[0].Fields["summary"])
	}
	if !strings.Contains(gotBody, "Summarize: some text") {
		t.Errorf("prompt not interpolated: %s", gotBody)
	}
}

func TestAIText_UnknownProvider(t *testing.T) {
	e := NewAIText(&fakeCredentials{}, ProviderSettings{}, nil)
	cfg := map[string]any{"provider": "acme", "model": "m"}

	_, err := e.Execute(context.Background(), nodeRequest(e.Type(), cfg, nil))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

// --- ImageGeneration ---

func TestImageGeneration_MissingCredential(t *testing.T) {
	e := NewImageGeneration(&fakeCredentials{}, ProviderSettings{}, nil)
	cfg := map[string]any{"promptTemplate": "a cat"}

	_, err := e.Execute(context.Background(), nodeRequest(e.Type(), cfg, itemsWith(map[string]any{})))
	if !errors.Is(err, ErrCredentialMissing) {
		t.Errorf("expected ErrCredentialMissing, got %v", err)
	}
}

// --- ExportDocument ---

func TestExportDocument_WritesFirstItemOnly(t *testing.T) {
	dir := t.TempDir()
	e := NewExportDocument(dir)

	in := itemsWith(
		map[string]any{
			"title": "Report",
			"slides": []any{
				map[string]any{"title": "Intro", "bullets": []any{"one", "two"}},
				map[string]any{"title": "Body", "content": "free text"},
			},
		},
		map[string]any{"title": "Ignored"},
	)

	out, err := e.Execute(context.Background(), nodeRequest(e.Type(), nil, in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected single output item, got %d", len(out))
	}

	name, _ := out[0].Fields["documentFile"].(string)
	if !strings.HasPrefix(name, "export_") || !strings.HasSuffix(name, ".md") {
		t.Errorf("unexpected file name %q", name)
	}

	content, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read exported file: %v", err)
	}
	text := string(content)
	for _, want := range []string{"# Report", "## Intro", "- one", "- two", "## Body", "free text"} {
		if !strings.Contains(text, want) {
			t.Errorf("document missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Ignored") {
		t.Error("only the first item should be exported")
	}
}

func TestExportDocument_EmptyBatch(t *testing.T) {
	e := NewExportDocument(t.TempDir())

	out, err := e.Execute(context.Background(), nodeRequest(e.Type(), nil, nil))
	if err != nil {
		t.Fatalf("empty batch should not fail: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected no output items, got %d", len(out))
	}
}

// --- ForEach ---

func TestForEach(t *testing.T) {
	e := NewForEach()

	tests := []struct {
		name     string
		fields   map[string]any
		path     string
		expected int
	}{
		{
			name:     "scalar elements",
			fields:   map[string]any{"list": []any{float64(1), float64(2), float64(3)}},
			path:     "list",
			expected: 3,
		},
		{
			name:     "nested path",
			fields:   map[string]any{"response": map[string]any{"items": []any{map[string]any{"id": 1}}}},
			path:     "response.items",
			expected: 1,
		},
		{
			name:     "missing path yields zero items",
			fields:   map[string]any{"other": 1},
			path:     "list",
			expected: 0,
		},
		{
			name:     "non-array value yields zero items",
			fields:   map[string]any{"list": "not an array"},
			path:     "list",
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := map[string]any{"arrayPath": tt.path}
			out, err := e.Execute(context.Background(), nodeRequest(e.Type(), cfg, itemsWith(tt.fields)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(out) != tt.expected {
				t.Errorf("got %d items, want %d", len(out), tt.expected)
			}
		})
	}
}

func TestForEach_ObjectElementsBecomeFields(t *testing.T) {
	e := NewForEach()
	cfg := map[string]any{"arrayPath": "users"}
	in := itemsWith(map[string]any{
		"users": []any{map[string]any{"name": "bob"}},
	})

	out, err := e.Execute(context.Background(), nodeRequest(e.Type(), cfg, in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0].Fields["name"] != "bob" {
		t.Errorf("object element should become the item fields, got %v", out[0].Fields)
	}
}

func TestForEach_ScalarElementsWrapped(t *testing.T) {
	e := NewForEach()
	cfg := map[string]any{"arrayPath": "list"}
	in := itemsWith(map[string]any{"list": []any{"a"}})

	out, err := e.Execute(context.Background(), nodeRequest(e.Type(), cfg, in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0].Fields["value"] != "a" {
		t.Errorf("scalar element should be wrapped in value, got %v", out[0].Fields)
	}
}

// --- If ---

func TestIf_FiltersItems(t *testing.T) {
	e := NewIf(nil)
	cfg := map[string]any{"expression": "count > 2"}
	in := itemsWith(
		map[string]any{"count": 1},
		map[string]any{"count": 3},
		map[string]any{"count": 5},
	)

	out, err := e.Execute(context.Background(), nodeRequest(e.Type(), cfg, in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Errorf("expected 2 items, got %d", len(out))
	}
}

func TestIf_EvaluationErrorExcludesItem(t *testing.T) {
	e := NewIf(nil)
	// Поле missing отсутствует: сравнение nil > 2 падает в рантайме.
	cfg := map[string]any{"expression": "missing > 2"}
	in := itemsWith(map[string]any{"count": 3})

	out, err := e.Execute(context.Background(), nodeRequest(e.Type(), cfg, in))
	if err != nil {
		t.Fatalf("evaluation error must not fail the node: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected item excluded, got %d items", len(out))
	}
}

func TestIf_NonBoolResultExcludesItem(t *testing.T) {
	e := NewIf(nil)
	cfg := map[string]any{"expression": `"a string"`}
	in := itemsWith(map[string]any{})

	out, err := e.Execute(context.Background(), nodeRequest(e.Type(), cfg, in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("non-bool result should exclude the item, got %d items", len(out))
	}
}

func TestIf_FieldNamesShadowBuiltins(t *testing.T) {
	e := NewIf(nil)
	// count, len и type — builtin-функции expr; поля item с такими
	// именами должны перекрывать их, а не ломать компиляцию.
	cfg := map[string]any{"expression": `count > 3 && len == 2 && type == "page"`}
	in := itemsWith(map[string]any{
		"count": float64(10),
		"len":   float64(2),
		"type":  "page",
	})

	out, err := e.Execute(context.Background(), nodeRequest(e.Type(), cfg, in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Errorf("expected the item to pass, got %d items", len(out))
	}
}

// --- Code ---

func TestCode_MapResultBecomesFields(t *testing.T) {
	e := NewCode(nil)
	cfg := map[string]any{"code": `{total: price * count}`}
	in := itemsWith(map[string]any{"price": float64(5), "count": float64(3)})

	out, err := e.Execute(context.Background(), nodeRequest(e.Type(), cfg, in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0].Fields["total"] != float64(15) {
		t.Errorf("total = %v", out[0].Fields["total"])
	}
}

func TestCode_ScalarResultWrapped(t *testing.T) {
	e := NewCode(nil)
	cfg := map[string]any{"code": `count + 1`}
	in := itemsWith(map[string]any{"count": float64(1)})

	out, err := e.Execute(context.Background(), nodeRequest(e.Type(), cfg, in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0].Fields["value"] != float64(2) {
		t.Errorf("value = %v", out[0].Fields["value"])
	}
}

func TestCode_EvaluationErrorPassesItemThrough(t *testing.T) {
	e := NewCode(nil)
	cfg := map[string]any{"code": `missing.deeper`}
	in := itemsWith(map[string]any{"kept": "yes"})

	out, err := e.Execute(context.Background(), nodeRequest(e.Type(), cfg, in))
	if err != nil {
		t.Fatalf("evaluation error must not fail the node: %v", err)
	}
	if len(out) != 1 || out[0].Fields["kept"] != "yes" {
		t.Errorf("item should pass through untouched, got %v", out)
	}
}

// --- Registry ---

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry(Deps{Credentials: &fakeCredentials{}})

	expected := []string{
		domain.NodeTypeManualTrigger,
		domain.NodeTypeHTTPRequest,
		domain.NodeTypeHTMLExtract,
		domain.NodeTypeAIText,
		domain.NodeTypeImageGeneration,
		domain.NodeTypeExportDocument,
		domain.NodeTypeForEach,
		domain.NodeTypeIf,
		domain.NodeTypeCode,
	}
	for _, nodeType := range expected {
		if !r.Has(nodeType) {
			t.Errorf("registry should contain %s", nodeType)
		}
	}

	if _, ok := r.Get("unknown"); ok {
		t.Error("unknown type should not be found")
	}
}
