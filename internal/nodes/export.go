package nodes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/engine"
)

// defaultExportDir — каталог экспорта по умолчанию.
const defaultExportDir = "./exports"

// ExportDocument — узел экспорта слайд-дека в Markdown.
//
// Берёт ТОЛЬКО первый item батча: дек — единый документ,
// а не по документу на item. Ожидаемые поля item:
//
//	{
//	    "title": "Quarterly review",
//	    "slides": [
//	        {"title": "Intro", "bullets": ["a", "b"]},
//	        {"title": "Detail", "content": "free text"}
//	    ]
//	}
//
// Файл пишется в каталог экспорта с именем export_<unix_ms>.md.
// Выход — один item с полями documentPath и documentFile поверх
// полей первого входного item.
type ExportDocument struct {
	dir string
}

// NewExportDocument создаёт узел экспорта документов.
func NewExportDocument(dir string) *ExportDocument {
	if dir == "" {
		dir = defaultExportDir
	}
	return &ExportDocument{dir: dir}
}

// Type возвращает тип узла.
func (e *ExportDocument) Type() string {
	return domain.NodeTypeExportDocument
}

// Execute собирает и записывает документ.
// Пустой входной батч пропускается без ошибки.
func (e *ExportDocument) Execute(ctx context.Context, req *engine.Request) ([]domain.Item, error) {
	if len(req.Items) == 0 {
		return req.Items, nil
	}
	first := req.Items[0]

	content := renderDeck(first.Fields)

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create export dir: %v", ErrExport, err)
	}

	name := fmt.Sprintf("export_%d.md", time.Now().UnixMilli())
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("%w: write %s: %v", ErrExport, path, err)
	}

	fields := first.CloneFields()
	fields["documentPath"] = path
	fields["documentFile"] = name
	return []domain.Item{domain.WithFields(fields)}, nil
}

// renderDeck превращает поля item в Markdown-документ со слайдами,
// разделёнными горизонтальной чертой.
func renderDeck(fields map[string]any) string {
	var b strings.Builder

	title, _ := fields["title"].(string)
	if title == "" {
		title = "Presentation"
	}
	b.WriteString("# " + title + "\n")

	slides, _ := fields["slides"].([]any)
	for _, raw := range slides {
		slide, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		b.WriteString("\n---\n\n")
		if slideTitle, _ := slide["title"].(string); slideTitle != "" {
			b.WriteString("## " + slideTitle + "\n")
		}

		if bullets, ok := slide["bullets"].([]any); ok {
			b.WriteString("\n")
			for _, bullet := range bullets {
				b.WriteString("- " + stringify(bullet) + "\n")
			}
			continue
		}
		if content, _ := slide["content"].(string); content != "" {
			b.WriteString("\n" + content + "\n")
		}
	}

	return b.String()
}
