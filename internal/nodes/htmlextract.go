package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/engine"
)

// HTMLExtract — узел извлечения данных из HTML.
//
// Конфигурация:
//
//	{
//	    "selector": "h1.title",
//	    "attribute": "text",            // "text" | "html" | имя атрибута
//	    "extractProperty": "extracted"  // имя выходного поля
//	}
//
// HTML берётся из поля "html" входного item (обычно результат узла
// httpRequest). Пустой или отсутствующий HTML даёт пустое извлечение,
// а не ошибку.
type HTMLExtract struct{}

// NewHTMLExtract создаёт узел извлечения из HTML.
func NewHTMLExtract() *HTMLExtract {
	return &HTMLExtract{}
}

// Type возвращает тип узла.
func (e *HTMLExtract) Type() string {
	return domain.NodeTypeHTMLExtract
}

// Execute применяет селектор к HTML каждого item.
func (e *HTMLExtract) Execute(ctx context.Context, req *engine.Request) ([]domain.Item, error) {
	selector := getString(req.Node.Config, "selector", "")
	if selector == "" {
		return nil, fmt.Errorf("%w: selector is required", ErrInvalidConfig)
	}
	attribute := getString(req.Node.Config, "attribute", "text")
	outputField := getString(req.Node.Config, "extractProperty", "extracted")

	results := make([]domain.Item, 0, len(req.Items))
	for _, item := range req.Items {
		html, _ := item.Fields["html"].(string)

		extracted, err := extract(html, selector, attribute)
		if err != nil {
			return nil, err
		}

		fields := item.CloneFields()
		fields[outputField] = extracted
		results = append(results, domain.WithFields(fields))
	}
	return results, nil
}

// extract применяет селектор к документу и возвращает значение
// по выбранному режиму извлечения.
func extract(html, selector, attribute string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	sel := doc.Find(selector)
	switch attribute {
	case "text":
		return strings.TrimSpace(sel.Text()), nil
	case "html":
		inner, err := sel.Html()
		if err != nil {
			return "", fmt.Errorf("render html: %w", err)
		}
		return inner, nil
	default:
		return sel.AttrOr(attribute, ""), nil
	}
}
