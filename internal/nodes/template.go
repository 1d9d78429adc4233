package nodes

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

// placeholderRe — плейсхолдер вида {{fieldName}}.
// Внутри скобок допускается только имя поля верхнего уровня.
var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Interpolate подставляет значения полей item в шаблон.
// Плейсхолдеры без соответствующего поля остаются в тексте как есть,
// чтобы по результату было видно, что именно не подставилось.
func Interpolate(template string, fields map[string]any) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		key := placeholderRe.FindStringSubmatch(match)[1]
		value, ok := fields[key]
		if !ok || value == nil {
			return match
		}
		return stringify(value)
	})
}

// stringify переводит значение поля в строку для подстановки.
// Составные значения сериализуются в JSON.
func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}
