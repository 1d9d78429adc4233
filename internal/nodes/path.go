package nodes

import "strings"

// Lookup возвращает значение по точечному пути внутри полей item,
// например "response.data.items". Отсутствие любого сегмента
// или попытка пройти сквозь не-объект дают ok == false.
func Lookup(fields map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	var current any = fields
	for _, segment := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
