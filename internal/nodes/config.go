package nodes

// Хелперы чтения конфигурации узла.
//
// Конфигурация приходит как map[string]any из JSON, поэтому типы
// значений не гарантированы: отсутствие и неподходящий тип
// трактуются одинаково — используется значение по умолчанию.

// getString возвращает строковое значение ключа конфигурации.
func getString(cfg map[string]any, key, def string) string {
	if v, ok := cfg[key].(string); ok && v != "" {
		return v
	}
	return def
}

// getFloat возвращает числовое значение ключа конфигурации.
// JSON-числа декодируются как float64.
func getFloat(cfg map[string]any, key string, def float64) float64 {
	switch v := cfg[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

// getInt возвращает целочисленное значение ключа конфигурации.
func getInt(cfg map[string]any, key string, def int) int {
	switch v := cfg[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

// getStringMap возвращает значение-объект со строковыми полями.
func getStringMap(cfg map[string]any, key string) map[string]string {
	raw, ok := cfg[key].(map[string]any)
	if !ok {
		return nil
	}
	result := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			result[k] = s
		}
	}
	return result
}
