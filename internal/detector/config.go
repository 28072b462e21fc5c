package detector

// Helpers for reading typed values out of free-form detector configuration maps.

func configString(config map[string]any, key, fallback string) string {
	if v, ok := config[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

func configInt(config map[string]any, key string, fallback int) int {
	switch v := config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

func configBool(config map[string]any, key string, fallback bool) bool {
	if v, ok := config[key].(bool); ok {
		return v
	}
	return fallback
}

func configStrings(config map[string]any, key string, fallback []string) []string {
	switch v := config[key].(type) {
	case []string:
		if len(v) > 0 {
			return v
		}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
