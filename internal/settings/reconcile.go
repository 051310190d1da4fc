package settings

// Reconcile deep-merges stored over defaults. Stored values win, nested objects
// merge key by key, lists are replaced whole and a stored null counts as absent.
// Neither input is modified.
func Reconcile(defaults, stored map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(stored))
	for key, value := range defaults {
		merged[key] = clone(value)
	}
	for key, value := range stored {
		if value == nil {
			if _, ok := merged[key]; !ok {
				merged[key] = nil
			}
			continue
		}
		storedObj, storedIsObj := value.(map[string]any)
		defaultObj, defaultIsObj := defaults[key].(map[string]any)
		if storedIsObj && defaultIsObj {
			merged[key] = Reconcile(defaultObj, storedObj)
			continue
		}
		merged[key] = clone(value)
	}
	return merged
}

func clone(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = clone(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = clone(item)
		}
		return out
	default:
		return v
	}
}
