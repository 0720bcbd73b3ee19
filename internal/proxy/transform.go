package proxy

import (
	json "github.com/goccy/go-json"
)

// WrapList returns a Transform that always yields {key: [...]}. A bare array
// is wrapped; an object already carrying key is unwrapped first; any other
// object is wrapped as-is.
func WrapList(key string) func([]byte) ([]byte, error) {
	return func(body []byte) ([]byte, error) {
		var decoded any
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil, err
		}
		if obj, ok := decoded.(map[string]any); ok {
			if inner, ok := obj[key]; ok && inner != nil {
				decoded = inner
			}
		}
		return json.Marshal(map[string]any{key: decoded})
	}
}
