// Package jsonpath extracts transcript text from JSON service responses
// using a dot-separated path with optional array indexes, e.g.
// "results[0].alternatives[0].transcript".
package jsonpath

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Extract pulls a text value out of a JSON body. The configured path is
// tried first; when it yields nothing the common "text" field and then any
// non-empty string field are used as fallbacks.
func Extract(body []byte, path string) string {
	var root interface{}
	if err := json.Unmarshal(body, &root); err != nil {
		return ""
	}

	if path != "" {
		if v, ok := Lookup(root, path); ok {
			return v
		}
	}

	m, ok := root.(map[string]interface{})
	if !ok {
		return ""
	}
	if v, exists := m["text"]; exists {
		if s, ok := stringify(v); ok {
			return s
		}
	}
	for _, val := range m {
		if s, ok := val.(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// Lookup walks a decoded JSON structure along a dot-separated path.
func Lookup(root interface{}, path string) (string, bool) {
	if path == "" {
		return "", false
	}
	cur := root
	for _, token := range strings.Split(path, ".") {
		key, idxs, err := splitToken(token)
		if err != nil {
			return "", false
		}
		if key != "" {
			m, ok := cur.(map[string]interface{})
			if !ok {
				return "", false
			}
			next, exists := m[key]
			if !exists {
				return "", false
			}
			cur = next
		}
		for _, idx := range idxs {
			arr, ok := cur.([]interface{})
			if !ok {
				return "", false
			}
			if idx < 0 || idx >= len(arr) {
				return "", false
			}
			cur = arr[idx]
		}
	}
	return stringify(cur)
}

func stringify(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case float64:
		if s == float64(int64(s)) {
			return fmt.Sprintf("%d", int64(s)), true
		}
		return fmt.Sprintf("%v", s), true
	case bool:
		return fmt.Sprintf("%v", s), true
	}
	return "", false
}

// splitToken parses a token like "foo[0][1]", "[2]" or "bar" into its base
// key and index list.
func splitToken(token string) (string, []int, error) {
	if token == "" {
		return "", nil, fmt.Errorf("empty token")
	}
	br := strings.Index(token, "[")
	if br == -1 {
		return token, nil, nil
	}
	key := token[:br]
	rest := token[br:]
	var idxs []int
	for len(rest) > 0 {
		if !strings.HasPrefix(rest, "[") {
			return "", nil, fmt.Errorf("invalid index syntax in %s", token)
		}
		closePos := strings.Index(rest, "]")
		if closePos == -1 {
			return "", nil, fmt.Errorf("missing closing ] in %s", token)
		}
		numStr := rest[1:closePos]
		if numStr == "" {
			return "", nil, fmt.Errorf("empty index in %s", token)
		}
		n, err := strconv.Atoi(numStr)
		if err != nil {
			return "", nil, fmt.Errorf("invalid index '%s' in %s", numStr, token)
		}
		idxs = append(idxs, n)
		rest = rest[closePos+1:]
	}
	return key, idxs, nil
}
