package output

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Select applies a gjson path to a JSON document and returns the selected
// JSON. JSONPath-style "$." prefixes are accepted, and a bare "$" selects
// the whole document.
func Select(doc []byte, path string) ([]byte, error) {
	path = normalizePath(path)
	if path == "" {
		return doc, nil
	}
	if !gjson.ValidBytes(doc) {
		return nil, fmt.Errorf("query %q: input is not valid JSON", path)
	}
	result := gjson.GetBytes(doc, path)
	if !result.Exists() {
		return nil, fmt.Errorf("query %q matched nothing", path)
	}
	// Raw keeps strings quoted so every format receives valid JSON.
	return []byte(result.Raw), nil
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	switch {
	case path == "$":
		return "@this"
	case strings.HasPrefix(path, "$."):
		return path[2:]
	}
	return path
}
