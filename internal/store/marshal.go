package store

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// marshalBody converts v to JSON TEXT for storage. HTML escaping is off so
// demangled C++ names ("operator<") are stored as written.
func marshalBody(v any) (string, error) {
	if raw, ok := v.(json.RawMessage); ok {
		if !json.Valid(raw) {
			return "", fmt.Errorf("marshal body: invalid JSON")
		}
		return string(raw), nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("marshal body: %w", err)
	}
	// Encoder adds a trailing newline
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
