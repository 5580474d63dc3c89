// Package arbiter turns raw arbitration responses into validated glossary
// actions. Decoding is tolerant: the action payload is extracted from
// whatever prose or fencing surrounds it. Validation is total: a batch is
// either accepted in full or rejected in full, so a response is never
// partially applied.
package arbiter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStructural indicates the response cannot be parsed into the
	// action grammar at all.
	ErrStructural = errors.New("arbitration response is not structurally valid")

	// ErrReference indicates an action references an id outside the
	// conflict set it was generated for.
	ErrReference = errors.New("arbitration action references an unknown entry id")

	// ErrType indicates an action field carries the wrong type.
	ErrType = errors.New("arbitration action field has the wrong type")
)

// Extract pulls the first JSON object or array out of free text and
// normalizes it to a slice of raw action objects. A single object becomes a
// one-element slice. Markdown code fences and surrounding prose are
// tolerated; trailing text after the JSON value is ignored.
func Extract(raw string) ([]json.RawMessage, error) {
	payload, err := locateJSON(raw)
	if err != nil {
		return nil, err
	}

	if payload[0] == '[' {
		return extractArray(payload)
	}
	return extractObject(payload)
}

// locateJSON finds the start of the first JSON object or array in the text.
func locateJSON(raw string) (string, error) {
	cleaned := stripFences(raw)
	idx := strings.IndexAny(cleaned, "[{")
	if idx < 0 {
		return "", fmt.Errorf("%w: no JSON object or array found", ErrStructural)
	}
	return cleaned[idx:], nil
}

// stripFences removes markdown code fences so fenced payloads decode like
// bare ones.
func stripFences(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```json", "\n")
	return strings.ReplaceAll(cleaned, "```", "\n")
}

func extractArray(payload string) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := decodeOne(payload, &items); err != nil {
		return nil, err
	}
	for _, item := range items {
		if !isObject(item) {
			return nil, fmt.Errorf("%w: array element is not an object", ErrStructural)
		}
	}
	return items, nil
}

func extractObject(payload string) ([]json.RawMessage, error) {
	var obj json.RawMessage
	if err := decodeOne(payload, &obj); err != nil {
		return nil, err
	}
	if !isObject(obj) {
		return nil, fmt.Errorf("%w: payload is not an object", ErrStructural)
	}
	return []json.RawMessage{obj}, nil
}

// decodeOne decodes a single JSON value from the head of the payload,
// tolerating trailing text.
func decodeOne(payload string, out any) error {
	dec := json.NewDecoder(strings.NewReader(payload))
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrStructural, err)
	}
	return nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "{")
}
