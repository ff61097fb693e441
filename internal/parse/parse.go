// Package parse turns raw generator output into the typed shapes the stage
// handlers expect. Models are asked for bare JSON but routinely wrap it in
// prose or markdown fences, so parsing falls back to extracting the outermost
// JSON value before giving up. It never fabricates a structure.
package parse

import (
	"encoding/json"
	"strings"

	"github.com/craftforge/forge-backend/internal/pipeline/domain"
)

// Text validates a free-text artifact. The trimmed text is returned;
// an empty response is never valid.
func Text(op, raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", &domain.EmptyResponseError{Operation: op}
	}
	return s, nil
}

// Object parses raw into v, which must unmarshal from a JSON object.
func Object(op, raw string, v any) error {
	return extractInto(op, raw, '{', '}', v)
}

// Array parses raw into v, which must unmarshal from a JSON array.
func Array(op, raw string, v any) error {
	return extractInto(op, raw, '[', ']', v)
}

func extractInto(op, raw string, open, close byte, v any) error {
	s := strings.TrimSpace(raw)
	if s == "" {
		return &domain.EmptyResponseError{Operation: op}
	}

	// First attempt: the whole response is the JSON value.
	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	// Fallback: slice from the first opening bracket to the last closing one.
	// Covers "Sure, here is the JSON: {...} Hope that helps." and fenced
	// ```json blocks without special-casing either.
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(s[start:end+1]), v); err == nil {
			return nil
		}
	}

	return &domain.MalformedResponseError{Operation: op, Raw: raw}
}
