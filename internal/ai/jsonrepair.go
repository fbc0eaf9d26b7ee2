package ai

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNotJSON is returned when no brace-delimited object can be recovered.
var ErrNotJSON = errors.New("response contains no JSON object")

// DecodeLenient parses a model response into v. It first tries the raw
// text, then strips markdown code fences and re-slices from the first '{'
// to the last '}' before retrying. Anything beyond that is not repaired;
// callers fall back to treating the response as plain text.
func DecodeLenient(raw string, v any) error {
	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}
	cleaned, err := ExtractObject(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(cleaned), v)
}

// ExtractObject strips ```json fences and leading/trailing prose around a
// brace-delimited object.
func ExtractObject(raw string) (string, error) {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	first := strings.IndexByte(cleaned, '{')
	last := strings.LastIndexByte(cleaned, '}')
	if first == -1 || last == -1 || last < first {
		return "", ErrNotJSON
	}
	return cleaned[first : last+1], nil
}
