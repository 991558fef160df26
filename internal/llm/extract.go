package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrUnparseable means no JSON object could be recovered from the model
// output, even after stripping surrounding prose.
var ErrUnparseable = errors.New("model output contains no parseable JSON object")

// ExtractJSON pulls a JSON object out of raw model output. The fast path
// is a direct parse of the trimmed text. If the model wrapped the object
// in explanatory prose, the fallback takes the substring from the first
// '{' to its balanced closing brace. No further guessing beyond that.
func ExtractJSON(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if isJSONObject(candidate) {
		return candidate, nil
	}

	start := strings.IndexByte(candidate, '{')
	if start < 0 {
		return "", ErrUnparseable
	}
	end := matchBrace(candidate, start)
	if end < 0 {
		return "", ErrUnparseable
	}
	candidate = candidate[start : end+1]
	if !isJSONObject(candidate) {
		return "", ErrUnparseable
	}
	return candidate, nil
}

func isJSONObject(s string) bool {
	if !strings.HasPrefix(s, "{") {
		return false
	}
	var probe map[string]json.RawMessage
	return json.Unmarshal([]byte(s), &probe) == nil
}

// matchBrace returns the index of the brace closing the one at start,
// skipping braces inside JSON strings. -1 if unbalanced.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
