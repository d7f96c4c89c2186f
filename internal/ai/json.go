package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseError reports a service reply that could not be parsed into the
// expected structure. Raw holds the complete unparsed text so callers can
// retain it for inspection.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse service response: %s", e.Reason)
}

// ExtractJSON locates the first complete JSON object embedded in free text.
// Reasoning services routinely wrap their JSON in prose or markdown fences,
// so response shape is never trusted at call sites; everything goes through
// this helper.
func ExtractJSON(text string) (json.RawMessage, error) {
	// Strip markdown code fences first; the payload is usually inside.
	if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			text = rest[:end]
		}
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, &ParseError{Raw: text, Reason: "no JSON object found"}
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				candidate := text[start : i+1]
				if !json.Valid([]byte(candidate)) {
					return nil, &ParseError{Raw: text, Reason: "embedded object is not valid JSON"}
				}
				return json.RawMessage(candidate), nil
			}
		}
	}

	return nil, &ParseError{Raw: text, Reason: "unterminated JSON object"}
}

// DecodeResponse extracts the embedded JSON object from text and unmarshals
// it into out.
func DecodeResponse(text string, out any) error {
	raw, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ParseError{Raw: text, Reason: err.Error()}
	}
	return nil
}
