package qualify

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseError means the model's reply contained no usable JSON object. Raw
// keeps the offending fragment for the run report and logs.
type ParseError struct {
	Raw string
}

func (e *ParseError) Error() string {
	raw := e.Raw
	if len(raw) > 200 {
		raw = raw[:200] + "..."
	}
	return fmt.Sprintf("no parseable JSON object in model reply: %q", raw)
}

// extractJSON pulls the largest balanced JSON object out of a model reply.
// Models wrap JSON in markdown fences or chat around it; this scans for
// balanced braces outside string literals instead of trusting the whole
// reply to be JSON.
func extractJSON(reply string) (string, error) {
	s := stripFences(reply)

	best := ""
	depth := 0
	start := -1
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					candidate := s[start : i+1]
					if len(candidate) > len(best) {
						best = candidate
					}
				}
			}
		}
	}
	if best == "" {
		return "", &ParseError{Raw: reply}
	}
	return best, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		// Drop a language tag like "json" on the fence line.
		first := strings.TrimSpace(s[:idx])
		if len(first) <= 10 && !strings.ContainsAny(first, "{}") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// DecodeReply extracts and unmarshals the model reply into out.
func DecodeReply(reply string, out any) error {
	fragment, err := extractJSON(reply)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(fragment), out); err != nil {
		return &ParseError{Raw: fragment}
	}
	return nil
}
