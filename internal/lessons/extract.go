package lessons

import (
	"encoding/json"
	"fmt"
	"strings"

	"lessonforge/internal/llm"
)

// ExtractText pulls the response text out of whichever channel the
// provider populated, in priority order: message content, reasoning,
// tool-call arguments.
func ExtractText(resp *llm.Response) string {
	if s := strings.TrimSpace(string(resp.Content)); s != "" {
		return s
	}
	if s := strings.TrimSpace(resp.Reasoning); s != "" {
		return s
	}
	if s := strings.TrimSpace(resp.ToolArgs); s != "" {
		return s
	}
	return ""
}

// ExtractJSON recovers a JSON object from raw model output. Candidates are
// tried in order: the text as-is, with markdown fences stripped, the first
// balanced {...} object, and a LaTeX-escaping repair of that object.
// A candidate that parses to a JSON-encoded string is unwrapped once.
func ExtractJSON(raw string) (json.RawMessage, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty response text")
	}

	stripped := stripFences(raw)
	balanced := firstBalancedObject(stripped)

	candidates := []string{raw}
	if stripped != raw {
		candidates = append(candidates, stripped)
	}
	if balanced != "" && balanced != stripped {
		candidates = append(candidates, balanced)
	}
	repairBase := stripped
	if balanced != "" {
		repairBase = balanced
	}
	if repaired := repairLaTeXEscapes(repairBase); repaired != repairBase {
		candidates = append(candidates, repaired)
	}

	var lastErr error
	for _, c := range candidates {
		obj, err := parseObject(c)
		if err == nil {
			return obj, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no parseable JSON object in response: %w", lastErr)
}

// parseObject parses s and returns it when it holds a JSON object.
// A value that is itself a string gets one more parse pass, which handles
// double-encoded JSON.
func parseObject(s string) (json.RawMessage, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}

	switch t := v.(type) {
	case map[string]any:
		return json.RawMessage(s), nil
	case string:
		var inner any
		if err := json.Unmarshal([]byte(t), &inner); err != nil {
			return nil, fmt.Errorf("string value is not JSON: %w", err)
		}
		if _, ok := inner.(map[string]any); !ok {
			return nil, fmt.Errorf("nested value is not an object")
		}
		return json.RawMessage(t), nil
	default:
		return nil, fmt.Errorf("parsed value is %T, not an object", v)
	}
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		// Drop the language tag line ("json", "JSON", or empty).
		first := strings.TrimSpace(s[:idx])
		if len(first) <= 8 && !strings.ContainsAny(first, "{}") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// firstBalancedObject returns the first balanced {...} span in s, counting
// brace depth while skipping braces inside quoted strings. Returns "" when
// no balanced object exists.
func firstBalancedObject(s string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
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
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}

// latexMacros are macro names generators commonly under-escape when
// emitting LaTeX inside JSON strings.
var latexMacros = []string{
	"frac", "sqrt", "cdot", "times", "div", "pi", "theta", "alpha", "beta",
	"left", "right", "text", "sum", "int", "lim", "infty", "approx", "neq",
	"leq", "geq", "pm",
}

// repairLaTeXEscapes doubles single backslashes before (, ), [, ] and known
// LaTeX macro names, since a lone backslash there is invalid JSON (or, for
// \f and \t macros like \frac and \times, silently corrupting).
func repairLaTeXEscapes(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}

		// Already escaped: copy the pair untouched.
		if i+1 < len(s) && s[i+1] == '\\' {
			b.WriteByte('\\')
			b.WriteByte('\\')
			i++
			continue
		}

		rest := s[i+1:]
		if len(rest) > 0 && (rest[0] == '(' || rest[0] == ')' || rest[0] == '[' || rest[0] == ']') {
			b.WriteString(`\\`)
			continue
		}
		if macroAt(rest) {
			b.WriteString(`\\`)
			continue
		}

		b.WriteByte(c)
	}
	return b.String()
}

// macroAt reports whether s begins with a known LaTeX macro name followed
// by a non-letter, so "\times" matches but "\timestamp" does not.
func macroAt(s string) bool {
	for _, m := range latexMacros {
		if strings.HasPrefix(s, m) {
			if len(s) == len(m) || !isLetter(s[len(m)]) {
				return true
			}
		}
	}
	return false
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
