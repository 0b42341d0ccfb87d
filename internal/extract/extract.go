// Package extract recovers structured values from free-form model output.
// Model responses routinely arrive wrapped in markdown fences, padded with
// commentary, or truncated mid-object; every function here is best-effort
// and never panics on malformed input.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrEmpty is returned when the input contains nothing to parse.
var ErrEmpty = errors.New("empty response")

// ParseError reports that no JSON object could be recovered. Raw always
// preserves the original input verbatim so callers can surface it.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not extract JSON: %s", e.Reason)
}

// JSON extracts a JSON object from model output text. It tries, in order:
// a strict parse of the fence-stripped text, a strict parse of the first
// balanced {...} span, and a mechanical repair of the most common model
// failure shapes (trailing commas, truncated tail, unclosed brackets).
// Empty input short-circuits to ErrEmpty without invoking the parser.
func JSON(text string) (map[string]any, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmpty
	}

	candidate := stripFence(trimmed)

	if obj, err := parseObject(candidate); err == nil {
		return obj, nil
	}

	// Leading or trailing commentary around the object.
	if span, ok := findObject(candidate); ok {
		if obj, err := parseObject(span); err == nil {
			return obj, nil
		}
		// The span itself may be truncated; repair operates on it rather
		// than on the commentary-laden whole.
		candidate = span
	}

	if obj, err := parseObject(repair(candidate)); err == nil {
		return obj, nil
	}

	return nil, &ParseError{Reason: "no parseable JSON object found", Raw: text}
}

// parseObject strict-parses s as a single JSON object.
func parseObject(s string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("not a JSON object")
	}
	return obj, nil
}

// stripFence removes a markdown code fence wrapping the whole text, keeping
// the inner payload. A language tag on the opening fence is discarded.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	end := strings.Index(s[3:], "```")
	if end == -1 {
		// Unterminated fence: drop the opening line only.
		if nl := strings.Index(s, "\n"); nl != -1 {
			return strings.TrimSpace(s[nl+1:])
		}
		return s
	}
	content := s[3 : 3+end]
	if nl := strings.Index(content, "\n"); nl != -1 {
		content = content[nl+1:]
	}
	return strings.TrimSpace(content)
}

// findObject returns the span from the first '{' to its matching close
// brace, tracking strings and escapes so braces inside values don't count.
func findObject(input string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(input); i++ {
		ch := input[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch ch {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				return input[start : i+1], true
			}
		}
	}
	// Unbalanced: hand the open tail to the repair pass.
	if start >= 0 {
		return input[start:], true
	}
	return "", false
}

var (
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
	// A dangling tail after the last complete member: a comma followed by a
	// partial key, or a key whose value never arrived.
	danglingTail = regexp.MustCompile(`,\s*"[^"]*"?\s*(:\s*("[^"]*"?)?)?$`)
)

// repair attempts a mechanical salvage of a truncated or sloppy JSON object:
// trailing commas are removed, an incomplete trailing key/value fragment is
// stripped, and missing closing brackets are appended in nesting order.
// The fragment strip is a heuristic and can drop a legitimate final key that
// merely looks incomplete; callers keep the raw text for that reason.
func repair(s string) string {
	s = trailingComma.ReplaceAllString(s, "$1")

	open := openBrackets(s)
	if len(open) == 0 {
		return s
	}

	s = strings.TrimRight(s, " \t\r\n")
	// A string value cut off mid-way leaves us inside a quote; close it so
	// the dangling-tail strip can see the fragment.
	if insideString(s) {
		s += `"`
	}
	// The key/value fragment strip only makes sense directly inside an
	// object; a trailing quoted string inside an array is a complete
	// element, not a partial pair.
	if open[len(open)-1] == '{' {
		s = danglingTail.ReplaceAllString(s, "")
	}
	s = strings.TrimRight(s, " \t\r\n,")

	for i := len(open) - 1; i >= 0; i-- {
		if open[i] == '{' {
			s += "}"
		} else {
			s += "]"
		}
	}
	return s
}

// openBrackets returns the stack of unclosed '{' and '[' in s, outermost
// first, ignoring brackets inside string values.
func openBrackets(s string) []byte {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch ch {
		case '{', '[':
			stack = append(stack, ch)
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return stack
}

// insideString reports whether s ends in the middle of a string literal.
func insideString(s string) bool {
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
		}
	}
	return inString
}
