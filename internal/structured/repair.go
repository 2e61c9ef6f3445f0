// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package structured

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Stage names the repair pass that produced a parse.
type Stage string

const (
	StageDirect     Stage = "direct"
	StageEscaped    Stage = "escaped"
	StageAggressive Stage = "aggressive"
)

// ExtractObject returns the first JSON object in text: the span from the
// first "{" to its matching "}", tracking string literals so braces inside
// strings are ignored. When the object never closes, the span ends at the
// last "}" instead.
func ExtractObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	end := strings.LastIndexByte(text, '}')
	if end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// Repair parses s as a JSON object, trying progressively looser fixes:
// the text as is, then with string escapes repaired, then with every
// backslash escaped before the escape repair. It is a pure function.
func Repair(s string) (map[string]any, Stage, error) {
	var obj map[string]any
	err := json.Unmarshal([]byte(s), &obj)
	if err == nil && obj != nil {
		return obj, StageDirect, nil
	}

	obj = nil
	if err = json.Unmarshal([]byte(repairEscapes(s)), &obj); err == nil && obj != nil {
		return obj, StageEscaped, nil
	}

	obj = nil
	if err = json.Unmarshal([]byte(repairEscapes(escapeBackslashes(s))), &obj); err == nil && obj != nil {
		return obj, StageAggressive, nil
	}
	if err == nil {
		err = fmt.Errorf("not a JSON object")
	}
	return nil, "", fmt.Errorf("unrepairable JSON: %w", err)
}

// repairEscapes rewrites the contents of string literals so they are valid
// JSON: stray backslashes are escaped, raw control characters become escape
// sequences, and quotes that do not end the literal are escaped. A quote
// ends a literal only when the next non-space character is one of , : } ]
// or the input ends.
func repairEscapes(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	inString := false
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !inString {
			if r == '"' {
				inString = true
			}
			b.WriteRune(r)
			i += size
			continue
		}

		switch {
		case r == '\\':
			if n := validEscapeLen(s[i:]); n > 0 {
				b.WriteString(s[i : i+n])
				i += n
				continue
			}
			b.WriteString(`\\`)
		case r == '"':
			if closesString(s[i+1:]) {
				inString = false
				b.WriteByte('"')
			} else {
				b.WriteString(`\"`)
			}
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20:
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			b.WriteRune(r)
		}
		i += size
	}
	return b.String()
}

// validEscapeLen returns the length of the JSON escape sequence at the start
// of s, or 0 if s does not start with one.
func validEscapeLen(s string) int {
	if len(s) < 2 {
		return 0
	}
	switch s[1] {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
		return 2
	case 'u':
		if len(s) >= 6 && isHex(s[2:6]) {
			return 6
		}
	}
	return 0
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

func closesString(rest string) bool {
	rest = strings.TrimLeft(rest, " \t\r\n")
	if rest == "" {
		return true
	}
	switch rest[0] {
	case ',', ':', '}', ']':
		return true
	}
	return false
}

// escapeBackslashes doubles every backslash that does not escape a quote.
func escapeBackslashes(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && (i+1 >= len(s) || s[i+1] != '"') {
			b.WriteString(`\\`)
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
