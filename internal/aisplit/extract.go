package aisplit

import (
	"regexp"
	"strings"
)

var reFence = regexp.MustCompile("(?s)```[A-Za-z]*\\s*\\n?(.*?)```")

// ExtractJSON pulls a JSON object out of free text. A fenced code block wins
// when one contains an object; otherwise the first balanced {...} span is
// used. An unbalanced span runs to the end of the text.
func ExtractJSON(text string) (string, bool) {
	for _, m := range reFence.FindAllStringSubmatch(text, -1) {
		if obj, ok := objectSpan(m[1]); ok {
			return obj, true
		}
	}
	return objectSpan(text)
}

// objectSpan returns the first {...} span in s, skipping braces inside
// single or double quoted strings.
func objectSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	end, closed := matchBrace(s, start)
	if !closed {
		return strings.TrimSpace(s[start:]), true
	}
	return s[start : end+1], true
}

// matchBrace returns the index of the brace closing the one at open.
func matchBrace(s string, open int) (int, bool) {
	depth := 0
	var quote byte
	escaped := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return len(s) - 1, false
}
