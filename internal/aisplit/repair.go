package aisplit

import (
	"encoding/json"
	"regexp"
	"strings"
)

var smartQuotes = strings.NewReplacer(
	"“", `"`, "”", `"`, "„", `"`, "«", `"`, "»", `"`,
	"‘", "'", "’", "'", "‚", "'", "′", "'",
)

var (
	reUndefined     = regexp.MustCompile(`\bundefined\b|\bNone\b`)
	reNaN           = regexp.MustCompile(`-?\bNaN\b`)
	reTrue          = regexp.MustCompile(`\bTrue\b`)
	reFalse         = regexp.MustCompile(`\bFalse\b`)
	reBareKey       = regexp.MustCompile(`([{,]\s*)([A-Za-z_$][\w$]*)(\s*:)`)
	reTrailingComma = regexp.MustCompile(`,\s*([}\]])`)
	reSplitDecimal  = regexp.MustCompile(`(\d)\.\s+(\d)`)
	reDanglingPoint = regexp.MustCompile(`(\d)\.(\s|[,}\]]|$)`)
	reBarePoint     = regexp.MustCompile(`(^|[^\w.])\.\s*(\d)`)
)

// Repair rewrites near-JSON into JSON. Applying it twice gives the same
// result as applying it once. String contents are left alone apart from
// quoting and escaping.
//
// Steps, in order:
// - smart quotes to ASCII
// - single quoted strings to double quoted
// - undefined and None to null, NaN to 0, True/False to true/false
// - quote bare object keys
// - drop trailing commas before } and ]
// - fix decimal spacing: "25. 50" to "25.50", "25." to "25.0", ".5" to "0.5"
func Repair(s string) string {
	s = smartQuotes.Replace(s)

	var b strings.Builder
	b.Grow(len(s) + 16)
	for _, seg := range segments(s) {
		if seg.literal {
			b.WriteString(seg.text)
			continue
		}
		b.WriteString(repairCode(seg.text))
	}
	return b.String()
}

func repairCode(s string) string {
	s = reUndefined.ReplaceAllString(s, "null")
	s = reNaN.ReplaceAllString(s, "0")
	s = reTrue.ReplaceAllString(s, "true")
	s = reFalse.ReplaceAllString(s, "false")
	s = reBareKey.ReplaceAllString(s, `$1"$2"$3`)
	s = reTrailingComma.ReplaceAllString(s, "$1")
	s = reSplitDecimal.ReplaceAllString(s, "$1.$2")
	s = reDanglingPoint.ReplaceAllString(s, "${1}.0$2")
	s = reBarePoint.ReplaceAllString(s, "${1}0.$2")
	return s
}

type segment struct {
	text    string
	literal bool
}

// segments splits s into code and string literals. Literals come back
// double quoted and escaped as JSON expects.
func segments(s string) []segment {
	var out []segment
	codeStart := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '"' && c != '\'' {
			continue
		}
		end, ok := closingQuote(s, i)
		if !ok {
			break
		}
		if i > codeStart {
			out = append(out, segment{text: s[codeStart:i]})
		}
		out = append(out, segment{text: quoteLiteral(s[i+1:end], c), literal: true})
		i = end
		codeStart = end + 1
	}
	if codeStart < len(s) {
		rest := s[codeStart:]
		if q := strings.IndexAny(rest, `"'`); q >= 0 {
			// Unterminated string: repair the code before it, keep the rest.
			if q > 0 {
				out = append(out, segment{text: rest[:q]})
			}
			out = append(out, segment{text: rest[q:], literal: true})
		} else {
			out = append(out, segment{text: rest})
		}
	}
	return out
}

func closingQuote(s string, open int) (int, bool) {
	quote := s[open]
	for i := open + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case quote:
			return i, true
		}
	}
	return 0, false
}

// quoteLiteral renders the body of a string literal as a JSON string.
func quoteLiteral(body string, quote byte) string {
	var b strings.Builder
	b.Grow(len(body) + 2)
	b.WriteByte('"')
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '\\' && i+1 < len(body):
			next := body[i+1]
			if quote == '\'' && next == '\'' {
				b.WriteByte('\'')
			} else {
				b.WriteByte(c)
				b.WriteByte(next)
			}
			i++
		case c == '"':
			b.WriteString(`\"`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

var reSplitsKey = regexp.MustCompile(`["']?splits["']?\s*:\s*\[`)

// salvage recovers the entries of a "splits" array one object at a time
// when the document as a whole cannot be parsed. Entries that still fail
// to decode are dropped.
func salvage(text string) []rawSplit {
	loc := reSplitsKey.FindStringIndex(text)
	if loc == nil {
		return nil
	}
	rest := text[loc[1]:]

	var out []rawSplit
	for i := 0; i < len(rest); {
		switch rest[i] {
		case ']':
			return out
		case '{':
			end, closed := matchBrace(rest, i)
			if !closed {
				return out
			}
			var s rawSplit
			if err := json.Unmarshal([]byte(Repair(rest[i:end+1])), &s); err == nil && s.usable() {
				out = append(out, s)
			}
			i = end + 1
		default:
			i++
		}
	}
	return out
}
