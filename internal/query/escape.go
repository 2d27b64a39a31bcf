package query

import "strings"

// escapeQueryChars escapes the backend query syntax's reserved characters,
// after solrj's ClientUtils.
func escapeQueryChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, c := range s {
		switch c {
		case '\\', '+', '-', '!', '(', ')', ':', '^', '[', ']', '"', '{', '}',
			'~', '*', '?', '|', '&', ';', '/':
			b.WriteByte('\\')
		default:
			if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v' {
				b.WriteByte('\\')
			}
		}
		b.WriteRune(c)
	}
	return b.String()
}

// escapeValue escapes one value for the backend, leaving a bare "*" and a
// trailing wildcard intact.
func escapeValue(s string) string {
	if s == "*" {
		return s
	}
	out := escapeQueryChars(s)
	if strings.HasSuffix(out, `\*`) {
		out = out[:len(out)-2] + "*"
	}
	return out
}

// unescapeQuery strips backend escaping from a query string. Older durable
// qid records were stored pre-escaped; this normalises them on load.
func unescapeQuery(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && isEscapable(s[i+1]) {
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isEscapable(c byte) bool {
	switch c {
	case '\\', '+', '-', '!', '(', ')', ':', '^', '[', ']', '"', '{', '}',
		'~', '*', '?', '|', '&', ';', '/', ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}
