package evaluator

import "strings"

// Incomplete reports whether source needs more lines: it has unclosed
// brackets or an unterminated string, or ends with a backslash or a binary
// operator.
func Incomplete(source string) bool {
	depth := 0
	var quote rune
	escaped := false

	for _, r := range source {
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case r == '\\' && quote != '`':
				escaped = true
			case r == quote:
				quote = 0
			}
			continue
		}
		switch r {
		case '"', '\'', '`':
			quote = r
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		}
	}
	if quote != 0 || depth > 0 {
		return true
	}

	trimmed := strings.TrimRight(source, " \t\r\n")
	for _, suffix := range continuationSuffixes {
		if strings.HasSuffix(trimmed, suffix) {
			return true
		}
	}
	return false
}

var continuationSuffixes = []string{
	"\\", "+", "-", "*", "/", "%", ",", "&&", "||", "??", "?", ":", "==", "!=",
	" and", " or", " not", " in",
}
