package sql

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Token is one occurrence of a bind variable in statement text.
// Start is the offset of the prefix and End the offset after the name.
type Token struct {
	Name  string
	Start int
	End   int
}

// ScanTokens returns the bind variables introduced by prefix in text, in
// order of appearance. A token is only recognised as a complete word: the
// prefix must not follow an identifier character or another prefix
// character, so "::int" casts and "@@ROWCOUNT" globals are skipped. Quoted
// literals, quoted identifiers, line comments and block comments are never
// scanned.
func ScanTokens(text, prefix string) []Token {
	if prefix == "" {
		return nil
	}
	var (
		tokens []Token
		prev   rune
	)
	for i := 0; i < len(text); {
		r, w := utf8.DecodeRuneInString(text[i:])
		switch {
		case r == '\'' || r == '"':
			i = skipQuoted(text, i, byte(r))
			prev = r
			continue
		case r == '-' && strings.HasPrefix(text[i:], "--"):
			if j := strings.IndexByte(text[i:], '\n'); j >= 0 {
				i += j
			} else {
				i = len(text)
			}
			continue
		case r == '/' && strings.HasPrefix(text[i:], "/*"):
			if j := strings.Index(text[i+2:], "*/"); j >= 0 {
				i += j + 4
			} else {
				i = len(text)
			}
			prev = ' '
			continue
		case strings.HasPrefix(text[i:], prefix) && !isIdentRune(prev) && !isPrefixRune(prev):
			j := i + len(prefix)
			first, _ := utf8.DecodeRuneInString(text[j:])
			if j < len(text) && isIdentStart(first) {
				end := j
				for end < len(text) {
					c, cw := utf8.DecodeRuneInString(text[end:])
					if !isIdentRune(c) {
						break
					}
					end += cw
				}
				tokens = append(tokens, Token{Name: text[j:end], Start: i, End: end})
				prev, _ = utf8.DecodeLastRuneInString(text[:end])
				i = end
				continue
			}
		}
		prev = r
		i += w
	}
	return tokens
}

// RewriteTokens replaces, in a single pass, every token whose folded name is
// a key of renames with prefix+renames[key]. It returns the new text and the
// number of occurrences replaced per folded name.
func RewriteTokens(text, prefix string, renames map[string]string) (string, map[string]int) {
	counts := make(map[string]int, len(renames))
	if len(renames) == 0 {
		return text, counts
	}
	var (
		b    strings.Builder
		last int
	)
	for _, tok := range ScanTokens(text, prefix) {
		key := Fold(tok.Name)
		to, ok := renames[key]
		if !ok {
			continue
		}
		b.WriteString(text[last:tok.Start])
		b.WriteString(prefix)
		b.WriteString(to)
		last = tok.End
		counts[key]++
	}
	b.WriteString(text[last:])
	return b.String(), counts
}

func skipQuoted(text string, i int, q byte) int {
	for j := i + 1; j < len(text); j++ {
		if text[j] != q {
			continue
		}
		if j+1 < len(text) && text[j+1] == q {
			j++
			continue
		}
		return j + 1
	}
	return len(text)
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isPrefixRune(r rune) bool {
	return r == ':' || r == '@' || r == '$' || r == '?'
}
