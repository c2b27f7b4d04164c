// Package highlight splits Java source into coloured spans and implements
// the small editing aids of the "try it" code boxes.
package highlight

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type Kind string

const (
	KindPlain       Kind = "plain"
	KindComment     Kind = "comment"
	KindString      Kind = "string"
	KindChar        Kind = "char"
	KindAnnotation  Kind = "annotation"
	KindKeyword     Kind = "keyword"
	KindClass       Kind = "class"
	KindNumber      Kind = "number"
	KindPunctuation Kind = "punctuation"
)

// Span is a run of source text. Concatenating the Text of all spans
// returned by Tokenize yields the input unchanged.
type Span struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

var keywords = map[string]bool{}

func init() {
	for _, k := range strings.Fields(`abstract assert boolean break byte case catch char class const
		continue default do double else enum extends final finally float for goto if implements
		import instanceof int interface long native new package private protected public return
		short static strictfp super switch synchronized this throw throws transient try void
		volatile while var record sealed permits yield true false null`) {
		keywords[k] = true
	}
}

const punctuation = "{}()[];,.<>=+-*/%!&|^~?:"

// Tokenize classifies src. It is best effort: unterminated literals and
// comments run to the end of the line (or input for block comments).
func Tokenize(src string) []Span {
	var spans []Span
	emit := func(k Kind, text string) {
		if text == "" {
			return
		}
		if n := len(spans); n > 0 && spans[n-1].Kind == k && (k == KindPlain || k == KindPunctuation) {
			spans[n-1].Text += text
			return
		}
		spans = append(spans, Span{Kind: k, Text: text})
	}

	i := 0
	for i < len(src) {
		c := src[i]
		rest := src[i:]
		switch {
		case strings.HasPrefix(rest, "//"):
			end := strings.IndexByte(rest, '\n')
			if end < 0 {
				end = len(rest)
			}
			emit(KindComment, rest[:end])
			i += end
		case strings.HasPrefix(rest, "/*"):
			end := strings.Index(rest[2:], "*/")
			if end < 0 {
				end = len(rest)
			} else {
				end += 4
			}
			emit(KindComment, rest[:end])
			i += end
		case strings.HasPrefix(rest, `"""`):
			end := strings.Index(rest[3:], `"""`)
			if end < 0 {
				end = len(rest)
			} else {
				end += 6
			}
			emit(KindString, rest[:end])
			i += end
		case c == '"':
			n := quoted(rest, '"')
			emit(KindString, rest[:n])
			i += n
		case c == '\'':
			n := quoted(rest, '\'')
			emit(KindChar, rest[:n])
			i += n
		case c == '@' && i+1 < len(src) && isIdentStart(src[i+1:]):
			n := 1 + identLen(rest[1:])
			emit(KindAnnotation, rest[:n])
			i += n
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			n := numberLen(rest)
			emit(KindNumber, rest[:n])
			i += n
		case isIdentStart(rest):
			n := identLen(rest)
			word := rest[:n]
			switch {
			case keywords[word]:
				emit(KindKeyword, word)
			case looksLikeClass(word):
				emit(KindClass, word)
			default:
				emit(KindPlain, word)
			}
			i += n
		case strings.IndexByte(punctuation, c) >= 0:
			emit(KindPunctuation, rest[:1])
			i++
		default:
			_, size := utf8.DecodeRuneInString(rest)
			emit(KindPlain, rest[:size])
			i += size
		}
	}
	return spans
}

// quoted returns the length of a literal opened by q at s[0], honouring
// backslash escapes and stopping at end of line.
func quoted(s string, q byte) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case q:
			return i + 1
		case '\n':
			return i
		}
	}
	return len(s)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func identLen(s string) int {
	n := 0
	for n < len(s) {
		r, size := utf8.DecodeRuneInString(s[n:])
		if r != '_' && r != '$' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		n += size
	}
	return n
}

func numberLen(s string) int {
	n := 0
	for n < len(s) {
		c := s[n]
		if isDigit(c) || c == '.' || c == '_' || c == 'x' || c == 'X' ||
			(c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') || c == 'L' || c == 'l' {
			n++
			continue
		}
		break
	}
	return n
}

// looksLikeClass treats capitalized identifiers as type names, except
// ALL_CAPS constants.
func looksLikeClass(word string) bool {
	r, _ := utf8.DecodeRuneInString(word)
	if !unicode.IsUpper(r) {
		return false
	}
	return strings.ToUpper(word) != word || len(word) == 1
}
