package highlight

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// IndentUnit is inserted by Tab and added after an opening brace.
const IndentUnit = "    "

// Edit is the buffer and cursor after a key press. Cursor counts UTF-16
// code units, the unit of a browser textarea's selectionStart.
type Edit struct {
	Text   string `json:"text"`
	Cursor int    `json:"cursor"`
}

// byteOffset maps a UTF-16 cursor to a byte offset in text. Out of range
// cursors are clamped and a cursor inside a surrogate pair snaps to the
// start of its character.
func byteOffset(text string, cursor int) int {
	units := 0
	for i, r := range text {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if units+n > cursor {
			return i
		}
		units += n
	}
	return len(text)
}

// unitOffset maps a byte offset on a character boundary back to UTF-16 units.
func unitOffset(text string, offset int) int {
	units := 0
	for _, r := range text[:offset] {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		units += n
	}
	return units
}

func apply(text string, cursor int, key func(string, int) (string, int)) Edit {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, string(utf8.RuneError))
	}
	out, at := key(text, byteOffset(text, cursor))
	return Edit{Text: out, Cursor: unitOffset(out, at)}
}

func lineStart(text string, cursor int) int {
	return strings.LastIndexByte(text[:cursor], '\n') + 1
}

func leadingSpace(s string) string {
	return s[:len(s)-len(strings.TrimLeft(s, " \t"))]
}

// Tab inserts one indent unit at the cursor.
func Tab(text string, cursor int) Edit {
	return apply(text, cursor, tab)
}

func tab(text string, cursor int) (string, int) {
	return text[:cursor] + IndentUnit + text[cursor:], cursor + len(IndentUnit)
}

// Enter breaks the line keeping the current indentation, one level deeper
// after an opening brace. Between a brace pair the closing brace moves to
// its own line.
func Enter(text string, cursor int) Edit {
	return apply(text, cursor, enter)
}

func enter(text string, cursor int) (string, int) {
	before, after := text[:cursor], text[cursor:]

	indent := leadingSpace(text[lineStart(text, cursor):cursor])
	opened := strings.HasSuffix(strings.TrimRight(before, " \t"), "{")

	if !opened {
		ins := "\n" + indent
		return before + ins + after, cursor + len(ins)
	}

	inner := "\n" + indent + IndentUnit
	if strings.HasPrefix(strings.TrimLeft(after, " \t"), "}") {
		return before + inner + "\n" + indent + after, cursor + len(inner)
	}
	return before + inner + after, cursor + len(inner)
}

// CloseBrace types '}' and, when the line so far is only whitespace,
// removes one indent level first.
func CloseBrace(text string, cursor int) Edit {
	return apply(text, cursor, closeBrace)
}

func closeBrace(text string, cursor int) (string, int) {
	start := lineStart(text, cursor)
	prefix := text[start:cursor]

	if strings.TrimLeft(prefix, " \t") == "" && prefix != "" {
		cut := len(IndentUnit)
		if strings.HasSuffix(prefix, "\t") {
			cut = 1
		}
		cut = min(cut, len(prefix))
		prefix = prefix[:len(prefix)-cut]
		text = text[:start] + prefix + text[cursor:]
		cursor = start + len(prefix)
	}

	return text[:cursor] + "}" + text[cursor:], cursor + 1
}
