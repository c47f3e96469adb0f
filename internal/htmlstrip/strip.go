// Package htmlstrip flattens FreeScout message HTML into single-line text
// for notifications and terminal output.
package htmlstrip

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ellipsis is appended by [Preview] when text is cut.
const ellipsis = "..."

// dropped elements contribute no text.
var dropped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Head:     true,
	atom.Title:    true,
}

// breaking elements separate the text on either side of them.
var breaking = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Hr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Li: true, atom.Ul: true, atom.Ol: true, atom.Blockquote: true, atom.Pre: true,
	atom.Table: true, atom.Tr: true, atom.Td: true, atom.Th: true,
}

// Text returns the visible text of an HTML fragment with entities decoded
// and all whitespace runs collapsed to one space.
func Text(fragment string) string {
	var w textWriter
	z := html.NewTokenizer(strings.NewReader(fragment))
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			// end of input or malformed markup; keep what was read
			return w.String()

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			a := atom.Lookup(name)
			if dropped[a] {
				skip++
				continue
			}
			if breaking[a] {
				w.space()
			}
			if a == atom.Img && hasAttr {
				w.text(imgAlt(z))
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if dropped[a] {
				if skip > 0 {
					skip--
				}
				continue
			}
			if breaking[a] {
				w.space()
			}

		case html.TextToken:
			if skip == 0 {
				w.text(string(z.Text()))
			}
		}
	}
}

// Preview returns [Text] cut to at most maxRunes runes, breaking at a word
// boundary where one exists. A non-positive maxRunes disables the cut.
func Preview(fragment string, maxRunes int) string {
	s := Text(fragment)
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}

	cut := []rune(s)[:maxRunes]
	if i := lastSpace(cut); i > maxRunes/2 {
		cut = cut[:i]
	}
	return strings.TrimRightFunc(string(cut), unicode.IsSpace) + ellipsis
}

func lastSpace(rs []rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if unicode.IsSpace(rs[i]) {
			return i
		}
	}
	return -1
}

func imgAlt(z *html.Tokenizer) string {
	for {
		key, val, more := z.TagAttr()
		if string(key) == "alt" {
			return string(val)
		}
		if !more {
			return ""
		}
	}
}

// textWriter collapses whitespace as it writes.
type textWriter struct {
	b       strings.Builder
	pending bool
}

func (w *textWriter) space() {
	if w.b.Len() > 0 {
		w.pending = true
	}
}

func (w *textWriter) text(s string) {
	for _, r := range s {
		if unicode.IsSpace(r) {
			w.space()
			continue
		}
		if w.pending {
			w.b.WriteByte(' ')
			w.pending = false
		}
		w.b.WriteRune(r)
	}
}

func (w *textWriter) String() string {
	return w.b.String()
}
