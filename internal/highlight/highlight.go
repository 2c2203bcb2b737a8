// Package highlight tokenises text with chroma for terminal rendering.
package highlight

import (
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// DefaultStyle is the chroma style used when none is given.
const DefaultStyle = "dracula"

// Token is a run of text sharing one colour.
type Token struct {
	Text  string
	Color string // hex colour, empty for default
	Bold  bool
}

// Line is one highlighted source line.
type Line []Token

// Plain returns the text of the line without colours.
func (l Line) Plain() string {
	var b strings.Builder
	for _, t := range l {
		b.WriteString(t.Text)
	}
	return b.String()
}

// Highlighter tokenises text with one chroma style.
type Highlighter struct {
	style *chroma.Style
}

// New returns a highlighter for the named style, falling back to chroma's
// default when the name is unknown.
func New(style string) *Highlighter {
	if style == "" {
		style = DefaultStyle
	}
	s := styles.Get(style)
	if s == nil {
		s = styles.Fallback
	}
	return &Highlighter{style: s}
}

// Markdown highlights a README.
func (h *Highlighter) Markdown(text string) []Line {
	return h.Lines("README.md", text)
}

// Lines highlights text using the lexer matching filename. It always returns
// one Line per input line.
func (h *Highlighter) Lines(filename, text string) []Line {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	src := strings.Split(text, "\n")

	lexer := lexerFor(filename)
	if lexer == nil {
		return plain(src)
	}
	it, err := lexer.Tokenise(nil, text)
	if err != nil {
		return plain(src)
	}

	out := make([]Line, 0, len(src))
	var cur Line
	for _, tok := range it.Tokens() {
		entry := h.style.Get(tok.Type)
		color := ""
		if entry.Colour.IsSet() {
			color = entry.Colour.String()
		}
		bold := entry.Bold == chroma.Yes

		for i, part := range strings.Split(tok.Value, "\n") {
			if i > 0 {
				out = append(out, cur)
				cur = nil
			}
			if part != "" {
				cur = append(cur, Token{Text: part, Color: color, Bold: bold})
			}
		}
	}
	out = append(out, cur)

	// Lexers may add or swallow a trailing newline.
	for len(out) < len(src) {
		out = append(out, nil)
	}
	return out[:len(src)]
}

func plain(lines []string) []Line {
	out := make([]Line, len(lines))
	for i, l := range lines {
		if l != "" {
			out[i] = Line{{Text: l}}
		}
	}
	return out
}

func lexerFor(filename string) chroma.Lexer {
	lexer := lexers.Match(filename)
	if lexer == nil {
		if ext := filepath.Ext(filename); ext != "" {
			lexer = lexers.Match("file" + ext)
		}
	}
	if lexer == nil {
		return nil
	}
	return chroma.Coalesce(lexer)
}
