package highlight

import (
	"strings"
	"testing"
)

func TestMarkdown(t *testing.T) {
	readme := "# coa\n\nCommit **analysis** client.\n\n```go\nfunc main() {}\n```"
	lines := New("").Markdown(readme)

	src := strings.Split(readme, "\n")
	if len(lines) != len(src) {
		t.Fatalf("expected %d lines, got %d", len(src), len(lines))
	}
	for i, l := range lines {
		if l.Plain() != src[i] {
			t.Errorf("line %d: plain text %q, want %q", i, l.Plain(), src[i])
		}
	}

	colored := false
	for _, tok := range lines[0] {
		if tok.Color != "" {
			colored = true
		}
	}
	if !colored {
		t.Error("expected the heading to be coloured")
	}
}

func TestLinesUnknownLanguage(t *testing.T) {
	lines := New("dracula").Lines("unknown.xyz123", "some content\nmore content")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Plain() != "some content" || lines[0][0].Color != "" {
		t.Errorf("expected plain passthrough, got %+v", lines[0])
	}
}

func TestUnknownStyleFallsBack(t *testing.T) {
	h := New("no-such-style")
	if h.style == nil {
		t.Fatal("expected fallback style")
	}
	if got := h.Lines("main.go", "package main"); got[0].Plain() != "package main" {
		t.Errorf("unexpected %q", got[0].Plain())
	}
}

func TestCRLF(t *testing.T) {
	lines := New("").Lines("notes.txt", "a\r\nb")
	if len(lines) != 2 || lines[1].Plain() != "b" {
		t.Errorf("unexpected lines %+v", lines)
	}
}
