package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dev101/coa/internal/annotate"
	"github.com/dev101/coa/internal/diff"
	"github.com/dev101/coa/internal/highlight"
	"github.com/dev101/coa/internal/model"
)

// renderTokens renders one highlighted line.
func renderTokens(line highlight.Line) string {
	var b strings.Builder
	for _, tok := range line {
		if tok.Color == "" && !tok.Bold {
			b.WriteString(tok.Text)
			continue
		}
		style := lipgloss.NewStyle().Bold(tok.Bold)
		if tok.Color != "" {
			style = style.Foreground(lipgloss.Color(tok.Color))
		}
		b.WriteString(style.Render(tok.Text))
	}
	return b.String()
}

func renderReadme(lines []highlight.Line) []string {
	if len(lines) == 0 {
		return []string{subtitleStyle.Render("No README.")}
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = renderTokens(l)
	}
	return out
}

// renderSegments renders the analysis text with annotated spans marked.
// focused is the index of the focused segment, -1 for none. The result is
// wrapped to width and split into lines.
func renderSegments(segs []annotate.Segment[model.CommitComment], focused int, selected *annotate.Selection[model.CommitComment], phase float64, width int) []string {
	var b strings.Builder
	for i, s := range segs {
		var style lipgloss.Style
		switch {
		case !s.Annotated:
			style = plainTextStyle
		case selected.IsSelected(s.Annotation):
			style = focusedStyle.Foreground(pulseColor(selectedDim, selectedBright, phase)).Bold(true)
		case i == focused:
			style = focusedStyle
		default:
			style = annotatedStyle
		}
		// Style each line on its own so wrapping keeps the colour.
		parts := strings.Split(s.Text, "\n")
		for j, p := range parts {
			if j > 0 {
				b.WriteByte('\n')
			}
			if p != "" {
				b.WriteString(style.Render(p))
			}
		}
	}
	if width > 0 {
		return strings.Split(lipgloss.NewStyle().Width(width).Render(b.String()), "\n")
	}
	return strings.Split(b.String(), "\n")
}

func renderCommentBox(c model.CommitComment, width int) string {
	var b strings.Builder
	b.WriteString(commentHeaderStyle.Render("Comment"))
	if c.TargetString != "" {
		b.WriteString(subtitleStyle.Render(fmt.Sprintf("  on %q", truncate(c.TargetString, 40))))
	}
	b.WriteByte('\n')
	b.WriteString(c.Content)

	style := commentBoxStyle
	if width > 4 {
		style = style.Width(width - 2)
	}
	return style.Render(b.String())
}

var scoreCategories = []struct {
	label string
	value func(*model.CommitScore) int
}{
	{"Readability", func(s *model.CommitScore) int { return s.Readability }},
	{"Performance", func(s *model.CommitScore) int { return s.Performance }},
	{"Reusability", func(s *model.CommitScore) int { return s.Reusability }},
	{"Testability", func(s *model.CommitScore) int { return s.Testability }},
	{"Exception", func(s *model.CommitScore) int { return s.Exception }},
}

func renderScore(s *model.CommitScore, width int) []string {
	barWidth := width - 30
	if barWidth > 40 {
		barWidth = 40
	}
	if barWidth < 10 {
		barWidth = 10
	}

	var lines []string
	for _, c := range scoreCategories {
		lines = append(lines, scoreLine(c.label, c.value(s), barWidth))
	}
	lines = append(lines, "", scoreLine("Total", s.Total, barWidth))
	if s.Comment != "" {
		lines = append(lines, "")
		wrapped := lipgloss.NewStyle().Width(max(width, 20)).Render(s.Comment)
		lines = append(lines, strings.Split(wrapped, "\n")...)
	}
	return lines
}

func scoreLine(label string, score, barWidth int) string {
	score = min(max(score, 0), 100)
	full := score * barWidth / 100
	bar := scoreBarFullStyle.Render(strings.Repeat("█", full)) +
		scoreBarEmptyStyle.Render(strings.Repeat("░", barWidth-full))
	grade := model.GradeOf(score)
	return fmt.Sprintf("%s %s %3d %s", scoreLabelStyle.Render(label), bar, score, gradeStyle(grade).Render(grade.String()))
}

func gradeStyle(g model.Grade) lipgloss.Style {
	switch g {
	case model.GradeExcellent:
		return gradeExcellentStyle
	case model.GradeGood:
		return gradeGoodStyle
	case model.GradeFair:
		return gradeFairStyle
	default:
		return gradePoorStyle
	}
}

func renderChanges(c *diff.Changes, width int) []string {
	files, added, deleted := c.Totals()
	lines := []string{
		subtitleStyle.Render(fmt.Sprintf("%s: %d files, ", c.Range, files)) +
			addedCountStyle.Render(fmt.Sprintf("+%d", added)) + " " +
			deletedCountStyle.Render(fmt.Sprintf("-%d", deleted)),
		"",
	}

	maxName := width - 20
	if maxName < 10 {
		maxName = 10
	}
	for _, f := range c.Files {
		name := f.Path()
		if len(name) > maxName {
			name = "…" + name[len(name)-maxName+1:]
		}

		var style lipgloss.Style
		switch f.Status {
		case diff.Added:
			style = fileAddedStyle
		case diff.Deleted:
			style = fileDeletedStyle
		default:
			style = fileItemStyle
		}

		stats := "binary"
		if !f.Binary {
			stats = addedCountStyle.Render(fmt.Sprintf("+%d", f.Added)) + " " +
				deletedCountStyle.Render(fmt.Sprintf("-%d", f.Deleted))
		}
		lines = append(lines, fmt.Sprintf("%-8s %s %s",
			f.Status, style.Render(fmt.Sprintf("%-*s", maxName, name)), stats))
	}
	return lines
}

// pulseColor interpolates between a dim and bright version of a color based on phase.
func pulseColor(dimRGB, brightRGB [3]int, phase float64) lipgloss.Color {
	t := (math.Sin(phase) + 1) / 2
	r := dimRGB[0] + int(t*float64(brightRGB[0]-dimRGB[0]))
	g := dimRGB[1] + int(t*float64(brightRGB[1]-dimRGB[1]))
	b := dimRGB[2] + int(t*float64(brightRGB[2]-dimRGB[2]))
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r, g, b))
}

var (
	selectedDim    = [3]int{0x8a, 0x5c, 0x3a}
	selectedBright = [3]int{0xff, 0xb8, 0x6c}
)

func truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 {
		return ""
	}
	if len(r) > max {
		return string(r[:max-1]) + "…"
	}
	return s
}
