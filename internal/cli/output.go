package cli

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/dev101/coa/internal/annotate"
	"github.com/dev101/coa/internal/model"
)

// report is what the non-interactive formats print: the annotated analysis
// text, plus the repo card and score when printing a full result.
type report struct {
	Detail   *model.RepoDetail
	Segments []annotate.Segment[model.CommitComment]
}

func newReport(detail *model.RepoDetail) report {
	return report{
		Detail: detail,
		Segments: annotate.Annotate(detail.BasicDetail.RepoViewResult,
			annotate.FromComments(detail.BasicDetail.CommentList)),
	}
}

func writeReport(w io.Writer, format string, r report) error {
	switch format {
	case "json":
		return outputJSON(w, r)
	case "markdown", "md":
		return outputMarkdown(w, r)
	case "html":
		return outputHTML(w, r)
	case "text", "":
		return outputText(w, r)
	default:
		return fmt.Errorf("unknown format %q (want text, json, markdown or html)", format)
	}
}

// footnotes numbers the annotated segments in order.
func footnotes(segs []annotate.Segment[model.CommitComment]) map[int]int {
	notes := make(map[int]int)
	n := 0
	for i, s := range segs {
		if s.Annotated {
			n++
			notes[i] = n
		}
	}
	return notes
}

func outputText(w io.Writer, r report) error {
	if d := r.Detail; d != nil {
		fmt.Fprintf(w, "%s\n", titleOf(d))
		if d.RepoCard.MemberNickname != "" {
			fmt.Fprintf(w, "by %s\n", d.RepoCard.MemberNickname)
		}
		fmt.Fprintln(w)
	}

	notes := footnotes(r.Segments)
	for i, s := range r.Segments {
		if s.Annotated {
			fmt.Fprintf(w, "[%s][%d]", s.Text, notes[i])
		} else {
			fmt.Fprint(w, s.Text)
		}
	}
	if len(r.Segments) > 0 {
		fmt.Fprintln(w)
	}

	if len(notes) > 0 {
		fmt.Fprintln(w)
		for i, s := range r.Segments {
			if s.Annotated {
				fmt.Fprintf(w, "  [%d] %s\n", notes[i], s.Annotation.Payload.Content)
			}
		}
	}

	if r.Detail != nil && r.Detail.CommitScore != nil {
		fmt.Fprintln(w)
		for _, row := range scoreRows(r.Detail.CommitScore) {
			fmt.Fprintf(w, "  %-12s %3d  %s\n", row.label, row.score, model.GradeOf(row.score))
		}
		if c := r.Detail.CommitScore.Comment; c != "" {
			fmt.Fprintf(w, "\n%s\n", c)
		}
	}
	return nil
}

func outputJSON(w io.Writer, r report) error {
	type jsonSegment struct {
		Text      string               `json:"text"`
		Annotated bool                 `json:"annotated"`
		Comment   *model.CommitComment `json:"comment,omitempty"`
	}
	type jsonOutput struct {
		Result   *model.RepoDetail `json:"result,omitempty"`
		Segments []jsonSegment     `json:"segments"`
	}

	out := jsonOutput{Result: r.Detail, Segments: make([]jsonSegment, 0, len(r.Segments))}
	for _, s := range r.Segments {
		js := jsonSegment{Text: s.Text, Annotated: s.Annotated}
		if s.Annotated {
			c := s.Annotation.Payload
			js.Comment = &c
		}
		out.Segments = append(out.Segments, js)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func outputMarkdown(w io.Writer, r report) error {
	if d := r.Detail; d != nil {
		fmt.Fprintf(w, "## %s\n\n", titleOf(d))
		if d.RepoCard.MemberNickname != "" {
			fmt.Fprintf(w, "**Author:** %s\n\n", d.RepoCard.MemberNickname)
		}
		if s := d.CommitScore; s != nil {
			fmt.Fprintln(w, "| Category | Score | Grade |")
			fmt.Fprintln(w, "|----------|-------|-------|")
			for _, row := range scoreRows(s) {
				fmt.Fprintf(w, "| %s | %d | %s |\n", row.label, row.score, model.GradeOf(row.score))
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "### Commit analysis\n\n")
	}

	notes := footnotes(r.Segments)
	for i, s := range r.Segments {
		if s.Annotated {
			fmt.Fprintf(w, "**%s**[^%d]", s.Text, notes[i])
		} else {
			fmt.Fprint(w, s.Text)
		}
	}
	fmt.Fprintln(w)

	if len(notes) > 0 {
		fmt.Fprintln(w)
		for i, s := range r.Segments {
			if s.Annotated {
				content := strings.ReplaceAll(s.Annotation.Payload.Content, "\n", " ")
				fmt.Fprintf(w, "[^%d]: %s\n", notes[i], content)
			}
		}
	}
	return nil
}

func outputHTML(w io.Writer, r report) error {
	title := "coa Commit Analysis"
	if r.Detail != nil {
		title = titleOf(r.Detail)
	}

	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 900px; margin: 40px auto; padding: 0 20px; background: #282a36; color: #f8f8f2; }
  h1 { color: #bd93f9; }
  .analysis { background: #343746; padding: 16px; border-radius: 8px; white-space: pre-wrap; line-height: 1.6; }
  mark { background: #44475a; color: #ffb86c; text-decoration: underline; cursor: help; }
  table { border-collapse: collapse; margin-bottom: 24px; }
  th { text-align: left; padding: 8px 12px; background: #44475a; }
  td { padding: 8px 12px; border-bottom: 1px solid #44475a; }
  .grade-excellent { color: #50fa7b; font-weight: bold; }
  .grade-good { color: #8be9fd; }
  .grade-fair { color: #f1fa8c; }
  .grade-poor { color: #ff5555; }
  ol.comments { color: #f8f8f2; }
  footer { margin-top: 32px; color: #6272a4; font-size: 0.85em; }
</style>
</head>
<body>
<h1>%s</h1>
`, html.EscapeString(title), html.EscapeString(title))

	if r.Detail != nil && r.Detail.CommitScore != nil {
		fmt.Fprintln(w, `<table>
<thead><tr><th>Category</th><th>Score</th><th>Grade</th></tr></thead>
<tbody>`)
		for _, row := range scoreRows(r.Detail.CommitScore) {
			g := model.GradeOf(row.score)
			fmt.Fprintf(w, "<tr><td>%s</td><td>%d</td><td class=\"grade-%s\">%s</td></tr>\n", row.label, row.score, g, g)
		}
		fmt.Fprintln(w, `</tbody></table>`)
	}

	notes := footnotes(r.Segments)
	fmt.Fprint(w, `<div class="analysis">`)
	for i, s := range r.Segments {
		text := html.EscapeString(s.Text)
		if s.Annotated {
			fmt.Fprintf(w, `<mark id="span-%d" title="%s">%s</mark><sup><a href="#note-%d">%d</a></sup>`,
				notes[i], html.EscapeString(s.Annotation.Payload.Content), text, notes[i], notes[i])
		} else {
			fmt.Fprint(w, text)
		}
	}
	fmt.Fprintln(w, `</div>`)

	if len(notes) > 0 {
		fmt.Fprintln(w, `<ol class="comments">`)
		for i, s := range r.Segments {
			if s.Annotated {
				fmt.Fprintf(w, "<li id=\"note-%d\">%s</li>\n", notes[i], html.EscapeString(s.Annotation.Payload.Content))
			}
		}
		fmt.Fprintln(w, `</ol>`)
	}

	fmt.Fprintln(w, `<footer>Generated by <strong>coa</strong></footer>
</body>
</html>`)
	return nil
}

type scoreRow struct {
	label string
	score int
}

func scoreRows(s *model.CommitScore) []scoreRow {
	return []scoreRow{
		{"Readability", s.Readability},
		{"Performance", s.Performance},
		{"Reusability", s.Reusability},
		{"Testability", s.Testability},
		{"Exception", s.Exception},
		{"Total", s.Total},
	}
}

func titleOf(d *model.RepoDetail) string {
	if d.RepoCard.Title != "" {
		return d.RepoCard.Title
	}
	return "Commit analysis"
}
