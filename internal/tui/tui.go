// Package tui implements the Bubble Tea result viewer and progress view.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dev101/coa/internal/annotate"
	"github.com/dev101/coa/internal/diff"
	"github.com/dev101/coa/internal/highlight"
	"github.com/dev101/coa/internal/model"
)

// Tab is one page of the result viewer.
type Tab int

const (
	TabReadme Tab = iota
	TabAnalysis
	TabScore
	TabChanges
)

func (t Tab) String() string {
	switch t {
	case TabReadme:
		return "README"
	case TabAnalysis:
		return "Commit analysis"
	case TabScore:
		return "Score"
	case TabChanges:
		return "Changes"
	default:
		return "?"
	}
}

const pulseInterval = 80 * time.Millisecond

type pulseMsg time.Time

func pulseCmd() tea.Cmd {
	return tea.Tick(pulseInterval, func(t time.Time) tea.Msg { return pulseMsg(t) })
}

// Model is the result viewer.
type Model struct {
	detail  *model.RepoDetail
	changes *diff.Changes

	tabs []Tab
	tab  int

	width  int
	height int
	scroll int

	readme []highlight.Line

	// Commit analysis
	segments  []annotate.Segment[model.CommitComment]
	spans     []int // indices of annotated segments
	focus     int   // index into spans, -1 for none
	selection annotate.Selection[model.CommitComment]
	pulsing   bool
	phase     float64

	showHelp bool
}

// New builds a viewer for a finished analysis. changes may be nil.
func New(detail *model.RepoDetail, changes *diff.Changes) Model {
	if detail == nil {
		detail = &model.RepoDetail{}
	}
	m := Model{
		detail:  detail,
		changes: changes,
		tabs:    []Tab{TabReadme, TabAnalysis},
		focus:   -1,
		readme:  highlight.New("").Markdown(detail.BasicDetail.Readme),
	}
	if strings.TrimSpace(detail.BasicDetail.Readme) == "" {
		m.readme = nil
	}
	if detail.CommitScore != nil {
		m.tabs = append(m.tabs, TabScore)
	}
	if !changes.Empty() {
		m.tabs = append(m.tabs, TabChanges)
	}

	m.segments = annotate.Annotate(detail.BasicDetail.RepoViewResult, annotate.FromComments(detail.BasicDetail.CommentList))
	for i, s := range m.segments {
		if s.Annotated {
			m.spans = append(m.spans, i)
		}
	}
	return m
}

// Tabs returns the visible tabs in order.
func (m Model) Tabs() []Tab {
	return m.tabs
}

// ActiveTab returns the tab being shown.
func (m Model) ActiveTab() Tab {
	return m.tabs[m.tab]
}

// Selected returns the comment whose box is open, if any.
func (m Model) Selected() (model.CommitComment, bool) {
	a := m.selection.Selected()
	if a == nil {
		return model.CommitComment{}, false
	}
	return a.Payload, true
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case pulseMsg:
		if m.selection.Selected() == nil {
			m.pulsing = false
			return m, nil
		}
		m.phase += 0.3
		return m, pulseCmd()

	case tea.KeyMsg:
		if m.showHelp {
			if key.Matches(msg, keys.Help) || key.Matches(msg, keys.Close) {
				m.showHelp = false
			} else if key.Matches(msg, keys.Quit) {
				return m, tea.Quit
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, keys.Help):
			m.showHelp = true

		case key.Matches(msg, keys.NextTab):
			m.tab = (m.tab + 1) % len(m.tabs)
			m.scroll = 0

		case key.Matches(msg, keys.PrevTab):
			m.tab = (m.tab - 1 + len(m.tabs)) % len(m.tabs)
			m.scroll = 0

		case key.Matches(msg, keys.Down):
			if m.scroll < m.contentLen()-1 {
				m.scroll++
			}

		case key.Matches(msg, keys.Up):
			if m.scroll > 0 {
				m.scroll--
			}

		case m.ActiveTab() == TabAnalysis:
			return m.updateAnalysis(msg)
		}
	}

	return m, nil
}

func (m Model) updateAnalysis(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.NextSpan):
		if len(m.spans) > 0 {
			m.focus = (m.focus + 1) % len(m.spans)
		}

	case key.Matches(msg, keys.PrevSpan):
		if len(m.spans) > 0 {
			if m.focus <= 0 {
				m.focus = len(m.spans) - 1
			} else {
				m.focus--
			}
		}

	case key.Matches(msg, keys.Toggle):
		if m.focus < 0 {
			return m, nil
		}
		m.selection.Toggle(m.segments[m.spans[m.focus]].Annotation)
		if m.selection.Selected() != nil && !m.pulsing {
			m.pulsing = true
			return m, pulseCmd()
		}

	case key.Matches(msg, keys.Close):
		m.selection.Clear()
	}
	return m, nil
}

func (m Model) bodySize() (width, height int) {
	width = m.width - 4
	height = m.height - 7 // header, tabs, borders, status bar
	if width < 10 {
		width = 10
	}
	if height < 1 {
		height = 1
	}
	return width, height
}

func (m Model) contentLines() []string {
	width, _ := m.bodySize()
	switch m.ActiveTab() {
	case TabReadme:
		return renderReadme(m.readme)
	case TabAnalysis:
		focused := -1
		if m.focus >= 0 {
			focused = m.spans[m.focus]
		}
		lines := renderSegments(m.segments, focused, &m.selection, m.phase, width)
		if len(m.segments) == 0 {
			lines = []string{subtitleStyle.Render("No analysis text.")}
		}
		return lines
	case TabScore:
		return renderScore(m.detail.CommitScore, width)
	case TabChanges:
		return renderChanges(m.changes, width)
	}
	return nil
}

func (m Model) contentLen() int {
	return len(m.contentLines())
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	width, height := m.bodySize()

	var comment string
	if c, ok := m.Selected(); ok && m.ActiveTab() == TabAnalysis {
		comment = renderCommentBox(c, width)
		height -= lipgloss.Height(comment)
		if height < 1 {
			height = 1
		}
	}

	lines := m.contentLines()
	start := min(m.scroll, max(len(lines)-1, 0))
	end := min(start+height, len(lines))
	body := bodyStyle.Width(width + 2).Height(height).Render(strings.Join(lines[start:end], "\n"))

	parts := []string{m.renderHeader(), m.renderTabs(), body}
	if comment != "" {
		parts = append(parts, comment)
	}
	parts = append(parts, m.renderStatusBar())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderHeader() string {
	card := m.detail.RepoCard
	title := card.Title
	if title == "" {
		title = "Analysis result"
	}
	header := titleStyle.Render(title)
	var meta []string
	if card.MemberNickname != "" {
		meta = append(meta, "by "+card.MemberNickname)
	}
	if card.StartDate != "" || card.EndDate != "" {
		meta = append(meta, card.StartDate+" ~ "+card.EndDate)
	}
	if n := m.detail.BasicDetail.CommitCount; n > 0 {
		meta = append(meta, fmt.Sprintf("%d/%d commits", n, m.detail.BasicDetail.TotalCommitCount))
	}
	if len(meta) > 0 {
		header += "  " + subtitleStyle.Render(strings.Join(meta, " · "))
	}
	return header
}

func (m Model) renderTabs() string {
	rendered := make([]string, len(m.tabs))
	for i, t := range m.tabs {
		if i == m.tab {
			rendered[i] = activeTabStyle.Render(t.String())
		} else {
			rendered[i] = tabStyle.Render(t.String())
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderStatusBar() string {
	left := fmt.Sprintf(" %s", m.ActiveTab())
	if m.ActiveTab() == TabAnalysis && len(m.spans) > 0 {
		pos := "-"
		if m.focus >= 0 {
			pos = fmt.Sprintf("%d", m.focus+1)
		}
		left += fmt.Sprintf("  Comment %s/%d", pos, len(m.spans))
	}
	right := "←/→ tabs  ? help "

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 0 {
		gap = 0
	}
	return statusBarStyle.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderHelp() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("coa - Keyboard Shortcuts"))
	b.WriteString("\n\n")

	for _, k := range []key.Binding{
		keys.Up, keys.Down, keys.NextTab, keys.PrevTab,
		keys.NextSpan, keys.PrevSpan, keys.Toggle, keys.Close,
		keys.Help, keys.Quit,
	} {
		h := k.Help()
		b.WriteString(fmt.Sprintf("  %s  %s\n", helpKeyStyle.Width(12).Render(h.Key), h.Desc))
	}

	b.WriteString("\n")
	b.WriteString(helpBarStyle.Render("Press ? to close help"))
	return b.String()
}

// Run opens the result viewer.
func Run(detail *model.RepoDetail, changes *diff.Changes) error {
	p := tea.NewProgram(New(detail, changes), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
