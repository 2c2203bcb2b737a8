package tui

import (
	"context"
	"fmt"
	"time"

	progressbar "github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dev101/coa/internal/progress"
)

// tickMsg triggers reading the tracker.
type tickMsg time.Time

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// ProgressOptions configures the progress view.
type ProgressOptions struct {
	Interval time.Duration
	// Heartbeat advances the tracker by its fixed step on every tick instead
	// of waiting for someone else to move it.
	Heartbeat bool
	Repo      string
}

// ProgressModel shows the tracker as a progress bar until the job leaves
// Running or the user detaches.
type ProgressModel struct {
	tracker  *progress.Tracker
	opts     ProgressOptions
	state    progress.State
	bar      progressbar.Model
	detached bool
	done     bool
}

// NewProgress creates a progress view for t.
func NewProgress(t *progress.Tracker, opts ProgressOptions) ProgressModel {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	return ProgressModel{
		tracker: t,
		opts:    opts,
		state:   t.State(),
		bar: progressbar.New(
			progressbar.WithDefaultGradient(),
			progressbar.WithWidth(40),
		),
	}
}

// State is the last tracker snapshot the view saw.
func (m ProgressModel) State() progress.State {
	return m.state
}

// Detached reports whether the user left before the job finished.
func (m ProgressModel) Detached() bool {
	return m.detached
}

// Init implements tea.Model.
func (m ProgressModel) Init() tea.Cmd {
	return tickCmd(m.opts.Interval)
}

// Update implements tea.Model.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.detached = true
			m.done = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-30, 10), 60)

	case tickMsg:
		if m.opts.Heartbeat {
			m.tracker.Poll()
		}
		m.state = m.tracker.State()
		if m.state.Phase != progress.Running {
			m.done = true
			return m, tea.Quit
		}
		return m, tickCmd(m.opts.Interval)
	}
	return m, nil
}

// View implements tea.Model.
func (m ProgressModel) View() string {
	if m.done {
		return m.finalView()
	}
	label := "Analyzing"
	if m.opts.Repo != "" {
		label += " " + m.opts.Repo
	}
	hint := helpBarStyle.Render("Press q to continue in background")
	return fmt.Sprintf("%s %s\n%s\n",
		statusStyle.Render(label),
		m.bar.ViewAs(float64(m.state.Percent)/100),
		hint)
}

func (m ProgressModel) finalView() string {
	switch {
	case m.detached:
		return helpBarStyle.Render(fmt.Sprintf(
			"\nAnalysis %s continues in background at %d%%.\nUse 'coa status' to check on it.\n",
			m.state.Analysis(), m.state.Percent))
	case m.state.Phase == progress.Completed:
		return completedStyle.Render("✓ Analysis complete") +
			"\n  Run 'coa result' to view it.\n"
	case m.state.Phase == progress.Errored:
		return erroredStyle.Render(fmt.Sprintf("✗ Analysis failed: %s", m.state.Err)) + "\n"
	default:
		return ""
	}
}

// RunProgress shows the progress view until the job finishes, the user
// detaches or ctx is cancelled.
func RunProgress(ctx context.Context, t *progress.Tracker, opts ProgressOptions) (ProgressModel, error) {
	p := tea.NewProgram(NewProgress(t, opts), tea.WithContext(ctx))
	final, err := p.Run()
	if pm, ok := final.(ProgressModel); ok {
		return pm, err
	}
	return NewProgress(t, opts), err
}
