package tui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	colorRed       = lipgloss.Color("#ff5555")
	colorGreen     = lipgloss.Color("#50fa7b")
	colorYellow    = lipgloss.Color("#f1fa8c")
	colorBlue      = lipgloss.Color("#8be9fd")
	colorPurple    = lipgloss.Color("#bd93f9")
	colorDim       = lipgloss.Color("#6272a4")
	colorBgLight   = lipgloss.Color("#343746")
	colorFg        = lipgloss.Color("#f8f8f2")
	colorOrange    = lipgloss.Color("#ffb86c")
	colorBorder    = lipgloss.Color("#44475a")
	colorHighlight = lipgloss.Color("#44475a")
)

// Style definitions.
var (
	// Header and tabs
	titleStyle = lipgloss.NewStyle().
			Foreground(colorBlue).
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	tabStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Padding(0, 2)

	activeTabStyle = lipgloss.NewStyle().
			Foreground(colorFg).
			Background(colorHighlight).
			Bold(true).
			Padding(0, 2)

	bodyStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	// Commit analysis text
	plainTextStyle = lipgloss.NewStyle().
			Foreground(colorFg)

	annotatedStyle = lipgloss.NewStyle().
			Foreground(colorOrange).
			Underline(true)

	focusedStyle = lipgloss.NewStyle().
			Foreground(colorOrange).
			Background(colorHighlight).
			Underline(true)

	commentBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPurple).
			Padding(0, 1)

	commentHeaderStyle = lipgloss.NewStyle().
				Foreground(colorPurple).
				Bold(true)

	// Score card
	scoreLabelStyle = lipgloss.NewStyle().
			Foreground(colorFg).
			Width(14)

	scoreBarFullStyle = lipgloss.NewStyle().
				Foreground(colorGreen)

	scoreBarEmptyStyle = lipgloss.NewStyle().
				Foreground(colorBorder)

	gradeExcellentStyle = lipgloss.NewStyle().
				Foreground(colorGreen).
				Bold(true)

	gradeGoodStyle = lipgloss.NewStyle().
			Foreground(colorBlue)

	gradeFairStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	gradePoorStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	// Changes list
	fileAddedStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	fileDeletedStyle = lipgloss.NewStyle().
				Foreground(colorRed)

	fileItemStyle = lipgloss.NewStyle().
			Foreground(colorFg)

	addedCountStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	deletedCountStyle = lipgloss.NewStyle().
				Foreground(colorRed)

	// Status bar
	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorFg).
			Background(colorBgLight).
			Padding(0, 1)

	// Help bar
	helpBarStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	// Progress view
	statusStyle = lipgloss.NewStyle().
			Foreground(colorBlue)

	completedStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Bold(true)

	erroredStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)
)
